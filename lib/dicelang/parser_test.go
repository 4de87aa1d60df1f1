package dicelang

import (
	"reflect"
	"testing"

	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		notation string
		mode     AdvantageMode
		want     Expr
		wantErr  bool
	}{
		{name: "2d6",
			notation: "2d6",
			want:     &DiceTerm{Count: 2, Sides: 6}},
		{name: "bare d20 defaults to one die",
			notation: "d20",
			want:     &DiceTerm{Count: 1, Sides: 20}},
		{name: "keep highest",
			notation: "4d20kh3",
			want:     &DiceTerm{Count: 4, Sides: 20, Keep: KeepRule{Mode: KeepHighest, N: 3}}},
		{name: "drop lowest",
			notation: "4d6dl1",
			want:     &DiceTerm{Count: 4, Sides: 6, Keep: KeepRule{Mode: DropLowest, N: 1}}},
		{name: "keep suffix defaults to one",
			notation: "2d20kh",
			want:     &DiceTerm{Count: 2, Sides: 20, Keep: KeepRule{Mode: KeepHighest, N: 1}}},
		{name: "compound expression",
			notation: "(2d6+5)*3",
			want: &BinaryOp{Op: "*",
				Left: &Group{Inner: &BinaryOp{Op: "+",
					Left:  &DiceTerm{Count: 2, Sides: 6},
					Right: &Literal{Value: 5}}},
				Right: &Literal{Value: 3}}},
		{name: "left associative subtraction",
			notation: "10 - 3 - 2",
			want: &BinaryOp{Op: "-",
				Left:  &BinaryOp{Op: "-", Left: &Literal{Value: 10}, Right: &Literal{Value: 3}},
				Right: &Literal{Value: 2}}},
		{name: "multiplication binds tighter",
			notation: "1 + 2 * 3",
			want: &BinaryOp{Op: "+",
				Left:  &Literal{Value: 1},
				Right: &BinaryOp{Op: "*", Left: &Literal{Value: 2}, Right: &Literal{Value: 3}}}},
		{name: "unary minus folds into a literal",
			notation: "-4",
			want:     &Literal{Value: -4}},
		{name: "unary minus over a dice term",
			notation: "-2d6",
			want: &BinaryOp{Op: "-",
				Left:  &Literal{Value: 0},
				Right: &DiceTerm{Count: 2, Sides: 6}}},
		{name: "whitespace is insignificant",
			notation: " 2 d6 +  3 ",
			want: &BinaryOp{Op: "+",
				Left:  &DiceTerm{Count: 2, Sides: 6},
				Right: &Literal{Value: 3}}},
		{name: "spelled out numbers",
			notation: "two d six",
			want:     &DiceTerm{Count: 2, Sides: 6}},
		{name: "advantage rewrites the first d20 term",
			notation: "1d20",
			mode:     Advantage,
			want:     &DiceTerm{Count: 2, Sides: 20, Keep: KeepRule{Mode: KeepHighest, N: 1}}},
		{name: "disadvantage rewrites the first d20 term",
			notation: "1d20 + 5",
			mode:     Disadvantage,
			want: &BinaryOp{Op: "+",
				Left:  &DiceTerm{Count: 2, Sides: 20, Keep: KeepRule{Mode: KeepLowest, N: 1}},
				Right: &Literal{Value: 5}}},
		{name: "advantage without a d20 term is a no-op",
			notation: "3d6",
			mode:     Advantage,
			want:     &DiceTerm{Count: 3, Sides: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.notation, tt.mode)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_errorKinds(t *testing.T) {
	tests := []struct {
		name     string
		notation string
		want     errors.Kind
	}{
		{name: "empty expression", notation: "", want: errors.EmptyExpression},
		{name: "blank expression", notation: "   ", want: errors.EmptyExpression},
		{name: "unclosed paren", notation: "((1+2", want: errors.UnbalancedParens},
		{name: "stray close paren", notation: "1+2)", want: errors.UnbalancedParens},
		{name: "division by literal zero", notation: "1/0", want: errors.DivisionByZero},
		{name: "division by parenthesized zero", notation: "1/(0)", want: errors.DivisionByZero},
		{name: "zero sided die", notation: "5d0", want: errors.InvalidDiceSpec},
		{name: "zero dice", notation: "0d6", want: errors.InvalidDiceSpec},
		{name: "keep more than rolled", notation: "3d6kh5", want: errors.InvalidKeepCount},
		{name: "drop more than rolled", notation: "3d6dl4", want: errors.InvalidKeepCount},
		{name: "too many dice", notation: "100000d6", want: errors.TooManyDice},
		{name: "too many sides", notation: "1d100000", want: errors.TooManyDice},
		{name: "dangling operator", notation: "1+", want: errors.Syntax},
		{name: "missing sides", notation: "3d+1", want: errors.Syntax},
		{name: "unknown word", notation: "roll the bones", want: errors.Syntax},
		{name: "unknown character", notation: "2d6 % 2", want: errors.Syntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.notation, AdvantageNone)
			if err == nil {
				t.Fatalf("Parse(%q) expected error, got none", tt.notation)
			}
			if got := errors.KindOf(err); got != tt.want {
				t.Errorf("Parse(%q) error kind = %v, want %v", tt.notation, got, tt.want)
			}
		})
	}
}

func TestParse_customLimits(t *testing.T) {
	limits := Limits{MaxCount: 10, MaxSides: 100}
	if _, err := ParseWithLimits("11d6", AdvantageNone, limits); errors.KindOf(err) != errors.TooManyDice {
		t.Errorf("ParseWithLimits(11d6) error = %v, want TooManyDice", err)
	}
	if _, err := ParseWithLimits("10d100", AdvantageNone, limits); err != nil {
		t.Errorf("ParseWithLimits(10d100) unexpected error: %v", err)
	}
}

func TestStripAdvantagePhrase(t *testing.T) {
	tests := []struct {
		name     string
		notation string
		want     string
		wantMode AdvantageMode
	}{
		{name: "no phrase", notation: "2d6+1", want: "2d6+1", wantMode: AdvantageNone},
		{name: "advantage", notation: "1d20 with advantage", want: "1d20", wantMode: Advantage},
		{name: "disadvantage", notation: "1d20 with disadvantage", want: "1d20", wantMode: Disadvantage},
		{name: "case insensitive", notation: "1d20 WITH ADVANTAGE", want: "1d20", wantMode: Advantage},
		{name: "extra spacing", notation: "1d20+2  with   advantage ", want: "1d20+2", wantMode: Advantage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotMode := StripAdvantagePhrase(tt.notation)
			if got != tt.want || gotMode != tt.wantMode {
				t.Errorf("StripAdvantagePhrase() = (%q, %v), want (%q, %v)", got, gotMode, tt.want, tt.wantMode)
			}
		})
	}
}

func TestParseString_advantageEquivalence(t *testing.T) {
	withPhrase, mode, err := ParseString("1d20 with advantage")
	if err != nil {
		t.Fatalf("ParseString() unexpected error: %v", err)
	}
	if mode != Advantage {
		t.Errorf("ParseString() mode = %v, want Advantage", mode)
	}
	explicit, err := Parse("2d20kh1", AdvantageNone)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(withPhrase, explicit) {
		t.Errorf("ParseString(\"1d20 with advantage\") = %+v, want %+v", withPhrase, explicit)
	}
}

func TestParse_notationRoundTrip(t *testing.T) {
	notations := []string{
		"2d6",
		"d20",
		"4d20kh3",
		"(2d6+5)*3",
		"1d8 + 2d4dl1 - 3",
		"10/4",
		"-2d6",
		"1d20 with advantage",
	}
	for _, notation := range notations {
		t.Run(notation, func(t *testing.T) {
			first, _, err := ParseString(notation)
			if err != nil {
				t.Fatalf("ParseString(%q) unexpected error: %v", notation, err)
			}
			second, err := Parse(first.String(), AdvantageNone)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", first.String(), err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("round trip of %q: %+v != %+v", notation, first, second)
			}
		})
	}
}
