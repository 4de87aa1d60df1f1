package dicelang

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
)

// scriptRoller replays a fixed sequence of faces so outcomes are exact.
type scriptRoller struct {
	faces []int64
	i     int
}

func (r *scriptRoller) RollDie(sides int64) (int64, error) {
	if r.i >= len(r.faces) {
		return 0, errors.Newf("script exhausted after %d rolls", r.i)
	}
	face := r.faces[r.i]
	r.i++
	return face, nil
}

func TestParseAndRoll_scripted(t *testing.T) {
	tests := []struct {
		name      string
		notation  string
		faces     []int64
		wantTotal int64
	}{
		{name: "compound expression",
			notation: "(2d6+5)*3", faces: []int64{3, 4}, wantTotal: 36},
		{name: "keep highest three",
			notation: "4d20kh3", faces: []int64{12, 20, 5, 17}, wantTotal: 49},
		{name: "keep lowest",
			notation: "2d20kl1", faces: []int64{12, 17}, wantTotal: 12},
		{name: "drop lowest",
			notation: "4d6dl1", faces: []int64{1, 3, 3, 6}, wantTotal: 12},
		{name: "drop highest",
			notation: "3d6dh1", faces: []int64{2, 6, 4}, wantTotal: 6},
		{name: "advantage phrase keeps the higher die",
			notation: "1d20 with advantage", faces: []int64{12, 17}, wantTotal: 17},
		{name: "disadvantage phrase keeps the lower die",
			notation: "1d20 with disadvantage", faces: []int64{12, 17}, wantTotal: 12},
		{name: "division floors toward negative infinity",
			notation: "-7/2", wantTotal: -4},
		{name: "positive division floors",
			notation: "10/4", wantTotal: 2},
		{name: "subtraction below zero",
			notation: "1d4 - 10", faces: []int64{2}, wantTotal: -8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAndRoll(tt.notation,
				RollOptionWithRoller(&scriptRoller{faces: tt.faces}))
			if err != nil {
				t.Fatalf("ParseAndRoll(%q) unexpected error: %v", tt.notation, err)
			}
			if got.Total != tt.wantTotal {
				t.Errorf("ParseAndRoll(%q).Total = %d, want %d\n%s",
					tt.notation, got.Total, tt.wantTotal, spew.Sdump(got))
			}
		})
	}
}

func TestParseAndRoll_outcomeBreakdown(t *testing.T) {
	got, err := ParseAndRoll("4d20kh3",
		RollOptionWithRoller(&scriptRoller{faces: []int64{12, 20, 5, 17}}))
	if err != nil {
		t.Fatalf("ParseAndRoll() unexpected error: %v", err)
	}
	if len(got.Outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(got.Outcomes))
	}
	want := &RollOutcome{
		Count: 4,
		Sides: 20,
		Keep:  KeepRule{Mode: KeepHighest, N: 3},
		Faces: []int64{12, 20, 5, 17},
		Kept:  []bool{true, true, false, true},
		Total: 49,
	}
	if !reflect.DeepEqual(got.Outcomes[0], want) {
		t.Errorf("outcome mismatch:\ngot:  %swant: %s",
			spew.Sdump(got.Outcomes[0]), spew.Sdump(want))
	}
	if kept := got.Outcomes[0].KeptFaces(); !reflect.DeepEqual(kept, []int64{12, 20, 17}) {
		t.Errorf("KeptFaces() = %v, want [12 20 17]", kept)
	}
	if dropped := got.Outcomes[0].DroppedFaces(); !reflect.DeepEqual(dropped, []int64{5}) {
		t.Errorf("DroppedFaces() = %v, want [5]", dropped)
	}
	if got.Notation != "4d20kh3" {
		t.Errorf("Notation = %q, want %q", got.Notation, "4d20kh3")
	}
}

func TestApplyKeep_tiesResolveInRollOrder(t *testing.T) {
	tests := []struct {
		name  string
		faces []int64
		keep  KeepRule
		want  []bool
	}{
		{name: "keep highest prefers earlier ties",
			faces: []int64{3, 5, 3, 5},
			keep:  KeepRule{Mode: KeepHighest, N: 2},
			want:  []bool{false, true, false, true}},
		{name: "keep lowest prefers earlier ties",
			faces: []int64{2, 4, 2, 1},
			keep:  KeepRule{Mode: KeepLowest, N: 2},
			want:  []bool{true, false, false, true}},
		{name: "drop highest drops the earlier tie",
			faces: []int64{6, 6, 1},
			keep:  KeepRule{Mode: DropHighest, N: 1},
			want:  []bool{false, true, true}},
		{name: "no rule keeps everything",
			faces: []int64{1, 2, 3},
			keep:  KeepRule{},
			want:  []bool{true, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := applyKeep(tt.faces, tt.keep)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("applyKeep(%v, %+v) = %v, want %v", tt.faces, tt.keep, got, tt.want)
			}
		})
	}
}

func TestEvaluate_runtimeDivisionByZero(t *testing.T) {
	root, err := Parse("6/(1-1)", AdvantageNone)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	_, err = Evaluate(root, nil)
	if errors.KindOf(err) != errors.DivisionByZero {
		t.Errorf("Evaluate(6/(1-1)) error = %v, want DivisionByZero", err)
	}
}

func TestEvaluate_literalOverflow(t *testing.T) {
	tests := []struct {
		name     string
		notation string
	}{
		{name: "multiply", notation: "9223372036854775807 * 2"},
		{name: "add", notation: "9223372036854775807 + 1"},
		{name: "subtract", notation: "0 - 9223372036854775807 - 9223372036854775807"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(tt.notation, AdvantageNone)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.notation, err)
			}
			if _, err := Evaluate(root, nil); err == nil {
				t.Errorf("Evaluate(%q) = nil error, want overflow error", tt.notation)
			}
		})
	}
}

func TestParseAndRoll_deterministicWithSameScript(t *testing.T) {
	first, err := ParseAndRoll("3d6+1d4",
		RollOptionWithRoller(&scriptRoller{faces: []int64{4, 1, 6, 3}}))
	if err != nil {
		t.Fatalf("ParseAndRoll() unexpected error: %v", err)
	}
	second, err := ParseAndRoll("3d6+1d4",
		RollOptionWithRoller(&scriptRoller{faces: []int64{4, 1, 6, 3}}))
	if err != nil {
		t.Fatalf("ParseAndRoll() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical scripts diverged:\nfirst:  %ssecond: %s",
			spew.Sdump(first), spew.Sdump(second))
	}
}

func TestParseAndRoll_facesWithinBounds(t *testing.T) {
	got, err := ParseAndRoll("100d6")
	if err != nil {
		t.Fatalf("ParseAndRoll() unexpected error: %v", err)
	}
	for _, outcome := range got.Outcomes {
		for _, face := range outcome.Faces {
			if face < 1 || face > outcome.Sides {
				t.Errorf("face %d out of range [1, %d]", face, outcome.Sides)
			}
		}
	}
}

func TestParseAndRoll_advantageOption(t *testing.T) {
	got, err := ParseAndRoll("1d20",
		RollOptionWithRoller(&scriptRoller{faces: []int64{3, 19}}),
		RollOptionWithAdvantage(Advantage))
	if err != nil {
		t.Fatalf("ParseAndRoll() unexpected error: %v", err)
	}
	if got.Total != 19 {
		t.Errorf("Total = %d, want 19", got.Total)
	}
	if got.Notation != "2d20kh1" {
		t.Errorf("Notation = %q, want %q", got.Notation, "2d20kh1")
	}
}
