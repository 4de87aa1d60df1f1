package errors

import (
	"reflect"
	"testing"
)

func TestParseError_Error(t *testing.T) {
	type fields struct {
		Err     string
		Kind    Kind
		Pos     int
		Snippet string
	}
	tests := []struct {
		name   string
		fields fields
		want   string
	}{
		{
			name:   "oh no!",
			fields: fields{Err: "oh no!", Kind: Syntax, Pos: 1, Snippet: "!"},
			want:   "oh no!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &ParseError{
				Err:     tt.fields.Err,
				Kind:    tt.fields.Kind,
				Pos:     tt.fields.Pos,
				Snippet: tt.fields.Snippet,
			}
			if got := e.Error(); got != tt.want {
				t.Errorf("ParseError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewParseError(t *testing.T) {
	got := NewParseError(UnbalancedParens, 4, ")", "unmatched \")\" at position 4")
	want := &ParseError{
		Err:     "unmatched \")\" at position 4",
		Kind:    UnbalancedParens,
		Pos:     4,
		Snippet: ")",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewParseError() = %+v, want %+v", got, want)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "parse error", err: NewParseError(DivisionByZero, 2, "0", "cannot divide by zero"), want: DivisionByZero},
		{name: "plain error", err: New("boom"), want: Unexpected},
		{name: "nil", err: nil, want: Unexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{Syntax, "syntax error"},
		{UnbalancedParens, "unbalanced parentheses"},
		{InvalidDiceSpec, "invalid dice spec"},
		{TooManyDice, "too many dice"},
		{InvalidKeepCount, "invalid keep count"},
		{DivisionByZero, "division by zero"},
		{EmptyExpression, "empty expression"},
		{Unexpected, "unexpected error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.k.String(); got != tt.want {
				t.Errorf("Kind.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
