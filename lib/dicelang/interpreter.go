package dicelang

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"

	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
)

//Roller is the evaluator's only source of randomness. Injecting it keeps
//Evaluate deterministic under test: a scripted Roller reproduces the same
//RollResult every time.
type Roller interface {
	//RollDie returns a uniform integer in [1, sides].
	RollDie(sides int64) (int64, error)
}

//CryptoRoller draws faces from crypto/rand. It is safe for concurrent use.
type CryptoRoller struct{}

//RollDie implements Roller.
func (CryptoRoller) RollDie(sides int64) (int64, error) {
	if sides < 1 {
		return 0, errors.Newf("cannot roll a %d sided die", sides)
	}
	nBig, err := rand.Int(rand.Reader, big.NewInt(sides))
	if err != nil {
		return 0, errors.New("couldn't make a random number. Out of entropy?")
	}
	return nBig.Int64() + 1, nil
}

//RollOutcome records the resolution of one DiceTerm: every face in the
//order it was rolled, which faces were kept after the keep/drop rule, and
//the kept total. Roll order is preserved for display even though keep/drop
//selection works over a sorted copy.
type RollOutcome struct {
	Count int64
	Sides int64
	Keep  KeepRule
	Faces []int64
	Kept  []bool
	Total int64
}

//KeptFaces returns the kept faces in roll order.
func (o *RollOutcome) KeptFaces() []int64 {
	return o.facesWhere(true)
}

//DroppedFaces returns the dropped faces in roll order.
func (o *RollOutcome) DroppedFaces() []int64 {
	return o.facesWhere(false)
}

func (o *RollOutcome) facesWhere(kept bool) []int64 {
	var faces []int64
	for i, f := range o.Faces {
		if o.Kept[i] == kept {
			faces = append(faces, f)
		}
	}
	return faces
}

//String renders a single-line breakdown, e.g.
//"4d20kh3: [12 20 5 17] kept [12 20 17] = 49".
func (o *RollOutcome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d%s: %s", o.Count, o.Sides, o.Keep.suffix(), facesString(o.Faces))
	if o.Keep.Mode != KeepNone {
		fmt.Fprintf(&b, " kept %s", facesString(o.KeptFaces()))
	}
	fmt.Fprintf(&b, " = %d", o.Total)
	return b.String()
}

func facesString(faces []int64) string {
	parts := make([]string, len(faces))
	for i, f := range faces {
		parts[i] = fmt.Sprintf("%d", f)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

//RollResult is the final output of one evaluation: the folded total, the
//per-term outcomes in evaluation order, and the normalized notation echo.
type RollResult struct {
	Total    int64
	Outcomes []*RollOutcome
	Notation string
}

//Evaluate walks an expression tree, resolving every dice term against the
//supplied Roller. A nil roller means CryptoRoller. The only error paths are
//a failing entropy source, a runtime zero divisor, and int64 overflow on
//literal arithmetic; the parser's bound checks make everything else total.
func Evaluate(root Expr, roller Roller) (*RollResult, error) {
	if roller == nil {
		roller = CryptoRoller{}
	}
	ev := &evaluator{roller: roller}
	total, err := ev.eval(root)
	if err != nil {
		return nil, err
	}
	return &RollResult{
		Total:    total,
		Outcomes: ev.outcomes,
		Notation: root.String(),
	}, nil
}

type evaluator struct {
	roller   Roller
	outcomes []*RollOutcome
}

func (ev *evaluator) eval(e Expr) (int64, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Value, nil
	case *Group:
		return ev.eval(n.Inner)
	case *DiceTerm:
		return ev.rollTerm(n)
	case *BinaryOp:
		left, err := ev.eval(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := ev.eval(n.Right)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case "+":
			if v, ok := checkedAdd(left, right); ok {
				return v, nil
			}
			return 0, errOverflow(n)
		case "-":
			if v, ok := checkedSub(left, right); ok {
				return v, nil
			}
			return 0, errOverflow(n)
		case "*":
			// multiplies the already-resolved subtotal, never re-rolls
			if v, ok := checkedMul(left, right); ok {
				return v, nil
			}
			return 0, errOverflow(n)
		case "/":
			if right == 0 {
				return 0, errors.NewParseError(errors.DivisionByZero, 0, n.Right.String(),
					"cannot divide by zero")
			}
			if left == math.MinInt64 && right == -1 {
				return 0, errOverflow(n)
			}
			return floorDiv(left, right), nil
		}
		return 0, errors.Newf("unsupported operator: %s", n.Op)
	}
	return 0, errors.Newf("unsupported expression node: %T", e)
}

func (ev *evaluator) rollTerm(term *DiceTerm) (int64, error) {
	faces := make([]int64, term.Count)
	for i := range faces {
		face, err := ev.roller.RollDie(term.Sides)
		if err != nil {
			return 0, err
		}
		faces[i] = face
	}
	kept, total := applyKeep(faces, term.Keep)
	ev.outcomes = append(ev.outcomes, &RollOutcome{
		Count: term.Count,
		Sides: term.Sides,
		Keep:  term.Keep,
		Faces: faces,
		Kept:  kept,
		Total: total,
	})
	return total, nil
}

// applyKeep marks which faces count toward the total. Selection ranks a
// copy of the face indexes with a stable sort so ties resolve in original
// roll order; the faces slice itself is never reordered.
func applyKeep(faces []int64, keep KeepRule) ([]bool, int64) {
	kept := make([]bool, len(faces))
	if keep.Mode == KeepNone {
		var total int64
		for i, f := range faces {
			kept[i] = true
			total += f
		}
		return kept, total
	}

	idx := make([]int, len(faces))
	for i := range idx {
		idx[i] = i
	}
	switch keep.Mode {
	case KeepHighest, DropHighest:
		sort.SliceStable(idx, func(i, j int) bool { return faces[idx[i]] > faces[idx[j]] })
	case KeepLowest, DropLowest:
		sort.SliceStable(idx, func(i, j int) bool { return faces[idx[i]] < faces[idx[j]] })
	}

	n := int(keep.N)
	switch keep.Mode {
	case KeepHighest, KeepLowest:
		for _, i := range idx[:n] {
			kept[i] = true
		}
	case DropHighest, DropLowest:
		for _, i := range idx[n:] {
			kept[i] = true
		}
	}

	var total int64
	for i, f := range faces {
		if kept[i] {
			total += f
		}
	}
	return kept, total
}

// Checked int64 arithmetic. Dice terms stay small under the parser's
// bounds, but literals are unbounded, so the evaluator refuses to wrap.
func checkedAdd(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func checkedSub(a, b int64) (int64, bool) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, false
	}
	return a - b, true
}

func checkedMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		return 0, false
	}
	v := a * b
	if v/b != a {
		return 0, false
	}
	return v, true
}

func errOverflow(n *BinaryOp) error {
	return errors.Newf("the result of %s is too large to count", n.String())
}

// floorDiv rounds toward negative infinity, the conventional tabletop
// "round down" rule, rather than Go's truncation toward zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
