package dicelang

import (
	"fmt"
	"strconv"
)

//Expr is a node in a parsed dice expression tree. The variant set is closed:
//Literal, DiceTerm, BinaryOp and Group are the only implementations, and the
//evaluator matches them exhaustively. A tree is immutable once Parse returns it.
type Expr interface {
	fmt.Stringer
	exprNode()
}

//Literal is an integer constant.
type Literal struct {
	Value int64
}

//DiceTerm is a single NdS roll with an optional keep/drop rule.
type DiceTerm struct {
	Count int64
	Sides int64
	Keep  KeepRule
}

//BinaryOp is one of the four arithmetic operators applied to two sub-expressions.
type BinaryOp struct {
	Op    string
	Left  Expr
	Right Expr
}

//Group is a parenthesized sub-expression. It only affects parse-time
//precedence, but is kept in the tree so the notation echo round-trips.
type Group struct {
	Inner Expr
}

func (*Literal) exprNode()  {}
func (*DiceTerm) exprNode() {}
func (*BinaryOp) exprNode() {}
func (*Group) exprNode()    {}

func (l *Literal) String() string {
	return strconv.FormatInt(l.Value, 10)
}

func (d *DiceTerm) String() string {
	return fmt.Sprintf("%dd%d%s", d.Count, d.Sides, d.Keep.suffix())
}

func (b *BinaryOp) String() string {
	return fmt.Sprintf("%s %s %s", b.Left, b.Op, b.Right)
}

func (g *Group) String() string {
	return fmt.Sprintf("(%s)", g.Inner)
}

//KeepMode selects which subset of rolled dice counts toward the total.
type KeepMode int

const (
	//KeepNone keeps every die.
	KeepNone KeepMode = iota
	//KeepHighest keeps the N highest faces.
	KeepHighest
	//KeepLowest keeps the N lowest faces.
	KeepLowest
	//DropHighest drops the N highest faces.
	DropHighest
	//DropLowest drops the N lowest faces.
	DropLowest
)

//KeepRule is the optional keep/drop modifier on a DiceTerm. N must be
//positive and no greater than the term's count; the parser validates this
//and never clamps.
type KeepRule struct {
	Mode KeepMode
	N    int64
}

func (k KeepRule) suffix() string {
	switch k.Mode {
	case KeepHighest:
		return fmt.Sprintf("kh%d", k.N)
	case KeepLowest:
		return fmt.Sprintf("kl%d", k.N)
	case DropHighest:
		return fmt.Sprintf("dh%d", k.N)
	case DropLowest:
		return fmt.Sprintf("dl%d", k.N)
	}
	return ""
}

//AdvantageMode is an orthogonal flag on a whole roll request.
type AdvantageMode int

const (
	//AdvantageNone rolls the notation as written.
	AdvantageNone AdvantageMode = iota
	//Advantage rewrites the first d20 term to 2d20kh1.
	Advantage
	//Disadvantage rewrites the first d20 term to 2d20kl1.
	Disadvantage
)

func (m AdvantageMode) String() string {
	switch m {
	case Advantage:
		return "advantage"
	case Disadvantage:
		return "disadvantage"
	}
	return "none"
}

//rewriteAdvantage applies the d20 advantage shorthand to the first DiceTerm
//with 20 sides and no keep rule, walking the tree in order. It reports
//whether a term was rewritten; when no d20 term is present the mode is a
//documented no-op.
func rewriteAdvantage(e Expr, mode AdvantageMode) bool {
	switch n := e.(type) {
	case *DiceTerm:
		if n.Sides != 20 || n.Keep.Mode != KeepNone {
			return false
		}
		n.Count = 2
		if mode == Advantage {
			n.Keep = KeepRule{Mode: KeepHighest, N: 1}
		} else {
			n.Keep = KeepRule{Mode: KeepLowest, N: 1}
		}
		return true
	case *BinaryOp:
		if rewriteAdvantage(n.Left, mode) {
			return true
		}
		return rewriteAdvantage(n.Right, mode)
	case *Group:
		return rewriteAdvantage(n.Inner, mode)
	}
	return false
}
