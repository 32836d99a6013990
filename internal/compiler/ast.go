// Package compiler turns a parsed patch-language statement list into a
// graph.Graph. The text parser that produces this statement list is an
// external collaborator out of scope here (only its output contract is
// needed, per spec §1/§4.4: "consumes a parsed statement list, externally
// produced") — Program and its Statement/Expr variants stand in for that
// contract so the compiler itself can be built and tested independently of
// any concrete syntax.
package compiler

// Program is the top-level unit the compiler consumes.
type Program struct {
	Statements []Statement
}

// Statement is one top-level directive.
type Statement interface{ stmtNode() }

// TempoStmt sets the graph's cycles-per-second. CPS must evaluate to a
// constant number — a pattern reference here is rejected with
// graph.PatternRefNotAllowedHere, since tempo is read once at compile time,
// not sampled per tick.
type TempoStmt struct{ CPS Expr }

// BusDef is `~name = expr`: a named, lazily-resolved signal-graph node other
// expressions can reference by name via BusRefExpr.
type BusDef struct {
	Name string
	Expr Expr
}

// PatternMacro is `%name = "<mini-notation>"`: a named pattern source string
// substitutable wherever a pattern literal is expected via MacroRefExpr.
type PatternMacro struct {
	Name   string
	Source string
}

// OutputStmt is `out = expr` or `oN = expr`: registers expr's compiled node
// as the source of the named output bus.
type OutputStmt struct {
	Name string
	Expr Expr
}

// ForStmt repeats Body constant-fold-style, From..To inclusive. The patch
// language's per-iteration name templating (e.g. a loop variable spliced
// into a bus name) is part of the out-of-scope text parser's job, not the
// compiler's; Body here is therefore literally replayed each iteration,
// which is enough to validate and wire loop-invariant definitions but not
// to generate per-iteration-distinct bus names without a richer AST than
// a parser front-end would supply.
type ForStmt struct {
	Var      string
	From, To int64
	Body     []Statement
}

// IfStmt selects Then or Else based on a compile-time boolean (e.g. a CLI
// flag or config toggle the external parser resolved before handing the
// compiler its statement list) — not a runtime audio-rate condition.
type IfStmt struct {
	Cond bool
	Then []Statement
	Else []Statement
}

func (TempoStmt) stmtNode()     {}
func (BusDef) stmtNode()        {}
func (PatternMacro) stmtNode()  {}
func (OutputStmt) stmtNode()    {}
func (ForStmt) stmtNode()       {}
func (IfStmt) stmtNode()        {}

// Expr is one value-producing expression: a literal, a reference, or a
// function call compiled into one or more graph nodes.
type Expr interface{ exprNode() }

// NumberExpr is a literal constant.
type NumberExpr struct{ Value float64 }

// PatternExpr is a mini-notation pattern literal, e.g. `"bd sn ~ sn"`.
type PatternExpr struct{ Source string }

// StringExpr is a bareword symbolic argument — used where a call needs the
// name of a transform rather than a value, e.g. `every(4, "rev", ...)`.
type StringExpr struct{ Value string }

// BusRefExpr is `~name`, resolved against the program's bus definitions.
type BusRefExpr struct{ Name string }

// MacroRefExpr is `%name`, resolved against the program's pattern macros.
type MacroRefExpr struct{ Name string }

// CallExpr is a function-style node/transform invocation, e.g.
// `lpf(sine(440), 800, 0.7)` or `fast(2, "bd sn")`.
type CallExpr struct {
	Func string
	Args []Expr
}

func (NumberExpr) exprNode()    {}
func (PatternExpr) exprNode()   {}
func (StringExpr) exprNode()    {}
func (BusRefExpr) exprNode()    {}
func (MacroRefExpr) exprNode()  {}
func (CallExpr) exprNode()      {}
