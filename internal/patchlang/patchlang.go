// Package patchlang types the boundary to the patch-language text parser —
// explicitly out of scope per spec §1 ("the text parser for the patch
// language... their contracts appear in §6 but their implementation is not
// specified"). Parser is what cmd/phonon calls to turn a `.ph` file's bytes
// into the compiler.Program the graph compiler consumes; no grammar for the
// real surface syntax (`tempo:`, `~name = expr`, `%name = "..."`, `for`/`if`,
// juxtaposition calls) ships here.
//
// JSONParser is a pragmatic stand-in that lets cmd/phonon's render/perf
// subcommands, and this package's own tests, exercise the full
// compile-and-render pipeline without that grammar: a `.ph` file is, in this
// build, the tagged-union JSON shape documented below rather than the real
// patch-language surface syntax. A real front end satisfies the same Parser
// interface and drops in without changing anything downstream.
package patchlang

import (
	"encoding/json"
	"fmt"

	"github.com/ekg/phonon/internal/compiler"
)

// Parser turns patch-language source bytes into a compiler.Program.
type Parser interface {
	Parse(source []byte) (compiler.Program, error)
}

// JSONParser decodes the tagged-union JSON document shape below. Statement
// kinds: "tempo" {cps}, "bus" {name,expr}, "macro" {name,source},
// "output" {name,expr}, "for" {var,from,to,body}, "if" {cond,then,else}.
// Expr kinds: "number" {value}, "pattern" {source}, "string" {value},
// "busref" {name}, "macroref" {name}, "call" {func,args}.
type JSONParser struct{}

func (JSONParser) Parse(source []byte) (compiler.Program, error) {
	var doc programDoc
	if err := json.Unmarshal(source, &doc); err != nil {
		return compiler.Program{}, fmt.Errorf("patchlang: %w", err)
	}
	stmts, err := decodeStatements(doc.Statements)
	if err != nil {
		return compiler.Program{}, err
	}
	return compiler.Program{Statements: stmts}, nil
}

type programDoc struct {
	Statements []json.RawMessage `json:"statements"`
}

type kindHeader struct {
	Kind string `json:"kind"`
}

type tempoDoc struct {
	CPS json.RawMessage `json:"cps"`
}

type busDoc struct {
	Name string          `json:"name"`
	Expr json.RawMessage `json:"expr"`
}

type macroDoc struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type outputDoc struct {
	Name string          `json:"name"`
	Expr json.RawMessage `json:"expr"`
}

type forDoc struct {
	Var  string            `json:"var"`
	From int64             `json:"from"`
	To   int64             `json:"to"`
	Body []json.RawMessage `json:"body"`
}

type ifDoc struct {
	Cond bool              `json:"cond"`
	Then []json.RawMessage `json:"then"`
	Else []json.RawMessage `json:"else"`
}

func decodeStatements(raw []json.RawMessage) ([]compiler.Statement, error) {
	out := make([]compiler.Statement, 0, len(raw))
	for _, r := range raw {
		s, err := decodeStatement(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeStatement(raw json.RawMessage) (compiler.Statement, error) {
	var h kindHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("patchlang: statement: %w", err)
	}
	switch h.Kind {
	case "tempo":
		var d tempoDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		cps, err := decodeExpr(d.CPS)
		if err != nil {
			return nil, err
		}
		return compiler.TempoStmt{CPS: cps}, nil
	case "bus":
		var d busDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		expr, err := decodeExpr(d.Expr)
		if err != nil {
			return nil, err
		}
		return compiler.BusDef{Name: d.Name, Expr: expr}, nil
	case "macro":
		var d macroDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return compiler.PatternMacro{Name: d.Name, Source: d.Source}, nil
	case "output":
		var d outputDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		expr, err := decodeExpr(d.Expr)
		if err != nil {
			return nil, err
		}
		return compiler.OutputStmt{Name: d.Name, Expr: expr}, nil
	case "for":
		var d forDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		body, err := decodeStatements(d.Body)
		if err != nil {
			return nil, err
		}
		return compiler.ForStmt{Var: d.Var, From: d.From, To: d.To, Body: body}, nil
	case "if":
		var d ifDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		then, err := decodeStatements(d.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeStatements(d.Else)
		if err != nil {
			return nil, err
		}
		return compiler.IfStmt{Cond: d.Cond, Then: then, Else: els}, nil
	default:
		return nil, fmt.Errorf("patchlang: unknown statement kind %q", h.Kind)
	}
}

type numberDoc struct {
	Value float64 `json:"value"`
}

type patternDoc struct {
	Source string `json:"source"`
}

type stringDoc struct {
	Value string `json:"value"`
}

type refDoc struct {
	Name string `json:"name"`
}

type callDoc struct {
	Func string            `json:"func"`
	Args []json.RawMessage `json:"args"`
}

func decodeExpr(raw json.RawMessage) (compiler.Expr, error) {
	var h kindHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("patchlang: expr: %w", err)
	}
	switch h.Kind {
	case "number":
		var d numberDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return compiler.NumberExpr{Value: d.Value}, nil
	case "pattern":
		var d patternDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return compiler.PatternExpr{Source: d.Source}, nil
	case "string":
		var d stringDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return compiler.StringExpr{Value: d.Value}, nil
	case "busref":
		var d refDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return compiler.BusRefExpr{Name: d.Name}, nil
	case "macroref":
		var d refDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return compiler.MacroRefExpr{Name: d.Name}, nil
	case "call":
		var d callDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		args := make([]compiler.Expr, 0, len(d.Args))
		for _, a := range d.Args {
			e, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
		return compiler.CallExpr{Func: d.Func, Args: args}, nil
	default:
		return nil, fmt.Errorf("patchlang: unknown expr kind %q", h.Kind)
	}
}
