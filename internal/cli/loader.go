package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/stratum/internal/expr"
	"github.com/roach88/stratum/internal/program"
	"github.com/roach88/stratum/internal/symb"
	"github.com/roach88/stratum/internal/value"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeLoadFailed  = "E003" // CUE load failed
	ErrCodeBuildFailed = "E004" // CUE build failed
	ErrCodeBadScript   = "E005" // Script document is malformed
	ErrCodeManifest    = "E006" // Relation manifest error
	ErrCodeCatalog     = "E007" // Catalog database error
)

// LoadError is an error produced while loading a script document.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// The script document shape, decoded from CUE. A script declares the
// stratified program directly: strata in dependency order (the entry
// stratum first), each holding named rule sets of clauses.
type scriptDoc struct {
	Strata []stratumDoc `json:"strata"`
}

type stratumDoc struct {
	Rules []ruleDoc `json:"rules"`
}

type ruleDoc struct {
	Name      string      `json:"name"`
	Adornment string      `json:"adornment"`
	Clauses   []clauseDoc `json:"clauses"`
}

type clauseDoc struct {
	Head []string  `json:"head"`
	Aggr []aggrDoc `json:"aggregations"`
	Body []atomDoc `json:"body"`
}

type aggrDoc struct {
	Pos  int    `json:"pos"`
	Name string `json:"name"`
	Meet bool   `json:"meet"`
}

// atomDoc is one body atom; exactly one of rule, relation, cond, or bind
// must be present.
type atomDoc struct {
	Rule      string   `json:"rule"`
	Relation  string   `json:"relation"`
	Adornment string   `json:"adornment"`
	Negated   bool     `json:"negated"`
	Args      []string `json:"args"`
	Cond      *exprDoc `json:"cond"`
	Bind      string   `json:"bind"`
	To        *exprDoc `json:"to"`
	Multi     bool     `json:"multi"`
}

// exprDoc is an expression: a variable reference, an operator
// application, or a literal.
type exprDoc struct {
	Var  string    `json:"var"`
	Op   string    `json:"op"`
	Args []exprDoc `json:"args"`
	Lit  any       `json:"lit"`
}

// LoadScript loads a program script from a CUE file or directory and
// converts it into the compiler's stratified-program form.
func LoadScript(path string) (*program.StratifiedProgram, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("script not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing script: %v", err)}
	}

	cfg := &load.Config{}
	args := []string{path}
	if info.IsDir() {
		cfg.Dir = path
		args = []string{"."}
	}
	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	ctx := cuecontext.New()
	val := ctx.BuildInstance(inst)
	if err := val.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	var doc scriptDoc
	if err := val.Decode(&doc); err != nil {
		return nil, &LoadError{Code: ErrCodeBadScript, Message: fmt.Sprintf("decoding script: %v", err)}
	}
	return buildProgram(&doc)
}

func buildProgram(doc *scriptDoc) (*program.StratifiedProgram, error) {
	if len(doc.Strata) == 0 {
		return nil, &LoadError{Code: ErrCodeBadScript, Message: "script declares no strata"}
	}
	out := &program.StratifiedProgram{Strata: make([]program.Stratum, len(doc.Strata))}
	for i, stratum := range doc.Strata {
		entries := make([]program.Entry, 0, len(stratum.Rules))
		for _, rule := range stratum.Rules {
			entry, err := buildEntry(rule)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		out.Strata[i] = program.Stratum{Prog: entries}
	}
	return out, nil
}

func buildEntry(rule ruleDoc) (program.Entry, error) {
	if rule.Name == "" {
		return program.Entry{}, &LoadError{Code: ErrCodeBadScript, Message: "rule with empty name"}
	}
	sym, err := magicSymbol(rule.Name, rule.Adornment)
	if err != nil {
		return program.Entry{}, err
	}
	if len(rule.Clauses) == 0 {
		return program.Entry{}, &LoadError{Code: ErrCodeBadScript, Message: fmt.Sprintf("rule %q has no clauses", rule.Name)}
	}

	clauses := make([]*program.InlineRule, 0, len(rule.Clauses))
	arity := len(rule.Clauses[0].Head)
	for _, clause := range rule.Clauses {
		if len(clause.Head) != arity {
			return program.Entry{}, &LoadError{
				Code:    ErrCodeBadScript,
				Message: fmt.Sprintf("rule %q clauses disagree on arity (%d vs %d)", rule.Name, arity, len(clause.Head)),
			}
		}
		built, err := buildClause(rule.Name, clause)
		if err != nil {
			return program.Entry{}, err
		}
		clauses = append(clauses, built)
	}
	return program.Entry{Symbol: sym, RuleSet: program.RuleSet{Rules: clauses}}, nil
}

func buildClause(ruleName string, clause clauseDoc) (*program.InlineRule, error) {
	aggr := make([]*program.AggrSpec, len(clause.Head))
	for _, spec := range clause.Aggr {
		if spec.Pos < 0 || spec.Pos >= len(clause.Head) {
			return nil, &LoadError{
				Code:    ErrCodeBadScript,
				Message: fmt.Sprintf("rule %q aggregation position %d out of range", ruleName, spec.Pos),
			}
		}
		aggr[spec.Pos] = &program.AggrSpec{Name: spec.Name, IsMeet: spec.Meet}
	}

	body := make([]program.Atom, 0, len(clause.Body))
	for _, atom := range clause.Body {
		built, err := buildAtom(ruleName, atom)
		if err != nil {
			return nil, err
		}
		body = append(body, built)
	}
	return &program.InlineRule{Head: symbols(clause.Head), Aggr: aggr, Body: body}, nil
}

func buildAtom(ruleName string, atom atomDoc) (program.Atom, error) {
	switch {
	case atom.Rule != "":
		name, err := magicSymbol(atom.Rule, atom.Adornment)
		if err != nil {
			return nil, err
		}
		if atom.Negated {
			return &program.NegatedRuleApplyAtom{Name: name, Args: symbols(atom.Args)}, nil
		}
		return &program.RuleApplyAtom{Name: name, Args: symbols(atom.Args)}, nil
	case atom.Relation != "":
		name := symb.New(atom.Relation, symb.SourceSpan{})
		if atom.Negated {
			return &program.NegatedRelationApplyAtom{Name: name, Args: symbols(atom.Args)}, nil
		}
		return &program.RelationApplyAtom{Name: name, Args: symbols(atom.Args)}, nil
	case atom.Bind != "":
		if atom.To == nil {
			return nil, &LoadError{
				Code:    ErrCodeBadScript,
				Message: fmt.Sprintf("rule %q binds %q without an expression", ruleName, atom.Bind),
			}
		}
		rhs, err := atom.To.toExpr()
		if err != nil {
			return nil, err
		}
		return &program.UnificationAtom{
			Binding: symb.New(atom.Bind, symb.SourceSpan{}),
			Expr:    rhs,
			OneMany: atom.Multi,
		}, nil
	case atom.Cond != nil:
		cond, err := atom.Cond.toExpr()
		if err != nil {
			return nil, err
		}
		return &program.PredicateAtom{Expr: cond}, nil
	default:
		return nil, &LoadError{
			Code:    ErrCodeBadScript,
			Message: fmt.Sprintf("rule %q has an atom with no rule, relation, cond or bind", ruleName),
		}
	}
}

func (e *exprDoc) toExpr() (expr.Expr, error) {
	switch {
	case e.Var != "":
		return &expr.Binding{Var: symb.New(e.Var, symb.SourceSpan{})}, nil
	case e.Op != "":
		args := make([]expr.Expr, 0, len(e.Args))
		for i := range e.Args {
			arg, err := e.Args[i].toExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return &expr.Apply{Op: e.Op, Args: args}, nil
	default:
		val, err := toValue(e.Lit)
		if err != nil {
			return nil, err
		}
		return &expr.Const{Val: val}, nil
	}
}

func toValue(lit any) (value.Value, error) {
	switch v := lit.(type) {
	case nil:
		return value.Null{}, nil
	case bool:
		return value.Bool(v), nil
	case int:
		return value.Int(v), nil
	case int64:
		return value.Int(v), nil
	case float64:
		return value.Float(v), nil
	case string:
		return value.String(v), nil
	case []any:
		out := make(value.List, 0, len(v))
		for _, elem := range v {
			converted, err := toValue(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	default:
		return nil, &LoadError{Code: ErrCodeBadScript, Message: fmt.Sprintf("unsupported literal %T", lit)}
	}
}

func magicSymbol(name, adornment string) (program.MagicSymbol, error) {
	inner := symb.New(name, symb.SourceSpan{})
	if adornment == "" {
		return program.Muggle(inner), nil
	}
	bound := make([]bool, len(adornment))
	for i, c := range adornment {
		switch c {
		case 'b':
			bound[i] = true
		case 'f':
			bound[i] = false
		default:
			return program.MagicSymbol{}, &LoadError{
				Code:    ErrCodeBadScript,
				Message: fmt.Sprintf("rule %q has invalid adornment %q", name, adornment),
			}
		}
	}
	return program.Magic(inner, bound), nil
}

func symbols(names []string) []symb.Symbol {
	out := make([]symb.Symbol, len(names))
	for i, name := range names {
		out[i] = symb.New(name, symb.SourceSpan{})
	}
	return out
}
