// Package explain flattens compiled query plans into a tabular view for
// diagnostics. One row is emitted per plan-tree node per rule clause,
// preceded by a summary row describing the clause head. The view is
// purely informational; execution never consults it.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/stratum/internal/compile"
	"github.com/roach88/stratum/internal/expr"
)

// Row is one line of the explain table.
type Row struct {
	Stratum     int               `json:"stratum"`
	RuleIdx     int               `json:"rule_idx"`
	Rule        string            `json:"rule"`
	AtomIdx     int               `json:"atom_idx"`
	Op          string            `json:"op"`
	Ref         string            `json:"ref,omitempty"`
	JoinsOn     map[string]string `json:"joins_on,omitempty"`
	Filters     []string          `json:"filters/expr,omitempty"`
	OutRelation []string          `json:"out_relation,omitempty"`
}

// Headers lists the column names in table order.
var Headers = []string{
	"stratum", "rule_idx", "rule", "atom_idx", "op",
	"ref", "joins_on", "filters/expr", "out_relation",
}

// Program flattens the compiled strata, in evaluation order, into explain
// rows. For each rule clause the head summary row comes first (atom_idx
// 0), followed by the plan nodes leaves-first so that the root's row ends
// the clause's block. Unit relations and the joins that merely splice
// them in carry no information and are skipped.
func Program(strata []*compile.CompiledProgram) ([]Row, error) {
	var out []Row
	for stratum, prog := range strata {
		clauseIdx := -1
		for _, entry := range prog.Entries {
			ruleName := entry.Symbol.String()
			if entry.RuleSet.Fixed != nil {
				out = append(out, Row{
					Stratum: stratum,
					Rule:    ruleName,
					Op:      "algo",
				})
				continue
			}
			for _, rule := range entry.RuleSet.Rules {
				clauseIdx++
				rows, err := clauseRows(stratum, clauseIdx, ruleName, rule)
				if err != nil {
					return nil, err
				}
				out = append(out, rows...)
			}
		}
	}
	return out, nil
}

func clauseRows(stratum, clauseIdx int, ruleName string, rule *compile.CompiledRule) ([]Row, error) {
	rows := []Row{{
		Stratum:     stratum,
		RuleIdx:     clauseIdx,
		Rule:        ruleName,
		Op:          headOp(rule),
		OutRelation: bindingNames(rule.Relation),
	}}

	var collected []Row
	stack := []compile.RelAlgebra{rule.Relation}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		row := Row{
			Stratum:     stratum,
			RuleIdx:     clauseIdx,
			Rule:        ruleName,
			OutRelation: bindingNames(node),
		}
		switch n := node.(type) {
		case *compile.InlineFixed:
			if compile.IsUnit(n) {
				continue
			}
			row.Op = "fixed"
		case *compile.TempStoreScan:
			row.Op = "load_mem"
			row.Ref = n.StorageKey.String()
			row.Filters = renderAll(n.Filters)
		case *compile.StoredScan:
			row.Op = "load_stored"
			row.Ref = ":" + n.Name
			row.Filters = renderAll(n.Filters)
		case *compile.InnerJoin:
			if compile.IsUnit(n.Left) {
				stack = append(stack, n.Right)
				continue
			}
			kind, err := compile.JoinKind(n)
			if err != nil {
				return nil, err
			}
			stack = append(stack, n.Left, n.Right)
			row.Op = kind
			row.JoinsOn = n.Joiner.AsMap()
		case *compile.Reorder:
			stack = append(stack, n.Relation)
			row.Op = "reorder"
		case *compile.Filtered:
			stack = append(stack, n.Parent)
			row.Op = "filter"
			row.Filters = renderAll(n.Filters)
		case *compile.Unification:
			stack = append(stack, n.Parent)
			if n.IsMulti {
				row.Op = "multi-unify"
			} else {
				row.Op = "unify"
			}
			row.Ref = n.Binding.Name
			row.Filters = []string{expr.Render(n.Expr)}
		}
		collected = append(collected, row)
	}

	// The stack walk visits the root first; reversing it puts leaves
	// first and the root at the end of the clause's block.
	for i := len(collected) - 1; i >= 0; i-- {
		rows = append(rows, collected[i])
	}
	for i := range rows {
		rows[i].AtomIdx = i
	}
	return rows, nil
}

func headOp(rule *compile.CompiledRule) string {
	op := "out"
	for _, spec := range rule.Aggr {
		if spec == nil {
			continue
		}
		if spec.IsMeet {
			if op == "out" {
				op = "meet_aggr_out"
			}
		} else {
			op = "aggr_out"
		}
	}
	return op
}

func bindingNames(ra compile.RelAlgebra) []string {
	bindings := compile.BindingsAfterEliminate(ra)
	out := make([]string, len(bindings))
	for i, b := range bindings {
		out[i] = b.Name
	}
	return out
}

func renderAll(filters []expr.Expr) []string {
	if len(filters) == 0 {
		return nil
	}
	out := make([]string, len(filters))
	for i, f := range filters {
		out[i] = expr.Render(f)
	}
	return out
}

// Render formats rows as an aligned text table with a header line.
func Render(rows []Row) string {
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, Headers)
	for _, row := range rows {
		cells = append(cells, []string{
			fmt.Sprintf("%d", row.Stratum),
			fmt.Sprintf("%d", row.RuleIdx),
			row.Rule,
			fmt.Sprintf("%d", row.AtomIdx),
			row.Op,
			row.Ref,
			renderJoins(row.JoinsOn),
			strings.Join(row.Filters, "; "),
			"[" + strings.Join(row.OutRelation, ", ") + "]",
		})
	}

	widths := make([]int, len(Headers))
	for _, line := range cells {
		for i, cell := range line {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	for _, line := range cells {
		var lb strings.Builder
		for i, cell := range line {
			if i > 0 {
				lb.WriteString("  ")
			}
			lb.WriteString(cell)
			lb.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
		}
		sb.WriteString(strings.TrimRight(lb.String(), " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func renderJoins(joins map[string]string) string {
	if len(joins) == 0 {
		return ""
	}
	keys := make([]string, 0, len(joins))
	for k := range joins {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + joins[k]
	}
	return strings.Join(parts, ",")
}
