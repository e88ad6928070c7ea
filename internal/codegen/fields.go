// Package codegen renders classified cells and extracted logic into a
// generated TypeScript project: calculation modules, validation
// schemas, a relational schema, API and UI glue, and tests.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsheet/internal/classifier"
	"github.com/leapstack-labs/leapsheet/internal/logic"
	"github.com/leapstack-labs/leapsheet/pkg/cell"
	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

// Field is the derived metadata for one input or output cell.
type Field struct {
	Addr    string
	Name    string // sanitized identifier, unique across the project
	Label   string // human label found near the cell
	Section string // nearest structural heading above the cell
	Type    formula.Type
	Role    classifier.Role
	Options []string // non-nil forces an enumerated field
}

// DeriveFields produces input and output field metadata for every
// value cell in the classification. Labels come from the nearest
// Label/Structural text to the left, then above; sections from the
// nearest Structural row at or above the cell.
func DeriveFields(res *classifier.Result, lr *logic.Result) (inputs, outputs []Field) {
	types := ruleTypes(lr)
	sections := structuralRows(res)
	used := make(map[string]bool)

	for _, addr := range sortedValueCells(res) {
		cc := res.Cells[addr]
		f := Field{
			Addr:    addr,
			Label:   findLabel(res, addr),
			Section: findSection(res, sections, addr),
			Role:    cc.Role,
			Options: cc.ValueOptions,
		}
		f.Type = fieldType(cc, types[addr])
		f.Name = uniqueName(identifier(f.Label, addr), used)

		switch cc.Role {
		case classifier.RoleInput:
			inputs = append(inputs, f)
		case classifier.RoleOutput:
			outputs = append(outputs, f)
		}
	}
	return inputs, outputs
}

func sortedValueCells(res *classifier.Result) []string {
	var addrs []string
	for addr, cc := range res.Cells {
		if cc.Role == classifier.RoleInput || cc.Role == classifier.RoleOutput {
			addrs = append(addrs, addr)
		}
	}
	sort.Strings(addrs)
	return addrs
}

func ruleTypes(lr *logic.Result) map[string]formula.Type {
	types := make(map[string]formula.Type)
	for _, rule := range lr.Rules {
		for _, tf := range rule.Inputs {
			types[tf.Addr] = tf.Type
		}
		for _, tf := range rule.Outputs {
			types[tf.Addr] = tf.Type
		}
	}
	return types
}

// fieldType prefers the cluster-wide inference, then falls back to the
// shape of the cell's literal value. Validation options force text.
func fieldType(cc *classifier.Cell, inferred formula.Type) formula.Type {
	if len(cc.ValueOptions) > 0 {
		return formula.TypeText
	}
	if inferred != "" && inferred != formula.TypeUnknown {
		return inferred
	}
	if _, ok := formula.ParseNumericText(cc.Value); ok && !cc.IsFormula {
		return formula.TypeNumber
	}
	if !cc.IsFormula && strings.TrimSpace(cc.Value) != "" {
		return formula.TypeText
	}
	return formula.TypeUnknown
}

// findLabel walks left along the row, then up along the column, for
// the nearest Label or Structural cell with text.
func findLabel(res *classifier.Result, full string) string {
	addr, err := cell.Parse(full)
	if err != nil {
		return ""
	}
	for a := addr.Left(); a.Col >= 1; a = a.Left() {
		if text := labelText(res, a); text != "" {
			return text
		}
	}
	for a := addr.Above(); a.Row >= 1; a = a.Above() {
		if text := labelText(res, a); text != "" {
			return text
		}
	}
	return ""
}

func labelText(res *classifier.Result, a cell.Address) string {
	cc := res.Cells[a.String()]
	if cc == nil {
		return ""
	}
	if cc.Role == classifier.RoleLabel || cc.Role == classifier.RoleStructural {
		return strings.TrimSpace(cc.Value)
	}
	return ""
}

// structuralRows maps each sheet to the sorted rows that carry a
// Structural cell, with that row's heading text.
func structuralRows(res *classifier.Result) map[string]map[int]string {
	rows := make(map[string]map[int]string)
	for _, addr := range res.Order {
		cc := res.Cells[addr]
		if cc.Role != classifier.RoleStructural || strings.TrimSpace(cc.Value) == "" {
			continue
		}
		a, err := cell.Parse(addr)
		if err != nil {
			continue
		}
		if rows[a.Sheet] == nil {
			rows[a.Sheet] = make(map[int]string)
		}
		if _, taken := rows[a.Sheet][a.Row]; !taken {
			rows[a.Sheet][a.Row] = strings.TrimSpace(cc.Value)
		}
	}
	return rows
}

func findSection(res *classifier.Result, sections map[string]map[int]string, full string) string {
	a, err := cell.Parse(full)
	if err != nil {
		return "General"
	}
	sheetRows := sections[a.Sheet]
	best := ""
	bestRow := 0
	for row, text := range sheetRows {
		if row <= a.Row && row >= bestRow {
			best = text
			bestRow = row
		}
	}
	if best == "" {
		return "General"
	}
	return strings.TrimSuffix(best, ":")
}

// identifier sanitizes a label into a snake_case name, falling back to
// the cell address when no label exists.
func identifier(label, addr string) string {
	base := strings.TrimSpace(strings.TrimSuffix(label, ":"))
	if base == "" {
		base = "cell_" + strings.ReplaceAll(addr, "!", "_")
	}
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = "field"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "f_" + name
	}
	return name
}

func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		used[name] = true
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
