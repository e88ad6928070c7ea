// Package logic turns the dependency graph into parsed, typed,
// testable business rules. It is the analysis half of the compiler:
// the code generator renders what this package extracts.
package logic

import (
	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

// UnsupportedFeature flags a formula construct the compiler detects
// but cannot translate. Extraction continues past it.
type UnsupportedFeature struct {
	Cell        string
	Function    string
	Kind        string
	Explanation string
	Suggestion  string
}

// CellFormula is one parsed formula with its owning cell.
type CellFormula struct {
	Addr   string
	Raw    string
	Parsed *formula.Parsed
}

// CalculationUnit groups one cluster's formulas in evaluation order.
type CalculationUnit struct {
	ClusterID  int
	Name       string
	Formulas   []CellFormula
	Inputs     []string
	Outputs    []string
	Pseudocode string
}

// TypedField is an address with its inferred value type.
type TypedField struct {
	Addr string
	Type formula.Type
}

// TestCase pins one evaluation of a calculation unit. Inputs and
// Expected are keyed by cell address.
type TestCase struct {
	Name     string
	Unit     string
	Inputs   map[string]formula.Value
	Expected map[string]formula.Value
}

// BusinessRule is the extracted description of one calculation unit.
type BusinessRule struct {
	ID          string
	Name        string
	Description string
	Inputs      []TypedField
	Outputs     []TypedField
	Pseudocode  string
	Constraints []string
	TestCases   []TestCase
}

// Result is the output of logic extraction for one workbook.
type Result struct {
	Rules       []BusinessRule
	Units       []CalculationUnit
	Unsupported []UnsupportedFeature
	Tests       []TestCase
}

// UnsupportedFor returns the unsupported features recorded for a cell.
func (r *Result) UnsupportedFor(addr string) []UnsupportedFeature {
	var out []UnsupportedFeature
	for _, u := range r.Unsupported {
		if u.Cell == addr {
			out = append(out, u)
		}
	}
	return out
}
