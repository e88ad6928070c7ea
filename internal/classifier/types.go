// Package classifier assigns a role to every non-empty workbook cell
// and extracts the reference relationships between cells. Its output
// feeds the dependency graph builder.
package classifier

import (
	"github.com/leapstack-labs/leapsheet/internal/workbook"
)

// Role is the classified function of a cell.
type Role string

const (
	RoleInput        Role = "input"
	RoleIntermediate Role = "formula_intermediate"
	RoleOutput       Role = "formula_output"
	RoleStatic       Role = "static"
	RoleLabel        Role = "label"
	RoleStructural   Role = "structural"
)

// Cell is one classified cell. Built once during classification and
// read-only afterwards.
type Cell struct {
	Addr         string
	Role         Role
	Formula      string
	Value        string
	IsFormula    bool
	NumberFormat string
	Bold         bool
	Italic       bool

	// ValueOptions is the resolved option list when a list-type data
	// validation covers this cell. Nil otherwise.
	ValueOptions []string

	// References are the addresses this cell's formula reads, sorted.
	// Ranges above the expansion cap appear as a single range string.
	References []string

	// ReferencedBy are the formula cells that read this cell, sorted.
	ReferencedBy []string
}

// IsValue reports whether the cell participates in calculation as a
// value producer or consumer.
func (c *Cell) IsValue() bool {
	switch c.Role {
	case RoleInput, RoleIntermediate, RoleOutput:
		return true
	}
	return false
}

// Result is the full classification of one workbook.
type Result struct {
	// Cells is keyed by full address ("Sheet1!B2").
	Cells map[string]*Cell

	// Order lists cell addresses in sheet, row, column order so
	// downstream consumers can iterate deterministically.
	Order []string

	NamedRanges        map[string]string
	HasMacros          bool
	MacroNames         []string
	Validations        []SheetValidation
	ConditionalFormats []SheetConditionalFormat
	PivotTables        []SheetPivotTable
}

// SheetValidation is a data validation rule with its owning sheet.
type SheetValidation struct {
	Sheet string
	workbook.Validation
}

// SheetConditionalFormat is a conditional format rule with its sheet.
type SheetConditionalFormat struct {
	Sheet string
	workbook.ConditionalFormat
}

// SheetPivotTable is a pivot table definition with its sheet.
type SheetPivotTable struct {
	Sheet string
	workbook.PivotTable
}

// Cell returns the classified cell at addr, or nil.
func (r *Result) Cell(addr string) *Cell {
	return r.Cells[addr]
}

// CountByRole tallies cells per role.
func (r *Result) CountByRole() map[Role]int {
	counts := make(map[Role]int)
	for _, c := range r.Cells {
		counts[c.Role]++
	}
	return counts
}
