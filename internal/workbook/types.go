// Package workbook reads spreadsheet files into the plain data structures
// the compiler pipeline consumes: per-sheet non-empty cells with formula and
// formatting facts, plus workbook-level merged regions, named ranges,
// validations, conditional formats, pivot definitions and macro payloads.
package workbook

// Data is everything extracted from one workbook file.
type Data struct {
	Name        string
	Sheets      []*Sheet
	NamedRanges []NamedRange
	HasMacros   bool
	MacroNames  []string
}

// Sheet holds the non-empty cells of one worksheet in reading order, plus
// the sheet-scoped structures the classifier needs.
type Sheet struct {
	Name               string
	Cells              []*Cell
	MergedRanges       []MergedRange
	Validations        []Validation
	ConditionalFormats []ConditionalFormat
	PivotTables        []PivotTable
}

// Cell is one non-empty cell. Local is the within-sheet reference ("B12");
// the canonical qualified address is Sheet.Name + "!" + Local.
type Cell struct {
	Local        string
	Value        string
	Formula      string
	IsFormula    bool
	NumberFormat string
	Bold         bool
	Italic       bool
	FontColor    string
	FillColor    string
}

// MergedRange is a merged region; Anchor is its top-left cell.
type MergedRange struct {
	Ref    string // local range like "A1:C1"
	Anchor string // local address like "A1"
}

// NamedRange maps a defined name to its destination.
type NamedRange struct {
	Name     string
	RefersTo string // "Sheet1!$A$1:$A$10" as stored in the workbook
	Scope    string // sheet name for sheet-scoped names, "" for workbook scope
}

// Validation is one data-validation rule.
type Validation struct {
	Ranges     []string // local ranges the rule applies to
	Type       string   // "list", "whole", "decimal", ...
	Operator   string
	Formula1   string
	Formula2   string
	AllowBlank bool
}

// ConditionalFormat is one conditional-formatting rule, reduced to the
// facts downstream consumers care about.
type ConditionalFormat struct {
	Range    string
	RuleType string
	Criteria string
	Value    string
}

// PivotTable is a pivot definition summary.
type PivotTable struct {
	Name         string
	SourceRange  string
	RowFields    []string
	ColumnFields []string
	ValueFields  []string
	FilterFields []string
}
