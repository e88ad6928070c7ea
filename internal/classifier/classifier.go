package classifier

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsheet/internal/config"
	"github.com/leapstack-labs/leapsheet/internal/workbook"
	"github.com/leapstack-labs/leapsheet/pkg/cell"
	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

// Classifier assigns roles to workbook cells.
type Classifier struct {
	heur config.Heuristics
	log  *slog.Logger
}

// New returns a Classifier using the given heuristics. A nil logger
// discards log output.
func New(heur config.Heuristics, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classifier{heur: heur, log: logger}
}

type rowStat struct {
	populated int
	text      int
	numeric   int
}

// Classify runs the full classification over one workbook. Malformed
// formulas never abort the run; their references simply come out empty.
func (c *Classifier) Classify(wb *workbook.Data) *Result {
	res := &Result{
		Cells:       make(map[string]*Cell),
		NamedRanges: make(map[string]string),
		HasMacros:   wb.HasMacros,
		MacroNames:  wb.MacroNames,
	}
	for _, nr := range wb.NamedRanges {
		res.NamedRanges[nr.Name] = nr.RefersTo
	}

	addrs := make(map[string]cell.Address)
	stats := make(map[string]map[int]*rowStat) // sheet -> row -> stats
	anchors := make(map[string]struct{})       // merged-region anchors
	maxPopulated := make(map[string]int)       // sheet -> widest row

	for _, sheet := range wb.Sheets {
		stats[sheet.Name] = make(map[int]*rowStat)
		for _, mr := range sheet.MergedRanges {
			anchors[sheet.Name+"!"+strings.ReplaceAll(mr.Anchor, "$", "")] = struct{}{}
		}
		for _, wc := range sheet.Cells {
			addr, err := cell.ParseWith(wc.Local, sheet.Name)
			if err != nil {
				c.log.Warn("skipping unparsable cell address", "sheet", sheet.Name, "cell", wc.Local)
				continue
			}
			full := addr.String()
			res.Cells[full] = &Cell{
				Addr:         full,
				Role:         RoleStatic,
				Formula:      wc.Formula,
				Value:        wc.Value,
				IsFormula:    wc.IsFormula,
				NumberFormat: wc.NumberFormat,
				Bold:         wc.Bold,
				Italic:       wc.Italic,
			}
			res.Order = append(res.Order, full)
			addrs[full] = addr

			st := stats[sheet.Name][addr.Row]
			if st == nil {
				st = &rowStat{}
				stats[sheet.Name][addr.Row] = st
			}
			st.populated++
			if !wc.IsFormula && strings.TrimSpace(wc.Value) != "" {
				if _, ok := formula.ParseNumericText(wc.Value); ok {
					st.numeric++
				} else {
					st.text++
				}
			}
			if st.populated > maxPopulated[sheet.Name] {
				maxPopulated[sheet.Name] = st.populated
			}
		}
		c.collectSheetRules(res, sheet)
	}

	c.linkReferences(res, addrs)
	c.assignRoles(res)
	c.promoteStructural(res, addrs, stats, anchors, maxPopulated)
	c.promoteLabels(res, addrs)
	c.resolveValidationOptions(res, wb)

	counts := res.CountByRole()
	c.log.Debug("classification complete",
		"cells", len(res.Cells),
		"inputs", counts[RoleInput],
		"intermediates", counts[RoleIntermediate],
		"outputs", counts[RoleOutput])
	return res
}

func (c *Classifier) collectSheetRules(res *Result, sheet *workbook.Sheet) {
	for _, v := range sheet.Validations {
		res.Validations = append(res.Validations, SheetValidation{Sheet: sheet.Name, Validation: v})
	}
	for _, cf := range sheet.ConditionalFormats {
		res.ConditionalFormats = append(res.ConditionalFormats, SheetConditionalFormat{Sheet: sheet.Name, ConditionalFormat: cf})
	}
	for _, pt := range sheet.PivotTables {
		res.PivotTables = append(res.PivotTables, SheetPivotTable{Sheet: sheet.Name, PivotTable: pt})
	}
}

// linkReferences extracts every formula cell's reference set and builds
// the inverse referenced-by sets.
func (c *Classifier) linkReferences(res *Result, addrs map[string]cell.Address) {
	backrefs := make(map[string][]string)
	for _, full := range res.Order {
		cc := res.Cells[full]
		if !cc.IsFormula || cc.Formula == "" {
			continue
		}
		cc.References = ExtractReferences(cc.Formula, addrs[full].Sheet, res.NamedRanges, c.heur.RangeExpandLimit)
		for _, ref := range cc.References {
			backrefs[ref] = append(backrefs[ref], full)
		}
	}
	for ref, sources := range backrefs {
		if cc, ok := res.Cells[ref]; ok {
			sort.Strings(sources)
			cc.ReferencedBy = sources
		}
	}
}

func (c *Classifier) assignRoles(res *Result) {
	for _, cc := range res.Cells {
		switch {
		case cc.IsFormula && len(cc.ReferencedBy) > 0:
			cc.Role = RoleIntermediate
		case cc.IsFormula:
			cc.Role = RoleOutput
		case len(cc.ReferencedBy) > 0:
			cc.Role = RoleInput
		default:
			cc.Role = RoleStatic
		}
	}
}

// promoteStructural upgrades Static cells that look like headings or
// layout scaffolding.
func (c *Classifier) promoteStructural(res *Result, addrs map[string]cell.Address, stats map[string]map[int]*rowStat, anchors map[string]struct{}, maxPopulated map[string]int) {
	for _, full := range res.Order {
		cc := res.Cells[full]
		if cc.Role != RoleStatic {
			continue
		}
		addr := addrs[full]
		if _, ok := anchors[full]; ok {
			cc.Role = RoleStructural
			continue
		}
		if cc.Bold && !c.heur.DisableBoldPromotion {
			cc.Role = RoleStructural
			continue
		}
		st := stats[addr.Sheet][addr.Row]
		if st != nil {
			if st.populated <= c.heur.SparseRowMaxCells {
				cc.Role = RoleStructural
				continue
			}
			if st.text >= c.heur.TextDominantMinText && st.numeric == 0 {
				cc.Role = RoleStructural
				continue
			}
			if widest := maxPopulated[addr.Sheet]; widest > 0 {
				popRatio := float64(st.populated) / float64(widest)
				textFraction := float64(st.text) / float64(st.populated)
				if popRatio >= c.heur.DenseRowPopulationRatio && textFraction > c.heur.DenseRowTextFraction {
					cc.Role = RoleStructural
					continue
				}
			}
		}
		if c.isHeadingText(cc.Value) {
			cc.Role = RoleStructural
		}
	}
}

// promoteLabels upgrades remaining Static cells that sit next to a
// value cell.
func (c *Classifier) promoteLabels(res *Result, addrs map[string]cell.Address) {
	for _, full := range res.Order {
		cc := res.Cells[full]
		if cc.Role != RoleStatic {
			continue
		}
		addr := addrs[full]
		for _, n := range []cell.Address{addr.Left(), addr.Right(), addr.Above(), addr.Below()} {
			if n.Col < 1 || n.Row < 1 {
				continue
			}
			if neighbor, ok := res.Cells[n.String()]; ok && neighbor.IsValue() {
				cc.Role = RoleLabel
				break
			}
		}
	}
}

func (c *Classifier) isHeadingText(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	if strings.HasSuffix(t, ":") {
		return true
	}
	if len([]rune(t)) >= c.heur.HeadingMinUppercaseLen &&
		t == strings.ToUpper(t) && t != strings.ToLower(t) {
		return true
	}
	lower := strings.ToLower(t)
	for _, prefix := range c.heur.HeadingPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// resolveValidationOptions turns list-type validations into literal
// option sets on every covered cell. Options come from an inline comma
// list or by reading the referenced range's values.
func (c *Classifier) resolveValidationOptions(res *Result, wb *workbook.Data) {
	for _, sv := range res.Validations {
		if !strings.EqualFold(sv.Type, "list") {
			continue
		}
		options := c.listOptions(res, sv.Sheet, sv.Formula1)
		if len(options) == 0 {
			continue
		}
		for _, ref := range sv.Ranges {
			for _, addr := range expandTarget(ref, sv.Sheet, c.heur.RangeExpandLimit) {
				if cc, ok := res.Cells[addr]; ok {
					cc.ValueOptions = options
				}
			}
		}
	}
}

func (c *Classifier) listOptions(res *Result, sheet, source string) []string {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}
	clean := strings.ReplaceAll(source, "$", "")
	if cell.IsRangeRef(clean) || strings.Contains(clean, "!") || cell.IsLocalRef(clean) {
		var options []string
		for _, addr := range expandTarget(clean, sheet, c.heur.RangeExpandLimit) {
			if cc, ok := res.Cells[addr]; ok && strings.TrimSpace(cc.Value) != "" {
				options = append(options, cc.Value)
			}
		}
		return options
	}
	parts := strings.Split(source, ",")
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			options = append(options, p)
		}
	}
	return options
}
