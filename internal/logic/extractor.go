package logic

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapsheet/internal/classifier"
	"github.com/leapstack-labs/leapsheet/internal/depgraph"
	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

// dynamicRefFuncs resolve their target at runtime, so the dependency
// graph cannot see through them and translation would be unsound.
var dynamicRefFuncs = map[string]string{
	"INDIRECT": "builds a cell reference from a string at evaluation time",
	"OFFSET":   "shifts a reference by a computed row/column delta",
	"ADDRESS":  "constructs an address string from computed coordinates",
}

// Extractor parses formulas, infers types, and synthesizes tests.
type Extractor struct {
	rangeLimit int
	log        *slog.Logger
}

// New returns an Extractor. rangeLimit caps range expansion during
// evaluation and must match the cap used when the graph was built.
func New(rangeLimit int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{rangeLimit: rangeLimit, log: logger}
}

// Extract runs logic extraction over a classified workbook and its
// dependency graph. A formula that fails to parse degrades to an empty
// parse, never aborts the run.
func (e *Extractor) Extract(res *classifier.Result, g *depgraph.Graph) *Result {
	out := &Result{}

	parsed := e.parseAll(res, g)
	out.Unsupported = scanUnsupported(parsed)

	topoIndex := make(map[string]int, len(g.ExecutionOrder))
	for i, addr := range g.ExecutionOrder {
		topoIndex[addr] = i
	}
	circular := make(map[string]bool)
	for _, group := range g.CircularRefs {
		for _, addr := range group {
			circular[addr] = true
		}
	}

	for _, cl := range g.Clusters {
		unit, ok := e.buildUnit(cl, parsed, topoIndex, circular)
		if !ok {
			continue
		}
		out.Units = append(out.Units, unit)

		rule := e.buildRule(cl, unit, out)
		out.Rules = append(out.Rules, rule)
		out.Tests = append(out.Tests, rule.TestCases...)
	}
	e.log.Debug("logic extraction complete",
		"rules", len(out.Rules),
		"tests", len(out.Tests),
		"unsupported", len(out.Unsupported))
	return out
}

// parseAll parses every formula node once, keyed by address.
func (e *Extractor) parseAll(res *classifier.Result, g *depgraph.Graph) map[string]*formula.Parsed {
	parsed := make(map[string]*formula.Parsed)
	for _, n := range g.Nodes() {
		if n.Formula == "" {
			continue
		}
		sheet, _, _ := strings.Cut(n.Addr, "!")
		p, err := formula.Parse(n.Formula, formula.Context{
			DefaultSheet: sheet,
			NamedRanges:  res.NamedRanges,
		})
		if err != nil {
			e.log.Debug("formula did not parse", "cell", n.Addr, "err", err)
			continue
		}
		parsed[n.Addr] = p
	}
	return parsed
}

func scanUnsupported(parsed map[string]*formula.Parsed) []UnsupportedFeature {
	addrs := make([]string, 0, len(parsed))
	for addr := range parsed {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var out []UnsupportedFeature
	for _, addr := range addrs {
		for _, fn := range parsed[addr].Functions {
			reason, ok := dynamicRefFuncs[fn]
			if !ok {
				continue
			}
			out = append(out, UnsupportedFeature{
				Cell:        addr,
				Function:    fn,
				Kind:        "dynamic_reference",
				Explanation: fmt.Sprintf("%s %s, which cannot be resolved statically", fn, reason),
				Suggestion:  "replace with a direct reference to a fixed cell or range",
			})
		}
	}
	return out
}

// buildUnit assembles one cluster's formulas in topological order.
// Cells caught in a cycle are left out; a cluster with no orderable
// formulas produces no unit.
func (e *Extractor) buildUnit(cl depgraph.Cluster, parsed map[string]*formula.Parsed, topoIndex map[string]int, circular map[string]bool) (CalculationUnit, bool) {
	var formulas []CellFormula
	for _, addr := range cl.Members {
		p, ok := parsed[addr]
		if !ok || circular[addr] {
			continue
		}
		formulas = append(formulas, CellFormula{Addr: addr, Raw: p.Raw, Parsed: p})
	}
	if len(formulas) == 0 {
		return CalculationUnit{}, false
	}
	sort.Slice(formulas, func(i, j int) bool {
		return topoIndex[formulas[i].Addr] < topoIndex[formulas[j].Addr]
	})

	lines := make([]string, len(formulas))
	for i, f := range formulas {
		lines[i] = f.Addr + " = " + f.Raw
	}

	return CalculationUnit{
		ClusterID:  cl.ID,
		Name:       unitName(cl),
		Formulas:   formulas,
		Inputs:     cl.Inputs,
		Outputs:    cl.Outputs,
		Pseudocode: strings.Join(lines, "\n"),
	}, true
}

func unitName(cl depgraph.Cluster) string {
	purpose := cl.SemanticPurpose
	if purpose == "" {
		purpose = "calculation"
	}
	return fmt.Sprintf("%s_%d", purpose, cl.ID)
}

func (e *Extractor) buildRule(cl depgraph.Cluster, unit CalculationUnit, out *Result) BusinessRule {
	inf := formula.NewInference()
	for _, f := range unit.Formulas {
		inf.Observe(f.Addr, f.Parsed.Root)
	}

	inputs := make([]TypedField, len(unit.Inputs))
	for i, addr := range unit.Inputs {
		inputs[i] = TypedField{Addr: addr, Type: inf.ReferenceType(addr)}
	}
	outputs := make([]TypedField, len(unit.Outputs))
	for i, addr := range unit.Outputs {
		outputs[i] = TypedField{Addr: addr, Type: inf.ResultType(addr)}
	}

	var constraints []string
	for _, f := range unit.Formulas {
		for _, u := range out.UnsupportedFor(f.Addr) {
			constraints = append(constraints, fmt.Sprintf("%s uses %s: %s", u.Cell, u.Function, u.Explanation))
		}
	}
	if skipped := len(cl.Intermediates) + len(cl.Outputs) - len(unit.Formulas); skipped > 0 {
		constraints = append(constraints, fmt.Sprintf("%d formula cell(s) in a circular reference were excluded", skipped))
	}

	rule := BusinessRule{
		ID:   uuid.NewString(),
		Name: unit.Name,
		Description: fmt.Sprintf("Computes %d output(s) from %d input(s) through %d formula(s)%s",
			len(outputs), len(inputs), len(unit.Formulas), purposeSuffix(cl.SemanticPurpose)),
		Inputs:      inputs,
		Outputs:     outputs,
		Pseudocode:  unit.Pseudocode,
		Constraints: constraints,
	}
	rule.TestCases = e.synthesizeTests(unit)
	return rule
}

func purposeSuffix(purpose string) string {
	if purpose == "" {
		return ""
	}
	return ", categorized as " + purpose
}

// synthesizeTests produces seed-based regression cases: all inputs 0,
// all inputs 1, and all inputs set to the first non-zero literal found
// in the unit's formulas, when one exists. Expected values come from
// evaluating the formulas in order.
func (e *Extractor) synthesizeTests(unit CalculationUnit) []TestCase {
	type seedCase struct {
		name  string
		value float64
	}
	seeds := []seedCase{
		{"all_zero", 0},
		{"all_one", 1},
	}
	if lit, ok := firstNonZeroLiteral(unit); ok {
		seeds = append(seeds, seedCase{fmt.Sprintf("literal_%v", lit), lit})
	}

	var tests []TestCase
	for _, seed := range seeds {
		tc := e.runSeed(unit, seed.name, seed.value)
		tests = append(tests, tc)
	}
	return tests
}

func firstNonZeroLiteral(unit CalculationUnit) (float64, bool) {
	for _, f := range unit.Formulas {
		for _, lit := range f.Parsed.Literals {
			if lit != 0 {
				return lit, true
			}
		}
	}
	return 0, false
}

func (e *Extractor) runSeed(unit CalculationUnit, name string, seed float64) TestCase {
	inputs := make(map[string]formula.Value, len(unit.Inputs))
	src := make(formula.MapSource, len(unit.Inputs)+len(unit.Formulas))
	for _, addr := range unit.Inputs {
		inputs[addr] = seed
		src[addr] = seed
	}

	ev := formula.NewEvaluator(src, e.rangeLimit)
	for _, f := range unit.Formulas {
		src[f.Addr] = ev.Eval(f.Parsed.Root)
	}

	expected := make(map[string]formula.Value, len(unit.Outputs))
	for _, addr := range unit.Outputs {
		expected[addr] = src[addr]
	}
	if len(expected) == 0 && len(unit.Formulas) > 0 {
		last := unit.Formulas[len(unit.Formulas)-1].Addr
		expected[last] = src[last]
	}

	return TestCase{
		Name:     unit.Name + "_" + name,
		Unit:     unit.Name,
		Inputs:   inputs,
		Expected: expected,
	}
}
