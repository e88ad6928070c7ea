package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/classifier"
	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/workbook"
)

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <workbook>",
		Short: "Show cell role classification for a workbook",
		Long: `Classify every non-empty cell in a workbook and print the
assigned roles without running the rest of the pipeline.`,
		Example: `  # Show classified cells
  leapsheet classify budget.xlsx

  # Full result as JSON
  leapsheet classify budget.xlsx --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args[0])
		},
	}
	return cmd
}

func runClassify(cmd *cobra.Command, path string) error {
	cfg := GetConfig(cmd.Context())
	r := GetRenderer(cmd.Context())

	wb, err := workbook.Read(path)
	if err != nil {
		return fmt.Errorf("reading workbook: %w", err)
	}
	res := classifier.New(cfg.Heuristics, GetLogger(cmd.Context())).Classify(wb)

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(classifyReport(res))
	}

	counts := res.CountByRole()
	r.Printf("%s: %d cells", path, len(res.Cells))
	if res.HasMacros {
		r.Printf(" (workbook contains macros: %v)", res.MacroNames)
	}
	r.Println()
	r.Printf("  input=%d intermediate=%d output=%d static=%d label=%d structural=%d\n\n",
		counts[classifier.RoleInput], counts[classifier.RoleIntermediate],
		counts[classifier.RoleOutput], counts[classifier.RoleStatic],
		counts[classifier.RoleLabel], counts[classifier.RoleStructural])

	var rows [][]string
	for _, addr := range res.Order {
		cc := res.Cells[addr]
		content := cc.Value
		if cc.IsFormula {
			content = cc.Formula
		}
		if len(content) > 48 {
			content = content[:45] + "..."
		}
		rows = append(rows, []string{addr, string(cc.Role), content, fmt.Sprintf("%d", len(cc.ReferencedBy))})
	}
	r.Table([]string{"Cell", "Role", "Content", "Referenced By"}, rows)
	return nil
}

type cellReport struct {
	Addr         string   `json:"addr"`
	Role         string   `json:"role"`
	Formula      string   `json:"formula,omitempty"`
	Value        string   `json:"value,omitempty"`
	References   []string `json:"references,omitempty"`
	ReferencedBy []string `json:"referenced_by,omitempty"`
	Options      []string `json:"options,omitempty"`
}

func classifyReport(res *classifier.Result) []cellReport {
	reports := make([]cellReport, 0, len(res.Order))
	for _, addr := range res.Order {
		cc := res.Cells[addr]
		reports = append(reports, cellReport{
			Addr:         cc.Addr,
			Role:         string(cc.Role),
			Formula:      cc.Formula,
			Value:        cc.Value,
			References:   cc.References,
			ReferencedBy: cc.ReferencedBy,
			Options:      cc.ValueOptions,
		})
	}
	return reports
}
