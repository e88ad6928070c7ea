package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/logic"
)

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "rules <workbook>",
		Short: "Extract business rules from a workbook",
		Long: `Run the pipeline through logic extraction and display the
extracted business rules: typed inputs and outputs, pseudocode,
constraints, and synthesized test cases.`,
		Example: `  # Show extracted rules
  leapsheet rules budget.xlsx

  # Export a YAML rules manifest
  leapsheet rules budget.xlsx --manifest rules.yaml

  # Output as JSON
  leapsheet rules budget.xlsx --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, args[0], manifestPath)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Write a YAML rules manifest to this path")
	return cmd
}

type ruleManifest struct {
	Workbook    string                     `yaml:"workbook" json:"workbook"`
	Rules       []ruleEntry                `yaml:"rules" json:"rules"`
	Unsupported []logic.UnsupportedFeature `yaml:"unsupported,omitempty" json:"unsupported,omitempty"`
}

type ruleEntry struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Inputs      map[string]string `yaml:"inputs" json:"inputs"`
	Outputs     map[string]string `yaml:"outputs" json:"outputs"`
	Pseudocode  string            `yaml:"pseudocode" json:"pseudocode"`
	Constraints []string          `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Tests       int               `yaml:"tests" json:"tests"`
}

func runRules(cmd *cobra.Command, path, manifestPath string) error {
	c, cleanup, err := newCompiler(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := c.Compile(cmd.Context(), path)
	if err != nil {
		return err
	}

	manifest := buildManifest(path, res.Logic)
	if manifestPath != "" {
		raw, err := yaml.Marshal(manifest)
		if err != nil {
			return fmt.Errorf("marshaling manifest: %w", err)
		}
		if err := os.WriteFile(manifestPath, raw, 0o644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}
	}

	r := GetRenderer(cmd.Context())
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(manifest)
	}

	var rows [][]string
	for _, rule := range manifest.Rules {
		rows = append(rows, []string{
			rule.Name,
			fmt.Sprintf("%d", len(rule.Inputs)),
			fmt.Sprintf("%d", len(rule.Outputs)),
			fmt.Sprintf("%d", rule.Tests),
			fmt.Sprintf("%d", len(rule.Constraints)),
		})
	}
	r.Table([]string{"Rule", "Inputs", "Outputs", "Tests", "Constraints"}, rows)

	for _, u := range manifest.Unsupported {
		r.Errorf("unsupported: %s %s: %s\n", u.Cell, u.Function, u.Explanation)
	}
	if manifestPath != "" {
		r.Printf("\nmanifest written to %s\n", manifestPath)
	}
	return nil
}

func buildManifest(path string, lr *logic.Result) ruleManifest {
	manifest := ruleManifest{Workbook: path, Unsupported: lr.Unsupported}
	for _, rule := range lr.Rules {
		entry := ruleEntry{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Description,
			Inputs:      make(map[string]string, len(rule.Inputs)),
			Outputs:     make(map[string]string, len(rule.Outputs)),
			Pseudocode:  rule.Pseudocode,
			Constraints: rule.Constraints,
			Tests:       len(rule.TestCases),
		}
		for _, tf := range rule.Inputs {
			entry.Inputs[tf.Addr] = string(tf.Type)
		}
		for _, tf := range rule.Outputs {
			entry.Outputs[tf.Addr] = string(tf.Type)
		}
		manifest.Rules = append(manifest.Rules, entry)
	}
	return manifest
}
