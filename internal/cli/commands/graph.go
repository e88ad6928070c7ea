package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/classifier"
	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/depgraph"
	"github.com/leapstack-labs/leapsheet/internal/workbook"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <workbook>",
		Short: "Show the formula dependency graph",
		Long: `Build and display the cell dependency graph: execution order,
calculation clusters, and circular references.`,
		Example: `  # Show the dependency graph
  leapsheet graph budget.xlsx

  # Output as JSON
  leapsheet graph budget.xlsx --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args[0])
		},
	}
	return cmd
}

func runGraph(cmd *cobra.Command, path string) error {
	cfg := GetConfig(cmd.Context())
	r := GetRenderer(cmd.Context())

	wb, err := workbook.Read(path)
	if err != nil {
		return fmt.Errorf("reading workbook: %w", err)
	}
	res := classifier.New(cfg.Heuristics, GetLogger(cmd.Context())).Classify(wb)
	g := depgraph.Build(res)

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(graphReport(g))
	}

	r.Printf("%d nodes, %d edges, %d clusters\n\n", g.NodeCount(), g.EdgeCount(), len(g.Clusters))

	var rows [][]string
	for _, cl := range g.Clusters {
		purpose := cl.SemanticPurpose
		if purpose == "" {
			purpose = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", cl.ID),
			fmt.Sprintf("%d", len(cl.Members)),
			fmt.Sprintf("%d", len(cl.Inputs)),
			fmt.Sprintf("%d", len(cl.Intermediates)),
			fmt.Sprintf("%d", len(cl.Outputs)),
			purpose,
		})
	}
	r.Table([]string{"Cluster", "Cells", "Inputs", "Intermediates", "Outputs", "Purpose"}, rows)

	r.Printf("\nexecution order: %s\n", strings.Join(g.ExecutionOrder, " -> "))
	for _, cycle := range g.CircularRefs {
		r.Errorf("circular reference: %s\n", strings.Join(cycle, ", "))
	}
	return nil
}

type graphNodeReport struct {
	Addr    string `json:"addr"`
	Role    string `json:"role"`
	InDeg   int    `json:"in_degree"`
	OutDeg  int    `json:"out_degree"`
	Depth   int    `json:"depth"`
	Cluster int    `json:"cluster"`
	HasForm bool   `json:"has_formula"`
}

type graphBody struct {
	Nodes          []graphNodeReport  `json:"nodes"`
	ExecutionOrder []string           `json:"execution_order"`
	Clusters       []depgraph.Cluster `json:"clusters"`
	CircularRefs   [][]string         `json:"circular_refs"`
}

func graphReport(g *depgraph.Graph) graphBody {
	body := graphBody{
		ExecutionOrder: g.ExecutionOrder,
		Clusters:       g.Clusters,
		CircularRefs:   g.CircularRefs,
	}
	for _, n := range g.Nodes() {
		body.Nodes = append(body.Nodes, graphNodeReport{
			Addr:    n.Addr,
			Role:    string(n.Role),
			InDeg:   n.InDegree,
			OutDeg:  n.OutDegree,
			Depth:   n.Depth,
			Cluster: n.Cluster,
			HasForm: n.Formula != "",
		})
	}
	return body
}
