package compiler_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/leapstack-labs/leapsheet/internal/classifier"
	"github.com/leapstack-labs/leapsheet/internal/compiler"
	"github.com/leapstack-labs/leapsheet/internal/state"
)

// writeWorkbook builds the canonical three-cell chain: an input, an
// intermediate, and an output.
func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetCellValue("Sheet1", "B1", 5))
	require.NoError(t, f.SetCellFormula("Sheet1", "C1", "B1*2"))
	require.NoError(t, f.SetCellFormula("Sheet1", "D1", "C1+1"))

	path := filepath.Join(t.TempDir(), "model.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestCompileEndToEnd(t *testing.T) {
	c := compiler.New(compiler.Config{})
	res, err := c.Compile(context.Background(), writeWorkbook(t))
	require.NoError(t, err)

	assert.Equal(t, classifier.RoleInput, res.Classification.Cell("Sheet1!B1").Role)
	assert.Equal(t, classifier.RoleIntermediate, res.Classification.Cell("Sheet1!C1").Role)
	assert.Equal(t, classifier.RoleOutput, res.Classification.Cell("Sheet1!D1").Role)

	assert.Equal(t, 2, res.Graph.Node("Sheet1!D1").Depth)
	require.Len(t, res.Logic.Rules, 1)

	assert.Equal(t, "model", res.Project.Name)
	assert.Contains(t, res.Project.Files, "package.json")
	assert.Positive(t, res.Duration)
}

func TestCompileProjectNameOverride(t *testing.T) {
	cfg := compiler.Config{}
	cfg.Pipeline.ProjectName = "pricing-app"
	c := compiler.New(cfg)

	res, err := c.Compile(context.Background(), writeWorkbook(t))
	require.NoError(t, err)
	assert.Equal(t, "pricing-app", res.Project.Name)
}

func TestCompileMissingWorkbook(t *testing.T) {
	c := compiler.New(compiler.Config{})
	_, err := c.Compile(context.Background(), filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
}

func TestCompileRecordsRunHistory(t *testing.T) {
	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	c := compiler.New(compiler.Config{Store: store})
	ctx := context.Background()

	_, err = c.Compile(ctx, writeWorkbook(t))
	require.NoError(t, err)
	_, err = c.Compile(ctx, filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	statuses := map[string]int{}
	for _, r := range runs {
		statuses[r.Status]++
	}
	assert.Equal(t, 1, statuses[state.StatusSucceeded])
	assert.Equal(t, 1, statuses[state.StatusFailed])
}

func TestCompileAll(t *testing.T) {
	c := compiler.New(compiler.Config{})
	paths := []string{writeWorkbook(t), writeWorkbook(t)}

	results, err := c.CompileAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.NotNil(t, res.Project)
	}
}

func TestCompileCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := compiler.New(compiler.Config{})
	_, err := c.Compile(ctx, writeWorkbook(t))
	require.Error(t, err)
}
