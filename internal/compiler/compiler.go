// Package compiler wires the pipeline stages together: read the
// workbook, classify cells, build the dependency graph, extract logic,
// and generate the project. Each stage consumes the previous stage's
// immutable result.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapsheet/internal/classifier"
	"github.com/leapstack-labs/leapsheet/internal/codegen"
	"github.com/leapstack-labs/leapsheet/internal/config"
	"github.com/leapstack-labs/leapsheet/internal/depgraph"
	"github.com/leapstack-labs/leapsheet/internal/logic"
	"github.com/leapstack-labs/leapsheet/internal/state"
	"github.com/leapstack-labs/leapsheet/internal/workbook"
)

// Result carries every stage's output for one workbook.
type Result struct {
	Workbook       *workbook.Data
	Classification *classifier.Result
	Graph          *depgraph.Graph
	Logic          *logic.Result
	Project        *codegen.Project
	Duration       time.Duration
}

// Compiler runs the full pipeline.
type Compiler struct {
	cfg    config.Config
	logger *slog.Logger
	store  *state.Store
}

// Config holds compiler construction options.
type Config struct {
	// Pipeline is the compile configuration with defaults applied.
	Pipeline config.Config
	// Logger is the structured logger (discard if nil).
	Logger *slog.Logger
	// Store records run history when non-nil.
	Store *state.Store
}

// New creates a Compiler.
func New(cfg Config) *Compiler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pipeline := cfg.Pipeline
	pipeline.ApplyDefaults()
	return &Compiler{cfg: pipeline, logger: logger, store: cfg.Store}
}

// Compile runs every stage over one workbook file. Only a missing or
// unreadable workbook is fatal; everything downstream degrades to
// typed results and warnings.
func (c *Compiler) Compile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	c.logger.Info("compiling workbook", "path", path)

	wb, err := workbook.Read(path)
	if err != nil {
		c.recordRun(ctx, path, start, nil, err)
		return nil, fmt.Errorf("reading workbook: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cls := classifier.New(c.cfg.Heuristics, c.logger).Classify(wb)
	graph := depgraph.Build(cls)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lr := logic.New(c.cfg.Heuristics.RangeExpandLimit, c.logger).Extract(cls, graph)
	project := codegen.NewGenerator(c.cfg.Heuristics.RangeExpandLimit, c.logger).
		Generate(cls, lr, c.projectName(path))

	if c.cfg.CheckSyntax {
		project.Warnings = append(project.Warnings, codegen.CheckSyntax(project)...)
	}

	res := &Result{
		Workbook:       wb,
		Classification: cls,
		Graph:          graph,
		Logic:          lr,
		Project:        project,
		Duration:       time.Since(start),
	}
	c.recordRun(ctx, path, start, res, nil)
	c.logger.Info("compile finished",
		"path", path,
		"cells", len(cls.Cells),
		"clusters", len(graph.Clusters),
		"rules", len(lr.Rules),
		"warnings", len(project.Warnings),
		"duration", res.Duration)
	return res, nil
}

// CompileAll compiles several workbooks in parallel. The first fatal
// error cancels the remaining compilations.
func (c *Compiler) CompileAll(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			res, err := c.Compile(ctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Compiler) projectName(path string) string {
	if c.cfg.ProjectName != "" {
		return c.cfg.ProjectName
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c *Compiler) recordRun(ctx context.Context, path string, start time.Time, res *Result, runErr error) {
	if c.store == nil {
		return
	}
	run := state.Run{
		Workbook:  path,
		StartedAt: start,
		Duration:  time.Since(start),
		Status:    state.StatusSucceeded,
	}
	if runErr != nil {
		run.Status = state.StatusFailed
		run.Error = runErr.Error()
	} else if res != nil {
		run.Cells = len(res.Classification.Cells)
		run.Rules = len(res.Logic.Rules)
		run.Warnings = len(res.Project.Warnings)
	}
	if err := c.store.RecordRun(ctx, run); err != nil {
		c.logger.Warn("recording run history failed", "err", err)
	}
}
