package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "compile <workbook>...",
		Short: "Compile workbooks into generated projects",
		Long: `Compile one or more spreadsheet workbooks into generated
TypeScript projects under the output directory.

Multiple workbooks compile in parallel. With --watch, the command
stays running and recompiles a workbook whenever its file changes.`,
		Example: `  # Compile a workbook
  leapsheet compile budget.xlsx

  # Compile several workbooks in parallel
  leapsheet compile q1.xlsx q2.xlsx q3.xlsx

  # Recompile on change
  leapsheet compile budget.xlsx --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runWatch(cmd, args)
			}
			return runCompile(cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Recompile when a workbook file changes")
	return cmd
}

func runCompile(cmd *cobra.Command, paths []string) error {
	c, cleanup, err := newCompiler(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := c.CompileAll(cmd.Context(), paths)
	if err != nil {
		return err
	}

	cfg := GetConfig(cmd.Context())
	r := GetRenderer(cmd.Context())
	for i, res := range results {
		dir := filepath.Join(cfg.OutDir, res.Project.Name)
		if err := res.Project.WriteTo(dir); err != nil {
			return fmt.Errorf("writing project for %s: %w", paths[i], err)
		}
		r.Printf("%s -> %s (%d files, %d rules, %d warnings, %s)\n",
			paths[i], dir, len(res.Project.Files), len(res.Logic.Rules),
			len(res.Project.Warnings), res.Duration.Round(time.Millisecond))
		for _, w := range res.Project.Warnings {
			r.Errorf("  warning: %s\n", w)
		}
	}
	return nil
}

// runWatch recompiles a workbook whenever its file changes. Events are
// debounced because editors fire several writes per save.
func runWatch(cmd *cobra.Command, paths []string) error {
	if err := runCompile(cmd, paths); err != nil {
		GetRenderer(cmd.Context()).Errorf("compile failed: %v\n", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]string) // absolute path -> original argument
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = p
		// Watch the directory: many editors replace the file on save,
		// which drops a watch registered on the file itself.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
		}
	}

	r := GetRenderer(cmd.Context())
	r.Println("watching for changes; press Ctrl-C to stop")

	var pending []string
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case err := <-watcher.Errors:
			r.Errorf("watch error: %v\n", err)
		case ev := <-watcher.Events:
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			orig, ok := watched[abs]
			if !ok {
				continue
			}
			pending = appendUnique(pending, orig)
			debounce.Reset(300 * time.Millisecond)
		case <-debounce.C:
			if len(pending) == 0 {
				continue
			}
			changed := pending
			pending = nil
			if err := runCompile(cmd, changed); err != nil {
				r.Errorf("compile failed: %v\n", err)
			}
		}
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
