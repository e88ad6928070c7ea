package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// CheckSyntax runs every generated TypeScript file through a transform
// pass and returns one warning per syntax error. Generation output is
// not modified; a broken file stays in the project so the caller can
// inspect it.
func CheckSyntax(p *Project) []string {
	paths := make([]string, 0, len(p.Files))
	for path := range p.Files {
		if strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".tsx") {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	var warnings []string
	for _, path := range paths {
		loader := api.LoaderTS
		if strings.HasSuffix(path, ".tsx") {
			loader = api.LoaderTSX
		}
		result := api.Transform(p.Files[path], api.TransformOptions{
			Loader:   loader,
			Target:   api.ES2020,
			LogLevel: api.LogLevelSilent,
		})
		for _, msg := range result.Errors {
			loc := ""
			if msg.Location != nil {
				loc = fmt.Sprintf(":%d:%d", msg.Location.Line, msg.Location.Column)
			}
			warnings = append(warnings, fmt.Sprintf("%s%s: %s", path, loc, msg.Text))
		}
	}
	return warnings
}
