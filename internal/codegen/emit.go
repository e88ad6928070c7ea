package codegen

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsheet/internal/classifier"
	"github.com/leapstack-labs/leapsheet/internal/logic"
	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

// Project is the generated application: relative file paths mapped to
// UTF-8 content, plus the artifacts callers inspect without reading
// the files back.
type Project struct {
	Name         string
	Files        map[string]string
	Dependencies []string
	Schema       string
	Tests        []logic.TestCase
	Warnings     []string
}

// WriteTo materializes the project under dir.
func (p *Project) WriteTo(dir string) error {
	for rel, content := range p.Files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

// Generator renders the final project.
type Generator struct {
	rangeLimit int
	log        *slog.Logger
}

// NewGenerator returns a Generator. rangeLimit must match the cap used
// by the graph builder so both treat the same ranges as opaque.
func NewGenerator(rangeLimit int, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{rangeLimit: rangeLimit, log: logger}
}

// Generate renders classified cells and extracted logic into a
// complete project. A formula that cannot be translated turns into a
// runtime-error stub inside its module; generation itself never fails.
func (g *Generator) Generate(res *classifier.Result, lr *logic.Result, name string) *Project {
	p := &Project{
		Name:  name,
		Files: make(map[string]string),
		Dependencies: []string{
			"react@^18.3.0",
			"react-dom@^18.3.0",
			"zod@^3.24.0",
		},
		Tests: lr.Tests,
	}

	inputs, outputs := DeriveFields(res, lr)
	tr := NewTranslator(res.NamedRanges, g.rangeLimit)

	for _, u := range lr.Unsupported {
		p.Warnings = append(p.Warnings, fmt.Sprintf("%s: %s (%s)", u.Cell, u.Explanation, u.Suggestion))
	}

	var unitNames []string
	for _, unit := range lr.Units {
		p.Files["src/calculations/"+unit.Name+".ts"] = g.emitUnit(tr, unit, p)
		unitNames = append(unitNames, unit.Name)
	}
	p.Files["src/calculations/index.ts"] = emitIndex(unitNames)
	p.Files["src/lib/helpers.ts"] = helpersTS
	p.Files["src/lib/schema.ts"] = emitZodSchema(inputs, outputs)
	p.Files["src/api/calculate.ts"] = emitAPI()
	p.Files["src/App.tsx"] = emitUI(p.Name, inputs, p.Warnings, unitNames)
	p.Files["tests/calculations.test.ts"] = emitTests(lr.Tests)
	p.Files["db/schema.sql"] = emitSQLSchema(inputs, outputs)
	p.Files["package.json"] = emitPackageJSON(p.Name, p.Dependencies)
	p.Files["tsconfig.json"] = tsconfigJSON

	p.Schema = p.Files["db/schema.sql"]
	g.log.Debug("project generated",
		"name", name,
		"files", len(p.Files),
		"units", len(unitNames),
		"warnings", len(p.Warnings))
	return p
}

// emitUnit renders one calculation module. Untranslatable formulas
// become fail() stubs and a project warning.
func (g *Generator) emitUnit(tr *Translator, unit logic.CalculationUnit, p *Project) string {
	var b strings.Builder
	b.WriteString("// Generated calculation module. Source formulas:\n")
	for _, line := range strings.Split(unit.Pseudocode, "\n") {
		b.WriteString("//   " + line + "\n")
	}
	b.WriteString("import * as fn from \"../lib/helpers\";\n")
	b.WriteString("import type { CellContext } from \"../lib/helpers\";\n\n")
	fmt.Fprintf(&b, "export function %s(inputs: CellContext): CellContext {\n", unit.Name)
	b.WriteString("  const ctx: CellContext = { ...inputs };\n")

	for _, f := range unit.Formulas {
		sheet, _, _ := strings.Cut(f.Addr, "!")
		expr, err := tr.Expression(f.Raw, sheet)
		if err != nil {
			p.Warnings = append(p.Warnings, fmt.Sprintf("%s: %v", f.Addr, err))
			expr = fmt.Sprintf("fn.fail(%q)", fmt.Sprintf("%s: %v", f.Addr, err))
		}
		fmt.Fprintf(&b, "  ctx[%q] = %s;\n", f.Addr, expr)
	}

	returned := unit.Outputs
	if len(returned) == 0 && len(unit.Formulas) > 0 {
		returned = []string{unit.Formulas[len(unit.Formulas)-1].Addr}
	}
	b.WriteString("  return {\n")
	for _, addr := range returned {
		fmt.Fprintf(&b, "    %q: ctx[%q],\n", addr, addr)
	}
	b.WriteString("  };\n}\n")
	return b.String()
}

func emitIndex(unitNames []string) string {
	var b strings.Builder
	for _, name := range unitNames {
		fmt.Fprintf(&b, "import { %s } from \"./%s\";\n", name, name)
	}
	b.WriteString("import type { CellContext } from \"../lib/helpers\";\n\n")
	b.WriteString("export const calculations: Record<string, (inputs: CellContext) => CellContext> = {\n")
	for _, name := range unitNames {
		fmt.Fprintf(&b, "  %s,\n", name)
	}
	b.WriteString("};\n")
	return b.String()
}

func zodType(f Field) string {
	if len(f.Options) > 0 {
		quoted := make([]string, len(f.Options))
		for i, o := range f.Options {
			quoted[i] = tsString(o)
		}
		return "z.enum([" + strings.Join(quoted, ", ") + "])"
	}
	switch f.Type {
	case formula.TypeNumber, formula.TypeDate:
		return "z.number()"
	case formula.TypeBoolean:
		return "z.boolean()"
	case formula.TypeText:
		return "z.string()"
	default:
		return "z.union([z.number(), z.string(), z.boolean()])"
	}
}

func emitZodSchema(inputs, outputs []Field) string {
	var b strings.Builder
	b.WriteString("import { z } from \"zod\";\n\n")
	writeSchema := func(name string, fields []Field) {
		fmt.Fprintf(&b, "export const %s = z.object({\n", name)
		for _, f := range fields {
			fmt.Fprintf(&b, "  %q: %s, // %s (%s)\n", f.Addr, zodType(f), f.Name, f.Section)
		}
		b.WriteString("});\n\n")
	}
	writeSchema("inputSchema", inputs)
	writeSchema("outputSchema", outputs)
	b.WriteString("export type CalcInputs = z.infer<typeof inputSchema>;\n")
	b.WriteString("export type CalcOutputs = z.infer<typeof outputSchema>;\n")
	return b.String()
}

func emitAPI() string {
	return `import { inputSchema, outputSchema } from "../lib/schema";
import { calculations } from "../calculations";

export interface CalculateRequest {
  unit: string;
  inputs: unknown;
}

export interface CalculateResponse {
  ok: boolean;
  outputs?: Record<string, unknown>;
  error?: string;
}

// handleCalculate validates the request, runs the named calculation
// unit, and validates its outputs before returning them.
export function handleCalculate(req: CalculateRequest): CalculateResponse {
  const calc = calculations[req.unit];
  if (!calc) {
    return { ok: false, error: "unknown calculation unit: " + req.unit };
  }
  const parsed = inputSchema.partial().safeParse(req.inputs);
  if (!parsed.success) {
    return { ok: false, error: parsed.error.message };
  }
  try {
    const outputs = calc(parsed.data as Record<string, never>);
    const checked = outputSchema.partial().safeParse(outputs);
    if (!checked.success) {
      return { ok: false, error: checked.error.message };
    }
    return { ok: true, outputs: checked.data };
  } catch (err) {
    return { ok: false, error: err instanceof Error ? err.message : String(err) };
  }
}
`
}

func emitUI(name string, inputs []Field, warnings, unitNames []string) string {
	var b strings.Builder
	b.WriteString("import { useState } from \"react\";\n")
	b.WriteString("import { handleCalculate } from \"./api/calculate\";\n\n")
	b.WriteString("const calculationUnits: string[] = [\n")
	for _, u := range unitNames {
		b.WriteString("  " + tsString(u) + ",\n")
	}
	b.WriteString("];\n\n")
	b.WriteString("const constraintWarnings: string[] = [\n")
	for _, w := range warnings {
		b.WriteString("  " + tsString(w) + ",\n")
	}
	b.WriteString("];\n\n")

	b.WriteString("interface FieldSpec {\n  addr: string;\n  label: string;\n  section: string;\n  options?: string[];\n}\n\n")
	b.WriteString("const inputFields: FieldSpec[] = [\n")
	for _, f := range inputs {
		label := f.Label
		if label == "" {
			label = f.Name
		}
		fmt.Fprintf(&b, "  { addr: %q, label: %s, section: %s", f.Addr, tsString(label), tsString(f.Section))
		if len(f.Options) > 0 {
			quoted := make([]string, len(f.Options))
			for i, o := range f.Options {
				quoted[i] = tsString(o)
			}
			b.WriteString(", options: [" + strings.Join(quoted, ", ") + "]")
		}
		b.WriteString(" },\n")
	}
	b.WriteString("];\n\n")

	fmt.Fprintf(&b, `export default function App() {
  const [values, setValues] = useState<Record<string, string>>({});
  const [result, setResult] = useState<string>("");

  const run = (unit: string) => {
    const inputs: Record<string, unknown> = {};
    for (const f of inputFields) {
      const raw = values[f.addr] ?? "";
      inputs[f.addr] = raw === "" ? 0 : Number.isNaN(Number(raw)) ? raw : Number(raw);
    }
    const res = handleCalculate({ unit, inputs });
    setResult(JSON.stringify(res, null, 2));
  };

  return (
    <main>
      <h1>%s</h1>
      {constraintWarnings.length > 0 && (
        <section>
          <h2>Warnings</h2>
          <ul>
            {constraintWarnings.map((w) => (
              <li key={w}>{w}</li>
            ))}
          </ul>
        </section>
      )}
      {inputFields.map((f) => (
        <label key={f.addr}>
          {f.section} / {f.label}
          {f.options ? (
            <select
              value={values[f.addr] ?? ""}
              onChange={(e) => setValues({ ...values, [f.addr]: e.target.value })}
            >
              <option value="">--</option>
              {f.options.map((o) => (
                <option key={o} value={o}>
                  {o}
                </option>
              ))}
            </select>
          ) : (
            <input
              value={values[f.addr] ?? ""}
              onChange={(e) => setValues({ ...values, [f.addr]: e.target.value })}
            />
          )}
        </label>
      ))}
      {calculationUnits.map((u) => (
        <button key={u} onClick={() => run(u)}>
          Run {u}
        </button>
      ))}
      <pre>{result}</pre>
    </main>
  );
}
`, name)
	return b.String()
}

func emitTests(tests []logic.TestCase) string {
	var b strings.Builder
	b.WriteString("import { describe, expect, it } from \"vitest\";\n")
	b.WriteString("import { calculations } from \"../src/calculations\";\n\n")
	b.WriteString("describe(\"generated calculations\", () => {\n")
	for _, tc := range tests {
		fmt.Fprintf(&b, "  it(%q, () => {\n", tc.Name)
		fmt.Fprintf(&b, "    const out = calculations[%q](%s);\n", tc.Unit, jsonObject(tc.Inputs))
		for _, addr := range sortedKeys(tc.Expected) {
			expected := jsonValue(tc.Expected[addr])
			if _, isNum := tc.Expected[addr].(float64); isNum {
				fmt.Fprintf(&b, "    expect(out[%q]).toBeCloseTo(%s, 9);\n", addr, expected)
			} else {
				fmt.Fprintf(&b, "    expect(out[%q]).toEqual(%s);\n", addr, expected)
			}
		}
		b.WriteString("  });\n")
	}
	b.WriteString("});\n")
	return b.String()
}

func sqlType(t formula.Type) string {
	switch t {
	case formula.TypeNumber, formula.TypeDate:
		return "REAL"
	case formula.TypeBoolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func emitSQLSchema(inputs, outputs []Field) string {
	var b strings.Builder
	b.WriteString("-- Generated relational schema for calculation submissions.\n")
	b.WriteString("CREATE TABLE submissions (\n")
	b.WriteString("    id INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	b.WriteString("    created_at TEXT NOT NULL DEFAULT (datetime('now'))")
	for _, f := range append(append([]Field{}, inputs...), outputs...) {
		fmt.Fprintf(&b, ",\n    %s %s", f.Name, sqlType(f.Type))
	}
	b.WriteString("\n);\n")
	return b.String()
}

func emitPackageJSON(name string, deps []string) string {
	manifest := map[string]any{
		"name":    strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		"version": "0.1.0",
		"private": true,
		"type":    "module",
		"scripts": map[string]string{
			"test":      "vitest run",
			"typecheck": "tsc --noEmit",
		},
	}
	dependencies := make(map[string]string)
	for _, d := range deps {
		if pkg, version, ok := strings.Cut(d, "@^"); ok {
			dependencies[pkg] = "^" + version
		} else {
			dependencies[d] = "*"
		}
	}
	manifest["dependencies"] = dependencies
	manifest["devDependencies"] = map[string]string{
		"typescript":   "^5.6.0",
		"vitest":       "^2.1.0",
		"@types/react": "^18.3.0",
	}
	out, _ := json.MarshalIndent(manifest, "", "  ")
	return string(out) + "\n"
}

func tsString(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}

func jsonValue(v formula.Value) string {
	out, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(out)
}

func jsonObject(m map[string]formula.Value) string {
	if len(m) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{ ")
	for i, addr := range sortedKeys(m) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %s", addr, jsonValue(m[addr]))
	}
	b.WriteString(" }")
	return b.String()
}

func sortedKeys(m map[string]formula.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
