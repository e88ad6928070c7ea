// Package config defines the compiler configuration and the tunable
// classification heuristics. All thresholds are named fields so a
// project config file or flags can override them without code changes.
package config

// Heuristics holds the tunable thresholds used during cell role
// classification and reference expansion.
type Heuristics struct {
	// DisableBoldPromotion turns off promoting bold static cells to
	// Structural.
	DisableBoldPromotion bool `koanf:"disable_bold_promotion"`

	// SparseRowMaxCells is the maximum number of populated cells a row
	// may have to be considered sparse for Structural promotion.
	SparseRowMaxCells int `koanf:"sparse_row_max_cells"`

	// TextDominantMinText is the minimum count of text cells in a row
	// with zero numeric cells for the row to count as text dominant.
	TextDominantMinText int `koanf:"text_dominant_min_text"`

	// DenseRowTextFraction is the fraction of populated cells that must
	// be text for a dense row to be treated as a header row.
	DenseRowTextFraction float64 `koanf:"dense_row_text_fraction"`

	// DenseRowPopulationRatio is the fraction of the sheet's used width
	// a row must fill before the dense-row header rule applies.
	DenseRowPopulationRatio float64 `koanf:"dense_row_population_ratio"`

	// HeadingPrefixes are lowercase prefixes that mark a text cell as a
	// structural heading regardless of the row shape.
	HeadingPrefixes []string `koanf:"heading_prefixes"`

	// HeadingMinUppercaseLen is the minimum length for an all-uppercase
	// text cell to be treated as a heading.
	HeadingMinUppercaseLen int `koanf:"heading_min_uppercase_len"`

	// RangeExpandLimit caps how many cells a range reference is
	// expanded into. Larger ranges are kept opaque.
	RangeExpandLimit int `koanf:"range_expand_limit"`
}

// Config is the root configuration for a compiler run.
type Config struct {
	// DefaultSheet is the sheet assumed for bare cell references when a
	// formula omits the sheet qualifier and no context overrides it.
	DefaultSheet string `koanf:"default_sheet"`

	// ProjectName overrides the generated project name. Empty means
	// derive it from the workbook file name.
	ProjectName string `koanf:"project_name"`

	// OutDir is where generated projects are written.
	OutDir string `koanf:"out_dir"`

	// StatePath is the sqlite file recording compile run history.
	// Empty disables the state store.
	StatePath string `koanf:"state_path"`

	// CheckSyntax runs a syntax check over every generated TypeScript
	// module and downgrades failures to warnings.
	CheckSyntax bool `koanf:"check_syntax"`

	Heuristics Heuristics `koanf:"heuristics"`
}

// ApplyDefaults fills zero-valued fields with their defaults. Explicit
// zero overrides are not distinguishable from unset fields, matching
// how the rest of the config layer behaves.
func (c *Config) ApplyDefaults() {
	if c.OutDir == "" {
		c.OutDir = "generated"
	}
	c.Heuristics.ApplyDefaults()
}

// ApplyDefaults fills zero-valued heuristic thresholds.
func (h *Heuristics) ApplyDefaults() {
	if h.SparseRowMaxCells == 0 {
		h.SparseRowMaxCells = 1
	}
	if h.TextDominantMinText == 0 {
		h.TextDominantMinText = 2
	}
	if h.DenseRowTextFraction == 0 {
		h.DenseRowTextFraction = 0.8
	}
	if h.DenseRowPopulationRatio == 0 {
		h.DenseRowPopulationRatio = 0.7
	}
	if len(h.HeadingPrefixes) == 0 {
		h.HeadingPrefixes = []string{"total", "summary", "subtotal"}
	}
	if h.HeadingMinUppercaseLen == 0 {
		h.HeadingMinUppercaseLen = 4
	}
	if h.RangeExpandLimit == 0 {
		h.RangeExpandLimit = 1000
	}
}

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}
