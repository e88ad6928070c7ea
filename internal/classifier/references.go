package classifier

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsheet/pkg/cell"
	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

// ExtractReferences returns the sorted set of cell addresses a formula
// reads. Named ranges are resolved through named; multi-cell ranges are
// expanded to individual addresses up to limit cells, and larger ranges
// are kept as one opaque range string. Tokens that fail to parse as
// references are skipped rather than reported.
func ExtractReferences(raw, defaultSheet string, named map[string]string, limit int) []string {
	tokens := formula.Tokenize(raw)
	seen := make(map[string]struct{})

	for i, tok := range tokens {
		var target string
		switch tok.Type {
		case formula.TOKEN_CELL, formula.TOKEN_RANGE:
			target = tok.Literal
		case formula.TOKEN_IDENT:
			// A name followed by ( is a function call, not a range.
			if i+1 < len(tokens) && tokens[i+1].Type == formula.TOKEN_LPAREN {
				continue
			}
			target = resolveNamed(tok.Literal, named)
			if target == "" {
				continue
			}
		default:
			continue
		}
		for _, addr := range expandTarget(target, defaultSheet, limit) {
			seen[addr] = struct{}{}
		}
	}

	refs := make([]string, 0, len(seen))
	for addr := range seen {
		refs = append(refs, addr)
	}
	sort.Strings(refs)
	return refs
}

func resolveNamed(name string, named map[string]string) string {
	if named == nil {
		return ""
	}
	if target, ok := named[name]; ok {
		return target
	}
	lower := strings.ToLower(name)
	for n, target := range named {
		if strings.ToLower(n) == lower {
			return target
		}
	}
	return ""
}

// expandTarget turns one reference token into concrete addresses. A
// range over the limit is returned as a single opaque range string.
func expandTarget(target, defaultSheet string, limit int) []string {
	if cell.IsRangeRef(target) || strings.Contains(target, ":") {
		rng, err := cell.ParseRangeWith(target, defaultSheet)
		if err != nil {
			return nil
		}
		addrs, ok := rng.Expand(limit)
		if !ok {
			return []string{rng.String()}
		}
		out := make([]string, len(addrs))
		for i, a := range addrs {
			out[i] = a.String()
		}
		return out
	}
	addr, err := cell.ParseWith(target, defaultSheet)
	if err != nil {
		return nil
	}
	return []string{addr.String()}
}
