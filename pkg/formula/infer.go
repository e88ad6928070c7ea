package formula

import "sort"

// Type is an inferred value type for a cell or expression.
type Type string

// Inferred types. Unknown means the inference pass saw conflicting or no
// evidence.
const (
	TypeNumber  Type = "number"
	TypeText    Type = "text"
	TypeBoolean Type = "boolean"
	TypeDate    Type = "date"
	TypeUnknown Type = "unknown"
)

// functionReturns maps each supported function to its result type.
// IF and IFS are absent: their type is the unification of their branches.
var functionReturns = map[string]Type{
	"SUM": TypeNumber, "AVERAGE": TypeNumber, "AVERAGEA": TypeNumber,
	"MIN": TypeNumber, "MAX": TypeNumber, "COUNT": TypeNumber,
	"COUNTA": TypeNumber, "ABS": TypeNumber, "MOD": TypeNumber,
	"ROUND": TypeNumber, "ROUNDUP": TypeNumber, "ROUNDDOWN": TypeNumber,
	"SUMIF": TypeNumber, "SUMIFS": TypeNumber, "COUNTIF": TypeNumber,
	"COUNTIFS": TypeNumber, "AVERAGEIF": TypeNumber, "AVERAGEIFS": TypeNumber,
	"LEN": TypeNumber,

	"DATE": TypeDate, "YEAR": TypeNumber, "MONTH": TypeNumber, "DAY": TypeNumber,

	"CONCATENATE": TypeText, "CONCAT": TypeText, "UPPER": TypeText,
	"LOWER": TypeText, "TRIM": TypeText, "LEFT": TypeText, "RIGHT": TypeText,

	"AND": TypeBoolean, "OR": TypeBoolean, "NOT": TypeBoolean,
	"TRUE": TypeBoolean, "FALSE": TypeBoolean,

	// Lookups return whatever their source range holds.
	"VLOOKUP": TypeUnknown, "MATCH": TypeNumber, "INDEX": TypeUnknown,
	"XLOOKUP": TypeUnknown,
}

// functionArgExpectations describes what a function expects of each
// argument, keyed by argument index; -1 is the catch-all for the rest.
var functionArgExpectations = map[string]map[int]Type{
	"SUM": {-1: TypeNumber}, "AVERAGE": {-1: TypeNumber},
	"MIN": {-1: TypeNumber}, "MAX": {-1: TypeNumber},
	"ABS": {-1: TypeNumber}, "MOD": {-1: TypeNumber},
	"ROUND": {-1: TypeNumber}, "ROUNDUP": {-1: TypeNumber},
	"ROUNDDOWN": {-1: TypeNumber},
	"IF":        {0: TypeBoolean},
	"AND":       {-1: TypeBoolean}, "OR": {-1: TypeBoolean}, "NOT": {0: TypeBoolean},
	"DATE": {-1: TypeNumber}, "YEAR": {0: TypeDate}, "MONTH": {0: TypeDate},
	"DAY":         {0: TypeDate},
	"CONCATENATE": {-1: TypeText}, "CONCAT": {-1: TypeText},
	"UPPER": {0: TypeText}, "LOWER": {0: TypeText}, "TRIM": {0: TypeText},
	"LEFT": {0: TypeText, 1: TypeNumber}, "RIGHT": {0: TypeText, 1: TypeNumber},
	"LEN": {0: TypeText},
}

// Inference collects, across all formulas of one calculation cluster, the
// expected types seen at every cell reference. A reference observed under
// exactly one distinct expectation gets that type; conflicting evidence
// yields TypeUnknown.
type Inference struct {
	observed map[string]map[Type]struct{} // address -> set of expected types
	results  map[string]Type              // formula cell -> result type
}

// NewInference creates an empty inference pass.
func NewInference() *Inference {
	return &Inference{
		observed: make(map[string]map[Type]struct{}),
		results:  make(map[string]Type),
	}
}

// Observe walks one formula, recording expectations for every reference it
// touches and the formula's own result type under its cell address.
func (inf *Inference) Observe(addr string, root Node) {
	inf.results[addr] = inf.walk(root, TypeUnknown)
}

// ReferenceType returns the inferred type for a referenced cell.
func (inf *Inference) ReferenceType(addr string) Type {
	set := inf.observed[addr]
	if len(set) == 1 {
		for t := range set {
			return t
		}
	}
	return TypeUnknown
}

// ResultType returns the inferred result type for a formula cell.
func (inf *Inference) ResultType(addr string) Type {
	if t, ok := inf.results[addr]; ok {
		return t
	}
	return TypeUnknown
}

// ObservedAddresses returns every address with recorded expectations,
// sorted for deterministic iteration.
func (inf *Inference) ObservedAddresses() []string {
	addrs := make([]string, 0, len(inf.observed))
	for a := range inf.observed {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}

// walk propagates the expected type top-down and returns the node's own
// result type bottom-up.
func (inf *Inference) walk(n Node, expected Type) Type {
	switch v := n.(type) {
	case *Number:
		return TypeNumber
	case *String:
		return TypeText
	case *Reference:
		inf.record(v.Addr, expected)
		return expected
	case *RangeRef:
		// Ranges as a whole carry their element expectation.
		return expected
	case *Unary:
		inf.walk(v.Operand, TypeNumber)
		return TypeNumber
	case *Binary:
		return inf.walkBinary(v)
	case *Call:
		return inf.walkCall(v)
	case *ErrorNode:
		return TypeUnknown
	default:
		return TypeUnknown
	}
}

func (inf *Inference) walkBinary(b *Binary) Type {
	switch b.Op {
	case "+", "-", "*", "/", "^":
		inf.walk(b.Left, TypeNumber)
		inf.walk(b.Right, TypeNumber)
		return TypeNumber
	case "&":
		inf.walk(b.Left, TypeText)
		inf.walk(b.Right, TypeText)
		return TypeText
	default: // comparisons
		left := inf.walk(b.Left, TypeUnknown)
		inf.walk(b.Right, left)
		return TypeBoolean
	}
}

func (inf *Inference) walkCall(c *Call) Type {
	expectations := functionArgExpectations[c.Name]
	for i, arg := range c.Args {
		expected := TypeUnknown
		if expectations != nil {
			if t, ok := expectations[i]; ok {
				expected = t
			} else if t, ok := expectations[-1]; ok {
				expected = t
			}
		}
		inf.walk(arg, expected)
	}

	switch c.Name {
	case "IF":
		// The IF result unifies its branches.
		if len(c.Args) >= 2 {
			thenT := inf.typeOf(c.Args[1])
			elseT := TypeUnknown
			if len(c.Args) >= 3 {
				elseT = inf.typeOf(c.Args[2])
			}
			return unify(thenT, elseT)
		}
		return TypeUnknown
	case "IFS":
		result := TypeUnknown
		first := true
		for i := 1; i < len(c.Args); i += 2 {
			t := inf.typeOf(c.Args[i])
			if first {
				result = t
				first = false
			} else {
				result = unify(result, t)
			}
		}
		return result
	}

	if t, ok := functionReturns[c.Name]; ok {
		return t
	}
	return TypeUnknown
}

// typeOf computes a node's result type without recording expectations
// (the branches were already walked with their expectations).
func (inf *Inference) typeOf(n Node) Type {
	switch v := n.(type) {
	case *Number:
		return TypeNumber
	case *String:
		return TypeText
	case *Reference:
		return inf.ReferenceType(v.Addr)
	case *Binary:
		switch v.Op {
		case "+", "-", "*", "/", "^":
			return TypeNumber
		case "&":
			return TypeText
		default:
			return TypeBoolean
		}
	case *Unary:
		return TypeNumber
	case *Call:
		if t, ok := functionReturns[v.Name]; ok {
			return t
		}
		return TypeUnknown
	default:
		return TypeUnknown
	}
}

func (inf *Inference) record(addr string, t Type) {
	if t == TypeUnknown {
		return
	}
	set, ok := inf.observed[addr]
	if !ok {
		set = make(map[Type]struct{})
		inf.observed[addr] = set
	}
	set[t] = struct{}{}
}

// unify joins two branch types: equal types keep themselves, anything else
// degrades to unknown.
func unify(a, b Type) Type {
	if a == b {
		return a
	}
	return TypeUnknown
}
