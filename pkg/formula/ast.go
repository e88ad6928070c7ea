package formula

import "sort"

// Node is a formula AST node. The variant set is closed: Number, String,
// Reference, RangeRef, Unary, Binary, Call and ErrorNode. Consumers switch
// exhaustively over these types; a new variant is a compile-visible change
// at every switch.
type Node interface {
	node()
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

func (*Number) node() {}

// String is a string literal.
type String struct {
	Value string
}

func (*String) node() {}

// Reference is a single-cell reference, normalized to canonical
// "Sheet!A1" form.
type Reference struct {
	Addr string
}

func (*Reference) node() {}

// RangeRef is a multi-cell range reference, normalized to canonical
// "Sheet!A1:B10" form.
type RangeRef struct {
	Ref string
}

func (*RangeRef) node() {}

// Unary is a prefix operator application (only unary minus today).
type Unary struct {
	Op      string
	Operand Node
}

func (*Unary) node() {}

// Binary is an infix operator application.
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

func (*Binary) node() {}

// Call is a function invocation. Name is upper-cased.
type Call struct {
	Name string
	Args []Node
}

func (*Call) node() {}

// ErrorNode marks a malformed fragment (e.g. a missing operand). It is
// non-fatal: the evaluator treats it as a neutral zero and the translator
// emits a runtime-error stub for it.
type ErrorNode struct {
	Reason string
}

func (*ErrorNode) node() {}

// Walk visits n and all of its descendants in depth-first order.
// Returning false from fn stops descent into that subtree.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Unary:
		Walk(v.Operand, fn)
	case *Binary:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *Call:
		for _, arg := range v.Args {
			Walk(arg, fn)
		}
	}
}

// References returns the sorted, deduplicated single-cell addresses
// appearing in the tree. Range references are not expanded here; the
// classifier owns expansion and its cap.
func References(n Node) []string {
	seen := make(map[string]struct{})
	Walk(n, func(node Node) bool {
		if ref, ok := node.(*Reference); ok {
			seen[ref.Addr] = struct{}{}
		}
		return true
	})
	refs := make([]string, 0, len(seen))
	for addr := range seen {
		refs = append(refs, addr)
	}
	sort.Strings(refs)
	return refs
}

// Ranges returns the sorted, deduplicated range references in the tree.
func Ranges(n Node) []string {
	seen := make(map[string]struct{})
	Walk(n, func(node Node) bool {
		if r, ok := node.(*RangeRef); ok {
			seen[r.Ref] = struct{}{}
		}
		return true
	})
	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Functions returns the function names used in the tree, in first-use order.
func Functions(n Node) []string {
	var names []string
	seen := make(map[string]struct{})
	Walk(n, func(node Node) bool {
		if call, ok := node.(*Call); ok {
			if _, dup := seen[call.Name]; !dup {
				seen[call.Name] = struct{}{}
				names = append(names, call.Name)
			}
		}
		return true
	})
	return names
}

// NumericLiterals returns the numeric constants in the tree, in order of
// appearance. Test synthesis seeds inputs with the first non-zero one.
func NumericLiterals(n Node) []float64 {
	var lits []float64
	Walk(n, func(node Node) bool {
		if num, ok := node.(*Number); ok {
			lits = append(lits, num.Value)
		}
		return true
	})
	return lits
}
