package gufe

// walkOrder controls where in the traversal the transform is applied.
//
// Encoding runs downward: a live Tokenizable is first replaced by its
// tagged shallow dictionary, then the walk continues into that dictionary
// so deeper Tokenizables are found. Decoding runs upward: a tagged
// dictionary's children are rebuilt first, so its constructor receives
// already-decoded dependencies (dependencies before dependents).
type walkOrder int

const (
	walkDown walkOrder = iota
	walkUp
)

// walkTree is a generic recursive transform over a tree of map[string]any,
// []any, and scalars. Nodes matching the predicate are replaced by
// transform's result; map keys are never inspected. The input is never
// mutated: maps and slices are rebuilt on the way through.
//
// top=true skips transforming the root node itself. Both encode variants
// rely on this so the outer call always starts from the root's own shallow
// dictionary rather than re-wrapping (or key-referencing) the root.
func walkTree(node any, match func(any) bool, transform func(any) (any, error), order walkOrder, top bool) (any, error) {
	if order == walkDown && !top && match(node) {
		replaced, err := transform(node)
		if err != nil {
			return nil, err
		}
		node = replaced
	}

	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			walked, err := walkTree(val, match, transform, order, false)
			if err != nil {
				return nil, err
			}
			out[key] = walked
		}
		node = out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			walked, err := walkTree(item, match, transform, order, false)
			if err != nil {
				return nil, err
			}
			out[i] = walked
		}
		node = out
	}

	if order == walkUp && !top && match(node) {
		return transform(node)
	}
	return node, nil
}
