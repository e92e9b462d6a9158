package node

import (
	"fmt"
)

// An entry of an ordered mapping.
type MapItem struct {
	Key   any
	Value any
}

// An ordered mapping, as produced by `Extract`.
type MapSlice []MapItem

// Lookup a key in an ordered mapping.
func (m MapSlice) Lookup(key any) (any, bool) {
	for _, item := range m {
		if item.Key == key {
			return item.Value, true
		}
	}
	return nil, false
}

// Convert a node into plain values, without type coercion.
//
//   - scalars become their text as a `string`, except null which becomes `nil`;
//   - mappings become a `MapSlice`, preserving document order;
//   - sequences become a `[]any`.
func Extract(n *Node) (any, error) {
	if n.IsNull() {
		return nil, nil
	}
	switch n.Kind {
	case ScalarKind:
		return n.Value, nil
	case MappingKind:
		result := make(MapSlice, 0, len(n.Entries))
		for _, entry := range n.Entries {
			key, err := Extract(entry.Key)
			if err != nil {
				return nil, err
			}
			if !isComparable(key) {
				return nil, fmt.Errorf("at %s, mapping keys must be scalars", entry.Key.Position())
			}
			value, err := Extract(entry.Value)
			if err != nil {
				return nil, err
			}
			result = append(result, MapItem{Key: key, Value: value})
		}
		return result, nil
	case SequenceKind:
		result := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			value, err := Extract(item)
			if err != nil {
				return nil, err
			}
			result = append(result, value)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("at %s, unknown node kind %s", n.Position(), n.Kind)
	}
}

// Convert a node into the plain values the YAML core schema resolves it
// to: `int`, `float64`, `bool`, `string`, `nil`, `map[string]any` (or
// `map[any]any` if some keys are not strings) and `[]any`.
func Resolve(n *Node) (any, error) {
	if n.IsNull() {
		return nil, nil
	}
	switch n.Kind {
	case ScalarKind:
		var result any
		if err := n.ToYAML().Decode(&result); err != nil {
			return nil, fmt.Errorf("at %s, invalid %s scalar %q:\n\t * %w", n.Position(), n.Tag, n.Value, err)
		}
		return result, nil
	case MappingKind:
		keys := make([]any, len(n.Entries))
		values := make([]any, len(n.Entries))
		allStrings := true
		for i, entry := range n.Entries {
			key, err := Resolve(entry.Key)
			if err != nil {
				return nil, err
			}
			if !isComparable(key) {
				return nil, fmt.Errorf("at %s, mapping keys must be scalars", entry.Key.Position())
			}
			if _, ok := key.(string); !ok {
				allStrings = false
			}
			value, err := Resolve(entry.Value)
			if err != nil {
				return nil, err
			}
			keys[i], values[i] = key, value
		}
		if allStrings {
			result := make(map[string]any, len(keys))
			for i, key := range keys {
				result[key.(string)] = values[i] //nolint:forcetypeassert
			}
			return result, nil
		}
		result := make(map[any]any, len(keys))
		for i, key := range keys {
			result[key] = values[i]
		}
		return result, nil
	case SequenceKind:
		result := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			value, err := Resolve(item)
			if err != nil {
				return nil, err
			}
			result = append(result, value)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("at %s, unknown node kind %s", n.Position(), n.Kind)
	}
}

func isComparable(value any) bool {
	switch value.(type) {
	case MapSlice, []any, map[string]any, map[any]any:
		return false
	default:
		return true
	}
}
