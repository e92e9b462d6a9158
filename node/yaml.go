package node

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const mergeTag = "!!merge"

// Parse every document of a YAML stream.
func Parse(data []byte) ([]*Node, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	result := []*Node{}
	for {
		var doc yaml.Node
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse yaml:\n\t * %w", err)
		}
		converted, err := FromYAML(&doc)
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}
}

// Parse the first document of a YAML stream.
//
// An empty stream yields a null node.
func ParseOne(data []byte) (*Node, error) {
	docs, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return Null(), nil
	}
	return docs[0], nil
}

// Convert a `yaml.v3` node into a `Node`.
//
// Document nodes are unwrapped, aliases are replaced by a copy of their
// anchored node and merge keys (`<<`) are expanded.
func FromYAML(y *yaml.Node) (*Node, error) {
	return fromYAML(y, make(map[*yaml.Node]bool))
}

func fromYAML(y *yaml.Node, visiting map[*yaml.Node]bool) (*Node, error) {
	if y == nil {
		return Null(), nil
	}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return Null(), nil
		}
		return fromYAML(y.Content[0], visiting)
	case yaml.AliasNode:
		if visiting[y.Alias] {
			return nil, fmt.Errorf("at line %d, recursive alias *%s", y.Line, y.Value)
		}
		visiting[y.Alias] = true
		defer delete(visiting, y.Alias)
		return fromYAML(y.Alias, visiting)
	case yaml.ScalarNode:
		result := Scalar(y.ShortTag(), y.Value)
		result.Line, result.Column = y.Line, y.Column
		return result, nil
	case yaml.SequenceNode:
		result := Sequence()
		result.Tag = y.ShortTag()
		result.Line, result.Column = y.Line, y.Column
		result.Items = make([]*Node, 0, len(y.Content))
		for _, item := range y.Content {
			converted, err := fromYAML(item, visiting)
			if err != nil {
				return nil, err
			}
			result.Items = append(result.Items, converted)
		}
		return result, nil
	case yaml.MappingNode:
		return fromYAMLMapping(y, visiting)
	default:
		return nil, fmt.Errorf("at line %d, unsupported yaml node kind %d", y.Line, y.Kind)
	}
}

func fromYAMLMapping(y *yaml.Node, visiting map[*yaml.Node]bool) (*Node, error) {
	result := Mapping()
	result.Tag = y.ShortTag()
	result.Line, result.Column = y.Line, y.Column

	var merged []Entry
	for i := 0; i+1 < len(y.Content); i += 2 {
		key, value := y.Content[i], y.Content[i+1]
		if key.Kind == yaml.ScalarNode && key.ShortTag() == mergeTag {
			entries, err := mergeEntries(value, visiting)
			if err != nil {
				return nil, err
			}
			merged = append(merged, entries...)
			continue
		}
		convertedKey, err := fromYAML(key, visiting)
		if err != nil {
			return nil, err
		}
		convertedValue, err := fromYAML(value, visiting)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, Entry{Key: convertedKey, Value: convertedValue})
	}

	// Explicit keys override merged ones, earlier merged maps override later ones.
	for _, entry := range merged {
		if entry.Key.Kind == ScalarKind {
			if _, exists := result.Lookup(entry.Key.Value); exists {
				continue
			}
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

func mergeEntries(value *yaml.Node, visiting map[*yaml.Node]bool) ([]Entry, error) {
	converted, err := fromYAML(value, visiting)
	if err != nil {
		return nil, err
	}
	switch converted.Kind {
	case MappingKind:
		return converted.Entries, nil
	case SequenceKind:
		var entries []Entry
		for _, item := range converted.Items {
			if item.Kind != MappingKind {
				return nil, fmt.Errorf("at %s, merge keys expect mappings, got a %s", item.Position(), item.Kind)
			}
			entries = append(entries, item.Entries...)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("at %s, merge keys expect mappings, got a %s", converted.Position(), converted.Kind)
	}
}

// Convert back into a `yaml.v3` node, e.g. to hand it to the yaml encoder.
func (n *Node) ToYAML() *yaml.Node {
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: NullTag, Value: "null"} //nolint:exhaustruct
	}
	result := &yaml.Node{Tag: n.Tag, Line: n.Line, Column: n.Column} //nolint:exhaustruct
	switch n.Kind {
	case ScalarKind:
		result.Kind = yaml.ScalarNode
		result.Value = n.Value
	case MappingKind:
		result.Kind = yaml.MappingNode
		result.Content = make([]*yaml.Node, 0, 2*len(n.Entries))
		for _, entry := range n.Entries {
			result.Content = append(result.Content, entry.Key.ToYAML(), entry.Value.ToYAML())
		}
	case SequenceKind:
		result.Kind = yaml.SequenceNode
		result.Content = make([]*yaml.Node, 0, len(n.Items))
		for _, item := range n.Items {
			result.Content = append(result.Content, item.ToYAML())
		}
	}
	return result
}

// Emit the node as a YAML document.
func (n *Node) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(n.ToYAML()); err != nil {
		return nil, fmt.Errorf("failed to emit yaml:\n\t * %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to emit yaml:\n\t * %w", err)
	}
	return buf.Bytes(), nil
}
