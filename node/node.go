// The document model consumed by the construction pipeline.
//
// A `Node` is a pre-parsed fragment of a YAML document: a scalar, a mapping
// or a sequence. Nodes are produced from `gopkg.in/yaml.v3` nodes (see
// `Parse` and `FromYAML`), with aliases and merge keys already expanded, so
// the pipeline never needs to know about anchors.
//
// The only mutable parts of a node during construction are `Type`, which the
// pipeline uses to record the concrete type a node must be constructed as,
// and the list of entries of a mapping, which may be pruned.
package node

import (
	"fmt"
	"reflect"
	"strings"
)

// The kind of a node.
type Kind int

const (
	ScalarKind Kind = iota + 1
	MappingKind
	SequenceKind
)

func (k Kind) String() string {
	switch k {
	case ScalarKind:
		return "scalar"
	case MappingKind:
		return "mapping"
	case SequenceKind:
		return "sequence"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Short forms of the YAML core schema tags.
const (
	NullTag      = "!!null"
	BoolTag      = "!!bool"
	StrTag       = "!!str"
	IntTag       = "!!int"
	FloatTag     = "!!float"
	TimestampTag = "!!timestamp"
	BinaryTag    = "!!binary"
	MapTag       = "!!map"
	SeqTag       = "!!seq"
)

// A parsed document fragment.
type Node struct {
	Kind Kind

	// The short tag of the node, e.g. "!!str" or "!Dog".
	Tag string

	// The text of a scalar.
	Value string

	// The ordered entries of a mapping.
	Entries []Entry

	// The ordered items of a sequence.
	Items []*Node

	// The type this node should be constructed as.
	//
	// Nil unless set during tree preparation, e.g. by subtype selection
	// or by the root sequence convenience.
	Type reflect.Type

	Line   int
	Column int
}

// A (key, value) pair in a mapping.
type Entry struct {
	Key   *Node
	Value *Node
}

// A scalar node with an explicit tag.
func Scalar(tag string, value string) *Node {
	return &Node{Kind: ScalarKind, Tag: tag, Value: value} //nolint:exhaustruct
}

// A string scalar.
func String(value string) *Node {
	return Scalar(StrTag, value)
}

// A null scalar.
func Null() *Node {
	return Scalar(NullTag, "null")
}

// A mapping node.
func Mapping(entries ...Entry) *Node {
	return &Node{Kind: MappingKind, Tag: MapTag, Entries: entries} //nolint:exhaustruct
}

// A mapping entry with a string key.
func Pair(key string, value *Node) Entry {
	return Entry{Key: String(key), Value: value}
}

// A sequence node.
func Sequence(items ...*Node) *Node {
	return &Node{Kind: SequenceKind, Tag: SeqTag, Items: items} //nolint:exhaustruct
}

// Return true for a missing node or a null scalar.
func (n *Node) IsNull() bool {
	return n == nil || (n.Kind == ScalarKind && n.Tag == NullTag)
}

// Return the local tag of the node without its leading `!`, if the node
// carries one (e.g. "Dog" for `!Dog`). Core schema tags are not local tags.
func (n *Node) LocalTag() (string, bool) {
	if n == nil || !strings.HasPrefix(n.Tag, "!") || strings.HasPrefix(n.Tag, "!!") || len(n.Tag) < 2 {
		return "", false
	}
	return n.Tag[1:], true
}

// Lookup the value of a scalar key in a mapping.
func (n *Node) Lookup(key string) (*Node, bool) {
	if n == nil || n.Kind != MappingKind {
		return nil, false
	}
	for _, entry := range n.Entries {
		if entry.Key.Kind == ScalarKind && entry.Key.Value == key {
			return entry.Value, true
		}
	}
	return nil, false
}

// The scalar keys of a mapping, in document order.
func (n *Node) Keys() []string {
	if n == nil || n.Kind != MappingKind {
		return nil
	}
	keys := make([]string, 0, len(n.Entries))
	for _, entry := range n.Entries {
		if entry.Key.Kind == ScalarKind {
			keys = append(keys, entry.Key.Value)
		}
	}
	return keys
}

// Remove an entry from a mapping. Returns true if an entry was removed.
func (n *Node) Remove(key string) bool {
	if n == nil || n.Kind != MappingKind {
		return false
	}
	for i, entry := range n.Entries {
		if entry.Key.Kind == ScalarKind && entry.Key.Value == key {
			n.Entries = append(n.Entries[:i:i], n.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// A deep copy of the node, including resolved types.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := *n
	if n.Entries != nil {
		clone.Entries = make([]Entry, len(n.Entries))
		for i, entry := range n.Entries {
			clone.Entries[i] = Entry{Key: entry.Key.Clone(), Value: entry.Value.Clone()}
		}
	}
	if n.Items != nil {
		clone.Items = make([]*Node, len(n.Items))
		for i, item := range n.Items {
			clone.Items[i] = item.Clone()
		}
	}
	return &clone
}

// A human-readable position, for error messages.
func (n *Node) Position() string {
	if n == nil || n.Line == 0 {
		return "<unknown position>"
	}
	return fmt.Sprintf("line %d, column %d", n.Line, n.Column)
}
