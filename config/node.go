package config

import (
	"fmt"
	"strings"
)

// NodeKind discriminates the three shapes a configuration node can take.
type NodeKind int

const (
	ScalarNode NodeKind = iota
	ObjectNode
	ArrayNode
)

func (k NodeKind) String() string {
	switch k {
	case ScalarNode:
		return "scalar"
	case ObjectNode:
		return "object"
	case ArrayNode:
		return "array"
	default:
		return "unknown"
	}
}

// Node is a configuration tree node: a Scalar holding trimmed text, an Object
// mapping unique keys to nodes in first-seen order, or an Array of Objects
// produced when sibling keys repeat.
type Node struct {
	kind  NodeKind
	text  string
	keys  []string
	vals  map[string]*Node
	items []*Node
}

// Scalar returns a leaf node holding s with surrounding space removed.
func Scalar(s string) *Node {
	return &Node{kind: ScalarNode, text: strings.TrimSpace(s)}
}

// NewObject returns an empty Object node.
func NewObject() *Node {
	return &Node{kind: ObjectNode, vals: make(map[string]*Node)}
}

// Kind returns the node's shape.
func (n *Node) Kind() NodeKind { return n.kind }

// Text returns the scalar text, or "" for non-scalar nodes.
func (n *Node) Text() string { return n.text }

// Keys returns the object keys in first-seen order.
func (n *Node) Keys() []string {
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Get returns the child stored under key.
func (n *Node) Get(key string) (*Node, bool) {
	if n.kind != ObjectNode {
		return nil, false
	}
	c, ok := n.vals[key]
	return c, ok
}

// Items returns the elements of an Array node.
func (n *Node) Items() []*Node {
	out := make([]*Node, len(n.items))
	copy(out, n.items)
	return out
}

// Len returns the number of keys of an Object or items of an Array.
func (n *Node) Len() int {
	switch n.kind {
	case ObjectNode:
		return len(n.keys)
	case ArrayNode:
		return len(n.items)
	}
	return 0
}

// Add stores child under key. A repeated key holding objects turns the slot
// into an Array in encounter order; later repeats append to it. Repeating a
// key where either side is a scalar is rejected.
func (n *Node) Add(key string, child *Node) error {
	if n.kind != ObjectNode {
		return fmt.Errorf("config: cannot add %q to a %s node", key, n.kind)
	}
	prev, ok := n.vals[key]
	if !ok {
		n.keys = append(n.keys, key)
		n.vals[key] = child
		return nil
	}
	if child.kind != ObjectNode {
		return fmt.Errorf("config: duplicate value for %q", key)
	}
	switch prev.kind {
	case ObjectNode:
		n.vals[key] = &Node{kind: ArrayNode, items: []*Node{prev, child}}
	case ArrayNode:
		prev.items = append(prev.items, child)
	default:
		return fmt.Errorf("config: duplicate value for %q", key)
	}
	return nil
}

// String renders the node in a compact, stable form for diagnostics.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	switch n.kind {
	case ScalarNode:
		fmt.Fprintf(sb, "%q", n.text)
	case ObjectNode:
		sb.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			n.vals[k].write(sb)
		}
		sb.WriteByte('}')
	case ArrayNode:
		sb.WriteByte('[')
		for i, it := range n.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			it.write(sb)
		}
		sb.WriteByte(']')
	}
}
