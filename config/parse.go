package config

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"

	"github.com/lvillar/pdfexport/pdferr"
)

// RootName is the name of the configuration document's root section.
const RootName = "configuration"

// Parse builds the configuration tree from XML or YAML markup. The format is
// detected from the first non-blank byte: '<' selects XML, anything else YAML.
// The returned node is the content of the root section.
func Parse(data []byte) (*Node, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) == 0 {
		return nil, pdferr.Newf(pdferr.Validation, "config.Parse", "empty configuration document")
	}
	var (
		root *Node
		err  error
	)
	if trimmed[0] == '<' {
		root, err = parseXML(trimmed)
	} else {
		root, err = parseYAML(trimmed)
	}
	if err != nil {
		return nil, pdferr.New(pdferr.Validation, "config.Parse", err)
	}
	return root, nil
}

type xmlFrame struct {
	key      string
	node     *Node
	text     strings.Builder
	children bool
}

func parseXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = func(label string, in io.Reader) (io.Reader, error) {
		enc, err := ianaindex.IANA.Encoding(label)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("unsupported charset %q", label)
		}
		return enc.NewDecoder().Reader(in), nil
	}

	var (
		stack    []*xmlFrame
		root     *Node
		rootName string
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, fmt.Errorf("malformed XML: content after root element <%s>", rootName)
			}
			key := t.Name.Local
			for _, a := range t.Attr {
				if a.Name.Local == "id" && strings.TrimSpace(a.Value) != "" {
					key = strings.TrimSpace(a.Value)
				}
			}
			if len(stack) > 0 {
				stack[len(stack)-1].children = true
			}
			stack = append(stack, &xmlFrame{key: key, node: NewObject()})
			if len(stack) == 1 {
				rootName = t.Name.Local
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := f.node
			if !f.children {
				n = Scalar(f.text.String())
			}
			if len(stack) == 0 {
				root = n
				continue
			}
			if err := stack[len(stack)-1].node.Add(f.key, n); err != nil {
				return nil, fmt.Errorf("%s: %w", pathOf(stack), err)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("malformed XML: no root element")
	}
	if rootName != RootName {
		return nil, fmt.Errorf("root element is <%s>, want <%s>", rootName, RootName)
	}
	if root.Kind() == ScalarNode {
		if root.Text() != "" {
			return nil, fmt.Errorf("root element <%s> holds text instead of sections", RootName)
		}
		root = NewObject()
	}
	return root, nil
}

func pathOf(stack []*xmlFrame) string {
	parts := make([]string, len(stack))
	for i, f := range stack {
		parts[i] = f.key
	}
	return strings.Join(parts, "/")
}

func parseYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("malformed YAML: empty document")
	}
	top := deref(doc.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("YAML configuration must be a mapping")
	}
	// An explicit root key is optional.
	if len(top.Content) == 2 && top.Content[0].Value == RootName {
		top = deref(top.Content[1])
		if top.Kind == yaml.ScalarNode && top.Value == "" {
			return NewObject(), nil
		}
		if top.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%s must be a mapping", RootName)
		}
	}
	return yamlObject(top, RootName)
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func yamlObject(m *yaml.Node, path string) (*Node, error) {
	obj := NewObject()
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := strings.TrimSpace(m.Content[i].Value)
		val := deref(m.Content[i+1])
		where := path + "/" + key
		switch val.Kind {
		case yaml.ScalarNode:
			if err := obj.Add(key, Scalar(val.Value)); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		case yaml.MappingNode:
			child, err := yamlObject(val, where)
			if err != nil {
				return nil, err
			}
			if err := obj.Add(key, child); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		case yaml.SequenceNode:
			if err := addYAMLSequence(obj, key, val, where); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%s: unsupported YAML node", where)
		}
	}
	return obj, nil
}

// addYAMLSequence stores a sequence of scalars as one comma separated scalar
// (font lists) and a sequence of mappings as repeated siblings.
func addYAMLSequence(obj *Node, key string, seq *yaml.Node, path string) error {
	var scalars []string
	for _, it := range seq.Content {
		it = deref(it)
		switch it.Kind {
		case yaml.ScalarNode:
			scalars = append(scalars, strings.TrimSpace(it.Value))
		case yaml.MappingNode:
			child, err := yamlObject(it, path)
			if err != nil {
				return err
			}
			if err := obj.Add(key, child); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		default:
			return fmt.Errorf("%s: unsupported YAML sequence item", path)
		}
	}
	if len(scalars) > 0 {
		if _, exists := obj.Get(key); exists {
			return fmt.Errorf("%s: mixes scalars and mappings", path)
		}
		return obj.Add(key, Scalar(strings.Join(scalars, ",")))
	}
	return nil
}
