package encyaml

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// checkKeys makes sure that a mapping node only uses the
// given keys.
func checkKeys(node *yaml.Node, keys ...string) error {
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: %s must be a mapping", node.Line, node.Tag)
	}
	allowed := map[string]bool{}
	for _, k := range keys {
		allowed[k] = true
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i]
		if !allowed[key.Value] {
			return errors.Errorf("line %d: unknown field %q in %s", key.Line, key.Value,
				node.Tag)
		}
	}
	return nil
}

// lookup finds the node at a dotted path such as
// "modules.0.input_dim".
// Path components index mappings by key and sequences by
// position.
func lookup(node *yaml.Node, path string) *yaml.Node {
	node = resolve(node)
	for _, part := range strings.Split(path, ".") {
		node = child(node, part)
		if node == nil {
			return nil
		}
	}
	return node
}

// assign sets the scalar at a dotted path, adding the
// final key to its mapping if necessary.
// It fails if the parent of the key does not exist.
func assign(node *yaml.Node, path string, value *yaml.Node) error {
	parts := strings.Split(path, ".")
	parent := resolve(node)
	if len(parts) > 1 {
		parent = lookup(node, strings.Join(parts[:len(parts)-1], "."))
	}
	if parent == nil || parent.Kind != yaml.MappingNode {
		return errors.Errorf("cannot assign %s: no parent mapping", path)
	}
	key := parts[len(parts)-1]
	for i := 0; i < len(parent.Content); i += 2 {
		if parent.Content[i].Value == key {
			parent.Content[i+1] = value
			return nil
		}
	}
	parent.Content = append(parent.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value)
	return nil
}

// shareParams enforces that the keys in every group hold
// the same value.
// A key which is unset takes the value of the keys which
// are set.
func shareParams(node *yaml.Node, groups [][]string) error {
	for _, group := range groups {
		var value *yaml.Node
		var valuePath string
		for _, path := range group {
			n := lookup(node, path)
			if n == nil {
				continue
			}
			if value == nil {
				value = n
				valuePath = path
			} else if n.Value != value.Value {
				return errors.Errorf("line %d: %s (%s) does not match %s (%s)", n.Line, path,
					n.Value, valuePath, value.Value)
			}
		}
		if value == nil {
			continue
		}
		for _, path := range group {
			if lookup(node, path) == nil {
				copied := *value
				if err := assign(node, path, &copied); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func child(node *yaml.Node, key string) *yaml.Node {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				return resolve(node.Content[i+1])
			}
		}
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(key)
		if err == nil && idx >= 0 && idx < len(node.Content) {
			return resolve(node.Content[idx])
		}
	}
	return nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}
