// Package taxonomy resolves category keys against the embedded IT category
// tree.
package taxonomy

import (
	_ "embed"
	"fmt"
	"strings"

	"zerocrash/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTree []byte

// Node is one category. Subreddits and Topic are inherited from the parent
// when a subcategory does not set them.
type Node struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description,omitempty"`
	Keywords      []string `yaml:"keywords" json:"keywords,omitempty"`
	Subreddits    []string `yaml:"subreddits" json:"-"`
	Topic         string   `yaml:"topic" json:"-"`
	ParentID      string   `yaml:"-" json:"parent_id,omitempty"`
	Subcategories []Node   `yaml:"subcategories" json:"subcategories,omitempty"`
}

type document struct {
	Categories []Node `yaml:"categories"`
}

// Resolver looks categories up by id or display name, case-insensitively.
// It is immutable after construction.
type Resolver struct {
	roots []Node
	index map[string]*Node
}

// Default returns a resolver over the embedded tree.
func Default() *Resolver {
	r, err := Parse(defaultTree)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded tree: %v", err))
	}
	return r
}

// Parse builds a resolver from a YAML document with a top-level
// "categories" list.
func Parse(data []byte) (*Resolver, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("taxonomy: parse: %w", err)
	}
	r := &Resolver{roots: doc.Categories, index: make(map[string]*Node)}
	for i := range r.roots {
		if err := r.add(&r.roots[i], nil); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Resolver) add(n *Node, parent *Node) error {
	n.ID = strings.ToLower(strings.TrimSpace(n.ID))
	if n.ID == "" {
		return fmt.Errorf("taxonomy: category %q has no id", n.Name)
	}
	if prev, dup := r.index[n.ID]; dup && prev.ID == n.ID {
		return fmt.Errorf("taxonomy: duplicate id %q", n.ID)
	}
	if parent != nil {
		n.ParentID = parent.ID
		if len(n.Subreddits) == 0 {
			n.Subreddits = parent.Subreddits
		}
		if n.Topic == "" {
			n.Topic = parent.Topic
		}
	}
	r.index[n.ID] = n
	if name := key(n.Name); name != "" {
		if _, taken := r.index[name]; !taken {
			r.index[name] = n
		}
	}
	for i := range n.Subcategories {
		if err := r.add(&n.Subcategories[i], n); err != nil {
			return err
		}
	}
	return nil
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Resolve returns the node for an id or name. Unknown keys yield an error
// wrapping model.ErrNotFound.
func (r *Resolver) Resolve(k string) (Node, error) {
	n, ok := r.index[key(k)]
	if !ok {
		return Node{}, fmt.Errorf("%w: category %q", model.ErrNotFound, k)
	}
	return *n, nil
}

// Roots returns the top-level categories with their subtrees.
func (r *Resolver) Roots() []Node {
	out := make([]Node, len(r.roots))
	copy(out, r.roots)
	return out
}

// Walk visits every node depth first in document order.
func (r *Resolver) Walk(fn func(Node)) {
	var walk func(ns []Node)
	walk = func(ns []Node) {
		for _, n := range ns {
			fn(n)
			walk(n.Subcategories)
		}
	}
	walk(r.roots)
}

// Subreddits returns the subreddits mapped to a category, or nil.
func (r *Resolver) Subreddits(category string) []string {
	n, err := r.Resolve(category)
	if err != nil {
		return nil
	}
	return n.Subreddits
}

// Topic returns the news topic mapped to a category, or "".
func (r *Resolver) Topic(category string) string {
	n, err := r.Resolve(category)
	if err != nil {
		return ""
	}
	return n.Topic
}
