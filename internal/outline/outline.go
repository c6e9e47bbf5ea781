// Package outline defines the canonical in-memory document tree and the
// conversion from the legacy plain-tree JSON format.
package outline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/disiqueira/gotree/v3"
)

// RootID is the identifier of the synthesized root node.
const RootID = "0"

// Node is one card of an outline. The root node has ID "0" and empty content.
type Node struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	Children []*Node `json:"children,omitempty"`
}

// plainNode is a node of the plain-tree format, which carries no ids.
type plainNode struct {
	Content  string      `json:"content"`
	Children []plainNode `json:"children"`
}

// FromPlainTree parses a plain-tree JSON array and returns it wrapped under a
// synthesized root.
//
// Ids are assigned "1", "2", ... in pre-order, which matches the textual
// left-to-right order of the object literals in the input. Ids already present
// in the input are ignored.
func FromPlainTree(data []byte) (*Node, error) {
	var seed []plainNode
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("parse plain tree: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse plain tree: trailing data")
	}

	next := 1
	var convert func(p plainNode) *Node
	convert = func(p plainNode) *Node {
		n := &Node{ID: strconv.Itoa(next), Content: p.Content}
		next++
		for _, child := range p.Children {
			n.Children = append(n.Children, convert(child))
		}
		return n
	}

	root := &Node{ID: RootID, Content: "", Children: make([]*Node, 0, len(seed))}
	for _, p := range seed {
		root.Children = append(root.Children, convert(p))
	}
	return root, nil
}

// Walk visits n and its descendants in pre-order. parent is nil for n.
// Walk stops at the first error returned by fn.
func Walk(n *Node, fn func(node, parent *Node, position int) error) error {
	var visit func(node, parent *Node, position int) error
	visit = func(node, parent *Node, position int) error {
		if err := fn(node, parent, position); err != nil {
			return err
		}
		for i, child := range node.Children {
			if err := visit(child, node, i); err != nil {
				return err
			}
		}
		return nil
	}
	if n == nil {
		return nil
	}
	return visit(n, nil, 0)
}

// Count returns the number of nodes in the tree rooted at n, root included.
func Count(n *Node) int {
	count := 0
	_ = Walk(n, func(*Node, *Node, int) error {
		count++
		return nil
	})
	return count
}

// Render draws the tree below root as text. The root itself is labelled
// with title.
func Render(title string, root *Node) string {
	tree := gotree.New(title)
	var add func(parent gotree.Tree, n *Node)
	add = func(parent gotree.Tree, n *Node) {
		for _, child := range n.Children {
			add(parent.Add(label(child)), child)
		}
	}
	if root != nil {
		add(tree, root)
	}
	return tree.Print()
}

// label is the first line of a card, prefixed with its id.
func label(n *Node) string {
	first, _, _ := strings.Cut(n.Content, "\n")
	return fmt.Sprintf("[%s] %s", n.ID, first)
}
