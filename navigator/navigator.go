// Package navigator computes the displayed root-to-leaf path of a branching
// conversation and moves the active leaf between sibling variants.
package navigator

import (
	"fmt"

	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
	"go_branch_chat/pkg/logging"
)

const (
	Previous = -1
	Next     = 1
)

// Tree is the synchronous part of the conversation service contract.
type Tree interface {
	GetCurrentPath() ([]models.ConversationNode, error)
	GetChildNodes(nodeID string) ([]string, error)
	SwitchToNode(nodeID string) error
	GetCurrentNodeID() string
	GetRootNodeID() string
}

// Navigator holds only a snapshot of the current path. Every mutation goes
// through the tree and is followed by a fresh fetch; no pointers into the
// service's graph are retained.
type Navigator struct {
	tree Tree
	path []models.ConversationNode
}

func New(tree Tree) *Navigator {
	return &Navigator{tree: tree}
}

// Refresh re-fetches the path. On failure the last known-good path is kept.
func (n *Navigator) Refresh() error {
	path, err := n.tree.GetCurrentPath()
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail Refresh")
		return apperr.Unavailable(err, "get current path")
	}
	n.path = models.ClonePath(path)
	return nil
}

// Path returns a copy of the current root-to-leaf chain, root first.
func (n *Navigator) Path() []models.ConversationNode {
	return models.ClonePath(n.path)
}

// Node looks a node up in the current path.
func (n *Navigator) Node(nodeID string) (models.ConversationNode, bool) {
	if i := n.indexOf(nodeID); i >= 0 {
		return n.path[i].Clone(), true
	}
	return models.ConversationNode{}, false
}

func (n *Navigator) indexOf(nodeID string) int {
	if nodeID == "" {
		return -1
	}
	for i := range n.path {
		if n.path[i].ID == nodeID {
			return i
		}
	}
	return -1
}

// siblings returns the parent's ordered child ids. It prefers the parent
// snapshot in the path and falls back to asking the tree.
func (n *Navigator) siblings(node models.ConversationNode) ([]string, error) {
	if i := n.indexOf(node.ParentID); i >= 0 {
		return n.path[i].ChildIDs, nil
	}
	children, err := n.tree.GetChildNodes(node.ParentID)
	if err != nil {
		return nil, err
	}
	return children, nil
}

// VariantPosition locates nodeID among its parent's children. A root is
// defined as variant 0 of 1.
func (n *Navigator) VariantPosition(nodeID string) (index, total int, err error) {
	node, ok := n.Node(nodeID)
	if !ok {
		return 0, 0, apperr.NodeNotFound(nodeID)
	}
	if node.ParentID == "" {
		return 0, 1, nil
	}
	siblings, err := n.siblings(node)
	if err != nil {
		return 0, 0, err
	}
	for i, id := range siblings {
		if id == nodeID {
			return i, len(siblings), nil
		}
	}
	return 0, 0, apperr.NodeNotFound(nodeID)
}

// VariantLabel formats the position as "i/n" with a 1-based index.
func (n *Navigator) VariantLabel(nodeID string) string {
	index, total, err := n.VariantPosition(nodeID)
	if err != nil || total == 0 {
		return "1/1"
	}
	return fmt.Sprintf("%d/%d", index+1, total)
}

func (n *Navigator) CanSwitchVariant(nodeID string, direction int) bool {
	_, err := n.siblingAt(nodeID, direction)
	return err == nil
}

func (n *Navigator) siblingAt(nodeID string, direction int) (string, error) {
	if direction != Previous && direction != Next {
		return "", apperr.Invalid(fmt.Sprintf("direction %d", direction))
	}
	node, ok := n.Node(nodeID)
	if !ok {
		return "", apperr.NodeNotFound(nodeID)
	}
	if node.ParentID == "" {
		return "", apperr.Invalid("root has no variants")
	}
	index, total, err := n.VariantPosition(nodeID)
	if err != nil {
		return "", err
	}
	target := index + direction
	if target < 0 || target >= total {
		return "", apperr.Invalid("no variant in that direction")
	}
	siblings, err := n.siblings(node)
	if err != nil {
		return "", err
	}
	return siblings[target], nil
}

// LeftmostDescendant follows child index 0 from nodeID until a childless
// node is reached.
func (n *Navigator) LeftmostDescendant(nodeID string) (string, error) {
	current := nodeID
	seen := map[string]bool{}
	for {
		if seen[current] {
			return "", apperr.Invalid(fmt.Sprintf("cycle at node %q", current))
		}
		seen[current] = true
		children, err := n.tree.GetChildNodes(current)
		if err != nil {
			return "", err
		}
		if len(children) == 0 {
			return current, nil
		}
		current = children[0]
	}
}

// SwitchVariant activates the latest continuation of the sibling next to
// nodeID in the given direction.
func (n *Navigator) SwitchVariant(nodeID string, direction int) error {
	sibling, err := n.siblingAt(nodeID, direction)
	if err != nil {
		return err
	}
	leaf, err := n.LeftmostDescendant(sibling)
	if err != nil {
		logging.Logger.Error().Err(err).Str("node_id", sibling).Msg("fail SwitchVariant")
		return err
	}
	return n.SwitchToNode(leaf)
}

// SwitchToNode makes nodeID the active leaf and refreshes the path.
func (n *Navigator) SwitchToNode(nodeID string) error {
	if nodeID == "" {
		return apperr.NodeNotFound(nodeID)
	}
	if err := n.tree.SwitchToNode(nodeID); err != nil {
		logging.Logger.Error().Err(err).Str("node_id", nodeID).Msg("fail SwitchToNode")
		return err
	}
	return n.Refresh()
}

// SlicePathFrom returns the suffix of the path starting at nodeID, or the
// whole path when nodeID is not on it.
func (n *Navigator) SlicePathFrom(nodeID string) []models.ConversationNode {
	return SliceFrom(n.path, nodeID)
}

// SliceFrom is SlicePathFrom over an arbitrary path.
func SliceFrom(path []models.ConversationNode, nodeID string) []models.ConversationNode {
	for i := range path {
		if path[i].ID == nodeID {
			return models.ClonePath(path[i:])
		}
	}
	return models.ClonePath(path)
}
