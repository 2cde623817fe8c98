// Package tree implements the static decision tree that drives ticket
// resolution: O(1) node lookup, deterministic path derivation from a
// selection map, and pruning of selections left unreachable by an
// ancestor change.
package tree

import (
	"fmt"

	"github.com/tud-hci/ticketlab/internal/model"
)

// Tree is a validated decision tree. Immutable after construction; safe
// for concurrent use.
type Tree struct {
	rootID string
	nodes  map[string]model.TreeNode
}

// New validates the graph and returns a Tree. The invariants checked
// here are authoring invariants: the root resolves, every decision
// option's next resolves, and every path from the root reaches an
// outcome node (no cycles, no dead ends).
func New(dt model.DecisionTree) (*Tree, error) {
	t := &Tree{rootID: dt.RootID, nodes: dt.Nodes}

	root, ok := t.nodes[dt.RootID]
	if !ok {
		return nil, fmt.Errorf("tree: root node %q not found", dt.RootID)
	}
	if root.Type != model.NodeDecision {
		return nil, fmt.Errorf("tree: root node %q must be a decision node", dt.RootID)
	}

	for id, node := range t.nodes {
		if node.ID != id {
			return nil, fmt.Errorf("tree: node keyed %q declares id %q", id, node.ID)
		}
		switch node.Type {
		case model.NodeDecision:
			if len(node.Options) == 0 {
				return nil, fmt.Errorf("tree: decision node %q has no options", id)
			}
			for _, opt := range node.Options {
				if _, ok := t.nodes[opt.Next]; !ok {
					return nil, fmt.Errorf("tree: node %q option %q points to unknown node %q", id, opt.ID, opt.Next)
				}
			}
		case model.NodeOutcome:
			if len(node.Options) > 0 {
				return nil, fmt.Errorf("tree: outcome node %q must not have options", id)
			}
		default:
			return nil, fmt.Errorf("tree: node %q has unknown type %q", id, node.Type)
		}
	}

	// Every route from the root must terminate at an outcome node.
	// visiting doubles as the cycle check on the current DFS stack.
	visiting := make(map[string]bool)
	done := make(map[string]bool)
	if err := t.checkTerminates(dt.RootID, visiting, done); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Tree) checkTerminates(id string, visiting, done map[string]bool) error {
	if done[id] {
		return nil
	}
	if visiting[id] {
		return fmt.Errorf("tree: cycle detected through node %q", id)
	}
	node := t.nodes[id]
	if node.Type == model.NodeOutcome {
		done[id] = true
		return nil
	}
	visiting[id] = true
	for _, opt := range node.Options {
		if err := t.checkTerminates(opt.Next, visiting, done); err != nil {
			return err
		}
	}
	visiting[id] = false
	done[id] = true
	return nil
}

// RootID returns the id of the root decision node.
func (t *Tree) RootID() string { return t.rootID }

// Node looks up a node by id.
func (t *Tree) Node(id string) (model.TreeNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Path is the result of walking the tree along the selected route.
type Path struct {
	// Nodes is the ordered list of visited nodes, root first. When the
	// walk completes it ends with the outcome node.
	Nodes []model.TreeNode

	// OutcomeID is set only when the walk reached an outcome node.
	OutcomeID string
}

// Complete reports whether the path reached an outcome.
func (p Path) Complete() bool { return p.OutcomeID != "" }

// BuildPath walks from the root, resolving each decision node through
// the supplied selections. The walk stops at the first unselected
// decision, unknown option, or dangling next reference, returning the
// partial path with no outcome — never an error. The walk is pure and
// deterministic: it follows the single currently selected route and
// never explores alternative branches.
func (t *Tree) BuildPath(selections map[string]string) Path {
	var p Path
	currentID := t.rootID

	for {
		node, ok := t.nodes[currentID]
		if !ok {
			return p
		}
		p.Nodes = append(p.Nodes, node)

		if node.Type == model.NodeOutcome {
			p.OutcomeID = node.ID
			return p
		}

		selected, ok := selections[node.ID]
		if !ok {
			return p
		}
		opt, ok := findOption(node, selected)
		if !ok {
			return p
		}
		currentID = opt.Next
	}
}

// PruneSelections re-derives which selections remain reachable by
// replaying the tree from the root, silently dropping any selection for
// a node no longer on the live path. Idempotent.
func (t *Tree) PruneSelections(selections map[string]string) map[string]string {
	pruned := make(map[string]string)
	currentID := t.rootID

	for {
		node, ok := t.nodes[currentID]
		if !ok || node.Type != model.NodeDecision {
			return pruned
		}
		selected, ok := selections[node.ID]
		if !ok {
			return pruned
		}
		opt, ok := findOption(node, selected)
		if !ok {
			return pruned
		}
		pruned[node.ID] = selected
		currentID = opt.Next
	}
}

// Option resolves an option on a decision node.
func (t *Tree) Option(nodeID, optionID string) (model.TreeOption, bool) {
	node, ok := t.nodes[nodeID]
	if !ok {
		return model.TreeOption{}, false
	}
	return findOption(node, optionID)
}

func findOption(node model.TreeNode, optionID string) (model.TreeOption, bool) {
	for _, opt := range node.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return model.TreeOption{}, false
}
