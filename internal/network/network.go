// Package network holds the diagnostic causal graph: Disease, Symptom and Risk nodes
// joined by parent edges, each node carrying a two-element leak parameter.
//
// A Network is logically immutable once built. The only way to derive a modified
// graph is Twin, which returns an independent copy with exactly one node pinned.
// Networks are therefore safe to share across goroutines without locking.
package network

import (
	"fmt"
	"maps"
	"slices"
)

// Label tags the role of a node in the diagnostic graph.
type Label string

const (
	LabelDisease Label = "Disease"
	LabelSymptom Label = "Symptom"
	LabelRisk    Label = "Risk"
)

// Valid reports whether l is one of the known node labels.
func (l Label) Valid() bool {
	switch l {
	case LabelDisease, LabelSymptom, LabelRisk:
		return true
	}
	return false
}

// CPT is the node parameter pair [p_absent_baseline, p_present_forced].
// The first element is the leak used by the noisy-OR rule when this node acts as
// a parent: link strength is 1 - Leak().
type CPT [2]float64

// DefaultCPT is applied to nodes that do not declare a parameter pair.
var DefaultCPT = CPT{1.0, 0.0}

var (
	disabledCPT = CPT{1.0, 0.0}
	forcedCPT   = CPT{0.0, 1.0}
)

// Leak returns the baseline (absent) probability.
func (c CPT) Leak() float64 { return c[0] }

func (c CPT) valid() bool {
	for _, p := range c {
		if p < 0 || p > 1 || p != p {
			return false
		}
	}
	return true
}

// Intervention pins a node's generative behaviour in a twin network.
type Intervention uint8

const (
	InterventionNone Intervention = iota
	// InterventionDisable pins the node to always absent.
	InterventionDisable
	// InterventionForce pins the node to always present.
	InterventionForce
)

func (i Intervention) String() string {
	switch i {
	case InterventionNone:
		return "none"
	case InterventionDisable:
		return "disable"
	case InterventionForce:
		return "force"
	default:
		return "unknown"
	}
}

// PinnedState returns the value the intervention asserts for the node and whether
// the node is pinned at all.
func (i Intervention) PinnedState() (float64, bool) {
	switch i {
	case InterventionDisable:
		return 0, true
	case InterventionForce:
		return 1, true
	}
	return 0, false
}

// Node is a single vertex of the causal graph. Parents are ordered; edges point
// parent -> node.
type Node struct {
	ID      string
	Name    string
	Label   Label
	Parents []string
	CPT     CPT
	// Pinned is set only on twin networks, on the intervened node.
	Pinned Intervention
}

func (n Node) clone() Node {
	n.Parents = slices.Clone(n.Parents)
	return n
}

// Network is a named mapping from node id to Node with a stable natural order
// (declaration order). Label views are computed once at construction.
type Network struct {
	name  string
	order []string
	nodes map[string]Node

	diseases []string
	symptoms []string
	risks    []string
}

// New builds a network from nodes in declaration order. It rejects empty and
// duplicate ids; structural checks on edges and parameters are done by Validate.
func New(name string, nodes []Node) (*Network, error) {
	n := &Network{
		name:  name,
		order: make([]string, 0, len(nodes)),
		nodes: make(map[string]Node, len(nodes)),
	}
	for _, node := range nodes {
		if node.ID == "" {
			return nil, malformedf(name, "", "node with empty id")
		}
		if _, dup := n.nodes[node.ID]; dup {
			return nil, malformedf(name, node.ID, "duplicate node id")
		}
		n.order = append(n.order, node.ID)
		n.nodes[node.ID] = node.clone()
	}
	n.index()
	return n, nil
}

// MustNew is New for literals in tests and fixtures; it panics on error.
func MustNew(name string, nodes []Node) *Network {
	n, err := New(name, nodes)
	if err != nil {
		panic(err)
	}
	return n
}

func (n *Network) index() {
	n.diseases, n.symptoms, n.risks = nil, nil, nil
	for _, id := range n.order {
		switch n.nodes[id].Label {
		case LabelDisease:
			n.diseases = append(n.diseases, id)
		case LabelSymptom:
			n.symptoms = append(n.symptoms, id)
		case LabelRisk:
			n.risks = append(n.risks, id)
		}
	}
}

// Name returns the network name.
func (n *Network) Name() string { return n.name }

// Len returns the number of nodes.
func (n *Network) Len() int { return len(n.order) }

// IDs returns all node ids in natural order.
func (n *Network) IDs() []string { return slices.Clone(n.order) }

// Node returns a copy of the node record for id.
func (n *Network) Node(id string) (Node, bool) {
	node, ok := n.nodes[id]
	if !ok {
		return Node{}, false
	}
	return node.clone(), true
}

// Nodes returns copies of every node in natural order.
func (n *Network) Nodes() []Node {
	out := make([]Node, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.nodes[id].clone())
	}
	return out
}

// Has reports whether id is a node of the network.
func (n *Network) Has(id string) bool {
	_, ok := n.nodes[id]
	return ok
}

// Labeled returns all node ids whose label equals l, in natural order.
func (n *Network) Labeled(l Label) []string {
	switch l {
	case LabelDisease:
		return slices.Clone(n.diseases)
	case LabelSymptom:
		return slices.Clone(n.symptoms)
	case LabelRisk:
		return slices.Clone(n.risks)
	}
	return nil
}

// Unlabeled returns the ids of nodes whose label is not Disease, Symptom or
// Risk, in natural order. Such nodes get no belief of their own; children still
// read their evidence.
func (n *Network) Unlabeled() []string {
	var out []string
	for _, id := range n.order {
		if !n.nodes[id].Label.Valid() {
			out = append(out, id)
		}
	}
	return out
}

func (n *Network) Diseases() []string { return n.Labeled(LabelDisease) }
func (n *Network) Symptoms() []string { return n.Labeled(LabelSymptom) }
func (n *Network) Risks() []string    { return n.Labeled(LabelRisk) }

// parents exposes the internal parent slice to this package's readers without a copy.
func (n *Network) parents(id string) []string { return n.nodes[id].Parents }

// VisitParents calls fn for each parent of id in declared order with the
// parent's id, parameter pair and intervention. Parents missing from the network
// are reported with ok=false. The callback must not retain anything.
func (n *Network) VisitParents(id string, fn func(parent string, cpt CPT, pinned Intervention, ok bool)) {
	for _, p := range n.nodes[id].Parents {
		pn, ok := n.nodes[p]
		fn(p, pn.CPT, pn.Pinned, ok)
	}
}

// Twin returns a structural copy of the network with target's parameter pair
// overwritten: disable pins [1, 0], force pins [0, 1]. An unknown target yields a
// plain copy, tolerating id mismatches between vignettes and networks. The
// receiver is never modified.
func (n *Network) Twin(target string, mode Intervention) *Network {
	twin := &Network{
		name:     n.name,
		order:    slices.Clone(n.order),
		nodes:    make(map[string]Node, len(n.nodes)),
		diseases: slices.Clone(n.diseases),
		symptoms: slices.Clone(n.symptoms),
		risks:    slices.Clone(n.risks),
	}
	for id, node := range n.nodes {
		twin.nodes[id] = node.clone()
	}

	node, ok := twin.nodes[target]
	if !ok || mode == InterventionNone {
		return twin
	}
	switch mode {
	case InterventionDisable:
		node.CPT = disabledCPT
	case InterventionForce:
		node.CPT = forcedCPT
	}
	node.Pinned = mode
	twin.nodes[target] = node
	return twin
}

// Equal reports structural equality of two networks, including order.
func (n *Network) Equal(o *Network) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.name != o.name || !slices.Equal(n.order, o.order) {
		return false
	}
	return maps.EqualFunc(n.nodes, o.nodes, func(a, b Node) bool {
		return a.ID == b.ID && a.Name == b.Name && a.Label == b.Label &&
			a.CPT == b.CPT && a.Pinned == b.Pinned && slices.Equal(a.Parents, b.Parents)
	})
}

func (n *Network) String() string {
	return fmt.Sprintf("network %q (%d nodes: %d diseases, %d symptoms, %d risks)",
		n.name, len(n.order), len(n.diseases), len(n.symptoms), len(n.risks))
}
