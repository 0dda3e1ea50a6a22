// Package inference computes per-node beliefs over a causal network with a
// noisy-OR rule under continuous evidence, and counterfactual disablement and
// sufficiency scores from single-node twin networks.
//
// Beliefs are local approximations: a node only looks one hop up at its direct
// parents. No joint distribution is built.
package inference

import (
	"fmt"
	"math"

	"github.com/AbdouB/twindx/internal/evidence"
	"github.com/AbdouB/twindx/internal/network"
)

// Epsilon is added to every non-causation factor before the product so a factor
// of exactly zero cannot collapse the product. It is a numerical-stability term
// only; it is applied uniformly and does not change disease rankings.
const Epsilon = 1e-9

// Propagation selects where a parent's activation comes from.
type Propagation string

const (
	// PropagationLeaf reads each parent's raw evidence; parents without
	// evidence are inactive.
	PropagationLeaf Propagation = "leaf"
	// PropagationFull feeds the larger of the parent's evidence and its
	// already-computed belief, so an absent parent passes its belief on and
	// explicit evidence can only raise what children see.
	PropagationFull Propagation = "propagate"
)

// ParsePropagation validates a propagation mode name. Empty means leaf.
func ParsePropagation(s string) (Propagation, error) {
	switch Propagation(s) {
	case "", PropagationLeaf:
		return PropagationLeaf, nil
	case PropagationFull:
		return PropagationFull, nil
	}
	return "", fmt.Errorf("unknown propagation %q (want leaf or propagate)", s)
}

// Cause is one parent's contribution to a noisy-OR: the parent's leak (first
// cpt element) and its activation.
type Cause struct {
	Leak       float64
	Activation float64
}

// NonCausation is the probability that a parent with the given leak and
// activation fails to cause its child: leak^activation. It is 1 for activation
// <= 0 and non-increasing in activation; at activation 1 it equals 1 - s where
// s = 1 - leak is the link strength, the classical noisy-OR factor.
func NonCausation(leak, activation float64) float64 {
	if activation <= 0 || math.IsNaN(activation) {
		return 1
	}
	return math.Pow(clamp01(leak), activation)
}

// NoisyOR combines causes with the product rule:
//
//	1 - prod(q_p + Epsilon)
//
// clamped to [0, 1]. No causes means no activation and yields 0.
func NoisyOR(causes []Cause) float64 {
	if len(causes) == 0 {
		return 0
	}
	prod := 1.0
	for _, c := range causes {
		prod *= NonCausation(c.Leak, c.Activation) + Epsilon
	}
	return clamp01(1 - prod)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0 || math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	}
	return x
}

// Belief returns the belief of a single node under leaf propagation: parents'
// raw evidence combined with NoisyOR, risk nodes passing their evidence through.
func Belief(net *network.Network, id string, ev evidence.Vector) float64 {
	return newEvaluator(net, ev, PropagationLeaf).belief(id)
}

// evaluator computes beliefs for one (network, evidence) pair. It is not shared
// across goroutines; each call site builds its own.
type evaluator struct {
	net  *network.Network
	ev   evidence.Vector
	mode Propagation

	memo     map[string]float64
	visiting map[string]bool
}

func newEvaluator(net *network.Network, ev evidence.Vector, mode Propagation) *evaluator {
	e := &evaluator{net: net, ev: ev, mode: mode}
	if mode == PropagationFull {
		e.memo = make(map[string]float64)
		e.visiting = make(map[string]bool)
	}
	return e
}

// belief returns the node's own belief. Pinned nodes report their pinned state;
// risk nodes report their evidence clamped to [0, 1].
func (e *evaluator) belief(id string) float64 {
	node, ok := e.net.Node(id)
	if !ok {
		return 0
	}
	if state, pinned := node.Pinned.PinnedState(); pinned {
		return state
	}
	if node.Label == network.LabelRisk {
		return clamp01(e.ev.Get(id))
	}
	if !node.Label.Valid() {
		return 0
	}

	if e.memo != nil {
		if v, ok := e.memo[id]; ok {
			return v
		}
		if e.visiting[id] {
			// Cycle guard; validated networks never reach this.
			return 0
		}
		e.visiting[id] = true
		defer delete(e.visiting, id)
	}

	causes := make([]Cause, 0, len(node.Parents))
	e.net.VisitParents(id, func(parent string, cpt network.CPT, pinned network.Intervention, ok bool) {
		if !ok {
			return
		}
		causes = append(causes, Cause{Leak: cpt.Leak(), Activation: e.activation(parent, pinned)})
	})
	v := NoisyOR(causes)

	if e.memo != nil {
		e.memo[id] = v
	}
	return v
}

// activation is the value a parent feeds into its children's noisy-OR. It is
// non-decreasing in every evidence value in both modes; absent evidence and an
// explicit 0 give the same activation.
func (e *evaluator) activation(id string, pinned network.Intervention) float64 {
	if state, ok := pinned.PinnedState(); ok {
		return state
	}
	v := e.ev.Get(id)
	if e.mode == PropagationFull {
		return math.Max(v, e.belief(id))
	}
	return v
}
