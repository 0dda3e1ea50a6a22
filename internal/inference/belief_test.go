package inference

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouB/twindx/internal/evidence"
	"github.com/AbdouB/twindx/internal/network"
)

// simpleNetwork is one disease D with one symptom S.
func simpleNetwork() *network.Network {
	return network.MustNew("simple", []network.Node{
		{ID: "D", Label: network.LabelDisease, CPT: network.CPT{0.9, 0.1}},
		{ID: "S", Label: network.LabelSymptom, Parents: []string{"D"}, CPT: network.CPT{0.8, 0.2}},
	})
}

// fanInNetwork has a symptom with several disease and risk parents.
func fanInNetwork() *network.Network {
	return network.MustNew("fan-in", []network.Node{
		{ID: "R1", Label: network.LabelRisk, CPT: network.CPT{0.6, 0.4}},
		{ID: "D1", Label: network.LabelDisease, Parents: []string{"R1"}, CPT: network.CPT{0.7, 0.3}},
		{ID: "D2", Label: network.LabelDisease, CPT: network.CPT{0.5, 0.5}},
		{ID: "D3", Label: network.LabelDisease, Parents: []string{"R1"}, CPT: network.CPT{0.99, 0.01}},
		{ID: "S1", Label: network.LabelSymptom, Parents: []string{"D1", "D2", "D3"}, CPT: network.CPT{0.8, 0.2}},
		{ID: "S2", Label: network.LabelSymptom, Parents: []string{"D2", "R1"}, CPT: network.CPT{0.8, 0.2}},
	})
}

func TestNonCausation(t *testing.T) {
	assert.Equal(t, 1.0, NonCausation(0.3, 0))
	assert.Equal(t, 1.0, NonCausation(0.3, -1))
	assert.Equal(t, 1.0, NonCausation(0.3, math.NaN()))
	assert.InDelta(t, 0.3, NonCausation(0.3, 1), 1e-12)
	assert.Equal(t, 0.0, NonCausation(0, 1))
	assert.Equal(t, 1.0, NonCausation(1, 5))
	assert.Less(t, NonCausation(0.3, 1.2), NonCausation(0.3, 1))
}

func TestNoisyOR(t *testing.T) {
	assert.Equal(t, 0.0, NoisyOR(nil), "no parents means no activation")

	got := NoisyOR([]Cause{{Leak: 0.9, Activation: 1}})
	assert.InDelta(t, 0.1, got, 1e-8)

	got = NoisyOR([]Cause{{Leak: 0.5, Activation: 1}, {Leak: 0.5, Activation: 1}})
	assert.InDelta(t, 0.75, got, 1e-8)

	assert.Equal(t, 0.0, NoisyOR([]Cause{{Leak: 1, Activation: 1}}), "epsilon never pushes below zero")
	assert.InDelta(t, 1.0, NoisyOR([]Cause{{Leak: 0, Activation: 1}}), 1e-8)
}

func TestBelief_ParentlessNodesAreZero(t *testing.T) {
	net := fanInNetwork()
	ev := evidence.Vector{"D2": 1.2, "R1": 5}

	assert.Equal(t, 0.0, Belief(net, "D2", ev))
}

func TestBelief_RiskPassthrough(t *testing.T) {
	net := fanInNetwork()

	assert.Equal(t, 0.0, Belief(net, "R1", nil))
	assert.Equal(t, 0.4, Belief(net, "R1", evidence.Vector{"R1": 0.4}))
	assert.Equal(t, 1.0, Belief(net, "R1", evidence.Vector{"R1": 5}))
}

func TestBelief_UnknownNode(t *testing.T) {
	assert.Equal(t, 0.0, Belief(simpleNetwork(), "ghost", nil))
}

func TestBelief_Bounds(t *testing.T) {
	net := fanInNetwork()
	rng := rand.New(rand.NewPCG(1, 2))

	for range 500 {
		ev := evidence.Vector{}
		for _, id := range net.IDs() {
			if rng.IntN(3) > 0 {
				ev[id] = rng.Float64() * 1.2
			}
		}
		for _, mode := range []Propagation{PropagationLeaf, PropagationFull} {
			for id, b := range Posterior(net, ev, mode) {
				require.GreaterOrEqual(t, b, 0.0, "node %s mode %s", id, mode)
				require.LessOrEqual(t, b, 1.0, "node %s mode %s", id, mode)
			}
		}
	}
}

func TestBelief_MonotoneInParentEvidence(t *testing.T) {
	net := fanInNetwork()
	rng := rand.New(rand.NewPCG(7, 11))
	parents := []string{"D1", "D2", "D3", "R1"}

	for i := range 1500 {
		ev := evidence.Vector{}
		for _, id := range net.IDs() {
			if rng.IntN(3) > 0 {
				ev[id] = rng.Float64() * 1.2
			}
		}
		parent := parents[rng.IntN(len(parents))]
		// Start the raised parent absent, at an explicit 0, or at a random value.
		switch i % 3 {
		case 0:
			delete(ev, parent)
		case 1:
			ev[parent] = 0
		}

		for _, mode := range []Propagation{PropagationLeaf, PropagationFull} {
			before := Posterior(net, ev, mode)

			raised := evidence.Vector{}
			for k, v := range ev {
				raised[k] = v
			}
			raised[parent] += rng.Float64()
			after := Posterior(net, raised, mode)

			for _, sym := range net.Symptoms() {
				require.GreaterOrEqual(t, after[sym], before[sym],
					"raising %s lowered %s under %s", parent, sym, mode)
			}
		}
	}
}

func TestBelief_AbsentAndZeroEvidenceAgree(t *testing.T) {
	net := fanInNetwork()

	for _, mode := range []Propagation{PropagationLeaf, PropagationFull} {
		absent := Posterior(net, evidence.Vector{"R1": 5}, mode)
		zero := Posterior(net, evidence.Vector{"R1": 5, "D1": 0}, mode)
		assert.Equal(t, absent, zero, "mode %s", mode)
	}
}

func TestBelief_PropagateWeakEvidenceKeepsBelief(t *testing.T) {
	net := fanInNetwork()

	before := Posterior(net, evidence.Vector{"R1": 5}, PropagationFull)
	after := Posterior(net, evidence.Vector{"R1": 5, "D1": 0.1}, PropagationFull)

	require.Greater(t, before["S1"], 0.2)
	assert.GreaterOrEqual(t, after["S1"], before["S1"])
	assert.Equal(t, before["S2"], after["S2"])
}

func TestParsePropagation(t *testing.T) {
	p, err := ParsePropagation("")
	require.NoError(t, err)
	assert.Equal(t, PropagationLeaf, p)

	p, err = ParsePropagation("propagate")
	require.NoError(t, err)
	assert.Equal(t, PropagationFull, p)

	_, err = ParsePropagation("junction-tree")
	assert.Error(t, err)
}
