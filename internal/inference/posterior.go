package inference

import (
	"github.com/AbdouB/twindx/internal/evidence"
	"github.com/AbdouB/twindx/internal/models"
	"github.com/AbdouB/twindx/internal/network"
)

// Beliefs maps node id to a belief in [0, 1]. A fresh map is built for every
// (network, evidence) pair.
type Beliefs map[string]float64

// Posterior applies the noisy-OR rule to every Disease and Symptom node and the
// evidence passthrough to every Risk node.
func Posterior(net *network.Network, ev evidence.Vector, mode Propagation) Beliefs {
	return PosteriorOf(net, ev, mode, net.IDs())
}

// PosteriorOf is Posterior restricted to ids. Unknown ids and nodes with labels
// other than Disease, Symptom or Risk are left out.
func PosteriorOf(net *network.Network, ev evidence.Vector, mode Propagation, ids []string) Beliefs {
	e := newEvaluator(net, ev, mode)
	out := make(Beliefs, len(ids))
	for _, id := range ids {
		node, ok := net.Node(id)
		if !ok || !node.Label.Valid() {
			continue
		}
		out[id] = e.belief(id)
	}
	return out
}

// Restrict copies the beliefs of ids into a score map. Ids without a belief are
// left out.
func Restrict(b Beliefs, ids []string) models.ScoreMap {
	out := make(models.ScoreMap, len(ids))
	for _, id := range ids {
		if v, ok := b[id]; ok {
			out[id] = v
		}
	}
	return out
}

// Normalize restricts b to ids and scales the values to sum to 1. When the total
// mass is not positive every value is 0.
func Normalize(b Beliefs, ids []string) models.ScoreMap {
	out := Restrict(b, ids)
	var total float64
	for _, v := range out {
		total += v
	}
	for id, v := range out {
		if total <= 0 {
			out[id] = 0
			continue
		}
		out[id] = v / total
	}
	return out
}
