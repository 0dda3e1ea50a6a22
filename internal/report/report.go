// Package report computes evaluation statistics over scored vignettes: top-k
// hits, top-N accuracy curves, agreement with doctors' differentials and score
// distributions stratified by disease rareness.
package report

import (
	"math"
	"sort"

	"github.com/AbdouB/twindx/internal/models"
)

// DefaultTopN is the length of the top-N accuracy curve.
const DefaultTopN = 20

// UnknownRareness buckets ground-truth diseases without a rareness tag.
const UnknownRareness = "unknown"

// Ranked returns the ids of scores sorted by descending score. Ties are broken
// by id so rankings are reproducible.
func Ranked(scores models.ScoreMap) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// TopK returns 1 when trueID is among the k highest-scored predictions and 0
// otherwise, including when predictions is empty or lacks trueID.
func TopK(predictions models.ScoreMap, trueID string, k int) int {
	if len(predictions) == 0 {
		return 0
	}
	if _, ok := predictions[trueID]; !ok {
		return 0
	}
	ranked := Ranked(predictions)
	if k > len(ranked) {
		k = len(ranked)
	}
	for _, id := range ranked[:max(k, 0)] {
		if id == trueID {
			return 1
		}
	}
	return 0
}

// NormalizeMap scales values to sum to 1. When the total is not positive every
// value is 0.
func NormalizeMap(m models.ScoreMap) models.ScoreMap {
	var total float64
	for _, v := range m {
		total += v
	}
	out := make(models.ScoreMap, len(m))
	for id, v := range m {
		if total <= 0 {
			out[id] = 0
			continue
		}
		out[id] = v / total
	}
	return out
}

// TopNAccuracy returns, for k = 1..n, the fraction of vignettes whose true
// disease ranks within the top k under method. Vignettes without a ground truth,
// or whose score map lacks it, are not counted. With nothing counted the curve
// is all zeros.
func TopNAccuracy(results map[string]models.Bundle, vignettes map[string]models.CaseCard, method models.Method, n int) []float64 {
	curve := make([]float64, n)
	var total int
	for vid, bundle := range results {
		card, ok := vignettes[vid]
		if !ok {
			continue
		}
		truth, ok := card.TrueDisease()
		if !ok {
			continue
		}
		scores := bundle.Scores(method)
		if _, ok := scores[truth.ID]; !ok {
			continue
		}
		rank := rankOf(Ranked(scores), truth.ID)
		for k := rank; k < n; k++ {
			curve[k]++
		}
		total++
	}
	if total == 0 {
		return curve
	}
	for i := range curve {
		curve[i] /= float64(total)
	}
	return curve
}

func rankOf(ranked []string, id string) int {
	for i, r := range ranked {
		if r == id {
			return i
		}
	}
	return len(ranked)
}

// DoctorAgreement returns, per method, the fraction of scored vignettes whose
// top-1 disease appears in the union of the doctors' differentials. Vignettes
// with an empty score map count toward the total but never agree.
func DoctorAgreement(results map[string]models.Bundle, vignettes map[string]models.CaseCard) map[models.Method]float64 {
	correct := make(map[models.Method]int, len(models.Methods))
	var total int
	for vid, bundle := range results {
		card, ok := vignettes[vid]
		if !ok {
			continue
		}
		doctors := make(map[string]bool)
		for _, ids := range card.DoctorDifferentials() {
			for _, id := range ids {
				doctors[id] = true
			}
		}
		for _, m := range models.Methods {
			ranked := Ranked(bundle.Scores(m))
			if len(ranked) > 0 && doctors[ranked[0]] {
				correct[m]++
			}
		}
		total++
	}

	out := make(map[models.Method]float64, len(models.Methods))
	for _, m := range models.Methods {
		out[m] = 0
		if total > 0 {
			out[m] = float64(correct[m]) / float64(total)
		}
	}
	return out
}

// Stat is the population mean and standard deviation of a sample.
type Stat struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

func describe(xs []float64) Stat {
	if len(xs) == 0 {
		return Stat{}
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return Stat{Mean: mean, Std: math.Sqrt(ss / float64(len(xs))), Count: len(xs)}
}

// StratifyByRareness groups the true disease's score under method by the
// disease's rareness tag. Vignettes whose score map lacks the true disease are
// left out.
func StratifyByRareness(results map[string]models.Bundle, vignettes map[string]models.CaseCard, method models.Method) map[string]Stat {
	samples := make(map[string][]float64)
	for vid, bundle := range results {
		card, ok := vignettes[vid]
		if !ok {
			continue
		}
		truth, ok := card.TrueDisease()
		if !ok {
			continue
		}
		score, ok := bundle.Scores(method)[truth.ID]
		if !ok {
			continue
		}
		rareness := truth.Rareness
		if rareness == "" {
			rareness = UnknownRareness
		}
		samples[rareness] = append(samples[rareness], score)
	}

	out := make(map[string]Stat, len(samples))
	for r, xs := range samples {
		out[r] = describe(xs)
	}
	return out
}

// DoctorTopN returns, for one vignette, each doctor's hit vector: element k is 1
// when the true disease is within the doctor's first k+1 differential entries.
// Doctors are keyed by user id.
func DoctorTopN(card models.CaseCard, n int) map[string][]int {
	out := make(map[string][]int)
	truth, ok := card.TrueDisease()
	if !ok {
		return out
	}
	for doctor, ids := range card.DoctorDifferentials() {
		hits := make([]int, n)
		rank := rankOf(ids, truth.ID)
		for k := rank; k < n; k++ {
			hits[k] = 1
		}
		out[doctor] = hits
	}
	return out
}

// AverageTopN averages equal-length hit vectors position by position. No input
// yields n zeros.
func AverageTopN(vectors [][]int, n int) []float64 {
	out := make([]float64, n)
	if len(vectors) == 0 {
		return out
	}
	for _, v := range vectors {
		for k := 0; k < n && k < len(v); k++ {
			out[k] += float64(v[k])
		}
	}
	for k := range out {
		out[k] /= float64(len(vectors))
	}
	return out
}

// Summary bundles every statistic for a result set.
type Summary struct {
	Vignettes       int                               `json:"vignettes"`
	TopN            map[models.Method][]float64       `json:"top_n"`
	DoctorAgreement map[models.Method]float64         `json:"doctor_agreement"`
	DoctorTopN      []float64                         `json:"doctor_top_n"`
	Rareness        map[models.Method]map[string]Stat `json:"rareness"`
}

// Build computes the full summary with curves of length n.
func Build(results map[string]models.Bundle, vignettes map[string]models.CaseCard, n int) Summary {
	s := Summary{
		Vignettes:       len(results),
		TopN:            make(map[models.Method][]float64, len(models.Methods)),
		DoctorAgreement: DoctorAgreement(results, vignettes),
		Rareness:        make(map[models.Method]map[string]Stat, len(models.Methods)),
	}
	for _, m := range models.Methods {
		s.TopN[m] = TopNAccuracy(results, vignettes, m, n)
		s.Rareness[m] = StratifyByRareness(results, vignettes, m)
	}

	var doctorHits [][]int
	for vid := range results {
		card, ok := vignettes[vid]
		if !ok {
			continue
		}
		for _, hits := range DoctorTopN(card, n) {
			doctorHits = append(doctorHits, hits)
		}
	}
	s.DoctorTopN = AverageTopN(doctorHits, n)
	return s
}

// Cards indexes vignettes by id.
func Cards(vs []models.Vignette) map[string]models.CaseCard {
	out := make(map[string]models.CaseCard, len(vs))
	for _, v := range vs {
		out[v.ID] = v.Card
	}
	return out
}

// Bundles indexes results by vignette id.
func Bundles(results []models.VignetteResult) map[string]models.Bundle {
	out := make(map[string]models.Bundle, len(results))
	for _, r := range results {
		out[r.VignetteID] = r.Bundle
	}
	return out
}
