package inference

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AbdouB/twindx/internal/evidence"
	"github.com/AbdouB/twindx/internal/models"
	"github.com/AbdouB/twindx/internal/network"
)

// Direction selects which counterfactual score is computed.
type Direction uint8

const (
	// Disablement sums symptom belief lost when a disease is disabled.
	Disablement Direction = iota
	// Sufficiency sums symptom belief gained when a disease is forced present.
	Sufficiency
)

func (d Direction) String() string { return string(d.Method()) }

// Method returns the result method the direction fills.
func (d Direction) Method() models.Method {
	if d == Sufficiency {
		return models.MethodSufficiency
	}
	return models.MethodDisablement
}

// Intervention returns the twin intervention applied to each candidate.
func (d Direction) Intervention() network.Intervention {
	if d == Sufficiency {
		return network.InterventionForce
	}
	return network.InterventionDisable
}

// delta returns the contribution of one symptom: only movement in the
// direction of the metric counts.
func (d Direction) delta(original, twin float64) float64 {
	diff := original - twin
	if d == Sufficiency {
		diff = twin - original
	}
	if diff < 0 {
		return 0
	}
	return diff
}

// Options configures a Scorer.
type Options struct {
	Propagation Propagation
	// Normalize scales the posterior over diseases to sum to 1.
	Normalize bool
	// Workers bounds concurrent twin evaluations per score pass. Zero means
	// runtime.NumCPU(); 1 scores sequentially.
	Workers int
}

// Scorer computes posteriors and counterfactual scores. It keeps no state
// between calls and is safe for concurrent use.
type Scorer struct {
	opts   Options
	logger *slog.Logger
}

// NewScorer returns a Scorer. A nil logger falls back to slog.Default().
func NewScorer(opts Options, logger *slog.Logger) *Scorer {
	if opts.Propagation == "" {
		opts.Propagation = PropagationLeaf
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{opts: opts, logger: logger}
}

// Options returns the effective options.
func (s *Scorer) Options() Options { return s.opts }

// Posterior computes beliefs for every node of net. An empty result is logged
// as a warning.
func (s *Scorer) Posterior(net *network.Network, ev evidence.Vector) Beliefs {
	b := Posterior(net, ev, s.opts.Propagation)
	if len(b) == 0 {
		emptyPosteriorTotal.Inc()
		s.logger.Warn("posterior produced no scores", slog.String("network", net.Name()))
	}
	return b
}

// Disablement scores each disease by the symptom belief that disappears when the
// disease is disabled in a twin network.
func (s *Scorer) Disablement(ctx context.Context, net *network.Network, ev evidence.Vector, diseases, symptoms []string) (models.ScoreMap, error) {
	return s.Score(ctx, net, ev, Disablement, diseases, symptoms)
}

// Sufficiency scores each disease by the symptom belief that appears when the
// disease is forced present in a twin network.
func (s *Scorer) Sufficiency(ctx context.Context, net *network.Network, ev evidence.Vector, diseases, symptoms []string) (models.ScoreMap, error) {
	return s.Score(ctx, net, ev, Sufficiency, diseases, symptoms)
}

// Score builds one twin per disease and sums the positive symptom-belief deltas
// between the original and the twin. Scores are >= 0 and exactly 0 when the
// intervention moves no symptom. Candidates are evaluated concurrently; each task
// owns its twin, so no locking is needed.
func (s *Scorer) Score(ctx context.Context, net *network.Network, ev evidence.Vector, dir Direction, diseases, symptoms []string) (models.ScoreMap, error) {
	start := time.Now()
	defer func() {
		scoreDuration.WithLabelValues(dir.String()).Observe(time.Since(start).Seconds())
	}()

	original := PosteriorOf(net, ev, s.opts.Propagation, symptoms)
	mode := dir.Intervention()
	scores := make([]float64, len(diseases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, d := range diseases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			twin := net.Twin(d, mode)
			twinBuildsTotal.WithLabelValues(mode.String()).Inc()
			cf := PosteriorOf(twin, ev, s.opts.Propagation, symptoms)

			var total float64
			for _, sym := range symptoms {
				total += dir.delta(original[sym], cf[sym])
			}
			scores[i] = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(models.ScoreMap, len(diseases))
	for i, d := range diseases {
		out[d] = scores[i]
		s.logger.Debug("counterfactual score",
			slog.String("direction", dir.String()),
			slog.String("disease", d),
			slog.Float64("score", scores[i]))
	}
	return out, nil
}

// Evaluate produces the full result bundle for one evidence vector: the disease
// posterior (normalised when configured) and both counterfactual scores over all
// diseases and symptoms of net.
func (s *Scorer) Evaluate(ctx context.Context, net *network.Network, ev evidence.Vector) (models.Bundle, error) {
	diseases := net.Diseases()
	symptoms := net.Symptoms()

	beliefs := s.Posterior(net, ev)
	var bundle models.Bundle
	if s.opts.Normalize {
		bundle.Posterior = Normalize(beliefs, diseases)
	} else {
		bundle.Posterior = Restrict(beliefs, diseases)
	}

	var err error
	if bundle.Disablement, err = s.Disablement(ctx, net, ev, diseases, symptoms); err != nil {
		return models.Bundle{}, err
	}
	if bundle.Sufficiency, err = s.Sufficiency(ctx, net, ev, diseases, symptoms); err != nil {
		return models.Bundle{}, err
	}
	return bundle, nil
}

// Audit returns the data-quality warnings for a bundle: empty score maps and a
// ground-truth disease missing from a map. An empty trueID skips the
// ground-truth check.
func Audit(vignetteID string, bundle models.Bundle, trueID string) []models.DataWarning {
	var out []models.DataWarning
	for _, m := range models.Methods {
		scores := bundle.Scores(m)
		if len(scores) == 0 {
			out = append(out, models.DataWarning{
				VignetteID: vignetteID, Kind: models.WarningEmptyScores, Method: m,
			})
		}
		if trueID == "" {
			continue
		}
		if _, ok := scores[trueID]; !ok {
			out = append(out, models.DataWarning{
				VignetteID: vignetteID, Kind: models.WarningMissingGroundTruth, Method: m, DiseaseID: trueID,
			})
		}
	}
	return out
}
