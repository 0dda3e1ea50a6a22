// Package experiment runs the scoring engine over a batch of vignettes.
//
// Each vignette is resolved against its named network, turned into an evidence
// vector and scored. A vignette whose network is missing is skipped and
// recorded; it never aborts the batch. Output order always follows input order,
// whatever the worker count.
package experiment

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AbdouB/twindx/internal/dataset"
	"github.com/AbdouB/twindx/internal/evidence"
	"github.com/AbdouB/twindx/internal/inference"
	"github.com/AbdouB/twindx/internal/models"
)

// Options configures a Runner.
type Options struct {
	// First limits the run to the first N vignettes. Zero or negative means all.
	First int
	// Workers bounds the number of vignettes scored at once. Zero means
	// runtime.NumCPU().
	Workers int
}

// Summary is the outcome of one batch run.
type Summary struct {
	Run      *models.Run
	Results  []models.VignetteResult
	Skipped  []models.SkippedVignette
	Warnings []models.DataWarning
}

// Runner scores vignettes against a network set.
type Runner struct {
	scorer    *inference.Scorer
	extractor evidence.Extractor
	opts      Options
	logger    *slog.Logger
}

// NewRunner creates a runner. A nil logger falls back to slog.Default().
func NewRunner(scorer *inference.Scorer, extractor evidence.Extractor, opts Options, logger *slog.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{scorer: scorer, extractor: extractor, opts: opts, logger: logger}
}

// outcome is the per-vignette slot filled by exactly one worker.
type outcome struct {
	result   *models.VignetteResult
	skipped  *models.SkippedVignette
	warnings []models.DataWarning
}

// Run scores vignettes in order. Vignettes are annotated with numeric
// severities in place before scoring. The only errors returned are context
// cancellation and scorer failures; per-vignette data problems end up in the
// summary.
func (r *Runner) Run(ctx context.Context, nets *dataset.NetworkSet, vignettes []models.Vignette) (*Summary, error) {
	if r.opts.First > 0 && r.opts.First < len(vignettes) {
		vignettes = vignettes[:r.opts.First]
	}
	evidence.AnnotateSeverity(vignettes)

	run := models.NewRun()
	scorerOpts := r.scorer.Options()
	run.Propagation = string(scorerOpts.Propagation)
	run.Normalized = scorerOpts.Normalize
	run.RiskBoost = r.extractor.RiskBoost
	if run.RiskBoost == 0 {
		run.RiskBoost = evidence.DefaultRiskBoost
	}

	logger := r.logger.With(slog.String("run", run.RunID))
	logger.Info("starting run",
		slog.Int("vignettes", len(vignettes)),
		slog.Int("networks", nets.Len()),
		slog.String("propagation", run.Propagation),
		slog.Int("workers", r.opts.Workers))

	outcomes := make([]outcome, len(vignettes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range vignettes {
		v := vignettes[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o, err := r.score(gctx, logger, nets, v)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{Run: run}
	for _, o := range outcomes {
		switch {
		case o.skipped != nil:
			o.skipped.RunID = run.RunID
			sum.Skipped = append(sum.Skipped, *o.skipped)
		case o.result != nil:
			sum.Results = append(sum.Results, *o.result)
		}
		for _, w := range o.warnings {
			w.RunID = run.RunID
			sum.Warnings = append(sum.Warnings, w)
		}
	}
	run.Finish(len(sum.Results), len(sum.Skipped), len(sum.Warnings))

	logger.Info("run complete",
		slog.Int("scored", run.Scored),
		slog.Int("skipped", run.Skipped),
		slog.Int("warnings", run.Warnings),
		slog.Duration("elapsed", run.EndTime.Sub(run.StartTime)))
	return sum, nil
}

func (r *Runner) score(ctx context.Context, logger *slog.Logger, nets *dataset.NetworkSet, v models.Vignette) (outcome, error) {
	net, ok := nets.Get(v.Card.NetworkName)
	if !ok {
		err := &MissingNetworkError{VignetteID: v.ID, Network: v.Card.NetworkName}
		logger.Error("skipping vignette", slog.String("vignette", v.ID), slog.Any("error", err))
		vignettesTotal.WithLabelValues(outcomeSkipped).Inc()
		return outcome{skipped: &models.SkippedVignette{
			VignetteID: v.ID,
			Network:    v.Card.NetworkName,
			Reason:     err.Error(),
		}}, nil
	}

	start := time.Now()
	ev := r.extractor.Extract(v.Card)
	bundle, err := r.scorer.Evaluate(ctx, net, ev)
	if err != nil {
		return outcome{}, err
	}
	vignetteDuration.Observe(time.Since(start).Seconds())
	vignettesTotal.WithLabelValues(outcomeScored).Inc()

	var trueID string
	if truth, ok := v.Card.TrueDisease(); ok {
		trueID = truth.ID
	}
	warnings := inference.Audit(v.ID, bundle, trueID)
	for _, w := range warnings {
		warningsTotal.WithLabelValues(string(w.Kind)).Inc()
		logger.Warn("data quality",
			slog.String("vignette", w.VignetteID),
			slog.String("method", string(w.Method)),
			slog.String("disease", w.DiseaseID),
			slog.String("kind", string(w.Kind)))
	}

	return outcome{
		result:   &models.VignetteResult{VignetteID: v.ID, Network: net.Name(), Bundle: bundle},
		warnings: warnings,
	}, nil
}
