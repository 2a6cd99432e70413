package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ===========================================================================
// WHAT'S GOING ON HERE: The export pipeline
// ===========================================================================
//
// One job goes through these steps:
//
//   1. resolve the family and model config, apply values_override
//   2. build a NeuronConfig, compute the cache key
//   3. on a cache hit, stop (unless forced)
//   4. generate dummy inputs
//   5. wrap the model with CheckModelInputsOrder and trace one positional call
//   6. compare the traced outputs against a keyword reference call within atol
//   7. write the manifest atomically and index it in the cache
//
// Jobs are independent; RunJobs runs several at once. A NeuronConfig is never
// shared between goroutines.
//
// ===========================================================================

// ExportResult is the outcome of one job.
type ExportResult struct {
	Job          string
	RunID        string
	CacheKey     string
	Cached       bool
	ManifestPath string
	Manifest     *Manifest
}

// Exporter runs export jobs.
type Exporter struct {
	Cache  CacheStore // optional
	Force  bool       // re-export even on a cache hit
	Logger zerolog.Logger

	// NewModel builds the model to trace. Defaults to a ProbeModel.
	NewModel func(*NeuronConfig) (Model, error)
}

// ResolveJob builds the NeuronConfig for a job.
func ResolveJob(job Job, logger zerolog.Logger) (*NeuronConfig, error) {
	var cfg ModelConfig
	if job.ModelConfig != "" {
		loaded, err := LoadModelConfig(job.ModelConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	name := job.Family
	if name == "" {
		name = cfg.ModelType()
	}
	family, err := LookupFamily(name)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = maps.Clone(family.DefaultConfig)
	}

	task := job.Task
	if task == "" {
		task = DefaultTask
	}
	if !family.SupportsTask(task) {
		return nil, fmt.Errorf("%w: %s cannot be exported for %q", ErrUnsupportedTask, family.Name, task)
	}
	if len(family.ValuesOverride) > 0 {
		cfg = cfg.WithOverrides(family.ValuesOverride)
	}

	return NewNeuronConfig(family, cfg, Options{
		Task:             task,
		DynamicBatchSize: job.DynamicBatchSize,
		Shapes:           job.ShapesOrEmpty(),
		Seed:             job.Seed,
		Logger:           &logger,
	}), nil
}

// Run executes one job.
func (e *Exporter) Run(ctx context.Context, job Job) (res *ExportResult, err error) {
	runID := uuid.NewString()
	logger := e.Logger.With().Str("job", job.Name).Str("run_id", runID).Logger()
	start := time.Now()

	// Only registered family names become label values.
	family := "unknown"
	defer func() {
		exportDuration.WithLabelValues(family).Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			exportJobsTotal.WithLabelValues(family, "failed").Inc()
			exportFailuresTotal.WithLabelValues(failureKind(err)).Inc()
			logger.Error().Err(err).Msg("export failed")
		case res.Cached:
			exportJobsTotal.WithLabelValues(family, "cached").Inc()
		default:
			exportJobsTotal.WithLabelValues(family, "exported").Inc()
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nc, err := ResolveJob(job, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Name, err)
	}
	family = nc.Family().Name

	key, err := CacheKey(nc)
	if err != nil {
		return nil, err
	}
	res = &ExportResult{Job: job.Name, RunID: runID, CacheKey: key}

	outDir := job.OutputDir
	if outDir == "" {
		outDir = filepath.Join("neuron-exports", job.Name)
	}

	if e.Cache != nil && !e.Force {
		entry, ok, err := e.Cache.Lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			path, m, hit, err := reuseCached(entry, outDir, job.Name, runID, logger)
			if err != nil {
				return nil, err
			}
			if hit {
				logger.Info().Str("cache_key", key).Str("manifest", path).Msg("cache hit, skipping export")
				res.Cached = true
				res.ManifestPath = path
				res.Manifest = m
				return res, nil
			}
		}
	}

	manifest, err := e.trace(nc, job, runID, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Name, err)
	}
	res.Manifest = manifest

	path, err := WriteManifest(outDir, manifest, logger)
	if err != nil {
		return nil, err
	}
	res.ManifestPath = path

	if e.Cache != nil {
		if err := e.Cache.Put(ctx, CacheEntry{
			Key:          key,
			Job:          job.Name,
			Family:       family,
			Task:         nc.Task(),
			ManifestPath: path,
			CreatedAt:    manifest.CreatedAt,
		}); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("family", family).
		Str("task", nc.Task()).
		Interface("axes", manifest.Axes).
		Str("manifest", path).
		Dur("took", time.Since(start)).
		Msg("export complete")
	return res, nil
}

// trace runs steps 4-6 and assembles the manifest.
func (e *Exporter) trace(nc *NeuronConfig, job Job, runID, key string) (*Manifest, error) {
	dummy, err := nc.GenerateDummyInputs(nil)
	if err != nil {
		return nil, err
	}
	outputs, err := nc.Outputs()
	if err != nil {
		return nil, err
	}

	newModel := e.NewModel
	if newModel == nil {
		newModel = func(c *NeuronConfig) (Model, error) { return NewProbeModel(c) }
	}
	model, err := newModel(nc)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	// Each call gets its own copy of the inputs.
	ordered := nc.CheckModelInputsOrder(model, dummy)
	traced, err := Trace(ordered, dummy.Clone().Tuple(), outputs)
	if err != nil {
		return nil, err
	}
	reference, err := model.Forward(dummy.Clone().Map())
	if err != nil {
		return nil, fmt.Errorf("reference forward: %w", err)
	}
	if err := ValidateOutputs(reference, traced.Values, outputs, nc.AtolForValidation()); err != nil {
		return nil, err
	}

	return &Manifest{
		RunID:            runID,
		Job:              job.Name,
		Family:           nc.Family().Name,
		Task:             nc.Task(),
		DynamicBatchSize: nc.DynamicBatchSize(),
		Axes:             nc.ResolvedAxes(),
		Inputs:           traced.Inputs,
		Outputs:          traced.Outputs,
		Atol:             nc.AtolForValidation(),
		ValuesOverride:   nc.ValuesOverride(),
		CacheKey:         key,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// reuseCached decides whether a cache entry satisfies a job writing to
// outDir. An entry whose manifest is gone is a miss. A manifest in another
// directory is copied into outDir under the new run ID.
func reuseCached(entry *CacheEntry, outDir, job, runID string, logger zerolog.Logger) (string, *Manifest, bool, error) {
	if _, err := os.Stat(entry.ManifestPath); err != nil {
		logger.Warn().Err(err).Str("manifest", entry.ManifestPath).Msg("cached export is gone, exporting again")
		return "", nil, false, nil
	}

	want := filepath.Join(outDir, ManifestFile)
	if samePath(entry.ManifestPath, want) {
		return entry.ManifestPath, nil, true, nil
	}

	m, err := ReadManifest(filepath.Dir(entry.ManifestPath))
	if err != nil {
		logger.Warn().Err(err).Str("manifest", entry.ManifestPath).Msg("cached manifest unreadable, exporting again")
		return "", nil, false, nil
	}
	m.Job = job
	m.RunID = runID
	path, err := WriteManifest(outDir, m, logger)
	if err != nil {
		return "", nil, false, err
	}
	logger.Debug().Str("from", entry.ManifestPath).Str("to", path).Msg("cached manifest copied")
	return path, m, true, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// RunJobs runs jobs with at most parallel in flight. Every job runs even if
// another fails; the returned error joins all failures.
func (e *Exporter) RunJobs(ctx context.Context, jobs []Job, parallel int) ([]*ExportResult, error) {
	if parallel <= 0 {
		parallel = 1
	}
	results := make([]*ExportResult, len(jobs))
	errs := make([]error, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, job := range jobs {
		g.Go(func() error {
			results[i], errs[i] = e.Run(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}
