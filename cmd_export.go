package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
)

// ===========================================================================
// EXPORT CLI - Run export job files
// ===========================================================================
//
// USAGE:
//   neuron-export export [-cache=exports.db] [-parallel=4] [-force] \
//                        [-axis sequence_length=256] \
//                        [-metrics-file=neuron_export.prom] jobs.yaml more.hcl
//
// -axis values are layered over the shapes of every job in every file.
// Every job runs; the command fails if any job failed.
//
// ===========================================================================

// RunExportCommand runs every job in the given files.
func RunExportCommand(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return runExport(ctx, args, os.Stdout)
}

func runExport(ctx context.Context, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cachePath := fs.String("cache", "", "Compile cache index (sqlite file, or directory ending in .badger)")
	cacheBackend := fs.String("cache-backend", "", "Cache backend: sqlite or badger (default: by path)")
	force := fs.Bool("force", false, "Export even when the cache has an entry")
	parallel := fs.Int("parallel", 2, "Jobs to run concurrently")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus metrics to this file when done")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	pretty := fs.Bool("pretty", false, "Human-readable logs")
	var axes axisFlag
	fs.Var(&axes, "axis", "Axis value as name=value applied to every job (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("at least one job file is required")
	}
	pairs, err := ParseAxisOverrides(axes)
	if err != nil {
		return err
	}
	override, err := ShapesFromAxes(pairs)
	if err != nil {
		return err
	}
	ConfigureLogging(LogConfig{Level: *logLevel, Pretty: *pretty})
	logger := Logger("export")

	var jobs []Job
	for _, path := range fs.Args() {
		loaded, err := LoadJobs(path)
		if err != nil {
			return err
		}
		logger.Debug().Str("file", path).Int("jobs", len(loaded)).Msg("job file loaded")
		jobs = append(jobs, loaded...)
	}
	for i := range jobs {
		merged := jobs[i].ShapesOrEmpty().Merge(override)
		jobs[i].Shapes = &merged
	}

	exp := &Exporter{Force: *force, Logger: logger}
	if *cachePath != "" {
		cache, err := OpenCache(*cacheBackend, *cachePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn().Err(err).Msg("close cache")
			}
		}()
		exp.Cache = cache
	}

	results, runErr := exp.RunJobs(ctx, jobs, *parallel)
	for _, r := range results {
		if r == nil {
			continue
		}
		state := "exported"
		if r.Cached {
			state = "cached"
		}
		fmt.Fprintf(w, "%-24s %-9s %s\n", r.Job, state, r.ManifestPath)
	}

	if *metricsFile != "" {
		if err := WriteMetrics(*metricsFile); err != nil {
			logger.Warn().Err(err).Str("file", *metricsFile).Msg("write metrics")
		}
	}
	return runErr
}
