package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"
)

// RunCacheCommand lists the compile cache index.
//
// USAGE:
//
//	neuron-export cache -cache=exports.db
func RunCacheCommand(args []string) error {
	return runCache(context.Background(), args, os.Stdout)
}

func runCache(ctx context.Context, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("cache", flag.ContinueOnError)
	cachePath := fs.String("cache", "", "Compile cache index (required)")
	cacheBackend := fs.String("cache-backend", "", "Cache backend: sqlite or badger (default: by path)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cachePath == "" {
		return fmt.Errorf("--cache flag is required")
	}

	cache, err := OpenCache(*cacheBackend, *cachePath)
	if err != nil {
		return err
	}
	defer cache.Close()

	entries, err := cache.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tJOB\tFAMILY\tTASK\tCREATED\tMANIFEST")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortKey(e.Key), e.Job, e.Family, e.Task, e.CreatedAt.Format(time.RFC3339), e.ManifestPath)
	}
	return tw.Flush()
}

func shortKey(k string) string {
	if len(k) > 12 {
		return k[:12]
	}
	return k
}
