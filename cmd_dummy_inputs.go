package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
)

// ===========================================================================
// DUMMY-INPUTS CLI - Preview the tensors a trace would be called with
// ===========================================================================
//
// USAGE:
//   neuron-export dummy-inputs -family=bert -task=question-answering \
//                              -axis batch_size=1 -axis sequence_length=128
//
// -axis values override registered (mandatory) axes only, the same way
// GenerateDummyInputs treats its overrides. Other names are reported and
// ignored.
//
// ===========================================================================

// RunDummyInputsCommand resolves axes and prints the generated inputs.
func RunDummyInputsCommand(args []string) error {
	return runDummyInputs(args, os.Stdout)
}

func runDummyInputs(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("dummy-inputs", flag.ContinueOnError)
	jf := addJobFlags(fs)
	asJSON := fs.Bool("json", false, "Print input specs as JSON")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	ConfigureLogging(LogConfig{Level: *logLevel})
	logger := Logger("dummy-inputs")

	overrides, err := ParseAxisOverrides(jf.axes)
	if err != nil {
		return err
	}
	nc, err := ResolveJob(jf.job(), logger)
	if err != nil {
		return err
	}
	registered := nc.RegisteredAxes()
	for name := range overrides {
		if !slices.Contains(registered, name) {
			logger.Warn().Str("axis", name).Str("task", nc.Task()).Msg("axis is not mandatory for this task, override ignored")
		}
	}

	dummy, err := nc.GenerateDummyInputs(overrides)
	if err != nil {
		return err
	}

	specs := make([]TensorSpec, 0, dummy.Len())
	for _, name := range dummy.Names() {
		t, _ := dummy.Get(name)
		specs = append(specs, specOf(name, t))
	}

	if *asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Family string         `json:"family"`
			Task   string         `json:"task"`
			Axes   map[string]int `json:"axes"`
			Inputs []TensorSpec   `json:"inputs"`
		}{nc.Family().Name, nc.Task(), nc.ResolvedAxes(), specs})
	}

	fmt.Fprintf(w, "Dummy inputs for %s / %s:\n", nc.Family().Name, nc.Task())
	for i, s := range specs {
		t, _ := dummy.Get(s.Name)
		fmt.Fprintf(w, "  [%d] %-16s %-8s %v  range=[%g, %g]\n", i, s.Name, s.DType, s.Shape, t.Min(), t.Max())
	}
	return nil
}
