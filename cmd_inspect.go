package main

import (
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
)

// ===========================================================================
// INSPECT CLI - What does an export of this model need?
// ===========================================================================
//
// USAGE:
//   neuron-export inspect -family=bert -task=multiple-choice
//   neuron-export inspect -model-config=./vit-base -task=image-classification
//   neuron-export inspect -list
//
// ===========================================================================

// RunInspectCommand prints the export contract of a family for one task.
func RunInspectCommand(args []string) error {
	return runInspect(args, os.Stdout)
}

func runInspect(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	jf := addJobFlags(fs)
	list := fs.Bool("list", false, "List registered families and tasks")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	ConfigureLogging(LogConfig{Level: *logLevel})

	if *list {
		fmt.Fprintln(w, "Families:")
		for _, name := range FamilyNames() {
			f, _ := LookupFamily(name)
			fmt.Fprintf(w, "  %-12s %s\n", name, strings.Join(f.Tasks, ", "))
		}
		fmt.Fprintln(w, "Tasks:")
		for _, t := range KnownTasks() {
			outputs, _ := TaskOutputs(t)
			fmt.Fprintf(w, "  %-30s -> %s\n", t, strings.Join(outputs, ", "))
		}
		return nil
	}

	nc, err := ResolveJob(jf.job(), Logger("inspect"))
	if err != nil {
		return err
	}
	overrides, err := ParseAxisOverrides(jf.axes)
	if err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		nc.SetAxis(name, Dim(overrides[name]))
	}
	outputs, err := nc.Outputs()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "===========================================================================")
	fmt.Fprintf(w, "NEURON EXPORT: %s / %s\n", nc.Family().Name, nc.Task())
	fmt.Fprintln(w, "===========================================================================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Axis declarations:")
	for _, d := range nc.Family().MandatoryAxes {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintln(w, "Mandatory axes for this task:")
	for _, name := range nc.RegisteredAxes() {
		v, _ := nc.Axis(name)
		fmt.Fprintf(w, "  %-22s %s\n", name, formatDim(v))
	}
	fmt.Fprintf(w, "Inputs:  %s\n", strings.Join(nc.Inputs(), ", "))
	fmt.Fprintf(w, "Outputs: %s\n", strings.Join(outputs, ", "))
	fmt.Fprintf(w, "Atol:    %g\n", nc.AtolForValidation())
	if ov := nc.ValuesOverride(); ov != nil {
		fmt.Fprintf(w, "Config overrides: %v\n", ov)
	}
	if err := nc.ValidateMandatoryAxes(); err != nil {
		fmt.Fprintf(w, "\nNot ready to export: %v\n", err)
	}
	return nil
}

func formatDim(v *int) string {
	if v == nil {
		return "<unset>"
	}
	return fmt.Sprint(*v)
}

// jobFlags are the flags shared by commands that resolve one model.
type jobFlags struct {
	family      *string
	modelConfig *string
	task        *string
	dynamic     *bool
	seed        *int64
	axes        axisFlag
}

func addJobFlags(fs *flag.FlagSet) *jobFlags {
	jf := &jobFlags{
		family:      fs.String("family", "", "Model family (bert, roberta, distilbert, vit, wav2vec2); defaults to model_type"),
		modelConfig: fs.String("model-config", "", "Path to config.json or a model directory"),
		task:        fs.String("task", DefaultTask, "Export task"),
		dynamic:     fs.Bool("dynamic-batch-size", false, "Compile with dynamic batch size"),
		seed:        fs.Int64("seed", 0, "Seed for dummy input values"),
	}
	fs.Var(&jf.axes, "axis", "Axis value as name=value (repeatable)")
	return jf
}

func (jf *jobFlags) job() Job {
	return Job{
		Name:             "cli",
		Family:           *jf.family,
		ModelConfig:      *jf.modelConfig,
		Task:             *jf.task,
		DynamicBatchSize: *jf.dynamic,
		Seed:             *jf.seed,
	}
}

// axisFlag collects repeated -axis name=value flags.
type axisFlag []string

func (a *axisFlag) String() string { return strings.Join(*a, ",") }

func (a *axisFlag) Set(v string) error {
	*a = append(*a, v)
	return nil
}
