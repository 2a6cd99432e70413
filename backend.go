package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// Some export decisions depend on the host. The only one today is dynamic
// batch size: a graph compiled with dynamic batching on a Neuron host is
// traced with batch size 1 and the runtime splits larger batches. On a host
// without the Neuron driver the flag is recorded but the batch size is left
// alone, so the same job file can be dry-run anywhere.
//
// The driver exposes one character device per chip (/dev/neuron0, ...).
// NEURON_RT_VISIBLE_CORES is honoured as a hint for containers that hide
// /dev but still schedule on Neuron cores.
//
// ===========================================================================

// NeuronRuntime describes the Neuron devices visible to this process.
type NeuronRuntime struct {
	Devices      []string
	VisibleCores string
}

// Available reports whether exports on this host will run on Neuron.
func (r NeuronRuntime) Available() bool {
	return len(r.Devices) > 0 || r.VisibleCores != ""
}

// DetectNeuronRuntime looks for Neuron devices under /dev.
func DetectNeuronRuntime() NeuronRuntime {
	return detectNeuronRuntimeIn("/dev")
}

func detectNeuronRuntimeIn(devDir string) NeuronRuntime {
	rt := NeuronRuntime{
		VisibleCores: strings.TrimSpace(os.Getenv("NEURON_RT_VISIBLE_CORES")),
	}
	matches, err := filepath.Glob(filepath.Join(devDir, "neuron[0-9]*"))
	if err != nil {
		return rt
	}
	sort.Strings(matches)
	rt.Devices = matches
	return rt
}

// neuronAvailable is consulted when a config asks for dynamic batch size.
// Tests replace it.
var neuronAvailable = func() bool {
	return DetectNeuronRuntime().Available()
}
