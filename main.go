package main

import (
	"fmt"
	"os"
)

func main() {
	// Check for command-line mode
	if len(os.Args) > 1 {
		cmd := os.Args[1]
		var err error
		switch cmd {
		case "inspect":
			err = RunInspectCommand(os.Args[2:])
		case "dummy-inputs":
			err = RunDummyInputsCommand(os.Args[2:])
		case "export":
			err = RunExportCommand(os.Args[2:])
		case "cache":
			err = RunCacheCommand(os.Args[2:])
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
			printUsage()
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Default: show help
	printUsage()
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  neuron-export [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  inspect       Show mandatory axes, inputs and outputs of a model family")
	fmt.Println("  dummy-inputs  Resolve axes and generate the placeholder inputs for a trace")
	fmt.Println("  export        Run export job files (YAML or HCL)")
	fmt.Println("  cache         List the compile cache index")
	fmt.Println("  help          Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  neuron-export inspect -family=bert -task=multiple-choice")
	fmt.Println("  neuron-export dummy-inputs -model-config=./bert-base-uncased -task=question-answering -axis batch_size=1 -axis sequence_length=128")
	fmt.Println("  neuron-export export -cache=exports.db -parallel=4 jobs.yaml")
	fmt.Println("  neuron-export cache -cache=exports.db")
	fmt.Println()
}
