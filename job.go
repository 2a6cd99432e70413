package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// ===========================================================================
// WHAT'S GOING ON HERE: Export job files
// ===========================================================================
//
// An export job names a model (family and/or config.json), a task, the
// static shapes to trace with, and where to write the result. Job files come
// in two syntaxes with the same fields:
//
// YAML:
//
//   exports:
//     - name: bert-qa
//       model_config: ./bert-base-uncased
//       task: question-answering
//       shapes:
//         batch_size: 1
//         sequence_length: 128
//       output_dir: ./out/bert-qa
//
// HCL:
//
//   export "bert-qa" {
//     model_config = "./bert-base-uncased"
//     task         = "question-answering"
//     output_dir   = "./out/bert-qa"
//     shapes {
//       batch_size      = 1
//       sequence_length = 128
//     }
//   }
//
// Relative paths are resolved against the job file's directory.
//
// ===========================================================================

// Job is one export request.
type Job struct {
	Name             string  `yaml:"name" hcl:"name,label"`
	Family           string  `yaml:"family" hcl:"family,optional"`
	ModelConfig      string  `yaml:"model_config" hcl:"model_config,optional"`
	Task             string  `yaml:"task" hcl:"task,optional"`
	DynamicBatchSize bool    `yaml:"dynamic_batch_size" hcl:"dynamic_batch_size,optional"`
	OutputDir        string  `yaml:"output_dir" hcl:"output_dir,optional"`
	Seed             int64   `yaml:"seed" hcl:"seed,optional"`
	Shapes           *Shapes `yaml:"shapes" hcl:"shapes,block"`
}

// ShapesOrEmpty returns the job's shapes, or an empty set.
func (j Job) ShapesOrEmpty() Shapes {
	if j.Shapes == nil {
		return Shapes{}
	}
	return *j.Shapes
}

type yamlJobFile struct {
	Exports []Job `yaml:"exports"`
}

type hclJobFile struct {
	Exports []Job `hcl:"export,block"`
}

// LoadJobs reads a .yaml, .yml or .hcl job file.
func LoadJobs(path string) ([]Job, error) {
	path = filepath.Clean(path)

	var (
		jobs []Job
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		jobs, err = loadYAMLJobs(path)
	case ".hcl":
		jobs, err = loadHCLJobs(path)
	default:
		return nil, fmt.Errorf("unsupported job file format: %s (yaml or hcl)", ext)
	}
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		if j.Name == "" {
			return nil, fmt.Errorf("%s: export #%d has no name", path, i+1)
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("%s: duplicate export name %q", path, j.Name)
		}
		seen[j.Name] = true
		if j.Family == "" && j.ModelConfig == "" {
			return nil, fmt.Errorf("%s: export %q needs family or model_config", path, j.Name)
		}
		j.ModelConfig = resolvePath(base, j.ModelConfig)
		j.OutputDir = resolvePath(base, j.OutputDir)
	}
	return jobs, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// loadYAMLJobs parses strictly: unknown fields and trailing documents fail.
func loadYAMLJobs(path string) ([]Job, error) {
	// #nosec G304 -- job file paths are provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	var f yamlJobFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("strict job file parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("job file contains multiple documents or trailing content")
	}
	return f.Exports, nil
}

func loadHCLJobs(path string) ([]Job, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var f hclJobFile
	if diags := gohcl.DecodeBody(file.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	return f.Exports, nil
}
