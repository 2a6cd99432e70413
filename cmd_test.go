package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectCommand(t *testing.T) {
	var buf bytes.Buffer
	err := runInspect([]string{"-family=bert", "-task=multiple-choice", "-axis", "batch_size=1"}, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "NEURON EXPORT: bert / multiple-choice")
	assert.Contains(t, out, "{multiple-choice} -> num_choices")
	assert.Contains(t, out, "Inputs:  input_ids, attention_mask, token_type_ids")
	assert.Contains(t, out, "Outputs: logits")
	assert.Contains(t, out, "<unset>")
	assert.Contains(t, out, "Not ready to export: the value for the sequence_length axis is missing")
}

func TestInspectCommandList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runInspect([]string{"-list"}, &buf))
	assert.Contains(t, buf.String(), "wav2vec2")
	assert.Contains(t, buf.String(), "question-answering")
}

func TestInspectCommandUnknownFamily(t *testing.T) {
	var buf bytes.Buffer
	err := runInspect([]string{"-family=gpt2"}, &buf)
	assert.ErrorIs(t, err, ErrUnknownFamily)
}

func TestDummyInputsCommandJSON(t *testing.T) {
	var buf bytes.Buffer
	err := runDummyInputs([]string{
		"-family=bert", "-task=question-answering",
		"-axis", "batch_size=2", "-axis", "sequence_length=16",
		"-json",
	}, &buf)
	require.NoError(t, err)

	var got struct {
		Family string         `json:"family"`
		Task   string         `json:"task"`
		Axes   map[string]int `json:"axes"`
		Inputs []TensorSpec   `json:"inputs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "bert", got.Family)
	assert.Equal(t, map[string]int{"batch_size": 2, "sequence_length": 16}, got.Axes)
	require.Len(t, got.Inputs, 3)
	assert.Equal(t, TensorSpec{Name: "attention_mask", DType: Int64, Shape: []int{2, 16}}, got.Inputs[1])
}

func TestDummyInputsCommandMissingAxis(t *testing.T) {
	var buf bytes.Buffer
	err := runDummyInputs([]string{"-family=roberta", "-axis", "batch_size=1"}, &buf)
	assert.ErrorIs(t, err, ErrMissingMandatoryAxis)
}

func TestExportAndCacheCommands(t *testing.T) {
	dir := t.TempDir()
	jobs := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(jobs, []byte(`
exports:
  - name: distilbert-cls
    family: distilbert
    task: text-classification
    output_dir: out/distilbert-cls
    shapes:
      batch_size: 1
      sequence_length: 32
`), 0o600))
	cachePath := filepath.Join(dir, "exports.db")
	metricsPath := filepath.Join(dir, "neuron_export.prom")

	var buf bytes.Buffer
	err := runExport(context.Background(), []string{"-cache", cachePath, "-metrics-file", metricsPath, jobs}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "distilbert-cls")
	assert.Contains(t, buf.String(), "exported")
	assert.FileExists(t, filepath.Join(dir, "out", "distilbert-cls", ManifestFile))

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "neuron_export_jobs_total")

	buf.Reset()
	require.NoError(t, runExport(context.Background(), []string{"-cache", cachePath, jobs}, &buf))
	assert.Contains(t, buf.String(), "cached")

	buf.Reset()
	require.NoError(t, runCache(context.Background(), []string{"-cache", cachePath}, &buf))
	assert.Contains(t, buf.String(), "KEY")
	assert.Contains(t, buf.String(), "distilbert-cls")
	assert.Contains(t, buf.String(), "text-classification")
}

func TestExportCommandRequiresJobFile(t *testing.T) {
	err := runExport(context.Background(), nil, &bytes.Buffer{})
	assert.ErrorContains(t, err, "job file")

	err = runCache(context.Background(), nil, &bytes.Buffer{})
	assert.ErrorContains(t, err, "--cache")
}

func TestExportCommandAxisOverridesJobShapes(t *testing.T) {
	dir := t.TempDir()
	jobs := filepath.Join(dir, "jobs.hcl")
	require.NoError(t, os.WriteFile(jobs, []byte(`
export "roberta-mask" {
  family     = "roberta"
  task       = "fill-mask"
  output_dir = "out"
  shapes {
    batch_size      = 4
    sequence_length = 64
  }
}
`), 0o600))

	var buf bytes.Buffer
	require.NoError(t, runExport(context.Background(), []string{"-axis", "sequence_length=16", jobs}, &buf))

	m, err := ReadManifest(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"batch_size": 4, "sequence_length": 16}, m.Axes)

	err = runExport(context.Background(), []string{"-axis", "depth=3", jobs}, &buf)
	assert.ErrorContains(t, err, `unknown axis "depth"`)
}
