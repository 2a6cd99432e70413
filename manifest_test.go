package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "bert-qa")
	m := &Manifest{
		RunID:  "run-1",
		Job:    "bert-qa",
		Family: "bert",
		Task:   "question-answering",
		Axes:   map[string]int{"batch_size": 1, "sequence_length": 128},
		Inputs: []TensorSpec{
			{Name: "input_ids", DType: Int64, Shape: []int{1, 128}},
		},
		Outputs: []TensorSpec{
			{Name: "start_logits", DType: Float32, Shape: []int{1, 32}},
		},
		Atol:      1e-4,
		CacheKey:  "abc",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	path, err := WriteManifest(dir, m, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ManifestFile), path)

	got, err := ReadManifest(dir)
	require.NoError(t, err)
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}

	// Rewriting replaces the file in place and leaves no temp files behind.
	m.RunID = "run-2"
	_, err = WriteManifest(dir, m, zerolog.Nop())
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got, err = ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	assert.ErrorContains(t, err, "read manifest")
}
