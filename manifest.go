package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// ManifestFile is the name of the manifest inside an export directory.
const ManifestFile = "neuron_export.json"

// Manifest records what an export was traced with. It is the "neuron"
// section a runtime reads to know the static shapes of a compiled graph.
type Manifest struct {
	RunID            string         `json:"run_id"`
	Job              string         `json:"job"`
	Family           string         `json:"family"`
	Task             string         `json:"task"`
	DynamicBatchSize bool           `json:"dynamic_batch_size"`
	Axes             map[string]int `json:"axes"`
	Inputs           []TensorSpec   `json:"inputs"`
	Outputs          []TensorSpec   `json:"outputs"`
	Atol             float64        `json:"atol"`
	ValuesOverride   map[string]any `json:"values_override,omitempty"`
	CacheKey         string         `json:"cache_key"`
	CreatedAt        time.Time      `json:"created_at"`
}

// WriteManifest writes m into dir atomically: readers see either the old
// manifest or the complete new one.
func WriteManifest(dir string, m *Manifest, logger zerolog.Logger) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return "", fmt.Errorf("create pending manifest: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending manifest")
		}
	}()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("atomically replace manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads the manifest from an export directory.
func ReadManifest(dir string) (*Manifest, error) {
	// #nosec G304 -- export dirs are provided by the operator
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
