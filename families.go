package main

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
)

// ===========================================================================
// WHAT'S GOING ON HERE: Model families
// ===========================================================================
//
// A ModelFamily is the per-architecture half of an export config: which axes
// it needs, which inputs its forward pass takes, which generators can fill
// those inputs, and how closely an exported graph must match the reference.
// Families are registered by model_type, the same key config.json uses.
//
// The built-in families cover the classic encoder exports:
//
//   bert, roberta, distilbert   text encoders
//   vit                         image encoder
//   wav2vec2                    speech encoder
//
// Their default configs follow the published base checkpoints so that a
// dry run works without a config.json on disk.
//
// ===========================================================================

// ModelFamily describes how one model architecture is exported.
type ModelFamily struct {
	Name string

	// NormalizeConfig wraps the model config into exporter vocabulary.
	NormalizeConfig NormalizedConfigFunc

	// Generators are consulted in order; the first one supporting an input wins.
	Generators []GeneratorFactory

	MandatoryAxes []AxisDecl

	// Inputs returns the forward-pass input names for a task, in call order.
	Inputs func(task string) []string

	// Tasks the family can be exported for.
	Tasks []string

	// Atol is the default validation tolerance; AtolByTask overrides it per task.
	Atol       float64
	AtolByTask map[string]float64

	// ValuesOverride lists config fields to replace before export.
	ValuesOverride map[string]any

	// DefaultConfig is used when an export names no config.json.
	DefaultConfig ModelConfig
}

// SupportsTask reports whether the family lists task.
func (f *ModelFamily) SupportsTask(task string) bool {
	return slices.Contains(f.Tasks, task)
}

// AtolFor returns the validation tolerance for task.
func (f *ModelFamily) AtolFor(task string) float64 {
	if v, ok := f.AtolByTask[task]; ok {
		return v
	}
	if f.Atol == 0 {
		return defaultAtol
	}
	return f.Atol
}

const defaultAtol = 1e-5

func staticInputs(names ...string) func(string) []string {
	return func(string) []string { return slices.Clone(names) }
}

// ===========================================================================
// REGISTRY
// ===========================================================================

var (
	familiesMu sync.RWMutex
	families   = make(map[string]*ModelFamily)
)

// RegisterFamily adds or replaces a family under its name.
func RegisterFamily(f *ModelFamily) {
	familiesMu.Lock()
	defer familiesMu.Unlock()
	families[f.Name] = f
}

// LookupFamily returns the family registered under name.
func LookupFamily(name string) (*ModelFamily, error) {
	familiesMu.RLock()
	defer familiesMu.RUnlock()
	f, ok := families[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
	return f, nil
}

// FamilyNames returns all registered family names, sorted.
func FamilyNames() []string {
	familiesMu.RLock()
	defer familiesMu.RUnlock()
	names := slices.Collect(maps.Keys(families))
	sort.Strings(names)
	return names
}

// ===========================================================================
// BUILT-IN FAMILIES
// ===========================================================================

var textTasks = []string{
	"feature-extraction",
	"fill-mask",
	"multiple-choice",
	"question-answering",
	"text-classification",
	"token-classification",
}

var textMandatoryAxes = []AxisDecl{
	Always(AxisBatchSize),
	Always(AxisSequenceLength),
	ForTasks(AxisNumChoices, "multiple-choice"),
}

// bertBaseConfig mirrors bert-base-uncased.
func bertBaseConfig() ModelConfig {
	return ModelConfig{
		"model_type":              "bert",
		"vocab_size":              30522,
		"hidden_size":             768,
		"num_hidden_layers":       12,
		"num_attention_heads":     12,
		"intermediate_size":       3072,
		"max_position_embeddings": 512,
		"type_vocab_size":         2,
		"pad_token_id":            0,
	}
}

func init() {
	RegisterFamily(&ModelFamily{
		Name:            "bert",
		NormalizeConfig: NewNormalizedTextConfig,
		Generators:      []GeneratorFactory{NewTextInputGenerator},
		MandatoryAxes:   textMandatoryAxes,
		Inputs:          staticInputs("input_ids", "attention_mask", "token_type_ids"),
		Tasks:           textTasks,
		Atol:            1e-4,
		DefaultConfig:   bertBaseConfig(),
	})

	roberta := bertBaseConfig()
	roberta["model_type"] = "roberta"
	roberta["vocab_size"] = 50265
	roberta["max_position_embeddings"] = 514
	roberta["type_vocab_size"] = 1
	roberta["pad_token_id"] = 1
	RegisterFamily(&ModelFamily{
		Name:            "roberta",
		NormalizeConfig: NewNormalizedTextConfig,
		Generators:      []GeneratorFactory{NewTextInputGenerator},
		MandatoryAxes:   textMandatoryAxes,
		Inputs:          staticInputs("input_ids", "attention_mask"),
		Tasks:           textTasks,
		Atol:            1e-4,
		DefaultConfig:   roberta,
	})

	RegisterFamily(&ModelFamily{
		Name: "distilbert",
		NormalizeConfig: NormalizedWith(NewNormalizedTextConfig, map[string]string{
			"num_layers":          "n_layers",
			"hidden_size":         "dim",
			"num_attention_heads": "n_heads",
		}),
		Generators:    []GeneratorFactory{NewTextInputGenerator},
		MandatoryAxes: textMandatoryAxes,
		Inputs:        staticInputs("input_ids", "attention_mask"),
		Tasks:         textTasks,
		Atol:          1e-4,
		DefaultConfig: ModelConfig{
			"model_type":              "distilbert",
			"vocab_size":              30522,
			"dim":                     768,
			"n_layers":                6,
			"n_heads":                 12,
			"max_position_embeddings": 512,
		},
	})

	RegisterFamily(&ModelFamily{
		Name:            "vit",
		NormalizeConfig: NewNormalizedVisionConfig,
		Generators:      []GeneratorFactory{NewVisionInputGenerator},
		MandatoryAxes: []AxisDecl{
			Always(AxisBatchSize),
			Always(AxisNumChannels),
			Always(AxisWidth),
			Always(AxisHeight),
		},
		Inputs: staticInputs("pixel_values"),
		Tasks:  []string{"feature-extraction", "image-classification", "masked-im"},
		DefaultConfig: ModelConfig{
			"model_type":          "vit",
			"image_size":          224,
			"patch_size":          16,
			"num_channels":        3,
			"hidden_size":         768,
			"num_hidden_layers":   12,
			"num_attention_heads": 12,
		},
	})

	RegisterFamily(&ModelFamily{
		Name:            "wav2vec2",
		NormalizeConfig: NewNormalizedAudioConfig,
		Generators:      []GeneratorFactory{NewAudioInputGenerator},
		MandatoryAxes: []AxisDecl{
			Always(AxisBatchSize),
			Always(AxisAudioSequenceLength),
		},
		Inputs: staticInputs("input_values"),
		Tasks: []string{
			"feature-extraction",
			"audio-classification",
			"audio-frame-classification",
			"audio-xvector",
			"automatic-speech-recognition",
		},
		AtolByTask:     map[string]float64{"automatic-speech-recognition": 1e-3},
		ValuesOverride: map[string]any{"apply_spec_augment": false},
		DefaultConfig: ModelConfig{
			"model_type":          "wav2vec2",
			"vocab_size":          32,
			"hidden_size":         768,
			"num_hidden_layers":   12,
			"num_attention_heads": 12,
			"apply_spec_augment":  true,
		},
	})
}
