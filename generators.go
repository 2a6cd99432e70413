package main

import (
	"fmt"
	"math/rand"
	"slices"
)

// ===========================================================================
// WHAT'S GOING ON HERE: Dummy input generators
// ===========================================================================
//
// Tracing records whatever the model does with one concrete call. The values
// in that call do not matter, but their shapes and dtypes become the static
// signature of the compiled graph. A dummy input generator knows how to build
// such placeholder tensors for a group of related input names:
//
//   text    input_ids, attention_mask, token_type_ids
//   vision  pixel_values, pixel_mask
//   audio   input_values, input_features
//
// A model family lists generator factories in priority order. For each input
// the first generator that claims the name produces it.
//
// ===========================================================================

// Framework names the tensor convention a generator produces for.
type Framework string

// FrameworkPT produces tensors laid out the way a torch.jit trace expects
// them: int64 ids and masks, float32 features, channels-first images.
const FrameworkPT Framework = "pt"

// Defaults used when an axis is not mandatory for the task and therefore not
// resolved by the config.
const (
	defaultBatchSize           = 2
	defaultSequenceLength      = 16
	defaultNumChoices          = 4
	defaultImageSize           = 64
	defaultNumChannels         = 3
	defaultAudioSequenceLength = 16000
	defaultFeatureSize         = 80
	defaultNbMaxFrames         = 3000
	defaultTypeVocabSize       = 2
)

// InputGenerator produces placeholder tensors for the input names it supports.
type InputGenerator interface {
	SupportsInput(name string) bool
	Generate(name string, framework Framework) (*Tensor, error)
}

// GeneratorContext is everything a generator is built from.
type GeneratorContext struct {
	Task   string
	Config NormalizedConfig
	// Dims holds the resolved value of every registered axis.
	Dims map[string]int
	Rand *rand.Rand
}

func (c GeneratorContext) dim(name string, def int) int {
	if v, ok := c.Dims[name]; ok {
		return v
	}
	return def
}

// GeneratorFactory builds one generator for a config.
type GeneratorFactory func(GeneratorContext) InputGenerator

// nameSet is the SupportsInput half shared by every built-in generator.
type nameSet []string

func (s nameSet) SupportsInput(name string) bool {
	return slices.Contains(s, name)
}

func checkFramework(fw Framework) error {
	if fw != FrameworkPT {
		return fmt.Errorf("%w: %q", ErrUnsupportedFramework, fw)
	}
	return nil
}

func checkDims(input string, dims ...int) error {
	for _, d := range dims {
		if d <= 0 {
			return fmt.Errorf("%s: %w: %v", input, ErrInvalidShape, dims)
		}
	}
	return nil
}

// ===========================================================================
// TEXT
// ===========================================================================

// TextInputGenerator builds token ids and masks for encoder text models.
// For multiple-choice the shape gains a num_choices axis after batch.
type TextInputGenerator struct {
	nameSet
	task           string
	cfg            NormalizedConfig
	rng            *rand.Rand
	batchSize      int
	sequenceLength int
	numChoices     int
}

// NewTextInputGenerator is a GeneratorFactory.
func NewTextInputGenerator(ctx GeneratorContext) InputGenerator {
	return &TextInputGenerator{
		nameSet:        nameSet{"input_ids", "attention_mask", "token_type_ids"},
		task:           ctx.Task,
		cfg:            ctx.Config,
		rng:            ctx.Rand,
		batchSize:      ctx.dim(AxisBatchSize, defaultBatchSize),
		sequenceLength: ctx.dim(AxisSequenceLength, defaultSequenceLength),
		numChoices:     ctx.dim(AxisNumChoices, defaultNumChoices),
	}
}

func (g *TextInputGenerator) shape() []int {
	if g.task == "multiple-choice" {
		return []int{g.batchSize, g.numChoices, g.sequenceLength}
	}
	return []int{g.batchSize, g.sequenceLength}
}

func (g *TextInputGenerator) Generate(name string, fw Framework) (*Tensor, error) {
	if err := checkFramework(fw); err != nil {
		return nil, err
	}
	shape := g.shape()
	if err := checkDims(name, shape...); err != nil {
		return nil, err
	}

	switch name {
	case "input_ids":
		vocab, ok := g.cfg.Attribute("vocab_size")
		if !ok || vocab <= 0 {
			return nil, fmt.Errorf("input_ids: model config has no usable vocab_size")
		}
		return NewTensorRandInt(g.rng, 0, vocab, shape...), nil
	case "attention_mask":
		return NewTensorFull(Int64, 1, shape...), nil
	case "token_type_ids":
		typeVocab, ok := g.cfg.Attribute("type_vocab_size")
		if !ok || typeVocab <= 0 {
			typeVocab = defaultTypeVocabSize
		}
		return NewTensorRandInt(g.rng, 0, typeVocab, shape...), nil
	}
	return nil, &UnresolvableInputError{Input: name}
}

// ===========================================================================
// VISION
// ===========================================================================

// VisionInputGenerator builds channels-first pixel tensors.
type VisionInputGenerator struct {
	nameSet
	rng         *rand.Rand
	batchSize   int
	numChannels int
	height      int
	width       int
}

// NewVisionInputGenerator is a GeneratorFactory.
func NewVisionInputGenerator(ctx GeneratorContext) InputGenerator {
	return &VisionInputGenerator{
		nameSet:     nameSet{"pixel_values", "pixel_mask"},
		rng:         ctx.Rand,
		batchSize:   ctx.dim(AxisBatchSize, defaultBatchSize),
		numChannels: ctx.dim(AxisNumChannels, defaultNumChannels),
		height:      ctx.dim(AxisHeight, defaultImageSize),
		width:       ctx.dim(AxisWidth, defaultImageSize),
	}
}

func (g *VisionInputGenerator) Generate(name string, fw Framework) (*Tensor, error) {
	if err := checkFramework(fw); err != nil {
		return nil, err
	}
	switch name {
	case "pixel_values":
		shape := []int{g.batchSize, g.numChannels, g.height, g.width}
		if err := checkDims(name, shape...); err != nil {
			return nil, err
		}
		return NewTensorRand(g.rng, shape...), nil
	case "pixel_mask":
		shape := []int{g.batchSize, g.height, g.width}
		if err := checkDims(name, shape...); err != nil {
			return nil, err
		}
		return NewTensorFull(Int64, 1, shape...), nil
	}
	return nil, &UnresolvableInputError{Input: name}
}

// ===========================================================================
// AUDIO
// ===========================================================================

// AudioInputGenerator builds raw waveforms and log-mel feature tensors.
type AudioInputGenerator struct {
	nameSet
	rng                 *rand.Rand
	batchSize           int
	audioSequenceLength int
	featureSize         int
	nbMaxFrames         int
}

// NewAudioInputGenerator is a GeneratorFactory.
func NewAudioInputGenerator(ctx GeneratorContext) InputGenerator {
	return &AudioInputGenerator{
		nameSet:             nameSet{"input_values", "input_features"},
		rng:                 ctx.Rand,
		batchSize:           ctx.dim(AxisBatchSize, defaultBatchSize),
		audioSequenceLength: ctx.dim(AxisAudioSequenceLength, defaultAudioSequenceLength),
		featureSize:         ctx.dim(AxisFeatureSize, defaultFeatureSize),
		nbMaxFrames:         ctx.dim(AxisNbMaxFrames, defaultNbMaxFrames),
	}
}

func (g *AudioInputGenerator) Generate(name string, fw Framework) (*Tensor, error) {
	if err := checkFramework(fw); err != nil {
		return nil, err
	}
	var shape []int
	switch name {
	case "input_values":
		shape = []int{g.batchSize, g.audioSequenceLength}
	case "input_features":
		shape = []int{g.batchSize, g.featureSize, g.nbMaxFrames}
	default:
		return nil, &UnresolvableInputError{Input: name}
	}
	if err := checkDims(name, shape...); err != nil {
		return nil, err
	}
	return NewTensorRand(g.rng, shape...), nil
}
