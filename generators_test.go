package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genContext(task string, cfg ModelConfig, dims map[string]int) GeneratorContext {
	return GeneratorContext{
		Task:   task,
		Config: NewNormalizedTextConfig(cfg),
		Dims:   dims,
		Rand:   rand.New(rand.NewSource(1)),
	}
}

func TestTextInputGenerator(t *testing.T) {
	cfg := ModelConfig{"vocab_size": 100, "type_vocab_size": 2}
	gen := NewTextInputGenerator(genContext("fill-mask", cfg, map[string]int{
		AxisBatchSize:      3,
		AxisSequenceLength: 10,
	}))

	assert.True(t, gen.SupportsInput("input_ids"))
	assert.True(t, gen.SupportsInput("token_type_ids"))
	assert.False(t, gen.SupportsInput("pixel_values"))

	ids, err := gen.Generate("input_ids", FrameworkPT)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 10}, ids.Shape())
	assert.Equal(t, Int64, ids.DType())
	assert.GreaterOrEqual(t, ids.Min(), 0.0)
	assert.Less(t, ids.Max(), 100.0)

	mask, err := gen.Generate("attention_mask", FrameworkPT)
	require.NoError(t, err)
	assert.Equal(t, 1.0, mask.Min())
	assert.Equal(t, 1.0, mask.Max())

	types, err := gen.Generate("token_type_ids", FrameworkPT)
	require.NoError(t, err)
	assert.LessOrEqual(t, types.Max(), 1.0)
}

func TestTextInputGeneratorMultipleChoiceShape(t *testing.T) {
	gen := NewTextInputGenerator(genContext("multiple-choice", ModelConfig{"vocab_size": 10}, map[string]int{
		AxisBatchSize:      2,
		AxisSequenceLength: 8,
		AxisNumChoices:     5,
	}))
	ids, err := gen.Generate("input_ids", FrameworkPT)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 8}, ids.Shape())
}

func TestTextInputGeneratorDefaults(t *testing.T) {
	gen := NewTextInputGenerator(genContext("fill-mask", ModelConfig{"vocab_size": 10}, nil))
	ids, err := gen.Generate("input_ids", FrameworkPT)
	require.NoError(t, err)
	assert.Equal(t, []int{defaultBatchSize, defaultSequenceLength}, ids.Shape())
}

func TestTextInputGeneratorErrors(t *testing.T) {
	gen := NewTextInputGenerator(genContext("fill-mask", ModelConfig{}, map[string]int{
		AxisBatchSize:      1,
		AxisSequenceLength: 4,
	}))

	_, err := gen.Generate("input_ids", FrameworkPT)
	assert.ErrorContains(t, err, "vocab_size")

	_, err = gen.Generate("attention_mask", Framework("tf"))
	assert.ErrorIs(t, err, ErrUnsupportedFramework)

	_, err = gen.Generate("pixel_values", FrameworkPT)
	assert.ErrorIs(t, err, ErrUnresolvableInput)

	zero := NewTextInputGenerator(genContext("fill-mask", ModelConfig{"vocab_size": 10}, map[string]int{
		AxisBatchSize:      0,
		AxisSequenceLength: 4,
	}))
	_, err = zero.Generate("input_ids", FrameworkPT)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestVisionInputGenerator(t *testing.T) {
	gen := NewVisionInputGenerator(genContext("image-classification", ModelConfig{}, map[string]int{
		AxisBatchSize:   1,
		AxisNumChannels: 3,
		AxisHeight:      32,
		AxisWidth:       48,
	}))

	pix, err := gen.Generate("pixel_values", FrameworkPT)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 32, 48}, pix.Shape())
	assert.Equal(t, Float32, pix.DType())

	mask, err := gen.Generate("pixel_mask", FrameworkPT)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 32, 48}, mask.Shape())
	assert.Equal(t, Int64, mask.DType())
}

func TestAudioInputGenerator(t *testing.T) {
	gen := NewAudioInputGenerator(genContext("audio-classification", ModelConfig{}, map[string]int{
		AxisBatchSize:           2,
		AxisAudioSequenceLength: 400,
		AxisFeatureSize:         20,
		AxisNbMaxFrames:         50,
	}))

	values, err := gen.Generate("input_values", FrameworkPT)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 400}, values.Shape())

	feats, err := gen.Generate("input_features", FrameworkPT)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 20, 50}, feats.Shape())

	_, err = gen.Generate("input_ids", FrameworkPT)
	assert.ErrorIs(t, err, ErrUnresolvableInput)
}
