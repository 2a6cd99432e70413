package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoModel returns its inputs unchanged, so a test can see where each
// positional argument landed.
var echoModel = ModelFunc(func(in map[string]*Tensor) (map[string]*Tensor, error) {
	return in, nil
})

func TestOrderedModelMapsPositionsToNames(t *testing.T) {
	names := []string{"input_ids", "attention_mask", "token_type_ids"}
	m := NewOrderedModel(echoModel, names)

	args := []*Tensor{
		NewTensorFull(Int64, 1, 1),
		NewTensorFull(Int64, 2, 1),
		NewTensorFull(Int64, 3, 1),
	}
	out, err := m.Call(args...)
	require.NoError(t, err)
	for i, name := range names {
		assert.Same(t, args[i], out[name], name)
	}
}

func TestOrderedModelArity(t *testing.T) {
	m := NewOrderedModel(echoModel, []string{"a", "b"})
	one := NewTensorFull(Float32, 0, 1)

	tests := []struct {
		name string
		args []*Tensor
	}{
		{"too few", []*Tensor{one}},
		{"too many", []*Tensor{one, one, one}},
		{"none", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Call(tt.args...)
			require.ErrorIs(t, err, ErrInputCountMismatch)

			var ice *InputCountError
			require.True(t, errors.As(err, &ice))
			assert.Equal(t, []string{"a", "b"}, ice.Names)
			assert.Equal(t, len(tt.args), ice.Got)
			assert.Contains(t, err.Error(), "needs 2 inputs: [a, b]")
		})
	}
}

func TestOrderedModelWrapsForwardError(t *testing.T) {
	boom := errors.New("boom")
	m := NewOrderedModel(ModelFunc(func(map[string]*Tensor) (map[string]*Tensor, error) {
		return nil, boom
	}), []string{"x"})

	_, err := m.Call(NewTensor(1))
	assert.ErrorIs(t, err, boom)
}

func TestOrderedModelCopiesNames(t *testing.T) {
	names := []string{"a", "b"}
	m := NewOrderedModel(echoModel, names)
	names[0] = "z"
	assert.Equal(t, []string{"a", "b"}, m.InputNames())
}

func TestCheckModelInputsOrderUsesDummyOrder(t *testing.T) {
	bert := mustFamily(t, "bert")
	nc := NewNeuronConfig(bert, bert.DefaultConfig, Options{
		Task:   "text-classification",
		Shapes: Shapes{BatchSize: Dim(1), SequenceLength: Dim(4)},
	})
	dummy, err := nc.GenerateDummyInputs(nil)
	require.NoError(t, err)

	m := nc.CheckModelInputsOrder(echoModel, dummy)
	assert.Equal(t, dummy.Names(), m.InputNames())

	out, err := m.Call(dummy.Tuple()...)
	require.NoError(t, err)
	for _, name := range dummy.Names() {
		want, _ := dummy.Get(name)
		assert.Same(t, want, out[name], name)
	}
}
