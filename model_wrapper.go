package main

import (
	"fmt"
	"slices"
)

// ===========================================================================
// WHAT'S GOING ON HERE: Positional calls vs keyword signatures
// ===========================================================================
//
// A model's forward pass takes named inputs. A trace records a positional
// call: "argument 0, argument 1, ...". If the tuple handed to the tracer is
// not in the same order as the names the dummy inputs were generated for,
// the trace still succeeds and the compiled graph is silently wrong
// (attention_mask wired where input_ids should be).
//
// OrderedModel closes that gap. It is built from the dummy inputs, remembers
// their name order, and maps each positional argument back onto its name
// before calling the model. A call with the wrong number of arguments fails
// loudly instead of shifting every input by one.
//
// ===========================================================================

// Model is the target of an export: a forward pass over named tensors.
type Model interface {
	Forward(inputs map[string]*Tensor) (map[string]*Tensor, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(inputs map[string]*Tensor) (map[string]*Tensor, error)

func (f ModelFunc) Forward(inputs map[string]*Tensor) (map[string]*Tensor, error) {
	return f(inputs)
}

// DummyInputs is an ordered name -> tensor mapping.
type DummyInputs struct {
	names   []string
	tensors map[string]*Tensor
}

func newDummyInputs(capacity int) *DummyInputs {
	return &DummyInputs{
		names:   make([]string, 0, capacity),
		tensors: make(map[string]*Tensor, capacity),
	}
}

func (d *DummyInputs) put(name string, t *Tensor) {
	if _, ok := d.tensors[name]; !ok {
		d.names = append(d.names, name)
	}
	d.tensors[name] = t
}

// Names returns the input names in generation order.
func (d *DummyInputs) Names() []string {
	return slices.Clone(d.names)
}

// Get returns the tensor generated for name.
func (d *DummyInputs) Get(name string) (*Tensor, bool) {
	t, ok := d.tensors[name]
	return t, ok
}

// Len returns the number of inputs.
func (d *DummyInputs) Len() int {
	return len(d.names)
}

// Map returns the inputs keyed by name. The map is a copy; tensors are shared.
func (d *DummyInputs) Map() map[string]*Tensor {
	out := make(map[string]*Tensor, len(d.tensors))
	for k, v := range d.tensors {
		out[k] = v
	}
	return out
}

// Clone returns a copy with every tensor deep-copied, in the same order.
func (d *DummyInputs) Clone() *DummyInputs {
	out := newDummyInputs(len(d.names))
	for _, n := range d.names {
		out.put(n, d.tensors[n].Clone())
	}
	return out
}

// Tuple returns the tensors in generation order, the form a trace consumes.
func (d *DummyInputs) Tuple() []*Tensor {
	out := make([]*Tensor, len(d.names))
	for i, n := range d.names {
		out[i] = d.tensors[n]
	}
	return out
}

// OrderedModel calls a keyword model with positional tensors.
type OrderedModel struct {
	model      Model
	inputNames []string
}

// NewOrderedModel binds positional argument i to inputNames[i].
func NewOrderedModel(model Model, inputNames []string) *OrderedModel {
	return &OrderedModel{model: model, inputNames: slices.Clone(inputNames)}
}

// InputNames returns the positional order this wrapper expects.
func (m *OrderedModel) InputNames() []string {
	return slices.Clone(m.inputNames)
}

// Call runs the model with args in InputNames order.
func (m *OrderedModel) Call(args ...*Tensor) (map[string]*Tensor, error) {
	if len(args) != len(m.inputNames) {
		return nil, &InputCountError{Names: m.InputNames(), Got: len(args)}
	}
	ordered := make(map[string]*Tensor, len(args))
	for i, name := range m.inputNames {
		ordered[name] = args[i]
	}
	out, err := m.model.Forward(ordered)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}
	return out, nil
}
