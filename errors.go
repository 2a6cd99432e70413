package main

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingMandatoryAxis indicates that a required shape dimension has
	// no value, even after falling back to the model configuration.
	ErrMissingMandatoryAxis = errors.New("missing mandatory axis dimension")

	// ErrUnresolvableInput indicates that no registered dummy input generator
	// can produce a declared input.
	ErrUnresolvableInput = errors.New("could not generate dummy input")

	// ErrInputCountMismatch indicates that an ordered model was called with a
	// different number of positional inputs than it declares.
	ErrInputCountMismatch = errors.New("input count mismatch")

	// ErrUnknownTask indicates a task with no registered output names.
	ErrUnknownTask = errors.New("unknown task")

	// ErrUnknownFamily indicates a model type with no registered export family.
	ErrUnknownFamily = errors.New("unknown model family")

	// ErrUnsupportedTask indicates a task the model family cannot be exported for.
	ErrUnsupportedTask = errors.New("task not supported by model family")

	// ErrAttributeNotFound indicates a read of an axis that was never set.
	ErrAttributeNotFound = errors.New("attribute not found")

	// ErrUnsupportedFramework indicates a tensor convention no generator produces.
	ErrUnsupportedFramework = errors.New("unsupported framework")

	// ErrOutputMismatch indicates that the ordered call and the reference call
	// disagree beyond the validation tolerance.
	ErrOutputMismatch = errors.New("output mismatch")
)

// MissingAxisError reports the first axis that is still unspecified.
type MissingAxisError struct {
	Axis string
}

func (e *MissingAxisError) Error() string {
	return fmt.Sprintf("the value for the %s axis is missing, it is needed to perform the export to Neuron compiled model", e.Axis)
}

func (e *MissingAxisError) Unwrap() error { return ErrMissingMandatoryAxis }

// UnresolvableInputError reports an input name no generator claims.
type UnresolvableInputError struct {
	Input string
}

func (e *UnresolvableInputError) Error() string {
	return fmt.Sprintf("could not generate dummy inputs for %q: try adding a proper dummy input generator to the model Neuron config", e.Input)
}

func (e *UnresolvableInputError) Unwrap() error { return ErrUnresolvableInput }

// InputCountError reports a positional call with the wrong arity.
type InputCountError struct {
	Names []string
	Got   int
}

func (e *InputCountError) Error() string {
	return fmt.Sprintf("the model needs %d inputs: [%s], but %d inputs are passed",
		len(e.Names), strings.Join(e.Names, ", "), e.Got)
}

func (e *InputCountError) Unwrap() error { return ErrInputCountMismatch }
