package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ===========================================================================
// WHAT'S GOING ON HERE: Axes
// ===========================================================================
//
// A compiled Neuron graph has static shapes. Every input dimension that the
// graph depends on (batch size, sequence length, image size, ...) must be a
// concrete number before tracing starts. We call these named dimensions axes.
//
// Which axes matter depends on the model family and on the task: a BERT
// exported for multiple-choice needs num_choices, the same BERT exported for
// text-classification does not. A family declares this once as a list of
// AxisDecl values:
//
//   batch_size                         always mandatory
//   sequence_length                    always mandatory
//   {multiple-choice} -> num_choices   mandatory only for multiple-choice
//
// MandatoryAxesForTask filters that list for one task.
//
// ===========================================================================

// Recognised axis names.
const (
	AxisBatchSize           = "batch_size"
	AxisSequenceLength      = "sequence_length"
	AxisNumChoices          = "num_choices"
	AxisWidth               = "width"
	AxisHeight              = "height"
	AxisNumChannels         = "num_channels"
	AxisFeatureSize         = "feature_size"
	AxisNbMaxFrames         = "nb_max_frames"
	AxisAudioSequenceLength = "audio_sequence_length"
)

// AxisDecl declares an axis as mandatory, either for every task (Tasks is
// empty) or only for the listed tasks.
type AxisDecl struct {
	Tasks []string
	Name  string
}

// Always declares an axis that is mandatory for every task.
func Always(name string) AxisDecl {
	return AxisDecl{Name: name}
}

// ForTasks declares an axis that is mandatory only for the given tasks.
func ForTasks(name string, tasks ...string) AxisDecl {
	return AxisDecl{Tasks: tasks, Name: name}
}

// AppliesTo reports whether the declaration is mandatory for task.
func (d AxisDecl) AppliesTo(task string) bool {
	return len(d.Tasks) == 0 || slices.Contains(d.Tasks, task)
}

func (d AxisDecl) String() string {
	if len(d.Tasks) == 0 {
		return d.Name
	}
	return fmt.Sprintf("{%s} -> %s", strings.Join(d.Tasks, ","), d.Name)
}

// MandatoryAxesForTask returns the names of decls that are mandatory for task,
// in declaration order. Duplicates are kept and unknown names are not checked.
func MandatoryAxesForTask(decls []AxisDecl, task string) []string {
	axes := make([]string, 0, len(decls))
	for _, d := range decls {
		if d.AppliesTo(task) {
			axes = append(axes, d.Name)
		}
	}
	return axes
}

// Shapes carries the optional value of every recognised axis.
// A nil field means "unset, resolve before export".
type Shapes struct {
	BatchSize           *int `yaml:"batch_size" hcl:"batch_size,optional" json:"batch_size,omitempty"`
	SequenceLength      *int `yaml:"sequence_length" hcl:"sequence_length,optional" json:"sequence_length,omitempty"`
	NumChoices          *int `yaml:"num_choices" hcl:"num_choices,optional" json:"num_choices,omitempty"`
	Width               *int `yaml:"width" hcl:"width,optional" json:"width,omitempty"`
	Height              *int `yaml:"height" hcl:"height,optional" json:"height,omitempty"`
	NumChannels         *int `yaml:"num_channels" hcl:"num_channels,optional" json:"num_channels,omitempty"`
	FeatureSize         *int `yaml:"feature_size" hcl:"feature_size,optional" json:"feature_size,omitempty"`
	NbMaxFrames         *int `yaml:"nb_max_frames" hcl:"nb_max_frames,optional" json:"nb_max_frames,omitempty"`
	AudioSequenceLength *int `yaml:"audio_sequence_length" hcl:"audio_sequence_length,optional" json:"audio_sequence_length,omitempty"`
}

type namedDim struct {
	name  string
	value *int
}

// ordered returns every axis in the fixed order the constructor assigns them.
func (s Shapes) ordered() []namedDim {
	return []namedDim{
		{AxisBatchSize, s.BatchSize},
		{AxisSequenceLength, s.SequenceLength},
		{AxisNumChoices, s.NumChoices},
		{AxisWidth, s.Width},
		{AxisHeight, s.Height},
		{AxisNumChannels, s.NumChannels},
		{AxisFeatureSize, s.FeatureSize},
		{AxisNbMaxFrames, s.NbMaxFrames},
		{AxisAudioSequenceLength, s.AudioSequenceLength},
	}
}

// Merge returns s with every field that is set in o replacing the value in s.
func (s Shapes) Merge(o Shapes) Shapes {
	pick := func(a, b *int) *int {
		if b != nil {
			return b
		}
		return a
	}
	return Shapes{
		BatchSize:           pick(s.BatchSize, o.BatchSize),
		SequenceLength:      pick(s.SequenceLength, o.SequenceLength),
		NumChoices:          pick(s.NumChoices, o.NumChoices),
		Width:               pick(s.Width, o.Width),
		Height:              pick(s.Height, o.Height),
		NumChannels:         pick(s.NumChannels, o.NumChannels),
		FeatureSize:         pick(s.FeatureSize, o.FeatureSize),
		NbMaxFrames:         pick(s.NbMaxFrames, o.NbMaxFrames),
		AudioSequenceLength: pick(s.AudioSequenceLength, o.AudioSequenceLength),
	}
}

// ShapesFromAxes builds Shapes from name -> value pairs. Names that are not
// recognised axes are an error.
func ShapesFromAxes(axes map[string]int) (Shapes, error) {
	var s Shapes
	for name, v := range axes {
		field := s.field(name)
		if field == nil {
			return Shapes{}, fmt.Errorf("unknown axis %q", name)
		}
		*field = Dim(v)
	}
	return s, nil
}

func (s *Shapes) field(name string) **int {
	switch name {
	case AxisBatchSize:
		return &s.BatchSize
	case AxisSequenceLength:
		return &s.SequenceLength
	case AxisNumChoices:
		return &s.NumChoices
	case AxisWidth:
		return &s.Width
	case AxisHeight:
		return &s.Height
	case AxisNumChannels:
		return &s.NumChannels
	case AxisFeatureSize:
		return &s.FeatureSize
	case AxisNbMaxFrames:
		return &s.NbMaxFrames
	case AxisAudioSequenceLength:
		return &s.AudioSequenceLength
	}
	return nil
}

// Dim returns a pointer to v, for filling Shapes literals.
func Dim(v int) *int {
	return &v
}

// ParseAxisOverrides parses "name=value" pairs, as given on the command line.
func ParseAxisOverrides(pairs []string) (map[string]int, error) {
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("axis override %q: expected name=value", p)
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("axis override %q: %w", p, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}
