package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMandatoryAxesForTask(t *testing.T) {
	decls := []AxisDecl{
		Always(AxisBatchSize),
		Always(AxisSequenceLength),
		ForTasks(AxisNumChoices, "multiple-choice"),
		ForTasks(AxisWidth, "image-classification", "multiple-choice"),
	}

	tests := []struct {
		task string
		want []string
	}{
		{"text-classification", []string{"batch_size", "sequence_length"}},
		{"multiple-choice", []string{"batch_size", "sequence_length", "num_choices", "width"}},
		{"image-classification", []string{"batch_size", "sequence_length", "width"}},
		{"", []string{"batch_size", "sequence_length"}},
	}
	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			got := MandatoryAxesForTask(decls, tt.task)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MandatoryAxesForTask(%q) mismatch (-want +got):\n%s", tt.task, diff)
			}
		})
	}
}

func TestMandatoryAxesForTaskKeepsDuplicatesAndUnknownNames(t *testing.T) {
	decls := []AxisDecl{
		Always("batch_size"),
		Always("not_an_axis"),
		ForTasks("batch_size", "fill-mask"),
	}
	got := MandatoryAxesForTask(decls, "fill-mask")
	assert.Equal(t, []string{"batch_size", "not_an_axis", "batch_size"}, got)
}

func TestMandatoryAxesForTaskEmpty(t *testing.T) {
	assert.Empty(t, MandatoryAxesForTask(nil, "fill-mask"))
}

func TestAxisDeclString(t *testing.T) {
	assert.Equal(t, "batch_size", Always("batch_size").String())
	assert.Equal(t, "{multiple-choice} -> num_choices", ForTasks("num_choices", "multiple-choice").String())
}

func TestShapesMerge(t *testing.T) {
	base := Shapes{BatchSize: Dim(4), SequenceLength: Dim(128)}
	merged := base.Merge(Shapes{BatchSize: Dim(1), Width: Dim(224)})

	require.NotNil(t, merged.BatchSize)
	assert.Equal(t, 1, *merged.BatchSize)
	assert.Equal(t, 128, *merged.SequenceLength)
	assert.Equal(t, 224, *merged.Width)
	assert.Nil(t, merged.Height)
}

func TestShapesOrderedFollowsConstructorOrder(t *testing.T) {
	var names []string
	for _, d := range (Shapes{}).ordered() {
		names = append(names, d.name)
	}
	want := []string{
		"batch_size", "sequence_length", "num_choices", "width", "height",
		"num_channels", "feature_size", "nb_max_frames", "audio_sequence_length",
	}
	assert.Equal(t, want, names)
}

func TestParseAxisOverrides(t *testing.T) {
	got, err := ParseAxisOverrides([]string{"batch_size=1", " sequence_length = 128"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"batch_size": 1, "sequence_length": 128}, got)

	for _, bad := range []string{"batch_size", "=3", "batch_size=abc", "batch_size=12x"} {
		_, err := ParseAxisOverrides([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestShapesFromAxes(t *testing.T) {
	s, err := ShapesFromAxes(map[string]int{"sequence_length": 256, "num_channels": 1})
	require.NoError(t, err)
	assert.Nil(t, s.BatchSize)
	assert.Equal(t, 256, *s.SequenceLength)
	assert.Equal(t, 1, *s.NumChannels)

	// Layered over job shapes, set values win and unset ones keep the job's.
	merged := Shapes{BatchSize: Dim(4), SequenceLength: Dim(128)}.Merge(s)
	assert.Equal(t, 4, *merged.BatchSize)
	assert.Equal(t, 256, *merged.SequenceLength)

	_, err = ShapesFromAxes(map[string]int{"depth": 3})
	assert.ErrorContains(t, err, `unknown axis "depth"`)
}
