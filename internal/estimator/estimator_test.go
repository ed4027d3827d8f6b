package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateDeterministic(t *testing.T) {
	text := "a responsive card with a title, an image and a hover animation"
	first := Estimate(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Estimate(text))
	}
}

func TestEstimateEmptyText(t *testing.T) {
	out := Estimate("")
	assert.Zero(t, out.Score)
	assert.True(t, out.Features.Empty())
	assert.Empty(t, out.Hints)
}

func TestEstimateSimpleComponent(t *testing.T) {
	out := Estimate("a heading and a short paragraph")

	require.NotEmpty(t, out.Features.Fields)
	assert.LessOrEqual(t, len(out.Features.Fields), 2)
	assert.False(t, out.Features.Responsive)
	assert.False(t, out.Features.Interactive)
	assert.LessOrEqual(t, out.Score, 5)
}

func TestEstimateComplexComponent(t *testing.T) {
	out := Estimate("an image carousel, responsive across breakpoints, with hover animation on each slide")

	assert.True(t, out.Features.Responsive)
	assert.True(t, out.Features.Interactive)
	assert.Contains(t, out.Features.Fields, "image")
	assert.Contains(t, out.Features.Fields, "multifield")
	assert.Greater(t, out.Score, 5)
	assert.Contains(t, out.Hints, HintParallelResponsiveCSS)
	assert.Contains(t, out.Hints, HintSeparateJSGeneration)
	assert.Contains(t, out.Hints, HintCacheInteractivePatterns)
}

func TestEstimateFieldListsSorted(t *testing.T) {
	out := Estimate("url link, image, checkbox and a dropdown select")
	fields := out.Features.Fields
	for i := 1; i < len(fields); i++ {
		assert.LessOrEqual(t, fields[i-1], fields[i])
	}
}
