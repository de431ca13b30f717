package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrollAnchorStartsAtBottom(t *testing.T) {
	a := NewScrollAnchor()
	assert.True(t, a.AtBottom())
	assert.True(t, a.ShouldAutoScroll())
}

func TestScrollAnchorWithinThresholdCountsAsBottom(t *testing.T) {
	a := NewScrollAnchor()

	// 30px from the bottom edge, inside the 50px threshold.
	a.Update(570, 1200, 600)
	assert.True(t, a.AtBottom())

	// 100px up, outside it.
	a.Update(500, 1200, 600)
	assert.False(t, a.AtBottom())
	assert.False(t, a.ShouldAutoScroll())
}

func TestScrollAnchorReturningToBottomReenablesAutoScroll(t *testing.T) {
	a := NewScrollAnchor()

	a.Update(0, 1200, 600)
	assert.False(t, a.ShouldAutoScroll())

	a.Update(600, 1200, 600)
	assert.True(t, a.ShouldAutoScroll())
}
