package timeline

// BottomThreshold is how close (in pixels) to the bottom edge the
// viewport must be for the viewer to count as "at bottom".
const BottomThreshold = 50

// ScrollAnchor tracks whether the viewer is reading the latest messages
// or scrolled back into history. The contract is strict: a new message
// may auto-scroll the view only when the viewer was already at the
// bottom before the merge. Force-scrolling someone who is reading
// history is a defect, not a nicety.
type ScrollAnchor struct {
	atBottom bool
}

// NewScrollAnchor starts at the bottom, matching a freshly opened
// conversation.
func NewScrollAnchor() *ScrollAnchor {
	return &ScrollAnchor{atBottom: true}
}

// Update records the current viewport geometry. Call on every scroll
// event, before any merge that might want to auto-scroll.
func (a *ScrollAnchor) Update(scrollTop, scrollHeight, clientHeight float64) {
	a.atBottom = scrollHeight-(scrollTop+clientHeight) < BottomThreshold
}

// AtBottom reports whether the viewer is within the bottom threshold.
func (a *ScrollAnchor) AtBottom() bool {
	return a.atBottom
}

// ShouldAutoScroll decides, at merge time, whether the view may jump to
// the new message. It answers from the position recorded before the
// merge; the merge itself must not move the anchor.
func (a *ScrollAnchor) ShouldAutoScroll() bool {
	return a.atBottom
}
