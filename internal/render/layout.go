package render

// LayoutPolicy isolates the page-break decision so the pagination granularity
// and thresholds are a single adjustable policy rather than scattered offsets.
type LayoutPolicy struct {
	// PageBottom is the vertical cursor threshold, in mm, past which the
	// next row starts on a fresh page.
	PageBottom float64
	// ResetTop is the cursor position, in mm, at the top of a fresh page.
	ResetTop float64
}

// DefaultLayout matches the historical document contract: the break check
// runs once per item (not per line), so a two-line row may extend past the
// threshold before the next row triggers a new page.
var DefaultLayout = LayoutPolicy{PageBottom: 250, ResetTop: 30}

// cursor tracks the vertical write position across pages.
type cursor struct {
	policy LayoutPolicy
	y      float64
}

// needsBreak reports whether the next row must start on a fresh page.
func (c *cursor) needsBreak() bool {
	return c.y > c.policy.PageBottom
}

// reset moves the cursor to the top margin of a fresh page.
func (c *cursor) reset() {
	c.y = c.policy.ResetTop
}

// advance moves the cursor down by delta millimetres.
func (c *cursor) advance(delta float64) {
	c.y += delta
}
