// Package layout reconstructs tabular structure from positioned text
// fragments. It groups fragments into rows, clusters left edges into
// column boundaries, and folds wrapped continuation rows into their
// logical parent rows.
package layout

import "sort"

// BBox is the bounding box of a fragment on the page. Coordinates grow
// left to right and top to bottom.
type BBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 {
	return b.Right - b.Left
}

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 {
	return b.Bottom - b.Top
}

// TextFragment is a unit of text with its bounding box, the atomic input
// to layout reconstruction. Fragments are immutable once produced by the
// extraction layer.
type TextFragment struct {
	Text string `json:"text"`
	BBox BBox   `json:"bbox"`
}

// Boundary is a clustered x-coordinate with an occurrence count,
// representing a likely column edge.
type Boundary struct {
	Center float64
	Count  int
}

// sortByTop orders fragments top to bottom, returning a copy so callers
// keep their input untouched.
func sortByTop(fragments []TextFragment) []TextFragment {
	sorted := make([]TextFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BBox.Top < sorted[j].BBox.Top
	})
	return sorted
}
