package extract

import (
	"sort"
	"strings"

	"github.com/pdf2sheet/pdf2sheet/internal/layout"
)

const (
	// lineThickness is the maximum extent of a ruling rectangle along its
	// short axis for it to count as a drawn line rather than a filled box.
	lineThickness = 2.5

	// separatorTolerance clusters nearby line positions into a single
	// row or column separator.
	separatorTolerance = 3.0

	// minSeparators is the smallest number of parallel separators that
	// can bound a grid (two columns or two rows need three lines).
	minSeparators = 3
)

// Tables reconstructs ruled tables from the ruling rectangles on a page.
// It recognizes the common vector-drawn table shape: a lattice of
// horizontal and vertical lines with text placed inside the cells. The
// returned grids are row-major cell text. Pages without a usable lattice
// return nil.
func Tables(page *PageContent) [][][]string {
	if page == nil || len(page.Rules) == 0 || len(page.Fragments) == 0 {
		return nil
	}

	xs, ys := gridSeparators(page.Rules)
	if len(xs) < minSeparators || len(ys) < minSeparators {
		return nil
	}

	grid := fillGrid(xs, ys, page.Fragments)
	if grid == nil {
		return nil
	}
	return [][][]string{grid}
}

// gridSeparators classifies ruling rectangles into vertical and horizontal
// lines and clusters their positions into separator coordinates. Filled
// boxes contribute all four of their edges, which covers tables drawn as
// adjacent cell rectangles instead of strokes.
func gridSeparators(rules []layout.BBox) (xs, ys []float64) {
	var vpos, hpos []float64
	for _, r := range rules {
		switch {
		case r.Width() <= lineThickness:
			vpos = append(vpos, (r.Left+r.Right)/2)
		case r.Height() <= lineThickness:
			hpos = append(hpos, (r.Top+r.Bottom)/2)
		default:
			vpos = append(vpos, r.Left, r.Right)
			hpos = append(hpos, r.Top, r.Bottom)
		}
	}
	return clusterPositions(vpos), clusterPositions(hpos)
}

// clusterPositions merges positions closer than separatorTolerance and
// returns the sorted cluster centers.
func clusterPositions(positions []float64) []float64 {
	if len(positions) == 0 {
		return nil
	}
	sort.Float64s(positions)

	var centers []float64
	start := 0
	for i := 1; i <= len(positions); i++ {
		if i == len(positions) || positions[i]-positions[i-1] > separatorTolerance {
			sum := 0.0
			for _, p := range positions[start:i] {
				sum += p
			}
			centers = append(centers, sum/float64(i-start))
			start = i
		}
	}
	return centers
}

// fillGrid places fragments into the cells bounded by the separators and
// returns the resulting text grid. A grid where no cell received text is
// discarded.
func fillGrid(xs, ys []float64, fragments []layout.TextFragment) [][]string {
	rows := len(ys) - 1
	cols := len(xs) - 1

	cells := make([][][]layout.TextFragment, rows)
	for i := range cells {
		cells[i] = make([][]layout.TextFragment, cols)
	}

	placed := false
	for _, frag := range fragments {
		cx := (frag.BBox.Left + frag.BBox.Right) / 2
		cy := (frag.BBox.Top + frag.BBox.Bottom) / 2
		row := bucket(ys, cy)
		col := bucket(xs, cx)
		if row < 0 || col < 0 {
			continue
		}
		cells[row][col] = append(cells[row][col], frag)
		placed = true
	}
	if !placed {
		return nil
	}

	grid := make([][]string, rows)
	for i := range cells {
		grid[i] = make([]string, cols)
		for j, frags := range cells[i] {
			grid[i][j] = joinCell(frags)
		}
	}
	return grid
}

// bucket returns the index of the interval [separators[i], separators[i+1])
// containing pos, or -1 when pos falls outside the lattice.
func bucket(separators []float64, pos float64) int {
	for i := 0; i < len(separators)-1; i++ {
		if pos >= separators[i] && pos < separators[i+1] {
			return i
		}
	}
	return -1
}

// joinCell orders the fragments of one cell top to bottom, left to right,
// and joins them with single spaces.
func joinCell(frags []layout.TextFragment) string {
	if len(frags) == 0 {
		return ""
	}
	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].BBox.Top != frags[j].BBox.Top {
			return frags[i].BBox.Top < frags[j].BBox.Top
		}
		return frags[i].BBox.Left < frags[j].BBox.Left
	})
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
