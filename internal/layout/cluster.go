package layout

import (
	"sort"
	"strings"
)

// Clustering defaults. Tolerances are in page units; RTL documents in
// particular show wider alignment jitter than left-to-right ones.
const (
	DefaultRowTolerance    = 10.0
	DefaultColumnTolerance = 10.0
	DefaultMinBoundaryHits = 2
	DefaultBoundaryRatio   = 0.10
)

// ClusterConfig holds the tunable parameters for grid reconstruction.
// Each knob is independent; see the corresponding Default constants.
type ClusterConfig struct {
	// RowTolerance is the maximum distance between a fragment's top and
	// the current row's running bottom extent for the fragment to join
	// that row.
	RowTolerance float64

	// ColumnTolerance is the clustering tolerance for left edges, and
	// also the slack allowed when assigning a fragment to a boundary.
	ColumnTolerance float64

	// MinBoundaryHits is the absolute floor on cluster occurrences for a
	// cluster to survive as a column boundary.
	MinBoundaryHits int

	// BoundaryRatio is the relative floor: a cluster must cover at least
	// this fraction of all fragments on the page.
	BoundaryRatio float64
}

// DefaultClusterConfig returns the stock tolerances.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		RowTolerance:    DefaultRowTolerance,
		ColumnTolerance: DefaultColumnTolerance,
		MinBoundaryHits: DefaultMinBoundaryHits,
		BoundaryRatio:   DefaultBoundaryRatio,
	}
}

// Clusterer converts a page's positioned text fragments into a grid of
// rows by columns.
type Clusterer struct {
	config ClusterConfig
}

// NewClusterer creates a clusterer with default tolerances.
func NewClusterer() *Clusterer {
	return &Clusterer{config: DefaultClusterConfig()}
}

// NewClustererWithConfig creates a clusterer with custom tolerances.
func NewClustererWithConfig(config ClusterConfig) *Clusterer {
	return &Clusterer{config: config}
}

// Grid reconstructs the row-by-column cell grid for one page of
// fragments. The returned grid is empty when the page has no fragments.
// When no column boundaries survive filtering the grid collapses to a
// single column; downstream assembly rejects such candidates.
func (c *Clusterer) Grid(fragments []TextFragment) [][]string {
	if len(fragments) == 0 {
		return nil
	}

	rows := c.GroupRows(fragments)
	boundaries := c.DetectBoundaries(fragments)

	grid := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := c.assignColumns(row, boundaries)
		if rowHasText(cells) {
			grid = append(grid, cells)
		}
	}
	return grid
}

// GroupRows groups fragments into rows by a single top-to-bottom scan.
// A fragment joins the current row when its top is within RowTolerance
// of the row's running bottom extent; otherwise it starts a new row.
// Fragments within a row are ordered left to right.
func (c *Clusterer) GroupRows(fragments []TextFragment) [][]TextFragment {
	if len(fragments) == 0 {
		return nil
	}

	sorted := sortByTop(fragments)

	var rows [][]TextFragment
	current := []TextFragment{sorted[0]}
	bottom := sorted[0].BBox.Bottom

	for _, frag := range sorted[1:] {
		if abs(frag.BBox.Top-bottom) < c.config.RowTolerance {
			current = append(current, frag)
			if frag.BBox.Bottom > bottom {
				bottom = frag.BBox.Bottom
			}
			continue
		}
		rows = append(rows, sortLeftToRight(current))
		current = []TextFragment{frag}
		bottom = frag.BBox.Bottom
	}
	rows = append(rows, sortLeftToRight(current))

	return rows
}

// DetectBoundaries clusters fragment left edges into column boundary
// candidates. Clustering is incremental with a running mean center; a
// cluster survives only when its occurrence count reaches
// max(MinBoundaryHits, BoundaryRatio of all fragments). Survivors are
// returned in ascending order of center.
func (c *Clusterer) DetectBoundaries(fragments []TextFragment) []Boundary {
	lefts := make([]float64, 0, len(fragments))
	for _, frag := range fragments {
		lefts = append(lefts, frag.BBox.Left)
	}
	sort.Float64s(lefts)

	type cluster struct {
		center float64
		sum    float64
		count  int
	}

	var clusters []*cluster
	for _, pos := range lefts {
		var home *cluster
		for _, cl := range clusters {
			if abs(cl.center-pos) <= c.config.ColumnTolerance {
				home = cl
				break
			}
		}
		if home == nil {
			clusters = append(clusters, &cluster{center: pos, sum: pos, count: 1})
			continue
		}
		home.sum += pos
		home.count++
		home.center = home.sum / float64(home.count)
	}

	minHits := c.config.MinBoundaryHits
	if ratio := int(float64(len(fragments)) * c.config.BoundaryRatio); ratio > minHits {
		minHits = ratio
	}

	boundaries := make([]Boundary, 0, len(clusters))
	for _, cl := range clusters {
		if cl.count >= minHits {
			boundaries = append(boundaries, Boundary{Center: cl.center, Count: cl.count})
		}
	}
	sort.Slice(boundaries, func(i, j int) bool {
		return boundaries[i].Center < boundaries[j].Center
	})
	return boundaries
}

// assignColumns buckets one row of fragments by boundary and joins each
// bucket's texts with single spaces, left to right. A fragment lands in
// the greatest boundary whose center is at or left of the fragment's
// left edge plus the column tolerance; fragments left of every boundary
// land in column 0.
func (c *Clusterer) assignColumns(row []TextFragment, boundaries []Boundary) []string {
	cols := len(boundaries)
	if cols == 0 {
		cols = 1
	}

	buckets := make([][]string, cols)
	for _, frag := range row {
		idx := 0
		for i, b := range boundaries {
			if frag.BBox.Left+c.config.ColumnTolerance >= b.Center {
				idx = i
			}
		}
		buckets[idx] = append(buckets[idx], frag.Text)
	}

	cells := make([]string, cols)
	for i, bucket := range buckets {
		cells[i] = strings.Join(bucket, " ")
	}
	return cells
}

func rowHasText(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

func sortLeftToRight(row []TextFragment) []TextFragment {
	sort.SliceStable(row, func(i, j int) bool {
		return row[i].BBox.Left < row[j].BBox.Left
	})
	return row
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
