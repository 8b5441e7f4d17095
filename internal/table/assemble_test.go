package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tbl(header []string, rows ...[]string) Table {
	t := Table{Header: header}
	for _, raw := range rows {
		row := make([]Cell, len(raw))
		for i, s := range raw {
			row[i] = TextCell(s)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler()
	assert.True(t, a.Assemble().Empty())
}

func TestAssembleSourcePriority(t *testing.T) {
	a := NewAssembler()
	a.Add(SourceText, tbl([]string{"t1", "t2"}, []string{"x", "y"}))
	a.Add(SourceGeometry, tbl([]string{"g1", "g2"}, []string{"p", "q"}))
	a.Add(SourceStructured, tbl([]string{"s1", "s2"}, []string{"a", "b"}))

	got := a.Assemble()
	assert.Equal(t, []string{"s1", "s2"}, got.Header,
		"structured tables must shadow every other source")
}

func TestAssembleGeometryShadowsText(t *testing.T) {
	a := NewAssembler()
	a.Add(SourceText, tbl([]string{"t1", "t2"}, []string{"x", "y"}))
	a.Add(SourceGeometry, tbl([]string{"g1", "g2"}, []string{"p", "q"}))

	got := a.Assemble()
	assert.Equal(t, []string{"g1", "g2"}, got.Header)
}

func TestAssemblePrimaryMaximizesSize(t *testing.T) {
	a := NewAssembler()
	small := tbl([]string{"a", "b"}, []string{"1", "2"})
	big := tbl([]string{"c", "d", "e"},
		[]string{"1", "2", "3"},
		[]string{"4", "5", "6"},
	)
	a.Add(SourceStructured, small)
	a.Add(SourceStructured, big)

	got := a.Assemble()
	assert.Equal(t, []string{"c", "d", "e"}, got.Header)
	assert.Len(t, got.Rows, 2, "two-column candidate must not be appended to a three-column primary")
}

func TestAssembleAppendsMatchingColumnCounts(t *testing.T) {
	a := NewAssembler()
	a.Add(SourceStructured, tbl([]string{"h1", "h2"},
		[]string{"1", "2"},
		[]string{"3", "4"},
	))
	a.Add(SourceStructured, tbl([]string{"other", "names"},
		[]string{"5", "6"},
	))

	got := a.Assemble()
	require.Len(t, got.Rows, 3, "same-width candidate appends beneath the primary")
	assert.Equal(t, []string{"h1", "h2"}, got.Header,
		"appending is positional, the primary header wins")
	assert.Equal(t, "5", got.Rows[2][0].Text)
}

func TestAssembleDiscardsSingleColumnCandidates(t *testing.T) {
	a := NewAssembler()
	a.Add(SourceGeometry, tbl([]string{"only"}, []string{"x"}, []string{"y"}))

	got := a.Assemble()
	assert.True(t, got.Empty(), "a one-column candidate is never part of the output")
}

func TestAssembleIgnoresEmptyAdds(t *testing.T) {
	a := NewAssembler()
	a.Add(SourceStructured, Table{})
	assert.False(t, a.HasSource(SourceStructured))
}

func TestAssembleHigherSourceWithOnlyNarrowTablesStillShadows(t *testing.T) {
	// Once the structured source yields anything, lower sources are not
	// consulted even if every structured candidate is discarded as
	// non-tabular.
	a := NewAssembler()
	a.Add(SourceStructured, tbl([]string{"only"}, []string{"x"}))
	a.Add(SourceGeometry, tbl([]string{"g1", "g2"}, []string{"p", "q"}))

	got := a.Assemble()
	assert.True(t, got.Empty())
}
