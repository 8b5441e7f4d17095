package table

// Source identifies the extraction path that produced a candidate
// table. Higher values win during assembly.
type Source int

const (
	// SourceText is the plain-text pattern scanner, the weakest source.
	SourceText Source = iota
	// SourceGeometry is the fragment-geometry reconstruction path.
	SourceGeometry
	// SourceStructured is the structured table extractor, the strongest
	// source.
	SourceStructured
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceStructured:
		return "structured"
	case SourceGeometry:
		return "geometry"
	case SourceText:
		return "text"
	default:
		return "unknown"
	}
}

// minTableColumns is the floor below which a candidate is considered
// non-tabular and discarded.
const minTableColumns = 2

// Assembler reconciles candidate tables collected across a whole
// document into one output dataset. Candidates are bucketed by source;
// at assembly time only the highest-priority source that produced any
// candidate is consulted.
type Assembler struct {
	candidates map[Source][]Table
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{candidates: make(map[Source][]Table)}
}

// Add records one candidate table for the given source. Empty tables
// are ignored.
func (a *Assembler) Add(source Source, t Table) {
	if t.Empty() {
		return
	}
	a.candidates[source] = append(a.candidates[source], t)
}

// HasSource reports whether any candidate was recorded for the source.
func (a *Assembler) HasSource(source Source) bool {
	return len(a.candidates[source]) > 0
}

// Assemble picks the winning source and merges its candidates: the
// primary table is the one maximizing rows times columns; candidates
// with the same column count are appended beneath it in insertion
// order (positional concatenation, headers dropped); candidates with
// fewer than two columns are discarded. When nothing survives the
// result is an empty table.
func (a *Assembler) Assemble() Table {
	for _, source := range []Source{SourceStructured, SourceGeometry, SourceText} {
		if len(a.candidates[source]) == 0 {
			continue
		}
		return merge(a.candidates[source])
	}
	return Table{}
}

func merge(candidates []Table) Table {
	tabular := make([]Table, 0, len(candidates))
	for _, c := range candidates {
		if c.Columns() >= minTableColumns {
			tabular = append(tabular, c)
		}
	}
	if len(tabular) == 0 {
		return Table{}
	}

	primary := 0
	for i, c := range tabular {
		if c.Size() > tabular[primary].Size() {
			primary = i
		}
	}

	out := Table{
		Header: append([]string(nil), tabular[primary].Header...),
		Rows:   append([][]Cell(nil), tabular[primary].Rows...),
	}
	for i, c := range tabular {
		if i == primary || c.Columns() != out.Columns() {
			continue
		}
		out.Rows = append(out.Rows, c.Rows...)
	}
	return out
}
