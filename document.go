package docstamper

// Coordinates address a block in the document tree: the node itself, the
// container holding it and its ordinal within that container.
type Coordinates interface {
	Node() any
	Container() any
	Ordinal() int
}

type ParagraphCoordinates struct {
	Paragraph any
	Parent    any
	Index     int
}

func (c ParagraphCoordinates) Node() any      { return c.Paragraph }
func (c ParagraphCoordinates) Container() any { return c.Parent }
func (c ParagraphCoordinates) Ordinal() int   { return c.Index }

type TableCoordinates struct {
	Table  any
	Parent any
	Index  int
}

func (c TableCoordinates) Node() any      { return c.Table }
func (c TableCoordinates) Container() any { return c.Parent }
func (c TableCoordinates) Ordinal() int   { return c.Index }

// RunCoordinates address a run inside its paragraph.
type RunCoordinates struct {
	Run       any
	Paragraph ParagraphCoordinates
	Index     int
}

func (c RunCoordinates) Node() any      { return c.Run }
func (c RunCoordinates) Container() any { return c.Paragraph.Paragraph }
func (c RunCoordinates) Ordinal() int   { return c.Index }

// Annotation is a comment-like directive attached to a range of the document.
type Annotation struct {
	ID      string
	Text    string
	Governs []Coordinates
}

// Fragment is a detached copy of a block produced by Document.Snapshot. It
// keeps the annotations anchored in the block.
type Fragment any

// Visitor receives node events in document order.
type Visitor interface {
	VisitParagraph(p ParagraphCoordinates) error
	VisitRun(r RunCoordinates) error
	VisitTable(t TableCoordinates) error
}

// Document is the narrow contract the engine needs from a document model.
type Document interface {
	// Walk emits every node of the document in document order: a paragraph
	// event precedes the events of its runs, a table event precedes the
	// events of its cells.
	Walk(v Visitor) error
	// WalkRange walks only the given blocks and their descendants.
	WalkRange(blocks []Coordinates, v Visitor) error

	// ParagraphAnnotation returns the annotation anchored on the paragraph.
	ParagraphAnnotation(p ParagraphCoordinates) (*Annotation, bool)
	// RunAnnotation returns the nearest annotation wrapping the run.
	RunAnnotation(r RunCoordinates) (*Annotation, bool)
	DeleteAnnotation(a *Annotation) error

	// Runs returns the runs of the paragraph in order.
	Runs(p ParagraphCoordinates) []RunCoordinates
	ParagraphText(p ParagraphCoordinates) string
	// ReplaceText replaces old, found at byte offset within the paragraph
	// text, with replacement.
	ReplaceText(p ParagraphCoordinates, offset int, old, replacement string) error
	SetRunText(r RunCoordinates, text string) error

	// Snapshot copies the block with its annotation anchors and their text,
	// including annotations deleted since.
	Snapshot(c Coordinates) (Fragment, error)
	// InsertAfter inserts a copy of f right after anchor. Each annotation of
	// the fragment that keep accepts is re-created under a fresh id; the
	// anchors of the others are dropped.
	InsertAfter(anchor Coordinates, f Fragment, keep func(id string) bool) (Coordinates, error)
	Remove(c Coordinates) error
}
