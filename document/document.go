// Package document is an in-memory document tree (paragraphs, runs, tables
// and comments) implementing docstamper.Document, with an XML file format.
package document

import (
	"fmt"
	"strings"

	"github.com/grahms/docstamper"
)

// Document is a tree of blocks plus the comments anchored in it.
type Document struct {
	Body *Container

	comments map[string]*Comment
	order    []string
	retired  map[string]string // text of deleted comments, by id
	copies   int
}

// Comment is the directive text of an annotation.
type Comment struct {
	ID   string
	Text string
}

// Block is a paragraph or a table.
type Block interface {
	cloneBlock() Block
}

// Container is an ordered list of blocks: the body or a table cell.
type Container struct {
	Blocks []Block
}

// Paragraph is a sequence of runs. A comment anchored on the paragraph
// governs every run in it.
type Paragraph struct {
	CommentID string
	Runs      []*Run
}

// Run is a span of text. A comment anchored on a run governs that run only.
type Run struct {
	CommentID string
	Text      string
}

type Table struct {
	Rows []*Row
}

type Row struct {
	Cells []*Cell
}

type Cell struct {
	Container
}

var _ docstamper.Document = (*Document)(nil)

func New() *Document {
	return &Document{Body: &Container{}, comments: map[string]*Comment{}, retired: map[string]string{}}
}

// AddComment registers a comment. Anchor it by setting CommentID on a
// paragraph or run.
func (d *Document) AddComment(id, text string) *Comment {
	c := &Comment{ID: id, Text: text}
	if _, ok := d.comments[id]; !ok {
		d.order = append(d.order, id)
	}
	d.comments[id] = c
	return c
}

// freshID returns an unused comment id derived from id.
func (d *Document) freshID(id string) string {
	for {
		d.copies++
		n := fmt.Sprintf("%s.%d", id, d.copies)
		if _, ok := d.comments[n]; ok {
			continue
		}
		if _, ok := d.retired[n]; ok {
			continue
		}
		return n
	}
}

// commentText returns the text of a live or deleted comment.
func (d *Document) commentText(id string) (string, bool) {
	if c, ok := d.comments[id]; ok {
		return c.Text, true
	}
	text, ok := d.retired[id]
	return text, ok
}

func (d *Document) Comment(id string) (*Comment, bool) {
	c, ok := d.comments[id]
	return c, ok
}

// Comments returns the comments still present, in insertion order.
func (d *Document) Comments() []*Comment {
	out := make([]*Comment, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.comments[id])
	}
	return out
}

// Text returns the concatenated text of the paragraph's runs.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// NewParagraph returns a paragraph with one run per text.
func NewParagraph(texts ...string) *Paragraph {
	p := &Paragraph{}
	for _, t := range texts {
		p.Runs = append(p.Runs, &Run{Text: t})
	}
	return p
}

// Append adds blocks at the end of the container.
func (c *Container) Append(blocks ...Block) {
	c.Blocks = append(c.Blocks, blocks...)
}

// Paragraphs returns the text of every paragraph in the container and its
// tables, in document order.
func (c *Container) Paragraphs() []string {
	var out []string
	for _, b := range c.Blocks {
		switch b := b.(type) {
		case *Paragraph:
			out = append(out, b.Text())
		case *Table:
			for _, row := range b.Rows {
				for _, cell := range row.Cells {
					out = append(out, cell.Paragraphs()...)
				}
			}
		}
	}
	return out
}

func (p *Paragraph) cloneBlock() Block {
	n := &Paragraph{CommentID: p.CommentID, Runs: make([]*Run, len(p.Runs))}
	for i, r := range p.Runs {
		n.Runs[i] = &Run{CommentID: r.CommentID, Text: r.Text}
	}
	return n
}

func (t *Table) cloneBlock() Block {
	n := &Table{Rows: make([]*Row, len(t.Rows))}
	for i, row := range t.Rows {
		nr := &Row{Cells: make([]*Cell, len(row.Cells))}
		for j, cell := range row.Cells {
			nc := &Cell{}
			for _, b := range cell.Blocks {
				nc.Blocks = append(nc.Blocks, b.cloneBlock())
			}
			nr.Cells[j] = nc
		}
		n.Rows[i] = nr
	}
	return n
}

// anchors calls fn with every comment anchor of b, paragraphs before their
// runs, cells in row order.
func anchors(b Block, fn func(id *string)) {
	switch b := b.(type) {
	case *Paragraph:
		fn(&b.CommentID)
		for _, r := range b.Runs {
			fn(&r.CommentID)
		}
	case *Table:
		for _, row := range b.Rows {
			for _, cell := range row.Cells {
				for _, cb := range cell.Blocks {
					anchors(cb, fn)
				}
			}
		}
	}
}
