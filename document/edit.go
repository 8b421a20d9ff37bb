package document

import (
	"slices"

	"github.com/grahms/docstamper"
)

func (d *Document) ParagraphAnnotation(p docstamper.ParagraphCoordinates) (*docstamper.Annotation, bool) {
	para, ok := p.Paragraph.(*Paragraph)
	if !ok {
		return nil, false
	}
	return d.annotation(para.CommentID, p)
}

func (d *Document) RunAnnotation(r docstamper.RunCoordinates) (*docstamper.Annotation, bool) {
	run, ok := r.Run.(*Run)
	if !ok {
		return nil, false
	}
	if a, ok := d.annotation(run.CommentID, r.Paragraph); ok {
		return a, true
	}
	return d.ParagraphAnnotation(r.Paragraph)
}

func (d *Document) annotation(id string, p docstamper.ParagraphCoordinates) (*docstamper.Annotation, bool) {
	if id == "" {
		return nil, false
	}
	c, ok := d.comments[id]
	if !ok {
		return nil, false
	}
	a := &docstamper.Annotation{ID: c.ID, Text: c.Text}
	para := p.Paragraph.(*Paragraph)
	whole := para.CommentID == id
	if whole {
		a.Governs = append(a.Governs, p)
	}
	for j, r := range para.Runs {
		if whole || r.CommentID == id {
			a.Governs = append(a.Governs, docstamper.RunCoordinates{Run: r, Paragraph: p, Index: j})
		}
	}
	return a, true
}

// DeleteAnnotation removes the comment. The text it governed is left alone.
func (d *Document) DeleteAnnotation(a *docstamper.Annotation) error {
	if _, ok := d.comments[a.ID]; !ok {
		return docstamper.NewStructuralError("delete annotation", "annotation %s does not exist", a.ID)
	}
	d.retired[a.ID] = d.comments[a.ID].Text
	delete(d.comments, a.ID)
	d.order = slices.DeleteFunc(d.order, func(id string) bool { return id == a.ID })
	return nil
}

func (d *Document) Runs(p docstamper.ParagraphCoordinates) []docstamper.RunCoordinates {
	para, ok := p.Paragraph.(*Paragraph)
	if !ok {
		return nil
	}
	out := make([]docstamper.RunCoordinates, len(para.Runs))
	for i, r := range para.Runs {
		out[i] = docstamper.RunCoordinates{Run: r, Paragraph: p, Index: i}
	}
	return out
}

func (d *Document) ParagraphText(p docstamper.ParagraphCoordinates) string {
	para, ok := p.Paragraph.(*Paragraph)
	if !ok {
		return ""
	}
	return para.Text()
}

// ReplaceText replaces old at offset in the paragraph text. When old spans
// several runs the replacement goes into the first of them and the rest of
// old is cut from the others, so run formatting boundaries survive.
func (d *Document) ReplaceText(p docstamper.ParagraphCoordinates, offset int, old, replacement string) error {
	para, ok := p.Paragraph.(*Paragraph)
	if !ok {
		return docstamper.NewStructuralError("replace text", "not a paragraph: %T", p.Paragraph)
	}
	text := para.Text()
	end := offset + len(old)
	if offset < 0 || end > len(text) || text[offset:end] != old {
		return docstamper.NewStructuralError("replace text", "%q not found at offset %d", old, offset)
	}

	pos := 0
	inserted := false
	for _, r := range para.Runs {
		rs, re := pos, pos+len(r.Text)
		pos = re
		if re <= offset || rs >= end {
			continue
		}
		lo, hi := max(offset, rs)-rs, min(end, re)-rs
		if !inserted {
			r.Text = r.Text[:lo] + replacement + r.Text[hi:]
			inserted = true
			continue
		}
		r.Text = r.Text[:lo] + r.Text[hi:]
	}
	return nil
}

func (d *Document) SetRunText(r docstamper.RunCoordinates, text string) error {
	run, ok := r.Run.(*Run)
	if !ok {
		return docstamper.NewStructuralError("set run text", "not a run: %T", r.Run)
	}
	run.Text = text
	return nil
}

// fragment is a detached block plus the text of every comment anchored in
// it when the snapshot was taken.
type fragment struct {
	block    Block
	comments map[string]string
}

// Snapshot returns a deep copy of the block. Comment anchors are kept along
// with their text, so the copy still knows its directives after the
// originals are deleted.
func (d *Document) Snapshot(c docstamper.Coordinates) (docstamper.Fragment, error) {
	b, ok := c.Node().(Block)
	if !ok {
		return nil, docstamper.NewStructuralError("snapshot", "not a block: %T", c.Node())
	}
	f := &fragment{block: b.cloneBlock(), comments: map[string]string{}}
	anchors(f.block, func(id *string) {
		if text, ok := d.commentText(*id); ok && *id != "" {
			f.comments[*id] = text
		}
	})
	return f, nil
}

// InsertAfter inserts a copy of the fragment right after anchor. Comments
// accepted by keep are added again under fresh ids.
func (d *Document) InsertAfter(anchor docstamper.Coordinates, f docstamper.Fragment, keep func(id string) bool) (docstamper.Coordinates, error) {
	fr, ok := f.(*fragment)
	if !ok {
		return nil, docstamper.NewStructuralError("insert block", "not a fragment: %T", f)
	}
	container, i, err := locate(anchor)
	if err != nil {
		return nil, err
	}

	b := fr.block.cloneBlock()
	renamed := map[string]string{}
	anchors(b, func(id *string) {
		if *id == "" {
			return
		}
		text, ok := fr.comments[*id]
		if !ok || keep == nil || !keep(*id) {
			*id = ""
			return
		}
		n, done := renamed[*id]
		if !done {
			n = d.freshID(*id)
			d.AddComment(n, text)
			renamed[*id] = n
		}
		*id = n
	})
	container.Blocks = slices.Insert(container.Blocks, i+1, b)
	return coordinates(container, i+1), nil
}

func (d *Document) Remove(c docstamper.Coordinates) error {
	container, i, err := locate(c)
	if err != nil {
		return err
	}
	container.Blocks = slices.Delete(container.Blocks, i, i+1)
	return nil
}
