package docstamper

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// fakeDoc is a flat list of paragraphs, enough to drive the engine without
// a real document model.
type fakeDoc struct {
	paragraphs []*fakeParagraph
	comments   map[string]string
	retired    map[string]string
	deleted    []string
	mutations  int
	copies     int
}

type fakeParagraph struct {
	comment string
	runs    []*fakeRun
}

type fakeRun struct {
	comment string
	text    string
}

func newFakeDoc(texts ...string) *fakeDoc {
	d := &fakeDoc{comments: map[string]string{}, retired: map[string]string{}}
	for _, t := range texts {
		d.paragraphs = append(d.paragraphs, &fakeParagraph{runs: []*fakeRun{{text: t}}})
	}
	return d
}

func (d *fakeDoc) comment(paragraph int, id, text string) *fakeDoc {
	d.comments[id] = text
	d.paragraphs[paragraph].comment = id
	return d
}

func (d *fakeDoc) texts() []string {
	out := make([]string, len(d.paragraphs))
	for i, p := range d.paragraphs {
		out[i] = p.text()
	}
	return out
}

func (p *fakeParagraph) text() string {
	var sb strings.Builder
	for _, r := range p.runs {
		sb.WriteString(r.text)
	}
	return sb.String()
}

func (p *fakeParagraph) clone() *fakeParagraph {
	n := &fakeParagraph{comment: p.comment}
	for _, r := range p.runs {
		n.runs = append(n.runs, &fakeRun{comment: r.comment, text: r.text})
	}
	return n
}

// anchors returns pointers to the non-empty comment anchors of p.
func (p *fakeParagraph) anchors() []*string {
	var out []*string
	for _, id := range append([]*string{&p.comment}, runAnchors(p.runs)...) {
		if *id != "" {
			out = append(out, id)
		}
	}
	return out
}

func runAnchors(runs []*fakeRun) []*string {
	out := make([]*string, len(runs))
	for i, r := range runs {
		out[i] = &r.comment
	}
	return out
}

func (d *fakeDoc) text(id string) (string, bool) {
	if text, ok := d.comments[id]; ok {
		return text, true
	}
	text, ok := d.retired[id]
	return text, ok
}

func (d *fakeDoc) coords(i int) ParagraphCoordinates {
	return ParagraphCoordinates{Paragraph: d.paragraphs[i], Parent: d, Index: i}
}

func (d *fakeDoc) index(node any) int {
	return slices.IndexFunc(d.paragraphs, func(p *fakeParagraph) bool { return any(p) == node })
}

func (d *fakeDoc) Walk(v Visitor) error {
	for i := 0; i < len(d.paragraphs); i++ {
		if err := d.walk(i, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *fakeDoc) walk(i int, v Visitor) error {
	pc := d.coords(i)
	if err := v.VisitParagraph(pc); err != nil {
		return err
	}
	for j, r := range d.paragraphs[i].runs {
		if err := v.VisitRun(RunCoordinates{Run: r, Paragraph: pc, Index: j}); err != nil {
			return err
		}
	}
	return nil
}

func (d *fakeDoc) WalkRange(blocks []Coordinates, v Visitor) error {
	for _, c := range blocks {
		if err := d.walk(d.index(c.Node()), v); err != nil {
			return err
		}
	}
	return nil
}

func (d *fakeDoc) ParagraphAnnotation(p ParagraphCoordinates) (*Annotation, bool) {
	return d.annotation(p.Paragraph.(*fakeParagraph).comment)
}

func (d *fakeDoc) RunAnnotation(r RunCoordinates) (*Annotation, bool) {
	if a, ok := d.annotation(r.Run.(*fakeRun).comment); ok {
		return a, true
	}
	return d.ParagraphAnnotation(r.Paragraph)
}

func (d *fakeDoc) annotation(id string) (*Annotation, bool) {
	text, ok := d.comments[id]
	if id == "" || !ok {
		return nil, false
	}
	return &Annotation{ID: id, Text: text}, true
}

func (d *fakeDoc) DeleteAnnotation(a *Annotation) error {
	if _, ok := d.comments[a.ID]; !ok {
		return NewStructuralError("delete annotation", "annotation %s does not exist", a.ID)
	}
	d.retired[a.ID] = d.comments[a.ID]
	delete(d.comments, a.ID)
	d.deleted = append(d.deleted, a.ID)
	return nil
}

func (d *fakeDoc) Runs(p ParagraphCoordinates) []RunCoordinates {
	var out []RunCoordinates
	for j, r := range p.Paragraph.(*fakeParagraph).runs {
		out = append(out, RunCoordinates{Run: r, Paragraph: p, Index: j})
	}
	return out
}

func (d *fakeDoc) ParagraphText(p ParagraphCoordinates) string {
	return p.Paragraph.(*fakeParagraph).text()
}

func (d *fakeDoc) ReplaceText(p ParagraphCoordinates, offset int, old, replacement string) error {
	para := p.Paragraph.(*fakeParagraph)
	text := para.text()
	if !strings.HasPrefix(text[offset:], old) {
		return NewStructuralError("replace text", "%q not at %d", old, offset)
	}
	d.mutations++
	para.runs = []*fakeRun{{text: text[:offset] + replacement + text[offset+len(old):]}}
	return nil
}

func (d *fakeDoc) SetRunText(r RunCoordinates, text string) error {
	d.mutations++
	r.Run.(*fakeRun).text = text
	return nil
}

type fakeFragment struct {
	p        *fakeParagraph
	comments map[string]string
}

func (d *fakeDoc) Snapshot(c Coordinates) (Fragment, error) {
	p, ok := c.Node().(*fakeParagraph)
	if !ok {
		return nil, errors.New("not a paragraph")
	}
	f := &fakeFragment{p: p.clone(), comments: map[string]string{}}
	for _, id := range f.p.anchors() {
		if text, ok := d.text(*id); ok {
			f.comments[*id] = text
		}
	}
	return f, nil
}

func (d *fakeDoc) InsertAfter(anchor Coordinates, f Fragment, keep func(id string) bool) (Coordinates, error) {
	i := d.index(anchor.Node())
	if i < 0 {
		return nil, NewStructuralError("insert", "anchor not found")
	}
	src := f.(*fakeFragment)
	p := src.p.clone()
	renamed := map[string]string{}
	for _, id := range p.anchors() {
		text, ok := src.comments[*id]
		if !ok || keep == nil || !keep(*id) {
			*id = ""
			continue
		}
		n, done := renamed[*id]
		if !done {
			d.copies++
			n = fmt.Sprintf("%s.%d", *id, d.copies)
			d.comments[n] = text
			renamed[*id] = n
		}
		*id = n
	}
	d.mutations++
	d.paragraphs = slices.Insert(d.paragraphs, i+1, p)
	return d.coords(i + 1), nil
}

func (d *fakeDoc) Remove(c Coordinates) error {
	i := d.index(c.Node())
	if i < 0 {
		return NewStructuralError("remove", "block not found")
	}
	d.mutations++
	d.paragraphs = slices.Delete(d.paragraphs, i, i+1)
	return nil
}
