package docstamper

import "strings"

// quoteFolder folds the typographic quotes word processors substitute while
// typing onto a plain apostrophe, so directive text is quote-style
// insensitive.
var quoteFolder = strings.NewReplacer(
	"„", "'",
	"“", "'",
	"”", "'",
	"‚", "'",
	"‘", "'",
	"’", "'",
)

// NormalizeQuotes returns text with typographic quotation marks replaced by
// an apostrophe.
func NormalizeQuotes(text string) string {
	return quoteFolder.Replace(text)
}

// annotationResolver finds the annotation governing a coordinate.
type annotationResolver struct {
	doc Document
}

// governing returns the annotation for c with normalized text. Runs get the
// nearest wrapping annotation, paragraphs the one anchored on them.
func (r annotationResolver) governing(c any) (*Annotation, bool) {
	var (
		a  *Annotation
		ok bool
	)
	switch c := c.(type) {
	case RunCoordinates:
		a, ok = r.doc.RunAnnotation(c)
	case ParagraphCoordinates:
		a, ok = r.doc.ParagraphAnnotation(c)
	}
	if !ok || a == nil {
		return nil, false
	}
	n := *a
	n.Text = NormalizeQuotes(strings.TrimSpace(a.Text))
	return &n, true
}

func (r annotationResolver) delete(a *Annotation) error {
	return r.doc.DeleteAnnotation(a)
}
