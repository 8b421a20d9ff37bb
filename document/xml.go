package document

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// The XML form of a document:
//
//	<document>
//	  <comments><comment id="1">loop(people, 'p')</comment></comments>
//	  <body>
//	    <p comment="1"><r>Hello </r><r comment="2">${p.name}</r></p>
//	    <table><tr><tc><p>cell</p></tc></tr></table>
//	  </body>
//	</document>
//
// A <p> without <r> children holds a single run with its text.
var (
	bodyExpr     = xpath.MustCompile("/document/body")
	commentsExpr = xpath.MustCompile("/document/comments/comment")
)

// Load parses a document from its XML form.
func Load(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	body := xmlquery.QuerySelector(root, bodyExpr)
	if body == nil {
		return nil, fmt.Errorf("parsing document: no /document/body element")
	}

	d := New()
	for _, n := range xmlquery.QuerySelectorAll(root, commentsExpr) {
		id := n.SelectAttr("id")
		if id == "" {
			return nil, fmt.Errorf("parsing document: comment without id")
		}
		d.AddComment(id, n.InnerText())
	}
	if d.Body.Blocks, err = readBlocks(body); err != nil {
		return nil, err
	}
	return d, nil
}

func readBlocks(n *xmlquery.Node) ([]Block, error) {
	var blocks []Block
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		switch child.Data {
		case "p":
			blocks = append(blocks, readParagraph(child))
		case "table":
			t, err := readTable(child)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, t)
		default:
			return nil, fmt.Errorf("parsing document: unexpected <%s> in <%s>", child.Data, n.Data)
		}
	}
	return blocks, nil
}

func readParagraph(n *xmlquery.Node) *Paragraph {
	p := &Paragraph{CommentID: n.SelectAttr("comment")}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == "r" {
			p.Runs = append(p.Runs, &Run{CommentID: child.SelectAttr("comment"), Text: child.InnerText()})
		}
	}
	if len(p.Runs) == 0 {
		if text := n.InnerText(); text != "" {
			p.Runs = append(p.Runs, &Run{Text: text})
		}
	}
	return p
}

func readTable(n *xmlquery.Node) (*Table, error) {
	t := &Table{}
	for tr := n.FirstChild; tr != nil; tr = tr.NextSibling {
		if tr.Type != xmlquery.ElementNode {
			continue
		}
		if tr.Data != "tr" {
			return nil, fmt.Errorf("parsing document: unexpected <%s> in <table>", tr.Data)
		}
		row := &Row{}
		for tc := tr.FirstChild; tc != nil; tc = tc.NextSibling {
			if tc.Type != xmlquery.ElementNode {
				continue
			}
			if tc.Data != "tc" {
				return nil, fmt.Errorf("parsing document: unexpected <%s> in <tr>", tc.Data)
			}
			blocks, err := readBlocks(tc)
			if err != nil {
				return nil, err
			}
			row.Cells = append(row.Cells, &Cell{Container: Container{Blocks: blocks}})
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Save writes the XML form of d. Comments deleted during a pass and anchors
// pointing at them are left out.
func Save(w io.Writer, d *Document) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	doc := xml.StartElement{Name: xml.Name{Local: "document"}}
	if err := enc.EncodeToken(doc); err != nil {
		return err
	}
	if comments := d.Comments(); len(comments) > 0 {
		start := xml.StartElement{Name: xml.Name{Local: "comments"}}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for _, c := range comments {
			if err := writeText(enc, "comment", attr("id", c.ID), c.Text); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return err
		}
	}
	if err := writeContainer(enc, d, "body", d.Body); err != nil {
		return err
	}
	if err := enc.EncodeToken(doc.End()); err != nil {
		return err
	}
	return enc.Flush()
}

func writeContainer(enc *xml.Encoder, d *Document, name string, c *Container) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, b := range c.Blocks {
		var err error
		switch b := b.(type) {
		case *Paragraph:
			err = writeParagraph(enc, d, b)
		case *Table:
			err = writeTable(enc, d, b)
		}
		if err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func writeParagraph(enc *xml.Encoder, d *Document, p *Paragraph) error {
	start := xml.StartElement{Name: xml.Name{Local: "p"}, Attr: d.anchor(p.CommentID)}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, r := range p.Runs {
		if err := writeText(enc, "r", d.anchor(r.CommentID), r.Text); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func writeTable(enc *xml.Encoder, d *Document, t *Table) error {
	table := xml.StartElement{Name: xml.Name{Local: "table"}}
	if err := enc.EncodeToken(table); err != nil {
		return err
	}
	for _, row := range t.Rows {
		tr := xml.StartElement{Name: xml.Name{Local: "tr"}}
		if err := enc.EncodeToken(tr); err != nil {
			return err
		}
		for _, cell := range row.Cells {
			if err := writeContainer(enc, d, "tc", &cell.Container); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(tr.End()); err != nil {
			return err
		}
	}
	return enc.EncodeToken(table.End())
}

func writeText(enc *xml.Encoder, name string, attrs []xml.Attr, text string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func (d *Document) anchor(id string) []xml.Attr {
	if _, ok := d.comments[id]; !ok || id == "" {
		return nil
	}
	return attr("comment", id)
}

func attr(name, value string) []xml.Attr {
	return []xml.Attr{{Name: xml.Name{Local: name}, Value: value}}
}

// String returns the paragraph texts of d joined by newlines, which is handy
// for inspecting a rendered document.
func (d *Document) String() string {
	return strings.Join(d.Body.Paragraphs(), "\n")
}
