package document

import "github.com/grahms/docstamper"

// Walk visits every block in document order.
func (d *Document) Walk(v docstamper.Visitor) error {
	return walkContainer(d.Body, v)
}

// WalkRange visits the given blocks and their descendants.
func (d *Document) WalkRange(blocks []docstamper.Coordinates, v docstamper.Visitor) error {
	for _, c := range blocks {
		container, i, err := locate(c)
		if err != nil {
			return err
		}
		if err := walkBlock(container, i, v); err != nil {
			return err
		}
	}
	return nil
}

func walkContainer(c *Container, v docstamper.Visitor) error {
	for i := 0; i < len(c.Blocks); i++ {
		if err := walkBlock(c, i, v); err != nil {
			return err
		}
	}
	return nil
}

func walkBlock(c *Container, i int, v docstamper.Visitor) error {
	switch b := c.Blocks[i].(type) {
	case *Paragraph:
		pc := docstamper.ParagraphCoordinates{Paragraph: b, Parent: c, Index: i}
		if err := v.VisitParagraph(pc); err != nil {
			return err
		}
		for j, r := range b.Runs {
			if err := v.VisitRun(docstamper.RunCoordinates{Run: r, Paragraph: pc, Index: j}); err != nil {
				return err
			}
		}
	case *Table:
		if err := v.VisitTable(docstamper.TableCoordinates{Table: b, Parent: c, Index: i}); err != nil {
			return err
		}
		for _, row := range b.Rows {
			for _, cell := range row.Cells {
				if err := walkContainer(&cell.Container, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// coordinates returns the coordinates of the block at i.
func coordinates(c *Container, i int) docstamper.Coordinates {
	switch b := c.Blocks[i].(type) {
	case *Paragraph:
		return docstamper.ParagraphCoordinates{Paragraph: b, Parent: c, Index: i}
	case *Table:
		return docstamper.TableCoordinates{Table: b, Parent: c, Index: i}
	}
	return nil
}

// locate finds the current position of the block c refers to. Ordinals go
// stale once blocks are inserted, so the block is found by identity.
func locate(c docstamper.Coordinates) (*Container, int, error) {
	container, ok := c.Container().(*Container)
	if !ok {
		return nil, 0, docstamper.NewStructuralError("locate block", "foreign container %T", c.Container())
	}
	if i := c.Ordinal(); i >= 0 && i < len(container.Blocks) && any(container.Blocks[i]) == c.Node() {
		return container, i, nil
	}
	for i, b := range container.Blocks {
		if any(b) == c.Node() {
			return container, i, nil
		}
	}
	return nil, 0, docstamper.NewStructuralError("locate block", "block %d is no longer in its container", c.Ordinal())
}
