package docstamper

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/grahms/docstamper/internal/members"
)

// LoopCapability exposes loop(collection, name) and endloop() to
// expressions.
var LoopCapability = Capability{Name: "loop", Members: []string{"loop", "endloop"}}

// Loop is a repeat region: the blocks captured between a loop directive and
// its endloop, bound to a collection.
type Loop struct {
	Name       string
	Elements   []any
	StartIndex int
	EndIndex   int

	container any
	blocks    []capturedBlock
	scope     []Binding // bindings visible when the loop opened
	binding   Binding
	// opener and closer are the evaluation sequences of the loop and endloop
	// directives; directives evaluated between them belong to the region.
	opener, closer int
	// dead loops were opened inside a region bound to an empty collection
	// and go away with it.
	dead bool
}

// capturedBlock is a block of the region with its pristine snapshot.
type capturedBlock struct {
	coords   Coordinates
	snapshot Fragment
}

// Captured returns the coordinates of every block in the region in document
// order.
func (l *Loop) Captured() []Coordinates {
	out := make([]Coordinates, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = b.coords
	}
	return out
}

// LoopProcessor repeats document regions once per element of a collection.
// The region is rendered in place for the first element during the pass;
// Commit inserts a copy for every further element after it and runs the
// pass over the copy, so directives inside the region are evaluated again
// for each element.
type LoopProcessor struct {
	BaseProcessor

	open    []*Loop
	ended   []*Loop
	closing []*Loop
}

func NewLoopProcessor() *LoopProcessor {
	return &LoopProcessor{}
}

// Loop opens a region bound to collection. The current paragraph is the
// first block of the region and name refers to the first element until the
// matching endloop. An empty collection binds name to null, suppresses
// inline rendering inside the region and removes the region at commit.
func (p *LoopProcessor) Loop(collection any, name string) error {
	elems, err := members.Iterate(collection)
	if err != nil {
		return err
	}
	s := p.Session()
	cur := p.CurrentParagraph()
	snap, err := s.Document().Snapshot(cur)
	if err != nil {
		return err
	}

	l := &Loop{
		Name:       name,
		Elements:   elems,
		StartIndex: cur.Index,
		container:  cur.Parent,
		blocks:     []capturedBlock{{coords: cur, snapshot: snap}},
		scope:      s.Bindings(),
		opener:     s.position(),
		dead:       s.suspended > 0,
	}
	p.open = append(p.open, l)

	var first any
	if len(elems) > 0 {
		first = elems[0]
	} else {
		s.Suspend()
	}
	l.binding = s.Bind(name, first)
	return nil
}

// Endloop closes the innermost open region. The loop variable stays bound
// until the next block so the closing paragraph still renders with it.
func (p *LoopProcessor) Endloop() error {
	l := p.innermost()
	if l == nil {
		return NewUnbalancedLoopError("endloop() without an open loop")
	}
	p.open = p.open[:len(p.open)-1]
	l.EndIndex = p.CurrentParagraph().Index
	l.closer = p.Session().position()
	p.ended = append(p.ended, l)
	p.closing = append(p.closing, l)
	return nil
}

// OpenLoops returns the number of regions currently open.
func (p *LoopProcessor) OpenLoops() int { return len(p.open) }

// Ended returns the closed regions in the order they were closed.
func (p *LoopProcessor) Ended() []*Loop { return p.ended }

func (p *LoopProcessor) OnParagraph(c ParagraphCoordinates) {
	p.flushClosing()
	p.capture(c)
}

func (p *LoopProcessor) OnTable(c TableCoordinates) {
	p.flushClosing()
	p.capture(c)
}

// capture adds c to every open region of the same container. A region
// inside a table cell of another region belongs to the cell only.
func (p *LoopProcessor) capture(c Coordinates) {
	var snap Fragment
	for _, l := range p.open {
		if c.Container() != l.container {
			continue
		}
		if snap == nil {
			var err error
			if snap, err = p.Session().Document().Snapshot(c); err != nil {
				p.Session().Logger().Warn("cannot capture block",
					zap.String("loop", l.Name), zap.Int("block", c.Ordinal()), zap.Error(err))
				return
			}
		}
		l.blocks = append(l.blocks, capturedBlock{coords: c, snapshot: snap})
	}
}

func (p *LoopProcessor) flushClosing() {
	s := p.Session()
	for i := len(p.closing) - 1; i >= 0; i-- {
		l := p.closing[i]
		s.Unbind(l.binding)
		if len(l.Elements) == 0 {
			s.Resume()
		}
	}
	p.closing = nil
}

func (p *LoopProcessor) innermost() *Loop {
	if len(p.open) == 0 {
		return nil
	}
	return p.open[len(p.open)-1]
}

// Commit expands every closed region. Copies can open regions of their own;
// those are expanded in turn until none is left. Regions bound to an empty
// collection are removed once the copies of their batch are in place.
func (p *LoopProcessor) Commit(s *Session) error {
	p.flushClosing()
	if l := p.innermost(); l != nil {
		return NewUnbalancedLoopError(fmt.Sprintf("loop %q opened at block %d was never closed", l.Name, l.StartIndex))
	}

	for len(p.ended) > 0 {
		batch := p.ended
		p.ended = nil

		// Regions ending on the same block are closed innermost first; the
		// copies of an enclosing region go after those of the inner one.
		tails := map[any]Coordinates{}
		var removals []Coordinates
		for _, l := range batch {
			switch {
			case l.dead:
			case len(l.Elements) == 0:
				removals = append(removals, l.Captured()...)
			default:
				if err := p.expand(s, l, tails); err != nil {
					return err
				}
			}
		}
		for _, c := range removals {
			if err := s.Document().Remove(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// expand inserts a copy of the region after it for every element but the
// first and runs the pass over each copy with the element bound.
func (p *LoopProcessor) expand(s *Session, l *Loop, tails map[any]Coordinates) error {
	end := l.blocks[len(l.blocks)-1].coords.Node()
	anchor, ok := tails[end]
	if !ok {
		anchor = l.blocks[len(l.blocks)-1].coords
	}
	keep := func(id string) bool {
		seq, ok := s.evaluatedAt(id)
		return ok && l.opener < seq && seq < l.closer
	}

	for _, e := range l.Elements[1:] {
		copies := make([]Coordinates, 0, len(l.blocks))
		for _, b := range l.blocks {
			c, err := s.Document().InsertAfter(anchor, b.snapshot, keep)
			if err != nil {
				return err
			}
			copies = append(copies, c)
			anchor = c
		}
		vars := append(slices.Clone(l.scope), Binding{Name: l.Name, Value: e})
		if err := s.Render(copies, vars); err != nil {
			return err
		}
		p.flushClosing()
		if inner := p.innermost(); inner != nil {
			return NewUnbalancedLoopError(fmt.Sprintf("loop %q opened in a copy of %q was never closed", inner.Name, l.Name))
		}
	}
	tails[end] = anchor
	return nil
}

func (p *LoopProcessor) Reset() {
	p.open = nil
	p.ended = nil
	p.closing = nil
}
