package docstamper

// ReplaceWithCapability exposes replaceWordWith(text) to expressions.
var ReplaceWithCapability = Capability{Name: "replaceWith", Members: []string{"replaceWordWith"}}

type stagedReplacement struct {
	run  RunCoordinates
	text string
}

// ReplaceWithProcessor replaces the text of the run a directive is attached
// to. Replacements are staged during the pass and applied in Commit; a later
// replacement of the same run wins.
type ReplaceWithProcessor struct {
	BaseProcessor

	staged []stagedReplacement
	byRun  map[any]int
}

func NewReplaceWithProcessor() *ReplaceWithProcessor {
	return &ReplaceWithProcessor{byRun: map[any]int{}}
}

// ReplaceWordWith stages value as the new text of the current run. Outside a
// run directive it does nothing.
func (p *ReplaceWithProcessor) ReplaceWordWith(value any) {
	r := p.CurrentRun()
	if r == nil {
		return
	}
	text := Format(value)
	if i, ok := p.byRun[r.Run]; ok {
		p.staged[i].text = text
		return
	}
	p.byRun[r.Run] = len(p.staged)
	p.staged = append(p.staged, stagedReplacement{run: *r, text: text})
}

// Staged returns the number of pending replacements.
func (p *ReplaceWithProcessor) Staged() int { return len(p.staged) }

func (p *ReplaceWithProcessor) Commit(s *Session) error {
	for _, r := range p.staged {
		if err := s.Document().SetRunText(r.run, r.text); err != nil {
			return err
		}
	}
	p.Reset()
	return nil
}

func (p *ReplaceWithProcessor) Reset() {
	p.staged = nil
	p.byRun = map[any]int{}
}
