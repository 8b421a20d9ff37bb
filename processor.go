package docstamper

// Processor is the contract every extension registered with the engine
// implements. Processors never mutate the document while the walk is in
// progress; structural changes are staged and applied in Commit.
type Processor interface {
	// Begin hands the processor the session of a new pass. It is called
	// after Reset.
	Begin(s *Session)
	// OnParagraph and OnTable are called for every block the walker visits,
	// before any directive of that block is evaluated.
	OnParagraph(p ParagraphCoordinates)
	OnTable(t TableCoordinates)
	// SetCurrentParagraph and SetCurrentRun run before each evaluation. The
	// run is nil for paragraph directives and inline expressions.
	SetCurrentParagraph(p ParagraphCoordinates)
	SetCurrentRun(r *RunCoordinates)
	// Commit applies staged changes. With nothing staged it must not touch
	// the document.
	Commit(s *Session) error
	// Reset drops all per-pass state.
	Reset()
}

// BaseProcessor carries the context every processor needs. Embed it and
// implement Commit and Reset.
type BaseProcessor struct {
	session   *Session
	paragraph ParagraphCoordinates
	run       *RunCoordinates
}

func (b *BaseProcessor) Begin(s *Session) { b.session = s }

func (b *BaseProcessor) Session() *Session { return b.session }

func (b *BaseProcessor) OnParagraph(ParagraphCoordinates) {}

func (b *BaseProcessor) OnTable(TableCoordinates) {}

func (b *BaseProcessor) SetCurrentParagraph(p ParagraphCoordinates) { b.paragraph = p }

func (b *BaseProcessor) CurrentParagraph() ParagraphCoordinates { return b.paragraph }

func (b *BaseProcessor) SetCurrentRun(r *RunCoordinates) { b.run = r }

// CurrentRun returns the run under evaluation, or nil outside run directives.
func (b *BaseProcessor) CurrentRun() *RunCoordinates { return b.run }
