package docstamper

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_FindExpressions(t *testing.T) {
	t.Run("should find tokens left to right", func(t *testing.T) {
		got := slices.Collect(FindExpressions("Hello ${name}, meet ${people[0].name}!"))
		assert.Equal(t, []string{"${name}", "${people[0].name}"}, got)
	})

	t.Run("should yield the same tokens on every scan", func(t *testing.T) {
		seq := FindExpressions("${a} and ${b}")
		assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
	})

	t.Run("should ignore unterminated tokens", func(t *testing.T) {
		assert.Empty(t, slices.Collect(FindExpressions("Hello ${name")))
		assert.Equal(t, []string{"${b}"}, slices.Collect(FindExpressions("${a ${b}")))
	})

	t.Run("should leave plain dollars and braces alone", func(t *testing.T) {
		assert.Empty(t, slices.Collect(FindExpressions("costs $5 {not} an expression")))
	})

	t.Run("should stop when the consumer stops", func(t *testing.T) {
		var got []string
		for tok := range FindExpressions("${a}${b}${c}") {
			got = append(got, tok)
			if len(got) == 2 {
				break
			}
		}
		assert.Equal(t, []string{"${a}", "${b}"}, got)
	})

	t.Run("should report byte offsets", func(t *testing.T) {
		var offsets []int
		for off := range locateExpressions("ab${x}cd${y}") {
			offsets = append(offsets, off)
		}
		assert.Equal(t, []int{2, 8}, offsets)
	})
}

func Test_StripDelimiters(t *testing.T) {
	assert.Equal(t, "name", StripDelimiters("${name}"))
	assert.Equal(t, "a + b", StripDelimiters("${ a + b }"))
}

func Test_Format(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "42", Format(int64(42)))
	assert.Equal(t, "Bart", Format("Bart"))
}

func Test_NormalizeQuotes(t *testing.T) {
	assert.Equal(t, "loop(people, 'p')", NormalizeQuotes("loop(people, „p“)"))
	assert.Equal(t, "replaceWordWith('x')", NormalizeQuotes("replaceWordWith(‘x’)"))
	assert.Equal(t, "plain 'text'", NormalizeQuotes("plain 'text'"))
}

func Test_AnnotationResolver(t *testing.T) {
	doc := newFakeDoc("one", "two").comment(0, "c1", "  loop(people, ‚p‘) ")
	doc.paragraphs[1].runs[0].comment = "c2"
	doc.comments["c2"] = "replaceWordWith(“x”)"
	r := annotationResolver{doc: doc}

	t.Run("should normalize quotes of paragraph annotations", func(t *testing.T) {
		a, ok := r.governing(doc.coords(0))
		assert.True(t, ok)
		assert.Equal(t, "loop(people, 'p')", a.Text)
		assert.Equal(t, "  loop(people, ‚p‘) ", doc.comments["c1"], "document text is not modified")
	})

	t.Run("should find the annotation around a run", func(t *testing.T) {
		a, ok := r.governing(RunCoordinates{Run: doc.paragraphs[1].runs[0], Paragraph: doc.coords(1)})
		assert.True(t, ok)
		assert.Equal(t, "c2", a.ID)
		assert.Equal(t, "replaceWordWith('x')", a.Text)

		_, ok = r.governing(doc.coords(1))
		assert.False(t, ok)
	})

	t.Run("should delete through the document", func(t *testing.T) {
		a, _ := r.governing(doc.coords(0))
		assert.NoError(t, r.delete(a))
		assert.Equal(t, []string{"c1"}, doc.deleted)
		_, ok := r.governing(doc.coords(0))
		assert.False(t, ok)
	})
}
