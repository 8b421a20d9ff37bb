package expr

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// expression is a chain of operands joined by "+".
//
//nolint:govet // participle grammar tags are not standard struct tags
type expression struct {
	Head *postfix   `@@`
	Tail []*postfix `( "+" @@ )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type postfix struct {
	Primary  *primary  `@@`
	Suffixes []*suffix `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type suffix struct {
	Member *member     `  "." @@`
	Index  *expression `| "[" @@ "]"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type member struct {
	Name string    `@Ident`
	Call *callArgs `@@?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type callArgs struct {
	Args []*expression `"(" ( @@ ( "," @@ )* )? ")"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type primary struct {
	String *string     `  @String`
	Float  *float64    `| @Float`
	Int    *int64      `| @Int`
	True   bool        `| @"true"`
	False  bool        `| @"false"`
	Null   bool        `| @"null"`
	Ident  *member     `| @@`
	Group  *expression `| "(" @@ ")"`
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'(?:\\.|[^'\\])*'|"(?:\\.|[^"\\])*"`},
	{Name: "Float", Pattern: `[0-9]+\.[0-9]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[+(),.\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var exprParser = participle.MustBuild[expression](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// unquote strips the surrounding quotes of a string token and resolves
// backslash escapes.
func unquote(tok string) string {
	body := tok[1 : len(tok)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i == len(body)-1 {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		default:
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}
