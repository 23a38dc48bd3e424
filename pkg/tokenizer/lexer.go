package tokenizer

import (
	"github.com/alecthomas/participle/v2/lexer"
)

const (
	tagIdent   = `[\p{L}_:](?:[\p{L}\p{N}_\.:~]|-[\p{L}\p{N}_])*`
	layerIdent = `\+?[\p{L}\p{N}_](?:[\p{L}\p{N}_\.+]|-[\p{L}\p{N}_])*`
	// namePattern matches extended tags (?ns:name~1|+a,b) and annotation names.
	namePattern = `[?+\-]?` + tagIdent + `(?:\|` + layerIdent + `(?:,` + layerIdent + `)*)?`
	textPattern = `(?:[^\[<\\]|\\[\s\S])+`
)

// tagmlLexer is the stateful lexer for the TAGML surface syntax.
// Alternatives are tried in order, so more specific rules come first.
var tagmlLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		lexer.Include("Body"),
	},
	"Body": {
		{Name: "NamespaceDecl", Pattern: `\[!ns\s+[^\s\]]+\s+[^\s\]]+\s*\]`},
		{Name: "Comment", Pattern: `\[!(?:[^!]|![^\]])*!\]`},
		{Name: "EnterVariation", Pattern: `<\|`, Action: lexer.Push("Variation")},
		{Name: "EndTag", Pattern: `<[^\[\]<>\s|][^\[\]<>\s]*\]`},
		{Name: "TagOpen", Pattern: `\[`, Action: lexer.Push("Tag")},
		{Name: "Text", Pattern: textPattern},
	},
	"Variation": {
		{Name: "ExitVariation", Pattern: `\|>`, Action: lexer.Pop()},
		{Name: "BranchSeparator", Pattern: `\|`},
		{Name: "VariationText", Pattern: `(?:[^\[<\\|]|\\[\s\S])+`},
		lexer.Include("Body"),
	},
	"RichText": {
		{Name: "RichTextClose", Pattern: `<\]`, Action: lexer.Pop()},
		lexer.Include("Body"),
	},
	"Tag": {
		{Name: "TagClose", Pattern: `>`, Action: lexer.Pop()},
		{Name: "MilestoneClose", Pattern: `\]`, Action: lexer.Pop()},
		lexer.Include("Value"),
	},
	"List": {
		{Name: "ListClose", Pattern: `\]`, Action: lexer.Pop()},
		{Name: "ListSeparator", Pattern: `,`},
		lexer.Include("Value"),
	},
	"Map": {
		{Name: "MapClose", Pattern: `\}`, Action: lexer.Pop()},
		{Name: "MapSeparator", Pattern: `,`},
		lexer.Include("Value"),
	},
	"Value": {
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "RichTextOpen", Pattern: `\[>`, Action: lexer.Push("RichText")},
		{Name: "ListOpen", Pattern: `\[`, Action: lexer.Push("List")},
		{Name: "MapOpen", Pattern: `\{`, Action: lexer.Push("Map")},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
		{Name: "Arrow", Pattern: `->`},
		{Name: "Eq", Pattern: `=`},
		{Name: "Number", Pattern: `-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?`},
		{Name: "Name", Pattern: namePattern},
	},
})
