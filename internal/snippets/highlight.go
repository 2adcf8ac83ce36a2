package snippets

import (
	"io"
	"sort"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const DefaultStyle = "github"

// Highlight writes code as an HTML fragment with inline styles. Unknown
// languages fall back to plain text and unknown styles to DefaultStyle.
func Highlight(w io.Writer, code, language, style string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	if style == "" {
		style = DefaultStyle
	}
	st := styles.Get(style)

	formatter := html.New(
		html.WithLineNumbers(true),
		html.TabWidth(4),
	)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return err
	}
	return formatter.Format(w, st, iterator)
}

// Languages lists the language names accepted by Highlight.
func Languages() []string {
	names := lexers.Names(false)
	seen := make(map[string]struct{}, len(names)+1)
	out := make([]string, 0, len(names)+1)
	for _, n := range append(names, DefaultLanguage) {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
