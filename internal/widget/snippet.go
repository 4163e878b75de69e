package widget

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SnippetLength is the maximum number of characters in a body snippet.
const SnippetLength = 400

// Snippet returns the visible text of body with whitespace collapsed,
// cut to at most n characters. Script and style contents are dropped.
// Bodies that are not HTML come back as their text.
func Snippet(body []byte, n int) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF, or a read error that leaves the text so far
			return truncate(strings.Join(strings.Fields(sb.String()), " "), n)
		case html.StartTagToken:
			if hidden(z) {
				skip++
			}
			sb.WriteByte(' ')
		case html.EndTagToken:
			if hidden(z) && skip > 0 {
				skip--
			}
			sb.WriteByte(' ')
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func hidden(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
