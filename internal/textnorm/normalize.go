// Package textnorm normalizes report text before classification and
// similarity matching. Reports arrive from chat and web forms, so markup
// is stripped first; scoring then works on lowercased, punctuation-free
// tokens so that case and whitespace never move a score.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Normalize lowercases text, strips punctuation, and collapses all
// whitespace runs to single spaces. Two inputs that differ only in case,
// punctuation, or whitespace normalize to the same string.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation and symbols are dropped
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the normalized word set of text.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// TokenSet returns the normalized words of text as a set.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokens(text) {
		set[tok] = true
	}
	return set
}

// StripMarkup extracts visible text from HTML input, skipping script and
// style content. Plain text passes through unchanged apart from
// whitespace collapsing.
func StripMarkup(input string) string {
	if !strings.ContainsAny(input, "<>") {
		return input
	}

	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return input
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String())
}
