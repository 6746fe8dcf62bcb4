// Package markup holds the small amount of HTML handling the capture
// pipeline needs: invisible-character stripping, link extraction and a
// plain-text rendering of copied markup.
package markup

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// invisible are the zero-width characters some applications put around
// copied text.
var invisible = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\n\f]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// StripInvisible removes zero-width characters and surrounding whitespace.
func StripInvisible(s string) string {
	return strings.TrimSpace(invisible.Replace(s))
}

// Unescape decodes HTML character references.
func Unescape(s string) string {
	return html.UnescapeString(s)
}

var rejectedSchemes = []string{"javascript:", "data:", "mailto:"}

// FirstHref returns the first href attribute value in markup. Links with
// javascript:, data: or mailto: targets are not candidates; if the first
// href is one of those no link is reported.
func FirstHref(markup string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					href := strings.TrimSpace(string(val))
					lower := strings.ToLower(href)
					for _, scheme := range rejectedSchemes {
						if strings.HasPrefix(lower, scheme) {
							return "", false
						}
					}
					return href, href != ""
				}
				if !more {
					break
				}
			}
		}
	}
}

// PlainText renders markup as the text a user would see: scripts and
// styles dropped, whitespace collapsed outside <pre>, block elements and
// <br> turned into line breaks. The result is passed through StripInvisible.
func PlainText(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse markup: %w", err)
	}

	var b strings.Builder
	var walk func(n *html.Node, pre bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if pre {
				b.WriteString(n.Data)
			} else {
				b.WriteString(spaceRun.ReplaceAllString(n.Data, " "))
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head, atom.Title, atom.Template:
				return
			case atom.Br:
				b.WriteString("\n")
				return
			case atom.Pre:
				pre = true
			}
		}
		block := n.Type == html.ElementNode && isBlock(n.DataAtom)
		if block {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}
		if block {
			b.WriteString("\n")
		}
	}
	walk(doc, false)

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.TrimLeft(line, " "), " ")
	}
	text := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return StripInvisible(text), nil
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Table,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Section, atom.Article,
		atom.Header, atom.Footer, atom.Dl, atom.Dt, atom.Dd, atom.Hr:
		return true
	}
	return false
}
