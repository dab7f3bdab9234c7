package transcript

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipped elements contribute no text.
var skipped = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true,
	atom.Noscript: true, atom.Template: true, atom.Svg: true,
}

// Elements that open a new paragraph, and elements that only break the line.
var (
	paragraphs = map[atom.Atom]bool{
		atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
		atom.Blockquote: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
		atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	}
	lineBreaks = map[atom.Atom]bool{atom.Br: true, atom.Hr: true, atom.Li: true, atom.Tr: true}
)

// FromHTML extracts transcript text from an HTML page. Paragraph-level
// elements become blank lines so speaker blocks stay separable. Input the
// parser rejects is normalised as plain text.
func FromHTML(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return NormalizeText(content)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
		}

		para := paragraphs[n.DataAtom]
		if para {
			b.WriteString("\n\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		switch {
		case para:
			b.WriteString("\n\n")
		case lineBreaks[n.DataAtom]:
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return NormalizeText(trimLines(b.String()))
}

// markdownRules run in order: fenced code goes before inline code, and
// images before links so "![alt](src)" is not kept as "!alt".
var markdownRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile("(?s)```.*?```"), ""},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
	{regexp.MustCompile(`\*\*|__|\*`), ""},
	{regexp.MustCompile(`(?m)^>\s*`), ""},
	{regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*(?:[-+]|\d+\.)[ \t]+`), ""},
}

// FromMarkdown removes common Markdown formatting. Speaker markers such as
// "**CFO:**" are reduced to "CFO:".
func FromMarkdown(content string) string {
	for _, r := range markdownRules {
		content = r.re.ReplaceAllString(content, r.repl)
	}
	return NormalizeText(trimLines(content))
}

func trimLines(content string) string {
	lines := strings.Split(content, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n")
}
