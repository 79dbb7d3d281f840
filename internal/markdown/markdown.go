// Package markdown turns a clipped HTML selection into Markdown and reads the few
// page meta tags a clipping records.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var conv = htmltomarkdown.NewConverter(
	htmltomarkdown.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(
			commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
			commonmark.WithBulletListMarker("*"),
			commonmark.WithEmDelimiter("_"),
			commonmark.WithStrongDelimiter("**"),
		),
		strikethrough.NewStrikethroughPlugin(),
		table.NewTablePlugin(),
	),
)

// Convert renders an HTML fragment as Markdown. Headings are ATX style, list
// bullets are "*". Code blocks are fenced and their text is kept byte for byte;
// the fence carries the language from a "language-*" or "lang-*" class.
func Convert(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("failed to parse selection html: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	blocks := &codeBlocks{prefix: "CLIPCODE" + strings.ReplaceAll(uuid.NewString(), "-", "")}
	prepare(body, blocks)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("failed to render selection html: %w", err)
		}
	}

	md, err := conv.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("failed to convert selection html: %w", err)
	}
	return blocks.restore(strings.TrimSpace(md)), nil
}

// prepare drops elements that never render, strips script links and swaps every
// <pre> for a placeholder paragraph so the converter's whitespace handling never
// touches code.
func prepare(n *html.Node, blocks *codeBlocks) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
				n.RemoveChild(c)
			case atom.Pre:
				p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
				p.AppendChild(&html.Node{Type: html.TextNode, Data: blocks.add(c)})
				n.InsertBefore(p, c)
				n.RemoveChild(c)
			case atom.A:
				if strings.HasPrefix(strings.ToLower(attr(c, "href")), "javascript:") {
					removeAttr(c, "href")
				}
				prepare(c, blocks)
			default:
				prepare(c, blocks)
			}
		}
		c = next
	}
}

// codeBlocks holds fenced blocks keyed by placeholder tokens.
type codeBlocks struct {
	prefix string
	tokens []string
	fenced []string
}

func (b *codeBlocks) add(pre *html.Node) string {
	lang := language(attr(pre, "class"))
	if code := firstChildElement(pre, atom.Code); code != nil && lang == "" {
		lang = language(attr(code, "class"))
	}
	text := strings.TrimSuffix(textContent(pre), "\n")

	fence := "```"
	for strings.Contains(text, fence) {
		fence += "`"
	}

	token := fmt.Sprintf("%sN%dZ", b.prefix, len(b.tokens))
	b.tokens = append(b.tokens, token)
	b.fenced = append(b.fenced, fence+lang+"\n"+text+"\n"+fence)
	return token
}

// restore puts the fenced blocks back. A placeholder nested in a list item or a
// quote keeps that line's prefix: markers on the first line, spaces or ">" after.
func (b *codeBlocks) restore(md string) string {
	if len(b.tokens) == 0 {
		return md
	}
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		replaced := false
		for i, token := range b.tokens {
			idx := strings.Index(line, token)
			if idx < 0 {
				continue
			}
			first := line[:idx]
			rest := continuation(first)
			for j, l := range strings.Split(b.fenced[i], "\n") {
				if j == 0 {
					out = append(out, first+l)
				} else {
					out = append(out, rest+l)
				}
			}
			replaced = true
			break
		}
		if !replaced {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func continuation(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '>' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func language(class string) string {
	for _, c := range strings.Fields(class) {
		for _, p := range []string{"language-", "lang-"} {
			if strings.HasPrefix(c, p) {
				return strings.TrimPrefix(c, p)
			}
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Br {
			b.WriteString("\n")
			continue
		}
		b.WriteString(textContent(c))
	}
	return b.String()
}

func firstChildElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}
