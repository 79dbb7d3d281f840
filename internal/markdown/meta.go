package markdown

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Meta holds the page metadata recorded in a clipping preamble.
type Meta struct {
	Author    string
	Published string
}

// ExtractMeta reads <meta name="author"> and <meta property="article:published_time">
// from a full page. The first non-empty occurrence of each wins.
func ExtractMeta(page string) (Meta, error) {
	var m Meta
	if strings.TrimSpace(page) == "" {
		return m, nil
	}

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return m, fmt.Errorf("failed to parse page html: %w", err)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			content := attr(n, "content")
			switch {
			case m.Author == "" && strings.EqualFold(attr(n, "name"), "author"):
				m.Author = content
			case m.Published == "" && attr(n, "property") == "article:published_time":
				m.Published = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return m, nil
}
