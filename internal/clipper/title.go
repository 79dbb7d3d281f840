package clipper

import (
	"fmt"
	"strings"
	"time"
)

const (
	titleWords    = 10
	maxTitleRunes = 100
	defaultTitle  = "New Document"
	notSpecified  = "(Not specified)"
)

// BuildTitle joins the page title and the first ten space-separated words of the
// selection with " - ". Either part may be missing; with neither the title is
// "New Document". The result is cut to 100 runes.
func BuildTitle(pageTitle, selection string) string {
	pageTitle = strings.TrimSpace(pageTitle)

	words := strings.Split(strings.TrimSpace(selection), " ")
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	snippet := strings.Join(words, " ")

	var title string
	switch {
	case pageTitle != "" && snippet != "":
		title = pageTitle + " - " + snippet
	case pageTitle != "":
		title = pageTitle
	case snippet != "":
		title = snippet
	default:
		title = defaultTitle
	}

	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	return title
}

// Preamble is the metadata table placed above every clipping.
type Preamble struct {
	Title     string
	Source    string
	Author    string
	Published string
	ClippedAt time.Time
}

// Markdown renders the table. Empty values read "(Not specified)"; dates are UTC.
func (p Preamble) Markdown() string {
	at := p.ClippedAt.UTC()
	rows := []struct{ field, value string }{
		{"Title", orNotSpecified(p.Title)},
		{"Source", orNotSpecified(p.Source)},
		{"Author", orNotSpecified(p.Author)},
		{"Published", orNotSpecified(p.Published)},
		{"Created", at.Format(time.DateOnly)},
		{"Clipped Date", at.Format("2006-01-02T15:04:05.000Z")},
	}

	var b strings.Builder
	b.WriteString("| Field        | Value |\n")
	b.WriteString("|--------------|-------|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %-12s | %s |\n", r.field, tableCell(r.value))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func tableCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
