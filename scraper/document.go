package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page. Strategies only read from it; the heuristic
// scorer works on a scrubbed copy obtained through Scrubbed.
type Document struct {
	doc *goquery.Document
	raw string
}

// ParseDocument parses raw HTML into a Document.
func ParseDocument(rawHTML string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc, raw: rawHTML}, nil
}

// emptyDocument is used when a page could not be parsed at all.
func emptyDocument() *Document {
	doc, _ := ParseDocument("")
	return doc
}

// Find runs a CSS selector against the document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// VisibleText returns the text of the page with script and style contents removed.
func (d *Document) VisibleText() string {
	clone := d.Scrubbed([]string{"script", "style", "noscript"})
	return clone.doc.Text()
}

// Scrubbed returns an independent copy of the document with the named tags removed.
func (d *Document) Scrubbed(tags []string) *Document {
	clone, err := ParseDocument(d.raw)
	if err != nil {
		return emptyDocument()
	}
	if len(tags) > 0 {
		clone.doc.Find(strings.Join(tags, ", ")).Remove()
	}
	return clone
}

// elementText joins the trimmed text nodes below sel with single spaces.
func elementText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
