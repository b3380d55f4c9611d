// Package parser turns raw HTML into a cleaned document model.
// It extracts the title, meta fields, plain text, images and outgoing
// links used by the crawler and the term ranker.
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/masahif/termspider/internal/linknorm"
)

// Node is a node of the cleaned parse tree.
type Node = xhtml.Node

// Document is the parsed form of a single page. It lives for one
// page-processing cycle and is not safe for concurrent mutation.
type Document struct {
	source string
	doc    *goquery.Document

	title       string
	hasTitle    bool
	keywords    string
	hasKeywords bool
	description string
	hasDesc     bool
	plainText   string
}

// Parse builds a Document from raw HTML fetched from sourceLink. Malformed
// markup never fails: the tokenizer recovers the same way browsers do, and
// an unreadable input yields an empty document.
func Parse(htmlContent, sourceLink string) *Document {
	root, err := xhtml.Parse(strings.NewReader(htmlContent))
	if err != nil {
		root = &xhtml.Node{Type: xhtml.DocumentNode}
	}

	d := &Document{
		source: sourceLink,
		doc:    goquery.NewDocumentFromNode(root),
	}

	d.clean()
	d.title, d.hasTitle = d.extractTitle()
	d.keywords, d.hasKeywords = d.metaContent("keywords")
	d.description, d.hasDesc = d.metaContent("description")
	d.plainText = d.buildPlainText()

	return d
}

// Source returns the link the document was fetched from.
func (d *Document) Source() string {
	return d.source
}

// Root returns the cleaned parse tree.
func (d *Document) Root() *xhtml.Node {
	return d.doc.Get(0)
}

// Find runs a CSS selector over the cleaned tree.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Title returns the decoded text of the first <title> element.
func (d *Document) Title() (string, bool) {
	return d.title, d.hasTitle
}

// MetaKeywords returns the content of <meta name="keywords">.
func (d *Document) MetaKeywords() (string, bool) {
	return d.keywords, d.hasKeywords
}

// MetaDescription returns the content of <meta name="description">.
func (d *Document) MetaDescription() (string, bool) {
	return d.description, d.hasDesc
}

// PlainText returns the meta description, the meta keywords and every
// non-blank text node in document order, separated by single spaces.
func (d *Document) PlainText() string {
	return d.plainText
}

// Images maps each normalized image URL to its alt text. Images without
// alt text are skipped and the first occurrence of a URL wins.
func (d *Document) Images() map[string]string {
	images := make(map[string]string)

	d.doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		link, ok := linknorm.Normalize(d.source, src)
		if !ok {
			return
		}

		alt, _ := s.Attr("alt")
		if alt == "" {
			return
		}

		if _, exists := images[link]; !exists {
			images[link] = alt
		}
	})

	return images
}

// OutgoingLinks returns the canonical form of every anchor href that
// resolves to a crawlable, fragment-free link. Duplicates are kept.
func (d *Document) OutgoingLinks() []string {
	var links []string

	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := linknorm.Normalize(d.source, href)
		if !ok || !linknorm.IsCanonical(link) {
			return
		}
		links = append(links, link)
	})

	return links
}

// clean drops script, style and noscript elements and all comments.
func (d *Document) clean() {
	d.doc.Find("script, style, noscript").Remove()

	var comments []*xhtml.Node
	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xhtml.CommentNode {
				comments = append(comments, c)
				continue
			}
			walk(c)
		}
	}
	walk(d.Root())

	for _, c := range comments {
		c.Parent.RemoveChild(c)
	}
}

func (d *Document) extractTitle() (string, bool) {
	sel := d.doc.Find("title").First()
	if sel.Length() == 0 {
		return "", false
	}
	return cleanText(sel.Text()), true
}

// metaContent returns the content attribute of the first meta element
// whose name matches case-insensitively.
func (d *Document) metaContent(name string) (string, bool) {
	var content string
	found := false

	d.doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		metaName, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(metaName), name) {
			return true
		}
		content, found = s.Attr("content")
		return false
	})

	if !found {
		return "", false
	}
	return cleanText(content), true
}

func (d *Document) buildPlainText() string {
	var parts []string
	if d.hasDesc && d.description != "" {
		parts = append(parts, d.description)
	}
	if d.hasKeywords && d.keywords != "" {
		parts = append(parts, d.keywords)
	}

	parts = append(parts, LeafText(d.Root(), nil)...)

	return strings.Join(parts, " ")
}

// LeafText returns the whitespace-collapsed, non-blank text nodes below n in document
// order. Subtrees rooted at a node for which skip returns true are not
// visited; skip may be nil.
func LeafText(n *xhtml.Node, skip func(*xhtml.Node) bool) []string {
	var texts []string

	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if skip != nil && skip(n) {
			return
		}
		if n.Type == xhtml.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				texts = append(texts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}

	return texts
}

// cleanText collapses whitespace. The tokenizer has already decoded
// entities, so "&lt;b&gt;" arrives here as the literal text "<b>".
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
