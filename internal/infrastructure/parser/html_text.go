package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockText renders a selection's text with <br> and block elements turned
// into newlines, so "first line" logic works on markup without raw newlines.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeBlockText(&b, n)
	}
	return b.String()
}

func writeBlockText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteString("\n")
			return
		case "script", "style":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeBlockText(b, c)
	}
	if n.Type == html.ElementNode && isBlock(n.Data) {
		b.WriteString("\n")
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6", "tr", "table":
		return true
	}
	return false
}

// joinedText collects every non-blank text node under sel, trimmed and
// joined with sep.
func joinedText(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// comments returns the data of every comment node under sel.
func comments(sel *goquery.Selection) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			out = append(out, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

// textAfterLabel finds the <strong> whose text contains label and returns
// the first non-blank text node that follows it among its siblings.
func textAfterLabel(sel *goquery.Selection, label string) string {
	strong := sel.Find("strong").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), label)
	}).First()
	if strong.Length() == 0 {
		return ""
	}
	for n := strong.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && n.Data == "strong" {
			break
		}
		var text string
		switch n.Type {
		case html.TextNode:
			text = n.Data
		case html.ElementNode:
			text = goquery.NewDocumentFromNode(n).Text()
		}
		if t := strings.TrimSpace(text); t != "" {
			return t
		}
	}
	return ""
}

func trimmed(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
