// Package rtetext flattens rich-text lesson markup into speech-ready
// plain text. Custom rich-text-editor tags are rewritten into ordinary
// paragraph nodes before extraction so the generic text walk treats
// them uniformly.
package rtetext

import (
	"encoding/json"
	stdhtml "html"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContentDelimiter joins what were separate content blocks in the
// flattened text. The speech provider splits on the same delimiter to
// recover per-block segments.
const ContentDelimiter = "; "

// Custom rich-text tag names recognized by the normalizer. The set is
// closed; anything else in the markup is handled by the generic text
// extraction pass.
const (
	TagCollapsible = "oppia-noninteractive-collapsible"
	TagImage       = "oppia-noninteractive-image"
	TagLink        = "oppia-noninteractive-link"
	TagMath        = "oppia-noninteractive-math"
	TagVideo       = "oppia-noninteractive-video"
	TagSkillReview = "oppia-noninteractive-skillreview"
	TagTabs        = "oppia-noninteractive-tabs"
)

// rewriteFunc rewrites a custom tag's content in place before the tag
// is converted to a paragraph. A nil entry means the tag stays
// structurally opaque: its attribute text is never voiced.
type rewriteFunc func(n *html.Node)

var customTagRewrites = map[string]rewriteFunc{
	TagLink:        rewriteTextWithValue,
	TagSkillReview: rewriteTextWithValue,
	TagMath:        rewriteMathContent,
	TagCollapsible: nil,
	TagImage:       nil,
	TagVideo:       nil,
	TagTabs:        nil,
}

type mathContent struct {
	RawLatex string `json:"raw_latex"`
}

// Normalize converts rich markup into a flat plain-text string. Text
// of separate content blocks is joined by ContentDelimiter with
// surrounding whitespace stripped per segment. Malformed markup never
// fails; unparseable fragments degrade to empty text.
func Normalize(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		// html.Parse only fails on reader errors; a string reader
		// cannot produce one, but degrade to empty rather than panic.
		log.Debug("markup parse degraded to empty text", "error", err)
		return ""
	}

	convertCustomTags(doc)

	var segments []string
	collectText(doc, &segments)
	return strings.Join(segments, ContentDelimiter)
}

// convertCustomTags walks the tree, applies the per-kind rewrite to
// every recognized custom tag, and renames the tag to a generic
// paragraph so extraction treats it like any other block.
func convertCustomTags(n *html.Node) {
	if n.Type == html.ElementNode {
		if rewrite, ok := customTagRewrites[n.Data]; ok {
			if rewrite != nil {
				rewrite(n)
			}
			n.Data = "p"
			n.DataAtom = atom.P
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		convertCustomTags(child)
	}
}

// rewriteTextWithValue substitutes the tag with the unescaped value of
// its text-with-value attribute. The attribute holds a JSON-encoded
// string; anything undecodable contributes no text.
func rewriteTextWithValue(n *html.Node) {
	raw, ok := attrValue(n, "text-with-value")
	if !ok {
		return
	}
	var text string
	if err := json.Unmarshal([]byte(stdhtml.UnescapeString(raw)), &text); err != nil {
		log.Debug("undecodable text-with-value attribute", "tag", n.Data, "error", err)
		return
	}
	setString(n, text)
}

// rewriteMathContent substitutes a math tag with the plain-language
// rendering of its embedded LaTeX formula.
func rewriteMathContent(n *html.Node) {
	raw, ok := attrValue(n, "math_content-with-value")
	if !ok {
		return
	}
	var content mathContent
	if err := json.Unmarshal([]byte(stdhtml.UnescapeString(raw)), &content); err != nil {
		log.Debug("undecodable math_content-with-value attribute", "error", err)
		return
	}
	setString(n, LatexToText(content.RawLatex))
}

func attrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// setString replaces the node's children with a single text node.
func setString(n *html.Node, text string) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// collectText appends the trimmed text of every non-empty leaf text
// node in document order.
func collectText(n *html.Node, segments *[]string) {
	if n.Type == html.TextNode {
		if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
			*segments = append(*segments, trimmed)
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, segments)
	}
}
