// Package htmltok turns a raw HTML document into an ordered stream of
// structural events. It has no knowledge of any target schema: callers get
// tag-open/tag-close/text events with a monotonically increasing index and a
// nesting depth, and build their own region logic on top.
package htmltok

import (
	"strings"

	"golang.org/x/net/html"
)

// Kind classifies a token event.
type Kind int

const (
	// StartTag is an opening (or self-closing/void) tag.
	StartTag Kind = iota
	// EndTag is a closing tag.
	EndTag
	// Text is a run of non-whitespace character data.
	Text
)

// Token is one event in document order.
type Token struct {
	// Index increments by one per emitted event and is the only ordering
	// primitive downstream code relies on.
	Index int

	Kind Kind

	// Depth is the nesting depth of the element: for StartTag the depth the
	// element opens at, for EndTag the matching depth being closed. Text
	// carries the depth of its enclosing element.
	Depth int

	// Tag is the lowercase tag name for StartTag/EndTag events.
	Tag string

	// Attr holds the tag attributes for StartTag events, keys lowercased.
	Attr map[string]string

	// Text is the trimmed character data for Text events.
	Text string
}

// voidTags never receive a closing tag and must not deepen the tree.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Tokenize converts an HTML document into its event stream. Malformed input
// never fails: unclosed tags leave the depth bookkeeping to degrade
// gracefully, and tokenization simply stops at end of input, leaving any
// still-open regions for the caller to flush.
func Tokenize(src string) []Token {
	z := html.NewTokenizer(strings.NewReader(src))

	var (
		out   []Token
		index int
		depth int
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or an unrecoverable parse error: either way, stop.
			return out

		case html.TextToken:
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			index++
			out = append(out, Token{Index: index, Kind: Text, Depth: depth, Text: text})

		case html.StartTagToken, html.SelfClosingTagToken:
			tag, attrs := readTag(z)
			index++
			opens := tt == html.StartTagToken && !voidTags[tag]
			if opens {
				depth++
			}
			out = append(out, Token{Index: index, Kind: StartTag, Depth: depth, Tag: tag, Attr: attrs})

		case html.EndTagToken:
			tag, _ := readTag(z)
			if voidTags[tag] {
				continue
			}
			index++
			out = append(out, Token{Index: index, Kind: EndTag, Depth: depth, Tag: tag})
			if depth > 0 {
				depth--
			}
		}
	}
}

// readTag extracts the lowercase tag name and attribute map from the
// tokenizer's current token.
func readTag(z *html.Tokenizer) (string, map[string]string) {
	name, hasAttr := z.TagName()
	tag := strings.ToLower(string(name))
	if !hasAttr {
		return tag, nil
	}
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
		if !more {
			break
		}
	}
	return tag, attrs
}

// ClassContains reports whether the token's class attribute contains the
// given marker substring, case-insensitively.
func (t Token) ClassContains(marker string) bool {
	if marker == "" || t.Attr == nil {
		return false
	}
	return strings.Contains(strings.ToLower(t.Attr["class"]), marker)
}

// ID returns the token's id attribute, if any.
func (t Token) ID() string {
	if t.Attr == nil {
		return ""
	}
	return t.Attr["id"]
}
