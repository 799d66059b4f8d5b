package htmltok

import "testing"

func TestTokenizeOrderAndDepth(t *testing.T) {
	src := `<div id="a"><p>hi</p><br>there</div>`
	tokens := Tokenize(src)

	want := []struct {
		kind  Kind
		tag   string
		text  string
		depth int
	}{
		{StartTag, "div", "", 1},
		{StartTag, "p", "", 2},
		{Text, "", "hi", 2},
		{EndTag, "p", "", 2},
		{StartTag, "br", "", 1}, // void: depth unchanged
		{Text, "", "there", 1},
		{EndTag, "div", "", 1},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(want), tokens)
	}
	for i, w := range want {
		tok := tokens[i]
		if tok.Index != i+1 {
			t.Errorf("token %d: index = %d, want %d", i, tok.Index, i+1)
		}
		if tok.Kind != w.kind || tok.Tag != w.tag || tok.Text != w.text || tok.Depth != w.depth {
			t.Errorf("token %d = %+v, want %+v", i, tok, w)
		}
	}
}

func TestTokenizeAttributes(t *testing.T) {
	tokens := Tokenize(`<a HREF="/product/x" Class="inner Big">link</a>`)
	if len(tokens) == 0 || tokens[0].Kind != StartTag {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
	a := tokens[0]
	if a.Attr["href"] != "/product/x" {
		t.Errorf("href = %q, attribute keys must be lowercased", a.Attr["href"])
	}
	if !a.ClassContains("inner") || !a.ClassContains("big") {
		t.Error("ClassContains should match case-insensitively")
	}
	if a.ClassContains("") {
		t.Error("empty marker must not match")
	}
}

func TestTokenizeSkipsBlankText(t *testing.T) {
	tokens := Tokenize("<div>\n\t  </div>")
	for _, tok := range tokens {
		if tok.Kind == Text {
			t.Errorf("whitespace-only text emitted: %+v", tok)
		}
	}
}

func TestTokenizeMalformed(t *testing.T) {
	// Unclosed tags must not panic and must still emit what was seen.
	tokens := Tokenize(`<div><span>text`)
	var sawText bool
	for _, tok := range tokens {
		if tok.Kind == Text && tok.Text == "text" {
			sawText = true
			if tok.Depth != 2 {
				t.Errorf("text depth = %d, want 2", tok.Depth)
			}
		}
	}
	if !sawText {
		t.Error("text inside unclosed tags was lost")
	}
}

func TestTokenizeSelfClosing(t *testing.T) {
	tokens := Tokenize(`<div><img src="/x.jpg"/><p>after</p></div>`)
	for _, tok := range tokens {
		if tok.Tag == "p" && tok.Kind == StartTag && tok.Depth != 2 {
			t.Errorf("p depth = %d, want 2 (self-closing img must not deepen)", tok.Depth)
		}
	}
}

func TestTokenID(t *testing.T) {
	tokens := Tokenize(`<div id="product-description">x</div>`)
	if tokens[0].ID() != "product-description" {
		t.Errorf("ID() = %q", tokens[0].ID())
	}
	if (Token{}).ID() != "" {
		t.Error("ID() on attributeless token should be empty")
	}
}
