package scrape

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/webshelf/webshelf/internal/config"
	"github.com/webshelf/webshelf/internal/htmltok"
	"github.com/webshelf/webshelf/internal/normalize"
	"github.com/webshelf/webshelf/internal/types"
)

var (
	priceRe = regexp.MustCompile(`(?i)(\d[\d\s\x{00A0}]+)[\s\x{00A0}]*руб`)
	skuRe   = regexp.MustCompile(`Артикул[:\s]*([A-Za-zА-Яа-я0-9-]+)`)
)

// regionKind tags an active markup region on the extractor's stack.
type regionKind int

const (
	regionDescription regionKind = iota
	regionCharacteristics
	regionGallery
	regionIntrotext
	regionSizeOption
	regionColorOption
	regionPrice
	regionOldPrice
)

type region struct {
	kind  regionKind
	depth int
}

// textToken pairs a text run with its event index, the pipeline's only
// notion of "position in document".
type textToken struct {
	index int
	text  string
}

type anchorToken struct {
	index int
	text  string
	href  string
}

// Extractor walks the token stream of a single product-detail document and
// pulls out every field the reconciler consumes.
type Extractor struct {
	cfg *config.ScrapeConfig
}

// NewExtractor creates a field extractor bound to a marker set.
func NewExtractor(cfg *config.ScrapeConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// walkState accumulates everything a single pass over the token stream
// produces. Regions live on an explicit stack: pushed on the tag that opens
// them, popped when their nesting depth closes, flushed implicitly at EOF.
type walkState struct {
	regions []region

	inH1    bool
	h1Text  []string
	h1Index int // index of the closing h1 event; 0 means no h1 seen

	anchorOpen bool
	anchorHref string
	anchorText []string
	anchors    []anchorToken

	texts []textToken

	images     []string
	descParts  []string
	introParts []string
	charParts  []string

	priceText    string
	oldPriceText string
	sizeValue    string
	colorValue   string
	sku          string
}

func (w *walkState) push(kind regionKind, depth int) {
	w.regions = append(w.regions, region{kind: kind, depth: depth})
}

func (w *walkState) active(kind regionKind) bool {
	for _, r := range w.regions {
		if r.kind == kind {
			return true
		}
	}
	return false
}

// closeAt pops every region whose depth is being exited by a close event at
// the given depth. Unbalanced markup pops conservatively rather than leaking
// region state into the rest of the document.
func (w *walkState) closeAt(depth int) {
	for len(w.regions) > 0 && w.regions[len(w.regions)-1].depth >= depth {
		w.regions = w.regions[:len(w.regions)-1]
	}
}

// Parse extracts a ParsedProduct from a detail-page document. Absent fields
// stay empty; the caller decides whether the record carries enough signal.
func (e *Extractor) Parse(body, pageURL string) *types.ParsedProduct {
	w := &walkState{}

	for _, tok := range htmltok.Tokenize(body) {
		switch tok.Kind {
		case htmltok.StartTag:
			e.startTag(w, tok)
		case htmltok.EndTag:
			e.endTag(w, tok)
		case htmltok.Text:
			e.text(w, tok)
		}
	}

	return e.assemble(w, pageURL)
}

func (e *Extractor) startTag(w *walkState, tok htmltok.Token) {
	cfg := e.cfg

	if tok.Tag == "h1" {
		w.inH1 = true
	}

	switch tok.ID() {
	case cfg.DescriptionID:
		w.push(regionDescription, tok.Depth)
	case cfg.CharacteristicsID:
		w.push(regionCharacteristics, tok.Depth)
	}

	switch {
	case tok.ClassContains(cfg.GalleryClass):
		w.push(regionGallery, tok.Depth)
	case tok.ClassContains(cfg.IntrotextClass):
		w.push(regionIntrotext, tok.Depth)
	}
	switch {
	case tok.ClassContains(cfg.SizeOptionClass):
		w.push(regionSizeOption, tok.Depth)
	case tok.ClassContains(cfg.ColorOptionClass):
		w.push(regionColorOption, tok.Depth)
	}
	if tok.ClassContains(cfg.PriceClass) {
		w.push(regionPrice, tok.Depth)
	}
	if tok.ClassContains(cfg.OldPriceClass) {
		w.push(regionOldPrice, tok.Depth)
	}

	if tok.Tag == "a" {
		href, ok := tok.Attr["href"]
		w.anchorOpen = ok
		w.anchorHref = href
		w.anchorText = nil
	}

	if w.active(regionGallery) {
		for _, key := range []string{"src", "data-src", "href"} {
			if value, ok := tok.Attr[key]; ok && strings.Contains(value, cfg.ImageCDNMarker) {
				w.images = append(w.images, value)
			}
		}
	}
}

func (e *Extractor) endTag(w *walkState, tok htmltok.Token) {
	if tok.Tag == "h1" {
		w.inH1 = false
		w.h1Index = tok.Index
	}

	if tok.Tag == "a" && w.anchorOpen {
		w.anchors = append(w.anchors, anchorToken{
			index: tok.Index,
			text:  strings.TrimSpace(strings.Join(w.anchorText, "")),
			href:  w.anchorHref,
		})
		w.anchorOpen = false
		w.anchorText = nil
	}

	w.closeAt(tok.Depth)
}

func (e *Extractor) text(w *walkState, tok htmltok.Token) {
	text := tok.Text

	if w.inH1 {
		w.h1Text = append(w.h1Text, text)
	}
	if w.anchorOpen {
		w.anchorText = append(w.anchorText, text)
	}
	if w.active(regionDescription) {
		w.descParts = append(w.descParts, text)
	}
	if w.active(regionCharacteristics) {
		w.charParts = append(w.charParts, text)
	}
	if w.active(regionIntrotext) {
		w.introParts = append(w.introParts, text)
	}
	if w.priceText == "" && w.active(regionPrice) {
		if m := priceRe.FindStringSubmatch(text); m != nil {
			w.priceText = m[1]
		}
	}
	if w.oldPriceText == "" && w.active(regionOldPrice) {
		if m := priceRe.FindStringSubmatch(text); m != nil {
			w.oldPriceText = m[1]
		}
	}
	if w.sizeValue == "" && w.active(regionSizeOption) {
		if !strings.EqualFold(text, string(types.CharSize)) {
			w.sizeValue = text
		}
	}
	if w.colorValue == "" && w.active(regionColorOption) {
		if !strings.EqualFold(text, string(types.CharColor)) {
			w.colorValue = text
		}
	}
	if w.sku == "" && strings.Contains(text, "Артикул") {
		if m := skuRe.FindStringSubmatch(text); m != nil {
			w.sku = m[1]
		}
	}

	w.texts = append(w.texts, textToken{index: tok.Index, text: text})
}

func (e *Extractor) assemble(w *walkState, pageURL string) *types.ParsedProduct {
	name := strings.TrimSpace(strings.Join(w.h1Text, " "))

	price, oldPrice := extractPrices(w.texts, w.h1Index)
	if w.priceText != "" {
		price = parsePriceDigits(w.priceText)
	}
	if w.oldPriceText != "" {
		oldPrice = parsePriceDigits(w.oldPriceText)
	}

	var after []string
	for _, t := range w.texts {
		if w.h1Index == 0 || t.index >= w.h1Index {
			after = append(after, t.text)
		}
	}
	textAfterH1 := strings.Join(after, "\n")

	description := ""
	if len(w.descParts) > 0 {
		description = normalize.Whitespace(strings.Join(w.descParts, " "))
	}
	if description == "" {
		description = normalize.Description(textAfterH1)
	}

	categoryName, categorySlug := e.extractCategory(w.anchors, w.h1Index)

	introtext := ""
	if len(w.introParts) > 0 {
		introtext = normalize.Whitespace(strings.Join(w.introParts, " "))
	}

	images := selectImages(w.images)

	slug := productSlug(pageURL)

	tokens := make([]string, len(w.texts))
	for i, t := range w.texts {
		tokens[i] = t.text
	}
	characteristics := normalize.Characteristics(tokens, textAfterH1, name, introtext)

	// Option widgets are the most explicit source for size and color and
	// override anything inferred from free text.
	if w.sizeValue != "" {
		characteristics[types.CharSize] = normalize.Size(w.sizeValue)
	}
	if w.colorValue != "" {
		characteristics[types.CharColor] = normalize.Capitalize(strings.TrimSpace(w.colorValue))
	}

	return &types.ParsedProduct{
		Slug:            slug,
		Name:            name,
		Description:     description,
		Price:           price,
		OldPrice:        oldPrice,
		CategoryName:    categoryName,
		CategorySlug:    categorySlug,
		Images:          images,
		Characteristics: characteristics,
		SKU:             w.sku,
		SourceURL:       pageURL,
	}
}

// extractPrices scans currency matches at or after the title pivot. The
// first match is the price; a second match counts as the old price only when
// it strictly exceeds the first, since a real discount implies old > new.
func extractPrices(texts []textToken, h1Index int) (*int, *int) {
	var matches []int
	for _, t := range texts {
		if h1Index != 0 && t.index < h1Index {
			continue
		}
		for _, m := range priceRe.FindAllStringSubmatch(t.text, -1) {
			if v := parsePriceDigits(m[1]); v != nil {
				matches = append(matches, *v)
			}
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	price := matches[0]
	if len(matches) == 1 {
		return &price, nil
	}
	if matches[1] > price {
		old := matches[1]
		return &price, &old
	}
	return &price, nil
}

// parsePriceDigits strips grouping whitespace out of a matched digit run and
// parses the remainder as an integer amount.
func parsePriceDigits(raw string) *int {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ' ' {
			return -1
		}
		return r
	}, raw)
	v, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &v
}

// extractCategory resolves the breadcrumb category: the last "home" anchor
// before the title pivot, then the first later anchor (still before the
// pivot) pointing at a collection URL.
func (e *Extractor) extractCategory(anchors []anchorToken, h1Index int) (string, string) {
	if h1Index == 0 {
		return "", ""
	}
	homeIdx := 0
	for _, a := range anchors {
		if a.index < h1Index && strings.EqualFold(strings.TrimSpace(a.text), e.cfg.HomeLabel) {
			if a.index > homeIdx {
				homeIdx = a.index
			}
		}
	}
	if homeIdx == 0 {
		return "", ""
	}
	for _, a := range anchors {
		if a.index > homeIdx && a.index < h1Index && a.href != "" &&
			strings.Contains(a.href, e.cfg.CollectionPath) {
			return strings.TrimSpace(a.text), CollectionSlug(a.href, e.cfg.CollectionPath)
		}
	}
	return "", ""
}

// selectImages partitions gallery links into large variants and the rest,
// prefers the large set wholesale when non-empty, and deduplicates
// preserving first-seen order.
func selectImages(links []string) []string {
	var large, fallback []string
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			fallback = append(fallback, link)
			continue
		}
		filename := strings.ToLower(path.Base(u.Path))
		if strings.HasPrefix(filename, "large_") {
			large = append(large, link)
		} else {
			fallback = append(fallback, link)
		}
	}

	selected := large
	if len(selected) == 0 {
		selected = fallback
	}

	seen := make(map[string]bool)
	var images []string
	for _, link := range selected {
		if !seen[link] {
			seen[link] = true
			images = append(images, link)
		}
	}
	return images
}

// productSlug derives the natural key from the last path segment of the
// product URL.
func productSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	trimmed := strings.TrimRight(u.Path, "/")
	if trimmed == "" {
		return ""
	}
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}
