// Package normalize holds the pure text heuristics that turn raw scraped
// fragments into canonical characteristic values. Every function returns an
// empty result when the input is missing or ambiguous — guessing a wrong
// value in a generated catalog is worse than leaving the field empty.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/webshelf/webshelf/internal/types"
)

var (
	dimensionRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*см?\s*[xх×]\s*(\d+(?:[.,]\d+)?)\s*см?(?:\s*[xх×]\s*(\d+(?:[.,]\d+)?)\s*см?)?`)

	colorClauseRe  = regexp.MustCompile(`(?i)(?:доступные\s+цвета|цвета|цвет)\s*[:\-]\s*([^.\n]+)`)
	colorSplitRe   = regexp.MustCompile(`[,/]`)
	materialLineRe = regexp.MustCompile(`(?i)Материал[:\s]+([^\n]+)`)

	sizeInchRe = regexp.MustCompile(`(?i)Размер[:\s]*([0-9]+)\s*"`)
	widthRe    = regexp.MustCompile(`(?i)Ширина[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*см`)
	heightRe   = regexp.MustCompile(`(?i)Высота[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*см`)
	depthRe    = regexp.MustCompile(`(?i)Глубина[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*см`)
	weightRe   = regexp.MustCompile(`(?i)Вес[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(кг|г)?`)
	volumeRe   = regexp.MustCompile(`(?i)Объ[её]м[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*(мл|л)?`)
	diameterRe = regexp.MustCompile(`(?i)диаметр[^0-9]*([0-9]+(?:[.,][0-9]+)?)\s*см`)
	lengthRe   = regexp.MustCompile(`(?i)длина[:\s]*([0-9]+(?:[.,][0-9]+)?)\s*см`)

	parenRe      = regexp.MustCompile(`\(([^)]+)\)`)
	digitRe      = regexp.MustCompile(`\d`)
	sizeLetterRe = regexp.MustCompile(`(?i)^[SML]$`)
	sizeWordRe   = regexp.MustCompile(`(?i)\b([SML])\b`)
	twoDigitRe   = regexp.MustCompile(`^(\d{2})\s*"?$`)
	sizeMarksRe  = regexp.MustCompile(`(?i)[xх×]|см|мм|"`)

	hspaceRe   = regexp.MustCompile(`[ \t\r\f\v]+`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
)

// colorVocabulary is the known color token set; matches are re-capitalized
// canonically, unknown tokens are still accepted as-is.
var colorVocabulary = map[string]bool{
	"белый": true, "белый жемчужный": true, "бежевый": true, "бордовый": true,
	"васильковый": true, "вишневый": true, "вишня": true, "голубой": true,
	"желтый": true, "коричневый": true, "королевский синий": true,
	"красный": true, "оранж": true, "оранжевый": true, "петролеум": true,
	"пурпурный": true, "розовый": true, "салатовый": true, "светло-синий": true,
	"серо-голубой": true, "серо-оливковый": true, "серый": true, "синий": true,
	"темно-зеленый": true, "темно-пурпурный": true, "темно-серый": true,
	"темно-синий": true, "черный": true, "хаки": true, "зеленый": true,
}

// assortedPlaceholders are "color" values that mean "whatever is in stock".
var assortedPlaceholders = map[string]bool{
	"в ассортименте": true,
	"ассорти":        true,
	"ассортимент":    true,
}

// Whitespace collapses runs of horizontal whitespace (including NBSP) to a
// single space, squeezes 3+ newlines down to 2, and trims the ends.
func Whitespace(text string) string {
	text = strings.ReplaceAll(text, " ", " ")
	text = hspaceRe.ReplaceAllString(text, " ")
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// ColorToken normalizes a single color candidate. Placeholder values like
// "ассорти" yield nothing; known vocabulary entries and unknown tokens alike
// come back capitalized.
func ColorToken(token string) string {
	cleaned := strings.ToLower(strings.Trim(Whitespace(token), ",;"))
	if cleaned == "" {
		return ""
	}
	if assortedPlaceholders[cleaned] {
		return ""
	}
	return Capitalize(cleaned)
}

// ColorFromText infers a color from a trailing "цвет: ..." clause. The
// inference is accepted only when exactly one candidate survives filtering;
// two or more candidates are ambiguous and yield nothing.
func ColorFromText(text string) string {
	m := colorClauseRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	var colors []string
	for _, tok := range colorSplitRe.Split(m[1], -1) {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		if c := ColorToken(tok); c != "" {
			colors = append(colors, c)
		}
	}
	if len(colors) == 1 {
		return colors[0]
	}
	return ""
}

// ColorFromName recognizes a vocabulary color used as a name suffix,
// longest token first so "темно-синий" beats "синий".
func ColorFromName(name string) string {
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	tokens := make([]string, 0, len(colorVocabulary))
	for c := range colorVocabulary {
		tokens = append(tokens, c)
	}
	sort.Slice(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	for _, c := range tokens {
		if strings.HasSuffix(lower, c) {
			return Capitalize(c)
		}
	}
	return ""
}

// MaterialFromText locates the "материал" label and takes the following run
// of text up to the next recognized label or sentence boundary.
func MaterialFromText(text string) string {
	lowered := strings.ToLower(text)
	pos := strings.Index(lowered, "материал")
	if pos == -1 {
		return ""
	}
	tail := text[pos+len("материал"):]
	tail = strings.TrimLeft(tail, " :.-")
	if tail == "" {
		return ""
	}
	tailLower := strings.ToLower(tail)
	end := len(tail)
	for _, keyword := range []string{"объём", "объем", "цвета", "цвет", "размеры", "размер", "доступные"} {
		if p := strings.Index(tailLower, keyword); p != -1 && p < end {
			end = p
		}
	}
	for _, sep := range []string{".", "\n"} {
		if p := strings.Index(tail, sep); p != -1 && p < end {
			end = p
		}
	}
	return strings.Trim(tail[:end], " ,.-")
}

// Material maps free-text material descriptions onto a fixed canonical set;
// unmatched text is kept, lightly cleaned, rather than discarded.
func Material(value string) string {
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	switch {
	case strings.Contains(lower, "поликарбонат"):
		return "Поликарбонат"
	case strings.Contains(lower, "полипропилен"):
		return "Полипропилен"
	case strings.Contains(lower, "abs"):
		return "ABS-пластик"
	case strings.Contains(lower, "полиэстер"):
		return "Полиэстер"
	case strings.Contains(lower, "нейлон"):
		return "Нейлон"
	case strings.Contains(lower, "спандекс"):
		return "Спандекс"
	case strings.Contains(lower, "кожзам"):
		return "Кожзам"
	}
	return strings.TrimSpace(value)
}

// IntroCharacteristics pulls labelled characteristic values out of a
// product's free-text intro blurb.
func IntroCharacteristics(text string) map[types.Characteristic]string {
	result := make(map[types.Characteristic]string)
	if text == "" {
		return result
	}
	norm := Whitespace(text)

	if m := sizeInchRe.FindStringSubmatch(norm); m != nil {
		result[types.CharSize] = m[1] + `"`
	}

	if m := dimensionRe.FindStringSubmatch(norm); m != nil {
		var parts []string
		for _, p := range m[1:] {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			if _, ok := result[types.CharSize]; !ok {
				result[types.CharSize] = strings.Join(parts, "x") + " см"
			}
		}
	}

	width := widthRe.FindStringSubmatch(norm)
	height := heightRe.FindStringSubmatch(norm)
	depth := depthRe.FindStringSubmatch(norm)
	if width != nil {
		result[types.CharWidth] = width[1] + " см"
	}
	if height != nil {
		result[types.CharHeight] = height[1] + " см"
	}
	if depth != nil {
		result[types.CharDepth] = depth[1] + " см"
	}
	if _, ok := result[types.CharSize]; !ok && width != nil && height != nil && depth != nil {
		result[types.CharSize] = width[1] + "x" + height[1] + "x" + depth[1] + " см"
	}

	if m := weightRe.FindStringSubmatch(norm); m != nil {
		unit := m[2]
		if unit == "" {
			unit = "г"
		}
		result[types.CharWeight] = m[1] + " " + unit
	}

	if m := volumeRe.FindStringSubmatch(norm); m != nil {
		unit := m[2]
		if unit == "" {
			unit = "мл"
		}
		result[types.CharVolume] = m[1] + " " + unit
	}

	if m := diameterRe.FindStringSubmatch(norm); m != nil {
		result[types.CharDiameter] = m[1] + " см"
	}
	if m := lengthRe.FindStringSubmatch(norm); m != nil {
		result[types.CharLength] = m[1] + " см"
	}

	if material := MaterialFromText(norm); material != "" {
		if _, ok := result[types.CharMaterial]; !ok {
			result[types.CharMaterial] = material
		}
	}
	if color := ColorFromText(norm); color != "" {
		if _, ok := result[types.CharColor]; !ok {
			result[types.CharColor] = color
		}
	}

	return result
}

// descriptionEndMarkers bound the description span: they belong to the
// review form that trails the description on a detail page.
var descriptionEndMarkers = []string{"Имя", "E-mail", "Оценка", "Отправить", "Отзывы"}

// Description carves the product description out of the full post-title
// text using the SKU marker, falling back to the literal "Описание" section.
func Description(text string) string {
	if text == "" {
		return ""
	}
	start := -1
	for _, marker := range []string{"· Артикул", "Артикул:", "Артикул"} {
		if pos := strings.Index(text, marker); pos != -1 {
			start = pos
			break
		}
	}
	if start != -1 {
		end := len(text)
		for _, m := range descriptionEndMarkers {
			if pos := strings.Index(text[start:], m); pos != -1 && start+pos < end {
				end = start + pos
			}
		}
		return Whitespace(text[start:end])
	}

	if pos := strings.Index(text, "Описание"); pos != -1 {
		tail := text[pos+len("Описание"):]
		if end := strings.Index(tail, "Отзывы"); end != -1 {
			tail = tail[:end]
		}
		return Whitespace(tail)
	}
	return ""
}

// LabelValue finds a token equal to the label and returns the first usable
// token within the next few, skipping stock-status chrome.
func LabelValue(tokens []string, label string) string {
	labelLower := strings.ToLower(label)
	for i, text := range tokens {
		if strings.ToLower(text) != labelLower {
			continue
		}
		limit := i + 6
		if limit > len(tokens) {
			limit = len(tokens)
		}
		for j := i + 1; j < limit; j++ {
			candidate := strings.TrimSpace(tokens[j])
			if candidate == "" {
				continue
			}
			switch strings.ToLower(candidate) {
			case "количество", "в наличии":
				continue
			}
			return candidate
		}
	}
	return ""
}

// SizeFromName extracts a parenthesized suffix from the product title,
// accepted only when it contains a digit or is a lone size letter.
func SizeFromName(name string) string {
	if name == "" {
		return ""
	}
	m := parenRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	raw := strings.TrimSpace(m[1])
	if digitRe.MatchString(raw) || sizeLetterRe.MatchString(raw) {
		return raw
	}
	return ""
}

// Size canonicalizes a size value: dimension strings keep their shape,
// lone size letters are upper-cased, bare two-digit inch sizes drop quotes.
func Size(value string) string {
	if value == "" {
		return ""
	}
	value = strings.TrimSpace(value)
	if sizeMarksRe.MatchString(value) {
		return Whitespace(value)
	}
	if m := sizeWordRe.FindStringSubmatch(value); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := twoDigitRe.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return value
}

// Characteristics merges every extraction source into the final
// characteristic map. Precedence per source, strongest first: label-adjacent
// token values, introtext-derived values, name-derived values, free-text
// inference. Option-widget values are applied on top by the extractor.
func Characteristics(tokens []string, text, name, introtext string) map[types.Characteristic]string {
	textNorm := Whitespace(text)
	intro := IntroCharacteristics(introtext)

	size := LabelValue(tokens, string(types.CharSize))
	color := LabelValue(tokens, string(types.CharColor))

	var material string
	if m := materialLineRe.FindStringSubmatch(textNorm); m != nil {
		material = strings.TrimSpace(m[1])
	}
	if material == "" {
		material = intro[types.CharMaterial]
	}
	if material == "" {
		material = MaterialFromText(textNorm)
	}

	if size == "" {
		size = intro[types.CharSize]
	}
	if size == "" {
		size = SizeFromName(name)
	}
	size = Size(size)

	if color == "" {
		color = intro[types.CharColor]
	}
	if color == "" {
		color = ColorFromName(name)
	}
	if color == "" {
		color = ColorFromText(textNorm)
	}
	if color != "" {
		color = Capitalize(strings.TrimSpace(color))
	}

	material = Material(material)

	result := make(map[types.Characteristic]string)
	for key, value := range intro {
		switch key {
		case types.CharSize, types.CharMaterial, types.CharColor:
			continue
		}
		result[key] = value
	}
	if size != "" {
		result[types.CharSize] = size
	}
	if material != "" {
		result[types.CharMaterial] = material
	}
	if color != "" {
		result[types.CharColor] = color
	}
	return result
}
