package normalize

import (
	"testing"

	"github.com/webshelf/webshelf/internal/types"
)

func TestWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapse spaces", "a   b\t\tc", "a b c"},
		{"nbsp", "1 500 руб", "1 500 руб"},
		{"squeeze newlines", "a\n\n\n\n\nb", "a\n\nb"},
		{"keep double newline", "a\n\nb", "a\n\nb"},
		{"trim", "  hello  ", "hello"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Whitespace(tt.in); got != tt.want {
				t.Errorf("Whitespace(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCapitalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"красный", "Красный"},
		{"КРАСНЫЙ", "Красный"},
		{"red", "Red"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Capitalize(tt.in); got != tt.want {
			t.Errorf("Capitalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColorFromText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single color", "Прочный зонт. Цвет: красный", "Красный"},
		{"two colors ambiguous", "цвета: красный, синий", ""},
		{"assorted rejected", "Цвет: в ассортименте", ""},
		{"colors label single", "Доступные цвета: темно-синий", "Темно-синий"},
		{"slash separated ambiguous", "цвет: белый/черный", ""},
		{"no clause", "Просто описание товара", ""},
		{"unknown token accepted", "Цвет: аквамарин", "Аквамарин"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColorFromText(tt.in); got != tt.want {
				t.Errorf("ColorFromText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestColorFromName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Зонт складной темно-синий", "Темно-синий"},
		{"Рюкзак городской синий", "Синий"},
		{"Чемодан большой", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ColorFromName(tt.in); got != tt.want {
			t.Errorf("ColorFromName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaterial(t *testing.T) {
	tests := []struct{ in, want string }{
		{"корпус из поликарбоната", "Поликарбонат"},
		{"ABS пластик ударопрочный", "ABS-пластик"},
		{"100% полиэстер", "Полиэстер"},
		{"нейлон с пропиткой", "Нейлон"},
		{"дерево ", "дерево"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Material(tt.in); got != tt.want {
			t.Errorf("Material(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaterialFromText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"label with colon", "Материал: полиэстер. Очень прочный.", "полиэстер"},
		{"bounded by color label", "Материал: нейлон Цвет: синий", "нейлон"},
		{"bounded by sentence", "Материал спандекс. Дальше текст", "спандекс"},
		{"absent", "Просто текст", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaterialFromText(tt.in); got != tt.want {
				t.Errorf("MaterialFromText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntroCharacteristicsDimensions(t *testing.T) {
	got := IntroCharacteristics("Размер чемодана: 30 см x 40 см")
	if got[types.CharSize] != "30x40 см" {
		t.Errorf("composite size = %q, want %q", got[types.CharSize], "30x40 см")
	}

	got = IntroCharacteristics("Ширина: 10 см, Высота: 20 см, Глубина: 5 см")
	if got[types.CharSize] != "10x20x5 см" {
		t.Errorf("synthesized size = %q, want %q", got[types.CharSize], "10x20x5 см")
	}
	if got[types.CharWidth] != "10 см" || got[types.CharHeight] != "20 см" || got[types.CharDepth] != "5 см" {
		t.Errorf("discrete dimensions = %v", got)
	}

	// A composite match wins over synthesis from discrete values.
	got = IntroCharacteristics("Габариты 55 x 40 x 20 см. Ширина: 55 см, Высота: 40 см, Глубина: 20 см")
	if got[types.CharSize] != "55x40x20 см" {
		t.Errorf("size = %q, want %q", got[types.CharSize], "55x40x20 см")
	}
}

func TestIntroCharacteristicsUnits(t *testing.T) {
	got := IntroCharacteristics("Вес: 900. Объём: 35 л. Диаметр купола 98 см")
	if got[types.CharWeight] != "900 г" {
		t.Errorf("weight default unit = %q, want %q", got[types.CharWeight], "900 г")
	}
	if got[types.CharVolume] != "35 л" {
		t.Errorf("volume = %q, want %q", got[types.CharVolume], "35 л")
	}
	if got[types.CharDiameter] != "98 см" {
		t.Errorf("diameter = %q, want %q", got[types.CharDiameter], "98 см")
	}

	got = IntroCharacteristics("Объем: 250")
	if got[types.CharVolume] != "250 мл" {
		t.Errorf("volume default unit = %q, want %q", got[types.CharVolume], "250 мл")
	}
}

func TestIntroCharacteristicsInchSize(t *testing.T) {
	got := IntroCharacteristics(`Размер: 24"`)
	if got[types.CharSize] != `24"` {
		t.Errorf("inch size = %q, want %q", got[types.CharSize], `24"`)
	}
}

func TestDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"sku marker bounded by review form",
			"Чемодан Артикул: ABC-123 Прочный корпус Имя E-mail Отправить",
			"Артикул: ABC-123 Прочный корпус",
		},
		{
			"fallback section",
			"верх страницы Описание Прочный зонт с куполом Отзывы форма",
			"Прочный зонт с куполом",
		},
		{"nothing found", "просто текст", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Description(tt.in); got != tt.want {
				t.Errorf("Description(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLabelValue(t *testing.T) {
	tokens := []string{"Размер", "Количество", "В наличии", "30x40 см", "Цвет", "Красный"}
	if got := LabelValue(tokens, "Размер"); got != "30x40 см" {
		t.Errorf("LabelValue size = %q, want %q", got, "30x40 см")
	}
	if got := LabelValue(tokens, "Цвет"); got != "Красный" {
		t.Errorf("LabelValue color = %q, want %q", got, "Красный")
	}
	if got := LabelValue(tokens, "Вес"); got != "" {
		t.Errorf("LabelValue missing label = %q, want empty", got)
	}

	// The value must appear within the lookahead window.
	far := []string{"Размер", "a", "b", "c", "d", "e", "30 см"}
	for i := 1; i <= 5; i++ {
		far[i] = ""
	}
	if got := LabelValue(far, "Размер"); got != "" {
		t.Errorf("LabelValue beyond window = %q, want empty", got)
	}
}

func TestSizeFromName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Чемодан Mini (20 дюймов)", "20 дюймов"},
		{"Футболка базовая (M)", "M"},
		{"Кружка (подарочная)", ""},
		{"Без скобок", ""},
	}
	for _, tt := range tests {
		if got := SizeFromName(tt.in); got != tt.want {
			t.Errorf("SizeFromName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"30 см x 40 см", "30 см x 40 см"},
		{"размер m", "M"},
		{`24"`, `24"`},
		{"24", "24"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Size(tt.in); got != tt.want {
			t.Errorf("Size(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCharacteristicsPrecedence(t *testing.T) {
	// Label-adjacent tokens beat introtext, which beats name derivation.
	tokens := []string{"Размер", "55x40x20 см", "Цвет", "хаки"}
	got := Characteristics(tokens, "", "Рюкзак синий (M)", "Размер: 30 см x 20 см")
	if got[types.CharSize] != "55x40x20 см" {
		t.Errorf("size = %q, want token value", got[types.CharSize])
	}
	if got[types.CharColor] != "Хаки" {
		t.Errorf("color = %q, want %q", got[types.CharColor], "Хаки")
	}

	// Without tokens the introtext supplies the size and the name the color.
	got = Characteristics(nil, "", "Рюкзак синий", "Размер: 30 см x 20 см")
	if got[types.CharSize] != "30x20 см" {
		t.Errorf("intro size = %q, want %q", got[types.CharSize], "30x20 см")
	}
	if got[types.CharColor] != "Синий" {
		t.Errorf("name color = %q, want %q", got[types.CharColor], "Синий")
	}
}

func TestCharacteristicsMaterialChain(t *testing.T) {
	got := Characteristics(nil, "Материал: 100% полиэстер\nОписание", "", "")
	if got[types.CharMaterial] != "Полиэстер" {
		t.Errorf("material = %q, want %q", got[types.CharMaterial], "Полиэстер")
	}
}
