package feed

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestToPlainText(t *testing.T) {
	input := `<p>Hello&nbsp;<b>world</b> &amp; friends,&#39;quoted&#39; &quot;text&quot;</p>`
	result := ToPlainText(input)

	expected := `Hello world & friends,'quoted' "text"`
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestToPlainText_NoMarkupLeftovers(t *testing.T) {
	inputs := []string{
		`<div class="x"><span>a</span>b</div>`,
		`plain text already`,
		`&nbsp;&amp;&quot;&#39;`,
		``,
	}

	for _, input := range inputs {
		result := ToPlainText(input)
		if strings.ContainsAny(result, "<>") {
			t.Errorf("Expected no angle brackets in %q for input %q", result, input)
		}
		for _, entity := range []string{"&nbsp;", "&amp;", "&quot;", "&#39;"} {
			if strings.Contains(result, entity) {
				t.Errorf("Expected entity %s to be unescaped in %q", entity, result)
			}
		}
	}
}

func TestToPlainText_UnclosedTagPassthrough(t *testing.T) {
	// Only complete tags are stripped; a dangling "<" survives untouched
	result := ToPlainText("broken <tag without close")
	if result != "broken <tag without close" {
		t.Errorf("Expected unclosed tag to pass through, got %q", result)
	}
}

func TestToPlainText_CollapsesWhitespace(t *testing.T) {
	result := ToPlainText("a\n\n  b\t\tc")
	if result != "a b c" {
		t.Errorf("Expected 'a b c', got %q", result)
	}
}

func TestFormatDate(t *testing.T) {
	result := FormatDate("Mon, 06 Oct 2025 10:00:00 GMT")
	if result != "October 6, 2025" {
		t.Errorf("Expected 'October 6, 2025', got %q", result)
	}

	result = FormatDate("2025-10-06T10:00:00Z")
	if result != "October 6, 2025" {
		t.Errorf("Expected 'October 6, 2025', got %q", result)
	}
}

func TestFormatDate_MalformedPassthrough(t *testing.T) {
	inputs := []string{"not a date", "soonish", "13/45/10000 99:99"}

	for _, input := range inputs {
		result := FormatDate(input)
		if result != input {
			t.Errorf("Expected malformed date %q to pass through, got %q", input, result)
		}
	}
}

func TestSetDateLocale(t *testing.T) {
	t.Cleanup(func() { SetDateLocale(language.AmericanEnglish) })

	SetDateLocale(language.BritishEnglish)
	if result := FormatDate("2025-10-06T10:00:00Z"); result != "6 October 2025" {
		t.Errorf("Expected '6 October 2025', got %q", result)
	}

	// Unsupported locales match to the closest supported layout
	SetDateLocale(language.German)
	if result := FormatDate("2025-10-06T10:00:00Z"); result != "October 6, 2025" {
		t.Errorf("Expected 'October 6, 2025', got %q", result)
	}
}

func TestFormatDate_Empty(t *testing.T) {
	if result := FormatDate(""); result != "" {
		t.Errorf("Expected empty string for empty input, got %q", result)
	}
}
