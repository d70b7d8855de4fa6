package feed

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/language"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// entityReplacer covers the small entity set that actually shows up in
// podcast show notes. Anything fancier should already be decoded by the
// feed parser.
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// ToPlainText strips HTML tags and collapses whitespace, producing a single
// line of plain text. Malformed input degrades to an empty string, it never
// fails.
func ToPlainText(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	text = entityReplacer.Replace(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Long date layouts per supported locale. US English is the reference
// rendering the site was built around; other English locales put the day
// first and drop the comma.
var dateLayouts = []string{
	"January 2, 2006", // en-US
	"2 January 2006",  // en-GB and the rest of English
}

var dateLocaleMatcher = language.NewMatcher([]language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
})

var dateLayout = dateLayouts[0]

// SetDateLocale selects the long date layout for the configured locale.
// Unsupported locales match to the closest supported one.
func SetDateLocale(tag language.Tag) {
	_, idx, _ := dateLocaleMatcher.Match(tag)
	dateLayout = dateLayouts[idx]
}

// FormatDate renders an arbitrary date string as a long-form date in the
// configured locale, e.g. "October 6, 2025". Unparseable input is passed
// through unchanged rather than dropped, so the artifact always carries
// something displayable.
func FormatDate(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return raw
	}
	return FormatTime(parsed)
}

// FormatTime renders a parsed time in the artifact's long date form.
func FormatTime(t time.Time) string {
	return t.Format(dateLayout)
}
