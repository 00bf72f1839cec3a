/*
Package segment splits extracted transcript text into management commentary
and Q&A sections and pulls out numeric highlight lines. Every function is a
pure function of its input text; the worst case output is degenerate
(empty Q&A, no highlights), never an error.
*/
package segment

import (
	"regexp"
	"strings"

	"github.com/shanehull/concallscraper/internal/types"
)

// qaMarkers are tested in order against the lower-cased text. Exchange-filed
// transcripts have no fixed template, so the hyphen/space/ampersand variants
// all have to be accepted.
var qaMarkers = []string{
	"question-and-answer",
	"question and answer",
	"q&a",
	"q & a",
}

const safeHarborMarker = "safe harbor"

// figurePattern flags lines carrying financial figures. Word boundaries on
// the short abbreviations keep "cr" from matching inside ordinary words.
var figurePattern = regexp.MustCompile(`(?i)₹|%|\brs\.|\bcrore(s)?\b|\bcr\b|\bmillion\b|\bmn\b|\bbillion\b|\bbn\b|\blakh(s)?\b`)

var blankLines = regexp.MustCompile(`\n{2,}`)

// maxHighlights bounds the highlight list; the e-book's highlight section
// is a skimmable preview, not a full figures index.
const maxHighlights = 15

// TrimBoilerplate removes everything from the first case-insensitive
// occurrence of the safe-harbor disclaimer to end of text. The disclaimer
// is always a trailing block in these documents and has no reader value.
func TrimBoilerplate(text string) string {
	idx := strings.Index(strings.ToLower(text), safeHarborMarker)
	if idx == -1 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:idx])
}

// NormalizeWhitespace collapses runs of two or more consecutive newlines
// into one.
func NormalizeWhitespace(text string) string {
	return blankLines.ReplaceAllString(text, "\n")
}

// SplitSections divides the text at the earliest Q&A marker occurrence.
// Text before the marker is management commentary; text from the marker
// onward is the Q&A session. When no marker is found the whole text is
// management commentary and the Q&A section is empty.
func SplitSections(text string) (management, qa string) {
	lower := strings.ToLower(text)

	split := -1
	for _, marker := range qaMarkers {
		if idx := strings.Index(lower, marker); idx != -1 && (split == -1 || idx < split) {
			split = idx
		}
	}
	if split == -1 {
		return text, ""
	}
	return text[:split], text[split:]
}

// ExtractHighlights scans line by line for figures (currency, percentages,
// crore/million/billion/lakh amounts) and returns the trimmed matching
// lines in document order, capped at maxHighlights.
func ExtractHighlights(text string) []string {
	var highlights []string
	for _, line := range strings.Split(text, "\n") {
		if figurePattern.MatchString(line) {
			highlights = append(highlights, strings.TrimSpace(line))
			if len(highlights) == maxHighlights {
				break
			}
		}
	}
	return highlights
}

// Segment runs the full pipeline: boilerplate trim, whitespace
// normalization, highlight extraction and the Q&A split.
func Segment(text string) types.ExtractedDocument {
	cleaned := NormalizeWhitespace(TrimBoilerplate(text))
	highlights := ExtractHighlights(cleaned)
	management, qa := SplitSections(cleaned)

	return types.ExtractedDocument{
		ManagementText: management,
		QAText:         qa,
		Highlights:     highlights,
	}
}
