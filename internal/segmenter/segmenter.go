package segmenter

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clausewise/contract-analyzer/pkg/models"
)

// ErrEmptyDocument is returned when the input text is empty or
// whitespace-only
var ErrEmptyDocument = errors.New("document is empty")

const (
	minClauseLength = 20
	maxClauseLength = 2000
)

var (
	// Numbered sections ("3.", "2.1", "Section 4:", "ARTICLE IV") mark
	// clause boundaries when a document uses them
	sectionHeading = regexp.MustCompile(`(?mi)^[ \t]*(?:\d+(?:\.\d+)*[.):][ \t]+|section[ \t]+\d+|article[ \t]+[ivxlc\d]+)`)
	blankLine      = regexp.MustCompile(`\n[ \t\r]*\n`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

type span struct {
	start int
	end   int
}

// Segment splits contract text into an ordered sequence of clause spans.
// Positions are 0-based byte offsets of each clause's first character in
// the source text and are strictly increasing. Segmentation is a pure
// function of the input: the same text always yields the same clauses.
func Segment(text string) ([]models.Clause, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	spans := sectionSpans(text)
	if len(spans) == 0 {
		spans = paragraphSpans(text)
	}

	var clauses []models.Clause
	for _, sp := range spans {
		pos, cleaned := cleanSpan(text, sp)
		if len(cleaned) < minClauseLength {
			continue
		}
		if len(cleaned) > maxClauseLength {
			cleaned = truncateBytes(cleaned, maxClauseLength) + "..."
		}
		clauses = append(clauses, models.Clause{Text: cleaned, Position: pos})
	}

	// A document too short to clear the length filter is still a document;
	// treat the whole text as a single clause rather than dropping it
	if len(clauses) == 0 {
		pos, cleaned := cleanSpan(text, span{start: 0, end: len(text)})
		clauses = append(clauses, models.Clause{Text: cleaned, Position: pos})
	}

	return clauses, nil
}

// sectionSpans splits at numbered section headings. Requires at least two
// headings; a lone stray number is not evidence of sectioned structure.
func sectionSpans(text string) []span {
	matches := sectionHeading.FindAllStringIndex(text, -1)
	if len(matches) < 2 {
		return nil
	}

	spans := make([]span, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		spans = append(spans, span{start: m[0], end: end})
	}
	return spans
}

// paragraphSpans splits on blank lines
func paragraphSpans(text string) []span {
	seps := blankLine.FindAllStringIndex(text, -1)

	var spans []span
	start := 0
	for _, sep := range seps {
		if sep[0] > start {
			spans = append(spans, span{start: start, end: sep[0]})
		}
		start = sep[1]
	}
	if start < len(text) {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

// truncateBytes cuts s to at most n bytes without splitting a rune
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// cleanSpan trims a span, collapses internal whitespace runs, and returns
// the source offset of the first retained character
func cleanSpan(text string, sp span) (int, string) {
	seg := text[sp.start:sp.end]

	lead := strings.IndexFunc(seg, func(r rune) bool {
		return !unicode.IsSpace(r)
	})
	if lead < 0 {
		return sp.start, ""
	}

	cleaned := whitespaceRun.ReplaceAllString(strings.TrimSpace(seg), " ")
	return sp.start + lead, cleaned
}
