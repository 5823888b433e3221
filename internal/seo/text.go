package seo

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenize splits lowered text into maximal runs of letters and digits.
func tokenize(lowered string) []string {
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// occurrences counts non-overlapping matches of needle as a consecutive token
// sequence in hay.
func occurrences(hay, needle []string) int {
	if len(needle) == 0 || len(needle) > len(hay) {
		return 0
	}
	n := 0
	for i := 0; i+len(needle) <= len(hay); {
		if equalAt(hay, needle, i) {
			n++
			i += len(needle)
			continue
		}
		i++
	}
	return n
}

func equalAt(hay, needle []string, at int) bool {
	for j, w := range needle {
		if hay[at+j] != w {
			return false
		}
	}
	return true
}

// structure holds layout signals of a draft.
type structure struct {
	Paragraphs int
	Headings   []string // heading text without markers
}

// scanStructure counts blank-line separated paragraphs and heading lines.
// Headings are markdown "#" lines or short lines ending with ":".
func scanStructure(content string) structure {
	var st structure
	inPara := false
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		trim := strings.TrimSpace(line)
		if trim == "" {
			inPara = false
			continue
		}
		if h, ok := headingText(trim); ok {
			st.Headings = append(st.Headings, h)
			inPara = false
			continue
		}
		if !inPara {
			st.Paragraphs++
			inPara = true
		}
	}
	return st
}

func headingText(line string) (string, bool) {
	if strings.HasPrefix(line, "#") {
		h := strings.TrimSpace(strings.TrimLeft(line, "#"))
		return h, h != ""
	}
	if strings.HasSuffix(line, ":") && utf8.RuneCountInString(line) < 80 {
		h := strings.TrimSpace(strings.TrimSuffix(line, ":"))
		return h, h != ""
	}
	return "", false
}

// signal scales n against the count that earns full marks.
func signal(n, full int) float64 {
	if n >= full {
		return 1
	}
	return float64(n) / float64(full)
}

// lengthCurve rises linearly to 1 at ideal words, then decays linearly to
// 0.5 at three times ideal and stays there.
func lengthCurve(words, ideal int) float64 {
	if ideal <= 0 || words <= 0 {
		return 0
	}
	if words <= ideal {
		return float64(words) / float64(ideal)
	}
	if words >= 3*ideal {
		return 0.5
	}
	return 1 - 0.5*float64(words-ideal)/float64(2*ideal)
}

// trimWords cuts s to at most n runes on a word boundary.
func trimWords(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	cut := strings.LastIndexFunc(string(r), unicode.IsSpace)
	out := string(r)
	if cut > 0 {
		out = out[:cut]
	}
	return strings.TrimRight(out, " ,;:.-")
}
