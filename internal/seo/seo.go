// Package seo scores draft text against target keywords and derives title,
// meta description and outline suggestions. It is heuristic and stateless.
package seo

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"zerocrash/internal/model"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	idealTitleLen = 55
	maxMetaLen    = 160
	maxRecs       = 5
)

// Weights balance the score components. They need not sum to one.
type Weights struct {
	Coverage  float64
	Length    float64
	Structure float64
}

// DefaultWeights are used when all configured weights are zero.
var DefaultWeights = Weights{Coverage: 0.4, Length: 0.3, Structure: 0.3}

func (w Weights) sum() float64 { return w.Coverage + w.Length + w.Structure }

// Options configures a Scorer.
type Options struct {
	Weights         Weights
	IdealWords      int
	DefaultLanguage string
}

// Scorer is safe for concurrent use.
type Scorer struct {
	w     Weights
	ideal int
	def   pack
}

// New creates a Scorer. Negative weights are treated as zero.
func New(opts Options) *Scorer {
	w := Weights{
		Coverage:  math.Max(0, opts.Weights.Coverage),
		Length:    math.Max(0, opts.Weights.Length),
		Structure: math.Max(0, opts.Weights.Structure),
	}
	if w.sum() == 0 {
		w = DefaultWeights
	}
	ideal := opts.IdealWords
	if ideal <= 0 {
		ideal = 1200
	}
	def := italian
	if p, ok := lookup(opts.DefaultLanguage); ok {
		def = p
	}
	return &Scorer{w: w, ideal: ideal, def: def}
}

// lookup matches a BCP 47 tag against the supported languages.
func lookup(lang string) (pack, bool) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return pack{}, false
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return pack{}, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return pack{}, false
	}
	return packs[idx], true
}

type keyword struct {
	label  string
	tokens []string
	match  model.KeywordMatch
}

// Score analyses content for the given keywords. Unknown or empty languages
// fall back to the scorer default.
func (s *Scorer) Score(content string, keywords []string, lang string) model.SeoSuggestion {
	p, ok := lookup(lang)
	if !ok {
		p = s.def
	}
	lower := cases.Lower(p.tag)
	tokens := tokenize(lower.String(content))
	total := len(tokens)

	kws := s.keywords(keywords, tokens, lower)
	st := scanStructure(content)

	present := 0
	for _, k := range kws {
		if k.match.Present {
			present++
		}
	}
	coverage := 1.0
	if len(kws) > 0 {
		coverage = float64(present) / float64(len(kws))
	}
	layout := 0.5*signal(st.Paragraphs, 3) + 0.5*signal(len(st.Headings), 2)
	raw := 100 * (s.w.Coverage*coverage + s.w.Length*lengthCurve(total, s.ideal) + s.w.Structure*layout) / s.w.sum()
	score := math.Round(math.Min(100, math.Max(0, raw))*10) / 10

	primary, secondary := pickKeywords(kws, tokens, p)
	title := cases.Title(p.tag)
	primaryTitle := title.String(primary)

	matches := make(map[string]model.KeywordMatch, len(kws))
	for _, k := range kws {
		matches[k.label] = k.match
	}
	out := model.SeoSuggestion{
		TitleVariants:   titleVariants(p, primaryTitle, title.String(secondary)),
		MetaDescription: metaDescription(p, primary, secondary),
		Outline:         outline(p, primaryTitle, primary, st.Headings),
		KeywordMatches:  matches,
		Score:           score,
		PrimaryKeyword:  primary,
		Language:        p.tag.String(),
	}
	out.Recommendations = s.recommend(p, out, kws, total, st)
	return out
}

// ScoreItem scores an aggregated item by its title and summary.
func (s *Scorer) ScoreItem(item model.ContentItem, keywords []string, lang string) model.SeoSuggestion {
	return s.Score("# "+item.Title+"\n\n"+item.Summary, keywords, lang)
}

// keywords normalizes the request: blanks dropped, duplicates (by token
// sequence) counted once, request order kept.
func (s *Scorer) keywords(raw []string, tokens []string, lower cases.Caser) []keyword {
	seen := make(map[string]bool)
	var out []keyword
	for _, r := range raw {
		label := strings.TrimSpace(r)
		kt := tokenize(lower.String(label))
		if len(kt) == 0 {
			continue
		}
		norm := strings.Join(kt, " ")
		if seen[norm] {
			continue
		}
		seen[norm] = true
		n := occurrences(tokens, kt)
		m := model.KeywordMatch{Occurrences: n}
		if len(tokens) > 0 {
			m.Density = float64(n) / float64(len(tokens))
		}
		m.Present = m.Density > 0
		out = append(out, keyword{label: label, tokens: kt, match: m})
	}
	return out
}

// pickKeywords chooses the primary and secondary terms for templates.
func pickKeywords(kws []keyword, tokens []string, p pack) (string, string) {
	if len(kws) == 0 {
		if w := frequentTerm(tokens, p.stopwords); w != "" {
			return w, ""
		}
		return p.fallback, ""
	}
	order := make([]int, len(kws))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return kws[order[a]].match.Density > kws[order[b]].match.Density
	})
	primary := kws[order[0]].label
	secondary := ""
	if len(order) > 1 {
		secondary = kws[order[1]].label
	}
	return primary, secondary
}

// frequentTerm returns the most frequent non-stopword token of at least four
// letters, ties broken by first occurrence.
func frequentTerm(tokens []string, stop map[string]bool) string {
	counts := make(map[string]int)
	first := make(map[string]int)
	for i, t := range tokens {
		if utf8.RuneCountInString(t) < 4 || stop[t] {
			continue
		}
		if _, ok := first[t]; !ok {
			first[t] = i
		}
		counts[t]++
	}
	best := ""
	for t, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && first[t] < first[best]) {
			best = t
		}
	}
	return best
}

func titleVariants(p pack, primary, secondary string) []string {
	out := make([]string, 0, len(p.titles)+1)
	for _, t := range p.titles {
		out = append(out, fmt.Sprintf(t, primary))
	}
	if secondary != "" {
		out = append(out, fmt.Sprintf(p.pairTitle, primary, secondary))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return titleDistance(out[i]) < titleDistance(out[j])
	})
	return out
}

func titleDistance(t string) int {
	d := utf8.RuneCountInString(t) - idealTitleLen
	if d < 0 {
		return -d
	}
	return d
}

func metaDescription(p pack, primary, secondary string) string {
	var m string
	if secondary != "" {
		m = fmt.Sprintf(p.meta, primary, secondary)
	} else {
		m = fmt.Sprintf(p.metaSingle, primary)
	}
	return trimWords(m, maxMetaLen)
}

// outline keeps the draft's own headings first, then fills in the standard
// sections the draft does not already cover.
func outline(p pack, primaryTitle, primary string, existing []string) []model.OutlineSection {
	out := []model.OutlineSection{{Level: "H1", Title: fmt.Sprintf(p.h1, primaryTitle)}}
	have := make(map[string]bool)
	fold := cases.Fold()
	for _, h := range existing {
		k := fold.String(h)
		if have[k] {
			continue
		}
		have[k] = true
		out = append(out, model.OutlineSection{Level: "H2", Title: h})
	}
	for _, sec := range p.sections {
		t := sec
		if strings.Contains(sec, "%[1]s") {
			t = fmt.Sprintf(sec, primary)
		}
		if have[fold.String(t)] {
			continue
		}
		out = append(out, model.OutlineSection{Level: "H2", Title: t})
	}
	return out
}

func (s *Scorer) recommend(p pack, sug model.SeoSuggestion, kws []keyword, words int, st structure) []string {
	var recs []string
	if words < s.ideal {
		recs = append(recs, fmt.Sprintf(p.recLength, words, s.ideal))
	}
	var missing []string
	for _, k := range kws {
		if !k.match.Present {
			missing = append(missing, k.label)
		}
	}
	if len(missing) > 0 {
		recs = append(recs, fmt.Sprintf(p.recMissing, strings.Join(missing, ", ")))
	}
	if len(st.Headings) < 2 {
		recs = append(recs, p.recHeadings)
	}
	if st.Paragraphs < 3 {
		recs = append(recs, p.recParagraphs)
	}
	for _, k := range kws {
		if k.label != sug.PrimaryKeyword || !k.match.Present {
			continue
		}
		switch pct := k.match.Density * 100; {
		case pct < 0.5:
			recs = append(recs, fmt.Sprintf(p.recDensityLow, k.label, pct))
		case pct > 3:
			recs = append(recs, fmt.Sprintf(p.recDensityHigh, k.label, pct))
		}
	}
	if sug.Score < 70 {
		recs = append(recs, p.recLowScore)
	}
	recs = append(recs, p.recLinks, p.recImages)
	if len(recs) > maxRecs {
		recs = recs[:maxRecs]
	}
	return recs
}
