package seo

import "golang.org/x/text/language"

// pack is the per-language wording used to build suggestions. %[1]s is the
// primary keyword, %[2]s the secondary one.
type pack struct {
	tag        language.Tag
	fallback   string
	titles     []string
	pairTitle  string
	meta       string
	metaSingle string
	h1         string
	sections   []string
	stopwords  map[string]bool

	recLength      string
	recMissing     string
	recHeadings    string
	recParagraphs  string
	recDensityLow  string
	recDensityHigh string
	recLowScore    string
	recLinks       string
	recImages      string
}

var italian = pack{
	tag:      language.Italian,
	fallback: "tecnologia",
	titles: []string{
		"Come funziona %[1]s: guida pratica passo dopo passo",
		"%[1]s: 7 best practices che ogni team IT dovrebbe conoscere",
		"%[1]s a confronto: strumenti, alternative e differenze",
		"%[1]s: guida completa dalle basi alle tecniche avanzate",
		"Tendenze %[1]s: cosa cambia nel settore IT italiano",
	},
	pairTitle:  "%[1]s e %[2]s: tutto quello che devi sapere",
	meta:       "Scopri tutto su %[1]s e %[2]s con questa guida completa: best practices, strumenti ed esempi pratici per migliorare le tue competenze IT.",
	metaSingle: "Scopri tutto su %[1]s con questa guida completa: best practices, strumenti ed esempi pratici per migliorare le tue competenze IT.",
	h1:         "%[1]s: guida completa",
	sections: []string{
		"Introduzione",
		"Cos'è e come funziona %[1]s",
		"Vantaggi e benefici",
		"Best practices",
		"Tools e strumenti",
		"Esempi pratici",
	},
	stopwords: words("alla alle anche come con cosa dalla dalle degli della delle dello dove essere fare hanno loro molto nella nelle nostro ogni perché però quando quella quelle quello questa queste questo sono sulla sulle tutti tutto una uno loro più"),

	recLength:      "Espandi il contenuto: %d parole su %d consigliate",
	recMissing:     "Includi le keyword mancanti nel testo: %s",
	recHeadings:    "Migliora la struttura con più sottotitoli H2/H3",
	recParagraphs:  "Dividi il testo in paragrafi più brevi e leggibili",
	recDensityLow:  "Aumenta la keyword density di \"%s\" (ora %.1f%%)",
	recDensityHigh: "Riduci le ripetizioni di \"%s\" (densità %.1f%%)",
	recLowScore:    "Ottimizza i title tag per una lunghezza di 50-60 caratteri",
	recLinks:       "Aggiungi link interni ad altri articoli correlati",
	recImages:      "Includi immagini ottimizzate con alt text",
}

var english = pack{
	tag:      language.English,
	fallback: "technology",
	titles: []string{
		"How %[1]s works: a practical step by step guide",
		"%[1]s: 7 best practices every IT team should know",
		"%[1]s compared: tools, alternatives and trade-offs",
		"%[1]s: the complete guide from basics to advanced",
		"%[1]s trends: what is changing in the IT industry",
	},
	pairTitle:  "%[1]s and %[2]s: everything you need to know",
	meta:       "Learn everything about %[1]s and %[2]s in this complete guide: best practices, tools and practical examples to sharpen your IT skills.",
	metaSingle: "Learn everything about %[1]s in this complete guide: best practices, tools and practical examples to sharpen your IT skills.",
	h1:         "%[1]s: the complete guide",
	sections: []string{
		"Introduction",
		"What %[1]s is and how it works",
		"Benefits",
		"Best practices",
		"Tools",
		"Practical examples",
	},
	stopwords: words("about after also been before being could does from have into just more most much must only other over same should some such than that their them then there these they this those very what when where which while with would your"),

	recLength:      "Expand the content: %d words out of %d recommended",
	recMissing:     "Work the missing keywords into the text: %s",
	recHeadings:    "Improve the structure with more H2/H3 subheadings",
	recParagraphs:  "Split the text into shorter, readable paragraphs",
	recDensityLow:  "Increase the density of \"%s\" (currently %.1f%%)",
	recDensityHigh: "Reduce repetitions of \"%s\" (density %.1f%%)",
	recLowScore:    "Tune title tags to a length of 50-60 characters",
	recLinks:       "Add internal links to related articles",
	recImages:      "Include optimized images with alt text",
}

var (
	packs   = []pack{italian, english}
	matcher = language.NewMatcher([]language.Tag{language.Italian, language.English})
)

func words(s string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range tokenize(s) {
		m[w] = true
	}
	return m
}
