// Package titles cleans paper titles and scores how closely two titles match.
// Imported metadata frequently arrives with truncation markers, mis-encoded
// characters, and citation cruft that break both provider searches and exact
// duplicate matching.
package titles

import (
	"regexp"
	"strings"
)

var (
	// Context-aware fixes for "Al"/"AI" OCR confusion.
	aiBeforeKeyword = regexp.MustCompile(`\bAl\b(\s+(?:at|in|for|and|agents|tools|systems|models)\b)`)
	generativeAI    = regexp.MustCompile(`\bGenerative Al\b`)
	aiHyphen        = regexp.MustCompile(`\bAl-`)
	gptPlural       = regexp.MustCompile(`\bGpts\b|\bGPTS\b`)

	multiSpace = regexp.MustCompile(`\s+`)

	// Working paper citation markers appended by reference managers.
	nberParen    = regexp.MustCompile(`(?i)\s*\(No\.\s*w\d+\)\s*$`)
	nberBracket  = regexp.MustCompile(`(?i)\s*\[NBER\s+w\d+\]\s*$`)
	wpParen      = regexp.MustCompile(`(?i)\s*\(Working\s+Paper\)\s*$`)
	wpBracket    = regexp.MustCompile(`(?i)\s*\[Working\s+Paper\]\s*$`)
	nonWordChars = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)
)

var smartPunct = strings.NewReplacer(
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"–", "-", // en-dash
	"—", "-", // em-dash
)

// stopWords are excluded from key-term extraction.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {},
	"been": {}, "be": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "should": {},
	"could": {}, "may": {}, "might": {}, "must": {}, "can": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "it": {}, "its": {}, "their": {},
	"them": {},
}

// Clean normalizes a raw paper title for searching and exact matching.
// It fixes common encoding artifacts, strips truncation markers and working
// paper numbers, and collapses whitespace.
func Clean(title string) string {
	cleaned := strings.TrimSpace(title)
	if cleaned == "" {
		return ""
	}

	cleaned = fixCommonReplacements(cleaned)
	cleaned = removeTruncation(cleaned)
	cleaned = removeWorkingPaperNumbers(cleaned)
	cleaned = normalizeWhitespace(cleaned)
	cleaned = strings.TrimRight(cleaned, ",;:")

	// The punctuation trim can expose trailing whitespace ("title ;").
	return strings.TrimSpace(cleaned)
}

func fixCommonReplacements(title string) string {
	result := aiBeforeKeyword.ReplaceAllString(title, "AI$1")
	result = generativeAI.ReplaceAllString(result, "Generative AI")
	result = aiHyphen.ReplaceAllString(result, "AI-")
	result = gptPlural.ReplaceAllString(result, "GPTs")
	result = smartPunct.Replace(result)
	return multiSpace.ReplaceAllString(result, " ")
}

func removeTruncation(title string) string {
	switch {
	case strings.HasSuffix(title, "..."):
		return strings.TrimSpace(title[:len(title)-3])
	case strings.HasSuffix(title, ".."):
		return strings.TrimSpace(title[:len(title)-2])
	case strings.HasSuffix(title, "."):
		// A trailing period after a very short word usually marks a cut,
		// not the end of a sentence.
		words := strings.Fields(title)
		if len(words) > 0 && len(strings.TrimSuffix(words[len(words)-1], ".")) <= 2 {
			return strings.TrimSpace(title[:len(title)-1])
		}
	}
	return title
}

func removeWorkingPaperNumbers(title string) string {
	title = nberParen.ReplaceAllString(title, "")
	title = nberBracket.ReplaceAllString(title, "")
	title = wpParen.ReplaceAllString(title, "")
	title = wpBracket.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func normalizeWhitespace(title string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(title, " "))
}

// KeyTerms extracts the significant lower-cased terms of a title,
// dropping stop words and tokens of two characters or fewer.
func KeyTerms(title string) map[string]struct{} {
	clean := strings.ToLower(Clean(title))
	clean = nonWordChars.ReplaceAllString(clean, " ")

	terms := make(map[string]struct{})
	for _, word := range strings.Fields(clean) {
		if len(word) <= 2 {
			continue
		}
		if _, ok := stopWords[word]; ok {
			continue
		}
		terms[word] = struct{}{}
	}
	return terms
}

// Similarity scores two titles on [0, 1] using Jaccard similarity of their
// key-term sets. Exact token overlap only; no fuzzy edit distance.
func Similarity(a, b string) float64 {
	termsA := KeyTerms(a)
	termsB := KeyTerms(b)

	if len(termsA) == 0 || len(termsB) == 0 {
		return 0.0
	}

	intersection := 0
	for term := range termsA {
		if _, ok := termsB[term]; ok {
			intersection++
		}
	}
	union := len(termsA) + len(termsB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
