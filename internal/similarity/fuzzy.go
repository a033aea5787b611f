package similarity

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// NameSimilarity scores two short name strings on a 0-100 scale using a
// token-set ratio. The score is insensitive to word order and to
// duplicated tokens, which makes it tolerant of OCR noise and of
// "Kumar Ashwini" vs "Ashwini Kumar" style variance.
//
// Identical normalized token sets score 100. Callers must not pass an
// absent name: scoring a missing signal is the validator's concern.
func NameSimilarity(a, b string) int {
	// The second option turns on Cleanse, which lowercases and strips
	// non-alphanumerics before tokenizing. Unlike its Python ancestor
	// the library does not do this by default, and OCR output is full
	// of case and punctuation noise.
	return fuzzy.TokenSetRatio(a, b, false, true)
}
