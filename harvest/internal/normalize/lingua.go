package normalize

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LinguaClassifier detects review language with a statistical model.
// Detection is restricted to the languages actually seen in Maps
// reviews for the covered markets; a narrow set keeps short texts from
// being misread.
type LinguaClassifier struct {
	detector lingua.LanguageDetector
}

var _ Classifier = (*LinguaClassifier)(nil)

// NewLinguaClassifier builds a detector over the given languages,
// defaulting to French, Arabic, English and Spanish.
func NewLinguaClassifier(langs ...lingua.Language) *LinguaClassifier {
	if len(langs) == 0 {
		langs = []lingua.Language{
			lingua.French,
			lingua.Arabic,
			lingua.English,
			lingua.Spanish,
		}
	}
	return &LinguaClassifier{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			Build(),
	}
}

// Classify returns the lowercase ISO 639-1 code of the detected
// language, or "unknown" when the detector has no confident answer.
func (c *LinguaClassifier) Classify(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return LanguageUnknown
	}
	lang, ok := c.detector.DetectLanguageOf(text)
	if !ok {
		return LanguageUnknown
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
