package message

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

const minLettersForDetection = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectLanguage returns the ISO-639-1 code of the text, or "" when the
// sample is too short to classify reliably. Suitable as
// NormalizeContext.DetectLanguage. The detector loads lazily; the first
// call pays the model-loading cost.
func DetectLanguage(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minLettersForDetection {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
