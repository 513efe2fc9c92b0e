// Package langdetect decides whether a text is Chinese or English locally.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"

	"go.aimuz.me/livetrans/internal/types"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.Chinese, lingua.English).
			Build()
	})
	return detector
}

// Result is a detection outcome.
type Result struct {
	Language types.Language
	Name     string
	// Confident is false when the detector had to guess.
	Confident bool
}

// Detect returns the language of text. Han script wins outright; otherwise
// the statistical detector decides, defaulting to English.
func Detect(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Language: types.LanguageEn, Name: "English"}
	}
	if hasHan(text) {
		return Result{Language: types.LanguageZh, Name: "Chinese", Confident: true}
	}

	lang, ok := getDetector().DetectLanguageOf(text)
	if !ok {
		return Result{Language: types.LanguageEn, Name: "English"}
	}
	if lang == lingua.Chinese {
		return Result{Language: types.LanguageZh, Name: lang.String(), Confident: true}
	}
	return Result{Language: types.LanguageEn, Name: lang.String(), Confident: true}
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
