// Package langdetect identifies the language of transcribed text. The
// result annotates history entries; detection never gates insertion.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	buildOnce sync.Once
	detector  lingua.LanguageDetector
)

// Detect returns the BCP 47 code and English display name of the most
// likely language of text. Empty strings mean no confident detection.
func Detect(text string) (code, name string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}

	buildOnce.Do(func() {
		// The detector is expensive to build; it is shared and built on
		// first use so startup stays fast.
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			Build()
	})

	lang, ok := detector.DetectLanguageOf(text)
	if !ok {
		return "", ""
	}

	code = strings.ToLower(lang.IsoCode639_1().String())
	tag, err := language.Parse(code)
	if err != nil {
		return code, lang.String()
	}
	return code, display.English.Tags().Name(tag)
}

// NormalizeTag canonicalizes a user-supplied language hint to a bare
// ISO 639-1 code, or returns it unchanged when it does not parse.
func NormalizeTag(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" || strings.EqualFold(hint, "auto") {
		return ""
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return hint
	}
	base, _ := tag.Base()
	return base.String()
}
