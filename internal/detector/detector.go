// Package detector identifies the language of a transcript.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector. With two or more recognised ISO 639-1 codes the
// detector is restricted to those languages; otherwise all languages are
// considered. Building is expensive, so reuse the instance.
func New(codes ...string) *Detector {
	var langs []lingua.Language
	for _, c := range codes {
		if lang, ok := languageOf(c); ok {
			langs = append(langs, lang)
		}
	}

	var builder lingua.LanguageDetectorBuilder
	if len(langs) >= 2 {
		builder = lingua.NewLanguageDetectorBuilder().FromLanguages(langs...)
	} else {
		builder = lingua.NewLanguageDetectorBuilder().FromAllLanguages()
	}

	return &Detector{detector: builder.Build()}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Confidence returns the 0..1 confidence that text is written in the
// language with the given ISO 639-1 code.
func (d *Detector) Confidence(text, code string) float64 {
	lang, ok := languageOf(code)
	if !ok || strings.TrimSpace(text) == "" {
		return 0
	}
	return d.detector.ComputeLanguageConfidence(text, lang)
}

func languageOf(code string) (lingua.Language, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return lingua.Unknown, false
	}
	for _, lang := range lingua.AllLanguages() {
		if strings.EqualFold(lang.IsoCode639_1().String(), code) {
			return lang, true
		}
	}
	return lingua.Unknown, false
}
