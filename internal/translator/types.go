// Package translator defines the translation capability and its backends.
// Each backend composes the shared admission, credential and retry layers to
// perform one logical translation call.
package translator

import (
	"context"
	"fmt"

	"golang.org/x/text/language"

	"github.com/lingopool/lingopool/internal/translation"
)

type Translator interface {
	Name() string
	// Translate translates text into targetLang with the backend's default
	// options and automatic source-language detection.
	Translate(ctx context.Context, text, targetLang string) (string, error)
	// TranslateWithOptions is the full form. sourceLang may be empty or
	// "auto" for detection.
	TranslateWithOptions(ctx context.Context, text, targetLang, sourceLang string, opts translation.Options) (string, error)
}

// BatchTranslator is implemented by backends that support multi-text calls.
// Partial-failure behavior is per backend and documented on each method.
type BatchTranslator interface {
	Translator
	TranslateBatch(ctx context.Context, texts []string, targetLang, sourceLang string, opts translation.Options) ([]BatchItem, error)
}

// BatchItem is the outcome for one input text, in input order.
type BatchItem struct {
	Text             string
	DetectedLanguage string
	Err              error
}

// checkTargetLang rejects malformed language codes before any network
// activity.
func checkTargetLang(targetLang string) error {
	if targetLang == "" {
		return &translation.ConfigurationError{Reason: "target language is required"}
	}
	if _, err := language.Parse(targetLang); err != nil {
		return &translation.ConfigurationError{Reason: fmt.Sprintf("invalid target language %q: %v", targetLang, err)}
	}
	return nil
}
