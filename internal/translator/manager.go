package translator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/language"

	"github.com/lingopool/lingopool/internal/translation"
)

// Manager is a name-keyed registry of translators. Pure delegation: lookup,
// then hand the call to the backend.
type Manager struct {
	mu          sync.RWMutex
	translators map[string]Translator
}

func NewManager() *Manager {
	return &Manager{translators: make(map[string]Translator)}
}

// Add registers t under name, replacing any previous registration.
func (m *Manager) Add(name string, t Translator) {
	m.mu.Lock()
	m.translators[name] = t
	m.mu.Unlock()
}

func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.translators[name]
	return ok
}

// Names returns the registered names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.translators))
	for name := range m.translators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) lookup(name string) (Translator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.translators[name]
	if !ok {
		return nil, &translation.ConfigurationError{Reason: fmt.Sprintf("translator %q not registered", name)}
	}
	return t, nil
}

func (m *Manager) Translate(ctx context.Context, name, text, targetLang string) (string, error) {
	t, err := m.lookup(name)
	if err != nil {
		return "", err
	}
	return t.Translate(ctx, text, targetLang)
}

func (m *Manager) TranslateWithOptions(ctx context.Context, name, text, targetLang, sourceLang string, opts translation.Options) (string, error) {
	t, err := m.lookup(name)
	if err != nil {
		return "", err
	}
	return t.TranslateWithOptions(ctx, text, targetLang, sourceLang, opts)
}

// TranslateTag is the tag-typed convenience form.
func (m *Manager) TranslateTag(ctx context.Context, name, text string, targetLang language.Tag) (string, error) {
	return m.Translate(ctx, name, text, targetLang.String())
}

// TranslateBatch delegates to the backend's batch support when it has any,
// and otherwise runs the texts one by one with per-item outcomes.
func (m *Manager) TranslateBatch(ctx context.Context, name string, texts []string, targetLang, sourceLang string, opts translation.Options) ([]BatchItem, error) {
	t, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	if bt, ok := t.(BatchTranslator); ok {
		return bt.TranslateBatch(ctx, texts, targetLang, sourceLang, opts)
	}
	items := make([]BatchItem, len(texts))
	for i, text := range texts {
		out, err := t.TranslateWithOptions(ctx, text, targetLang, sourceLang, opts)
		items[i] = BatchItem{Text: out, Err: err}
	}
	return items, nil
}
