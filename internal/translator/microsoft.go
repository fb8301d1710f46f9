package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/lingopool/lingopool/internal/auth"
	"github.com/lingopool/lingopool/internal/ratelimit"
	"github.com/lingopool/lingopool/internal/retry"
	"github.com/lingopool/lingopool/internal/translation"
)

const (
	DefaultMicrosoftEndpoint = "https://api-edge.cognitive.microsofttranslator.com"
	DefaultMicrosoftAuthURL  = "https://edge.microsoft.com/translate/auth"

	defaultMicrosoftConcurrency = 10

	microsoftUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

type MicrosoftConfig struct {
	Endpoint string
	// APIKey is optional. When empty the translator authenticates itself
	// through the edge auth endpoint and caches the short-lived token.
	APIKey string
	// AuthURL overrides the edge auth endpoint, mainly for tests.
	AuthURL string
	// ConcurrentLimit bounds in-flight requests. 0 takes the default of 10.
	ConcurrentLimit int
	// RPMLimit bounds requests per minute. 0, the default, disables it.
	RPMLimit int
	// Defaults are the options used by the plain Translate form; nil takes
	// translation.DefaultOptions.
	Defaults *translation.Options
}

// Microsoft translates through the Microsoft Translator edge API using a
// cached, self-refreshing bearer token.
type Microsoft struct {
	cfg      MicrosoftConfig
	client   *http.Client
	governor *ratelimit.Governor
	tokens   *auth.TokenCache
}

// NewMicrosoft builds the translator. client may be nil for the default HTTP
// client.
func NewMicrosoft(cfg MicrosoftConfig, client *http.Client) *Microsoft {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultMicrosoftEndpoint
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultMicrosoftAuthURL
	}
	if cfg.ConcurrentLimit <= 0 {
		cfg.ConcurrentLimit = defaultMicrosoftConcurrency
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Microsoft{
		cfg:    cfg,
		client: client,
		governor: ratelimit.New(ratelimit.Config{
			ConcurrencyLimit: cfg.ConcurrentLimit,
			RPMLimit:         cfg.RPMLimit,
		}),
		tokens: auth.NewTokenCache(auth.Config{
			AuthURL:   cfg.AuthURL,
			StaticKey: cfg.APIKey,
			UserAgent: microsoftUserAgent,
		}, client),
	}
}

func (t *Microsoft) Name() string {
	return "microsoft"
}

func (t *Microsoft) defaults() translation.Options {
	if t.cfg.Defaults != nil {
		return *t.cfg.Defaults
	}
	return translation.DefaultOptions()
}

func (t *Microsoft) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return t.TranslateWithOptions(ctx, text, targetLang, "", t.defaults())
}

func (t *Microsoft) TranslateWithOptions(ctx context.Context, text, targetLang, sourceLang string, opts translation.Options) (string, error) {
	items, err := t.TranslateBatch(ctx, []string{text}, targetLang, sourceLang, opts)
	if err != nil {
		return "", err
	}
	return items[0].Text, nil
}

// TranslateBatch sends the whole batch as one wire request, matching the
// backend's array-shaped API. The batch is all-or-nothing: any failure fails
// every item. Items report the detected source language when the backend
// detected one.
func (t *Microsoft) TranslateBatch(ctx context.Context, texts []string, targetLang, sourceLang string, opts translation.Options) ([]BatchItem, error) {
	if err := checkTargetLang(targetLang); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, &translation.ConfigurationError{Reason: "no texts to translate"}
	}
	return retry.Do(ctx, retry.Config{MaxRetries: opts.MaxRetries}, func(ctx context.Context) ([]BatchItem, error) {
		return t.attempt(ctx, texts, targetLang, sourceLang, opts)
	})
}

// TranslateBatchToStrings is TranslateBatch reduced to the translated texts.
func (t *Microsoft) TranslateBatchToStrings(ctx context.Context, texts []string, targetLang, sourceLang string, opts translation.Options) ([]string, error) {
	items, err := t.TranslateBatch(ctx, texts, targetLang, sourceLang, opts)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Text
	}
	return out, nil
}

// attempt covers the admission wait, token resolution and the wire request
// under one per-call timeout.
func (t *Microsoft) attempt(ctx context.Context, texts []string, targetLang, sourceLang string, opts translation.Options) ([]BatchItem, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	admission, err := t.governor.Admit(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &translation.TimeoutError{}
		}
		return nil, err
	}
	defer admission.Release()

	token, err := t.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	type item struct {
		Text string `json:"text"`
	}
	payload := make([]item, len(texts))
	for i, text := range texts {
		payload[i] = item{Text: text}
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, &translation.ServiceError{Reason: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	params := url.Values{}
	params.Set("api-version", "3.0")
	params.Set("to", targetLang)
	params.Set("includeSentenceLength", "true")
	if sourceLang != "" && sourceLang != "auto" {
		params.Set("from", sourceLang)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint+"/translate?"+params.Encode(), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &translation.ConfigurationError{Reason: fmt.Sprintf("invalid endpoint: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, translation.FromTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			// The cached token is no longer accepted. Dropping it is a
			// side effect, not a recovery: the retry layer decides
			// whether another attempt happens.
			t.tokens.Invalidate()
			return nil, &translation.AuthenticationError{Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body)}
		}
		return nil, &translation.HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var msResp []struct {
		DetectedLanguage struct {
			Language string  `json:"language"`
			Score    float64 `json:"score"`
		} `json:"detectedLanguage"`
		Translations []struct {
			Text string `json:"text"`
			To   string `json:"to"`
		} `json:"translations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&msResp); err != nil {
		return nil, &translation.ServiceError{Reason: fmt.Sprintf("failed to decode response: %v", err)}
	}
	if len(msResp) != len(texts) {
		return nil, &translation.ServiceError{Reason: fmt.Sprintf("expected %d results, got %d", len(texts), len(msResp))}
	}

	items := make([]BatchItem, len(msResp))
	for i, r := range msResp {
		if len(r.Translations) == 0 {
			return nil, &translation.ServiceError{Reason: "no translation results returned"}
		}
		items[i] = BatchItem{
			Text:             r.Translations[0].Text,
			DetectedLanguage: r.DetectedLanguage.Language,
		}
	}
	return items, nil
}
