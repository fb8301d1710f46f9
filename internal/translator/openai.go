package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/lingopool/lingopool/internal/credential"
	"github.com/lingopool/lingopool/internal/ratelimit"
	"github.com/lingopool/lingopool/internal/retry"
	"github.com/lingopool/lingopool/internal/translation"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-3.5-turbo"

	defaultOpenAIConcurrency = 10
	defaultOpenAIRPM         = 60
)

type OpenAIConfig struct {
	BaseURL string
	Model   string
	// APIKeys rotate round-robin; each key gets its own admission governor.
	// At least one key is required.
	APIKeys []string
	// ConcurrentLimit bounds in-flight requests per key. 0 takes the
	// default of 10.
	ConcurrentLimit int
	// RPMLimit bounds requests per minute per key. 0 takes the default of
	// 60; a negative value disables the limit.
	RPMLimit int
	// SystemPrompt overrides the built-in translation prompt when set.
	SystemPrompt string
	// Defaults are the options used by the plain Translate form; nil takes
	// translation.DefaultOptions.
	Defaults *translation.Options
}

// OpenAI translates through a chat-completions endpoint, spreading load
// across a pool of API keys.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
	pool   *credential.Pool
}

// NewOpenAI validates the key pool once, at construction. client may be nil
// for the default HTTP client.
func NewOpenAI(cfg OpenAIConfig, client *http.Client) (*OpenAI, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.ConcurrentLimit <= 0 {
		cfg.ConcurrentLimit = defaultOpenAIConcurrency
	}
	if cfg.RPMLimit == 0 {
		cfg.RPMLimit = defaultOpenAIRPM
	}
	pool, err := credential.NewPool(cfg.APIKeys, ratelimit.Config{
		ConcurrencyLimit: cfg.ConcurrentLimit,
		RPMLimit:         max(cfg.RPMLimit, 0),
	})
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAI{cfg: cfg, client: client, pool: pool}, nil
}

func (t *OpenAI) Name() string {
	return "openai"
}

func (t *OpenAI) defaults() translation.Options {
	if t.cfg.Defaults != nil {
		return *t.cfg.Defaults
	}
	return translation.DefaultOptions()
}

func (t *OpenAI) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return t.TranslateWithOptions(ctx, text, targetLang, "", t.defaults())
}

func (t *OpenAI) TranslateWithOptions(ctx context.Context, text, targetLang, sourceLang string, opts translation.Options) (string, error) {
	if err := checkTargetLang(targetLang); err != nil {
		return "", err
	}
	return retry.Do(ctx, retry.Config{MaxRetries: opts.MaxRetries}, func(ctx context.Context) (string, error) {
		return t.attempt(ctx, text, targetLang, sourceLang, opts)
	})
}

// TranslateBatch fans the texts out as independent single-text calls, each
// with its own retry budget. Results come back in input order and each item
// carries its own error; one failing item does not sink the batch.
func (t *OpenAI) TranslateBatch(ctx context.Context, texts []string, targetLang, sourceLang string, opts translation.Options) ([]BatchItem, error) {
	if err := checkTargetLang(targetLang); err != nil {
		return nil, err
	}
	items := make([]BatchItem, len(texts))
	var g errgroup.Group
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			out, err := t.TranslateWithOptions(ctx, text, targetLang, sourceLang, opts)
			items[i] = BatchItem{Text: out, Err: err}
			return nil
		})
	}
	g.Wait()
	return items, nil
}

func (t *OpenAI) systemPrompt(targetLang, sourceLang string) string {
	if t.cfg.SystemPrompt != "" {
		return t.cfg.SystemPrompt
	}
	if sourceLang != "" && sourceLang != "auto" {
		return fmt.Sprintf("You are a translator. Translate the following text from %s to %s.", sourceLang, targetLang)
	}
	return fmt.Sprintf("You are a translator. Translate the following text to %s.", targetLang)
}

// attempt is one rate-governed request against one pool credential. The
// per-call timeout covers the admission wait as well as the request itself.
func (t *OpenAI) attempt(ctx context.Context, text, targetLang, sourceLang string, opts translation.Options) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	apiKey, governor := t.pool.Next()

	admission, err := governor.Admit(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &translation.TimeoutError{}
		}
		return "", err
	}
	defer admission.Release()

	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	payload := struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		Temperature float32   `json:"temperature"`
	}{
		Model: t.cfg.Model,
		Messages: []message{
			{Role: "system", Content: t.systemPrompt(targetLang, sourceLang)},
			{Role: "user", Content: text},
		},
		Temperature: 0.3,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", &translation.ServiceError{Reason: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &translation.ConfigurationError{Reason: fmt.Sprintf("invalid base URL: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", translation.FromTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", &translation.AuthenticationError{Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body)}
		}
		return "", &translation.HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var openaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", &translation.ServiceError{Reason: fmt.Sprintf("failed to decode response: %v", err)}
	}
	if len(openaiResp.Choices) == 0 {
		return "", &translation.ServiceError{Reason: "no translation results returned"}
	}

	return openaiResp.Choices[0].Message.Content, nil
}
