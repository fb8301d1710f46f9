package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/lingopool/lingopool/internal/ratelimit"
	"github.com/lingopool/lingopool/internal/retry"
	"github.com/lingopool/lingopool/internal/translation"
)

const defaultGoogleConcurrency = 10

type GoogleConfig struct {
	// CredentialsFile points at a service-account JSON file. Empty falls
	// back to application default credentials.
	CredentialsFile string
	// ConcurrentLimit bounds in-flight requests. 0 takes the default of 10.
	ConcurrentLimit int
	// RPMLimit bounds requests per minute. 0, the default, disables it.
	RPMLimit int
	// Defaults are the options used by the plain Translate form; nil takes
	// translation.DefaultOptions.
	Defaults *translation.Options
}

// Google translates through the Cloud Translation API, run through the same
// admission and retry layers as the HTTP backends.
type Google struct {
	cfg      GoogleConfig
	governor *ratelimit.Governor
}

func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.ConcurrentLimit <= 0 {
		cfg.ConcurrentLimit = defaultGoogleConcurrency
	}
	return &Google{
		cfg: cfg,
		governor: ratelimit.New(ratelimit.Config{
			ConcurrencyLimit: cfg.ConcurrentLimit,
			RPMLimit:         cfg.RPMLimit,
		}),
	}
}

func (t *Google) Name() string {
	return "google"
}

func (t *Google) defaults() translation.Options {
	if t.cfg.Defaults != nil {
		return *t.cfg.Defaults
	}
	return translation.DefaultOptions()
}

func (t *Google) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return t.TranslateWithOptions(ctx, text, targetLang, "", t.defaults())
}

func (t *Google) TranslateWithOptions(ctx context.Context, text, targetLang, sourceLang string, opts translation.Options) (string, error) {
	items, err := t.TranslateBatch(ctx, []string{text}, targetLang, sourceLang, opts)
	if err != nil {
		return "", err
	}
	return items[0].Text, nil
}

// TranslateBatch sends the whole batch as one SDK call; like the Microsoft
// backend it is all-or-nothing.
func (t *Google) TranslateBatch(ctx context.Context, texts []string, targetLang, sourceLang string, opts translation.Options) ([]BatchItem, error) {
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

func (t *Google) attempt(ctx context.Context, texts []string, targetLang, sourceLang string, opts translation.Options) ([]BatchItem, error) {
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

	targetTag, err := language.Parse(targetLang)
	if err != nil {
		return nil, &translation.ConfigurationError{Reason: fmt.Sprintf("invalid target language %q: %v", targetLang, err)}
	}

	var clientOpts []option.ClientOption
	if t.cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(t.cfg.CredentialsFile))
	}
	client, err := translate.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, &translation.ConfigurationError{Reason: fmt.Sprintf("failed to create client: %v", err)}
	}
	defer client.Close()

	var translateOpts *translate.Options
	if sourceLang != "" && sourceLang != "auto" {
		sourceTag, parseErr := language.Parse(sourceLang)
		if parseErr != nil {
			return nil, &translation.ConfigurationError{Reason: fmt.Sprintf("invalid source language %q: %v", sourceLang, parseErr)}
		}
		translateOpts = &translate.Options{Source: sourceTag}
	}

	results, err := client.Translate(ctx, texts, targetTag, translateOpts)
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	if len(results) != len(texts) {
		return nil, &translation.ServiceError{Reason: fmt.Sprintf("expected %d results, got %d", len(texts), len(results))}
	}

	items := make([]BatchItem, len(results))
	for i, r := range results {
		if r.Text == "" {
			return nil, &translation.ServiceError{Reason: "no translation results returned"}
		}
		items[i] = BatchItem{
			Text:             r.Text,
			DetectedLanguage: r.Source.String(),
		}
	}
	return items, nil
}

// classifyGoogleError maps SDK errors into the shared taxonomy at the point
// the failure is first observed.
func classifyGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return &translation.AuthenticationError{Reason: apiErr.Message}
		default:
			return &translation.HTTPError{Status: apiErr.Code, Body: apiErr.Message}
		}
	}
	return translation.FromTransport(err)
}
