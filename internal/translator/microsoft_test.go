package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/lingopool/lingopool/internal/translation"
)

type microsoftFixture struct {
	translator    *Microsoft
	authHits      *atomic.Int32
	translateHits *atomic.Int32
}

// newMicrosoftFixture wires the translator against a fake auth endpoint and a
// fake translate endpoint. handler may be nil for the default echo behavior
// that prefixes each text with "T:".
func newMicrosoftFixture(t *testing.T, cfg MicrosoftConfig, handler http.HandlerFunc) *microsoftFixture {
	t.Helper()
	var authHits, translateHits atomic.Int32

	authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := authHits.Add(1)
		fmt.Fprintf(w, "edge-token-%d", n)
	}))
	t.Cleanup(authServer.Close)

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			var req []struct {
				Text string `json:"text"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			type tl struct {
				Text string `json:"text"`
				To   string `json:"to"`
			}
			type item struct {
				DetectedLanguage struct {
					Language string  `json:"language"`
					Score    float64 `json:"score"`
				} `json:"detectedLanguage"`
				Translations []tl `json:"translations"`
			}
			out := make([]item, len(req))
			for i, in := range req {
				out[i].DetectedLanguage.Language = "en"
				out[i].DetectedLanguage.Score = 1.0
				out[i].Translations = []tl{{Text: "T:" + in.Text, To: r.URL.Query().Get("to")}}
			}
			json.NewEncoder(w).Encode(out)
		}
	}
	translateServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		translateHits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(translateServer.Close)

	cfg.Endpoint = translateServer.URL
	cfg.AuthURL = authServer.URL
	return &microsoftFixture{
		translator:    NewMicrosoft(cfg, translateServer.Client()),
		authHits:      &authHits,
		translateHits: &translateHits,
	}
}

func TestMicrosoft_Translate(t *testing.T) {
	f := newMicrosoftFixture(t, MicrosoftConfig{}, nil)

	out, err := f.translator.Translate(context.Background(), "Hello", "zh-Hans")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "T:Hello" {
		t.Errorf("expected %q, got %q", "T:Hello", out)
	}
	if f.authHits.Load() != 1 {
		t.Errorf("expected one auth call, got %d", f.authHits.Load())
	}
}

func TestMicrosoft_ReusesCachedToken(t *testing.T) {
	f := newMicrosoftFixture(t, MicrosoftConfig{}, nil)

	for i := 0; i < 3; i++ {
		if _, err := f.translator.Translate(context.Background(), "Hello", "fr"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if f.authHits.Load() != 1 {
		t.Errorf("expected the token to be fetched once, got %d auth calls", f.authHits.Load())
	}
	if f.translateHits.Load() != 3 {
		t.Errorf("expected 3 translate calls, got %d", f.translateHits.Load())
	}
}

func TestMicrosoft_StaticKeySkipsAuth(t *testing.T) {
	var gotAuth string
	f := newMicrosoftFixture(t, MicrosoftConfig{APIKey: "subscription-key"}, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[{"translations":[{"text":"ok","to":"fr"}]}]`)
	})

	if _, err := f.translator.Translate(context.Background(), "Hello", "fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.authHits.Load() != 0 {
		t.Errorf("expected no auth calls with a static key, got %d", f.authHits.Load())
	}
	if gotAuth != "Bearer subscription-key" {
		t.Errorf("expected the static key as bearer, got %q", gotAuth)
	}
}

func TestMicrosoft_InvalidatesTokenOnAuthFailure(t *testing.T) {
	var rejected atomic.Int32
	f := newMicrosoftFixture(t, MicrosoftConfig{}, func(w http.ResponseWriter, r *http.Request) {
		if rejected.Load() == 0 {
			rejected.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `[{"translations":[{"text":"ok","to":"fr"}]}]`)
	})

	_, err := f.translator.TranslateWithOptions(context.Background(), "Hello", "fr", "", translation.Options{MaxRetries: 3})
	var authErr *translation.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %T: %v", err, err)
	}
	if f.translateHits.Load() != 1 {
		t.Errorf("expected no retry after an auth failure, got %d calls", f.translateHits.Load())
	}

	// The 401 must have dropped the cached token, so the next call
	// re-authenticates.
	if _, err := f.translator.Translate(context.Background(), "Hello", "fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.authHits.Load() != 2 {
		t.Errorf("expected re-authentication after invalidation, got %d auth calls", f.authHits.Load())
	}
}

func TestMicrosoft_BatchSingleRequest(t *testing.T) {
	f := newMicrosoftFixture(t, MicrosoftConfig{}, nil)

	items, err := f.translator.TranslateBatch(context.Background(), []string{"one", "two", "three"}, "uk", "", translation.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.translateHits.Load() != 1 {
		t.Errorf("expected the whole batch in one request, got %d", f.translateHits.Load())
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []string{"T:one", "T:two", "T:three"} {
		if items[i].Text != want {
			t.Errorf("item %d: expected %q, got %q", i, want, items[i].Text)
		}
		if items[i].DetectedLanguage != "en" {
			t.Errorf("item %d: expected detected language, got %q", i, items[i].DetectedLanguage)
		}
	}
}

func TestMicrosoft_BatchAllOrNothing(t *testing.T) {
	f := newMicrosoftFixture(t, MicrosoftConfig{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400000,"message":"bad batch"}}`)
	})

	items, err := f.translator.TranslateBatch(context.Background(), []string{"one", "two"}, "uk", "", translation.Options{})
	if err == nil {
		t.Fatal("expected the whole batch to fail")
	}
	if items != nil {
		t.Errorf("expected no items on batch failure, got %v", items)
	}
	var httpErr *translation.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", httpErr.Status)
	}
}

func TestMicrosoft_BatchToStrings(t *testing.T) {
	f := newMicrosoftFixture(t, MicrosoftConfig{}, nil)

	out, err := f.translator.TranslateBatchToStrings(context.Background(), []string{"a", "b"}, "de", "", translation.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != "T:a" || out[1] != "T:b" {
		t.Errorf("unexpected results: %v", out)
	}
}

func TestMicrosoft_EmptyBatch(t *testing.T) {
	f := newMicrosoftFixture(t, MicrosoftConfig{}, nil)

	_, err := f.translator.TranslateBatch(context.Background(), nil, "de", "", translation.Options{})
	var cfgErr *translation.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError for an empty batch, got %T: %v", err, err)
	}
	if f.translateHits.Load() != 0 {
		t.Errorf("expected no network activity, got %d requests", f.translateHits.Load())
	}
}

func TestMicrosoft_SendsSourceLanguage(t *testing.T) {
	var gotFrom, gotTo string
	f := newMicrosoftFixture(t, MicrosoftConfig{}, func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		fmt.Fprint(w, `[{"translations":[{"text":"ok","to":"uk"}]}]`)
	})

	if _, err := f.translator.TranslateWithOptions(context.Background(), "Hello", "uk", "en", translation.Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFrom != "en" {
		t.Errorf("expected from=en, got %q", gotFrom)
	}
	if gotTo != "uk" {
		t.Errorf("expected to=uk, got %q", gotTo)
	}
}

func TestMicrosoft_RetriesServerErrors(t *testing.T) {
	var n atomic.Int32
	f := newMicrosoftFixture(t, MicrosoftConfig{}, func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"translations":[{"text":"finally","to":"uk"}]}]`)
	})

	out, err := f.translator.TranslateWithOptions(context.Background(), "Hello", "uk", "", translation.Options{MaxRetries: 3})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if out != "finally" {
		t.Errorf("expected %q, got %q", "finally", out)
	}
	if f.translateHits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", f.translateHits.Load())
	}
}

func TestMicrosoft_Name(t *testing.T) {
	tr := NewMicrosoft(MicrosoftConfig{}, nil)
	if tr.Name() != "microsoft" {
		t.Errorf("expected 'microsoft', got %q", tr.Name())
	}
}
