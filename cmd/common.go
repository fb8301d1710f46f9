/*
Copyright © 2025 The lingopool Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/lingopool/lingopool/internal/translation"
	"github.com/lingopool/lingopool/internal/translator"
)

// buildManager registers every backend that has enough configuration to run.
// Backends with missing credentials are skipped with a debug log; whether the
// requested backend made it in is checked at call time.
func buildManager(defaults translation.Options) *translator.Manager {
	manager := translator.NewManager()

	if keys := viper.GetStringSlice("openai.api-keys"); len(keys) > 0 {
		openai, err := translator.NewOpenAI(translator.OpenAIConfig{
			BaseURL:         viper.GetString("openai.base-url"),
			Model:           viper.GetString("openai.model"),
			APIKeys:         keys,
			ConcurrentLimit: viper.GetInt("openai.concurrency"),
			RPMLimit:        viper.GetInt("openai.rpm"),
			SystemPrompt:    viper.GetString("openai.system-prompt"),
			Defaults:        &defaults,
		}, nil)
		if err != nil {
			slog.Warn("skipping openai backend", "error", err)
		} else {
			manager.Add(openai.Name(), openai)
		}
	} else {
		slog.Debug("openai backend not configured, skipping")
	}

	// Microsoft needs no credentials: it fetches its own token.
	microsoft := translator.NewMicrosoft(translator.MicrosoftConfig{
		Endpoint:        viper.GetString("microsoft.endpoint"),
		APIKey:          viper.GetString("microsoft.api-key"),
		ConcurrentLimit: viper.GetInt("microsoft.concurrency"),
		Defaults:        &defaults,
	}, nil)
	manager.Add(microsoft.Name(), microsoft)

	if creds := viper.GetString("google.credentials"); creds != "" {
		google := translator.NewGoogle(translator.GoogleConfig{
			CredentialsFile: creds,
			ConcurrentLimit: viper.GetInt("google.concurrency"),
			Defaults:        &defaults,
		})
		manager.Add(google.Name(), google)
	} else {
		slog.Debug("google backend not configured, skipping")
	}

	return manager
}

// callOptions builds the per-call options from flags. --no-timeout wins over
// --timeout.
func callOptions(timeout time.Duration, noTimeout bool, maxRetries int) translation.Options {
	opts := translation.DefaultOptions().WithMaxRetries(maxRetries)
	if noTimeout {
		return opts.WithoutTimeout()
	}
	if timeout > 0 {
		opts = opts.WithTimeout(timeout)
	}
	return opts
}
