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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	backendName string
	sourceLang  string
	targetLang  string

	timeout    time.Duration
	noTimeout  bool
	maxRetries int
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]...",
	Short: "Translate one or more texts",
	Long: `Translate text through a named backend.

A single argument is a single translation; several arguments form a batch.
The microsoft and google backends send a batch as one request (all or
nothing); openai fans the items out independently, so some items can succeed
while others fail.

Credentials come from flags or LINGOPOOL_* environment variables, e.g.
LINGOPOOL_OPENAI_API_KEYS, LINGOPOOL_MICROSOFT_API_KEY,
LINGOPOOL_GOOGLE_CREDENTIALS.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := callOptions(timeout, noTimeout, maxRetries)
		manager := buildManager(opts)

		if !manager.Has(backendName) {
			return fmt.Errorf("backend %q is not configured (available: %v)", backendName, manager.Names())
		}

		ctx := cmd.Context()

		if len(args) == 1 {
			result, err := manager.TranslateWithOptions(ctx, backendName, args[0], targetLang, sourceLang, opts)
			if err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		}

		items, err := manager.TranslateBatch(ctx, backendName, args, targetLang, sourceLang, opts)
		if err != nil {
			return err
		}
		failed := 0
		for i, item := range items {
			if item.Err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%q: %v\n", args[i], item.Err)
				continue
			}
			if item.DetectedLanguage != "" {
				fmt.Printf("%s\t(detected %s)\n", item.Text, item.DetectedLanguage)
			} else {
				fmt.Println(item.Text)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d items failed", failed, len(items))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&backendName, "backend", "b", "microsoft", "backend to use (openai, microsoft, google)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "source language (auto to detect)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "en", "target language")
	translateCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-call timeout")
	translateCmd.Flags().BoolVar(&noTimeout, "no-timeout", false, "disable the per-call timeout")
	translateCmd.Flags().IntVar(&maxRetries, "retries", 3, "max retries per attempt budget (0 disables retries)")

	translateCmd.Flags().StringSlice("openai-key", nil, "OpenAI API key (repeatable; keys rotate round-robin)")
	translateCmd.Flags().String("openai-url", "", "OpenAI-compatible base URL")
	translateCmd.Flags().String("openai-model", "", "OpenAI model name")
	translateCmd.Flags().Int("openai-rpm", 0, "requests per minute per OpenAI key (negative disables)")
	translateCmd.Flags().Int("openai-concurrency", 0, "concurrent requests per OpenAI key")
	translateCmd.Flags().String("system-prompt", "", "custom system prompt for the openai backend")
	translateCmd.Flags().String("microsoft-endpoint", "", "Microsoft Translator endpoint override")
	translateCmd.Flags().String("microsoft-key", "", "Microsoft subscription key (omit for automatic edge auth)")
	translateCmd.Flags().Int("microsoft-concurrency", 0, "concurrent requests for the microsoft backend")
	translateCmd.Flags().String("google-credentials", "", "Google service-account credentials file")
	translateCmd.Flags().Int("google-concurrency", 0, "concurrent requests for the google backend")

	viper.BindPFlag("openai.api-keys", translateCmd.Flags().Lookup("openai-key"))
	viper.BindPFlag("openai.base-url", translateCmd.Flags().Lookup("openai-url"))
	viper.BindPFlag("openai.model", translateCmd.Flags().Lookup("openai-model"))
	viper.BindPFlag("openai.rpm", translateCmd.Flags().Lookup("openai-rpm"))
	viper.BindPFlag("openai.concurrency", translateCmd.Flags().Lookup("openai-concurrency"))
	viper.BindPFlag("openai.system-prompt", translateCmd.Flags().Lookup("system-prompt"))
	viper.BindPFlag("microsoft.endpoint", translateCmd.Flags().Lookup("microsoft-endpoint"))
	viper.BindPFlag("microsoft.api-key", translateCmd.Flags().Lookup("microsoft-key"))
	viper.BindPFlag("microsoft.concurrency", translateCmd.Flags().Lookup("microsoft-concurrency"))
	viper.BindPFlag("google.credentials", translateCmd.Flags().Lookup("google-credentials"))
	viper.BindPFlag("google.concurrency", translateCmd.Flags().Lookup("google-concurrency"))
}
