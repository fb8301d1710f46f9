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

	"github.com/spf13/cobra"

	"github.com/lingopool/lingopool/internal/translation"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the backends available with the current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		manager := buildManager(translation.DefaultOptions())
		for _, name := range manager.Names() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}
