/*
 * Copyright 2019 gocas authors and its licensors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nameof/gocas/version"
)

func main() {
	cmd := &cobra.Command{
		Use:   "gocasd",
		Short: "gocasd single sign-on server",
	}
	cmd.AddCommand(commandServe())
	cmd.AddCommand(commandHealthcheck())
	cmd.AddCommand(commandVersion())

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func commandVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Version    : %s\n", version.Version)
			fmt.Printf("Git commit : %s\n", version.GitCommit)
		},
	}
}
