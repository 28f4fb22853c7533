/*
Copyright © 2021 Edmond Cotterell

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
	"github.com/Daskott/medibox/server"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a medibox server",
	Long: `The medibox server watches device records for dose events and notifies
the guardian of each device. It also serves POST /sendNotification.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadServerConfig()
		if err != nil {
			return err
		}

		server.Start(config, isDevEnv)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
