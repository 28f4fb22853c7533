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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	devConfig "github.com/Daskott/medibox/dev/config"
	"github.com/Daskott/medibox/shared"
	"github.com/Daskott/medibox/utils"
	"github.com/Daskott/medibox/version"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "MEDIBOX"

var (
	cfgFile  string
	isDevEnv bool

	red = color.New(color.FgRed).SprintFunc()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd = createRootCmd()
	rootCmd.Version = fmt.Sprintf("v%s", version.Version)
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "medibox",
		Short: `medibox notifies a patient's guardian when a dose is taken or missed.

The server watches the pill box device records and delivers each dose event
to the guardian as a push notification & a text message.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "server config file")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")

	return cmd
}

// loadServerConfig reads the server config from --config, or from dev/config/server.yml
// in dev mode. Any value can be overridden by env vars e.g. MEDIBOX_SMS_TOKEN.
func loadServerConfig() (shared.ServerConfig, error) {
	serverConfig := shared.ServerConfig{}
	config := viper.New()

	configFile := cfgFile
	if configFile == "" && isDevEnv {
		var err error
		configFile, err = devConfigFilePath()
		if err != nil {
			return serverConfig, err
		}
	}

	if configFile == "" {
		return serverConfig, formattedError("a server config is required, set it with --config or use --dev")
	}

	config.SetConfigFile(configFile)
	config.SetEnvPrefix(ENV_PREFIX)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv() // read in environment variables that match

	// Secrets can live in the env instead of the config file.
	// FYI: The env var overrides whatever is in the config file
	config.BindEnv("google.applicationCredentials", "GOOGLE_APPLICATION_CREDENTIALS")
	config.BindEnv("firebase.credentialsFile", "MEDIBOX_FIREBASE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
	config.BindEnv("sms.token", "MEDIBOX_SMS_TOKEN", "SMSAPI_TOKEN")

	if err := config.ReadInConfig(); err != nil {
		return serverConfig, formattedError("error reading server config file: %v", err)
	}

	if err := config.Unmarshal(&serverConfig); err != nil {
		return serverConfig, formattedError("error decoding server config file: %v", err)
	}

	return serverConfig, nil
}

// devConfigFilePath returns dev/config/server.yml in the current directory,
// creating it the first time from the bundled dev config
func devConfigFilePath() (string, error) {
	rootDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(rootDir, "dev", "config")
	if err := utils.CreateDirIfNotExist(configDir); err != nil {
		return "", err
	}

	configFilePath := filepath.Join(configDir, "server.yml")
	if err := utils.WriteFileIfNotExist(configFilePath, []byte(devConfig.SERVER_YML)); err != nil {
		return "", err
	}

	return configFilePath, nil
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(red(format), a...)
}
