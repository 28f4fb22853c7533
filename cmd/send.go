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
	"context"
	"fmt"
	"time"

	"github.com/Daskott/medibox/server"
	"github.com/Daskott/medibox/server/dispatch"
	"github.com/Daskott/medibox/server/logger"
	"github.com/spf13/cobra"
)

var sendKinds = map[string]dispatch.Kind{
	"taken":  dispatch.DoseTaken,
	"missed": dispatch.DoseMissed,
}

func init() {
	rootCmd.AddCommand(createSendCmd())
}

func createSendCmd() *cobra.Command {
	var (
		deviceID    string
		kind        string
		compartment string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Dispatch a device's dose event once",
		Long: `Dispatch the dose event of a device once, without starting the server.

By default the event is only sent when its trigger is set on the device record,
& the trigger is reset afterwards. Use --force to send it regardless.`,
		Example: "medibox send --dev --device MEDIBOX001 --kind missed",
		RunE: func(cmd *cobra.Command, args []string) error {
			eventKind, ok := sendKinds[kind]
			if !ok {
				return formattedError("invalid kind %q, should be 'taken' or 'missed'", kind)
			}

			config, err := loadServerConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			app, err := server.Build(ctx, config, isDevEnv, logger.NewLogger(isDevEnv))
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := runSend(ctx, app.Dispatcher(), deviceID, eventKind, compartment, force)
			if err != nil {
				return err
			}

			if result == nil {
				cmd.Printf("%s is not set on device %s, nothing to send\n", eventKind.Trigger(), deviceID)
				return nil
			}

			cmd.Printf("dispatch %s for device %s: push sent: %v, sms sent: %v\n",
				result.ID, deviceID, result.PushSent(), result.SMSSent)
			return nil
		},
	}

	cmd.Flags().StringVarP(&deviceID, "device", "d", "", "id of the device")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "dose event to send: taken or missed")
	cmd.Flags().StringVar(&compartment, "compartment", "", "compartment of a missed dose, used with --force")
	cmd.Flags().BoolVar(&force, "force", false, "send even if the trigger is not set, leaving the device record as is")
	cmd.MarkFlagRequired("device")
	cmd.MarkFlagRequired("kind")

	return cmd
}

func runSend(ctx context.Context, dispatcher *dispatch.Dispatcher, deviceID string, kind dispatch.Kind, compartment string, force bool) (*dispatch.Result, error) {
	if !force {
		return dispatcher.HandleDevice(ctx, deviceID, kind.Trigger())
	}

	event := dispatch.NewEvent(kind, deviceID, compartment, time.Now().UnixMilli())
	event.FromTrigger = false

	result, err := dispatcher.Dispatch(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("sending %s to device %s: %w", kind, deviceID, err)
	}
	return result, nil
}

