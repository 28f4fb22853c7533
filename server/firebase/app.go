package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/Daskott/medibox/shared"
	"google.golang.org/api/option"
)

// NewApp initializes the firebase admin app. Without a credentials file the
// application default credentials are used.
func NewApp(ctx context.Context, config shared.FirebaseConfig) (*firebase.App, error) {
	opts := []option.ClientOption{}
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: config.DatabaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewApp: %v", err)
	}

	return app, nil
}

func NewMessagingClient(ctx context.Context, app *firebase.App) (*messaging.Client, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewMessagingClient: %v", err)
	}

	return client, nil
}
