package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/Daskott/medibox/utils"
	"go.uber.org/zap"
)

const (
	ANDROID_CHANNEL_ID = "medibox_alerts"
	CLICK_ACTION       = "FLUTTER_NOTIFICATION_CLICK"
	DEFAULT_SOUND      = "default"
	missedDoseType     = "missed_dose"
)

// MessagingClient is the part of *messaging.Client the sender uses
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers notifications through Firebase Cloud Messaging. It makes a
// single attempt per call, retrying is left to whoever raised the event.
type FCMSender struct {
	client MessagingClient
	logg   *zap.SugaredLogger
}

func NewFCMSender(client MessagingClient, logg *zap.SugaredLogger) *FCMSender {
	return &FCMSender{client: client, logg: logg}
}

// Send returns the FCM message id
func (s *FCMSender) Send(ctx context.Context, token, title, body string, data map[string]string) (string, error) {
	id, err := s.client.Send(ctx, BuildMessage(token, title, body, data))
	if err != nil {
		if messaging.IsUnregistered(err) {
			return "", fmt.Errorf("token %s is no longer registered: %w", utils.MaskToken(token, 20), err)
		}
		return "", fmt.Errorf("sending to token %s: %w", utils.MaskToken(token, 20), err)
	}

	return id, nil
}

// BuildMessage builds a high priority, audible notification. Missed doses get
// the max android notification priority.
func BuildMessage(token, title, body string, data map[string]string) *messaging.Message {
	payload := map[string]string{"click_action": CLICK_ACTION}
	for key, value := range data {
		payload[key] = value
	}

	notificationPriority := messaging.PriorityHigh
	if data["type"] == missedDoseType {
		notificationPriority = messaging.PriorityMax
	}

	badge := 1
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: payload,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: ANDROID_CHANNEL_ID,
				Sound:     DEFAULT_SOUND,
				Priority:  notificationPriority,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: DEFAULT_SOUND,
					Badge: &badge,
				},
			},
		},
	}
}
