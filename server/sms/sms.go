package sms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Daskott/medibox/shared"
	"go.uber.org/zap"
)

// Sender delivers a single text message
type Sender interface {
	Send(ctx context.Context, phone, title, body string) error
}

// FormatMessage is the single line sent to the guardian
func FormatMessage(title, body string) string {
	return fmt.Sprintf("%s: %s", title, body)
}

// NewSender returns the sender for the configured provider. In dev mode messages
// are only logged.
func NewSender(config shared.ServerConfig, devMode bool, logg *zap.SugaredLogger) (Sender, error) {
	if devMode {
		return NewNoopSender(logg), nil
	}

	switch config.SMS.Provider {
	case shared.SMSAPI_PROVIDER:
		return NewSMSAPISender(config.SMS, &http.Client{Timeout: 15 * time.Second}, logg), nil
	case shared.TWILIO_PROVIDER:
		return NewTwilioSender(config.Twilio, logg), nil
	}

	return nil, fmt.Errorf("unsupported sms provider %q", config.SMS.Provider)
}

// NoopSender logs messages instead of sending them
type NoopSender struct {
	logg *zap.SugaredLogger
}

func NewNoopSender(logg *zap.SugaredLogger) *NoopSender {
	return &NoopSender{logg: logg}
}

func (s *NoopSender) Send(_ context.Context, phone, title, body string) error {
	s.logg.Infof("[dev] sms to %s: %s", phone, FormatMessage(title, body))
	return nil
}
