package sms

import (
	"context"
	"fmt"

	"github.com/Daskott/medibox/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// createMessageFunc creates a twilio message & returns its sid
type createMessageFunc func(params *openapi.CreateMessageParams) (string, error)

// TwilioSender sends messages through a twilio messaging service
type TwilioSender struct {
	create createMessageFunc
	config shared.TwilioConfig
	logg   *zap.SugaredLogger
}

func NewTwilioSender(config shared.TwilioConfig, logg *zap.SugaredLogger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	create := func(params *openapi.CreateMessageParams) (string, error) {
		resp, err := client.ApiV2010.CreateMessage(params)
		if err != nil {
			return "", err
		}

		if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
			return "", fmt.Errorf("%w: %s", ErrGatewayRejected, *resp.ErrorMessage)
		}

		if resp.Sid == nil {
			return "", nil
		}
		return *resp.Sid, nil
	}

	return &TwilioSender{create: create, config: config, logg: logg}
}

// Send creates the message. The twilio client takes no context, so 'ctx' is only
// checked before the call is made.
func (s *TwilioSender) Send(ctx context.Context, phone, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(s.config.MessagingServiceSid)
	params.SetTo(phone)
	params.SetBody(FormatMessage(title, body))

	sid, err := s.create(params)
	if err != nil {
		return fmt.Errorf("sending twilio message: %w", err)
	}

	s.logg.Infof("SMS queued with twilio for %s: %s", phone, sid)
	return nil
}
