package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Daskott/medibox/shared"
	"go.uber.org/zap"
)

const MESSAGE_TYPE = "plain"

var (
	// ErrGatewayRejected is returned when the gateway answers with a status other than "success"
	ErrGatewayRejected = errors.New("sms gateway rejected message")

	// ErrNotConfigured is returned, without contacting the gateway, while the token is unset
	ErrNotConfigured = errors.New("sms api token not configured")
)

type smsAPIRequest struct {
	Recipient string `json:"recipient"`
	SenderID  string `json:"sender_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

type smsAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SMSAPISender sends messages through the SMSAPI.LK http api
type SMSAPISender struct {
	httpClient *http.Client
	config     shared.SMSConfig
	logg       *zap.SugaredLogger
}

func NewSMSAPISender(config shared.SMSConfig, httpClient *http.Client, logg *zap.SugaredLogger) *SMSAPISender {
	return &SMSAPISender{httpClient: httpClient, config: config, logg: logg}
}

// Send posts the message to the gateway. While the token is unconfigured nothing
// is sent & ErrNotConfigured is returned.
func (s *SMSAPISender) Send(ctx context.Context, phone, title, body string) error {
	if !s.config.SMSConfigured() {
		s.logg.Info("SMS API token not configured - skipping SMS")
		return ErrNotConfigured
	}

	message := FormatMessage(title, body)
	payload, err := json.Marshal(smsAPIRequest{
		Recipient: phone,
		SenderID:  s.config.SenderID,
		Type:      MESSAGE_TYPE,
		Message:   message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending sms: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("reading sms gateway response: %w", err)
	}

	result := smsAPIResponse{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("%w: status %d, unreadable response: %v", ErrGatewayRejected, resp.StatusCode, err)
	}

	if result.Status != "success" {
		s.logg.Errorf("SMS failed: %s", result.Message)
		return fmt.Errorf("%w: %s", ErrGatewayRejected, result.Message)
	}

	s.logg.Infof("SMS sent to %s: %s", phone, message)
	return nil
}
