package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Daskott/medibox/server/dispatch"
	"github.com/Daskott/medibox/utils"
)

const (
	MISSING_FIELDS_MSG = "Missing required fields: deviceId, title, body, type"
	NO_PUSH_TOKEN_MSG  = "No FCM token found for this device"
	SENT_TO_VISIBLE    = 20
)

type ResponsePayload struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
	SentTo     string `json:"sentTo,omitempty"`
	DispatchID string `json:"dispatchId,omitempty"`
	SMSSent    *bool  `json:"smsSent,omitempty"`
}

type NotificationRequest struct {
	DeviceID string `json:"deviceId" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Body     string `json:"body" validate:"required"`
	Type     string `json:"type" validate:"required"`
}

func (req *NotificationRequest) trim() {
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	req.Type = strings.TrimSpace(req.Type)
}

// sendNotification delivers a caller-built notification to the device's guardian.
// Only a bad request or a store fault is a non-2xx response, a failed push is
// reported in the body.
func (app *App) sendNotification(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusMethodNotAllowed)
		rw.Write([]byte("Method Not Allowed"))
		return
	}

	data := NotificationRequest{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		app.writeResponse(rw, ResponsePayload{Error: MISSING_FIELDS_MSG}, http.StatusBadRequest)
		return
	}

	data.trim()
	if err := app.validate.Struct(data); err != nil {
		app.writeResponse(rw, ResponsePayload{Error: MISSING_FIELDS_MSG}, http.StatusBadRequest)
		return
	}

	event := dispatch.FromRequest(data.DeviceID, data.Title, data.Body, data.Type)
	result, err := app.dispatcher.Dispatch(r.Context(), event, dispatch.RequirePushToken())
	switch {
	case errors.Is(err, dispatch.ErrDeviceNotFound):
		app.writeResponse(rw, ResponsePayload{Error: fmt.Sprintf("Device %s not found", data.DeviceID)}, http.StatusNotFound)
		return
	case errors.Is(err, dispatch.ErrNoPushToken):
		app.writeResponse(rw, ResponsePayload{Error: NO_PUSH_TOKEN_MSG}, http.StatusBadRequest)
		return
	case err != nil:
		app.writeResponse(rw, ResponsePayload{Error: err.Error()}, http.StatusInternalServerError)
		return
	}

	smsSent := result.SMSSent
	payload := ResponsePayload{
		Success:    result.PushSent(),
		MessageID:  result.PushID,
		SentTo:     utils.MaskToken(result.Contacts.PushToken, SENT_TO_VISIBLE),
		DispatchID: result.ID,
		SMSSent:    &smsSent,
	}
	if result.PushErr != nil {
		payload.Error = result.PushErr.Error()
	}

	app.writeResponse(rw, payload, http.StatusOK)
}

func (app *App) healthz(rw http.ResponseWriter, r *http.Request) {
	app.writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}
