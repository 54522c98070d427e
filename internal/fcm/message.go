package fcm

import (
	"github.com/invory/notification-service/internal/usecase"
)

const defaultBaseURL = "https://fcm.googleapis.com/v1"

type sendRequest struct {
	Message message `json:"message"`
}

type message struct {
	Token        string            `json:"token"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      androidConfig     `json:"android"`
	APNS         apnsConfig        `json:"apns"`
	Webpush      webpushConfig     `json:"webpush"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type androidConfig struct {
	Priority     string              `json:"priority"`
	Notification androidNotification `json:"notification"`
}

type androidNotification struct {
	Sound     string `json:"sound"`
	ChannelID string `json:"channel_id"`
}

type apnsConfig struct {
	Payload apnsPayload `json:"payload"`
}

type apnsPayload struct {
	APS aps `json:"aps"`
}

type aps struct {
	Sound string `json:"sound"`
	Badge int    `json:"badge"`
}

type webpushConfig struct {
	Headers      map[string]string   `json:"headers"`
	Notification webpushNotification `json:"notification"`
}

type webpushNotification struct {
	Icon               string `json:"icon"`
	Badge              string `json:"badge"`
	RequireInteraction bool   `json:"requireInteraction"`
}

// newSendRequest derives the wire message deterministically from the
// payload. The per-platform delivery hints are attached unconditionally;
// platforms they do not apply to ignore them.
func newSendRequest(token string, n usecase.NotificationPayload) sendRequest {
	return sendRequest{Message: message{
		Token:        token,
		Notification: notification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
		Android: androidConfig{
			Priority: "high",
			Notification: androidNotification{
				Sound:     "default",
				ChannelID: "invory_notifications",
			},
		},
		APNS: apnsConfig{
			Payload: apnsPayload{APS: aps{Sound: "default", Badge: 1}},
		},
		Webpush: webpushConfig{
			Headers: map[string]string{"Urgency": "high"},
			Notification: webpushNotification{
				Icon:               "/icons/Icon-192.png",
				Badge:              "/icons/Icon-192.png",
				RequireInteraction: true,
			},
		},
	}}
}

type sendResponse struct {
	// Name is the gateway-assigned message id.
	Name  string    `json:"name"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
