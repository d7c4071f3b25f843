package api

import (
	"encoding/json"
	"fmt"

	"github.com/jmcleod/omiassist/storage"
	"github.com/jmcleod/omiassist/telegram"
)

// RegisterRequest is the JSON body for POST /auth/register. DataCheck and
// DataCheckHash come from the Telegram Login Widget.
type RegisterRequest struct {
	OmiUID        string `json:"omi_uid"`
	TelegramUID   int64  `json:"tg_uid"`
	DataCheck     string `json:"data_check"`
	DataCheckHash string `json:"data_check_hash"`
}

// RegisterResponse is returned from POST /auth/register.
type RegisterResponse struct {
	UID     string `json:"uid"`
	AuthKey string `json:"auth_key"`
}

// SigninRequest is the JSON body for POST /auth/signin.
type SigninRequest struct {
	TelegramUID   int64  `json:"tg_uid"`
	DataCheck     string `json:"data_check"`
	DataCheckHash string `json:"data_check_hash"`
}

// SigninResponse is returned from POST /auth/signin.
type SigninResponse struct {
	UID     string `json:"uid"`
	AuthKey string `json:"auth_key"`
}

// SignoutRequest is the JSON body for POST /auth/signout.
type SignoutRequest struct {
	Everywhere bool `json:"everywhere"`
}

// CheckResponse is returned from POST /auth/check.
type CheckResponse struct {
	UID string `json:"uid"`
}

// AuthToken is a freshly minted session credential.
type AuthToken struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// PopulateFakeUserRequest is the JSON body for POST /admin/populate-fake-user.
type PopulateFakeUserRequest struct {
	OmiID      string `json:"omi_id"`
	TelegramID int64  `json:"tg_id"`
}

// PopulateFakeUserResponse is returned from POST /admin/populate-fake-user.
type PopulateFakeUserResponse struct {
	Register  RegisterResponse `json:"register"`
	AuthToken AuthToken        `json:"auth_token"`
}

// ListRequest is the JSON body of the cursor-paginated list endpoints.
type ListRequest struct {
	Cursor *string `json:"cursor,omitempty"`
}

// DestinationKind serializes as {"telegram_dm":{"chat_id":N}} or
// {"telegram_group":{"chat_id":N}}.
type DestinationKind struct {
	Group  bool
	ChatID int64
}

type chatRef struct {
	ChatID int64 `json:"chat_id"`
}

func (k DestinationKind) MarshalJSON() ([]byte, error) {
	tag := "telegram_dm"
	if k.Group {
		tag = "telegram_group"
	}
	return json.Marshal(map[string]chatRef{tag: {ChatID: k.ChatID}})
}

func (k *DestinationKind) UnmarshalJSON(data []byte) error {
	var m map[string]chatRef
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("destination kind: want exactly one variant, got %d", len(m))
	}
	for tag, ref := range m {
		switch tag {
		case "telegram_dm":
			*k = DestinationKind{ChatID: ref.ChatID}
		case "telegram_group":
			*k = DestinationKind{Group: true, ChatID: ref.ChatID}
		default:
			return fmt.Errorf("destination kind: unknown variant %q", tag)
		}
	}
	return nil
}

// Destination is a linked Telegram chat.
type Destination struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Kind DestinationKind `json:"kind"`
}

func destinationFromRecord(d storage.Destination) Destination {
	return Destination{
		ID:   d.ID,
		Name: d.Name,
		Kind: DestinationKind{Group: d.Kind == storage.DestinationTelegramGroup, ChatID: d.ChatID},
	}
}

// ListDestinationsResponse is returned from POST /action/list-destinations.
type ListDestinationsResponse struct {
	Destinations []Destination `json:"destinations"`
	NextCursor   *string       `json:"next_cursor,omitempty"`
}

// Action sends Message to Destination whenever Prompt is heard.
type Action struct {
	ID          string      `json:"id"`
	Destination Destination `json:"destination"`
	Prompt      string      `json:"prompt"`
	Message     string      `json:"message"`
}

func actionFromRecord(a storage.ActionWithDestination) Action {
	return Action{
		ID:          a.ID,
		Destination: destinationFromRecord(a.Destination),
		Prompt:      a.Prompt,
		Message:     a.Message,
	}
}

// AddActionRequest is the JSON body for POST /action/add-action.
type AddActionRequest struct {
	DestinationID string `json:"destination_id"`
	Prompt        string `json:"prompt"`
	Message       string `json:"message"`
}

// AddActionResponse is returned from POST /action/add-action.
type AddActionResponse struct {
	Action Action `json:"action"`
}

// DeleteActionRequest is the JSON body for POST /action/delete-action.
type DeleteActionRequest struct {
	ID string `json:"id"`
}

// ListActionsResponse is returned from POST /action/list-actions.
type ListActionsResponse struct {
	Actions    []Action `json:"actions"`
	NextCursor *string  `json:"next_cursor,omitempty"`
}

// OmiSegment is one transcribed utterance.
type OmiSegment struct {
	Text      string   `json:"text"`
	Speaker   *string  `json:"speaker,omitempty"`
	SpeakerID *int     `json:"speaker_id,omitempty"`
	IsUser    *bool    `json:"is_user,omitempty"`
	PersonID  *int     `json:"person_id,omitempty"`
	Start     *float64 `json:"start,omitempty"`
	End       *float64 `json:"end,omitempty"`
}

// OmiPayload is the body Omi posts to the real-time transcript webhook.
type OmiPayload struct {
	Segments  []OmiSegment `json:"segments"`
	SessionID *string      `json:"session_id,omitempty"`
}

// InfoResponse is returned from GET /info.
type InfoResponse struct {
	Version         string               `json:"version"`
	TelegramBot     telegram.User        `json:"telegram_bot"`
	TelegramWebhook telegram.WebhookInfo `json:"telegram_webhook"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error string `json:"error"`
}
