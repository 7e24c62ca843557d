package discord

import (
	"encoding/json"
	"fmt"

	"github.com/jmylchreest/presence/internal/model"
)

// Protocol constants.
const (
	rpcVersion = 1

	cmdDispatch    = "DISPATCH"
	cmdSetActivity = "SET_ACTIVITY"

	evtReady = "READY"
	evtError = "ERROR"
)

type handshake struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args"`
	Nonce string `json:"nonce"`
}

type response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type readyData struct {
	V    int  `json:"v"`
	User User `json:"user"`
}

// User is the account the desktop client is logged in as.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Error is an error reported by the desktop client, either in an ERROR
// event or a close frame.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("discord: %s (code %d)", e.Message, e.Code)
}

type activityArgs struct {
	PID      int              `json:"pid"`
	Activity *activityPayload `json:"activity,omitempty"`
}

type activityPayload struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *timestamps `json:"timestamps,omitempty"`
	Assets     *assets     `json:"assets,omitempty"`
	Instance   bool        `json:"instance"`
}

type timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

type assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// newActivityPayload converts a model.Activity into the wire shape.
func newActivityPayload(a model.Activity) *activityPayload {
	p := &activityPayload{
		Details:  a.Details,
		State:    a.State,
		Instance: a.Instance,
	}
	if a.HasTimer() {
		p.Timestamps = &timestamps{Start: a.StartTimestamp, End: a.EndTimestamp}
	}
	if a.HasAssets() {
		p.Assets = &assets{
			LargeImage: a.LargeImageKey,
			LargeText:  a.LargeImageText,
			SmallImage: a.SmallImageKey,
			SmallText:  a.SmallImageText,
		}
	}
	return p
}
