package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator splits an action name from its payload in callback data.
const Separator = ":"

// Data returns the raw callback data of the update. Buttons are built without
// a telebot unique, so the data arrives exactly as it was encoded.
func Data(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		if cb.Data == "" {
			return cb.Unique
		}
		return cb.Unique + Separator + cb.Data
	}
	return strings.TrimSpace(cb.Data)
}

// Split separates data into the action key and an optional payload.
func Split(data string) (string, string) {
	key, payload, _ := strings.Cut(data, Separator)
	return strings.TrimSpace(key), payload
}

// Encode joins a key and payload the way Split reads them.
func Encode(key, payload string) string {
	if payload == "" {
		return key
	}
	return key + Separator + payload
}
