// Package qr encodes and decodes the class-session payload embedded in
// scannable QR codes.
package qr

import (
	"encoding/json"
	"strings"
	"time"

	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

// legacyPrefix is the prefixed bare-id token shape still produced by old
// clients: session_<id>.
const legacyPrefix = "session_"

// Payload is the structured content of a session QR token.
type Payload struct {
	SessionID string    `json:"sessionId"`
	TeacherID string    `json:"teacherId"`
	Lat       *float64  `json:"lat,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// Encode serialises the payload into a compact UTF-8 token.
func Encode(p Payload) (string, error) {
	if p.SessionID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "qr payload requires a session id")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "marshal qr payload")
	}
	return string(raw), nil
}

// Decode parses a scanned token back into a payload. Besides the JSON
// object shape it accepts two legacy forms: a bare session identifier and
// a session_<id> prefixed string. Decoding never consults storage.
func Decode(token string) (Payload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Payload{}, appErrors.Clone(appErrors.ErrInvalidQR, "empty QR token")
	}

	if strings.HasPrefix(token, "{") {
		var p Payload
		if err := json.Unmarshal([]byte(token), &p); err != nil {
			return Payload{}, appErrors.Wrap(err, appErrors.ErrInvalidQR.Code, appErrors.ErrInvalidQR.Status, appErrors.ErrInvalidQR.Message)
		}
		if p.SessionID == "" {
			return Payload{}, appErrors.Clone(appErrors.ErrInvalidQR, "QR payload is missing the session id")
		}
		return p, nil
	}

	if id := strings.TrimPrefix(token, legacyPrefix); id != token {
		if id == "" {
			return Payload{}, appErrors.Clone(appErrors.ErrInvalidQR, "QR token has an empty session id")
		}
		return Payload{SessionID: id}, nil
	}

	// Bare identifier: numeric or plain string session id.
	return Payload{SessionID: token}, nil
}
