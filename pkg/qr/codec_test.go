package qr

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	lat, lon := 19.4326, -99.1332
	issued := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	token, err := Encode(Payload{
		SessionID: "6f1c9b2e",
		TeacherID: "t-100",
		Lat:       &lat,
		Lon:       &lon,
		IssuedAt:  issued,
	})
	require.NoError(t, err)

	p, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "6f1c9b2e", p.SessionID)
	assert.Equal(t, "t-100", p.TeacherID)
	require.NotNil(t, p.Lat)
	require.NotNil(t, p.Lon)
	assert.Equal(t, lat, *p.Lat)
	assert.Equal(t, lon, *p.Lon)
	assert.True(t, issued.Equal(p.IssuedAt))
}

func TestEncodeRequiresSessionID(t *testing.T) {
	_, err := Encode(Payload{TeacherID: "t-100"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDecodeLegacyShapes(t *testing.T) {
	cases := []struct {
		name  string
		token string
		want  string
	}{
		{"bare numeric id", "42", "42"},
		{"bare string id", "6f1c9b2e", "6f1c9b2e"},
		{"prefixed id", "session_42", "42"},
		{"surrounding whitespace", "  session_7 ", "7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Decode(tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.SessionID)
			assert.Empty(t, p.TeacherID)
		})
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"broken json", `{"sessionId": "x"`},
		{"json without session id", `{"teacherId": "t-1"}`},
		{"empty prefixed id", "session_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrInvalidQR))
		})
	}
}

func TestRenderBase64PNG(t *testing.T) {
	img, err := RenderBase64PNG("session_42", 128)
	require.NoError(t, err)
	assert.NotEmpty(t, img)
}
