package qr

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"

	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

// RenderPNG rasterises a token into a square PNG of the given pixel size.
func RenderPNG(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(token, qrcode.Medium, size)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render qr image")
	}
	return png, nil
}

// RenderBase64PNG returns the PNG image base64-encoded for embedding in
// JSON responses.
func RenderBase64PNG(token string, size int) (string, error) {
	png, err := RenderPNG(token, size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
