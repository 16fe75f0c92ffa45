package photoshoot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const DefaultMIMEType = "image/jpeg"

// Image is an encoded image plus its MIME type. The core never decodes pixels.
type Image struct {
	MIMEType string
	Data     []byte
}

var dataURLRegex = regexp.MustCompile(`^data:([^;,]*)(;[^,]*)?,`)

// NewImage wraps raw bytes, sniffing the MIME type when none is given.
func NewImage(data []byte, mimeType string) Image {
	mimeType = cleanMIME(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = cleanMIME(http.DetectContentType(data))
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = DefaultMIMEType
	}
	return Image{MIMEType: mimeType, Data: data}
}

// MIMETypeOf extracts the MIME type from a data URL prefix, defaulting to
// image/jpeg when the prefix is missing or empty.
func MIMETypeOf(value string) string {
	matches := dataURLRegex.FindStringSubmatch(strings.TrimSpace(value))
	if len(matches) < 2 {
		return DefaultMIMEType
	}
	if mime := cleanMIME(matches[1]); mime != "" {
		return mime
	}
	return DefaultMIMEType
}

// ParseDataURL decodes `data:<mime>;base64,<payload>` or a bare base64 string.
func ParseDataURL(value string) (Image, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Image{}, errors.New("empty data url")
	}

	mimeType := MIMETypeOf(value)
	payload := stripDataURLPrefix(value)
	if payload == "" {
		return Image{}, errors.New("data url has no payload")
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode base64: %w", err)
	}
	if len(data) == 0 {
		return Image{}, errors.New("data url has no payload")
	}
	return Image{MIMEType: mimeType, Data: data}, nil
}

func (i Image) Empty() bool {
	return len(i.Data) == 0
}

func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

func (i Image) DataURL() string {
	mimeType := i.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, i.Base64())
}

func stripDataURLPrefix(value string) string {
	if !strings.HasPrefix(value, "data:") {
		return value
	}
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return ""
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}

func cleanMIME(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, ';'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return strings.ToLower(value)
}
