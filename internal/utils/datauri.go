package utils

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeDataURI builds a base64 data URI for the given content,
// e.g. "data:text/plain;base64,SGVsbG8=".
func EncodeDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURI splits a base64 data URI into its MIME type and decoded payload.
func ParseDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, fmt.Errorf("not a data URI")
	}
	rest := strings.TrimPrefix(uri, "data:")

	sep := strings.Index(rest, ",")
	if sep < 0 {
		return "", nil, fmt.Errorf("malformed data URI: missing comma separator")
	}

	meta := rest[:sep]
	payload := rest[sep+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("unsupported data URI encoding (expected base64)")
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return mimeType, data, nil
}

// IsTextualMIME reports whether a MIME type is plainly textual, meaning the
// decoded bytes can be handed to the model as text. Anything else (images,
// PDFs, office formats) is passed through as binary content instead.
func IsTextualMIME(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml":
		return true
	}
	return false
}
