package playback

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MIMEType is the container produced by speech synthesis.
const MIMEType = "audio/mpeg"

const dataURIPrefix = "data:" + MIMEType + ";base64,"

// EncodeDataURI wraps audio as a base64 data URI.
func EncodeDataURI(audio []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(audio)
}

// DecodeDataURI reverses EncodeDataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return nil, fmt.Errorf("not an %s data URI", MIMEType)
	}
	audio, err := base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return audio, nil
}
