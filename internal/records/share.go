package records

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidShare is returned when a share blob cannot be decoded into a bundle
var ErrInvalidShare = errors.New("invalid share data")

// EncodeShare serialises a bundle into the base64 JSON blob used by share links
func EncodeShare(b Bundle) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeShare reverses EncodeShare. Blobs that went through a URL may use the
// URL-safe alphabet or have lost their padding; both are accepted.
func DecodeShare(blob string) (Bundle, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return Bundle{}, fmt.Errorf("%w: empty blob", ErrInvalidShare)
	}

	data, err := decodeBase64(blob)
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrInvalidShare, err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrInvalidShare, err)
	}
	return b, nil
}

func decodeBase64(blob string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}

	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(blob)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
