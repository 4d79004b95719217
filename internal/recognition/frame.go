package recognition

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeFrame accepts raw base64 or a data URL ("data:image/jpeg;base64,...")
// and returns the image bytes.
func DecodeFrame(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.Contains(s[:comma], ";base64") {
			return nil, fmt.Errorf("%w: data URL must be base64 encoded", ErrInvalidFrame)
		}
		s = s[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}
	return data, nil
}
