package banklink

import (
	"encoding/base64"
	"fmt"
)

// Shareable ids are a reversible obfuscation of the external account id so
// users can hand out an identifier for receiving transfers without exposing
// the raw aggregator account id.

// EncodeShareableID obfuscates an external account id.
func EncodeShareableID(accountID string) string {
	return base64.URLEncoding.EncodeToString([]byte(accountID))
}

// DecodeShareableID recovers the external account id from a shareable id.
func DecodeShareableID(shareableID string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(shareableID)
	if err != nil {
		return "", fmt.Errorf("invalid shareable id: %w", err)
	}
	return string(raw), nil
}
