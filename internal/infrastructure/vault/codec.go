// Package vault provides key-value stores for configuration data.
//
// Values are encoded as base64 of their JSON form. The encoding is reversible
// and is NOT encryption: anyone with access to the backing store can read the data.
package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

func encode(value interface{}) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vault value: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decode(encoded string, dest interface{}) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode vault value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal vault value: %w", err)
	}
	return nil
}
