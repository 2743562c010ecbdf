package password

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PresetLength is the length of a Preset result.
const PresetLength = sha256.Size * 2

// Preset binds password to name. The result is the lower-case hex
// HMAC-SHA256 keyed by name.
func Preset(name, password string) string {
	mac := hmac.New(sha256.New, []byte(name))
	_, _ = mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}
