package session

import "testing"

// FuzzSessionDecode feeds arbitrary bytes to the decoder. Nothing may panic and
// every successfully decoded record must re-encode.
func FuzzSessionDecode(f *testing.F) {
	encoded, err := Encode(&Session{
		SchemaVersion: CurrentSchemaVersion,
		AccountID:     "fuzz",
		Failures:      2,
		LockedAt:      1700000000,
		LoginIP:       "127.0.0.1",
		LoginAgent:    "fuzz-agent",
		LoginAt:       1700000001,
	})
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:10])
	}
	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{2, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(s); err != nil {
			t.Fatalf("re-encode decoded session: %v", err)
		}
	})
}
