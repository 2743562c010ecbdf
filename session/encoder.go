package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// CurrentSchemaVersion is the version written by Encode.
	CurrentSchemaVersion uint8 = 2

	schemaVersionV1 uint8 = 1
)

// Encode serializes s using the current schema.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(CurrentSchemaVersion)

	if err := writeShortString(&buf, s.AccountID, "accountID"); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.Failures); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LockedAt); err != nil {
		return nil, err
	}

	if err := writeShortString(&buf, s.LoginIP, "login ip"); err != nil {
		return nil, err
	}
	if err := writeShortString(&buf, s.LoginAgent, "login agent"); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LoginAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob written by any supported schema version. The returned
// Session keeps the version it was read from.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion && version != schemaVersionV1 {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	s := &Session{SchemaVersion: version}

	if s.AccountID, err = readShortString(reader); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.Failures); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.LockedAt); err != nil {
		return nil, err
	}

	if version == CurrentSchemaVersion {
		if s.LoginIP, err = readShortString(reader); err != nil {
			return nil, err
		}
		if s.LoginAgent, err = readShortString(reader); err != nil {
			return nil, err
		}
		if err := binary.Read(reader, binary.BigEndian, &s.LoginAt); err != nil {
			return nil, err
		}
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in session record")
	}

	return s, nil
}

func writeShortString(buf *bytes.Buffer, v, field string) error {
	if len(v) > 255 {
		return fmt.Errorf("%s too long", field)
	}
	buf.WriteByte(byte(len(v)))
	buf.WriteString(v)
	return nil
}

func readShortString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
