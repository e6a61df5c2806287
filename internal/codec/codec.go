// Package codec turns sync payloads into transport-safe text tokens and back.
// A token is the zlib-deflated JSON encoding of a SyncPayload, wrapped in
// standard base64 so it survives inside a chat message body.
package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BananaLabs/oss-companion/internal/types"
)

var ErrMalformedToken = errors.New("malformed token")
var ErrCorruptPayload = errors.New("corrupt payload")

// Encode serializes, compresses and base64-encodes a payload.
func Encode(p types.SyncPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress payload: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode is the inverse of Encode. It tolerates whitespace and stray
// characters injected by the chat transport and missing padding, and fails
// closed on anything it cannot fully validate: ErrMalformedToken when the
// token is not base64 at all, ErrCorruptPayload when the bytes decode but do
// not contain a valid version-1 payload.
func Decode(token string) (types.SyncPayload, error) {
	cleaned := cleanBase64(token)
	if cleaned == "" {
		return types.SyncPayload{}, ErrMalformedToken
	}
	for len(cleaned)%4 != 0 {
		cleaned += "="
	}

	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return types.SyncPayload{}, ErrMalformedToken
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return types.SyncPayload{}, ErrCorruptPayload
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return types.SyncPayload{}, ErrCorruptPayload
	}

	var p types.SyncPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return types.SyncPayload{}, ErrCorruptPayload
	}
	if err := validate(p); err != nil {
		return types.SyncPayload{}, err
	}
	return p, nil
}

func validate(p types.SyncPayload) error {
	if p.Version != types.PayloadVersion {
		return ErrCorruptPayload
	}
	switch p.RequestType {
	case types.RequestTypeRequest, types.RequestTypeAccept, types.RequestTypeReject:
	default:
		return ErrCorruptPayload
	}
	for _, s := range p.UserSkins {
		if s.ChampionID <= 0 || s.SkinID < 0 {
			return ErrCorruptPayload
		}
	}
	return nil
}

// cleanBase64 drops every character outside the standard base64 alphabet,
// including the newlines some chat clients fold into long messages.
func cleanBase64(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == '/' || r == '=':
			b.WriteRune(r)
		}
	}
	return b.String()
}
