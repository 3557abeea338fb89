// Package checksum implements the X-VERIFY signing contract of the payment provider.
//
// A signature is sha256hex(base64(payload) + endpointPath + saltKey) followed by
// "###" and the salt index. The concatenation order and separator are part of the
// wire contract and must not change.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const Separator = "###"

// Salt is the merchant key pair issued by the provider.
type Salt struct {
	Key   string
	Index string
}

// Canonicalize serializes payload to the fixed JSON form that gets signed.
// Raw bytes and json.RawMessage pass through untouched.
func Canonicalize(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	return b, nil
}

// Encode returns the base64 form of the canonical payload, as sent under "request".
func Encode(payload any) (string, error) {
	b, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Sign computes the X-VERIFY value for payload sent to endpointPath.
func Sign(payload []byte, endpointPath string, salt Salt) string {
	return SignEncoded(base64.StdEncoding.EncodeToString(payload), endpointPath, salt)
}

// SignEncoded signs an already base64-encoded payload.
func SignEncoded(encoded, endpointPath string, salt Salt) string {
	sum := sha256.Sum256([]byte(encoded + endpointPath + salt.Key))
	return hex.EncodeToString(sum[:]) + Separator + salt.Index
}

// Verify recomputes the signature of rawBody and compares it to headerSignature in
// constant time. Inbound callbacks carry no endpoint path.
func Verify(headerSignature string, rawBody []byte, salt Salt) bool {
	return VerifyPath(headerSignature, rawBody, "", salt)
}

func VerifyPath(headerSignature string, rawBody []byte, endpointPath string, salt Salt) bool {
	headerSignature = strings.TrimSpace(headerSignature)
	if headerSignature == "" {
		return false
	}
	expected := Sign(rawBody, endpointPath, salt)
	return subtle.ConstantTimeCompare([]byte(headerSignature), []byte(expected)) == 1
}
