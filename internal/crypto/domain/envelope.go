package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finsec/keyguard/internal/errors"
)

// EncryptedData is the self-describing envelope produced by the encryption
// service. It is the only artifact callers persist: given access to the right
// KMS provider it contains everything needed to decrypt.
//
// Ciphertext is the wrapped data key and the payload ciphertext joined by a
// single "." separator, each part base64-encoded. IV and Tag are base64-encoded
// raw bytes.
type EncryptedData struct {
	Ciphertext string    `json:"ciphertext"`
	KeyID      string    `json:"keyId"`
	KeyVersion uint      `json:"keyVersion"`
	Algorithm  Algorithm `json:"algorithm"`
	IV         string    `json:"iv"`
	Tag        string    `json:"tag"`
}

// NewEncryptedData assembles an envelope from raw encryption outputs.
func NewEncryptedData(
	wrappedDataKey, payloadCiphertext, iv, tag []byte,
	keyID string,
	keyVersion uint,
	alg Algorithm,
) EncryptedData {
	return EncryptedData{
		Ciphertext: base64.StdEncoding.EncodeToString(wrappedDataKey) +
			"." + base64.StdEncoding.EncodeToString(payloadCiphertext),
		KeyID:      keyID,
		KeyVersion: keyVersion,
		Algorithm:  alg,
		IV:         base64.StdEncoding.EncodeToString(iv),
		Tag:        base64.StdEncoding.EncodeToString(tag),
	}
}

// SplitCiphertext separates the wrapped data key from the payload ciphertext.
//
// Returns ErrMalformedEnvelope if the "." delimiter is absent or either part is
// not valid base64. The split is on the first delimiter only, so base64 padding
// in the payload part is unaffected.
func (e EncryptedData) SplitCiphertext() (wrappedDataKey, payloadCiphertext []byte, err error) {
	encodedKey, encodedPayload, found := strings.Cut(e.Ciphertext, ".")
	if !found {
		return nil, nil, fmt.Errorf("%w: missing wrapped-key delimiter", ErrMalformedEnvelope)
	}

	wrappedDataKey, err = base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid wrapped key encoding", ErrMalformedEnvelope)
	}

	payloadCiphertext, err = base64.StdEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid payload encoding", ErrMalformedEnvelope)
	}

	return wrappedDataKey, payloadCiphertext, nil
}

// DecodeIV returns the raw nonce bytes.
func (e EncryptedData) DecodeIV() ([]byte, error) {
	iv, err := base64.StdEncoding.DecodeString(e.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid iv encoding", ErrMalformedEnvelope)
	}
	return iv, nil
}

// DecodeTag returns the raw authentication tag bytes.
func (e EncryptedData) DecodeTag() ([]byte, error) {
	tag, err := base64.StdEncoding.DecodeString(e.Tag)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tag encoding", ErrMalformedEnvelope)
	}
	return tag, nil
}

// FieldEnvelope is the storage form for field-level encryption: the whole
// envelope, wrapped data key included, serialized as one base64 blob suitable
// for a single database column. Kind records the field value's variant at
// encryption time so decryption reconstructs the exact same representation
// instead of guessing from the plaintext bytes.
type FieldEnvelope struct {
	EncryptedDataKey string        `json:"encryptedDataKey"`
	Kind             FieldKind     `json:"kind"`
	Payload          EncryptedData `json:"payload"`
}

// Encode serializes the field envelope to its opaque storage string:
// base64(JSON({encryptedDataKey, payload})).
func (f FieldEnvelope) Encode() (string, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal field envelope")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeFieldEnvelope parses an opaque storage string back into a FieldEnvelope.
// Returns ErrMalformedEnvelope for anything that is not a base64 JSON envelope.
func DecodeFieldEnvelope(opaque string) (FieldEnvelope, error) {
	raw, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil {
		return FieldEnvelope{}, fmt.Errorf("%w: invalid base64", ErrMalformedEnvelope)
	}

	var envelope FieldEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return FieldEnvelope{}, fmt.Errorf("%w: invalid json", ErrMalformedEnvelope)
	}

	return envelope, nil
}
