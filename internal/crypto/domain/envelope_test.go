package domain

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/finsec/keyguard/internal/errors"
)

func TestEncryptedData(t *testing.T) {
	wrappedKey := []byte("wrapped-data-key")
	payload := []byte("payload-ciphertext")
	iv := []byte("012345678901")
	tag := []byte("0123456789012345")

	t.Run("round-trips ciphertext parts", func(t *testing.T) {
		envelope := NewEncryptedData(wrappedKey, payload, iv, tag, "key-1", 3, AESGCM)

		assert.Equal(t, "key-1", envelope.KeyID)
		assert.Equal(t, uint(3), envelope.KeyVersion)
		assert.Equal(t, AESGCM, envelope.Algorithm)

		gotKey, gotPayload, err := envelope.SplitCiphertext()
		require.NoError(t, err)
		assert.Equal(t, wrappedKey, gotKey)
		assert.Equal(t, payload, gotPayload)

		gotIV, err := envelope.DecodeIV()
		require.NoError(t, err)
		assert.Equal(t, iv, gotIV)

		gotTag, err := envelope.DecodeTag()
		require.NoError(t, err)
		assert.Equal(t, tag, gotTag)
	})

	t.Run("missing delimiter is a malformed envelope", func(t *testing.T) {
		envelope := EncryptedData{Ciphertext: base64.StdEncoding.EncodeToString(payload)}

		_, _, err := envelope.SplitCiphertext()
		assert.True(t, apperrors.Is(err, ErrMalformedEnvelope))
	})

	t.Run("invalid base64 is a malformed envelope", func(t *testing.T) {
		envelope := EncryptedData{Ciphertext: "not-base64!!!.also-not-base64!!!"}

		_, _, err := envelope.SplitCiphertext()
		assert.True(t, apperrors.Is(err, ErrMalformedEnvelope))
	})

	t.Run("splits on the first delimiter only", func(t *testing.T) {
		// Standard base64 payloads can end with "=" padding but never contain ".",
		// so the first "." is always the part boundary.
		envelope := NewEncryptedData(wrappedKey, payload, iv, tag, "key-1", 1, AESGCM)
		gotKey, _, err := envelope.SplitCiphertext()
		require.NoError(t, err)
		assert.Equal(t, wrappedKey, gotKey)
	})
}

func TestFieldEnvelope(t *testing.T) {
	t.Run("encode and decode round-trip", func(t *testing.T) {
		envelope := FieldEnvelope{
			EncryptedDataKey: base64.StdEncoding.EncodeToString([]byte("wrapped")),
			Kind:             FieldKindString,
			Payload:          NewEncryptedData([]byte("wrapped"), []byte("ct"), []byte("iv"), []byte("tag"), "key-1", 2, AESGCM),
		}

		opaque, err := envelope.Encode()
		require.NoError(t, err)

		decoded, err := DecodeFieldEnvelope(opaque)
		require.NoError(t, err)
		assert.Equal(t, envelope, decoded)
	})

	t.Run("rejects non-base64 input", func(t *testing.T) {
		_, err := DecodeFieldEnvelope("!!! not base64 !!!")
		assert.True(t, apperrors.Is(err, ErrMalformedEnvelope))
	})

	t.Run("rejects non-json content", func(t *testing.T) {
		opaque := base64.StdEncoding.EncodeToString([]byte("plain text"))
		_, err := DecodeFieldEnvelope(opaque)
		assert.True(t, apperrors.Is(err, ErrMalformedEnvelope))
	})
}
