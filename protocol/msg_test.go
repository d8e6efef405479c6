package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMsgRoundTrip(t *testing.T) {
	key, err := GenerateAESKey()
	require.NoError(t, err)
	priv, err := GenerateRSAKeyPair()
	require.NoError(t, err)
	pub, err := PublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)
	wrapped, err := WrapAESKey(&priv.PublicKey, key)
	require.NoError(t, err)
	paste, err := EncryptPaste("n", "v", key)
	require.NoError(t, err)
	encName, err := EncryptString("n", key)
	require.NoError(t, err)

	msgs := []Msg{
		NewGreetRequest(pub),
		NewGreetResponse(pub, wrapped),
		NewActionRequest(EncryptedActionRequest{Action: ActionNew, Paste: paste}),
		NewActionRequest(EncryptedActionRequest{Action: ActionGet, Name: encName}),
		NewActionResponse(EncryptedActionResponse{
			Request: EncryptedActionRequest{Action: ActionGet, Name: encName},
			Payload: ResponsePayload{HasPaste: true, Paste: paste},
		}),
		NewActionResponse(EncryptedActionResponse{
			Request: EncryptedActionRequest{Action: ActionNew, Paste: paste},
			Payload: ResponsePayload{},
		}),
	}

	for _, m := range msgs {
		encoded, err := Encode(m)
		require.NoError(t, err)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		reencoded, err := Encode(decoded)
		require.NoError(t, err)
		require.Equalf(t, encoded, reencoded, "round trip not byte-identical for kind %s", m.Kind)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"bogus"}`))
	require.Error(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestEncryptedActionRequestEqual(t *testing.T) {
	key, err := GenerateAESKey()
	require.NoError(t, err)
	paste, err := EncryptPaste("n", "v", key)
	require.NoError(t, err)
	a := EncryptedActionRequest{Action: ActionNew, Paste: paste}
	b := EncryptedActionRequest{Action: ActionNew, Paste: paste}
	require.True(t, a.Equal(b), "identical requests should compare equal")

	other, err := EncryptPaste("n2", "v", key)
	require.NoError(t, err)
	c := EncryptedActionRequest{Action: ActionNew, Paste: other}
	require.False(t, a.Equal(c), "requests over different ciphertext should not compare equal")
}
