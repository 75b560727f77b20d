package p2p

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ping := &MsgPing{Nonce: 42}
	require.NoError(t, WriteMessage(&buf, MagicTestNet, ping))

	got, err := ReadMessage(&buf, MagicTestNet)
	require.NoError(t, err)
	gotPing, ok := got.(*MsgPing)
	require.True(t, ok)
	require.Equal(t, uint64(42), gotPing.Nonce)
}

func TestReadMessageWrongMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, MagicTestNet, &MsgPing{Nonce: 1}))

	_, err := ReadMessage(&buf, MagicMainNet)
	require.Error(t, err)
}

func TestReadMessageCorruptedPayloadFailsChecksum(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, MagicTestNet, &MsgPing{Nonce: 7}))

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xff // flip a payload bit, leaving the checksum stale

	_, err := ReadMessage(bytes.NewReader(raw), MagicTestNet)
	require.Error(t, err)
}

func TestReadMessageUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, MagicTestNet, &MsgPing{Nonce: 1}))

	raw := buf.Bytes()
	copy(raw[4:16], []byte("bogus\x00\x00\x00\x00\x00\x00\x00"))
	sum := checksum(raw[24:])
	copy(raw[20:24], sum[:])

	_, err := ReadMessage(bytes.NewReader(raw), MagicTestNet)
	require.ErrorIs(t, err, ErrUnknownCommand)
}
