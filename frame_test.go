package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeFrameHeaderLengthTiers(t *testing.T) {
	cases := []struct {
		name    string
		fh      frameHeader
		wantLen int
	}{
		{"empty text, unmasked", frameHeader{fin: true, opCode: opText, payloadLength: 0}, 2},
		{"125 bytes, unmasked", frameHeader{fin: true, opCode: opBinary, payloadLength: 125}, 2},
		{"126 bytes, unmasked", frameHeader{fin: true, opCode: opBinary, payloadLength: 126}, 4},
		{"65535 bytes, unmasked", frameHeader{fin: true, opCode: opBinary, payloadLength: 1<<16 - 1}, 4},
		{"65536 bytes, unmasked", frameHeader{fin: true, opCode: opBinary, payloadLength: 1 << 16}, 10},
		{"masked, small", frameHeader{fin: true, opCode: opText, mask: true, payloadLength: 10}, 2 + 4},
		{"masked, extended", frameHeader{fin: true, opCode: opText, mask: true, payloadLength: 200}, 4 + 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dst := make([]byte, maxFrameHeaderSize)
			n := encodeFrameHeader(dst, c.fh)
			require.Equal(t, c.wantLen, n)
		})
	}
}

func TestEncodeFrameHeaderSetsFinAndOpcode(t *testing.T) {
	dst := make([]byte, maxFrameHeaderSize)
	n := encodeFrameHeader(dst, frameHeader{fin: true, opCode: opBinary, payloadLength: 3})
	require.Equal(t, 2, n)
	require.Equal(t, finBit|byte(opBinary), dst[0])

	n = encodeFrameHeader(dst, frameHeader{fin: false, opCode: opText, payloadLength: 3})
	require.Equal(t, byte(opText), dst[0])
	_ = n
}

func TestEncodeFrameHeaderMaskBit(t *testing.T) {
	dst := make([]byte, maxFrameHeaderSize)
	key := [4]byte{1, 2, 3, 4}
	n := encodeFrameHeader(dst, frameHeader{fin: true, opCode: opText, mask: true, maskingKey: key, payloadLength: 5})
	require.Equal(t, byte(5)|maskBit, dst[1])
	require.Equal(t, key[:], dst[n-4:n])
}

func TestMaskPayloadRoundTrips(t *testing.T) {
	key := [4]byte{0xAA, 0xBB, 0xCC, 0xDD}
	original := []byte("the quick brown fox jumps")
	p := append([]byte(nil), original...)
	maskPayload(p, key)
	require.NotEqual(t, original, p)
	maskPayload(p, key)
	require.Equal(t, original, p)
}

func TestOpCodeIsControl(t *testing.T) {
	require.False(t, opContinuation.isControl())
	require.False(t, opText.isControl())
	require.False(t, opBinary.isControl())
	require.True(t, opClose.isControl())
	require.True(t, opPing.isControl())
	require.True(t, opPong.isControl())
}
