package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"diffractcore/pkg/domain"
)

func document() []byte {
	var b strings.Builder
	b.WriteString(`{"id":"p1","parameters":[`)
	for i := 0; i < 200; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"id":"phases.lbco.atoms.La1.fract_x","value":0.125,"free":true}`)
	}
	b.WriteString("]}")
	return []byte(b.String())
}

func TestEncodeDecodeEveryAlgorithm(t *testing.T) {
	data := document()
	for _, a := range []Algorithm{None, Zstd, S2, LZ4} {
		t.Run(a.String(), func(t *testing.T) {
			frame, err := Encode(a, data)
			require.NoError(t, err)
			require.True(t, IsFramed(frame))
			if a != None {
				require.Less(t, len(frame), len(data))
			}
			got, err := Decode(frame)
			require.NoError(t, err)
			require.True(t, bytes.Equal(data, got))
		})
	}
}

func TestDecodeDetectsCorruption(t *testing.T) {
	frame, err := Encode(None, document())
	require.NoError(t, err)
	frame[len(frame)-3] ^= 0xff
	_, err = Decode(frame)
	require.ErrorIs(t, err, domain.ErrMalformedData)

	_, err = Decode([]byte("DFC1\x01"))
	require.ErrorIs(t, err, domain.ErrMalformedData)
}

func TestDecodePassesPlainJSONThrough(t *testing.T) {
	in := []byte(`{"id":"legacy"}`)
	out, err := Decode(in)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestParse(t *testing.T) {
	a, err := Parse(" ZSTD ")
	require.NoError(t, err)
	require.Equal(t, Zstd, a)
	a, err = Parse("")
	require.NoError(t, err)
	require.Equal(t, None, a)
	_, err = Parse("brotli")
	require.Error(t, err)
}

func TestChecksumHex(t *testing.T) {
	require.Len(t, ChecksumHex([]byte("abc")), 16)
	require.Equal(t, ChecksumHex([]byte("abc")), ChecksumHex([]byte("abc")))
	require.NotEqual(t, ChecksumHex([]byte("abc")), ChecksumHex([]byte("abd")))
}
