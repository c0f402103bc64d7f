// Package codec frames persisted project documents: an optional compression
// pass and an xxhash64 checksum of the uncompressed payload.
//
// Frame layout (big endian):
//
//	magic "DFC1" | algorithm byte | raw length uint32 | xxhash64 uint64 | payload
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"diffractcore/pkg/domain"
)

// Algorithm names a compression scheme.
type Algorithm byte

// Supported algorithms.
const (
	None Algorithm = iota
	Zstd
	S2
	LZ4
)

const headerSize = 4 + 1 + 4 + 8

var magic = []byte("DFC1")

var names = map[Algorithm]string{None: "none", Zstd: "zstd", S2: "s2", LZ4: "lz4"}

func (a Algorithm) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return fmt.Sprintf("algorithm(%d)", byte(a))
}

// Parse maps a configuration name to an Algorithm. The empty string is None.
func Parse(name string) (Algorithm, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return None, nil
	}
	for a, s := range names {
		if s == n {
			return a, nil
		}
	}
	return None, fmt.Errorf("codec: unknown compression %q", name)
}

type compressor interface {
	compress(data []byte) ([]byte, error)
	decompress(data []byte, size int) ([]byte, error)
}

func compressorFor(a Algorithm) (compressor, error) {
	switch a {
	case None:
		return noop{}, nil
	case Zstd:
		return zstdCodec{}, nil
	case S2:
		return s2Codec{}, nil
	case LZ4:
		return lz4Codec{}, nil
	}
	return nil, fmt.Errorf("codec: unknown compression %d", byte(a))
}

// Checksum returns the xxhash64 of data.
func Checksum(data []byte) uint64 { return xxhash.Sum64(data) }

// ChecksumHex renders Checksum as 16 hex digits, the form stored in blob
// metadata.
func ChecksumHex(data []byte) string { return fmt.Sprintf("%016x", Checksum(data)) }

// Encode frames data with algorithm a.
func Encode(a Algorithm, data []byte) ([]byte, error) {
	c, err := compressorFor(a)
	if err != nil {
		return nil, err
	}
	payload, err := c.compress(data)
	if err != nil {
		return nil, fmt.Errorf("codec: %s compress: %w", a, err)
	}
	out := make([]byte, headerSize, headerSize+len(payload))
	copy(out, magic)
	out[4] = byte(a)
	binary.BigEndian.PutUint32(out[5:9], uint32(len(data)))
	binary.BigEndian.PutUint64(out[9:17], Checksum(data))
	return append(out, payload...), nil
}

// Decode reverses Encode and verifies the checksum. Input without the frame
// magic is returned unchanged so that plain JSON written by older builds
// still loads.
func Decode(frame []byte) ([]byte, error) {
	if !IsFramed(frame) {
		return frame, nil
	}
	if len(frame) < headerSize {
		return nil, domain.Newf(domain.CodeMalformedData, "document", "truncated frame header")
	}
	a := Algorithm(frame[4])
	size := int(binary.BigEndian.Uint32(frame[5:9]))
	sum := binary.BigEndian.Uint64(frame[9:17])
	c, err := compressorFor(a)
	if err != nil {
		return nil, domain.Wrap(domain.CodeMalformedData, "document", err)
	}
	data, err := c.decompress(frame[headerSize:], size)
	if err != nil {
		return nil, domain.Wrap(domain.CodeMalformedData, "document", fmt.Errorf("%s decompress: %w", a, err))
	}
	if len(data) != size {
		return nil, domain.Newf(domain.CodeMalformedData, "document", "decoded %d bytes, header says %d", len(data), size)
	}
	if got := Checksum(data); got != sum {
		return nil, domain.Newf(domain.CodeMalformedData, "document", "checksum mismatch: %016x != %016x", got, sum)
	}
	return data, nil
}

// IsFramed reports whether b starts with the frame magic.
func IsFramed(b []byte) bool { return bytes.HasPrefix(b, magic) }

type noop struct{}

func (noop) compress(data []byte) ([]byte, error) { return append([]byte(nil), data...), nil }

func (noop) decompress(data []byte, _ int) ([]byte, error) { return append([]byte(nil), data...), nil }
