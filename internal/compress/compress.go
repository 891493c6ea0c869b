// Package compress implements block compression for persisted bundles.
//
// A block is laid out as
//
//	[UncompressedSize uint32][CompressedSize uint32][Data...]
//
// CompressedSize == 0 means Data is stored raw, which is also what happens
// when compression does not shrink the payload by at least 10%.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None indicates no compression.
	None Type = 0
	// LZ4 indicates LZ4 block compression (fast).
	LZ4 Type = 1
	// ZSTD indicates ZSTD compression (better ratio).
	ZSTD Type = 2
)

// HeaderSize is the size of the block header in bytes.
const HeaderSize = 8

// ErrCorrupt is returned when a block cannot be decoded.
var ErrCorrupt = errors.New("compress: corrupt block")

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ParseType parses "none", "lz4" or "zstd" (case-insensitive, "" is none).
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("compress: unknown type %q", s)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode compresses data with t and prefixes the block header.
func Encode(data []byte, t Type) ([]byte, error) {
	if len(data) > math.MaxUint32 {
		return nil, fmt.Errorf("compress: block of %d bytes exceeds 4 GiB", len(data))
	}

	var compressed []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n] // n == 0: incompressible
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, HeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[HeaderSize:], data)
		return out, nil
	}

	out := make([]byte, HeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[HeaderSize:], compressed)
	return out, nil
}

// Decode reverses Encode. t must match the type used to encode.
func Decode(block []byte, t Type) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, fmt.Errorf("%w: block too small for header", ErrCorrupt)
	}

	rawSize := binary.LittleEndian.Uint32(block[0:])
	compressedSize := binary.LittleEndian.Uint32(block[4:])
	body := block[HeaderSize:]

	if compressedSize == 0 {
		if uint64(len(body)) != uint64(rawSize) {
			return nil, fmt.Errorf("%w: raw block has %d bytes, header says %d", ErrCorrupt, len(body), rawSize)
		}
		return body, nil
	}
	if uint64(len(body)) != uint64(compressedSize) {
		return nil, fmt.Errorf("%w: compressed block has %d bytes, header says %d", ErrCorrupt, len(body), compressedSize)
	}

	out := make([]byte, rawSize)
	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(n) != rawSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(len(decoded)) != rawSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("%w: compressed block with type %s", ErrCorrupt, t)
	}
}
