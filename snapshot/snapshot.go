// Package snapshot reads and writes the on-disk database format.
//
// A snapshot is a self-describing container holding the database header and
// every live record. The layout is:
//
//	magic    [8]byte                      "simvec01"
//	codec    uint16 length + name         payload codec, e.g. "go-json"
//	comp     uint16 length + name         body compression, e.g. "zstd"
//	header   uint32 length + bytes        codec-encoded Header
//	body     rest of stream               compressed codec-encoded records
//
// Codec and compression are recorded by name so any snapshot can be opened
// without knowing how it was written. Indexes are not serialized; they are
// rebuilt from the records on load.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/simvec/simvec/codec"
)

var magic = [8]byte{'s', 'i', 'm', 'v', 'e', 'c', '0', '1'}

var (
	// ErrBadMagic is returned when the stream is not a snapshot.
	ErrBadMagic = errors.New("snapshot: bad magic, not a snapshot stream")
	// ErrUnknownCodec is returned when the recorded codec is not built in.
	ErrUnknownCodec = errors.New("snapshot: unknown codec")
	// ErrUnknownCompression is returned when the recorded compression is not
	// supported.
	ErrUnknownCompression = errors.New("snapshot: unknown compression")
)

// Compression selects the body compression algorithm.
type Compression string

const (
	// None stores the body uncompressed.
	None Compression = "none"
	// Zstd compresses the body with Zstandard.
	Zstd Compression = "zstd"
	// LZ4 compresses the body with LZ4.
	LZ4 Compression = "lz4"
)

// ParseCompression resolves a compression algorithm by name.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case None, Zstd, LZ4:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// Header describes the database a snapshot was taken from. It carries
// everything needed to rebuild an equivalent database on load.
type Header struct {
	Dimension      int    `json:"dimension" msgpack:"dimension"`
	Metric         string `json:"metric" msgpack:"metric"`
	Index          string `json:"index" msgpack:"index"`
	M              int    `json:"m,omitempty" msgpack:"m,omitempty"`
	EFConstruction int    `json:"ef_construction,omitempty" msgpack:"ef_construction,omitempty"`
	EFSearch       int    `json:"ef_search,omitempty" msgpack:"ef_search,omitempty"`
	Count          int    `json:"count" msgpack:"count"`
	CreatedAt      int64  `json:"created_at" msgpack:"created_at"`
}

// Record is one persisted record.
type Record[T any] struct {
	ID      string    `json:"id" msgpack:"id"`
	Vector  []float32 `json:"vector" msgpack:"vector"`
	Payload T         `json:"payload" msgpack:"payload"`
}

// Write serializes header and records to w using the given codec and
// compression.
func Write[T any](w io.Writer, c codec.Codec, comp Compression, header Header, records []Record[T]) error {
	if c == nil {
		c = codec.Default
	}
	if comp == "" {
		comp = None
	}
	if _, err := ParseCompression(string(comp)); err != nil {
		return err
	}

	if _, err := w.Write(magic[:]); err != nil {
		return fmt.Errorf("snapshot: write magic: %w", err)
	}
	if err := writeString(w, c.Name()); err != nil {
		return err
	}
	if err := writeString(w, string(comp)); err != nil {
		return err
	}

	headerBytes, err := c.Marshal(header)
	if err != nil {
		return fmt.Errorf("snapshot: encode header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(headerBytes))); err != nil {
		return fmt.Errorf("snapshot: write header length: %w", err)
	}
	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("snapshot: write header: %w", err)
	}

	body, err := c.Marshal(records)
	if err != nil {
		return fmt.Errorf("snapshot: encode records: %w", err)
	}

	return writeCompressed(w, comp, body)
}

// Read deserializes a snapshot from r. The payload type must match the one
// the snapshot was written with.
func Read[T any](r io.Reader) (Header, []Record[T], error) {
	var gotMagic [8]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: read magic: %w", err)
	}
	if gotMagic != magic {
		return Header{}, nil, ErrBadMagic
	}

	codecName, err := readString(r)
	if err != nil {
		return Header{}, nil, err
	}
	c, ok := codec.ByName(codecName)
	if !ok {
		return Header{}, nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codecName)
	}

	compName, err := readString(r)
	if err != nil {
		return Header{}, nil, err
	}
	comp, err := ParseCompression(compName)
	if err != nil {
		return Header{}, nil, err
	}

	var headerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: read header length: %w", err)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: read header: %w", err)
	}

	var header Header
	if err := c.Unmarshal(headerBytes, &header); err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: decode header: %w", err)
	}

	body, err := readCompressed(r, comp)
	if err != nil {
		return Header{}, nil, err
	}

	var records []Record[T]
	if err := c.Unmarshal(body, &records); err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: decode records: %w", err)
	}

	return header, records, nil
}

func writeCompressed(w io.Writer, comp Compression, body []byte) error {
	switch comp {
	case None:
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("snapshot: write body: %w", err)
		}
		return nil
	case Zstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("snapshot: zstd writer: %w", err)
		}
		if _, err := enc.Write(body); err != nil {
			enc.Close()
			return fmt.Errorf("snapshot: compress body: %w", err)
		}
		return enc.Close()
	case LZ4:
		enc := lz4.NewWriter(w)
		if _, err := enc.Write(body); err != nil {
			enc.Close()
			return fmt.Errorf("snapshot: compress body: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCompression, comp)
	}
}

func readCompressed(r io.Reader, comp Compression) ([]byte, error) {
	switch comp {
	case None:
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("snapshot: read body: %w", err)
		}
		return body, nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("snapshot: zstd reader: %w", err)
		}
		defer dec.Close()
		body, err := io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decompress body: %w", err)
		}
		return body, nil
	case LZ4:
		body, err := io.ReadAll(lz4.NewReader(r))
		if err != nil {
			return nil, fmt.Errorf("snapshot: decompress body: %w", err)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, comp)
	}
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return fmt.Errorf("snapshot: write string length: %w", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("snapshot: write string: %w", err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("snapshot: read string length: %w", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("snapshot: read string: %w", err)
	}
	return string(buf), nil
}
