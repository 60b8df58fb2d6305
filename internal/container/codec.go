package container

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Compression names a dataset payload encoding.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a configured compression name. Empty selects
// no compression.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported compression %q", s)
	}
}

// codec compresses dataset payloads on write and decompresses any known
// encoding on read.
type codec struct {
	write   Compression
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec(write Compression) (*codec, error) {
	write, err := ParseCompression(string(write))
	if err != nil {
		return nil, err
	}
	c := &codec{write: write}
	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if write == CompressionZstd {
		c.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			c.decoder.Close()
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
	}
	return c, nil
}

// pack returns the stored payload and the compression applied to it.
func (c *codec) pack(data []byte) ([]byte, Compression) {
	if c.encoder == nil {
		return data, CompressionNone
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), CompressionZstd
}

func (c *codec) unpack(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case "", CompressionNone:
		return data, nil
	case CompressionZstd:
		out, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported dataset compression %q", compression)
	}
}

func (c *codec) Close() {
	if c == nil {
		return
	}
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}

// datasetRecord is the bbolt encoding of a dataset.
type datasetRecord struct {
	Version     uint16      `msgpack:"v"`
	DType       string      `msgpack:"dtype"`
	Shape       []int       `msgpack:"shape"`
	Compression Compression `msgpack:"compression"`
	Data        []byte      `msgpack:"data"`
}

func (c *codec) encodeDataset(ds Dataset) ([]byte, error) {
	payload, compression := c.pack(ds.Data)
	out, err := msgpack.Marshal(datasetRecord{
		Version:     recordVersion,
		DType:       ds.DType,
		Shape:       ds.Shape,
		Compression: compression,
		Data:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	return out, nil
}

func (c *codec) decodeDataset(raw []byte) (Dataset, error) {
	var rec datasetRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset: %w", err)
	}
	if rec.Version != recordVersion {
		return Dataset{}, fmt.Errorf("%w: dataset record version %d", ErrUnsupportedVersion, rec.Version)
	}
	data, err := c.unpack(rec.Data, rec.Compression)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{DType: rec.DType, Shape: rec.Shape, Data: data}, nil
}
