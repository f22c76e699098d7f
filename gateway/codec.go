package gateway

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/gred-clermont/gomero/gomero"
)

// Codec names accepted in configuration and on the wire.
const (
	CodecRaw    = "raw"
	CodecSnappy = "snappy"
	CodecZstd   = "zstd"
	CodecGzip   = "gzip"
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	if zstdEncoder, err = zstd.NewWriter(nil); err != nil {
		gomero.Criticalf("unable to create zstd encoder: %v\n", err)
	}
	if zstdDecoder, err = zstd.NewReader(nil); err != nil {
		gomero.Criticalf("unable to create zstd decoder: %v\n", err)
	}
}

// payloadCodec normalizes a configured codec name, defaulting to snappy.
func payloadCodec(name string) (string, error) {
	switch name {
	case "":
		return CodecSnappy, nil
	case CodecRaw, CodecSnappy, CodecZstd, CodecGzip:
		return name, nil
	}
	return "", fmt.Errorf("unknown compression codec %q", name)
}

// EncodePayload compresses a region payload with the named codec.  Servers
// and tests use it to produce what DecodePayload consumes.
func EncodePayload(codec string, data []byte) ([]byte, error) {
	switch codec {
	case CodecRaw:
		return data, nil
	case CodecSnappy:
		return snappy.Encode(nil, data), nil
	case CodecZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CodecGzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return nil, err
		}
		if err := gw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown compression codec %q", codec)
}

// DecodePayload reverses EncodePayload.
func DecodePayload(codec string, data []byte) ([]byte, error) {
	switch codec {
	case CodecRaw:
		return data, nil
	case CodecSnappy:
		return snappy.Decode(nil, data)
	case CodecZstd:
		return zstdDecoder.DecodeAll(data, nil)
	case CodecGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return io.ReadAll(gr)
	}
	return nil, fmt.Errorf("unknown compression codec %q", codec)
}
