package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// readBlob loads a device-tree blob, decompressing zstd frames.
func readBlob(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeBlob(data)
}

func decodeBlob(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

// writeBlob stores blob, zstd-compressed when path ends in ".zst".
func writeBlob(path string, blob []byte) error {
	data, err := encodeBlob(blob, strings.HasSuffix(path, ".zst"))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func encodeBlob(blob []byte, compress bool) ([]byte, error) {
	if !compress {
		return blob, nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(blob, nil), nil
}
