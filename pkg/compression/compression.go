package compression

import (
	"bytes"
	"compress/gzip"
	"io"
)

// Threshold is the payload size from which compression pays off.
const Threshold = 1024 // 1KB

// ShouldCompress reports whether data is large enough to be worth compressing.
func ShouldCompress(data []byte) bool {
	return len(data) >= Threshold
}

// Compress gzips data.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
