package pdfdoc

import (
	"bytes"
	"compress/zlib"
)

// deflate compresses data at a fixed level, so equal input always
// yields equal output.
func deflate(data []byte) []byte {
	var buf bytes.Buffer
	w, _ := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}
