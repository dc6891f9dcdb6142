package tools

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

func Brotli(data []byte) ([]byte, error) {
	buffer := bytes.Buffer{}

	br := brotli.NewWriter(&buffer)
	if _, err := br.Write(data); err != nil {
		_ = br.Close()
		return nil, err
	}

	if err := br.Close(); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

func UnBrotli(data []byte) ([]byte, error) {
	reader := brotli.NewReader(bytes.NewReader(data))

	return io.ReadAll(reader)
}
