package backup

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor wraps a byte stream with one compression codec. Archives are
// streamed straight to disk, so codecs are exposed as writer/reader wrappers
// rather than whole-buffer transforms.
type Compressor interface {
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
	Type() CompressionType
}

// CompressionManager manages the registered compression codecs
type CompressionManager struct {
	compressors map[CompressionType]Compressor
}

// NewCompressionManager creates a manager with all supported codecs registered
func NewCompressionManager() *CompressionManager {
	cm := &CompressionManager{
		compressors: make(map[CompressionType]Compressor),
	}

	cm.compressors[CompressionGzip] = &GzipCompressor{}
	cm.compressors[CompressionZstd] = &ZstdCompressor{}
	cm.compressors[CompressionLZ4] = &LZ4Compressor{}

	return cm
}

// GetCompressor returns the codec for the given type
func (cm *CompressionManager) GetCompressor(codec CompressionType) (Compressor, error) {
	compressor, exists := cm.compressors[codec]
	if !exists {
		return nil, NewBuildError(fmt.Sprintf("unsupported compression codec: %s", codec), nil)
	}
	return compressor, nil
}

// GetSupportedCodecs returns the registered codec types
func (cm *CompressionManager) GetSupportedCodecs() []CompressionType {
	codecs := make([]CompressionType, 0, len(cm.compressors))
	for codec := range cm.compressors {
		codecs = append(codecs, codec)
	}
	return codecs
}

// GzipCompressor implements gzip compression
type GzipCompressor struct{}

func (gc *GzipCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, gzip.DefaultCompression)
}

func (gc *GzipCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func (gc *GzipCompressor) Type() CompressionType {
	return CompressionGzip
}

// ZstdCompressor implements Zstandard compression
type ZstdCompressor struct{}

func (zc *ZstdCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func (zc *ZstdCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

func (zc *ZstdCompressor) Type() CompressionType {
	return CompressionZstd
}

// LZ4Compressor implements LZ4 compression
type LZ4Compressor struct{}

func (lc *LZ4Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lc *LZ4Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func (lc *LZ4Compressor) Type() CompressionType {
	return CompressionLZ4
}
