// Package compression wraps file streams in the codec named by the file
// suffix. Supported codecs are gzip (.gz), zstandard (.zst), LZ4 (.lz4),
// framed snappy (.sz) and S2 (.s2).
//
//	w, err := compression.NewWriter(f, compression.Gzip, compression.Default)
//	...
//	r, err := compression.NewReader(f, compression.FromPath("data.tsv.gz"))
package compression

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
)

// Algorithm represents a compression algorithm
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Better improves compression at cost of speed
	Better Level = 7
	// Best maximizes compression ratio
	Best Level = 9
)

var suffixes = map[Algorithm]string{
	Gzip:   ".gz",
	Zstd:   ".zst",
	LZ4:    ".lz4",
	Snappy: ".sz",
	S2:     ".s2",
}

// Algorithms lists the supported codecs
func Algorithms() []Algorithm {
	return []Algorithm{Gzip, Zstd, LZ4, Snappy, S2}
}

// Suffix returns the file suffix of alg, or "" for None
func Suffix(alg Algorithm) string {
	return suffixes[alg]
}

// FromPath returns the codec named by the suffix of path, or None
func FromPath(path string) Algorithm {
	lower := strings.ToLower(path)
	for alg, suffix := range suffixes {
		if strings.HasSuffix(lower, suffix) {
			return alg
		}
	}
	return None
}

// TrimSuffix removes a compression suffix from path
func TrimSuffix(path string) string {
	if alg := FromPath(path); alg != None {
		return path[:len(path)-len(suffixes[alg])]
	}
	return path
}

// AppendSuffix adds the suffix of alg to path unless it is already there
func AppendSuffix(path string, alg Algorithm) string {
	suffix := Suffix(alg)
	if suffix == "" || strings.HasSuffix(strings.ToLower(path), suffix) {
		return path
	}
	return path + suffix
}

// Parse converts a codec name or suffix ("gzip", ".gz", "zstd", ...) to an Algorithm
func Parse(name string) (Algorithm, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "none":
		return None, nil
	}
	for alg, suffix := range suffixes {
		if n == string(alg) || n == suffix || n == strings.TrimPrefix(suffix, ".") {
			return alg, nil
		}
	}
	return None, errors.New(errors.ErrorTypeCapability, "unsupported compression algorithm: "+name).
		WithKind(errors.ErrUnsupportedFormat)
}

var magics = []struct {
	alg   Algorithm
	magic []byte
}{
	{Gzip, []byte{0x1f, 0x8b}},
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{LZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
	{Snappy, []byte("\xff\x06\x00\x00sNaPpY")},
	{S2, []byte("\xff\x06\x00\x00S2sTwO")},
}

// Detect identifies a compressed stream from its leading bytes
func Detect(head []byte) Algorithm {
	for _, m := range magics {
		if bytes.HasPrefix(head, m.magic) {
			return m.alg
		}
	}
	return None
}

// NewWriter returns a writer that compresses into w. Closing it flushes the
// codec but does not close w.
func NewWriter(w io.Writer, alg Algorithm, level Level) (io.WriteCloser, error) {
	switch alg {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, mapGzipLevel(level))
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(level)))
	case LZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to configure lz4 writer")
		}
		return zw, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w, mapS2Level(level)), nil
	default:
		return nil, errors.New(errors.ErrorTypeCapability, "unsupported compression algorithm: "+string(alg)).
			WithKind(errors.ErrUnsupportedFormat)
	}
}

// NewReader returns a reader that decompresses r
func NewReader(r io.Reader, alg Algorithm) (io.ReadCloser, error) {
	switch alg {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "invalid gzip stream")
		}
		return zr, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "invalid zstd stream")
		}
		return zr.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	default:
		return nil, errors.New(errors.ErrorTypeCapability, "unsupported compression algorithm: "+string(alg)).
			WithKind(errors.ErrUnsupportedFormat)
	}
}

// Compress compresses data in memory
func Compress(data []byte, alg Algorithm, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, alg, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "compression failed")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "compression failed")
	}
	return buf.Bytes(), nil
}

// Decompress decompresses data in memory
func Decompress(data []byte, alg Algorithm) ([]byte, error) {
	r, err := NewReader(bytes.NewReader(data), alg)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "decompression failed")
	}
	return out, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func mapGzipLevel(level Level) int {
	switch {
	case level <= 0:
		return gzip.DefaultCompression
	case level > Best:
		return gzip.BestCompression
	}
	return int(level)
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch {
	case level <= Fastest:
		return lz4.Fast
	case level >= Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch {
	case level <= Fastest:
		return zstd.SpeedFastest
	case level >= Best:
		return zstd.SpeedBestCompression
	case level >= Better:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapS2Level(level Level) s2.WriterOption {
	switch {
	case level >= Best:
		return s2.WriterBestCompression()
	case level >= Better:
		return s2.WriterBetterCompression()
	default:
		return s2.WriterConcurrency(1)
	}
}
