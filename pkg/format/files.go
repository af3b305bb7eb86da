package format

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ajitpratap0/shapeshifter/pkg/compression"
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// openInput opens path for reading, decompressing it when its suffix names
// a codec. A file whose leading bytes do not match the codec named by its
// suffix is read as stored.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fileError(err, "failed to open file", path)
	}

	br := bufio.NewReader(f)
	alg := compression.FromPath(path)
	if alg != compression.None {
		head, _ := br.Peek(16)
		if compression.Detect(head) == alg {
			zr, err := compression.NewReader(br, alg)
			if err != nil {
				f.Close()
				return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to decompress "+path).
					WithDetail("path", path)
			}
			return &input{Reader: zr, codec: zr, file: f}, nil
		}
	}
	return &input{Reader: br, file: f}, nil
}

type input struct {
	io.Reader
	codec io.Closer
	file  *os.File
}

func (in *input) Close() error {
	if in.codec != nil {
		in.codec.Close()
	}
	return in.file.Close()
}

// readBytes loads the decompressed contents of path. As with openInput, a
// file whose leading bytes do not match its suffix codec is returned as
// stored.
func readBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileError(err, "failed to read file", path)
	}

	alg := compression.FromPath(path)
	if alg == compression.None || compression.Detect(data) != alg {
		return data, nil
	}
	out, err := compression.Decompress(data, alg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to decompress "+path).
			WithDetail("path", path)
	}
	return out, nil
}

// outputPath returns the path a write actually targets
func outputPath(path string, opts WriteOptions) string {
	if opts.Gzip {
		return compression.AppendSuffix(path, compression.Gzip)
	}
	return path
}

// output is a file opened for writing through the codec named by its suffix
type output struct {
	io.Writer
	path  string
	file  *os.File
	codec io.WriteCloser
}

func createOutput(path string, opts WriteOptions) (*output, error) {
	path = outputPath(path, opts)
	return createFile(path, compression.FromPath(path), opts.Level)
}

// createFile creates path and compresses what is written with alg
func createFile(path string, alg compression.Algorithm, level compression.Level) (*output, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fileError(err, "failed to create file", path)
	}

	codec, err := compression.NewWriter(f, alg, level)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &output{Writer: codec, path: path, file: f, codec: codec}, nil
}

// Close flushes the codec and closes the file
func (o *output) Close() error {
	if err := o.codec.Close(); err != nil {
		o.file.Close()
		return fileError(err, "failed to flush compressed output", o.path)
	}
	if err := o.file.Close(); err != nil {
		return fileError(err, "failed to close file", o.path)
	}
	return nil
}

// writeBytes stores data at the output path for opts, compressed with the
// codec its suffix names
func writeBytes(path string, data []byte, opts WriteOptions) (string, error) {
	path = outputPath(path, opts)
	if alg := compression.FromPath(path); alg != compression.None {
		packed, err := compression.Compress(data, alg, opts.Level)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to compress "+path).
				WithDetail("path", path)
		}
		data = packed
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fileError(err, "failed to write file", path)
	}
	return path, nil
}

func fileError(err error, msg, path string) error {
	errType := errors.ErrorTypeFile
	if os.IsNotExist(err) {
		errType = errors.ErrorTypeNotFound
	}
	return errors.Wrap(err, errType, msg+" "+path).WithDetail("path", path)
}

// isSynthetic reports whether name is an index column added by dataframe
// libraries on export
func isSynthetic(name string) bool {
	return strings.Contains(name, "__index_level_") || strings.HasPrefix(name, "Unnamed:")
}

// dataColumns drops the identifier column and trailing synthetic index
// columns from names
func dataColumns(names []string, index string) []string {
	end := len(names)
	for end > 0 && isSynthetic(names[end-1]) {
		end--
	}
	out := make([]string, 0, end)
	for _, name := range names[:end] {
		if name == index {
			continue
		}
		out = append(out, name)
	}
	return out
}

// project narrows t to columns and releases t when a new table is made
func project(t *table.Table, columns []string) (*table.Table, error) {
	if len(columns) == 0 {
		return t, nil
	}
	out, err := t.Select(columns)
	t.Release()
	if err != nil {
		return nil, err
	}
	return out, nil
}

func indexOr(index string) string {
	if index == "" {
		return table.DefaultIndex
	}
	return index
}
