package format

import (
	"bytes"
	"context"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// msgpackAdapter stores a table in the same column-ordered layout as the
// JSON format, encoded with MessagePack
type msgpackAdapter struct{}

func (a *msgpackAdapter) Format() Format { return MsgPack }

func (a *msgpackAdapter) Read(ctx context.Context, path string, opts ReadOptions) (*table.Table, error) {
	doc, err := a.decode(path)
	if err != nil {
		return nil, err
	}
	t, err := doc.toTable(opts.index(), decodeMsgpackCell)
	if err != nil {
		return nil, err
	}
	return project(t, opts.Columns)
}

func (a *msgpackAdapter) Write(ctx context.Context, t *table.Table, path string, opts WriteOptions) (string, error) {
	doc := newSplitTable(t, func(f float64) interface{} { return f })

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to encode msgpack")
	}
	return writeBytes(path, buf.Bytes(), opts)
}

func (a *msgpackAdapter) ListColumns(ctx context.Context, path string, index string) ([]string, error) {
	doc, err := a.decode(path)
	if err != nil {
		return nil, err
	}
	return dataColumns(doc.Columns, indexOr(index)), nil
}

func (a *msgpackAdapter) decode(path string) (*splitTable, error) {
	data, err := readBytes(path)
	if err != nil {
		return nil, err
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var doc splitTable
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode msgpack "+path).WithDetail("path", path)
	}
	return &doc, nil
}

func decodeMsgpackCell(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x, nil
	case uint64:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case []byte:
		return string(x), nil
	}
	return nil, errors.Newf(errors.ErrorTypeData, "unsupported msgpack value %T", v)
}
