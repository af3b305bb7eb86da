package format

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	jsonpool "github.com/ajitpratap0/shapeshifter/pkg/json"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// jsonAdapter stores a table as {"columns": [...], "types": [...], "data": [[...], ...]}.
// Files without "types" have their column types inferred.
type jsonAdapter struct{}

func (a *jsonAdapter) Format() Format { return JSON }

func (a *jsonAdapter) Read(ctx context.Context, path string, opts ReadOptions) (*table.Table, error) {
	doc, err := a.decode(path)
	if err != nil {
		return nil, err
	}
	t, err := doc.toTable(opts.index(), decodeJSONCell)
	if err != nil {
		return nil, err
	}
	return project(t, opts.Columns)
}

func (a *jsonAdapter) Write(ctx context.Context, t *table.Table, path string, opts WriteOptions) (string, error) {
	doc := newSplitTable(t, func(f float64) interface{} {
		return jsonpool.Number(table.FormatValue(f))
	})

	buf := jsonpool.GetBuffer()
	defer jsonpool.PutBuffer(buf)
	if err := jsonpool.NewEncoder(buf).Encode(doc); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to encode json")
	}
	return writeBytes(path, buf.Bytes(), opts)
}

func (a *jsonAdapter) ListColumns(ctx context.Context, path string, index string) ([]string, error) {
	doc, err := a.decode(path)
	if err != nil {
		return nil, err
	}
	return dataColumns(doc.Columns, indexOr(index)), nil
}

func (a *jsonAdapter) decode(path string) (*splitTable, error) {
	data, err := readBytes(path)
	if err != nil {
		return nil, err
	}
	var doc splitTable
	if err := jsonpool.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode json "+path).WithDetail("path", path)
	}
	return &doc, nil
}

func decodeJSONCell(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case jsonpool.Number:
		s := string(x)
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
		}
		return strconv.ParseFloat(s, 64)
	case float64:
		return x, nil
	}
	return nil, errors.Newf(errors.ErrorTypeData, "unsupported json value %T", v)
}
