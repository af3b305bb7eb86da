package format

import (
	"bytes"
	"context"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	jsonpool "github.com/ajitpratap0/shapeshifter/pkg/json"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// avroAdapter stores a table as an Avro object container file with one
// nullable field per column. Column names that are not valid Avro names
// are rewritten and the original name is kept in the field doc.
type avroAdapter struct{}

type avroField struct {
	Name    string      `json:"name"`
	Type    interface{} `json:"type"`
	Doc     string      `json:"doc,omitempty"`
	Default interface{} `json:"default"`
}

type avroSchema struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

func (a *avroAdapter) Format() Format { return Avro }

func (a *avroAdapter) Read(ctx context.Context, path string, opts ReadOptions) (*table.Table, error) {
	data, err := readBytes(path)
	if err != nil {
		return nil, err
	}
	ocfr, err := goavro.NewOCFReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open avro file "+path).WithDetail("path", path)
	}

	schema, names, err := a.schema(ocfr.Codec())
	if err != nil {
		return nil, err
	}

	columns := make([][]interface{}, len(schema.Fields))
	for ocfr.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		datum, err := ocfr.Read()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read avro record").WithDetail("path", path)
		}
		rec, ok := datum.(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData, "unexpected avro datum %T", datum)
		}
		for i, f := range schema.Fields {
			columns[i] = append(columns[i], unwrapAvroValue(rec[f.Name]))
		}
	}
	if err := ocfr.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read avro file "+path).WithDetail("path", path)
	}

	fields := make([]arrow.Field, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = arrow.Field{Name: names[i], Type: arrowTypeFromAvro(f.Type), Nullable: true}
	}
	t, err := table.FromTypedValues(arrow.NewSchema(fields, nil), columns, opts.index())
	if err != nil {
		return nil, err
	}
	return project(t, opts.Columns)
}

func (a *avroAdapter) Write(ctx context.Context, t *table.Table, path string, opts WriteOptions) (string, error) {
	schema := avroSchema{Type: "record", Name: "Table"}
	avroTypes := make([]string, t.NumCols())
	taken := make(map[string]bool)
	for i, f := range t.Schema().Fields() {
		avroTypes[i] = avroTypeName(f.Type)
		field := avroField{Name: avroName(f.Name, taken), Type: []string{"null", avroTypes[i]}}
		if field.Name != f.Name {
			field.Doc = f.Name
		}
		schema.Fields = append(schema.Fields, field)
	}

	schemaJSON, err := jsonpool.Marshal(schema)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode avro schema")
	}
	codec, err := goavro.NewCodec(string(schemaJSON))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to create avro codec")
	}

	out, err := createOutput(path, opts)
	if err != nil {
		return "", err
	}
	ocfw, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               out,
		Codec:           codec,
		CompressionName: goavro.CompressionNullLabel,
	})
	if err != nil {
		out.Close()
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to create avro writer")
	}

	rows := make([]interface{}, 0, t.NumRows())
	for _, row := range t.Rows() {
		rec := make(map[string]interface{}, len(row))
		for c, v := range row {
			name := schema.Fields[c].Name
			if v == nil {
				rec[name] = nil
				continue
			}
			rec[name] = goavro.Union(avroTypes[c], avroValue(avroTypes[c], v))
		}
		rows = append(rows, rec)
	}
	if len(rows) > 0 {
		if err := ocfw.Append(rows); err != nil {
			out.Close()
			return "", errors.Wrap(err, errors.ErrorTypeData, "failed to write avro records")
		}
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return out.path, nil
}

func (a *avroAdapter) ListColumns(ctx context.Context, path string, index string) ([]string, error) {
	data, err := readBytes(path)
	if err != nil {
		return nil, err
	}
	ocfr, err := goavro.NewOCFReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open avro file "+path).WithDetail("path", path)
	}
	_, names, err := a.schema(ocfr.Codec())
	if err != nil {
		return nil, err
	}
	return dataColumns(names, indexOr(index)), nil
}

// schema decodes the writer schema and the column name of each field
func (a *avroAdapter) schema(codec *goavro.Codec) (*avroSchema, []string, error) {
	var schema avroSchema
	if err := jsonpool.Unmarshal([]byte(codec.Schema()), &schema); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeData, "invalid avro schema")
	}
	if schema.Type != "record" {
		return nil, nil, errors.New(errors.ErrorTypeData, "avro schema is not a record: "+schema.Type)
	}
	names := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = f.Name
		if f.Doc != "" {
			names[i] = f.Doc
		}
	}
	return &schema, names, nil
}

func avroTypeName(dt arrow.DataType) string {
	switch typeName(dt) {
	case "bool":
		return "boolean"
	case "int64":
		return "long"
	case "float64":
		return "double"
	default:
		return "string"
	}
}

func avroValue(avroType string, v interface{}) interface{} {
	switch avroType {
	case "long":
		if u, ok := v.(uint64); ok {
			return int64(u)
		}
	case "string":
		if _, ok := v.(string); !ok {
			return table.FormatValue(v)
		}
	}
	return v
}

func arrowTypeFromAvro(t interface{}) arrow.DataType {
	name := ""
	switch x := t.(type) {
	case string:
		name = x
	case []interface{}:
		for _, branch := range x {
			if s, ok := branch.(string); ok && s != "null" {
				name = s
				break
			}
		}
	}
	switch name {
	case "boolean":
		return arrow.FixedWidthTypes.Boolean
	case "int", "long":
		return arrow.PrimitiveTypes.Int64
	case "float", "double":
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// unwrapAvroValue strips the union wrapper goavro puts around nullable values
func unwrapAvroValue(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		for _, inner := range m {
			v = inner
		}
	}
	switch x := v.(type) {
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	}
	return v
}

// avroName rewrites name into a unique valid Avro field name
func avroName(name string, taken map[string]bool) string {
	b := []byte(name)
	for i, c := range b {
		valid := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !valid {
			b[i] = '_'
		}
	}
	out := string(b)
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "_" + out
	}
	base := out
	for n := 1; taken[out]; n++ {
		out = base + "_" + strconv.Itoa(n)
	}
	taken[out] = true
	return out
}
