// Package strings provides pooled string building, cell value formatting,
// SQL quoting and string interning for ShapeShifter
package strings

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Builder provides efficient string building over a reusable byte buffer
type Builder struct {
	buf []byte
}

// NewBuilder creates a new string builder
func NewBuilder(capacity int) *Builder {
	return &Builder{
		buf: make([]byte, 0, capacity),
	}
}

// WriteString appends a string to the builder
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a byte to the builder
func (b *Builder) WriteByte(c byte) {
	b.buf = append(b.buf, c)
}

// Write implements io.Writer
func (b *Builder) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns a copy of the accumulated string
func (b *Builder) String() string {
	return string(b.buf)
}

// Len returns the current length
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset clears the builder, keeping its capacity
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// BuilderSize selects the pool a builder comes from
type BuilderSize int

const (
	Small  BuilderSize = iota // < 1KB
	Medium                    // 1KB - 16KB
	Large                     // 16KB+
)

var builderPools = [...]*sync.Pool{
	Small:  {New: func() interface{} { return NewBuilder(1024) }},
	Medium: {New: func() interface{} { return NewBuilder(16 * 1024) }},
	Large:  {New: func() interface{} { return NewBuilder(64 * 1024) }},
}

func poolFor(size BuilderSize) *sync.Pool {
	if size < Small || size > Large {
		return builderPools[Small]
	}
	return builderPools[size]
}

// SizeFor picks a builder size for an estimated output length
func SizeFor(estimated int) BuilderSize {
	switch {
	case estimated > 16*1024:
		return Large
	case estimated > 1024:
		return Medium
	default:
		return Small
	}
}

// GetBuilder retrieves a pooled builder of the specified size
func GetBuilder(size BuilderSize) *Builder {
	builder := poolFor(size).Get().(*Builder)
	builder.Reset()
	return builder
}

// PutBuilder returns a builder to the appropriate pool
func PutBuilder(builder *Builder, size BuilderSize) {
	if builder == nil {
		return
	}
	builder.Reset()
	poolFor(size).Put(builder)
}

// BuildString runs fn against a pooled builder and returns the result
func BuildString(fn func(*Builder)) string {
	builder := GetBuilder(Small)
	defer PutBuilder(builder, Small)

	fn(builder)
	return builder.String()
}

// Sprintf provides a pooled alternative to fmt.Sprintf
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	size := SizeFor(len(format) + len(args)*16)
	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	fmt.Fprintf(builder, format, args...)
	return builder.String()
}

// JoinPooled joins strings using a pooled builder
func JoinPooled(parts []string, delimiter string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}

	total := len(delimiter) * (len(parts) - 1)
	for _, p := range parts {
		total += len(p)
	}

	size := SizeFor(total)
	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	for i, p := range parts {
		if i > 0 {
			builder.WriteString(delimiter)
		}
		builder.WriteString(p)
	}
	return builder.String()
}

// SQLBuilder builds SQL statements with quoted identifiers and literals
type SQLBuilder struct {
	builder *Builder
	size    BuilderSize
}

// NewSQLBuilder creates a new SQL builder
func NewSQLBuilder(estimatedLength int) *SQLBuilder {
	size := SizeFor(estimatedLength)
	return &SQLBuilder{
		builder: GetBuilder(size),
		size:    size,
	}
}

// WriteQuery writes a SQL query part
func (sb *SQLBuilder) WriteQuery(query string) *SQLBuilder {
	sb.builder.WriteString(query)
	return sb
}

// WriteStringLiteral writes a single-quoted string literal
func (sb *SQLBuilder) WriteStringLiteral(value string) *SQLBuilder {
	sb.builder.WriteByte('\'')
	sb.builder.WriteString(strings.ReplaceAll(value, "'", "''"))
	sb.builder.WriteByte('\'')
	return sb
}

// WriteIdentifier writes a double-quoted identifier
func (sb *SQLBuilder) WriteIdentifier(name string) *SQLBuilder {
	sb.builder.WriteByte('"')
	sb.builder.WriteString(strings.ReplaceAll(name, `"`, `""`))
	sb.builder.WriteByte('"')
	return sb
}

// WriteIdentifierList writes a comma separated list of quoted identifiers
func (sb *SQLBuilder) WriteIdentifierList(names []string) *SQLBuilder {
	for i, name := range names {
		if i > 0 {
			sb.builder.WriteString(", ")
		}
		sb.WriteIdentifier(name)
	}
	return sb
}

// WritePlaceholders writes n comma separated bind placeholders
func (sb *SQLBuilder) WritePlaceholders(n int) *SQLBuilder {
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.builder.WriteString(", ")
		}
		sb.builder.WriteByte('?')
	}
	return sb
}

// String returns the built SQL statement
func (sb *SQLBuilder) String() string {
	return sb.builder.String()
}

// Close releases the builder back to the pool
func (sb *SQLBuilder) Close() {
	if sb.builder != nil {
		PutBuilder(sb.builder, sb.size)
		sb.builder = nil
	}
}

// ValueToString converts a cell value to its text form without going through fmt.
// Floats use the shortest representation that parses back to the same value.
func ValueToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case []byte:
		return string(v)
	default:
		return Sprintf("%v", value)
	}
}
