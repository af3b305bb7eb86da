package strings

import (
	"testing"
)

func TestBuilder(t *testing.T) {
	builder := NewBuilder(32)

	builder.WriteString("hello")
	builder.WriteByte(' ')
	builder.WriteString("world")

	if result := builder.String(); result != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", result)
	}
	if builder.Len() != 11 {
		t.Errorf("expected length 11, got %d", builder.Len())
	}

	builder.Reset()
	if builder.Len() != 0 {
		t.Errorf("expected length 0 after reset, got %d", builder.Len())
	}
}

func TestPooledBuilderIsReset(t *testing.T) {
	b := GetBuilder(Small)
	b.WriteString("dirty")
	PutBuilder(b, Small)

	again := GetBuilder(Small)
	defer PutBuilder(again, Small)
	if again.Len() != 0 {
		t.Errorf("expected reset builder, got length %d", again.Len())
	}
}

func TestSprintf(t *testing.T) {
	if got := Sprintf("%s>%d", "Age", 30); got != "Age>30" {
		t.Errorf("unexpected Sprintf result %q", got)
	}
	if got := Sprintf("plain"); got != "plain" {
		t.Errorf("unexpected Sprintf result %q", got)
	}
}

func TestJoinPooled(t *testing.T) {
	tests := []struct {
		parts    []string
		expected string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b", "c"}, "a and b and c"},
	}

	for _, test := range tests {
		if got := JoinPooled(test.parts, " and "); got != test.expected {
			t.Errorf("JoinPooled(%v) = %q, expected %q", test.parts, got, test.expected)
		}
	}
}

func TestSQLBuilder(t *testing.T) {
	sb := NewSQLBuilder(64)
	defer sb.Close()

	sb.WriteQuery("INSERT INTO ").
		WriteIdentifier(`we"ird`).
		WriteQuery(" (").
		WriteIdentifierList([]string{"Sample", "Age"}).
		WriteQuery(") VALUES (").
		WritePlaceholders(2).
		WriteQuery(") -- ").
		WriteStringLiteral("it's")

	expected := `INSERT INTO "we""ird" ("Sample", "Age") VALUES (?, ?) -- 'it''s'`
	if sb.String() != expected {
		t.Errorf("expected %s, got %s", expected, sb.String())
	}
}

func TestValueToString(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected string
	}{
		{nil, ""},
		{"M", "M"},
		{int64(-7), "-7"},
		{3.5, "3.5"},
		{0.1, "0.1"},
		{1e21, "1e+21"},
		{true, "True"},
		{false, "False"},
		{[]byte("raw"), "raw"},
	}

	for _, test := range tests {
		if got := ValueToString(test.value); got != test.expected {
			t.Errorf("ValueToString(%v) = %q, expected %q", test.value, got, test.expected)
		}
	}
}
