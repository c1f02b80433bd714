package checkpoint

import (
	"strconv"
	"strings"
)

// Kind is the type of a token value.
type Kind int

const (
	KindInt Kind = iota
	KindString
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a single token value: either an int64 or a string.
type Value struct {
	kind Kind
	i    int64
	s    string
}

// IntValue returns an integer value.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// StringValue returns a string value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// Kind returns the value type.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer and true if v holds one.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Str returns the string and true if v holds one.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// String renders the value for logs.
func (v Value) String() string {
	if v.kind == KindInt {
		return strconv.FormatInt(v.i, 10)
	}
	return strconv.Quote(v.s)
}

// Field is a key/value pair of a token.
type Field struct {
	Key   string
	Value Value
}

// Int creates an integer field.
func Int(key string, v int64) Field { return Field{Key: key, Value: IntValue(v)} }

// Str creates a string field.
func Str(key, v string) Field { return Field{Key: key, Value: StringValue(v)} }

// Token is an immutable snapshot of progress. The zero Token has no fields.
// Producing a "next" token always allocates a new one; a Token may be shared
// between goroutines without synchronization.
type Token struct {
	fields []Field
}

// NewToken builds a token from fields in the given order. A repeated key keeps
// its first position and takes its last value.
func NewToken(fields ...Field) Token {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if i := indexOf(out, f.Key); i >= 0 {
			out[i].Value = f.Value
			continue
		}
		out = append(out, f)
	}
	return Token{fields: out}
}

func indexOf(fields []Field, key string) int {
	for i, f := range fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

// WithUpdated returns a copy of t with key set to v. Absent keys are appended.
func (t Token) WithUpdated(key string, v Value) Token {
	out := make([]Field, len(t.fields), len(t.fields)+1)
	copy(out, t.fields)
	if i := indexOf(out, key); i >= 0 {
		out[i].Value = v
	} else {
		out = append(out, Field{Key: key, Value: v})
	}
	return Token{fields: out}
}

// WithInt is WithUpdated for an integer value.
func (t Token) WithInt(key string, v int64) Token { return t.WithUpdated(key, IntValue(v)) }

// WithString is WithUpdated for a string value.
func (t Token) WithString(key, v string) Token { return t.WithUpdated(key, StringValue(v)) }

// Get returns the value stored under key.
func (t Token) Get(key string) (Value, bool) {
	if i := indexOf(t.fields, key); i >= 0 {
		return t.fields[i].Value, true
	}
	return Value{}, false
}

// Int returns the integer stored under key. It reports false when the key is
// missing or holds a string.
func (t Token) Int(key string) (int64, bool) {
	v, ok := t.Get(key)
	if !ok {
		return 0, false
	}
	return v.Int()
}

// Str returns the string stored under key.
func (t Token) Str(key string) (string, bool) {
	v, ok := t.Get(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

// Fields returns a copy of the fields in order.
func (t Token) Fields() []Field {
	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Keys returns the keys in order.
func (t Token) Keys() []string {
	keys := make([]string, len(t.fields))
	for i, f := range t.fields {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of fields.
func (t Token) Len() int { return len(t.fields) }

// IsZero reports whether t has no fields.
func (t Token) IsZero() bool { return len(t.fields) == 0 }

// Equal reports whether both tokens hold the same keys in the same order with
// equal values.
func (t Token) Equal(o Token) bool {
	if len(t.fields) != len(o.fields) {
		return false
	}
	for i := range t.fields {
		if t.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

// String renders the token for logs, e.g. {batch:"b-7" offset:42}.
// It is not the wire format; use a Codec for that.
func (t Token) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range t.fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.Key)
		b.WriteByte(':')
		b.WriteString(f.Value.String())
	}
	b.WriteByte('}')
	return b.String()
}
