package checkpoint

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	pairSep = ";"
	kvSep   = "="

	// VersionKey is the reserved key carrying the schema version.
	VersionKey = "v"
)

// FieldSpec declares one field of a schema.
type FieldSpec struct {
	Key  string
	Kind Kind
}

// IntField declares an integer field.
func IntField(key string) FieldSpec { return FieldSpec{Key: key, Kind: KindInt} }

// StringField declares a string field.
func StringField(key string) FieldSpec { return FieldSpec{Key: key, Kind: KindString} }

// Schema is the fixed, ordered field layout a Codec accepts.
type Schema struct {
	version int
	fields  []FieldSpec
}

// NewSchema returns a schema. Version 0 means unversioned: no version pair is
// written or expected. It panics on an empty, malformed, reserved or repeated
// key, since a schema is declared once at init time.
// An unversioned schema must declare at least one field.
func NewSchema(version int, fields ...FieldSpec) Schema {
	if version < 0 {
		panic(fmt.Sprintf("checkpoint: negative schema version %d", version))
	}
	// an unversioned schema without fields would encode to "", which never decodes
	if version == 0 && len(fields) == 0 {
		panic("checkpoint: unversioned schema needs at least one field")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !validKey(f.Key) {
			panic(fmt.Sprintf("checkpoint: invalid schema key %q", f.Key))
		}
		if f.Key == VersionKey {
			panic(fmt.Sprintf("checkpoint: schema key %q is reserved", f.Key))
		}
		if seen[f.Key] {
			panic(fmt.Sprintf("checkpoint: duplicate schema key %q", f.Key))
		}
		seen[f.Key] = true
	}
	out := make([]FieldSpec, len(fields))
	copy(out, fields)
	return Schema{version: version, fields: out}
}

// Version returns the schema version.
func (s Schema) Version() int { return s.version }

// Fields returns a copy of the field specs.
func (s Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Validate reports whether t holds exactly the schema fields with matching
// kinds. Field order in t does not matter; Encode writes schema order.
// Tokens that pass round-trip through the codec.
func (s Schema) Validate(t Token) error {
	if len(t.fields) != len(s.fields) {
		return fmt.Errorf("checkpoint: token has %d fields, schema wants %d", len(t.fields), len(s.fields))
	}
	for _, spec := range s.fields {
		v, ok := t.Get(spec.Key)
		if !ok {
			return fmt.Errorf("checkpoint: token has no field %q", spec.Key)
		}
		if v.Kind() != spec.Kind {
			return fmt.Errorf("checkpoint: field %q is %s, schema wants %s", spec.Key, v.Kind(), spec.Kind)
		}
	}
	return nil
}

// Zero returns a valid token with every field at its zero value.
func (s Schema) Zero() Token {
	fields := make([]Field, len(s.fields))
	for i, spec := range s.fields {
		fields[i] = Field{Key: spec.Key, Value: Value{kind: spec.Kind}}
	}
	return Token{fields: fields}
}

func validKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

// Codec converts tokens to and from their string form under a schema.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	schema Schema
}

// NewCodec returns a codec for the schema.
func NewCodec(schema Schema) *Codec {
	return &Codec{schema: schema}
}

// Schema returns the codec schema.
func (c *Codec) Schema() Schema { return c.schema }

// Encode returns the string form of t. Fields are written in schema order and
// looked up in t by key, so the output does not depend on how t was built.
// Keys outside the schema are dropped, and a schema field that t lacks or
// holds with the other kind is written as that kind's zero value. Encode never
// fails; use Schema.Validate to reject such tokens first.
func (c *Codec) Encode(t Token) string {
	var b strings.Builder
	if c.schema.version > 0 {
		b.WriteString(VersionKey)
		b.WriteString(kvSep)
		b.WriteString(strconv.Itoa(c.schema.version))
	}
	for _, spec := range c.schema.fields {
		if b.Len() > 0 {
			b.WriteString(pairSep)
		}
		b.WriteString(spec.Key)
		b.WriteString(kvSep)

		v, ok := t.Get(spec.Key)
		if !ok || v.kind != spec.Kind {
			v = Value{kind: spec.Kind}
		}
		if v.kind == KindInt {
			b.WriteString(strconv.FormatInt(v.i, 10))
		} else {
			b.WriteString(url.QueryEscape(v.s))
		}
	}
	return b.String()
}

// Decode parses s into a token. Any mismatch with the schema returns an
// *InvalidStateError naming the offending part; no partial token is returned.
func (c *Codec) Decode(s string) (Token, error) {
	if s == "" {
		return Token{}, invalid(s, "", "empty state", nil)
	}

	pairs := strings.Split(s, pairSep)
	for _, p := range pairs {
		if p == "" {
			return Token{}, invalid(s, s, "empty field", nil)
		}
	}

	want := len(c.schema.fields)
	if c.schema.version > 0 {
		want++
	}
	if len(pairs) != want {
		return Token{}, invalid(s, s, fmt.Sprintf("got %d fields, want %d", len(pairs), want), nil)
	}

	if c.schema.version > 0 {
		if err := c.checkVersion(s, pairs[0]); err != nil {
			return Token{}, err
		}
		pairs = pairs[1:]
	}

	fields := make([]Field, len(pairs))
	for i, p := range pairs {
		spec := c.schema.fields[i]
		key, raw, ok := strings.Cut(p, kvSep)
		if !ok {
			return Token{}, invalid(s, p, "missing '='", nil)
		}
		if key != spec.Key {
			return Token{}, invalid(s, p, fmt.Sprintf("unexpected key %q, want %q", key, spec.Key), nil)
		}
		v, err := parseValue(spec.Kind, raw)
		if err != nil {
			return Token{}, invalid(s, p, fmt.Sprintf("field %q is not a valid %s", key, spec.Kind), err)
		}
		fields[i] = Field{Key: key, Value: v}
	}

	return Token{fields: fields}, nil
}

func (c *Codec) checkVersion(s, pair string) error {
	key, raw, ok := strings.Cut(pair, kvSep)
	if !ok || key != VersionKey {
		return invalid(s, pair, "missing schema version", nil)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return invalid(s, pair, "schema version is not a number", err)
	}
	if v != c.schema.version {
		return invalid(s, pair, fmt.Sprintf("schema version %d, want %d", v, c.schema.version), nil)
	}
	return nil
}

func parseValue(kind Kind, raw string) (Value, error) {
	switch kind {
	case KindInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, err
		}
		// only the form Encode writes: no sign prefix, no leading zeros
		if strconv.FormatInt(i, 10) != raw {
			return Value{}, fmt.Errorf("non-canonical integer %q", raw)
		}
		return IntValue(i), nil
	case KindString:
		str, err := url.QueryUnescape(raw)
		if err != nil {
			return Value{}, err
		}
		return StringValue(str), nil
	default:
		return Value{}, fmt.Errorf("unsupported kind %d", kind)
	}
}
