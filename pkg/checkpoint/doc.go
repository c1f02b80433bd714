// Package checkpoint provides resumable progress tokens and their wire codec.
//
// A [Token] is an immutable, ordered set of key/value pairs describing where a
// long-running operation currently is (a batch number, a byte offset, a cursor).
// A [Codec] turns a token into a compact string that can be stored anywhere and
// parses it back, rejecting anything that does not match its [Schema].
//
// # Usage
//
// Declare the schema once:
//
//	var codec = checkpoint.NewCodec(checkpoint.NewSchema(1,
//	    checkpoint.StringField("batch"),
//	    checkpoint.IntField("offset"),
//	))
//
//	tok := checkpoint.NewToken(checkpoint.Str("batch", "b-7"), checkpoint.Int("offset", 0))
//	tok = tok.WithInt("offset", 42)
//
//	s := codec.Encode(tok) // "v=1;batch=b-7;offset=42"
//
//	tok, err := codec.Decode(s)
//	if errors.Is(err, checkpoint.ErrInvalidState) {
//	    // no valid resume point, start over
//	}
//
// # Wire Format
//
// Pairs are written as key=value and joined with ';' in schema order. Integers
// use base-10 formatting independent of locale; decoding accepts only that
// canonical form ("+20" and "0020" are rejected). Strings are query-escaped, so
// separators inside values never reach the grammar. A schema with a non-zero
// version prepends the reserved pair v=<version>; decoding a string written
// under another version fails.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package checkpoint
