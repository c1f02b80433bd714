package batchjob

import (
	"fmt"

	"github.com/bft-labs/sigresume/pkg/checkpoint"
)

// Checkpoint keys.
const (
	KeyBatch   = "batch"
	KeyIn      = "in"
	KeyOut     = "out"
	KeyRecords = "records"
)

// Schema describes the job's checkpoint. Bump the version when a field changes
// meaning; older saved state then fails to decode and the job starts over.
var Schema = checkpoint.NewSchema(1,
	checkpoint.IntField(KeyBatch),
	checkpoint.IntField(KeyIn),
	checkpoint.IntField(KeyOut),
	checkpoint.IntField(KeyRecords),
)

// Codec encodes and decodes job checkpoints.
var Codec = checkpoint.NewCodec(Schema)

// Position is how far the job got after its last committed batch.
type Position struct {
	Batch   int64 // committed batches
	In      int64 // input bytes consumed
	Out     int64 // output bytes durably written
	Records int64 // records written
}

// Token converts p to a checkpoint token.
func (p Position) Token() checkpoint.Token {
	return checkpoint.NewToken(
		checkpoint.Int(KeyBatch, p.Batch),
		checkpoint.Int(KeyIn, p.In),
		checkpoint.Int(KeyOut, p.Out),
		checkpoint.Int(KeyRecords, p.Records),
	)
}

// IsZero reports whether p is the start of the job.
func (p Position) IsZero() bool { return p == Position{} }

// PositionFromToken reads a Position from a decoded checkpoint.
func PositionFromToken(t checkpoint.Token) (Position, error) {
	if err := Schema.Validate(t); err != nil {
		return Position{}, err
	}
	var p Position
	p.Batch, _ = t.Int(KeyBatch)
	p.In, _ = t.Int(KeyIn)
	p.Out, _ = t.Int(KeyOut)
	p.Records, _ = t.Int(KeyRecords)

	if p.Batch < 0 || p.In < 0 || p.Out < 0 || p.Records < 0 {
		return Position{}, fmt.Errorf("batchjob: negative position %s", t)
	}
	return p, nil
}
