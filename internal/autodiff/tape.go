package autodiff

import (
	"io"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/born-ml/tapegrad/internal/autodiff/ops"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// TapeState is the lifecycle stage of a Tape.
type TapeState int32

// Tape lifecycle: Empty → Recording → Consumed.
const (
	TapeEmpty TapeState = iota
	TapeRecording
	TapeConsumed
)

func (s TapeState) String() string {
	switch s {
	case TapeEmpty:
		return "empty"
	case TapeRecording:
		return "recording"
	case TapeConsumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// Tape records differentiable operations of one forward pass and is
// consumed by exactly one backward pass.
//
// Every tracked tensor carries a pointer to its tape; there is no ambient
// tape. The entry log is single-writer: record from one goroutine at a
// time. The state is atomic so misuse from a stale handle is detected.
//
// Usage:
//
//	tape := autodiff.NewTape()
//	x := autodiff.Must(autodiff.FromSlice([]float64{2}, tensor.Shape{1}, backend)).Track(tape)
//	y := x.Mul(x)
//	grads, err := autodiff.Backward(y)
type Tape struct {
	state   atomic.Int32
	records []ops.Record
}

// NewTape creates an empty tape.
func NewTape() *Tape {
	return &Tape{
		records: make([]ops.Record, 0, 64),
	}
}

// State returns the current lifecycle stage.
func (t *Tape) State() TapeState {
	return TapeState(t.state.Load())
}

// Len returns the number of recorded entries.
func (t *Tape) Len() int {
	return len(t.records)
}

// checkOpen fails with ErrTapeMisuse once the tape has been consumed.
func (t *Tape) checkOpen(op string) error {
	if t.State() == TapeConsumed {
		tapeMisuse.Inc()
		log.Warn().Str("op", op).Msg("autodiff: op on consumed tape")
		return errors.Wrapf(tensor.ErrTapeMisuse, "%s: tape already consumed", op)
	}
	return nil
}

// push appends rec. It never mutates the tape on failure.
func (t *Tape) push(rec ops.Record) error {
	if err := t.checkOpen(rec.Name()); err != nil {
		return err
	}
	t.records = append(t.records, rec)
	t.state.CompareAndSwap(int32(TapeEmpty), int32(TapeRecording))
	tapeRecords.WithLabelValues(rec.Kind.String()).Inc()
	return nil
}

// consume moves the tape to Consumed and hands its entries to the caller.
func (t *Tape) consume() ([]ops.Record, error) {
	for {
		s := t.state.Load()
		if TapeState(s) == TapeConsumed {
			tapeMisuse.Inc()
			log.Warn().Msg("autodiff: backward on consumed tape")
			return nil, errors.Wrap(tensor.ErrTapeMisuse, "backward: tape already consumed")
		}
		if t.state.CompareAndSwap(s, int32(TapeConsumed)) {
			return t.records, nil
		}
	}
}

// Reset drops all entries and returns the tape to Empty so it can record
// the next forward pass. Tensors still pointing at the tape become usable
// again, so callers typically re-Track fresh leaves instead.
func (t *Tape) Reset() {
	for i := range t.records {
		t.records[i].Release()
	}
	t.records = t.records[:0]
	t.state.Store(int32(TapeEmpty))
}

// TapeEntry is a read-only summary of one recorded operation.
type TapeEntry struct {
	Kind         string   `cbor:"kind"`
	Op           string   `cbor:"op"`
	Inputs       []uint64 `cbor:"inputs"`
	InputShapes  [][]int  `cbor:"input_shapes"`
	Outputs      []uint64 `cbor:"outputs"`
	OutputShapes [][]int  `cbor:"output_shapes"`
	Axes         []int    `cbor:"axes,omitempty"`
	Scalar       float64  `cbor:"scalar,omitempty"`
}

// Entries returns a summary of every entry in recording order.
func (t *Tape) Entries() []TapeEntry {
	out := make([]TapeEntry, len(t.records))
	for i := range t.records {
		r := &t.records[i]
		e := TapeEntry{
			Kind:         r.Kind.String(),
			Op:           r.Name(),
			Inputs:       idsToUint(r.Inputs),
			InputShapes:  shapesToInts(r.InputShapes),
			Outputs:      idsToUint(r.Outputs),
			OutputShapes: shapesToInts(r.OutputShapes),
			Axes:         append([]int(nil), r.Axes...),
		}
		if r.Kind == ops.KindUnary {
			e.Scalar = r.Unary.Scalar
		}
		out[i] = e
	}
	return out
}

type tapeSnapshot struct {
	State   string      `cbor:"state"`
	Entries []TapeEntry `cbor:"entries"`
}

// Dump writes a CBOR snapshot of the tape's state and entries to w.
func (t *Tape) Dump(w io.Writer) error {
	snap := tapeSnapshot{
		State:   t.State().String(),
		Entries: t.Entries(),
	}
	if err := cbor.NewEncoder(w).Encode(snap); err != nil {
		return errors.Wrap(err, "dump tape")
	}
	return nil
}

// DecodeDump reads a snapshot written by Dump.
func DecodeDump(r io.Reader) (state string, entries []TapeEntry, err error) {
	var snap tapeSnapshot
	if err := cbor.NewDecoder(r).Decode(&snap); err != nil {
		return "", nil, errors.Wrap(err, "decode tape dump")
	}
	return snap.State, snap.Entries, nil
}

func idsToUint(ids []tensor.UniqueID) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

func shapesToInts(shapes []tensor.Shape) [][]int {
	out := make([][]int, len(shapes))
	for i, s := range shapes {
		out[i] = append([]int{}, s...)
	}
	return out
}
