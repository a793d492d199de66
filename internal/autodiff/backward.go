package autodiff

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/born-ml/tapegrad/internal/autodiff/ops"
	"github.com/born-ml/tapegrad/internal/tensor"
)

var tracer trace.Tracer = otel.Tracer("github.com/born-ml/tapegrad/internal/autodiff")

// Backward seeds loss with ones and replays its tape in reverse.
//
// Example:
//
//	tape := autodiff.NewTape()
//	x := autodiff.Must(autodiff.FromSlice([]float32{2}, tensor.Shape{1}, backend)).Track(tape)
//	y := x.Mul(x) // y = x²
//	grads, err := autodiff.Backward(y)
//	dx, _ := autodiff.GradOf(grads, x) // dy/dx = 2x = 4
func Backward[T tensor.DType, B tensor.Backend](loss *Tensor[T, B]) (*Gradients, error) {
	return BackwardContext(context.Background(), loss, nil)
}

// BackwardWithSeed replays loss's tape starting from an explicit seed
// gradient, which must have loss's shape.
func BackwardWithSeed[T tensor.DType, B tensor.Backend](loss, seed *Tensor[T, B]) (*Gradients, error) {
	return BackwardContext(context.Background(), loss, seed)
}

// BackwardContext is Backward with a context for tracing. A nil seed means
// all ones.
//
// Algorithm:
//  1. Validate the seed, then mark the tape Consumed
//  2. Store the seed under loss's id
//  3. Walk entries in strict reverse recording order; skip an entry if
//     none of its outputs has a gradient (dead branch)
//  4. Apply the entry's derivative rule and add each contribution into
//     the entry's input ids
//
// Reverse order guarantees an id's gradient is complete before the entry
// that produced it is replayed. A second call on the same tape fails with
// ErrTapeMisuse.
func BackwardContext[T tensor.DType, B tensor.Backend](ctx context.Context, loss, seed *Tensor[T, B]) (*Gradients, error) {
	_, span := tracer.Start(ctx, "autodiff.Backward", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	grads, err := backward(loss, seed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("entries", loss.tape.Len()),
		attribute.Int("gradients", grads.Len()),
	)
	return grads, nil
}

func backward[T tensor.DType, B tensor.Backend](loss, seed *Tensor[T, B]) (*Gradients, error) {
	tape := loss.tape
	if tape == nil {
		tapeMisuse.Inc()
		return nil, errors.Wrap(tensor.ErrTapeMisuse, "backward: loss is not tracked")
	}

	b := loss.backend
	seedRaw, err := seedGradient(loss, seed)
	if err != nil {
		return nil, err
	}

	records, err := tape.consume()
	if err != nil {
		seedRaw.Release()
		return nil, err
	}
	start := time.Now()
	defer func() {
		for i := range records {
			records[i].Release()
		}
	}()

	grads := newGradients()
	grads.grads[loss.id] = seedRaw

	replayed := 0
	for i := len(records) - 1; i >= 0; i-- {
		rec := &records[i]

		gradOuts := make([]*tensor.RawTensor, len(rec.Outputs))
		live := false
		for j, id := range rec.Outputs {
			gradOuts[j] = grads.grads[id]
			live = live || gradOuts[j] != nil
		}
		if !live {
			continue
		}

		gradIns, err := ops.Backward(b, rec, gradOuts)
		if err != nil {
			return nil, errors.Wrapf(err, "backward %s (entry %d)", rec.Name(), i)
		}
		for j, id := range rec.Inputs {
			if err := grads.accumulate(b, id, gradIns[j]); err != nil {
				return nil, err
			}
		}
		replayed++
	}

	elapsed := time.Since(start)
	backwardDuration.Observe(elapsed.Seconds())
	log.Debug().
		Int("entries", len(records)).
		Int("replayed", replayed).
		Int("gradients", grads.Len()).
		Dur("elapsed", elapsed).
		Msg("autodiff: tape consumed")
	return grads, nil
}

// seedGradient returns a private copy of seed, or ones at loss's shape.
func seedGradient[T tensor.DType, B tensor.Backend](loss, seed *Tensor[T, B]) (*tensor.RawTensor, error) {
	if seed == nil {
		ones, err := Ones[T](loss.Shape(), loss.backend)
		if err != nil {
			return nil, err
		}
		return ones.raw, nil
	}
	if !seed.Shape().Equal(loss.Shape()) {
		return nil, tensor.NewShapeMismatch("backward seed", loss.Shape(), seed.Shape())
	}
	return seed.raw.Clone(), nil
}
