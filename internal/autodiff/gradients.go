package autodiff

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/tapegrad/internal/tensor"
)

// Gradients maps tensor ids to accumulated gradients, the result of one
// backward pass. Each gradient has the shape of the tensor it belongs to.
//
// An id with no entry was not connected to the seeded output (a dead branch
// or a value that never met the tape). That is a valid result meaning zero,
// not an error.
type Gradients struct {
	grads map[tensor.UniqueID]*tensor.RawTensor
}

func newGradients() *Gradients {
	return &Gradients{grads: make(map[tensor.UniqueID]*tensor.RawTensor)}
}

// accumulate adds g into the entry for id. Fan-out contributions are summed,
// never overwritten.
func (g *Gradients) accumulate(b tensor.Backend, id tensor.UniqueID, grad *tensor.RawTensor) error {
	existing, ok := g.grads[id]
	if !ok {
		g.grads[id] = grad
		return nil
	}
	if err := b.Accumulate(existing, grad); err != nil {
		return errors.Wrapf(err, "accumulate gradient %s", id)
	}
	return nil
}

// Raw returns the gradient for id, or nil if it has none.
func (g *Gradients) Raw(id tensor.UniqueID) *tensor.RawTensor {
	return g.grads[id]
}

// Require returns the gradient for id or an error wrapping ErrMissingGradient.
func (g *Gradients) Require(id tensor.UniqueID) (*tensor.RawTensor, error) {
	r, ok := g.grads[id]
	if !ok {
		return nil, errors.Wrapf(tensor.ErrMissingGradient, "no gradient for %s", id)
	}
	return r, nil
}

// Len returns the number of ids with a gradient.
func (g *Gradients) Len() int {
	return len(g.grads)
}

// IDs returns every id with a gradient in ascending order.
func (g *Gradients) IDs() []tensor.UniqueID {
	ids := make([]tensor.UniqueID, 0, len(g.grads))
	for id := range g.grads {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// GradOf returns the gradient of t as an untracked tensor on t's backend.
// ok is false when t received no gradient.
//
// Example:
//
//	grads, _ := autodiff.Backward(loss)
//	dw, ok := autodiff.GradOf(grads, w)
func GradOf[T tensor.DType, B tensor.Backend](g *Gradients, t *Tensor[T, B]) (grad *Tensor[T, B], ok bool) {
	r, ok := g.grads[t.id]
	if !ok {
		return nil, false
	}
	return newTensor[T](r.Clone(), t.backend, nil), true
}
