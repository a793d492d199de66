package autodiff

import (
	"github.com/born-ml/tapegrad/internal/autodiff/ops"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// broadcastOperands resolves the broadcast shape of x and y and returns
// both operands materialized at that shape. Operands already at the target
// shape are returned as shared clones. Callers own both results.
//
// Example:
//
//	x: (3,), y: (1,) → shape (3,), xe = x, ye = [y0, y0, y0]
func broadcastOperands(op string, b tensor.Backend, x, y *tensor.RawTensor) (xe, ye *tensor.RawTensor, shape tensor.Shape, err error) {
	shape, _, err = tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		return nil, nil, nil, tensor.NewShapeMismatch(op, x.Shape(), y.Shape())
	}

	xe, err = ops.Expand(b, x, shape)
	if err != nil {
		return nil, nil, nil, err
	}
	ye, err = ops.Expand(b, y, shape)
	if err != nil {
		xe.Release()
		return nil, nil, nil, err
	}
	return xe, ye, shape, nil
}
