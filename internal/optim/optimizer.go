// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers read gradients from the map Backward returns, keyed by each
// parameter's id, and update parameter storage in place.
//
// Example usage:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.05})
//
//	for epoch := range epochs {
//	    tape := autodiff.NewTape()
//	    out, _ := model.TryForward(input.Track(tape))
//	    grads, _ := autodiff.Backward(out.Square().Mean())
//	    if err := optimizer.Step(grads); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/nn"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies one update to every parameter that has a gradient.
	// Parameters absent from grads did not take part in the forward pass
	// and are left untouched.
	Step(grads *autodiff.Gradients) error

	// GetLR returns the current learning rate.
	GetLR() float64
}

// gradientFor returns the gradient values of param, or ok == false when
// grads holds none. A gradient whose shape differs from the parameter's is
// a ShapeMismatch.
func gradientFor[T tensor.DType, B tensor.Backend](param *nn.Parameter[T, B], grads *autodiff.Gradients) (g []T, ok bool, err error) {
	raw := grads.Raw(param.ID())
	if raw == nil {
		return nil, false, nil
	}
	if err := tensor.CheckDTypes("optim", param.Tensor().Raw(), raw); err != nil {
		return nil, false, err
	}
	if !raw.Shape().Equal(param.Tensor().Shape()) {
		return nil, false, tensor.NewShapeMismatch("optim "+param.Name(), param.Tensor().Shape(), raw.Shape())
	}
	return tensor.Values[T](raw), true, nil
}
