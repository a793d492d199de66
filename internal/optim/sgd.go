package optim

import (
	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/nn"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD[T tensor.DType, B tensor.Backend] struct {
	params     []*nn.Parameter[T, B]
	lr         float64
	momentum   float64
	velocities map[tensor.UniqueID][]T
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD[T tensor.DType, B tensor.Backend](params []*nn.Parameter[T, B], config SGDConfig) *SGD[T, B] {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD[T, B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[tensor.UniqueID][]T),
	}
}

// Step performs a single optimization step.
//
// All gradients are validated before any parameter is written, so a
// failed Step leaves every parameter unchanged.
func (s *SGD[T, B]) Step(grads *autodiff.Gradients) error {
	updates := make([][]T, len(s.params))
	for i, param := range s.params {
		g, ok, err := gradientFor(param, grads)
		if err != nil {
			return err
		}
		if ok {
			updates[i] = g
		}
	}

	lr, momentum := T(s.lr), T(s.momentum)
	for i, param := range s.params {
		g := updates[i]
		if g == nil {
			continue
		}
		if s.momentum != 0 {
			v, exists := s.velocities[param.ID()]
			if !exists {
				v = make([]T, len(g))
				s.velocities[param.ID()] = v
			}
			for j := range v {
				v[j] = momentum*v[j] + g[j]
			}
			g = v
		}

		tensor.MutateValues(param.Tensor().Raw(), func(p []T) {
			for j := range p {
				p[j] -= lr * g[j]
			}
		})
	}
	return nil
}

// GetLR returns the current learning rate.
func (s *SGD[T, B]) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling during training.
func (s *SGD[T, B]) SetLR(lr float64) {
	s.lr = lr
}
