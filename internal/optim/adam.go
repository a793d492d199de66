package optim

import (
	"math"

	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/nn"
	"github.com/born-ml/tapegrad/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam[T tensor.DType, B tensor.Backend] struct {
	params []*nn.Parameter[T, B]
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int                     // Timestep for bias correction
	m      map[tensor.UniqueID][]T // First moment estimates
	v      map[tensor.UniqueID][]T // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer, filling unset hyperparameters with
// their defaults.
func NewAdam[T tensor.DType, B tensor.Backend](params []*nn.Parameter[T, B], config AdamConfig) *Adam[T, B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[T, B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[tensor.UniqueID][]T),
		v:      make(map[tensor.UniqueID][]T),
	}
}

// Step performs a single optimization step. As with SGD, gradients are
// validated before any parameter is written.
func (a *Adam[T, B]) Step(grads *autodiff.Gradients) error {
	updates := make([][]T, len(a.params))
	for i, param := range a.params {
		g, ok, err := gradientFor(param, grads)
		if err != nil {
			return err
		}
		if ok {
			updates[i] = g
		}
	}

	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))
	beta1, beta2 := a.beta1, a.beta2

	for i, param := range a.params {
		g := updates[i]
		if g == nil {
			continue
		}
		id := param.ID()
		m, ok := a.m[id]
		if !ok {
			m = make([]T, len(g))
			a.m[id] = m
			a.v[id] = make([]T, len(g))
		}
		v := a.v[id]

		tensor.MutateValues(param.Tensor().Raw(), func(p []T) {
			for j := range p {
				gj := float64(g[j])
				mj := beta1*float64(m[j]) + (1-beta1)*gj
				vj := beta2*float64(v[j]) + (1-beta2)*gj*gj
				m[j], v[j] = T(mj), T(vj)

				mHat := mj / bc1
				vHat := vj / bc2
				p[j] -= T(a.lr * mHat / (math.Sqrt(vHat) + a.eps))
			}
		})
	}
	return nil
}

// GetLR returns the current learning rate.
func (a *Adam[T, B]) GetLR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam[T, B]) SetLR(lr float64) {
	a.lr = lr
}

// GetTimestep returns the number of steps taken so far.
func (a *Adam[T, B]) GetTimestep() int {
	return a.t
}
