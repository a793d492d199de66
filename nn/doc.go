// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers built on the autodiff tensors.
//
// Layers implement Module via a fallible TryForward. Parameters are plain
// untracked tensors; they still receive gradients from any recorded op
// that reads them.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	lstm, _ := nn.NewLSTM[float32](8, 16, rng, backend)
//	state, _ := lstm.InitialState(0)
//	state, err := lstm.TryForward(nn.LSTMInput[float32, *cpu.Backend]{X: x, State: state})
package nn
