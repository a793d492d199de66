package main

import (
	"context"
	"math"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/born-ml/tapegrad/autodiff"
	"github.com/born-ml/tapegrad/backend/cpu"
	"github.com/born-ml/tapegrad/nn"
	"github.com/born-ml/tapegrad/optim"
	"github.com/born-ml/tapegrad/tensor"
)

type runOptions struct {
	scenario string
	seed     int64
	steps    int
	check    bool
	dumpPath string
}

func run[T tensor.DType](ctx context.Context, b *cpu.Backend, opts runOptions) error {
	rng := rand.New(rand.NewSource(opts.seed))
	if opts.scenario == "train" {
		return runTrain[T](b, rng, opts.steps)
	}

	sc, err := buildScenario[T](opts.scenario, b, rng)
	if err != nil {
		return err
	}

	tape := autodiff.NewTape()
	xs, err := sc.leaves(b, tape, -1, 0, 0)
	if err != nil {
		return err
	}
	loss, err := sc.loss(xs)
	if err != nil {
		return errors.Wrap(err, "forward")
	}
	value, err := loss.Item()
	if err != nil {
		return errors.Wrap(err, "loss must be a scalar")
	}
	log.Info().
		Str("scenario", opts.scenario).
		Str("dtype", tensor.DataTypeOf[T]().String()).
		Int("entries", tape.Len()).
		Float64("loss", float64(value)).
		Msg("Forward pass recorded")

	grads, err := autodiff.BackwardContext(ctx, loss, nil)
	if err != nil {
		return errors.Wrap(err, "backward")
	}

	if opts.dumpPath != "" {
		if err := writeDump(tape, opts.dumpPath); err != nil {
			return err
		}
		log.Info().Str("path", opts.dumpPath).Msg("Tape dump written")
	}

	for i, x := range xs {
		g, ok := autodiff.GradOf(grads, x)
		if !ok {
			log.Warn().Str("input", sc.inputs[i].name).Msg("No gradient")
			continue
		}
		log.Info().
			Str("input", sc.inputs[i].name).
			Stringer("shape", g.Shape()).
			Interface("grad", g.Data()).
			Msg("Gradient")
	}

	if !opts.check {
		return nil
	}
	return checkGradients(sc, b, xs, grads)
}

func writeDump(tape *autodiff.Tape, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create dump")
	}
	if err := tape.Dump(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write dump")
	}
	return errors.Wrap(f.Close(), "close dump")
}

// checkGradients compares every analytic gradient element against a
// central finite difference of the untracked loss.
func checkGradients[T tensor.DType](sc scenario[T], b *cpu.Backend, xs []*tensorOf[T], grads *autodiff.Gradients) error {
	h, tol := 1e-6, 1e-5
	if tensor.DataTypeOf[T]() == tensor.Float32 {
		h, tol = 1e-2, 2e-2
	}

	eval := func(override, idx int, delta float64) (float64, error) {
		leaves, err := sc.leaves(b, nil, override, idx, delta)
		if err != nil {
			return 0, err
		}
		loss, err := sc.loss(leaves)
		if err != nil {
			return 0, err
		}
		v, err := loss.Item()
		return float64(v), err
	}

	var worst float64
	for i, in := range sc.inputs {
		g, ok := autodiff.GradOf(grads, xs[i])
		if !ok {
			return errors.Wrapf(tensor.ErrMissingGradient, "input %s", in.name)
		}
		analytic := g.Data()
		for j := range in.data {
			plus, err := eval(i, j, h)
			if err != nil {
				return err
			}
			minus, err := eval(i, j, -h)
			if err != nil {
				return err
			}
			numeric := (plus - minus) / (2 * h)
			diff := math.Abs(numeric-float64(analytic[j])) / math.Max(1, math.Abs(numeric))
			worst = math.Max(worst, diff)
			if diff > tol {
				return errors.Errorf("gradient check failed for %s[%d]: analytic %g, numeric %g",
					in.name, j, float64(analytic[j]), numeric)
			}
		}
	}
	log.Info().Float64("max_rel_error", worst).Float64("tolerance", tol).Msg("Gradient check passed")
	return nil
}

// runTrain fits y = sin(x) on [-2, 2] with a small tanh network.
func runTrain[T tensor.DType](b *cpu.Backend, rng *rand.Rand, steps int) error {
	const n = 32
	xs := make([]T, n)
	ys := make([]T, n)
	for i := range xs {
		x := -2 + 4*float64(i)/float64(n-1)
		xs[i], ys[i] = T(x), T(math.Sin(x))
	}
	x, err := autodiff.FromSlice(xs, tensor.Shape{n, 1}, b)
	if err != nil {
		return err
	}
	y, err := autodiff.FromSlice(ys, tensor.Shape{n, 1}, b)
	if err != nil {
		return err
	}

	l1, err := nn.NewLinear[T](1, 16, rng, b)
	if err != nil {
		return err
	}
	l2, err := nn.NewLinear[T](16, 1, rng, b)
	if err != nil {
		return err
	}
	model := nn.NewSequential[T, *cpu.Backend](l1, nn.Tanh[T, *cpu.Backend]{}, l2)
	opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.02})

	var first, last float64
	for step := 0; step < steps; step++ {
		tape := autodiff.NewTape()
		pred, err := model.TryForward(x.Track(tape))
		if err != nil {
			return err
		}
		diff, err := pred.TrySub(y)
		if err != nil {
			return err
		}
		if diff, err = diff.TrySquare(); err != nil {
			return err
		}
		loss, err := diff.TryMean()
		if err != nil {
			return err
		}
		v, err := loss.Item()
		if err != nil {
			return err
		}
		last = float64(v)
		if step == 0 {
			first = last
		}

		grads, err := autodiff.Backward(loss)
		if err != nil {
			return err
		}
		if err := opt.Step(grads); err != nil {
			return errors.Wrapf(err, "step %d", step)
		}
		if step%20 == 0 {
			log.Info().Int("step", step).Float64("loss", last).Msg("Training")
		}
	}

	log.Info().Float64("first", first).Float64("last", last).Int("steps", steps).Msg("Training done")
	if steps > 1 && last >= first {
		return errors.Errorf("loss did not decrease: %g -> %g", first, last)
	}
	return nil
}
