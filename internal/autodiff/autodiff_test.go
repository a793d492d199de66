package autodiff_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tapegrad/internal/autodiff"
	"github.com/born-ml/tapegrad/internal/backend/cpu"
	"github.com/born-ml/tapegrad/internal/tensor"
)

type tensor64 = autodiff.Tensor[float64, *cpu.CPUBackend]

func leaf(t *testing.T, b *cpu.CPUBackend, tape *autodiff.Tape, shape tensor.Shape, data ...float64) *tensor64 {
	t.Helper()
	x, err := autodiff.FromSlice(data, shape, b)
	require.NoError(t, err)
	if tape == nil {
		return x
	}
	return x.Track(tape)
}

func gradData(t *testing.T, grads *autodiff.Gradients, x *tensor64) []float64 {
	t.Helper()
	g, ok := autodiff.GradOf(grads, x)
	require.True(t, ok, "no gradient for %s", x)
	require.Equal(t, x.Shape(), g.Shape(), "gradient shape must equal input shape")
	return g.Data()
}

// TestFanOut_SameOp checks z = y + y with y = x accumulates dx = 2.
func TestFanOut_SameOp(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{1}, 3)

	y := x.Retaped()
	z := y.Add(y)

	grads, err := autodiff.Backward(z)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, gradData(t, grads, x))
	assert.Equal(t, x.ID(), y.ID())
}

// TestFanOut_DistinctOps checks contributions from different consumers are summed.
func TestFanOut_DistinctOps(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2}, 1, 2)

	a := x.MulScalar(2)
	c := x.Retaped().Square()
	z := a.Add(c).Sum()

	grads, err := autodiff.Backward(z)
	require.NoError(t, err)
	// d/dx (2x + x²) = 2 + 2x
	assert.Equal(t, []float64{4, 6}, gradData(t, grads, x))
}

// TestBroadcast_GradientShape checks (3,) + (1,) gives dy = [3], dx = [1, 1, 1].
func TestBroadcast_GradientShape(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{3}, 1, 2, 3)
	y := leaf(t, b, tape, tensor.Shape{1}, 10)

	z := x.Add(y)
	assert.Equal(t, []float64{11, 12, 13}, z.Data())

	seed := autodiff.Must(autodiff.Ones[float64](tensor.Shape{3}, b))
	grads, err := autodiff.BackwardWithSeed(z, seed)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 1}, gradData(t, grads, x))
	assert.Equal(t, []float64{3}, gradData(t, grads, y))
}

func TestBroadcast_LeadingAxes(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	w := leaf(t, b, tape, tensor.Shape{3, 1}, 1, 2, 3)

	// (2, 3) and (3, 1) disagree on the leading axis.
	_, err := x.TryMul(w)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)

	v := leaf(t, b, tape, tensor.Shape{3}, 1, 2, 3)
	z := x.Mul(v).Sum()

	grads, err := autodiff.Backward(z)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 1, 2, 3}, gradData(t, grads, x))
	assert.Equal(t, []float64{5, 7, 9}, gradData(t, grads, v))
}

// TestMinMax_Subgradient checks the half-weight convention at ties.
func TestMinMax_Subgradient(t *testing.T) {
	tests := []struct {
		name   string
		x, y   float64
		min    bool
		dx, dy float64
	}{
		{"min_tie", 2, 2, true, 0.5, 0.5},
		{"min_x_less", 1, 2, true, 1, 0},
		{"min_x_greater", 3, 2, true, 0, 1},
		{"max_tie", 2, 2, false, 0.5, 0.5},
		{"max_x_less", 1, 2, false, 0, 1},
		{"max_x_greater", 3, 2, false, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := cpu.New()
			tape := autodiff.NewTape()
			x := leaf(t, b, tape, tensor.Shape{1}, tt.x)
			y := leaf(t, b, tape, tensor.Shape{1}, tt.y)

			var z *tensor64
			if tt.min {
				z = x.Minimum(y)
			} else {
				z = x.Maximum(y)
			}

			grads, err := autodiff.Backward(z)
			require.NoError(t, err)
			assert.Equal(t, []float64{tt.dx}, gradData(t, grads, x))
			assert.Equal(t, []float64{tt.dy}, gradData(t, grads, y))
		})
	}
}

// TestTapeMisuse_DoubleBackward checks a consumed tape rejects a second replay.
func TestTapeMisuse_DoubleBackward(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{1}, 2)
	y := x.Square()

	_, err := autodiff.Backward(y)
	require.NoError(t, err)
	assert.Equal(t, autodiff.TapeConsumed, tape.State())

	_, err = autodiff.Backward(y)
	require.Error(t, err)
	assert.ErrorIs(t, err, tensor.ErrTapeMisuse)
}

// TestTapeMisuse_AppendAfterConsume checks recording on a consumed tape fails
// and leaves the tape unchanged.
func TestTapeMisuse_AppendAfterConsume(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{1}, 2)
	y := x.Square()

	_, err := autodiff.Backward(y)
	require.NoError(t, err)
	n := tape.Len()

	_, err = y.TryExp()
	assert.ErrorIs(t, err, tensor.ErrTapeMisuse)
	_, err = x.TryAdd(y)
	assert.ErrorIs(t, err, tensor.ErrTapeMisuse)
	assert.Panics(t, func() { x.Neg() })

	assert.Equal(t, n, tape.Len())
	assert.Equal(t, autodiff.TapeConsumed, tape.State())

	// Detached handles keep working.
	z, err := x.Untracked().TryExp()
	require.NoError(t, err)
	assert.False(t, z.IsTracked())
}

func TestTapeMisuse_MixedTapes(t *testing.T) {
	b := cpu.New()
	t1, t2 := autodiff.NewTape(), autodiff.NewTape()
	x := leaf(t, b, t1, tensor.Shape{1}, 1)
	y := leaf(t, b, t2, tensor.Shape{1}, 2)

	_, err := x.TryAdd(y)
	assert.ErrorIs(t, err, tensor.ErrTapeMisuse)
	assert.Equal(t, 0, t1.Len())
	assert.Equal(t, 0, t2.Len())
}

func TestTapeMisuse_UntrackedLoss(t *testing.T) {
	b := cpu.New()
	x := leaf(t, b, nil, tensor.Shape{1}, 1)

	_, err := autodiff.Backward(x.Exp())
	assert.ErrorIs(t, err, tensor.ErrTapeMisuse)
}

// TestShapeMismatch_TapeUntouched checks (2,3) + (3,2) fails without recording.
func TestShapeMismatch_TapeUntouched(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	y := leaf(t, b, tape, tensor.Shape{3, 2}, 1, 2, 3, 4, 5, 6)

	_ = x.Exp()
	n, state := tape.Len(), tape.State()

	_, err := x.TryAdd(y)
	require.Error(t, err)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	var sm *tensor.ShapeMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, "add", sm.Op)
	assert.Equal(t, tensor.Shape{2, 3}, sm.A)
	assert.Equal(t, tensor.Shape{3, 2}, sm.B)

	assert.Equal(t, n, tape.Len())
	assert.Equal(t, state, tape.State())
	assert.Panics(t, func() { x.Add(y) })
}

// TestReplayOrder checks tanh(ln x) and ln(tanh x) each match their analytic
// derivative, which differ from each other.
func TestReplayOrder(t *testing.T) {
	const x0 = 0.7

	b := cpu.New()

	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{1}, x0)
	grads, err := autodiff.Backward(x.Ln().Tanh())
	require.NoError(t, err)
	tanhLn := gradData(t, grads, x)[0]

	tape = autodiff.NewTape()
	x = leaf(t, b, tape, tensor.Shape{1}, x0)
	grads, err = autodiff.Backward(x.Tanh().Ln())
	require.NoError(t, err)
	lnTanh := gradData(t, grads, x)[0]

	th := math.Tanh(math.Log(x0))
	assert.InDelta(t, (1-th*th)/x0, tanhLn, 1e-12)

	tx := math.Tanh(x0)
	assert.InDelta(t, (1-tx*tx)/tx, lnTanh, 1e-12)

	assert.NotEqual(t, tanhLn, lnTanh)
}

// TestAllocationFailure_TapeUntouched checks a refused allocation records nothing.
func TestAllocationFailure_TapeUntouched(t *testing.T) {
	b := cpu.NewWithConfig(cpu.Config{MaxAllocBytes: 64})
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{4, 1}, 1, 2, 3, 4)
	y := leaf(t, b, tape, tensor.Shape{1, 4}, 1, 2, 3, 4)

	_ = x.Exp()
	n := tape.Len()

	// (4, 1) @ (1, 4) needs 128 bytes.
	_, err := x.TryMatMul(y)
	require.Error(t, err)
	assert.ErrorIs(t, err, tensor.ErrAllocation)
	assert.Equal(t, n, tape.Len())

	_, err = x.TryAdd(y)
	assert.ErrorIs(t, err, tensor.ErrAllocation)
	assert.Equal(t, n, tape.Len())
}

func TestCreation_OversizedShape(t *testing.T) {
	b := cpu.New()

	_, err := autodiff.Ones[float64](tensor.Shape{3, 1 << 62}, b)
	assert.ErrorIs(t, err, tensor.ErrAllocation)

	_, err = autodiff.Zeros[float64](tensor.Shape{1 << 32, 1 << 32}, b)
	assert.ErrorIs(t, err, tensor.ErrAllocation)

	x := leaf(t, b, autodiff.NewTape(), tensor.Shape{1, 1}, 2)
	_, err = x.TryBroadcastTo(tensor.Shape{1 << 32, 1 << 32})
	assert.ErrorIs(t, err, tensor.ErrAllocation)
	assert.Equal(t, 0, x.Tape().Len())
}

// TestUntrackedInput_ReceivesGradient checks every input of a recorded op gets a gradient.
func TestUntrackedInput_ReceivesGradient(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2}, 1, 2)
	w := leaf(t, b, nil, tensor.Shape{2}, 3, 4)

	y := x.Mul(w)
	assert.True(t, y.IsTracked())

	grads, err := autodiff.Backward(y.Sum())
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, gradData(t, grads, x))
	assert.Equal(t, []float64{1, 2}, gradData(t, grads, w))
}

// TestDeadBranch checks unconnected entries yield no gradient without error.
func TestDeadBranch(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{1}, 2)

	dead := x.Exp()
	y := x.Square()
	assert.Equal(t, 2, tape.Len())

	grads, err := autodiff.Backward(y)
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, gradData(t, grads, x))

	_, ok := autodiff.GradOf(grads, dead)
	assert.False(t, ok)
	_, err = grads.Require(dead.ID())
	assert.ErrorIs(t, err, tensor.ErrMissingGradient)
	assert.Nil(t, grads.Raw(dead.ID()))
}

func TestBackwardWithSeed(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2}, 1, 2)
	y := x.MulScalar(3)

	bad := autodiff.Must(autodiff.Ones[float64](tensor.Shape{3}, b))
	_, err := autodiff.BackwardWithSeed(y, bad)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
	assert.Equal(t, autodiff.TapeRecording, tape.State(), "a rejected seed must not consume the tape")

	seed := leaf(t, b, nil, tensor.Shape{2}, 2, 3)
	grads, err := autodiff.BackwardWithSeed(y, seed)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 9}, gradData(t, grads, x))
	assert.Equal(t, []float64{2, 3}, seed.Data())
}

// TestAccumulate_CopyOnWrite checks accumulating into a gradient that
// shares storage with another id's gradient leaves the other untouched.
func TestAccumulate_CopyOnWrite(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2}, 1, 2)

	q := x.Square()
	z := x.Retaped().Reshape(tensor.Shape{2, 1}).Reshape(tensor.Shape{2})
	loss := z.Add(q)

	grads, err := autodiff.Backward(loss)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, gradData(t, grads, x))
	assert.Equal(t, []float64{1, 1}, gradData(t, grads, z))
}

func TestGradientsDisabled(t *testing.T) {
	b := cpu.NewWithConfig(cpu.Config{DisableGradients: true})
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2}, 1, 2)

	y := x.Square()
	assert.False(t, y.IsTracked())
	assert.Equal(t, 0, tape.Len())
	assert.Equal(t, autodiff.TapeEmpty, tape.State())
	assert.Equal(t, []float64{1, 4}, y.Data())
}

func TestIdentity(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, nil, tensor.Shape{2, 2}, 1, 2, 3, 4)

	assert.Equal(t, x.ID(), x.Clone().ID())
	assert.True(t, x.Clone().Raw().SameStorage(x.Raw()))
	assert.Equal(t, x.ID(), x.Track(tape).ID())
	assert.Equal(t, x.ID(), x.Track(tape).Untracked().ID())
	assert.Equal(t, tape, x.Track(tape).Retaped().Tape())

	r := x.Reshape(tensor.Shape{4})
	assert.NotEqual(t, x.ID(), r.ID())
	assert.True(t, r.Raw().SameStorage(x.Raw()))
	assert.NotEqual(t, x.ID(), x.Exp().ID())
}

func TestFromSliceSpec(t *testing.T) {
	b := cpu.New()
	spec := tensor.ShapeSpec{tensor.Dyn, tensor.Const(3)}

	x, err := autodiff.FromSliceSpec([]float32{1, 2, 3, 4, 5, 6}, spec, b, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, x.Shape())

	_, err = autodiff.FromSliceSpec([]float32{1, 2, 3, 4, 5}, spec, b, 2)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = autodiff.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, b)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestItem(t *testing.T) {
	b := cpu.New()
	s := autodiff.Must(autodiff.Scalar(2.5, b))
	v, err := s.Item()
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	x := leaf(t, b, nil, tensor.Shape{2}, 1, 2)
	_, err = x.Item()
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestSplit_PartialGradient(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	parts := x.Split(1, 1, 2)
	require.Len(t, parts, 2)
	assert.Equal(t, []float64{1, 4}, parts[0].Data())
	assert.Equal(t, []float64{2, 3, 5, 6}, parts[1].Data())

	grads, err := autodiff.Backward(parts[1].Sum())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 0, 1, 1}, gradData(t, grads, x))

	_, err = x.Untracked().TrySplit(1, 1, 1)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	fresh := autodiff.NewTape()
	y := leaf(t, b, fresh, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	for _, sizes := range [][]int{{0, 3}, {-1, 4}, {3, 0}} {
		_, err = y.TrySplit(1, sizes...)
		assert.ErrorIs(t, err, tensor.ErrShapeMismatch, "sizes %v", sizes)
		assert.NotErrorIs(t, err, tensor.ErrAllocation, "sizes %v", sizes)
	}
	assert.Equal(t, 0, fresh.Len())
}

func TestConcat_Gradient(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2, 1}, 1, 2)
	y := leaf(t, b, tape, tensor.Shape{2, 2}, 3, 4, 5, 6)

	_, err := x.TryConcat(0, y)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	c := x.Concat(-1, y)
	assert.Equal(t, tensor.Shape{2, 3}, c.Shape())
	assert.Equal(t, []float64{1, 3, 4, 2, 5, 6}, c.Data())

	w := leaf(t, b, nil, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	grads, err := autodiff.Backward(c.Mul(w).Sum())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, gradData(t, grads, x))
	assert.Equal(t, []float64{2, 3, 5, 6}, gradData(t, grads, y))
}

func TestTape_DumpAndReset(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{2}, 1, 2)
	y := x.AddScalar(1).Sum()

	entries := tape.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "unary", entries[0].Kind)
	assert.Equal(t, "add_scalar", entries[0].Op)
	assert.Equal(t, 1.0, entries[0].Scalar)
	assert.Equal(t, []uint64{uint64(x.ID())}, entries[0].Inputs)
	assert.Equal(t, "sum", entries[1].Kind)
	assert.Equal(t, [][]int{{}}, entries[1].OutputShapes)

	_, err := autodiff.Backward(y)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tape.Dump(&buf))
	state, decoded, err := autodiff.DecodeDump(&buf)
	require.NoError(t, err)
	assert.Equal(t, "consumed", state)
	require.Len(t, decoded, 2)
	assert.Equal(t, entries[0].Op, decoded[0].Op)
	assert.Equal(t, entries[1].Outputs, decoded[1].Outputs)

	tape.Reset()
	assert.Equal(t, autodiff.TapeEmpty, tape.State())
	assert.Equal(t, 0, tape.Len())

	x2 := leaf(t, b, tape, tensor.Shape{1}, 3)
	grads, err := autodiff.Backward(x2.Square())
	require.NoError(t, err)
	assert.Equal(t, []float64{6}, gradData(t, grads, x2))
}

func TestGradients_IDs(t *testing.T) {
	b := cpu.New()
	tape := autodiff.NewTape()
	x := leaf(t, b, tape, tensor.Shape{1}, 1)
	y := leaf(t, b, tape, tensor.Shape{1}, 2)
	z := x.Mul(y)

	grads, err := autodiff.Backward(z)
	require.NoError(t, err)
	assert.Equal(t, 3, grads.Len())
	assert.Equal(t, []tensor.UniqueID{x.ID(), y.ID(), z.ID()}, grads.IDs())
}
