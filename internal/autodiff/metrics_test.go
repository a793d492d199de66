package autodiff

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tapegrad/internal/backend/cpu"
	"github.com/born-ml/tapegrad/internal/tensor"
)

func TestMetrics_RecordsAndMisuse(t *testing.T) {
	b := cpu.New()
	tape := NewTape()
	x := Must(FromSlice([]float32{1, 2}, tensor.Shape{2}, b)).Track(tape)

	unaryBefore := testutil.ToFloat64(tapeRecords.WithLabelValues("unary"))
	misuseBefore := testutil.ToFloat64(tapeMisuse)

	y := x.Exp().Sum()
	assert.InDelta(t, unaryBefore+1, testutil.ToFloat64(tapeRecords.WithLabelValues("unary")), 0)

	_, err := Backward(y)
	require.NoError(t, err)
	_, err = Backward(y)
	require.ErrorIs(t, err, tensor.ErrTapeMisuse)

	assert.InDelta(t, misuseBefore+1, testutil.ToFloat64(tapeMisuse), 0)
}

func TestResolveTape(t *testing.T) {
	t1, t2 := NewTape(), NewTape()

	got, err := resolveTape("op", nil, t1, nil, t1)
	require.NoError(t, err)
	assert.Same(t, t1, got)

	got, err = resolveTape("op", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = resolveTape("op", t1, t2)
	assert.ErrorIs(t, err, tensor.ErrTapeMisuse)
}
