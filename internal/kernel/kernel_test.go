package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

func recoverCode(fn func()) (code status.Code) {
	var err error
	func() {
		defer status.Recover(&err)
		fn()
	}()
	return status.CodeOf(err)
}

func TestTableLookup(t *testing.T) {
	table := Table[string]{
		{tensor.NCHW, tensor.F32}:     "nchw-f32",
		{AnyLayout, tensor.F16}:       "any-f16",
		{tensor.NHWC, tensor.QASYMM8}: "nhwc-q8",
	}

	f, err := table.Lookup(tensor.NCHW, tensor.F32)
	require.NoError(t, err)
	assert.Equal(t, "nchw-f32", f)

	f, err = table.Lookup(tensor.NHWC, tensor.F16)
	require.NoError(t, err)
	assert.Equal(t, "any-f16", f)

	_, err = table.Lookup(tensor.NHWC, tensor.F32)
	assert.ErrorIs(t, err, status.ErrNotImplemented)

	assert.Equal(t, []tensor.DataType{tensor.QASYMM8, tensor.F16, tensor.F32}, table.DataTypes())
}

type countingBuilder struct{ builds int }

type namedProgram struct {
	name     string
	launches int
}

func (p *namedProgram) Name() string                { return p.name }
func (p *namedProgram) Launch(*Args, window.Window) { p.launches++ }

func (b *countingBuilder) Build(name string, _ BuildOptions) (Program, error) {
	b.builds++
	return &namedProgram{name: name}, nil
}

func TestCatalogCachesBySignature(t *testing.T) {
	b := &countingBuilder{}
	c := NewCatalog(b)

	opts := BuildOptions{DataType: tensor.F32, Layout: tensor.NCHW, VecSize: 4, Shape: tensor.Shape{8, 2}}
	p1, err := c.GetOrBuild("prelu_layer", opts)
	require.NoError(t, err)
	p2, err := c.GetOrBuild("prelu_layer", opts)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, b.builds)

	opts.InPlace = true
	_, err = c.GetOrBuild("prelu_layer", opts)
	require.NoError(t, err)
	assert.Equal(t, 2, b.builds)
	assert.Equal(t, 2, c.Len())
}

func TestSignature(t *testing.T) {
	opts := BuildOptions{DataType: tensor.F16, Layout: tensor.NHWC, VecSize: 8, Shape: tensor.Shape{3, 4}, InPlace: true}
	assert.Equal(t, "prelu_layer_f16_v8_3_4_nhwc_inplace", opts.Signature("prelu_layer"))
	assert.Equal(t, "gemm_ma_f32_v1", BuildOptions{DataType: tensor.F32, VecSize: 1}.Signature("gemm_ma"))
}

func TestBaseCheckRun(t *testing.T) {
	var b Base
	w := window.New()
	w.Set(window.DimX, window.NewDimension(0, 8, 4))

	assert.Equal(t, status.UnconfiguredUse, recoverCode(func() { b.CheckRun(w) }))

	b.ConfigureBase("k", w)
	assert.Equal(t, status.OK, recoverCode(func() { b.CheckRun(w.Split(window.DimX, 1, 2)) }))

	outside := w
	outside.Set(window.DimX, window.NewDimension(0, 12, 4))
	assert.Equal(t, status.InvalidSubwindow, recoverCode(func() { b.CheckRun(outside) }))
}

type recordingQueue struct{ names []string }

func (q *recordingQueue) Enqueue(name string, fn func()) {
	q.names = append(q.names, name)
	fn()
}

func TestLaunchSlicesOnQueue(t *testing.T) {
	info := tensor.NewInfo(tensor.Shape{4, 2, 3, 2}, tensor.F32, tensor.NCHW)
	full := window.CalculateMaxWindow(info, window.Steps{})
	prog := &namedProgram{name: "p"}

	Launch(Context{}, prog, &Args{}, full, full)
	assert.Equal(t, 1, prog.launches, "host contexts launch once")

	q := &recordingQueue{}
	Launch(Context{Queue: q}, prog, &Args{}, full, full)
	assert.Len(t, q.names, 1, "the full window collapses into a single 3-D slice")

	q = &recordingQueue{}
	part := full.Split(window.DimZ, 0, 3)
	Launch(Context{Queue: q}, prog, &Args{}, full, part)
	assert.Len(t, q.names, 2, "an uncollapsed window is enqueued per batch")

	q = &recordingQueue{}
	empty := full
	empty.Set(window.DimY, window.NewDimension(2, 2, 1))
	Launch(Context{Queue: q}, prog, &Args{}, full, empty)
	assert.Empty(t, q.names)
}

func TestTargets(t *testing.T) {
	tgt, ok := ParseTarget("Bifrost")
	require.True(t, ok)
	assert.Equal(t, Bifrost, tgt)

	h, w := GEMMMultipliers(Bifrost)
	assert.Equal(t, [2]int{2, 4}, [2]int{h, w})
	h, w = GEMMMultipliers(Midgard)
	assert.Equal(t, [2]int{1, 1}, [2]int{h, w})

	r := ReshapeInfo{InterleaveHeight: 2, TransposeWidth: 4}
	assert.Equal(t, 8, r.BlockRows())
	assert.Equal(t, 16, r.BlockCols(4))
	assert.Equal(t, 32, r.BlockCols(2))
}
