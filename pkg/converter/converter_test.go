package converter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerfoo/zmf"

	"github.com/zerfoo/zimport/pkg/ir"
)

func testGraph() *ir.Graph {
	w := ir.Float32Tensor("w", []int64{2, 2}, 1, 2, 3, 4)
	g := ir.NewGraph("net", "onnx")
	g.Opset = 13
	g.Inputs = []ir.ValueInfo{{Name: "x", DataType: ir.Float, Dims: []int64{1, 2}}}
	g.Outputs = []ir.ValueInfo{{Name: "y", DataType: ir.Float}}
	g.Constants["w"] = w
	g.Nodes = []*ir.Node{
		{
			Name: "mm", Op: "matmul", ForeignOp: "MatMul",
			Inputs: []string{"x", "w"}, Outputs: []string{"h"},
			Args: []ir.ArgDescriptor{
				{Name: "input", ArgType: ir.ArgInputTensor, ArgIndex: 0, InputValue: ir.Placeholder("x", ir.Float)},
				{Name: "y", ArgType: ir.ArgInputTensor, ArgIndex: 1, InputValue: w},
				{Name: "transposeX", ArgType: ir.ArgBool, ArgIndex: 0, BoolValue: true},
				{Name: "alpha", ArgType: ir.ArgDouble, ArgIndex: 0, DoubleValue: 0.5},
			},
		},
		{
			Name: "c", Op: "cast", ForeignOp: "Cast",
			Inputs: []string{"h"}, Outputs: []string{"y"},
			Args: []ir.ArgDescriptor{
				{Name: "dtype", ArgType: ir.ArgDataType, DataTypeValue: ir.Half},
				{Name: "axes", ArgType: ir.ArgInt64, ArgIndex: 1, Int64Value: -1},
			},
		},
	}
	return g
}

func TestToZMF(t *testing.T) {
	m, err := ToZMF(testGraph(), Options{ProducerName: "zimport", ProducerVersion: "0.1.0"})
	require.NoError(t, err)

	assert.Equal(t, "zimport", m.GetMetadata().GetProducerName())
	assert.Equal(t, int64(13), m.GetMetadata().GetOpsetVersion())

	g := m.GetGraph()
	require.Len(t, g.GetInputs(), 1)
	assert.Equal(t, "x", g.GetInputs()[0].GetName())
	assert.Equal(t, []int64{1, 2}, g.GetInputs()[0].GetShape())

	require.Len(t, g.GetNodes(), 2)
	mm := g.GetNodes()[0]
	assert.Equal(t, "matmul", mm.GetOpType())
	assert.Equal(t, []string{"x", "w"}, mm.GetInputs())
	assert.Len(t, mm.GetAttributes(), 2)

	tx, ok := mm.GetAttributes()["BOOL.0.transposeX"].GetValue().(*zmf.Attribute_I)
	require.True(t, ok)
	assert.Equal(t, int64(1), tx.I)
	alpha, ok := mm.GetAttributes()["DOUBLE.0.alpha"].GetValue().(*zmf.Attribute_F)
	require.True(t, ok)
	assert.Equal(t, float32(0.5), alpha.F)

	cast := g.GetNodes()[1]
	dtype, ok := cast.GetAttributes()["DATA_TYPE.0.dtype"].GetValue().(*zmf.Attribute_S)
	require.True(t, ok)
	assert.Equal(t, ir.Half.String(), dtype.S)
	axes, ok := cast.GetAttributes()["INT64.1.axes"].GetValue().(*zmf.Attribute_I)
	require.True(t, ok)
	assert.Equal(t, int64(-1), axes.I)

	w := g.GetParameters()["w"]
	require.NotNil(t, w)
	assert.Equal(t, zmf.Tensor_FLOAT32, w.GetDtype())
	assert.Equal(t, []int64{2, 2}, w.GetShape())
	assert.Len(t, w.GetData(), 16)
}

func TestToZMFRejectsUnsupportedConstants(t *testing.T) {
	g := testGraph()
	g.Constants["mask"] = ir.BoolTensor("mask", []int64{1}, true)
	_, err := ToZMF(g, Options{})
	assert.ErrorContains(t, err, "mask")

	g = testGraph()
	g.Constants["w"] = ir.Placeholder("w", ir.Float, 2, 2)
	_, err = ToZMF(g, Options{})
	assert.ErrorContains(t, err, "no data")

	_, err = ToZMF(nil, Options{})
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	m, err := ToZMF(testGraph(), Options{ProducerName: "zimport"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "net.zmf")
	require.NoError(t, Save(path, m))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "zimport", loaded.GetMetadata().GetProducerName())
	assert.Len(t, loaded.GetGraph().GetNodes(), 2)
	assert.Len(t, loaded.GetGraph().GetParameters(), 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.zmf"))
	assert.Error(t, err)
}
