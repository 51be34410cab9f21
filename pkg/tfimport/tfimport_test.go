package tfimport

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/zerfoo/zimport/internal/tensorflow"
	"github.com/zerfoo/zimport/internal/tensorflow/tftest"
	"github.com/zerfoo/zimport/pkg/importer"
	"github.com/zerfoo/zimport/pkg/ir"
	"github.com/zerfoo/zimport/pkg/mapping"
	"github.com/zerfoo/zimport/pkg/registry"
)

func typeAttr(dt tf.DataType) *tf.AttrValue { return &tf.AttrValue{Kind: tf.KindType, Type: dt} }

func intsAttr(v ...int64) *tf.AttrValue {
	return &tf.AttrValue{Kind: tf.KindList, List: &tf.AttrList{I: v}}
}

func constNode(name string, t *tf.TensorProto) tf.NodeDef {
	return tf.NodeDef{Name: name, Op: "Const", Attr: map[string]*tf.AttrValue{
		"dtype": typeAttr(t.Dtype),
		"value": {Kind: tf.KindTensor, Tensor: t},
	}}
}

func convNet() *tf.GraphDef {
	return &tf.GraphDef{
		Producer: 1087,
		Nodes: []tf.NodeDef{
			{Name: "input", Op: "Placeholder", Attr: map[string]*tf.AttrValue{
				"dtype": typeAttr(tf.DtFloat),
				"shape": {Kind: tf.KindShape, Shape: &tf.TensorShape{Dims: []int64{1, 8, 8, 3}}},
			}},
			constNode("filter", &tf.TensorProto{
				Dtype:    tf.DtFloat,
				Shape:    tf.TensorShape{Dims: []int64{3, 3, 3, 4}},
				FloatVal: []float32{0.5},
			}),
			{Name: "conv", Op: "Conv2D", Input: []string{"input", "filter"}, Attr: map[string]*tf.AttrValue{
				"T":       typeAttr(tf.DtFloat),
				"strides": intsAttr(1, 2, 2, 1),
				"padding": {Kind: tf.KindString, S: []byte("SAME")},
				"_output_shapes": {Kind: tf.KindList, List: &tf.AttrList{
					Shape: []tf.TensorShape{{Dims: []int64{1, 4, 4, 4}}},
				}},
			}},
			{Name: "relu", Op: "Relu", Input: []string{"conv:0"}},
			constNode("axis", &tf.TensorProto{Dtype: tf.DtInt32, IntVal: []int32{-1}}),
			{Name: "concat", Op: "ConcatV2", Input: []string{"relu", "relu", "axis", "^conv"}, Attr: map[string]*tf.AttrValue{
				"N": {Kind: tf.KindInt, I: 2},
			}},
			constNode("ridx", &tf.TensorProto{
				Dtype:  tf.DtInt32,
				Shape:  tf.TensorShape{Dims: []int64{2}},
				IntVal: []int32{1, 2},
			}),
			{Name: "mean", Op: "Mean", Input: []string{"concat", "ridx"}, Attr: map[string]*tf.AttrValue{
				"keep_dims": {Kind: tf.KindBool, B: true},
			}},
			{Name: "sq", Op: "Squeeze", Input: []string{"mean"}},
			{Name: "out", Op: "Identity", Input: []string{"sq"}},
			{Name: "init", Op: "NoOp"},
		},
	}
}

func importFile(t *testing.T, path string) (*ir.Graph, error) {
	t.Helper()
	h, err := New(nil)
	require.NoError(t, err)
	g, err := h.LoadGraph(path)
	require.NoError(t, err)
	logger, _ := logtest.NewNullLogger()
	p, err := h.CreateImportGraph(importer.WithLogger(logger))
	require.NoError(t, err)
	return p.Import(context.Background(), g)
}

func int64Values(n *ir.Node) []int64 {
	var out []int64
	for _, a := range n.ArgsOfType(ir.ArgInt64) {
		out = append(out, a.Int64Value)
	}
	return out
}

func TestImportConvNet(t *testing.T) {
	path := tftest.WriteFile(t, t.TempDir(), "frozen.pb", convNet())

	g, err := importFile(t, path)
	require.NoError(t, err)

	assert.Equal(t, "frozen", g.Name)
	assert.Equal(t, int64(1087), g.Opset)
	assert.Equal(t, []ir.ValueInfo{{Name: "input", DataType: ir.Float, Dims: []int64{1, 8, 8, 3}}}, g.Inputs)
	require.Len(t, g.Outputs, 1)
	assert.Equal(t, "out", g.Outputs[0].Name)

	require.Len(t, g.Nodes, 6)
	var ops []string
	for _, n := range g.Nodes {
		ops = append(ops, n.Op)
	}
	assert.Equal(t, []string{"conv2d", "relu", "concat", "reduce_mean", "squeeze", "identity"}, ops)

	conv := g.Nodes[0]
	assert.Equal(t, []string{"input", "filter"}, conv.Inputs)
	assert.Equal(t, []int64{3, 3, 2, 2, 0, 0, 1, 1, 1, 1, 1}, int64Values(conv))

	assert.Equal(t, []string{"conv"}, g.Nodes[1].Inputs)

	concat := g.Nodes[2]
	assert.Equal(t, []string{"relu", "relu"}, concat.Inputs)
	assert.Equal(t, []int64{-1}, int64Values(concat))

	mean := g.Nodes[3]
	assert.Equal(t, []string{"concat"}, mean.Inputs)
	assert.Equal(t, []int64{1, 2}, int64Values(mean))
	keep, ok := mean.Arg("keepDims")
	require.True(t, ok)
	assert.True(t, keep.BoolValue)

	assert.Empty(t, int64Values(g.Nodes[4]))
	assert.Equal(t, []string{"sq"}, g.Nodes[5].Inputs)

	require.Len(t, g.Constants, 1)
	filter := g.Constants["filter"]
	require.NotNil(t, filter)
	vals, err := filter.Float32s()
	require.NoError(t, err)
	require.Len(t, vals, 108)
	for _, v := range vals {
		assert.Equal(t, float32(0.5), v)
	}
}

func TestConv2DDataFormat(t *testing.T) {
	tests := []struct {
		name   string
		format string
		attrs  map[string]*tf.AttrValue
		want   []int64
	}{
		{
			name:   "NCHW",
			format: "NCHW",
			attrs: map[string]*tf.AttrValue{
				"strides":           intsAttr(1, 1, 2, 3),
				"dilations":         intsAttr(1, 1, 4, 5),
				"explicit_paddings": intsAttr(0, 0, 0, 0, 1, 1, 2, 2),
			},
			want: []int64{3, 3, 2, 3, 1, 2, 4, 5, 0, 0, 1},
		},
		{
			name:   "NHWC",
			format: "NHWC",
			attrs: map[string]*tf.AttrValue{
				"strides":           intsAttr(1, 2, 3, 1),
				"dilations":         intsAttr(1, 4, 5, 1),
				"explicit_paddings": intsAttr(0, 0, 1, 1, 2, 2, 0, 0),
			},
			want: []int64{3, 3, 2, 3, 1, 2, 4, 5, 0, 1, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := map[string]*tf.AttrValue{
				"T":           typeAttr(tf.DtFloat),
				"padding":     {Kind: tf.KindString, S: []byte("EXPLICIT")},
				"data_format": {Kind: tf.KindString, S: []byte(tt.format)},
			}
			for k, v := range tt.attrs {
				attrs[k] = v
			}
			def := &tf.GraphDef{Nodes: []tf.NodeDef{
				{Name: "input", Op: "Placeholder", Attr: map[string]*tf.AttrValue{"dtype": typeAttr(tf.DtFloat)}},
				constNode("filter", &tf.TensorProto{
					Dtype:    tf.DtFloat,
					Shape:    tf.TensorShape{Dims: []int64{3, 3, 3, 4}},
					FloatVal: []float32{1},
				}),
				{Name: "conv", Op: "Conv2D", Input: []string{"input", "filter"}, Attr: attrs},
			}}

			g, err := importFile(t, tftest.WriteFile(t, t.TempDir(), "conv.pb", def))
			require.NoError(t, err)
			require.Len(t, g.Nodes, 1)
			assert.Equal(t, tt.want, int64Values(g.Nodes[0]))
		})
	}
}

func TestOutputShapes(t *testing.T) {
	g, err := NewGraph("net", convNet(), nil)
	require.NoError(t, err)

	view := g.Node(0)
	assert.Equal(t, "conv", view.NodeName())
	assert.Equal(t, []string{"input", "filter"}, view.Inputs())
	assert.Equal(t, []string{"T", "padding", "strides"}, view.AttributeNames())
	assert.NotContains(t, view.AttributeNames(), "_output_shapes")

	conv := g.Node(1).GraphTensor("conv")
	require.NotNil(t, conv)
	assert.Equal(t, ir.Float, conv.DataType)
	assert.Equal(t, []int64{1, 4, 4, 4}, conv.Dims)
}

func TestImportReportsMissingAttribute(t *testing.T) {
	def := convNet()
	delete(def.Nodes[2].Attr, "strides")

	_, err := importFile(t, tftest.WriteFile(t, t.TempDir(), "bad.pb", def))
	require.Error(t, err)
	assert.Equal(t, mapping.UnresolvedReference, mapping.KindOf(err))
	var nerr *importer.NodeError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, "conv", nerr.Node)
	assert.Equal(t, "conditionalfieldvalueintindex", nerr.Rule)
}

func TestImportCastAndShape(t *testing.T) {
	def := &tf.GraphDef{Nodes: []tf.NodeDef{
		{Name: "x", Op: "Placeholder", Attr: map[string]*tf.AttrValue{"dtype": typeAttr(tf.DtInt32)}},
		{Name: "cast", Op: "Cast", Input: []string{"x"}, Attr: map[string]*tf.AttrValue{
			"SrcT": typeAttr(tf.DtInt32),
			"DstT": typeAttr(tf.DtHalf),
		}},
		{Name: "shape", Op: "Shape", Input: []string{"cast"}},
	}}
	g, err := importFile(t, tftest.WriteFile(t, t.TempDir(), "cast.pb", def))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)

	dtype, ok := g.Nodes[0].Arg("dtype")
	require.True(t, ok)
	assert.Equal(t, ir.Half, dtype.DataTypeValue)
	assert.Equal(t, []int64{int64(ir.Int32)}, int64Values(g.Nodes[1]))
}

func TestConvertTensor(t *testing.T) {
	half, err := convertTensor("h", &tf.TensorProto{
		Dtype:   tf.DtHalf,
		Shape:   tf.TensorShape{Dims: []int64{2}},
		HalfVal: []int32{0x3c00, 0xc000},
	})
	require.NoError(t, err)
	vals, err := half.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -2}, vals)

	content := ir.Int64Tensor("c", []int64{2}, 3, 4)
	got, err := convertTensor("c", &tf.TensorProto{
		Dtype:         tf.DtInt64,
		Shape:         tf.TensorShape{Dims: []int64{2}},
		TensorContent: content.RawData,
	})
	require.NoError(t, err)
	assert.Equal(t, content.RawData, got.RawData)

	zeros, err := convertTensor("z", &tf.TensorProto{Dtype: tf.DtInt32, Shape: tf.TensorShape{Dims: []int64{3}}})
	require.NoError(t, err)
	ints, err := zeros.Int64s()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0}, ints)

	_, err = convertTensor("bad", &tf.TensorProto{
		Dtype:         tf.DtInt64,
		Shape:         tf.TensorShape{Dims: []int64{3}},
		TensorContent: content.RawData,
	})
	assert.Error(t, err)

	_, err = convertTensor("many", &tf.TensorProto{Dtype: tf.DtFloat, FloatVal: []float32{1, 2}})
	assert.Error(t, err)

	_, err = convertTensor("complex", &tf.TensorProto{Dtype: 8})
	assert.Error(t, err)
}

func TestDataTypeReference(t *testing.T) {
	assert.Equal(t, ir.Float, DataType(tf.DtFloat+100))
	assert.Equal(t, ir.Undefined, DataType(tf.DtInvalid))
}

func TestRegistered(t *testing.T) {
	h, err := registry.New("TensorFlow", nil)
	require.NoError(t, err)
	assert.Equal(t, FrameworkName, h.FrameworkName())

	name, err := registry.ForFile("model/frozen_graph.pb")
	require.NoError(t, err)
	assert.Equal(t, FrameworkName, name)
}

func TestProcessesCoverForeignCatalog(t *testing.T) {
	h, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, h.foreign.Ops(), h.Processes().ForeignOps())
}
