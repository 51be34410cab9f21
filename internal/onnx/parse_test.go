package onnx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerfoo/zimport/internal/onnx"
	"github.com/zerfoo/zimport/internal/onnx/onnxtest"
)

func convModel() *onnx.ModelProto {
	return &onnx.ModelProto{
		IRVersion:    7,
		ProducerName: "pytorch",
		OpsetImport:  []onnx.OperatorSetID{{Domain: "ai.onnx.ml", Version: 3}, {Version: 13}},
		Graph: &onnx.GraphProto{
			Name: "conv_net",
			Nodes: []onnx.NodeProto{{
				Name:    "conv0",
				OpType:  "Conv",
				Inputs:  []string{"X", "W", ""},
				Outputs: []string{"Y"},
				Attributes: []onnx.AttributeProto{
					{Name: "strides", Type: onnx.AttributeProtoInts, Ints: []int64{2, 2}},
					{Name: "auto_pad", Type: onnx.AttributeProtoString, S: []byte("SAME_UPPER")},
					{Name: "alpha", Type: onnx.AttributeProtoFloat, F: 0.5},
					{Name: "group", Type: onnx.AttributeProtoInt, I: 1},
				},
			}},
			Initializers: []onnx.TensorProto{{
				Name:      "W",
				DataType:  onnx.TensorProtoFloat,
				Dims:      []int64{8, 3, 3, 3},
				FloatData: make([]float32, 8*3*3*3),
			}},
			Inputs: []onnx.ValueInfoProto{{
				Name: "X",
				Type: &onnx.TypeProto{TensorType: &onnx.TensorTypeProto{
					ElemType: onnx.TensorProtoFloat,
					Shape: &onnx.TensorShapeProto{Dims: []onnx.DimensionProto{
						{DimParam: "batch"}, {DimValue: 3}, {DimValue: 32}, {DimValue: 32},
					}},
				}},
			}},
			Outputs: []onnx.ValueInfoProto{{Name: "Y"}},
		},
	}
}

func TestParse(t *testing.T) {
	model, err := onnx.Parse(onnxtest.Encode(convModel()))
	require.NoError(t, err)

	assert.Equal(t, int64(7), model.IRVersion)
	assert.Equal(t, "pytorch", model.ProducerName)
	assert.Equal(t, int64(13), model.Opset())
	require.NotNil(t, model.Graph)
	assert.Equal(t, "conv_net", model.Graph.Name)

	require.Len(t, model.Graph.Nodes, 1)
	node := model.Graph.Nodes[0]
	assert.Equal(t, "Conv", node.OpType)
	assert.Equal(t, []string{"X", "W", ""}, node.Inputs)
	assert.Equal(t, []string{"Y"}, node.Outputs)

	strides, ok := node.Attribute("strides")
	require.True(t, ok)
	assert.Equal(t, []int64{2, 2}, strides.Ints)
	pad, ok := node.Attribute("auto_pad")
	require.True(t, ok)
	assert.Equal(t, "SAME_UPPER", string(pad.S))
	alpha, _ := node.Attribute("alpha")
	assert.Equal(t, float32(0.5), alpha.F)

	require.Len(t, model.Graph.Initializers, 1)
	w := model.Graph.Initializers[0]
	assert.Equal(t, []int64{8, 3, 3, 3}, w.Dims)
	assert.Len(t, w.FloatData, 8*3*3*3)

	dims, elem, ok := model.Graph.Inputs[0].Shape()
	require.True(t, ok)
	assert.Equal(t, int32(onnx.TensorProtoFloat), elem)
	assert.Equal(t, []int64{-1, 3, 32, 32}, dims)

	_, _, ok = model.Graph.Outputs[0].Shape()
	assert.False(t, ok)
}

func TestParseGarbage(t *testing.T) {
	_, err := onnx.Parse([]byte{0x3a, 0xff, 0x01})
	assert.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := onnx.LoadFile(t.TempDir() + "/missing.onnx")
	assert.Error(t, err)
}
