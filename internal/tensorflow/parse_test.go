package tensorflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/zerfoo/zimport/internal/tensorflow"
	"github.com/zerfoo/zimport/internal/tensorflow/tftest"
)

func TestParse(t *testing.T) {
	g := &tf.GraphDef{
		Producer: 27,
		Nodes: []tf.NodeDef{
			{
				Name: "axis",
				Op:   "Const",
				Attr: map[string]*tf.AttrValue{
					"dtype": {Kind: tf.KindType, Type: tf.DtInt32},
					"value": {Kind: tf.KindTensor, Tensor: &tf.TensorProto{
						Dtype:  tf.DtInt32,
						IntVal: []int32{-1},
					}},
				},
			},
			{
				Name:  "concat",
				Op:    "ConcatV2",
				Input: []string{"a", "b:0", "axis", "^init"},
				Attr: map[string]*tf.AttrValue{
					"N":       {Kind: tf.KindInt, I: 2},
					"T":       {Kind: tf.KindType, Type: tf.DtFloat},
					"padding": {Kind: tf.KindString, S: []byte("SAME")},
					"strides": {Kind: tf.KindList, List: &tf.AttrList{I: []int64{1, 2, 2, 1}}},
					"_output_shapes": {Kind: tf.KindList, List: &tf.AttrList{
						Shape: []tf.TensorShape{{Dims: []int64{-1, 8}}},
					}},
				},
			},
		},
	}

	parsed, err := tf.Parse(tftest.Encode(g))
	require.NoError(t, err)
	assert.Equal(t, int32(27), parsed.Producer)
	require.Len(t, parsed.Nodes, 2)

	axis := parsed.Nodes[0]
	assert.Equal(t, "Const", axis.Op)
	require.Contains(t, axis.Attr, "value")
	assert.Equal(t, tf.KindTensor, axis.Attr["value"].Kind)
	assert.Equal(t, []int32{-1}, axis.Attr["value"].Tensor.IntVal)
	assert.Equal(t, tf.DtInt32, axis.Attr["dtype"].Type)

	concat := parsed.Nodes[1]
	assert.Equal(t, []string{"a", "b:0", "axis", "^init"}, concat.Input)
	assert.Equal(t, int64(2), concat.Attr["N"].I)
	assert.Equal(t, "SAME", string(concat.Attr["padding"].S))
	assert.Equal(t, []int64{1, 2, 2, 1}, concat.Attr["strides"].List.I)
	assert.Equal(t, []int64{-1, 8}, concat.Attr["_output_shapes"].List.Shape[0].Dims)
}

func TestDataTypeString(t *testing.T) {
	assert.Equal(t, "DT_HALF", tf.DtHalf.String())
	assert.Equal(t, "DT_UNKNOWN", tf.DataType(99).String())
}
