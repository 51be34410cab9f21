package inspector

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerfoo/zmf"

	"github.com/zerfoo/zimport/internal/onnx"
	"github.com/zerfoo/zimport/internal/onnx/onnxtest"
	tf "github.com/zerfoo/zimport/internal/tensorflow"
	"github.com/zerfoo/zimport/internal/tensorflow/tftest"
	"github.com/zerfoo/zimport/pkg/converter"
)

func TestInspectONNX(t *testing.T) {
	path := onnxtest.WriteFile(t, t.TempDir(), "test.onnx", &onnx.ModelProto{
		IRVersion:   4,
		OpsetImport: []onnx.OperatorSetID{{Version: 9}},
		Graph: &onnx.GraphProto{
			Nodes: []onnx.NodeProto{
				{Name: "node1", OpType: "Add"},
				{Name: "node2", OpType: "Mul"},
				{Name: "node3", OpType: "Add"},
			},
		},
	})

	var out bytes.Buffer
	require.NoError(t, InspectONNX(&out, path))
	s := out.String()
	assert.Contains(t, s, "Inspecting ONNX model from:")
	assert.Contains(t, s, "Successfully loaded model with IR version: 4")
	assert.Contains(t, s, "Opset version: 9")
	assert.Contains(t, s, "Graph has 3 nodes.")
	assert.Contains(t, s, "- Add: 2\n- Mul: 1\n")
}

func TestInspectTensorFlow(t *testing.T) {
	path := tftest.WriteFile(t, t.TempDir(), "frozen.pb", &tf.GraphDef{
		Producer: 27,
		Nodes: []tf.NodeDef{
			{Name: "x", Op: "Placeholder"},
			{Name: "r", Op: "Relu", Input: []string{"x"}},
		},
	})

	var out bytes.Buffer
	require.NoError(t, InspectTensorFlow(&out, path))
	s := out.String()
	assert.Contains(t, s, "Producer version: 27")
	assert.Contains(t, s, "Graph has 2 nodes.")
	assert.Contains(t, s, "- Relu: 1")
}

func TestInspectZMF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.zmf")
	require.NoError(t, converter.Save(path, &zmf.Model{
		Metadata: &zmf.Metadata{
			ProducerName:    "test-producer",
			ProducerVersion: "1.0",
			OpsetVersion:    1,
		},
		Graph: &zmf.Graph{
			Nodes: []*zmf.Node{{
				Name: "zmf_node1", OpType: "add",
				Attributes: map[string]*zmf.Attribute{
					"INT64.0.axis": {Value: &zmf.Attribute_I{I: 1}},
				},
			}},
			Parameters: make(map[string]*zmf.Tensor),
		},
	}))

	var out bytes.Buffer
	require.NoError(t, InspectZMF(&out, path))
	s := out.String()
	assert.Contains(t, s, "Inspecting ZMF model from:")
	assert.Contains(t, s, "Producer: test-producer 1.0")
	assert.Contains(t, s, "Opset version: 1")
	assert.Contains(t, s, "Graph has 1 nodes.")
	assert.Contains(t, s, "Graph has 0 parameters.")
	assert.Contains(t, s, "- Node: zmf_node1, OpType: add")
	assert.Contains(t, s, "- INT64.0.axis:")
}

func TestInspectMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	var out bytes.Buffer
	assert.Error(t, InspectONNX(&out, missing+".onnx"))
	assert.Error(t, InspectTensorFlow(&out, missing+".pb"))
	assert.Error(t, InspectZMF(&out, missing+".zmf"))
}
