// Package converter writes imported graphs in the ZMF format.
package converter

import (
	"os"

	"github.com/pkg/errors"
	"github.com/zerfoo/zmf"
	"google.golang.org/protobuf/proto"

	"github.com/zerfoo/zimport/pkg/ir"
)

// Options describes the producer recorded in the model metadata.
type Options struct {
	ProducerName    string
	ProducerVersion string
}

// AttributeKey returns the ZMF attribute key of a node arg. Keys carry the
// arg's type and index, so variadic args and args sharing a name stay
// distinct: "INT64.0.kH".
func AttributeKey(a ir.ArgDescriptor) string {
	return a.Key() + "." + a.Name
}

// ToZMF converts an imported graph. Every constant the graph references
// becomes a parameter; constants of a type ZMF cannot hold are an error.
func ToZMF(g *ir.Graph, opts Options) (*zmf.Model, error) {
	if g == nil {
		return nil, errors.New("graph is nil")
	}
	m := &zmf.Model{
		Graph: &zmf.Graph{
			Nodes:      make([]*zmf.Node, 0, len(g.Nodes)),
			Parameters: make(map[string]*zmf.Tensor, len(g.Constants)),
			Inputs:     convertValueInfos(g.Inputs),
			Outputs:    convertValueInfos(g.Outputs),
		},
		Metadata: &zmf.Metadata{
			ProducerName:    opts.ProducerName,
			ProducerVersion: opts.ProducerVersion,
			OpsetVersion:    g.Opset,
		},
	}

	for _, n := range g.Nodes {
		zn := &zmf.Node{
			Name:       n.Name,
			OpType:     n.Op,
			Inputs:     n.Inputs,
			Outputs:    n.Outputs,
			Attributes: make(map[string]*zmf.Attribute),
		}
		for _, a := range n.Args {
			if a.ArgType.IsTensor() {
				continue
			}
			attr, err := convertArg(a)
			if err != nil {
				return nil, errors.Wrapf(err, "node %q", n.Name)
			}
			zn.Attributes[AttributeKey(a)] = attr
		}
		m.Graph.Nodes = append(m.Graph.Nodes, zn)
	}

	for name, t := range g.Constants {
		zt, err := convertTensor(t)
		if err != nil {
			return nil, errors.Wrapf(err, "constant %q", name)
		}
		m.Graph.Parameters[name] = zt
	}
	return m, nil
}

func convertArg(a ir.ArgDescriptor) (*zmf.Attribute, error) {
	attr := &zmf.Attribute{}
	switch a.ArgType {
	case ir.ArgInt32, ir.ArgInt64:
		attr.Value = &zmf.Attribute_I{I: a.Int64Value}
	case ir.ArgFloat:
		attr.Value = &zmf.Attribute_F{F: a.FloatValue}
	case ir.ArgDouble:
		attr.Value = &zmf.Attribute_F{F: float32(a.DoubleValue)}
	case ir.ArgBool:
		var v int64
		if a.BoolValue {
			v = 1
		}
		attr.Value = &zmf.Attribute_I{I: v}
	case ir.ArgString:
		attr.Value = &zmf.Attribute_S{S: a.StringValue}
	case ir.ArgDataType:
		attr.Value = &zmf.Attribute_S{S: a.DataTypeValue.String()}
	default:
		return nil, errors.Errorf("arg %s has no ZMF representation", a)
	}
	return attr, nil
}

func convertTensor(t *ir.Tensor) (*zmf.Tensor, error) {
	if !t.HasData() {
		return nil, errors.Errorf("tensor %q has no data", t.Name)
	}
	zt := &zmf.Tensor{Shape: t.Dims, Data: t.RawData}
	switch t.DataType {
	case ir.Float:
		zt.Dtype = zmf.Tensor_FLOAT32
	case ir.Half:
		zt.Dtype = zmf.Tensor_FLOAT16
	case ir.BFloat16:
		zt.Dtype = zmf.Tensor_BFLOAT16
	case ir.Double:
		zt.Dtype = zmf.Tensor_FLOAT64
	case ir.Int32:
		zt.Dtype = zmf.Tensor_INT32
	case ir.Int64:
		zt.Dtype = zmf.Tensor_INT64
	default:
		return nil, errors.Errorf("unsupported tensor data type: %s", t.DataType)
	}
	return zt, nil
}

func convertValueInfos(infos []ir.ValueInfo) []*zmf.ValueInfo {
	out := make([]*zmf.ValueInfo, len(infos))
	for i, info := range infos {
		out[i] = &zmf.ValueInfo{Name: info.Name, Shape: info.Dims}
	}
	return out
}

// Save writes m to path.
func Save(path string, m *zmf.Model) error {
	data, err := proto.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "failed to marshal ZMF model")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // model files are not secret
		return errors.Wrap(err, "failed to write ZMF model")
	}
	return nil
}

// Load reads a ZMF model from path.
func Load(path string) (*zmf.Model, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied model path
	if err != nil {
		return nil, errors.Wrap(err, "failed to read ZMF model")
	}
	m := &zmf.Model{}
	if err := proto.Unmarshal(data, m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal ZMF model")
	}
	return m, nil
}
