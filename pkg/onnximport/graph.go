package onnximport

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/zerfoo/zimport/internal/onnx"
	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/ir"
	"github.com/zerfoo/zimport/pkg/mapping"
)

// Graph is an ONNX model prepared for import. Initializers and the outputs
// of Constant nodes become graph constants; Constant nodes themselves are
// not translated.
type Graph struct {
	name      string
	opset     int64
	nodes     []node
	constants map[string]*ir.Tensor
	values    map[string]*ir.Tensor
	inputs    []ir.ValueInfo
	outputs   []ir.ValueInfo
}

type node struct {
	name  string
	proto *onnx.NodeProto
	attrs map[string]*ir.AttrValue
}

// LoadGraph reads an ONNX model file.
func LoadGraph(path string, foreign *catalog.ForeignCatalog) (*Graph, error) {
	m, err := onnx.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewGraph(m, path, foreign)
}

// NewGraph prepares a decoded model. modelPath locates external tensor
// data; foreign supplies the declared attribute types, so integer
// attributes declared as data types are surfaced as DATA_TYPE values.
func NewGraph(m *onnx.ModelProto, modelPath string, foreign *catalog.ForeignCatalog) (*Graph, error) {
	if m.Graph == nil {
		return nil, errors.New("model graph is nil")
	}
	g := &Graph{
		name:      m.Graph.Name,
		opset:     m.Opset(),
		constants: make(map[string]*ir.Tensor),
		values:    make(map[string]*ir.Tensor),
	}
	if g.name == "" {
		g.name = "main_graph"
	}

	for i := range m.Graph.Initializers {
		t, err := convertTensor(&m.Graph.Initializers[i], modelPath)
		if err != nil {
			return nil, errors.Wrap(err, "initializer")
		}
		g.constants[t.Name] = t
	}

	for _, list := range [][]onnx.ValueInfoProto{m.Graph.Inputs, m.Graph.Outputs, m.Graph.ValueInfo} {
		for i := range list {
			vi := &list[i]
			dims, elem, _ := vi.Shape()
			g.values[vi.Name] = ir.Placeholder(vi.Name, DataType(elem), dims...)
		}
	}
	for _, vi := range m.Graph.Inputs {
		if _, isConst := g.constants[vi.Name]; !isConst {
			g.inputs = append(g.inputs, valueInfo(g.values[vi.Name]))
		}
	}
	for _, vi := range m.Graph.Outputs {
		g.outputs = append(g.outputs, valueInfo(g.values[vi.Name]))
	}

	for i := range m.Graph.Nodes {
		p := &m.Graph.Nodes[i]
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", p.OpType, i)
		}
		if p.OpType == "Constant" {
			t, err := constantValue(p, modelPath)
			if err != nil {
				return nil, errors.Wrapf(err, "constant node %q", name)
			}
			g.constants[t.Name] = t
			continue
		}

		var declared *catalog.ForeignOp
		if foreign != nil {
			declared, _ = foreign.Op(p.OpType)
		}
		attrs := make(map[string]*ir.AttrValue, len(p.Attributes))
		for j := range p.Attributes {
			a := &p.Attributes[j]
			v, err := convertAttribute(a, declared, modelPath)
			if err != nil {
				return nil, errors.Wrapf(err, "node %q attribute %q", name, a.Name)
			}
			if v != nil {
				attrs[a.Name] = v
			}
		}
		for _, out := range p.Outputs {
			if _, ok := g.values[out]; !ok && out != "" {
				g.values[out] = &ir.Tensor{Name: out}
			}
		}
		g.nodes = append(g.nodes, node{name: name, proto: p, attrs: attrs})
	}
	return g, nil
}

func valueInfo(t *ir.Tensor) ir.ValueInfo {
	return ir.ValueInfo{Name: t.Name, DataType: t.DataType, Dims: t.Dims}
}

// constantValue returns the tensor a Constant node produces.
func constantValue(p *onnx.NodeProto, modelPath string) (*ir.Tensor, error) {
	if len(p.Outputs) != 1 {
		return nil, errors.Errorf("expected one output, got %d", len(p.Outputs))
	}
	name := p.Outputs[0]
	for _, a := range p.Attributes {
		var t *ir.Tensor
		switch a.Name {
		case "value":
			if a.T == nil {
				return nil, errors.New("value attribute holds no tensor")
			}
			var err error
			if t, err = convertTensor(a.T, modelPath); err != nil {
				return nil, err
			}
		case "value_float":
			t = ir.Float32Tensor(name, nil, a.F)
		case "value_floats":
			t = ir.Float32Tensor(name, []int64{int64(len(a.Floats))}, a.Floats...)
		case "value_int":
			t = ir.Int64Tensor(name, nil, a.I)
		case "value_ints":
			t = ir.Int64Tensor(name, []int64{int64(len(a.Ints))}, a.Ints...)
		default:
			continue
		}
		t.Name = name
		return t, nil
	}
	return nil, errors.New("no supported value attribute")
}

func convertAttribute(a *onnx.AttributeProto, declared *catalog.ForeignOp, modelPath string) (*ir.AttrValue, error) {
	switch a.Type {
	case onnx.AttributeProtoFloat:
		return ir.FloatAttr(float64(a.F)), nil
	case onnx.AttributeProtoInt:
		if declared != nil {
			if d, ok := declared.Attr(a.Name); ok && d.Type == ir.AttrDataType {
				dt := DataType(int32(a.I))
				if dt == ir.Undefined {
					return nil, errors.Errorf("unsupported ONNX data type %d", a.I)
				}
				return ir.DataTypeAttr(dt), nil
			}
		}
		return ir.IntAttr(a.I), nil
	case onnx.AttributeProtoString:
		return ir.StringAttr(string(a.S)), nil
	case onnx.AttributeProtoTensor:
		if a.T == nil {
			return nil, errors.New("tensor attribute holds no tensor")
		}
		t, err := convertTensor(a.T, modelPath)
		if err != nil {
			return nil, err
		}
		return ir.TensorAttr(t), nil
	case onnx.AttributeProtoFloats:
		vals := make([]float64, len(a.Floats))
		for i, f := range a.Floats {
			vals[i] = float64(f)
		}
		return ir.FloatsAttr(vals...), nil
	case onnx.AttributeProtoInts:
		return ir.IntsAttr(a.Ints...), nil
	case onnx.AttributeProtoStrings:
		vals := make([]string, len(a.Strings))
		for i, s := range a.Strings {
			vals[i] = string(s)
		}
		return ir.StringsAttr(vals...), nil
	case onnx.AttributeProtoTensors:
		v := &ir.AttrValue{Type: ir.AttrListTensor}
		for i := range a.Tensors {
			t, err := convertTensor(&a.Tensors[i], modelPath)
			if err != nil {
				return nil, err
			}
			v.Tensors = append(v.Tensors, t)
		}
		return v, nil
	}
	// Subgraph attributes are not imported.
	return nil, nil
}

// FrameworkName returns "onnx".
func (g *Graph) FrameworkName() string { return FrameworkName }

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Opset returns the default domain opset version.
func (g *Graph) Opset() int64 { return g.opset }

// Len returns the number of nodes to translate.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns a view of node i.
func (g *Graph) Node(i int) mapping.View { return &nodeView{g: g, n: &g.nodes[i]} }

// Inputs returns the graph inputs that are not initializers.
func (g *Graph) Inputs() []ir.ValueInfo { return g.inputs }

// Outputs returns the graph outputs.
func (g *Graph) Outputs() []ir.ValueInfo { return g.outputs }

// Constants returns initializers and Constant node outputs.
func (g *Graph) Constants() map[string]*ir.Tensor { return g.constants }

type nodeView struct {
	g *Graph
	n *node
}

func (v *nodeView) FrameworkName() string { return FrameworkName }
func (v *nodeView) NodeName() string      { return v.n.name }
func (v *nodeView) OpType() string        { return v.n.proto.OpType }
func (v *nodeView) Inputs() []string      { return v.n.proto.Inputs }
func (v *nodeView) Outputs() []string     { return v.n.proto.Outputs }

// Attribute returns the node attribute name. An omitted attribute whose
// default changed between opsets resolves to the default of the graph's
// opset; the catalog declares the current one.
func (v *nodeView) Attribute(name string) (*ir.AttrValue, bool) {
	if a, ok := v.n.attrs[name]; ok {
		return a, true
	}
	return opsetDefault(v.n.proto.OpType, name, v.g.opset)
}

// opsetDefaults lists attribute defaults that held before opset until.
var opsetDefaults = []struct {
	op, attr string
	until    int64
	value    *ir.AttrValue
}{
	{"Softmax", "axis", 13, ir.IntAttr(1)},
}

func opsetDefault(op, attr string, opset int64) (*ir.AttrValue, bool) {
	if opset <= 0 {
		return nil, false
	}
	for _, d := range opsetDefaults {
		if d.op == op && d.attr == attr && opset < d.until {
			return d.value, true
		}
	}
	return nil, false
}

func (v *nodeView) AttributeNames() []string {
	names := make([]string, 0, len(v.n.attrs))
	for name := range v.n.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (v *nodeView) GraphTensor(name string) *ir.Tensor {
	if t, ok := v.g.constants[name]; ok {
		return t
	}
	if t, ok := v.g.values[name]; ok {
		return t
	}
	return nil
}
