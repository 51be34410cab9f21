package tfimport

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	tf "github.com/zerfoo/zimport/internal/tensorflow"
	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/ir"
	"github.com/zerfoo/zimport/pkg/mapping"
)

// Ops that describe the graph rather than compute in it.
const (
	opConst       = "Const"
	opPlaceholder = "Placeholder"
	opNoOp        = "NoOp"
)

// Graph is a frozen TensorFlow graph prepared for import. Const nodes become
// graph constants and Placeholder nodes become graph inputs.
type Graph struct {
	name      string
	producer  int64
	nodes     []node
	constants map[string]*ir.Tensor
	values    map[string]*ir.Tensor
	inputs    []ir.ValueInfo
	outputs   []ir.ValueInfo
}

type node struct {
	def    *tf.NodeDef
	inputs []string
	attrs  map[string]*ir.AttrValue
}

// LoadGraph reads a frozen GraphDef file. The graph is named after the file.
func LoadGraph(path string, foreign *catalog.ForeignCatalog) (*Graph, error) {
	def, err := tf.LoadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewGraph(name, def, foreign)
}

// inputName normalizes a node input reference. Control inputs ("^name")
// yield "", and the default output suffix ":0" is dropped.
func inputName(in string) string {
	if strings.HasPrefix(in, "^") {
		return ""
	}
	return strings.TrimSuffix(in, ":0")
}

// NewGraph prepares a decoded GraphDef. foreign supplies the declared
// attribute types used to type empty lists.
func NewGraph(name string, def *tf.GraphDef, foreign *catalog.ForeignCatalog) (*Graph, error) {
	g := &Graph{
		name:      name,
		producer:  int64(def.Producer),
		constants: make(map[string]*ir.Tensor),
		values:    make(map[string]*ir.Tensor),
	}
	consumed := make(map[string]bool)

	for i := range def.Nodes {
		d := &def.Nodes[i]
		switch d.Op {
		case opConst:
			v, ok := d.Attr["value"]
			if !ok || v.Tensor == nil {
				return nil, errors.Errorf("const node %q has no value", d.Name)
			}
			t, err := convertTensor(d.Name, v.Tensor)
			if err != nil {
				return nil, err
			}
			g.constants[d.Name] = t
			continue
		case opPlaceholder:
			vi := ir.ValueInfo{Name: d.Name}
			if a, ok := d.Attr["dtype"]; ok {
				vi.DataType = DataType(a.Type)
			}
			if a, ok := d.Attr["shape"]; ok && a.Shape != nil && !a.Shape.UnknownRank {
				vi.Dims = append([]int64{}, a.Shape.Dims...)
			}
			g.inputs = append(g.inputs, vi)
			g.values[d.Name] = ir.Placeholder(d.Name, vi.DataType, vi.Dims...)
			continue
		case opNoOp:
			continue
		}

		var declared *catalog.ForeignOp
		if foreign != nil {
			declared, _ = foreign.Op(d.Op)
		}
		n := node{def: d, attrs: make(map[string]*ir.AttrValue, len(d.Attr))}
		for _, in := range d.Input {
			if in = inputName(in); in != "" {
				n.inputs = append(n.inputs, in)
				consumed[in] = true
			}
		}
		for key, a := range d.Attr {
			if strings.HasPrefix(key, "_") {
				continue
			}
			v, err := convertAttr(d.Name, key, a, declared)
			if err != nil {
				return nil, err
			}
			if v != nil {
				n.attrs[key] = v
			}
		}
		g.values[d.Name] = outputValue(d)
		g.nodes = append(g.nodes, n)
	}

	for _, n := range g.nodes {
		if !consumed[n.def.Name] {
			t := g.values[n.def.Name]
			g.outputs = append(g.outputs, ir.ValueInfo{Name: t.Name, DataType: t.DataType, Dims: t.Dims})
		}
	}
	return g, nil
}

// outputValue describes the first output of d from its T attribute and the
// shapes recorded by the exporter.
func outputValue(d *tf.NodeDef) *ir.Tensor {
	t := &ir.Tensor{Name: d.Name}
	if a, ok := d.Attr["T"]; ok && a.Kind == tf.KindType {
		t.DataType = DataType(a.Type)
	}
	if a, ok := d.Attr["_output_shapes"]; ok && a.List != nil && len(a.List.Shape) > 0 {
		if s := a.List.Shape[0]; !s.UnknownRank {
			t.Dims = append([]int64{}, s.Dims...)
		}
	}
	return t
}

func convertAttr(node, key string, a *tf.AttrValue, declared *catalog.ForeignOp) (*ir.AttrValue, error) {
	switch a.Kind {
	case tf.KindString:
		return ir.StringAttr(string(a.S)), nil
	case tf.KindInt:
		return ir.IntAttr(a.I), nil
	case tf.KindFloat:
		return ir.FloatAttr(float64(a.F)), nil
	case tf.KindBool:
		return ir.BoolAttr(a.B), nil
	case tf.KindType:
		dt := DataType(a.Type)
		if dt == ir.Undefined {
			return nil, errors.Errorf("node %q attribute %q: unsupported data type %s", node, key, a.Type)
		}
		return ir.DataTypeAttr(dt), nil
	case tf.KindShape:
		if a.Shape == nil {
			return ir.IntsAttr(), nil
		}
		return ir.IntsAttr(a.Shape.Dims...), nil
	case tf.KindTensor:
		t, err := convertTensor(node+"/"+key, a.Tensor)
		if err != nil {
			return nil, err
		}
		return ir.TensorAttr(t), nil
	case tf.KindList:
		return convertList(node, key, a.List, declared)
	}
	return nil, nil
}

func convertList(node, key string, l *tf.AttrList, declared *catalog.ForeignOp) (*ir.AttrValue, error) {
	if l == nil {
		l = &tf.AttrList{}
	}
	switch {
	case len(l.I) > 0:
		return ir.IntsAttr(l.I...), nil
	case len(l.F) > 0:
		vals := make([]float64, len(l.F))
		for i, f := range l.F {
			vals[i] = float64(f)
		}
		return ir.FloatsAttr(vals...), nil
	case len(l.S) > 0:
		vals := make([]string, len(l.S))
		for i, s := range l.S {
			vals[i] = string(s)
		}
		return ir.StringsAttr(vals...), nil
	case len(l.B) > 0:
		return &ir.AttrValue{Type: ir.AttrListBool, Bools: l.B}, nil
	case len(l.Tensor) > 0:
		v := &ir.AttrValue{Type: ir.AttrListTensor}
		for i := range l.Tensor {
			t, err := convertTensor(node+"/"+key, &l.Tensor[i])
			if err != nil {
				return nil, err
			}
			v.Tensors = append(v.Tensors, t)
		}
		return v, nil
	case len(l.Type) > 0, len(l.Shape) > 0:
		// Type and shape lists describe signatures, not values.
		return nil, nil
	}
	// An empty list has no element kind on the wire.
	if declared != nil {
		if d, ok := declared.Attr(key); ok && d.Type.IsList() {
			return &ir.AttrValue{Type: d.Type}, nil
		}
	}
	return ir.IntsAttr(), nil
}

// FrameworkName returns "tensorflow".
func (g *Graph) FrameworkName() string { return FrameworkName }

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Opset returns the GraphDef producer version.
func (g *Graph) Opset() int64 { return g.producer }

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) Node(i int) mapping.View { return &nodeView{g: g, n: &g.nodes[i]} }

// Inputs returns the Placeholder nodes.
func (g *Graph) Inputs() []ir.ValueInfo { return g.inputs }

// Outputs returns the translated nodes no other node consumes.
func (g *Graph) Outputs() []ir.ValueInfo { return g.outputs }

// Constants returns the Const node values keyed by node name.
func (g *Graph) Constants() map[string]*ir.Tensor { return g.constants }

type nodeView struct {
	g *Graph
	n *node
}

func (v *nodeView) FrameworkName() string { return FrameworkName }
func (v *nodeView) NodeName() string      { return v.n.def.Name }
func (v *nodeView) OpType() string        { return v.n.def.Op }
func (v *nodeView) Inputs() []string      { return v.n.inputs }
func (v *nodeView) Outputs() []string     { return []string{v.n.def.Name} }

func (v *nodeView) Attribute(name string) (*ir.AttrValue, bool) {
	a, ok := v.n.attrs[name]
	return a, ok
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
