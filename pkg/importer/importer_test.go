package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerfoo/zimport/internal/metrics"
	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/ir"
	"github.com/zerfoo/zimport/pkg/mapping"
)

type node struct {
	name   string
	op     string
	inputs []string
	attrs  map[string]*ir.AttrValue
}

type graph struct {
	name      string
	nodes     []node
	constants map[string]*ir.Tensor
}

func (g *graph) FrameworkName() string            { return "fake" }
func (g *graph) Name() string                     { return g.name }
func (g *graph) Len() int                         { return len(g.nodes) }
func (g *graph) Inputs() []ir.ValueInfo           { return []ir.ValueInfo{{Name: "x", DataType: ir.Float}} }
func (g *graph) Outputs() []ir.ValueInfo          { return nil }
func (g *graph) Constants() map[string]*ir.Tensor { return g.constants }
func (g *graph) Opset() int64                     { return 13 }
func (g *graph) Node(i int) mapping.View          { return &view{g: g, n: g.nodes[i]} }

type view struct {
	g *graph
	n node
}

func (v *view) FrameworkName() string { return "fake" }
func (v *view) NodeName() string      { return v.n.name }
func (v *view) OpType() string        { return v.n.op }
func (v *view) Inputs() []string      { return v.n.inputs }
func (v *view) Outputs() []string     { return []string{v.n.name} }

func (v *view) Attribute(name string) (*ir.AttrValue, bool) {
	a, ok := v.n.attrs[name]
	return a, ok
}

func (v *view) AttributeNames() []string {
	var names []string
	for n := range v.n.attrs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (v *view) GraphTensor(name string) *ir.Tensor {
	if t, ok := v.g.constants[name]; ok {
		return t
	}
	return nil
}

func pipeline(t *testing.T, opts ...Option) *ImportGraph {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(`
ops:
  - name: add
    args:
      - {name: input, type: INPUT_TENSOR}
      - {name: y, type: INPUT_TENSOR}
  - name: softmax
    args:
      - {name: input, type: INPUT_TENSOR}
      - {name: dimension, type: INT64}
`))
	require.NoError(t, err)
	foreign, err := catalog.NewForeign("fake",
		catalog.ForeignOp{Name: "Add", Inputs: []catalog.ForeignArg{{Name: "a"}, {Name: "b"}}},
		catalog.ForeignOp{Name: "Softmax", Inputs: []catalog.ForeignArg{{Name: "logits"}},
			Attrs: []catalog.ForeignAttr{{Name: "axis", Type: ir.AttrInt, Default: ir.IntAttr(-1)}}},
	)
	require.NoError(t, err)

	b := mapping.NewProcessBuilder(mapping.NewRuleRegistry("fake"), cat)
	b.Map("Add", "add").Tensor("ndarraymapping", mapping.Names("input", "a", "y", "b"), nil)
	b.Map("Softmax", "softmax").
		Tensor("ndarraymapping", mapping.Names("input", "logits"), nil).
		Attribute("valuemapping", mapping.Names("dimension", "axis"), nil)
	procs, err := b.Build()
	require.NoError(t, err)

	logger, _ := logtest.NewNullLogger()
	return New("fake", procs, cat, foreign, append([]Option{WithLogger(logger)}, opts...)...)
}

func testGraph() *graph {
	return &graph{
		name: "g",
		nodes: []node{
			{name: "add0", op: "Add", inputs: []string{"x", "bias"}},
			{name: "sm", op: "Softmax", inputs: []string{"add0"}},
		},
		constants: map[string]*ir.Tensor{
			"bias":   ir.Float32Tensor("bias", []int64{1}, 1),
			"unused": ir.Float32Tensor("unused", []int64{1}, 2),
		},
	}
}

func TestImport(t *testing.T) {
	out, err := pipeline(t).Import(context.Background(), testGraph())
	require.NoError(t, err)

	assert.Equal(t, "fake", out.Framework)
	assert.Equal(t, int64(13), out.Opset)
	require.Len(t, out.Nodes, 2)

	add := out.Nodes[0]
	assert.Equal(t, "add", add.Op)
	assert.Equal(t, "Add", add.ForeignOp)
	assert.Equal(t, []string{"x", "bias"}, add.Inputs)

	sm := out.Nodes[1]
	assert.Equal(t, []string{"add0"}, sm.Inputs)
	dim, ok := sm.Arg("dimension")
	require.True(t, ok)
	assert.Equal(t, int64(-1), dim.Int64Value)

	assert.Contains(t, out.Constants, "bias")
	assert.NotContains(t, out.Constants, "unused")
	assert.Equal(t, map[string]int{"add": 1, "softmax": 1}, out.OpCounts())
}

func TestImportAbortsOnUnsupportedOp(t *testing.T) {
	g := testGraph()
	g.nodes = append(g.nodes, node{name: "weird", op: "Frobnicate"})

	_, err := pipeline(t).Import(context.Background(), g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedOp))

	var nerr *NodeError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, 2, nerr.Index)
	assert.Equal(t, "weird", nerr.Node)
	assert.Contains(t, err.Error(), "Frobnicate")
}

func TestImportAbortsOnMappingError(t *testing.T) {
	g := testGraph()
	g.nodes[0].inputs = []string{"x"}

	_, err := pipeline(t).Import(context.Background(), g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mapping.ErrUnresolvedReference))

	var nerr *NodeError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, "add0", nerr.Node)
	assert.Equal(t, "add", nerr.TargetOp)
	assert.Equal(t, "ndarraymapping", nerr.Rule)
}

func TestImportSkipsWithHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	require.NoError(t, err)

	g := testGraph()
	g.nodes = append([]node{{name: "weird", op: "Frobnicate"}}, g.nodes...)

	var seen []string
	handler := func(nerr *NodeError) error {
		seen = append(seen, nerr.Node)
		return nil
	}
	out, err := pipeline(t, WithNodeErrorHandler(handler), WithMetrics(rec)).Import(context.Background(), g)
	require.NoError(t, err)
	assert.Len(t, out.Nodes, 2)
	assert.Equal(t, []string{"weird"}, seen)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.NodesTotal.WithLabelValues("fake", "Frobnicate", metrics.ResultSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.NodesTotal.WithLabelValues("fake", "Add", metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.GraphsTotal.WithLabelValues("fake", metrics.ResultOK)))

	stop := errors.New("stop")
	_, err = pipeline(t, WithNodeErrorHandler(func(*NodeError) error { return stop })).Import(context.Background(), g)
	assert.Equal(t, stop, err)
}

func TestImportLogs(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := pipeline(t, WithLogger(logger)).Import(context.Background(), testGraph())
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "translated node", entries[0].Message)
	assert.Equal(t, "softmax", entries[1].Data["target"])
	assert.Equal(t, "imported graph", hook.LastEntry().Message)
	assert.Equal(t, 2, hook.LastEntry().Data["nodes"])
}

func TestImportFrameworkMismatch(t *testing.T) {
	cat, err := catalog.New()
	require.NoError(t, err)
	procs, err := mapping.NewProcessBuilder(mapping.NewRuleRegistry("onnx"), cat).Build()
	require.NoError(t, err)

	_, err = New("onnx", procs, cat, nil).Import(context.Background(), testGraph())
	assert.Error(t, err)
}

func TestImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline(t).Import(ctx, testGraph())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestImportAll(t *testing.T) {
	var graphs []Graph
	for i := 0; i < 8; i++ {
		g := testGraph()
		g.name = fmt.Sprintf("g%d", i)
		graphs = append(graphs, g)
	}
	newPipeline := func() (*ImportGraph, error) { return pipeline(t), nil }

	out, err := ImportAll(context.Background(), newPipeline, graphs, 3)
	require.NoError(t, err)
	require.Len(t, out, 8)
	for i, g := range out {
		assert.Equal(t, fmt.Sprintf("g%d", i), g.Name)
		assert.Len(t, g.Nodes, 2)
	}

	bad := testGraph()
	bad.nodes[0].op = "Frobnicate"
	_, err = ImportAll(context.Background(), newPipeline, append(graphs, bad), 0)
	assert.True(t, errors.Is(err, ErrUnsupportedOp))

	_, err = ImportAll(context.Background(), func() (*ImportGraph, error) {
		return nil, errors.New("no pipeline")
	}, graphs, 2)
	assert.Error(t, err)
}
