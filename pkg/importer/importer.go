// Package importer drives the translation of a foreign graph: it walks the
// nodes in order, applies the mapping process of each node's op type and
// assembles the target graph.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zerfoo/zimport/internal/metrics"
	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/ir"
	"github.com/zerfoo/zimport/pkg/mapping"
)

// ErrUnsupportedOp is returned for a node whose op type has no mapping.
var ErrUnsupportedOp = errors.New("unsupported op")

// Graph is a foreign graph prepared for import.
type Graph interface {
	FrameworkName() string
	Name() string
	// Len returns the number of nodes to translate.
	Len() int
	Node(i int) mapping.View
	Inputs() []ir.ValueInfo
	Outputs() []ir.ValueInfo
	// Constants returns the graph's constant tensors by name.
	Constants() map[string]*ir.Tensor
}

// Versioned is implemented by graphs that know their opset or producer
// version.
type Versioned interface {
	Opset() int64
}

// NodeError reports the failure of one node.
type NodeError struct {
	Graph    string
	Index    int
	Node     string
	OpType   string
	TargetOp string
	Rule     string
	Err      error
}

func (e *NodeError) Error() string {
	target := e.TargetOp
	if target == "" {
		target = "?"
	}
	s := fmt.Sprintf("graph %q node %d %q (%s -> %s)", e.Graph, e.Index, e.Node, e.OpType, target)
	if e.Rule != "" {
		s += fmt.Sprintf(" rule %q", e.Rule)
	}
	return s + ": " + e.Err.Error()
}

func (e *NodeError) Unwrap() error { return e.Err }

// NodeErrorHandler decides what happens when a node fails. Returning nil
// skips the node; returning an error aborts the import with it.
type NodeErrorHandler func(err *NodeError) error

// SkipNodes is a NodeErrorHandler that skips every failing node.
func SkipNodes(*NodeError) error { return nil }

// Option configures an ImportGraph.
type Option func(*ImportGraph)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *ImportGraph) { g.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(g *ImportGraph) { g.metrics = r }
}

// WithNodeErrorHandler sets the node failure policy. Without one, the first
// failing node aborts the import.
func WithNodeErrorHandler(h NodeErrorHandler) Option {
	return func(g *ImportGraph) { g.onNodeError = h }
}

// ImportGraph is a configured import pipeline for one framework. The
// processes and catalogs it references are shared read-only; the pipeline
// itself keeps no state between imports.
type ImportGraph struct {
	framework   string
	processes   *mapping.ProcessRegistry
	catalog     *catalog.Catalog
	foreign     *catalog.ForeignCatalog
	log         logrus.FieldLogger
	metrics     *metrics.Recorder
	onNodeError NodeErrorHandler
}

// New creates a pipeline. foreign may be nil when the framework has no op
// signature catalog.
func New(framework string, processes *mapping.ProcessRegistry, cat *catalog.Catalog, foreign *catalog.ForeignCatalog, opts ...Option) *ImportGraph {
	g := &ImportGraph{
		framework: framework,
		processes: processes,
		catalog:   cat,
		foreign:   foreign,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Framework returns the framework name.
func (g *ImportGraph) Framework() string { return g.framework }

// Processes returns the op mappings of the pipeline.
func (g *ImportGraph) Processes() *mapping.ProcessRegistry { return g.processes }

// Import translates graph. Nodes are visited in order and ctx is checked
// between nodes.
func (g *ImportGraph) Import(ctx context.Context, graph Graph) (*ir.Graph, error) {
	start := time.Now()
	out, err := g.importGraph(ctx, graph)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	g.metrics.Graph(g.framework, result, time.Since(start))
	return out, err
}

func (g *ImportGraph) importGraph(ctx context.Context, graph Graph) (*ir.Graph, error) {
	if graph.FrameworkName() != g.framework {
		return nil, errors.Errorf("%s pipeline cannot import a %s graph", g.framework, graph.FrameworkName())
	}
	log := g.log.WithFields(logrus.Fields{"framework": g.framework, "graph": graph.Name()})

	out := ir.NewGraph(graph.Name(), g.framework)
	out.Inputs = graph.Inputs()
	out.Outputs = graph.Outputs()
	if v, ok := graph.(Versioned); ok {
		out.Opset = v.Opset()
	}
	constants := graph.Constants()

	skipped := 0
	for i := 0; i < graph.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "import of %q interrupted at node %d", graph.Name(), i)
		}
		view := graph.Node(i)
		node, nerr := g.importNode(i, graph.Name(), view)
		if nerr != nil {
			log.WithFields(logrus.Fields{
				"node": nerr.Node,
				"op":   nerr.OpType,
				"rule": nerr.Rule,
			}).WithError(nerr.Err).Error("node translation failed")
			g.metrics.Node(g.framework, view.OpType(), metrics.ResultError)
			if g.onNodeError == nil {
				return nil, nerr
			}
			if err := g.onNodeError(nerr); err != nil {
				return nil, err
			}
			g.metrics.Node(g.framework, view.OpType(), metrics.ResultSkipped)
			skipped++
			continue
		}

		for _, a := range node.ArgsOfType(ir.ArgInputTensor) {
			if c, ok := constants[a.InputValue.Name]; ok {
				out.Constants[a.InputValue.Name] = c
			}
		}
		out.Nodes = append(out.Nodes, node)
		g.metrics.Node(g.framework, view.OpType(), metrics.ResultOK)
		log.WithFields(logrus.Fields{
			"node":   node.Name,
			"op":     node.ForeignOp,
			"target": node.Op,
			"args":   len(node.Args),
		}).Debug("translated node")
	}

	log.WithFields(logrus.Fields{
		"nodes":     len(out.Nodes),
		"skipped":   skipped,
		"constants": len(out.Constants),
	}).Info("imported graph")
	return out, nil
}

func (g *ImportGraph) importNode(i int, graphName string, view mapping.View) (*ir.Node, *NodeError) {
	nerr := &NodeError{Graph: graphName, Index: i, Node: view.NodeName(), OpType: view.OpType()}

	proc, ok := g.processes.Lookup(view.OpType())
	if !ok {
		nerr.Err = errors.Wrapf(ErrUnsupportedOp, "no %s mapping for %q", g.framework, view.OpType())
		return nil, nerr
	}
	nerr.TargetOp = proc.TargetOp

	var foreignOp *catalog.ForeignOp
	if g.foreign != nil {
		foreignOp, _ = g.foreign.Op(view.OpType())
	}
	mctx, err := mapping.NewContext(view, g.catalog, foreignOp, proc.TargetOp)
	if err == nil {
		var args []ir.ArgDescriptor
		if args, err = proc.Apply(mctx); err == nil {
			node := &ir.Node{
				Name:      view.NodeName(),
				Op:        proc.TargetOp,
				ForeignOp: view.OpType(),
				Outputs:   view.Outputs(),
				Args:      args,
			}
			for _, a := range node.ArgsOfType(ir.ArgInputTensor) {
				node.Inputs = append(node.Inputs, a.InputValue.Name)
			}
			return node, nil
		}
	}

	var me *mapping.Error
	if errors.As(err, &me) {
		nerr.Rule = me.Rule
	}
	nerr.Err = err
	return nil, nerr
}
