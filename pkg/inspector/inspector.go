// Package inspector prints human-readable summaries of model files.
package inspector

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/zerfoo/zmf"

	"github.com/zerfoo/zimport/internal/onnx"
	tf "github.com/zerfoo/zimport/internal/tensorflow"
	"github.com/zerfoo/zimport/pkg/converter"
)

// InspectONNX prints a summary of an ONNX model.
func InspectONNX(w io.Writer, inputFile string) error {
	fmt.Fprintf(w, "Inspecting ONNX model from: %s\n", inputFile)

	model, err := onnx.LoadFile(inputFile)
	if err != nil {
		return errors.Wrap(err, "failed to load ONNX model")
	}

	fmt.Fprintf(w, "Successfully loaded model with IR version: %d\n", model.IRVersion)
	if model.ProducerName != "" {
		fmt.Fprintf(w, "Producer: %s %s\n", model.ProducerName, model.ProducerVersion)
	}
	fmt.Fprintf(w, "Opset version: %d\n", model.Opset())
	if model.Graph == nil {
		fmt.Fprintln(w, "Model has no graph.")
		return nil
	}
	fmt.Fprintf(w, "Graph has %d nodes.\n", len(model.Graph.Nodes))
	fmt.Fprintf(w, "Graph has %d initializers.\n", len(model.Graph.Initializers))

	counts := make(map[string]int)
	for _, n := range model.Graph.Nodes {
		counts[n.OpType]++
	}
	printCounts(w, counts)
	return nil
}

// InspectTensorFlow prints a summary of a frozen TensorFlow graph.
func InspectTensorFlow(w io.Writer, inputFile string) error {
	fmt.Fprintf(w, "Inspecting TensorFlow graph from: %s\n", inputFile)

	graph, err := tf.LoadFile(inputFile)
	if err != nil {
		return errors.Wrap(err, "failed to load TensorFlow graph")
	}

	fmt.Fprintf(w, "Producer version: %d\n", graph.Producer)
	fmt.Fprintf(w, "Graph has %d nodes.\n", len(graph.Nodes))

	counts := make(map[string]int)
	for _, n := range graph.Nodes {
		counts[n.Op]++
	}
	printCounts(w, counts)
	return nil
}

// InspectZMF prints a summary of a ZMF model.
func InspectZMF(w io.Writer, inputFile string) error {
	fmt.Fprintf(w, "Inspecting ZMF model from: %s\n", inputFile)

	model, err := converter.Load(inputFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Producer: %s %s\n", model.GetMetadata().GetProducerName(), model.GetMetadata().GetProducerVersion())
	fmt.Fprintf(w, "Opset version: %d\n", model.GetMetadata().GetOpsetVersion())
	fmt.Fprintf(w, "Graph has %d nodes.\n", len(model.GetGraph().GetNodes()))
	fmt.Fprintf(w, "Graph has %d parameters.\n", len(model.GetGraph().GetParameters()))

	fmt.Fprintln(w, "\nNodes:")
	for _, node := range model.GetGraph().GetNodes() {
		printZMFNode(w, node)
	}
	return nil
}

func printZMFNode(w io.Writer, node *zmf.Node) {
	fmt.Fprintf(w, "- Node: %s, OpType: %s\n", node.GetName(), node.GetOpType())
	fmt.Fprintf(w, "  Inputs: %v\n", node.GetInputs())
	fmt.Fprintf(w, "  Outputs: %v\n", node.GetOutputs())
	attrs := node.GetAttributes()
	if len(attrs) == 0 {
		return
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "  Attributes:")
	for _, name := range names {
		fmt.Fprintf(w, "    - %s: %v\n", name, attrs[name].GetValue())
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	ops := make([]string, 0, len(counts))
	for op := range counts {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	fmt.Fprintln(w, "\nOp types:")
	for _, op := range ops {
		fmt.Fprintf(w, "- %s: %d\n", op, counts[op])
	}
}
