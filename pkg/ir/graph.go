package ir

// ValueInfo names a graph input or output and its shape.
type ValueInfo struct {
	Name     string
	DataType DataType
	Dims     []int64
}

// Node is one target op instance.
type Node struct {
	Name string
	// Op is the target op name.
	Op string
	// ForeignOp is the op type the node was imported from.
	ForeignOp string
	Inputs    []string
	Outputs   []string
	// Args are sorted by (ArgType, ArgIndex).
	Args []ArgDescriptor
}

// ArgsOfType returns the node's args of type t in ArgIndex order.
func (n *Node) ArgsOfType(t ArgType) []ArgDescriptor {
	var out []ArgDescriptor
	for _, a := range n.Args {
		if a.ArgType == t {
			out = append(out, a)
		}
	}
	return out
}

// Arg returns the node's arg named name.
func (n *Node) Arg(name string) (ArgDescriptor, bool) {
	for _, a := range n.Args {
		if a.Name == name {
			return a, true
		}
	}
	return ArgDescriptor{}, false
}

// Graph is the result of importing a foreign graph.
type Graph struct {
	Name      string
	Framework string
	// Opset is the foreign producer/opset version when the format has one.
	Opset     int64
	Nodes     []*Node
	Inputs    []ValueInfo
	Outputs   []ValueInfo
	Constants map[string]*Tensor
}

// NewGraph returns an empty graph.
func NewGraph(name, framework string) *Graph {
	return &Graph{Name: name, Framework: framework, Constants: make(map[string]*Tensor)}
}

// OpCounts returns the number of nodes per target op.
func (g *Graph) OpCounts() map[string]int {
	counts := make(map[string]int)
	for _, n := range g.Nodes {
		counts[n.Op]++
	}
	return counts
}
