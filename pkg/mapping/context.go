// Package mapping translates foreign graph nodes into target op arguments.
//
// A Rule turns a declared correspondence between target argument names and
// foreign attribute or input names into typed ir.ArgDescriptors. Rules are
// grouped per foreign op into a Process, and a ProcessRegistry holds the
// processes of one source framework. Every node visit gets its own Context,
// which binds the node's View to the target op catalog and the foreign op
// signature.
package mapping

import (
	"fmt"

	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/ir"
)

// AllInputs may be used as a foreign name to refer to every node input.
const AllInputs = "*"

// View is a read-only view of one foreign node and the graph around it.
type View interface {
	FrameworkName() string
	NodeName() string
	OpType() string
	// Inputs are the node's data inputs in positional order. Omitted
	// optional inputs are empty strings.
	Inputs() []string
	Outputs() []string
	Attribute(name string) (*ir.AttrValue, bool)
	AttributeNames() []string
	// GraphTensor returns the tensor the graph knows by name: a constant
	// with data, or a placeholder carrying whatever shape is known. It
	// returns nil when the name is unknown to the graph.
	GraphTensor(name string) *ir.Tensor
}

// Context is the state of one node visit. It is not safe for concurrent
// use and must not outlive the visit.
type Context struct {
	view     View
	catalog  *catalog.Catalog
	foreign  *catalog.ForeignOp
	targetOp *ir.OpDescriptor
	bindings map[string][]string
}

// NewContext binds view to the target op targetOp of cat. foreign is the
// declared signature of the node's op and may be nil, in which case
// foreign names resolve only against attributes and literal tensor names.
func NewContext(view View, cat *catalog.Catalog, foreign *catalog.ForeignOp, targetOp string) (*Context, error) {
	op, err := cat.FindOp(targetOp)
	if err != nil {
		return nil, &Error{Kind: IndexResolutionFailure, Node: view.NodeName(), Name: targetOp, Msg: err.Error()}
	}
	c := &Context{view: view, catalog: cat, foreign: foreign, targetOp: op}
	if foreign != nil {
		var unbound []string
		c.bindings, unbound = foreign.Bind(view.Inputs())
		if len(unbound) > 0 {
			return nil, c.errorf(UnresolvedReference, "", unbound[0],
				"input matches no declared input of %s (%d declared)", foreign.Name, len(foreign.Inputs))
		}
	}
	return c, nil
}

// View returns the node view.
func (c *Context) View() View { return c.view }

// NodeName returns the foreign node name.
func (c *Context) NodeName() string { return c.view.NodeName() }

// NodeOpName returns the foreign op type.
func (c *Context) NodeOpName() string { return c.view.OpType() }

// TargetOpName returns the target op the node is translated into.
func (c *Context) TargetOpName() string { return c.targetOp.Name }

// OpDescriptor returns the target op signature.
func (c *Context) OpDescriptor() *ir.OpDescriptor { return c.targetOp }

// ForeignOp returns the declared foreign op signature, or nil.
func (c *Context) ForeignOp() *catalog.ForeignOp { return c.foreign }

// AttributeFor returns the node attribute named name, falling back to the
// default declared for the foreign op.
func (c *Context) AttributeFor(name string) (*ir.AttrValue, bool) {
	if v, ok := c.view.Attribute(name); ok {
		return v, true
	}
	if c.foreign != nil {
		if a, ok := c.foreign.Attr(name); ok && a.Default != nil {
			return a.Default, true
		}
	}
	return nil, false
}

// InputsFor returns the node input names name refers to: every input for
// AllInputs, the inputs bound to a declared foreign arg, or name itself
// when it is one of the node's inputs.
func (c *Context) InputsFor(name string) []string {
	if name == AllInputs {
		var out []string
		for _, in := range c.view.Inputs() {
			if in != "" {
				out = append(out, in)
			}
		}
		return out
	}
	if c.foreign != nil {
		if _, ok := c.foreign.Input(name); ok {
			return c.bindings[name]
		}
	}
	for _, in := range c.view.Inputs() {
		if in != "" && in == name {
			return []string{name}
		}
	}
	return nil
}

// TensorInputFor resolves name to a tensor. A tensor attribute wins over a
// declared input, which wins over a graph tensor of that name. Some
// frameworks carry constants as separate graph nodes, so the last step lets
// a rule reach them by name.
func (c *Context) TensorInputFor(name string) (*ir.Tensor, error) {
	if v, ok := c.view.Attribute(name); ok && v.Type == ir.AttrTensor && v.Tensor != nil {
		return v.Tensor, nil
	}
	if inputs := c.InputsFor(name); len(inputs) > 0 {
		return c.tensorNamed(inputs[0]), nil
	}
	if t := c.view.GraphTensor(name); t != nil {
		return t, nil
	}
	return nil, c.errorf(UnresolvedReference, "", name, "no attribute, input or graph tensor of that name")
}

// tensorNamed returns the graph tensor of a node input. Inputs produced by
// nodes the graph has no shape for resolve to a shapeless placeholder.
func (c *Context) tensorNamed(input string) *ir.Tensor {
	if t := c.view.GraphTensor(input); t != nil {
		return t
	}
	return &ir.Tensor{Name: input}
}

// ResolveType classifies the value a foreign name refers to.
func (c *Context) ResolveType(name string) (ir.AttributeValueType, error) {
	if v, ok := c.AttributeFor(name); ok {
		return v.Type, nil
	}
	if name == AllInputs {
		return ir.AttrListTensor, nil
	}
	if c.foreign != nil {
		if a, ok := c.foreign.Input(name); ok {
			if a.Variadic {
				return ir.AttrListTensor, nil
			}
			if len(c.bindings[name]) > 0 {
				return ir.AttrTensor, nil
			}
			return ir.AttrInvalid, c.errorf(UnresolvedReference, "", name, "declared input is not connected")
		}
	}
	if len(c.InputsFor(name)) > 0 || c.view.GraphTensor(name) != nil {
		return ir.AttrTensor, nil
	}
	return ir.AttrInvalid, c.errorf(UnresolvedReference, "", name, "no attribute, input or graph tensor of that name")
}

// IsAbsentOptional reports whether name is a declared optional input or
// attribute the node does not provide. Older opsets pass some inputs as
// attributes, so an attribute of that name counts as provided.
func (c *Context) IsAbsentOptional(name string) bool {
	if c.foreign == nil {
		return false
	}
	if _, ok := c.view.Attribute(name); ok {
		return false
	}
	if a, ok := c.foreign.Input(name); ok {
		return a.Optional && len(c.bindings[name]) == 0
	}
	if a, ok := c.foreign.Attr(name); ok {
		_, present := c.AttributeFor(name)
		return a.Optional && !present
	}
	return false
}

// IsInputTensorName reports whether the node input name carries data. An
// input bound to a foreign arg declared as an attribute carries a
// configuration value instead and is not a tensor input.
func (c *Context) IsInputTensorName(name string) bool {
	if name == "" {
		return false
	}
	if c.foreign == nil {
		return true
	}
	for _, a := range c.foreign.Inputs {
		for _, bound := range c.bindings[a.Name] {
			if bound == name {
				return !a.Attribute
			}
		}
	}
	return true
}

// IsOutputTensorName reports whether name is an INPUT_TENSOR argument of
// the target op.
func (c *Context) IsOutputTensorName(name string) bool {
	_, ok := c.targetOp.Arg(name, ir.ArgInputTensor)
	return ok
}

// ArgIndex returns the position of the target arg name among the target
// op's args of type t.
func (c *Context) ArgIndex(rule, name string, t ir.ArgType) (int, error) {
	idx, err := c.catalog.LookupArgIndex(c.targetOp.Name, name, t)
	if err != nil {
		return 0, c.errorf(IndexResolutionFailure, rule, name, "%v", err)
	}
	return idx, nil
}

// ArgType returns the type of the target op's non-tensor argument name.
func (c *Context) ArgType(rule, name string) (ir.ArgType, error) {
	for _, a := range c.targetOp.Args {
		if a.Name == name && !a.ArgType.IsTensor() {
			return a.ArgType, nil
		}
	}
	return ir.ArgUnknown, c.errorf(IndexResolutionFailure, rule, name,
		"target op %q has no attribute argument of that name", c.targetOp.Name)
}

func (c *Context) errorf(kind ErrorKind, rule, name, format string, args ...any) *Error {
	return &Error{Kind: kind, Node: c.view.NodeName(), Rule: rule, Name: name, Msg: fmt.Sprintf(format, args...)}
}
