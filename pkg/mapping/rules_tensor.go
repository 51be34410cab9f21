package mapping

import (
	"github.com/zerfoo/zimport/pkg/ir"
)

var builtinTensorRules = map[string]Factory{
	"ndarraymapping":  func(b Base) Rule { return &ndarrayMapping{b} },
	"multiinputindex": func(b Base) Rule { return &multiInputIndex{b} },
	"passthrough":     func(b Base) Rule { return &passThrough{b} },
}

func (b *Base) tensorArg(ctx *Context, target string, tensor *ir.Tensor, offset int) (ir.ArgDescriptor, error) {
	idx, err := ctx.ArgIndex(b.Name(), target, ir.ArgInputTensor)
	if err != nil {
		return ir.ArgDescriptor{}, err
	}
	return ir.ArgDescriptor{
		Name:       target,
		ArgType:    ir.ArgInputTensor,
		ArgIndex:   idx + offset,
		InputValue: tensor,
	}, nil
}

// ndarrayMapping maps one foreign tensor to one target input.
type ndarrayMapping struct{ Base }

func (r *ndarrayMapping) AcceptsInputType(t ir.AttributeValueType) bool {
	return t == ir.AttrTensor
}

func (r *ndarrayMapping) OutputsType(types []ir.ArgType) bool {
	return typesIn(types, ir.ArgInputTensor)
}

func (r *ndarrayMapping) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		tensor, err := ctx.TensorInputFor(p.Foreign)
		if err != nil {
			return err
		}
		d, err := r.tensorArg(ctx, p.Target, tensor, 0)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// multiInputIndex maps a list of node inputs onto consecutive target input
// slots. Inputs that carry configuration rather than data are skipped, and
// targets that are not target op inputs are dropped.
type multiInputIndex struct{ Base }

func (r *multiInputIndex) AcceptsInputType(t ir.AttributeValueType) bool {
	return oneOf(t, ir.AttrTensor, ir.AttrListTensor)
}

func (r *multiInputIndex) OutputsType(types []ir.ArgType) bool {
	return typesIn(types, ir.ArgInputTensor)
}

// Targets is empty: unknown targets are dropped at conversion time.
func (r *multiInputIndex) Targets() []string { return nil }

func (r *multiInputIndex) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		if !ctx.IsOutputTensorName(p.Target) {
			return nil
		}
		inputs := ctx.InputsFor(p.Foreign)
		if len(inputs) == 0 {
			tensor, err := ctx.TensorInputFor(p.Foreign)
			if err != nil {
				return err
			}
			d, err := r.tensorArg(ctx, p.Target, tensor, 0)
			if err != nil {
				return err
			}
			out = append(out, d)
			return nil
		}
		n := 0
		for _, in := range inputs {
			if !ctx.IsInputTensorName(in) {
				continue
			}
			d, err := r.tensorArg(ctx, p.Target, ctx.tensorNamed(in), n)
			if err != nil {
				return err
			}
			out = append(out, d)
			n++
		}
		return nil
	})
	return out, err
}

// passThrough forwards every data input of the node, in order, to the
// target op's input slots. It takes no mappings.
type passThrough struct{ Base }

func (r *passThrough) AcceptsInputType(t ir.AttributeValueType) bool {
	return oneOf(t, ir.AttrTensor, ir.AttrListTensor)
}

func (r *passThrough) OutputsType(types []ir.ArgType) bool {
	return typesIn(types, ir.ArgInputTensor)
}

// Targets is empty: slots are taken from the target op signature.
func (r *passThrough) Targets() []string { return nil }

func (r *passThrough) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	slots := ctx.OpDescriptor().ArgsOfType(ir.ArgInputTensor)
	if len(slots) == 0 {
		return nil, r.errorf(ctx, IndexResolutionFailure, ctx.TargetOpName(), "target op takes no input tensors")
	}
	var out []ir.ArgDescriptor
	for _, in := range ctx.InputsFor(AllInputs) {
		if !ctx.IsInputTensorName(in) {
			continue
		}
		i := len(out)
		slot := slots[min(i, len(slots)-1)]
		out = append(out, ir.ArgDescriptor{
			Name:       slot.Name,
			ArgType:    ir.ArgInputTensor,
			ArgIndex:   i,
			InputValue: ctx.tensorNamed(in),
		})
	}
	return out, nil
}
