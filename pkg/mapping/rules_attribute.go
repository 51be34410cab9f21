package mapping

import (
	"sort"

	"github.com/zerfoo/zimport/pkg/ir"
)

var builtinAttributeRules = map[string]Factory{
	"valuemapping":                    func(b Base) Rule { return &valueMapping{b} },
	"ndarraysizeat":                   func(b Base) Rule { return &ndarraySizeAt{b} },
	"listattributevaluelookuptoindex": func(b Base) Rule { return &listValueAtIndex{b} },
	"conditionalfieldvalueintindex":   func(b Base) Rule { return &conditionalIndex{b} },
	"listnumbertolistnumber":          func(b Base) Rule { return &listNumbers{b} },
	"ndarraytointattributevalue":      func(b Base) Rule { return &ndarrayToInts{b} },
	"datatypetoint":                   func(b Base) Rule { return &dataTypeToInt{b} },
	"datatypemapping":                 func(b Base) Rule { return &dataTypeMapping{b} },
	"invertbooleannumber":             func(b Base) Rule { return &invertBoolean{b} },
	"stringequals":                    func(b Base) Rule { return &stringEquals{b} },
	"argdescriptorconstant":           func(b Base) Rule { return &argConstant{b} },
}

// scalar emits v as the target arg target, coerced to the arg's declared
// type, at the target's index plus offset.
func (b *Base) scalar(ctx *Context, target, name string, v *ir.AttrValue, offset int) (ir.ArgDescriptor, error) {
	t, err := ctx.ArgType(b.Name(), target)
	if err != nil {
		return ir.ArgDescriptor{}, err
	}
	d, ok := coerce(t, v)
	if !ok {
		return d, b.errorf(ctx, UnsupportedType, target, "cannot represent %s value as %s", v.Type, t)
	}
	idx, err := ctx.ArgIndex(b.Name(), target, t)
	if err != nil {
		return d, err
	}
	d.Name = name
	d.ArgIndex = idx + offset
	return d, nil
}

func (b *Base) attribute(ctx *Context, name string) (*ir.AttrValue, error) {
	v, ok := ctx.AttributeFor(name)
	if !ok {
		return nil, b.errorf(ctx, UnresolvedReference, name, "node has no attribute of that name")
	}
	return v, nil
}

// index returns the integer transformer arg of target, counted from the end
// when negative, checked against n.
func (b *Base) index(ctx *Context, target string, n int) (int, error) {
	arg, err := b.transformerArg(ctx, target)
	if err != nil {
		return 0, err
	}
	return b.indexOf(ctx, target, arg, n)
}

func (b *Base) indexOf(ctx *Context, target string, arg ir.ArgDescriptor, n int) (int, error) {
	if !arg.ArgType.IsInteger() {
		return 0, b.errorf(ctx, InvalidTransformerArg, target, "index must be an integer, got %s", arg.ArgType)
	}
	i := int(arg.Int64Value)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, b.errorf(ctx, InvalidTransformerArg, target, "index %d out of range for length %d", arg.Int64Value, n)
	}
	return i, nil
}

// valueMapping passes a scalar attribute through, converting it to the
// target arg type.
type valueMapping struct{ Base }

func (r *valueMapping) AcceptsInputType(t ir.AttributeValueType) bool {
	return oneOf(t, ir.AttrInt, ir.AttrFloat, ir.AttrString, ir.AttrBool, ir.AttrDataType)
}

func (r *valueMapping) OutputsType(types []ir.ArgType) bool { return typesIn(types, scalarArgTypes...) }

func (r *valueMapping) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		v, err := r.attribute(ctx, p.Foreign)
		if err != nil {
			return err
		}
		d, err := r.scalar(ctx, p.Target, p.Target, v, 0)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// ndarraySizeAt extracts one dimension of a tensor's shape. The dimension
// index is the transformer arg of the target name. A tensor without shape
// dimensions yields -1. The emitted arg is named after the foreign tensor.
type ndarraySizeAt struct{ Base }

func (r *ndarraySizeAt) AcceptsInputType(t ir.AttributeValueType) bool {
	return t == ir.AttrTensor
}

func (r *ndarraySizeAt) OutputsType(types []ir.ArgType) bool { return typesIn(types, integerArgTypes...) }

func (r *ndarraySizeAt) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		tensor, err := ctx.TensorInputFor(p.Foreign)
		if err != nil {
			return err
		}
		size := int64(-1)
		if len(tensor.Dims) == 0 {
			if _, err := r.transformerArg(ctx, p.Target); err != nil {
				return err
			}
		} else {
			i, err := r.index(ctx, p.Target, len(tensor.Dims))
			if err != nil {
				return err
			}
			size = tensor.Dims[i]
		}
		d, err := r.scalar(ctx, p.Target, p.Foreign, ir.IntAttr(size), 0)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// listValueAtIndex picks one element of a list attribute.
type listValueAtIndex struct{ Base }

func (r *listValueAtIndex) AcceptsInputType(t ir.AttributeValueType) bool {
	return oneOf(t, ir.AttrListInt, ir.AttrListFloat, ir.AttrListString, ir.AttrListBool)
}

func (r *listValueAtIndex) OutputsType(types []ir.ArgType) bool {
	return typesIn(types, scalarArgTypes...)
}

func (r *listValueAtIndex) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		v, err := r.attribute(ctx, p.Foreign)
		if err != nil {
			return err
		}
		elems := elements(v)
		i, err := r.index(ctx, p.Target, len(elems))
		if err != nil {
			return err
		}
		d, err := r.scalar(ctx, p.Target, p.Target, elems[i], 0)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// conditionalIndex picks one element of a list attribute at a position
// chosen by another string attribute. A target's transformer args are a
// STRING arg whose name is the attribute to test and whose value is the
// value to compare with, then the index used on a match, then the index
// used otherwise.
type conditionalIndex struct{ Base }

func (r *conditionalIndex) AcceptsInputType(t ir.AttributeValueType) bool {
	return oneOf(t, ir.AttrListInt, ir.AttrListFloat, ir.AttrListString, ir.AttrListBool)
}

func (r *conditionalIndex) OutputsType(types []ir.ArgType) bool {
	return typesIn(types, scalarArgTypes...)
}

func (r *conditionalIndex) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		v, err := r.attribute(ctx, p.Foreign)
		if err != nil {
			return err
		}
		cfg := r.Args[p.Target]
		if len(cfg) != 3 {
			return r.errorf(ctx, MissingTransformerArg, p.Target, "rule needs a condition and two indexes, got %d args", len(cfg))
		}
		cond := cfg[0]
		if cond.ArgType != ir.ArgString {
			return r.errorf(ctx, InvalidTransformerArg, p.Target, "condition must be a STRING, got %s", cond.ArgType)
		}
		field, err := r.attribute(ctx, cond.Name)
		if err != nil {
			return err
		}
		if field.Type != ir.AttrString {
			return r.errorf(ctx, UnsupportedType, cond.Name, "condition attribute is %s, not STRING", field.Type)
		}
		pick := cfg[2]
		if field.String == cond.StringValue {
			pick = cfg[1]
		}
		elems := elements(v)
		i, err := r.indexOf(ctx, p.Target, pick, len(elems))
		if err != nil {
			return err
		}
		d, err := r.scalar(ctx, p.Target, p.Target, elems[i], 0)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// listNumbers expands a numeric list attribute into consecutive args
// starting at the target's index.
type listNumbers struct{ Base }

func (r *listNumbers) AcceptsInputType(t ir.AttributeValueType) bool {
	return oneOf(t, ir.AttrListInt, ir.AttrListFloat)
}

func (r *listNumbers) OutputsType(types []ir.ArgType) bool { return typesIn(types, numericArgTypes...) }

func (r *listNumbers) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		v, err := r.attribute(ctx, p.Foreign)
		if err != nil {
			return err
		}
		for i, e := range elements(v) {
			d, err := r.scalar(ctx, p.Target, p.Target, e, i)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	return out, err
}

// ndarrayToInts expands the values of a constant tensor into consecutive
// numeric args. Older graphs carry the same values as an integer list
// attribute, which is accepted too.
type ndarrayToInts struct{ Base }

func (r *ndarrayToInts) AcceptsInputType(t ir.AttributeValueType) bool {
	return oneOf(t, ir.AttrTensor, ir.AttrListInt)
}

func (r *ndarrayToInts) OutputsType(types []ir.ArgType) bool { return typesIn(types, numericArgTypes...) }

func (r *ndarrayToInts) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		var elems []*ir.AttrValue
		if v, ok := ctx.AttributeFor(p.Foreign); ok && v.Type == ir.AttrListInt {
			elems = elements(v)
		} else {
			tensor, err := ctx.TensorInputFor(p.Foreign)
			if err != nil {
				return err
			}
			if !tensor.HasData() {
				return r.errorf(ctx, UnresolvedReference, p.Foreign, "tensor %q has no constant value", tensor.Name)
			}
			if tensor.DataType.IsFloat() {
				vals, err := tensor.Float64s()
				if err != nil {
					return r.errorf(ctx, UnsupportedType, p.Foreign, "%v", err)
				}
				for _, x := range vals {
					elems = append(elems, ir.FloatAttr(x))
				}
			} else {
				vals, err := tensor.Int64s()
				if err != nil {
					return r.errorf(ctx, UnsupportedType, p.Foreign, "%v", err)
				}
				for _, x := range vals {
					elems = append(elems, ir.IntAttr(x))
				}
			}
		}
		for i, e := range elems {
			d, err := r.scalar(ctx, p.Target, p.Target, e, i)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	return out, err
}

// dataTypeToInt emits the numeric code of a data type attribute.
type dataTypeToInt struct{ Base }

func (r *dataTypeToInt) AcceptsInputType(t ir.AttributeValueType) bool {
	return t == ir.AttrDataType
}

func (r *dataTypeToInt) OutputsType(types []ir.ArgType) bool { return typesIn(types, integerArgTypes...) }

func (r *dataTypeToInt) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		v, err := r.attribute(ctx, p.Foreign)
		if err != nil {
			return err
		}
		d, err := r.scalar(ctx, p.Target, p.Target, ir.IntAttr(int64(v.DataType)), 0)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// dataTypeMapping passes a data type attribute through.
type dataTypeMapping struct{ Base }

func (r *dataTypeMapping) AcceptsInputType(t ir.AttributeValueType) bool {
	return t == ir.AttrDataType
}

func (r *dataTypeMapping) OutputsType(types []ir.ArgType) bool {
	return typesIn(types, ir.ArgDataType)
}

func (r *dataTypeMapping) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		v, err := r.attribute(ctx, p.Foreign)
		if err != nil {
			return err
		}
		d, err := r.scalar(ctx, p.Target, p.Target, v, 0)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// invertBoolean negates a boolean, or a number read as a boolean.
type invertBoolean struct{ Base }

func (r *invertBoolean) AcceptsInputType(t ir.AttributeValueType) bool {
	return oneOf(t, ir.AttrBool, ir.AttrInt)
}

func (r *invertBoolean) OutputsType(types []ir.ArgType) bool { return typesIn(types, flagArgTypes...) }

func (r *invertBoolean) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		v, err := r.attribute(ctx, p.Foreign)
		if err != nil {
			return err
		}
		set, _ := v.AsInt64()
		d, err := r.scalar(ctx, p.Target, p.Target, ir.BoolAttr(set == 0), 0)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// stringEquals compares a string attribute with the target's transformer
// args. It yields true when the attribute equals any of them.
type stringEquals struct{ Base }

func (r *stringEquals) AcceptsInputType(t ir.AttributeValueType) bool {
	return t == ir.AttrString
}

func (r *stringEquals) OutputsType(types []ir.ArgType) bool { return typesIn(types, flagArgTypes...) }

func (r *stringEquals) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	err := r.pairs(ctx, func(p NamePair) error {
		v, err := r.attribute(ctx, p.Foreign)
		if err != nil {
			return err
		}
		if _, err := r.transformerArg(ctx, p.Target); err != nil {
			return err
		}
		match := false
		for _, want := range r.Args[p.Target] {
			if want.ArgType != ir.ArgString {
				return r.errorf(ctx, InvalidTransformerArg, p.Target, "comparison value must be a STRING, got %s", want.ArgType)
			}
			match = match || v.String == want.StringValue
		}
		d, err := r.scalar(ctx, p.Target, p.Target, ir.BoolAttr(match), 0)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// argConstant emits its transformer args as fixed values. It has no
// mappings; the transformer arg keys are the target names.
type argConstant struct{ Base }

func (r *argConstant) AcceptsInputType(ir.AttributeValueType) bool { return false }

func (r *argConstant) OutputsType(types []ir.ArgType) bool { return typesIn(types, scalarArgTypes...) }

// Targets returns the transformer arg keys in sorted order.
func (r *argConstant) Targets() []string {
	keys := make([]string, 0, len(r.Args))
	for k := range r.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *argConstant) ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error) {
	var out []ir.ArgDescriptor
	for _, target := range r.Targets() {
		for i, c := range r.Args[target] {
			d, err := r.scalar(ctx, target, target, descriptorValue(c), i)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	return out, nil
}
