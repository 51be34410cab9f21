package mapping

import (
	"github.com/zerfoo/zimport/pkg/ir"
)

// coerce converts a scalar foreign value into a descriptor of type t.
func coerce(t ir.ArgType, v *ir.AttrValue) (ir.ArgDescriptor, bool) {
	d := ir.ArgDescriptor{ArgType: t}
	switch t {
	case ir.ArgInt32, ir.ArgInt64:
		i, ok := v.AsInt64()
		if !ok {
			return d, false
		}
		d.Int64Value = i
	case ir.ArgFloat, ir.ArgDouble:
		f, ok := v.AsFloat64()
		if !ok {
			return d, false
		}
		d.FloatValue, d.DoubleValue = float32(f), f
	case ir.ArgBool:
		switch v.Type {
		case ir.AttrBool:
			d.BoolValue = v.Bool
		case ir.AttrInt:
			d.BoolValue = v.Int != 0
		case ir.AttrFloat:
			d.BoolValue = v.Float != 0
		default:
			return d, false
		}
	case ir.ArgString:
		if v.Type != ir.AttrString {
			return d, false
		}
		d.StringValue = v.String
	case ir.ArgDataType:
		if v.Type != ir.AttrDataType {
			return d, false
		}
		d.DataTypeValue = v.DataType
	default:
		return d, false
	}
	return d, true
}

// elements splits a list attribute into scalar values.
func elements(v *ir.AttrValue) []*ir.AttrValue {
	var out []*ir.AttrValue
	switch v.Type {
	case ir.AttrListInt:
		for _, x := range v.Ints {
			out = append(out, ir.IntAttr(x))
		}
	case ir.AttrListFloat:
		for _, x := range v.Floats {
			out = append(out, ir.FloatAttr(x))
		}
	case ir.AttrListString:
		for _, x := range v.Strings {
			out = append(out, ir.StringAttr(x))
		}
	case ir.AttrListBool:
		for _, x := range v.Bools {
			out = append(out, ir.BoolAttr(x))
		}
	}
	return out
}

// descriptorValue turns a configured descriptor back into a foreign value so
// constants can be coerced to the target arg type.
func descriptorValue(d ir.ArgDescriptor) *ir.AttrValue {
	switch d.ArgType {
	case ir.ArgInt32, ir.ArgInt64:
		return ir.IntAttr(d.Int64Value)
	case ir.ArgFloat:
		return ir.FloatAttr(float64(d.FloatValue))
	case ir.ArgDouble:
		return ir.FloatAttr(d.DoubleValue)
	case ir.ArgBool:
		return ir.BoolAttr(d.BoolValue)
	case ir.ArgString:
		return ir.StringAttr(d.StringValue)
	case ir.ArgDataType:
		return ir.DataTypeAttr(d.DataTypeValue)
	}
	return &ir.AttrValue{}
}

func typesIn(types []ir.ArgType, allowed ...ir.ArgType) bool {
	for _, t := range types {
		ok := false
		for _, a := range allowed {
			if t == a {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func oneOf(t ir.AttributeValueType, allowed ...ir.AttributeValueType) bool {
	for _, a := range allowed {
		if t == a {
			return true
		}
	}
	return false
}

var (
	scalarArgTypes  = []ir.ArgType{ir.ArgFloat, ir.ArgDouble, ir.ArgInt32, ir.ArgInt64, ir.ArgBool, ir.ArgString, ir.ArgDataType}
	numericArgTypes = []ir.ArgType{ir.ArgFloat, ir.ArgDouble, ir.ArgInt32, ir.ArgInt64}
	integerArgTypes = []ir.ArgType{ir.ArgInt32, ir.ArgInt64}
	flagArgTypes    = []ir.ArgType{ir.ArgBool, ir.ArgInt32, ir.ArgInt64}
)
