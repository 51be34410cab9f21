package ir

import (
	"fmt"
	"sort"
)

// ArgDescriptor is a single typed, positioned argument of a target op. As a
// catalog template only Name, ArgType and ArgIndex are meaningful.
type ArgDescriptor struct {
	Name     string
	ArgType  ArgType
	ArgIndex int

	Int64Value    int64
	FloatValue    float32
	DoubleValue   float64
	BoolValue     bool
	StringValue   string
	DataTypeValue DataType
	InputValue    *Tensor
}

// Value returns the populated value for the descriptor's ArgType.
func (a ArgDescriptor) Value() any {
	switch a.ArgType {
	case ArgFloat:
		return a.FloatValue
	case ArgDouble:
		return a.DoubleValue
	case ArgInt32, ArgInt64:
		return a.Int64Value
	case ArgBool:
		return a.BoolValue
	case ArgString:
		return a.StringValue
	case ArgDataType:
		return a.DataTypeValue
	case ArgInputTensor, ArgOutputTensor:
		return a.InputValue
	default:
		return nil
	}
}

// Key identifies the descriptor's slot within an op: "<argtype>.<index>".
func (a ArgDescriptor) Key() string {
	return fmt.Sprintf("%s.%d", a.ArgType, a.ArgIndex)
}

func (a ArgDescriptor) String() string {
	if a.ArgType.IsTensor() {
		name := ""
		if a.InputValue != nil {
			name = a.InputValue.Name
		}
		return fmt.Sprintf("%s[%s]=%s", a.Name, a.Key(), name)
	}
	return fmt.Sprintf("%s[%s]=%v", a.Name, a.Key(), a.Value())
}

// Int64Arg builds an INT64 descriptor; mostly used for transformer args.
func Int64Arg(name string, v int64) ArgDescriptor {
	return ArgDescriptor{Name: name, ArgType: ArgInt64, Int64Value: v}
}

// FloatArg builds a FLOAT descriptor.
func FloatArg(name string, v float32) ArgDescriptor {
	return ArgDescriptor{Name: name, ArgType: ArgFloat, FloatValue: v}
}

// DoubleArg builds a DOUBLE descriptor.
func DoubleArg(name string, v float64) ArgDescriptor {
	return ArgDescriptor{Name: name, ArgType: ArgDouble, DoubleValue: v}
}

// BoolArg builds a BOOL descriptor.
func BoolArg(name string, v bool) ArgDescriptor {
	return ArgDescriptor{Name: name, ArgType: ArgBool, BoolValue: v}
}

// StringArg builds a STRING descriptor.
func StringArg(name, v string) ArgDescriptor {
	return ArgDescriptor{Name: name, ArgType: ArgString, StringValue: v}
}

// DataTypeArg builds a DATA_TYPE descriptor.
func DataTypeArg(name string, v DataType) ArgDescriptor {
	return ArgDescriptor{Name: name, ArgType: ArgDataType, DataTypeValue: v}
}

// SortArgs orders descriptors by (ArgType, ArgIndex).
func SortArgs(args []ArgDescriptor) {
	sort.SliceStable(args, func(i, j int) bool {
		if args[i].ArgType != args[j].ArgType {
			return args[i].ArgType < args[j].ArgType
		}
		return args[i].ArgIndex < args[j].ArgIndex
	})
}

// OpDescriptor is the signature of a target op. Args are templates; the
// ArgIndex of each is its position among the op's args of the same type.
type OpDescriptor struct {
	Name string
	Args []ArgDescriptor
}

// ArgsOfType returns the templates of type t ordered by ArgIndex.
func (o *OpDescriptor) ArgsOfType(t ArgType) []ArgDescriptor {
	var out []ArgDescriptor
	for _, a := range o.Args {
		if a.ArgType == t {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ArgIndex < out[j].ArgIndex })
	return out
}

// Arg returns the template named name with type t.
func (o *OpDescriptor) Arg(name string, t ArgType) (ArgDescriptor, bool) {
	for _, a := range o.Args {
		if a.Name == name && a.ArgType == t {
			return a, true
		}
	}
	return ArgDescriptor{}, false
}

// ArgTypes returns the distinct arg types the op declares, in ArgType order.
func (o *OpDescriptor) ArgTypes() []ArgType {
	seen := make(map[ArgType]bool)
	var out []ArgType
	for _, a := range o.Args {
		if !seen[a.ArgType] {
			seen[a.ArgType] = true
			out = append(out, a.ArgType)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
