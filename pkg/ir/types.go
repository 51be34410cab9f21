// Package ir holds the target-side representation produced by an import:
// typed argument descriptors, op signatures, tensors and the assembled graph.
package ir

import "strings"

// ArgType is the type of a target op argument.
type ArgType int

// Argument types.
const (
	ArgUnknown ArgType = iota
	ArgFloat
	ArgDouble
	ArgInt32
	ArgInt64
	ArgBool
	ArgString
	ArgDataType
	ArgInputTensor
	ArgOutputTensor
)

var argTypeNames = [...]string{
	ArgUnknown:      "UNKNOWN",
	ArgFloat:        "FLOAT",
	ArgDouble:       "DOUBLE",
	ArgInt32:        "INT32",
	ArgInt64:        "INT64",
	ArgBool:         "BOOL",
	ArgString:       "STRING",
	ArgDataType:     "DATA_TYPE",
	ArgInputTensor:  "INPUT_TENSOR",
	ArgOutputTensor: "OUTPUT_TENSOR",
}

func (t ArgType) String() string {
	if t < 0 || int(t) >= len(argTypeNames) {
		return argTypeNames[ArgUnknown]
	}
	return argTypeNames[t]
}

// IsInteger reports whether values of t are carried in Int64Value.
func (t ArgType) IsInteger() bool { return t == ArgInt32 || t == ArgInt64 }

// IsTensor reports whether t is a tensor slot.
func (t ArgType) IsTensor() bool { return t == ArgInputTensor || t == ArgOutputTensor }

// ParseArgType parses an ArgType name as written in catalog files. "TENSOR"
// is accepted as an alias of INPUT_TENSOR.
func ParseArgType(s string) (ArgType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "TENSOR" {
		return ArgInputTensor, true
	}
	for i, name := range argTypeNames {
		if i != int(ArgUnknown) && name == s {
			return ArgType(i), true
		}
	}
	return ArgUnknown, false
}

// DataType is the element type of a target tensor.
type DataType int32

// Data types. The numeric values are stable and are what the data type to
// int conversion emits.
const (
	Undefined DataType = iota
	Float
	Double
	Half
	BFloat16
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Bool
	String
)

var dataTypeNames = [...]string{
	Undefined: "UNDEFINED",
	Float:     "FLOAT",
	Double:    "DOUBLE",
	Half:      "HALF",
	BFloat16:  "BFLOAT16",
	Int8:      "INT8",
	Int16:     "INT16",
	Int32:     "INT32",
	Int64:     "INT64",
	Uint8:     "UINT8",
	Uint16:    "UINT16",
	Uint32:    "UINT32",
	Uint64:    "UINT64",
	Bool:      "BOOL",
	String:    "STRING",
}

func (d DataType) String() string {
	if d < 0 || int(d) >= len(dataTypeNames) {
		return dataTypeNames[Undefined]
	}
	return dataTypeNames[d]
}

// ParseDataType parses a DataType name.
func ParseDataType(s string) (DataType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range dataTypeNames {
		if name == s {
			return DataType(i), true
		}
	}
	return Undefined, false
}

// Size returns the byte width of one element, or 0 for STRING and UNDEFINED.
func (d DataType) Size() int {
	switch d {
	case Int8, Uint8, Bool:
		return 1
	case Half, BFloat16, Int16, Uint16:
		return 2
	case Float, Int32, Uint32:
		return 4
	case Double, Int64, Uint64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether d is a floating point type.
func (d DataType) IsFloat() bool {
	return d == Float || d == Double || d == Half || d == BFloat16
}

// AttributeValueType classifies a foreign attribute or input value.
type AttributeValueType int

// Attribute value types.
const (
	AttrInvalid AttributeValueType = iota
	AttrTensor
	AttrInt
	AttrFloat
	AttrString
	AttrBool
	AttrDataType
	AttrListTensor
	AttrListInt
	AttrListFloat
	AttrListString
	AttrListBool
)

var attrTypeNames = [...]string{
	AttrInvalid:    "INVALID",
	AttrTensor:     "TENSOR",
	AttrInt:        "INT",
	AttrFloat:      "FLOAT",
	AttrString:     "STRING",
	AttrBool:       "BOOL",
	AttrDataType:   "DATA_TYPE",
	AttrListTensor: "LIST_TENSOR",
	AttrListInt:    "LIST_INT",
	AttrListFloat:  "LIST_FLOAT",
	AttrListString: "LIST_STRING",
	AttrListBool:   "LIST_BOOL",
}

func (t AttributeValueType) String() string {
	if t < 0 || int(t) >= len(attrTypeNames) {
		return attrTypeNames[AttrInvalid]
	}
	return attrTypeNames[t]
}

// ParseAttributeValueType parses an attribute type name as written in
// foreign catalog files.
func ParseAttributeValueType(s string) (AttributeValueType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range attrTypeNames {
		if i != int(AttrInvalid) && name == s {
			return AttributeValueType(i), true
		}
	}
	return AttrInvalid, false
}

// IsList reports whether t is one of the list types.
func (t AttributeValueType) IsList() bool { return t >= AttrListTensor }
