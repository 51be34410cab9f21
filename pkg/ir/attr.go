package ir

// AttrValue is a foreign attribute normalized across frameworks. The field
// matching Type holds the value.
type AttrValue struct {
	Type     AttributeValueType
	Int      int64
	Float    float64
	String   string
	Bool     bool
	DataType DataType
	Tensor   *Tensor
	Ints     []int64
	Floats   []float64
	Strings  []string
	Bools    []bool
	Tensors  []*Tensor
}

// IntAttr builds an INT attribute.
func IntAttr(v int64) *AttrValue { return &AttrValue{Type: AttrInt, Int: v} }

// FloatAttr builds a FLOAT attribute.
func FloatAttr(v float64) *AttrValue { return &AttrValue{Type: AttrFloat, Float: v} }

// StringAttr builds a STRING attribute.
func StringAttr(v string) *AttrValue { return &AttrValue{Type: AttrString, String: v} }

// BoolAttr builds a BOOL attribute.
func BoolAttr(v bool) *AttrValue { return &AttrValue{Type: AttrBool, Bool: v} }

// DataTypeAttr builds a DATA_TYPE attribute.
func DataTypeAttr(v DataType) *AttrValue { return &AttrValue{Type: AttrDataType, DataType: v} }

// TensorAttr builds a TENSOR attribute.
func TensorAttr(v *Tensor) *AttrValue { return &AttrValue{Type: AttrTensor, Tensor: v} }

// IntsAttr builds a LIST_INT attribute.
func IntsAttr(v ...int64) *AttrValue { return &AttrValue{Type: AttrListInt, Ints: v} }

// FloatsAttr builds a LIST_FLOAT attribute.
func FloatsAttr(v ...float64) *AttrValue { return &AttrValue{Type: AttrListFloat, Floats: v} }

// StringsAttr builds a LIST_STRING attribute.
func StringsAttr(v ...string) *AttrValue { return &AttrValue{Type: AttrListString, Strings: v} }

// Len returns the number of elements of a list attribute, or -1 for scalars.
func (a *AttrValue) Len() int {
	switch a.Type {
	case AttrListInt:
		return len(a.Ints)
	case AttrListFloat:
		return len(a.Floats)
	case AttrListString:
		return len(a.Strings)
	case AttrListBool:
		return len(a.Bools)
	case AttrListTensor:
		return len(a.Tensors)
	default:
		return -1
	}
}

// AsInt64 returns a scalar numeric attribute as an integer.
func (a *AttrValue) AsInt64() (int64, bool) {
	switch a.Type {
	case AttrInt:
		return a.Int, true
	case AttrFloat:
		return int64(a.Float), true
	case AttrBool:
		if a.Bool {
			return 1, true
		}
		return 0, true
	case AttrDataType:
		return int64(a.DataType), true
	}
	return 0, false
}

// AsFloat64 returns a scalar numeric attribute as a float.
func (a *AttrValue) AsFloat64() (float64, bool) {
	if a.Type == AttrFloat {
		return a.Float, true
	}
	v, ok := a.AsInt64()
	return float64(v), ok
}
