// Package tensorflow decodes frozen TensorFlow GraphDef files into plain Go
// structs.
package tensorflow

// GraphDef is a TensorFlow graph.
type GraphDef struct {
	Nodes    []NodeDef
	Producer int32
}

// NodeDef is a single graph node.
type NodeDef struct {
	Name   string
	Op     string
	Input  []string
	Device string
	Attr   map[string]*AttrValue
}

// AttrValue is the value of a node attribute. Exactly one of the value
// fields is meaningful; Kind says which.
type AttrValue struct {
	Kind   AttrKind
	S      []byte
	I      int64
	F      float32
	B      bool
	Type   DataType
	Shape  *TensorShape
	Tensor *TensorProto
	List   *AttrList
}

// AttrList is the list variant of AttrValue.
type AttrList struct {
	S      [][]byte
	I      []int64
	F      []float32
	B      []bool
	Type   []DataType
	Shape  []TensorShape
	Tensor []TensorProto
}

// AttrKind identifies the populated field of an AttrValue.
type AttrKind int

// AttrValue kinds.
const (
	KindNone AttrKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindType
	KindShape
	KindTensor
	KindList
	KindFunc
	KindPlaceholder
)

// TensorShape is a TensorFlow shape; UnknownRank marks a shape without dims.
type TensorShape struct {
	Dims        []int64
	UnknownRank bool
}

// TensorProto is a serialized TensorFlow tensor.
type TensorProto struct {
	Dtype         DataType
	Shape         TensorShape
	TensorContent []byte
	FloatVal      []float32
	DoubleVal     []float64
	IntVal        []int32
	StringVal     [][]byte
	Int64Val      []int64
	BoolVal       []bool
	HalfVal       []int32
}

// DataType is TensorFlow's DataType enum.
type DataType int32

// DataType values.
const (
	DtInvalid  DataType = 0
	DtFloat    DataType = 1
	DtDouble   DataType = 2
	DtInt32    DataType = 3
	DtUint8    DataType = 4
	DtInt16    DataType = 5
	DtInt8     DataType = 6
	DtString   DataType = 7
	DtInt64    DataType = 9
	DtBool     DataType = 10
	DtBfloat16 DataType = 14
	DtUint16   DataType = 17
	DtHalf     DataType = 19
	DtUint32   DataType = 22
	DtUint64   DataType = 23
)

var dataTypeNames = map[DataType]string{
	DtInvalid:  "DT_INVALID",
	DtFloat:    "DT_FLOAT",
	DtDouble:   "DT_DOUBLE",
	DtInt32:    "DT_INT32",
	DtUint8:    "DT_UINT8",
	DtInt16:    "DT_INT16",
	DtInt8:     "DT_INT8",
	DtString:   "DT_STRING",
	DtInt64:    "DT_INT64",
	DtBool:     "DT_BOOL",
	DtBfloat16: "DT_BFLOAT16",
	DtUint16:   "DT_UINT16",
	DtHalf:     "DT_HALF",
	DtUint32:   "DT_UINT32",
	DtUint64:   "DT_UINT64",
}

func (d DataType) String() string {
	if s, ok := dataTypeNames[d]; ok {
		return s
	}
	return "DT_UNKNOWN"
}
