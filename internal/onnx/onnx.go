// Package onnx decodes ONNX model files into plain Go structs.
//
// Only the parts of onnx.proto the importer consumes are modelled: the
// model header, the graph, nodes, attributes, initializer tensors and value
// infos. Unknown fields are skipped.
package onnx

// ModelProto is the top-level ONNX model.
type ModelProto struct {
	IRVersion       int64
	OpsetImport     []OperatorSetID
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Graph           *GraphProto
	MetadataProps   []StringStringEntry
}

// Opset returns the version of the default ("" or "ai.onnx") domain, or 0.
func (m *ModelProto) Opset() int64 {
	for _, o := range m.OpsetImport {
		if o.Domain == "" || o.Domain == "ai.onnx" {
			return o.Version
		}
	}
	return 0
}

// GraphProto is a computation graph.
type GraphProto struct {
	Name         string
	Nodes        []NodeProto
	Initializers []TensorProto
	Inputs       []ValueInfoProto
	Outputs      []ValueInfoProto
	ValueInfo    []ValueInfoProto
	DocString    string
}

// NodeProto is a single operation.
type NodeProto struct {
	Name       string
	OpType     string
	Domain     string
	Inputs     []string
	Outputs    []string
	Attributes []AttributeProto
	DocString  string
}

// Attribute returns the attribute with the given name.
func (n *NodeProto) Attribute(name string) (*AttributeProto, bool) {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i], true
		}
	}
	return nil, false
}

// TensorProto is a serialized tensor (initializer or attribute value).
type TensorProto struct {
	Name         string
	DataType     int32
	Dims         []int64
	RawData      []byte
	FloatData    []float32
	Int32Data    []int32
	Int64Data    []int64
	DoubleData   []float64
	Uint64Data   []uint64
	StringData   [][]byte
	ExternalData []StringStringEntry
	DataLocation int32
	DocString    string
}

// ValueInfoProto describes a graph value.
type ValueInfoProto struct {
	Name      string
	Type      *TypeProto
	DocString string
}

// Shape returns the static dims of a tensor value info; symbolic dims are -1.
// ok is false when no shape is recorded.
func (v *ValueInfoProto) Shape() (dims []int64, elemType int32, ok bool) {
	if v.Type == nil || v.Type.TensorType == nil {
		return nil, 0, false
	}
	tt := v.Type.TensorType
	if tt.Shape == nil {
		return nil, tt.ElemType, false
	}
	dims = make([]int64, len(tt.Shape.Dims))
	for i, d := range tt.Shape.Dims {
		if d.DimParam != "" || d.DimValue <= 0 {
			dims[i] = -1
			continue
		}
		dims[i] = d.DimValue
	}
	return dims, tt.ElemType, true
}

// TypeProto holds the type of a value. Only tensor types are decoded.
type TypeProto struct {
	TensorType *TensorTypeProto
}

// TensorTypeProto is the element type and shape of a tensor value.
type TensorTypeProto struct {
	ElemType int32
	Shape    *TensorShapeProto
}

// TensorShapeProto is a list of dimensions.
type TensorShapeProto struct {
	Dims []DimensionProto
}

// DimensionProto is either a static size or a symbolic name.
type DimensionProto struct {
	DimValue int64
	DimParam string
}

// AttributeProto is a node attribute.
type AttributeProto struct {
	Name      string
	Type      int32
	F         float32
	I         int64
	S         []byte
	T         *TensorProto
	Floats    []float32
	Ints      []int64
	Strings   [][]byte
	Tensors   []TensorProto
	DocString string
}

// OperatorSetID names an opset.
type OperatorSetID struct {
	Domain  string
	Version int64
}

// StringStringEntry is a key/value pair.
type StringStringEntry struct {
	Key   string
	Value string
}

// TensorProto.DataType values.
const (
	TensorProtoUndefined = 0
	TensorProtoFloat     = 1
	TensorProtoUint8     = 2
	TensorProtoInt8      = 3
	TensorProtoUint16    = 4
	TensorProtoInt16     = 5
	TensorProtoInt32     = 6
	TensorProtoInt64     = 7
	TensorProtoString    = 8
	TensorProtoBool      = 9
	TensorProtoFloat16   = 10
	TensorProtoDouble    = 11
	TensorProtoUint32    = 12
	TensorProtoUint64    = 13
	TensorProtoBfloat16  = 16
)

// AttributeProto.Type values.
const (
	AttributeProtoUndefined = 0
	AttributeProtoFloat     = 1
	AttributeProtoInt       = 2
	AttributeProtoString    = 3
	AttributeProtoTensor    = 4
	AttributeProtoGraph     = 5
	AttributeProtoFloats    = 6
	AttributeProtoInts      = 7
	AttributeProtoStrings   = 8
	AttributeProtoTensors   = 9
	AttributeProtoGraphs    = 10
)

// TensorProto.DataLocation values.
const (
	DataLocationDefault  = 0
	DataLocationExternal = 1
)
