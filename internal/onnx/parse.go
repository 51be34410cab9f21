package onnx

import (
	"os"

	"github.com/pkg/errors"

	"github.com/zerfoo/zimport/internal/wire"
)

// LoadFile reads and decodes an ONNX model file.
func LoadFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied model path
	if err != nil {
		return nil, errors.Wrap(err, "failed to read ONNX file")
	}
	model, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode ONNX file %s", path)
	}
	return model, nil
}

// Parse decodes a serialized ModelProto.
func Parse(data []byte) (*ModelProto, error) {
	m := &ModelProto{}
	err := wire.Walk(data, func(f wire.Field) error {
		switch f.Num {
		case 1:
			m.IRVersion = f.Int64()
		case 2:
			m.ProducerName = f.String()
		case 3:
			m.ProducerVersion = f.String()
		case 4:
			m.Domain = f.String()
		case 5:
			m.ModelVersion = f.Int64()
		case 6:
			m.DocString = f.String()
		case 7:
			g, err := parseGraph(f.Bytes)
			if err != nil {
				return errors.Wrap(err, "graph")
			}
			m.Graph = g
		case 8:
			var o OperatorSetID
			err := wire.Walk(f.Bytes, func(f wire.Field) error {
				switch f.Num {
				case 1:
					o.Domain = f.String()
				case 2:
					o.Version = f.Int64()
				}
				return nil
			})
			if err != nil {
				return errors.Wrap(err, "opset_import")
			}
			m.OpsetImport = append(m.OpsetImport, o)
		case 14:
			e, err := parseEntry(f.Bytes)
			if err != nil {
				return errors.Wrap(err, "metadata_props")
			}
			m.MetadataProps = append(m.MetadataProps, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func parseGraph(b []byte) (*GraphProto, error) {
	g := &GraphProto{}
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			n, err := parseNode(f.Bytes)
			if err != nil {
				return errors.Wrapf(err, "node %d", len(g.Nodes))
			}
			g.Nodes = append(g.Nodes, *n)
		case 2:
			g.Name = f.String()
		case 5:
			t, err := parseTensor(f.Bytes)
			if err != nil {
				return errors.Wrapf(err, "initializer %d", len(g.Initializers))
			}
			g.Initializers = append(g.Initializers, *t)
		case 10:
			g.DocString = f.String()
		case 11, 12, 13:
			v, err := parseValueInfo(f.Bytes)
			if err != nil {
				return errors.Wrap(err, "value info")
			}
			switch f.Num {
			case 11:
				g.Inputs = append(g.Inputs, *v)
			case 12:
				g.Outputs = append(g.Outputs, *v)
			default:
				g.ValueInfo = append(g.ValueInfo, *v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func parseNode(b []byte) (*NodeProto, error) {
	n := &NodeProto{}
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			n.Inputs = append(n.Inputs, f.String())
		case 2:
			n.Outputs = append(n.Outputs, f.String())
		case 3:
			n.Name = f.String()
		case 4:
			n.OpType = f.String()
		case 5:
			a, err := parseAttribute(f.Bytes)
			if err != nil {
				return errors.Wrap(err, "attribute")
			}
			n.Attributes = append(n.Attributes, *a)
		case 6:
			n.DocString = f.String()
		case 7:
			n.Domain = f.String()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func parseAttribute(b []byte) (*AttributeProto, error) {
	a := &AttributeProto{}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			a.Name = f.String()
		case 2:
			a.F = f.Float32()
		case 3:
			a.I = f.Int64()
		case 4:
			a.S = f.Bytes
		case 5:
			a.T, err = parseTensor(f.Bytes)
		case 7:
			a.Floats, err = f.Float32s(a.Floats)
		case 8:
			a.Ints, err = f.Int64s(a.Ints)
		case 9:
			a.Strings = append(a.Strings, f.Bytes)
		case 10:
			var t *TensorProto
			if t, err = parseTensor(f.Bytes); err == nil {
				a.Tensors = append(a.Tensors, *t)
			}
		case 13:
			a.DocString = f.String()
		case 20:
			a.Type = int32(f.Varint)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "attribute %q", a.Name)
	}
	return a, nil
}

func parseTensor(b []byte) (*TensorProto, error) {
	t := &TensorProto{}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			t.Dims, err = f.Int64s(t.Dims)
		case 2:
			t.DataType = int32(f.Varint)
		case 4:
			t.FloatData, err = f.Float32s(t.FloatData)
		case 5:
			var vals []int64
			if vals, err = f.Int64s(nil); err == nil {
				for _, v := range vals {
					t.Int32Data = append(t.Int32Data, int32(v))
				}
			}
		case 6:
			t.StringData = append(t.StringData, f.Bytes)
		case 7:
			t.Int64Data, err = f.Int64s(t.Int64Data)
		case 8:
			t.Name = f.String()
		case 9:
			t.RawData = f.Bytes
		case 10:
			t.DoubleData, err = f.Float64s(t.DoubleData)
		case 11:
			t.Uint64Data, err = f.Varints(t.Uint64Data)
		case 12:
			t.DocString = f.String()
		case 13:
			var e StringStringEntry
			if e, err = parseEntry(f.Bytes); err == nil {
				t.ExternalData = append(t.ExternalData, e)
			}
		case 14:
			t.DataLocation = int32(f.Varint)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "tensor %q", t.Name)
	}
	return t, nil
}

func parseValueInfo(b []byte) (*ValueInfoProto, error) {
	v := &ValueInfoProto{}
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			v.Name = f.String()
		case 2:
			tp, err := parseType(f.Bytes)
			if err != nil {
				return err
			}
			v.Type = tp
		case 3:
			v.DocString = f.String()
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "value info %q", v.Name)
	}
	return v, nil
}

func parseType(b []byte) (*TypeProto, error) {
	tp := &TypeProto{}
	err := wire.Walk(b, func(f wire.Field) error {
		if f.Num != 1 {
			return nil
		}
		tt := &TensorTypeProto{}
		tp.TensorType = tt
		return wire.Walk(f.Bytes, func(f wire.Field) error {
			switch f.Num {
			case 1:
				tt.ElemType = int32(f.Varint)
			case 2:
				shape := &TensorShapeProto{}
				tt.Shape = shape
				return wire.Walk(f.Bytes, func(f wire.Field) error {
					if f.Num != 1 {
						return nil
					}
					var d DimensionProto
					err := wire.Walk(f.Bytes, func(f wire.Field) error {
						switch f.Num {
						case 1:
							d.DimValue = f.Int64()
						case 2:
							d.DimParam = f.String()
						}
						return nil
					})
					shape.Dims = append(shape.Dims, d)
					return err
				})
			}
			return nil
		})
	})
	return tp, err
}

func parseEntry(b []byte) (StringStringEntry, error) {
	var e StringStringEntry
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			e.Key = f.String()
		case 2:
			e.Value = f.String()
		}
		return nil
	})
	return e, err
}
