package tensorflow

import (
	"os"

	"github.com/pkg/errors"

	"github.com/zerfoo/zimport/internal/wire"
)

// LoadFile reads and decodes a binary GraphDef (.pb) file.
func LoadFile(path string) (*GraphDef, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied graph path
	if err != nil {
		return nil, errors.Wrap(err, "failed to read GraphDef file")
	}
	g, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode GraphDef file %s", path)
	}
	return g, nil
}

// Parse decodes a serialized GraphDef.
func Parse(data []byte) (*GraphDef, error) {
	g := &GraphDef{}
	err := wire.Walk(data, func(f wire.Field) error {
		switch f.Num {
		case 1:
			n, err := parseNode(f.Bytes)
			if err != nil {
				return errors.Wrapf(err, "node %d", len(g.Nodes))
			}
			g.Nodes = append(g.Nodes, *n)
		case 4:
			return wire.Walk(f.Bytes, func(f wire.Field) error {
				if f.Num == 1 {
					g.Producer = int32(f.Varint)
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func parseNode(b []byte) (*NodeDef, error) {
	n := &NodeDef{Attr: make(map[string]*AttrValue)}
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			n.Name = f.String()
		case 2:
			n.Op = f.String()
		case 3:
			n.Input = append(n.Input, f.String())
		case 4:
			n.Device = f.String()
		case 5:
			var key string
			var val *AttrValue
			err := wire.Walk(f.Bytes, func(f wire.Field) error {
				switch f.Num {
				case 1:
					key = f.String()
				case 2:
					v, err := parseAttr(f.Bytes)
					if err != nil {
						return err
					}
					val = v
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "attr %q", key)
			}
			if val == nil {
				val = &AttrValue{}
			}
			n.Attr[key] = val
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "node %q", n.Name)
	}
	return n, nil
}

func parseAttr(b []byte) (*AttrValue, error) {
	a := &AttrValue{}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			a.Kind = KindList
			a.List, err = parseAttrList(f.Bytes)
		case 2:
			a.Kind, a.S = KindString, f.Bytes
		case 3:
			a.Kind, a.I = KindInt, f.Int64()
		case 4:
			a.Kind, a.F = KindFloat, f.Float32()
		case 5:
			a.Kind, a.B = KindBool, f.Bool()
		case 6:
			a.Kind, a.Type = KindType, DataType(f.Varint)
		case 7:
			var s TensorShape
			s, err = parseShape(f.Bytes)
			a.Kind, a.Shape = KindShape, &s
		case 8:
			a.Kind = KindTensor
			a.Tensor, err = parseTensor(f.Bytes)
		case 9:
			a.Kind = KindPlaceholder
		case 10:
			a.Kind = KindFunc
		}
		return err
	})
	return a, err
}

func parseAttrList(b []byte) (*AttrList, error) {
	l := &AttrList{}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 2:
			l.S = append(l.S, f.Bytes)
		case 3:
			l.I, err = f.Int64s(l.I)
		case 4:
			l.F, err = f.Float32s(l.F)
		case 5:
			var vals []uint64
			if vals, err = f.Varints(nil); err == nil {
				for _, v := range vals {
					l.B = append(l.B, v != 0)
				}
			}
		case 6:
			var vals []uint64
			if vals, err = f.Varints(nil); err == nil {
				for _, v := range vals {
					l.Type = append(l.Type, DataType(v))
				}
			}
		case 7:
			var s TensorShape
			if s, err = parseShape(f.Bytes); err == nil {
				l.Shape = append(l.Shape, s)
			}
		case 8:
			var t *TensorProto
			if t, err = parseTensor(f.Bytes); err == nil {
				l.Tensor = append(l.Tensor, *t)
			}
		}
		return err
	})
	return l, err
}

func parseShape(b []byte) (TensorShape, error) {
	var s TensorShape
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 2:
			size := int64(-1)
			err := wire.Walk(f.Bytes, func(f wire.Field) error {
				if f.Num == 1 {
					size = f.Int64()
				}
				return nil
			})
			s.Dims = append(s.Dims, size)
			return err
		case 3:
			s.UnknownRank = f.Bool()
		}
		return nil
	})
	return s, err
}

func parseTensor(b []byte) (*TensorProto, error) {
	t := &TensorProto{}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			t.Dtype = DataType(f.Varint)
		case 2:
			t.Shape, err = parseShape(f.Bytes)
		case 4:
			t.TensorContent = f.Bytes
		case 5:
			t.FloatVal, err = f.Float32s(t.FloatVal)
		case 6:
			t.DoubleVal, err = f.Float64s(t.DoubleVal)
		case 7, 13:
			var vals []int64
			if vals, err = f.Int64s(nil); err == nil {
				for _, v := range vals {
					if f.Num == 7 {
						t.IntVal = append(t.IntVal, int32(v))
					} else {
						t.HalfVal = append(t.HalfVal, int32(v))
					}
				}
			}
		case 8:
			t.StringVal = append(t.StringVal, f.Bytes)
		case 10:
			t.Int64Val, err = f.Int64s(t.Int64Val)
		case 11:
			var vals []uint64
			if vals, err = f.Varints(nil); err == nil {
				for _, v := range vals {
					t.BoolVal = append(t.BoolVal, v != 0)
				}
			}
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "tensor")
	}
	return t, nil
}
