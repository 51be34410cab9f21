package tfimport

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	tf "github.com/zerfoo/zimport/internal/tensorflow"
	"github.com/zerfoo/zimport/pkg/ir"
)

var dataTypes = map[tf.DataType]ir.DataType{
	tf.DtFloat:    ir.Float,
	tf.DtDouble:   ir.Double,
	tf.DtInt32:    ir.Int32,
	tf.DtUint8:    ir.Uint8,
	tf.DtInt16:    ir.Int16,
	tf.DtInt8:     ir.Int8,
	tf.DtString:   ir.String,
	tf.DtInt64:    ir.Int64,
	tf.DtBool:     ir.Bool,
	tf.DtBfloat16: ir.BFloat16,
	tf.DtUint16:   ir.Uint16,
	tf.DtHalf:     ir.Half,
	tf.DtUint32:   ir.Uint32,
	tf.DtUint64:   ir.Uint64,
}

// DataType maps a TensorFlow data type to the target data type.
// Reference types (dtype + 100) map like their base type.
func DataType(dt tf.DataType) ir.DataType {
	if dt > 100 {
		dt -= 100
	}
	return dataTypes[dt]
}

// convertTensor converts a TensorFlow tensor into a little endian target
// tensor named name. When fewer typed values than elements are stored, the
// last value fills the rest, which is how TensorFlow encodes splats.
func convertTensor(name string, p *tf.TensorProto) (*ir.Tensor, error) {
	t := &ir.Tensor{
		Name:     name,
		DataType: DataType(p.Dtype),
		Dims:     append([]int64(nil), p.Shape.Dims...),
	}
	if t.DataType == ir.Undefined {
		return nil, errors.Errorf("tensor %q: unsupported data type %s", name, p.Dtype)
	}
	if t.Dims == nil {
		t.Dims = []int64{}
	}
	n := t.NumElements()
	if n < 0 {
		return nil, errors.Errorf("tensor %q: constant with unknown shape %v", name, t.Dims)
	}

	if t.DataType == ir.String {
		for _, s := range p.StringVal {
			t.StringData = append(t.StringData, string(s))
		}
		return t, nil
	}
	if len(p.TensorContent) > 0 {
		if want := n * int64(t.DataType.Size()); want != int64(len(p.TensorContent)) {
			return nil, errors.Errorf("tensor %q: %d bytes of content for shape %v of %s", name, len(p.TensorContent), t.Dims, t.DataType)
		}
		t.RawData = append([]byte(nil), p.TensorContent...)
		return t, nil
	}

	size := t.DataType.Size()
	var (
		count int
		put   func(b []byte, i int)
	)
	switch {
	case len(p.FloatVal) > 0:
		count = len(p.FloatVal)
		put = func(b []byte, i int) { binary.LittleEndian.PutUint32(b, math.Float32bits(p.FloatVal[i])) }
	case len(p.DoubleVal) > 0:
		count = len(p.DoubleVal)
		put = func(b []byte, i int) { binary.LittleEndian.PutUint64(b, math.Float64bits(p.DoubleVal[i])) }
	case len(p.Int64Val) > 0:
		count = len(p.Int64Val)
		put = func(b []byte, i int) { binary.LittleEndian.PutUint64(b, uint64(p.Int64Val[i])) }
	case len(p.BoolVal) > 0:
		count = len(p.BoolVal)
		put = func(b []byte, i int) {
			b[0] = 0
			if p.BoolVal[i] {
				b[0] = 1
			}
		}
	case len(p.HalfVal) > 0:
		count = len(p.HalfVal)
		put = func(b []byte, i int) { binary.LittleEndian.PutUint16(b, uint16(p.HalfVal[i])) }
	case len(p.IntVal) > 0:
		// int_val carries every integer type narrower than 64 bits.
		count = len(p.IntVal)
		put = func(b []byte, i int) {
			v := uint32(p.IntVal[i])
			switch size {
			case 1:
				b[0] = byte(v)
			case 2:
				binary.LittleEndian.PutUint16(b, uint16(v))
			default:
				binary.LittleEndian.PutUint32(b, v)
			}
		}
	default:
		if n > 0 {
			// All-zero tensors may be stored without values.
			t.RawData = make([]byte, n*int64(size))
		}
		return t, nil
	}

	if int64(count) > n {
		return nil, errors.Errorf("tensor %q: %d values for shape %v", name, count, t.Dims)
	}
	t.RawData = make([]byte, n*int64(size))
	for i := 0; i < int(n); i++ {
		put(t.RawData[i*size:], min(i, count-1))
	}
	return t, nil
}
