package ir

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Tensor is a target tensor. RawData holds the elements in little endian
// order; STRING tensors use StringData instead. A tensor without data
// describes a placeholder whose only known property is its shape.
type Tensor struct {
	Name       string
	DataType   DataType
	Dims       []int64
	RawData    []byte
	StringData []string
}

// HasData reports whether the tensor carries element values.
func (t *Tensor) HasData() bool {
	return t != nil && (len(t.RawData) > 0 || len(t.StringData) > 0)
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.Dims) }

// NumElements returns the product of the dimensions, or -1 if any dimension
// is unknown. A scalar has one element.
func (t *Tensor) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		if d < 0 {
			return -1
		}
		n *= d
	}
	return n
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}
	c := &Tensor{Name: t.Name, DataType: t.DataType}
	c.Dims = append([]int64(nil), t.Dims...)
	c.RawData = append([]byte(nil), t.RawData...)
	c.StringData = append([]string(nil), t.StringData...)
	return c
}

func (t *Tensor) checkLen() (int, error) {
	size := t.DataType.Size()
	if size == 0 {
		return 0, errors.Errorf("tensor %q: %s has no fixed element size", t.Name, t.DataType)
	}
	if len(t.RawData)%size != 0 {
		return 0, errors.Errorf("tensor %q: %d bytes is not a multiple of %s width %d",
			t.Name, len(t.RawData), t.DataType, size)
	}
	return len(t.RawData) / size, nil
}

// Int64s returns the elements of an integer or boolean tensor widened to
// int64.
func (t *Tensor) Int64s() ([]int64, error) {
	n, err := t.checkLen()
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	b := t.RawData
	for i := range out {
		switch t.DataType {
		case Int8:
			out[i] = int64(int8(b[i]))
		case Uint8, Bool:
			out[i] = int64(b[i])
		case Int16:
			out[i] = int64(int16(binary.LittleEndian.Uint16(b[i*2:])))
		case Uint16:
			out[i] = int64(binary.LittleEndian.Uint16(b[i*2:]))
		case Int32:
			out[i] = int64(int32(binary.LittleEndian.Uint32(b[i*4:])))
		case Uint32:
			out[i] = int64(binary.LittleEndian.Uint32(b[i*4:]))
		case Int64, Uint64:
			out[i] = int64(binary.LittleEndian.Uint64(b[i*8:]))
		default:
			return nil, errors.Errorf("tensor %q: cannot read %s as integers", t.Name, t.DataType)
		}
	}
	return out, nil
}

// Float64s returns the elements of a numeric tensor as float64. HALF and
// BFLOAT16 values are widened.
func (t *Tensor) Float64s() ([]float64, error) {
	if !t.DataType.IsFloat() {
		ints, err := t.Int64s()
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(ints))
		for i, v := range ints {
			out[i] = float64(v)
		}
		return out, nil
	}
	n, err := t.checkLen()
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	b := t.RawData
	for i := range out {
		switch t.DataType {
		case Float:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
		case Double:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		case Half:
			out[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32())
		case BFloat16:
			out[i] = float64(math.Float32frombits(uint32(binary.LittleEndian.Uint16(b[i*2:])) << 16))
		}
	}
	return out, nil
}

// Float32s returns the elements of a numeric tensor as float32.
func (t *Tensor) Float32s() ([]float32, error) {
	vals, err := t.Float64s()
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out, nil
}

// Bools returns the elements of a tensor as booleans, non-zero being true.
func (t *Tensor) Bools() ([]bool, error) {
	vals, err := t.Float64s()
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(vals))
	for i, v := range vals {
		out[i] = v != 0
	}
	return out, nil
}

// Int64Tensor builds an INT64 tensor.
func Int64Tensor(name string, dims []int64, vals ...int64) *Tensor {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(b[i*8:], uint64(v))
	}
	return &Tensor{Name: name, DataType: Int64, Dims: dims, RawData: b}
}

// Int32Tensor builds an INT32 tensor.
func Int32Tensor(name string, dims []int64, vals ...int32) *Tensor {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(v))
	}
	return &Tensor{Name: name, DataType: Int32, Dims: dims, RawData: b}
}

// Float32Tensor builds a FLOAT tensor.
func Float32Tensor(name string, dims []int64, vals ...float32) *Tensor {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return &Tensor{Name: name, DataType: Float, Dims: dims, RawData: b}
}

// Float64Tensor builds a DOUBLE tensor.
func Float64Tensor(name string, dims []int64, vals ...float64) *Tensor {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return &Tensor{Name: name, DataType: Double, Dims: dims, RawData: b}
}

// Float16Tensor builds a HALF tensor, rounding vals to the nearest half
// precision value.
func Float16Tensor(name string, dims []int64, vals ...float32) *Tensor {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(b[i*2:], float16.Fromfloat32(v).Bits())
	}
	return &Tensor{Name: name, DataType: Half, Dims: dims, RawData: b}
}

// BoolTensor builds a BOOL tensor.
func BoolTensor(name string, dims []int64, vals ...bool) *Tensor {
	b := make([]byte, len(vals))
	for i, v := range vals {
		if v {
			b[i] = 1
		}
	}
	return &Tensor{Name: name, DataType: Bool, Dims: dims, RawData: b}
}

// Placeholder builds a tensor that carries a shape but no data.
func Placeholder(name string, dt DataType, dims ...int64) *Tensor {
	return &Tensor{Name: name, DataType: dt, Dims: dims}
}
