// Package wire walks protobuf wire-format messages field by field.
//
// The ONNX and TensorFlow graph schemas are decoded into plain Go structs
// without generated code; this package provides the shared field iteration
// and packed-repeated helpers built on protowire.
package wire

import (
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field is a single decoded field of a protobuf message.
type Field struct {
	Num  protowire.Number
	Type protowire.Type
	// Varint holds the value of VarintType fields, Fixed32 and Fixed64 the
	// value of fixed width fields, and Bytes the payload of BytesType fields.
	Varint  uint64
	Fixed32 uint32
	Fixed64 uint64
	Bytes   []byte
}

// Walk calls fn for every field of the message encoded in b, in wire order.
func Walk(b []byte, fn func(f Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "read tag")
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.Fixed32, n = protowire.ConsumeFixed32(b)
		case protowire.Fixed64Type:
			f.Fixed64, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "read field %d", num)
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// String returns the payload of a bytes field as a string.
func (f Field) String() string { return string(f.Bytes) }

// Int64 returns a varint field as a signed 64-bit integer.
func (f Field) Int64() int64 { return int64(f.Varint) }

// Bool returns a varint field as a boolean.
func (f Field) Bool() bool { return f.Varint != 0 }

// Float32 returns a fixed32 field as a float.
func (f Field) Float32() float32 { return math.Float32frombits(f.Fixed32) }

// Float64 returns a fixed64 field as a double.
func (f Field) Float64() float64 { return math.Float64frombits(f.Fixed64) }

// Varints appends the values of a repeated varint field to dst. Both the
// packed and the unpacked encodings are accepted.
func (f Field) Varints(dst []uint64) ([]uint64, error) {
	if f.Type == protowire.VarintType {
		return append(dst, f.Varint), nil
	}
	if f.Type != protowire.BytesType {
		return dst, errors.Errorf("field %d: wire type %d is not a varint list", f.Num, f.Type)
	}
	b := f.Bytes
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return dst, errors.Wrapf(protowire.ParseError(n), "field %d: packed varint", f.Num)
		}
		dst = append(dst, v)
		b = b[n:]
	}
	return dst, nil
}

// Int64s appends a repeated int64/int32/enum field to dst.
func (f Field) Int64s(dst []int64) ([]int64, error) {
	vals, err := f.Varints(nil)
	if err != nil {
		return dst, err
	}
	for _, v := range vals {
		dst = append(dst, int64(v))
	}
	return dst, nil
}

// Float32s appends a repeated float field to dst.
func (f Field) Float32s(dst []float32) ([]float32, error) {
	if f.Type == protowire.Fixed32Type {
		return append(dst, f.Float32()), nil
	}
	if f.Type != protowire.BytesType || len(f.Bytes)%4 != 0 {
		return dst, errors.Errorf("field %d: malformed packed float list", f.Num)
	}
	for b := f.Bytes; len(b) > 0; b = b[4:] {
		v, _ := protowire.ConsumeFixed32(b)
		dst = append(dst, math.Float32frombits(v))
	}
	return dst, nil
}

// Float64s appends a repeated double field to dst.
func (f Field) Float64s(dst []float64) ([]float64, error) {
	if f.Type == protowire.Fixed64Type {
		return append(dst, f.Float64()), nil
	}
	if f.Type != protowire.BytesType || len(f.Bytes)%8 != 0 {
		return dst, errors.Errorf("field %d: malformed packed double list", f.Num)
	}
	for b := f.Bytes; len(b) > 0; b = b[8:] {
		v, _ := protowire.ConsumeFixed64(b)
		dst = append(dst, math.Float64frombits(v))
	}
	return dst, nil
}
