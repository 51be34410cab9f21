package onnximport

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/zerfoo/zimport/internal/onnx"
	"github.com/zerfoo/zimport/pkg/ir"
)

var dataTypes = map[int32]ir.DataType{
	onnx.TensorProtoFloat:    ir.Float,
	onnx.TensorProtoUint8:    ir.Uint8,
	onnx.TensorProtoInt8:     ir.Int8,
	onnx.TensorProtoUint16:   ir.Uint16,
	onnx.TensorProtoInt16:    ir.Int16,
	onnx.TensorProtoInt32:    ir.Int32,
	onnx.TensorProtoInt64:    ir.Int64,
	onnx.TensorProtoString:   ir.String,
	onnx.TensorProtoBool:     ir.Bool,
	onnx.TensorProtoFloat16:  ir.Half,
	onnx.TensorProtoDouble:   ir.Double,
	onnx.TensorProtoUint32:   ir.Uint32,
	onnx.TensorProtoUint64:   ir.Uint64,
	onnx.TensorProtoBfloat16: ir.BFloat16,
}

// DataType maps an ONNX TensorProto data type to the target data type.
// Unsupported types map to ir.Undefined.
func DataType(dt int32) ir.DataType {
	return dataTypes[dt]
}

// convertTensor converts an ONNX tensor into a little endian target tensor.
// External data is read relative to the directory of modelPath.
func convertTensor(p *onnx.TensorProto, modelPath string) (*ir.Tensor, error) {
	t := &ir.Tensor{
		Name:     p.Name,
		DataType: DataType(p.DataType),
		Dims:     append([]int64(nil), p.Dims...),
	}
	if t.DataType == ir.Undefined {
		return nil, errors.Errorf("tensor %q: unsupported ONNX data type %d", p.Name, p.DataType)
	}

	switch {
	case p.DataLocation == onnx.DataLocationExternal:
		data, err := loadExternalData(p, modelPath)
		if err != nil {
			return nil, errors.Wrapf(err, "tensor %q", p.Name)
		}
		t.RawData = data
	case len(p.RawData) > 0:
		t.RawData = append([]byte(nil), p.RawData...)
	case t.DataType == ir.String:
		for _, s := range p.StringData {
			t.StringData = append(t.StringData, string(s))
		}
	case len(p.FloatData) > 0:
		t.RawData = make([]byte, 4*len(p.FloatData))
		for i, v := range p.FloatData {
			binary.LittleEndian.PutUint32(t.RawData[i*4:], math.Float32bits(v))
		}
	case len(p.DoubleData) > 0:
		t.RawData = make([]byte, 8*len(p.DoubleData))
		for i, v := range p.DoubleData {
			binary.LittleEndian.PutUint64(t.RawData[i*8:], math.Float64bits(v))
		}
	case len(p.Int64Data) > 0:
		t.RawData = make([]byte, 8*len(p.Int64Data))
		for i, v := range p.Int64Data {
			binary.LittleEndian.PutUint64(t.RawData[i*8:], uint64(v))
		}
	case len(p.Uint64Data) > 0:
		size := t.DataType.Size()
		t.RawData = make([]byte, size*len(p.Uint64Data))
		for i, v := range p.Uint64Data {
			putUint(t.RawData[i*size:], size, v)
		}
	case len(p.Int32Data) > 0:
		// int32_data carries every narrow type, including the bit patterns
		// of FLOAT16 and BFLOAT16.
		size := t.DataType.Size()
		t.RawData = make([]byte, size*len(p.Int32Data))
		for i, v := range p.Int32Data {
			putUint(t.RawData[i*size:], size, uint64(uint32(v)))
		}
	}

	if t.HasData() && t.DataType != ir.String {
		if want := t.NumElements() * int64(t.DataType.Size()); want >= 0 && want != int64(len(t.RawData)) {
			return nil, errors.Errorf("tensor %q: %d bytes of data for shape %v of %s", p.Name, len(t.RawData), t.Dims, t.DataType)
		}
	}
	return t, nil
}

func putUint(b []byte, size int, v uint64) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, v)
	}
}

// loadExternalData reads the data of a tensor stored outside the model file.
func loadExternalData(tensor *onnx.TensorProto, modelPath string) ([]byte, error) {
	var location string
	var offset, length int64

	for _, entry := range tensor.ExternalData {
		var err error
		switch entry.Key {
		case "location":
			location = entry.Value
		case "offset":
			if entry.Value != "" {
				if offset, err = strconv.ParseInt(entry.Value, 10, 64); err != nil {
					return nil, errors.Errorf("invalid offset value: %s", entry.Value)
				}
			}
		case "length":
			if entry.Value != "" {
				if length, err = strconv.ParseInt(entry.Value, 10, 64); err != nil {
					return nil, errors.Errorf("invalid length value: %s", entry.Value)
				}
			}
		}
	}
	if location == "" {
		return nil, errors.New("external data location not specified")
	}

	// Relative locations are resolved against the model file directory.
	externalPath := location
	if !filepath.IsAbs(location) {
		externalPath = filepath.Join(filepath.Dir(modelPath), location)
	}

	file, err := os.Open(externalPath) //nolint:gosec // path comes from the model
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open external data file %s", externalPath)
	}
	defer func() { _ = file.Close() }()

	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			return nil, errors.Wrapf(err, "failed to seek to offset %d", offset)
		}
	}
	if length > 0 {
		data := make([]byte, length)
		if _, err := io.ReadFull(file, data); err != nil {
			return nil, errors.Wrapf(err, "failed to read %d bytes from external file", length)
		}
		return data, nil
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read external data file")
	}
	return data, nil
}
