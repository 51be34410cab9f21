// Package onnxtest builds serialized ONNX fixtures for tests.
package onnxtest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/zerfoo/zimport/internal/onnx"
)

// Encode serializes m in the ONNX wire format.
func Encode(m *onnx.ModelProto) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(m.IRVersion))
	b = appendString(b, 2, m.ProducerName)
	b = appendString(b, 3, m.ProducerVersion)
	b = appendString(b, 4, m.Domain)
	b = appendVarint(b, 5, uint64(m.ModelVersion))
	b = appendString(b, 6, m.DocString)
	if m.Graph != nil {
		b = appendMessage(b, 7, encodeGraph(m.Graph))
	}
	for _, o := range m.OpsetImport {
		var ob []byte
		ob = appendString(ob, 1, o.Domain)
		ob = appendVarint(ob, 2, uint64(o.Version))
		b = appendMessage(b, 8, ob)
	}
	for _, e := range m.MetadataProps {
		b = appendMessage(b, 14, encodeEntry(e))
	}
	return b
}

// WriteFile encodes m into dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, m *onnx.ModelProto) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Encode(m), 0o644); err != nil {
		t.Fatalf("failed to write ONNX fixture: %v", err)
	}
	return path
}

func encodeGraph(g *onnx.GraphProto) []byte {
	var b []byte
	for i := range g.Nodes {
		b = appendMessage(b, 1, encodeNode(&g.Nodes[i]))
	}
	b = appendString(b, 2, g.Name)
	for i := range g.Initializers {
		b = appendMessage(b, 5, EncodeTensor(&g.Initializers[i]))
	}
	for i := range g.Inputs {
		b = appendMessage(b, 11, encodeValueInfo(&g.Inputs[i]))
	}
	for i := range g.Outputs {
		b = appendMessage(b, 12, encodeValueInfo(&g.Outputs[i]))
	}
	for i := range g.ValueInfo {
		b = appendMessage(b, 13, encodeValueInfo(&g.ValueInfo[i]))
	}
	return b
}

func encodeNode(n *onnx.NodeProto) []byte {
	var b []byte
	for _, in := range n.Inputs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, in)
	}
	for _, out := range n.Outputs {
		b = appendString(b, 2, out)
	}
	b = appendString(b, 3, n.Name)
	b = appendString(b, 4, n.OpType)
	for i := range n.Attributes {
		b = appendMessage(b, 5, encodeAttribute(&n.Attributes[i]))
	}
	b = appendString(b, 7, n.Domain)
	return b
}

func encodeAttribute(a *onnx.AttributeProto) []byte {
	var b []byte
	b = appendString(b, 1, a.Name)
	switch a.Type {
	case onnx.AttributeProtoFloat:
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.F))
	case onnx.AttributeProtoInt:
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.I))
	case onnx.AttributeProtoString:
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, a.S)
	case onnx.AttributeProtoTensor:
		b = appendMessage(b, 5, EncodeTensor(a.T))
	case onnx.AttributeProtoFloats:
		var packed []byte
		for _, f := range a.Floats {
			packed = protowire.AppendFixed32(packed, math.Float32bits(f))
		}
		b = appendMessage(b, 7, packed)
	case onnx.AttributeProtoInts:
		b = appendMessage(b, 8, packVarints(a.Ints))
	case onnx.AttributeProtoStrings:
		for _, s := range a.Strings {
			b = protowire.AppendTag(b, 9, protowire.BytesType)
			b = protowire.AppendBytes(b, s)
		}
	}
	b = protowire.AppendTag(b, 20, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.Type))
	return b
}

// EncodeTensor serializes a TensorProto.
func EncodeTensor(t *onnx.TensorProto) []byte {
	var b []byte
	if len(t.Dims) > 0 {
		b = appendMessage(b, 1, packVarints(t.Dims))
	}
	b = appendVarint(b, 2, uint64(t.DataType))
	if len(t.FloatData) > 0 {
		var packed []byte
		for _, f := range t.FloatData {
			packed = protowire.AppendFixed32(packed, math.Float32bits(f))
		}
		b = appendMessage(b, 4, packed)
	}
	if len(t.Int32Data) > 0 {
		vals := make([]int64, len(t.Int32Data))
		for i, v := range t.Int32Data {
			vals[i] = int64(v)
		}
		b = appendMessage(b, 5, packVarints(vals))
	}
	if len(t.Int64Data) > 0 {
		b = appendMessage(b, 7, packVarints(t.Int64Data))
	}
	b = appendString(b, 8, t.Name)
	if len(t.RawData) > 0 {
		b = appendMessage(b, 9, t.RawData)
	}
	for _, e := range t.ExternalData {
		b = appendMessage(b, 13, encodeEntry(e))
	}
	b = appendVarint(b, 14, uint64(t.DataLocation))
	return b
}

func encodeValueInfo(v *onnx.ValueInfoProto) []byte {
	var b []byte
	b = appendString(b, 1, v.Name)
	if v.Type != nil && v.Type.TensorType != nil {
		var tt []byte
		tt = appendVarint(tt, 1, uint64(v.Type.TensorType.ElemType))
		if s := v.Type.TensorType.Shape; s != nil {
			var sb []byte
			for _, d := range s.Dims {
				var db []byte
				db = appendVarint(db, 1, uint64(d.DimValue))
				db = appendString(db, 2, d.DimParam)
				sb = appendMessage(sb, 1, db)
			}
			tt = appendMessage(tt, 2, sb)
		}
		var tb []byte
		tb = appendMessage(tb, 1, tt)
		b = appendMessage(b, 2, tb)
	}
	return b
}

func encodeEntry(e onnx.StringStringEntry) []byte {
	var b []byte
	b = appendString(b, 1, e.Key)
	b = appendString(b, 2, e.Value)
	return b
}

func packVarints(vals []int64) []byte {
	var b []byte
	for _, v := range vals {
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
