// Package tftest builds serialized TensorFlow GraphDef fixtures for tests.
package tftest

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	tf "github.com/zerfoo/zimport/internal/tensorflow"
)

// Encode serializes g in the GraphDef wire format.
func Encode(g *tf.GraphDef) []byte {
	var b []byte
	for i := range g.Nodes {
		b = appendMessage(b, 1, encodeNode(&g.Nodes[i]))
	}
	if g.Producer != 0 {
		var vb []byte
		vb = protowire.AppendTag(vb, 1, protowire.VarintType)
		vb = protowire.AppendVarint(vb, uint64(g.Producer))
		b = appendMessage(b, 4, vb)
	}
	return b
}

// WriteFile encodes g into dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, g *tf.GraphDef) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Encode(g), 0o644); err != nil {
		t.Fatalf("failed to write GraphDef fixture: %v", err)
	}
	return path
}

func encodeNode(n *tf.NodeDef) []byte {
	var b []byte
	b = appendString(b, 1, n.Name)
	b = appendString(b, 2, n.Op)
	for _, in := range n.Input {
		b = appendString(b, 3, in)
	}
	b = appendString(b, 4, n.Device)

	keys := make([]string, 0, len(n.Attr))
	for k := range n.Attr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var eb []byte
		eb = appendString(eb, 1, k)
		eb = appendMessage(eb, 2, encodeAttr(n.Attr[k]))
		b = appendMessage(b, 5, eb)
	}
	return b
}

func encodeAttr(a *tf.AttrValue) []byte {
	var b []byte
	switch a.Kind {
	case tf.KindString:
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, a.S)
	case tf.KindInt:
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.I))
	case tf.KindFloat:
		b = protowire.AppendTag(b, 4, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.F))
	case tf.KindBool:
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(a.B))
	case tf.KindType:
		b = protowire.AppendTag(b, 6, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.Type))
	case tf.KindShape:
		b = appendMessage(b, 7, encodeShape(*a.Shape))
	case tf.KindTensor:
		b = appendMessage(b, 8, EncodeTensor(a.Tensor))
	case tf.KindList:
		b = appendMessage(b, 1, encodeList(a.List))
	}
	return b
}

func encodeList(l *tf.AttrList) []byte {
	var b []byte
	for _, s := range l.S {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, s)
	}
	if len(l.I) > 0 {
		var packed []byte
		for _, v := range l.I {
			packed = protowire.AppendVarint(packed, uint64(v))
		}
		b = appendMessage(b, 3, packed)
	}
	if len(l.F) > 0 {
		var packed []byte
		for _, v := range l.F {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		b = appendMessage(b, 4, packed)
	}
	for _, s := range l.Shape {
		b = appendMessage(b, 7, encodeShape(s))
	}
	return b
}

func encodeShape(s tf.TensorShape) []byte {
	var b []byte
	for _, d := range s.Dims {
		var db []byte
		db = protowire.AppendTag(db, 1, protowire.VarintType)
		db = protowire.AppendVarint(db, uint64(d))
		b = appendMessage(b, 2, db)
	}
	if s.UnknownRank {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}

// EncodeTensor serializes a TensorProto.
func EncodeTensor(t *tf.TensorProto) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.Dtype))
	b = appendMessage(b, 2, encodeShape(t.Shape))
	if len(t.TensorContent) > 0 {
		b = appendMessage(b, 4, t.TensorContent)
	}
	if len(t.FloatVal) > 0 {
		var packed []byte
		for _, v := range t.FloatVal {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		b = appendMessage(b, 5, packed)
	}
	if len(t.IntVal) > 0 {
		var packed []byte
		for _, v := range t.IntVal {
			packed = protowire.AppendVarint(packed, uint64(int64(v)))
		}
		b = appendMessage(b, 7, packed)
	}
	if len(t.Int64Val) > 0 {
		var packed []byte
		for _, v := range t.Int64Val {
			packed = protowire.AppendVarint(packed, uint64(v))
		}
		b = appendMessage(b, 10, packed)
	}
	return b
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
