package catalog

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerfoo/zimport/pkg/ir"
)

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name  string
		descs []ir.OpDescriptor
	}{
		{"unnamed op", []ir.OpDescriptor{{}}},
		{"duplicate op", []ir.OpDescriptor{{Name: "a"}, {Name: "a"}}},
		{"shared slot", []ir.OpDescriptor{{Name: "a", Args: []ir.ArgDescriptor{
			{Name: "x", ArgType: ir.ArgInt64, ArgIndex: 0},
			{Name: "y", ArgType: ir.ArgInt64, ArgIndex: 0},
		}}}},
		{"duplicate name", []ir.OpDescriptor{{Name: "a", Args: []ir.ArgDescriptor{
			{Name: "x", ArgType: ir.ArgInt64, ArgIndex: 0},
			{Name: "x", ArgType: ir.ArgInt64, ArgIndex: 1},
		}}}},
		{"untyped arg", []ir.OpDescriptor{{Name: "a", Args: []ir.ArgDescriptor{{Name: "x"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.descs...)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(`
ops:
  - name: conv2d
    args:
      - {name: input, type: INPUT_TENSOR}
      - {name: kH, type: INT64}
      - {name: weights, type: TENSOR}
      - {name: kW, type: INT64}
`))
	require.NoError(t, err)

	idx, err := c.LookupArgIndex("conv2d", "kW", ir.ArgInt64)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = c.LookupArgIndex("conv2d", "weights", ir.ArgInputTensor)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = c.LookupArgIndex("conv2d", "kW", ir.ArgFloat)
	assert.True(t, errors.Is(err, ErrArgNotFound))

	_, err = c.FindOp("conv3d")
	assert.True(t, errors.Is(err, ErrOpNotFound))
}

func TestLoadRejectsArgAfterVariadic(t *testing.T) {
	_, err := Load(strings.NewReader(`
ops:
  - name: concat
    args:
      - {name: input, type: INPUT_TENSOR, variadic: true}
      - {name: extra, type: INPUT_TENSOR}
`))
	assert.Error(t, err)

	_, err = Load(strings.NewReader(`
ops:
  - name: bad
    args:
      - {name: x, type: COMPLEX}
`))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, c, again)

	assert.Contains(t, c.Ops(), "conv2d")
	op, err := c.FindOp("conv2d")
	require.NoError(t, err)

	// Indexes are contiguous per type.
	for _, at := range op.ArgTypes() {
		for i, a := range op.ArgsOfType(at) {
			assert.Equal(t, i, a.ArgIndex, "%s %s", op.Name, a.Name)
		}
	}
}

func TestDefaultForeign(t *testing.T) {
	for _, fw := range []string{"onnx", "tensorflow"} {
		c, err := DefaultForeign(fw)
		require.NoError(t, err, fw)
		assert.Equal(t, fw, c.Framework())
		assert.NotEmpty(t, c.Ops())
	}

	_, err := DefaultForeign("caffe")
	assert.Error(t, err)

	c, err := DefaultForeign("onnx")
	require.NoError(t, err)
	conv, ok := c.Op("Conv")
	require.True(t, ok)
	pads, ok := conv.Attr("pads")
	require.True(t, ok)
	assert.Equal(t, ir.AttrListInt, pads.Type)
	require.NotNil(t, pads.Default)
	assert.Equal(t, []int64{0, 0, 0, 0}, pads.Default.Ints)

	ks, ok := conv.Attr("kernel_shape")
	require.True(t, ok)
	assert.True(t, ks.Optional)
	assert.Nil(t, ks.Default)

	tfc, err := DefaultForeign("TensorFlow")
	require.NoError(t, err)
	shape, ok := tfc.Op("Shape")
	require.True(t, ok)
	outType, ok := shape.Attr("out_type")
	require.True(t, ok)
	assert.Equal(t, ir.Int32, outType.Default.DataType)
}

func TestBind(t *testing.T) {
	concat := &ForeignOp{Name: "ConcatV2", Inputs: []ForeignArg{
		{Name: "values", Variadic: true},
		{Name: "axis", Attribute: true},
	}}
	b, unbound := concat.Bind([]string{"a", "b", "c", "axis"})
	assert.Equal(t, []string{"a", "b", "c"}, b["values"])
	assert.Equal(t, []string{"axis"}, b["axis"])
	assert.Empty(t, unbound)

	conv := &ForeignOp{Name: "Conv", Inputs: []ForeignArg{
		{Name: "X"}, {Name: "W"}, {Name: "B", Optional: true},
	}}
	b, _ = conv.Bind([]string{"x", "w"})
	assert.Equal(t, []string{"x"}, b["X"])
	assert.NotContains(t, b, "B")

	b, _ = conv.Bind([]string{"x", "", "b"})
	assert.NotContains(t, b, "W")
	assert.Equal(t, []string{"b"}, b["B"])
}

func TestBindReportsSurplusInputs(t *testing.T) {
	mean := &ForeignOp{Name: "ReduceMean", Inputs: []ForeignArg{{Name: "data"}}}

	b, unbound := mean.Bind([]string{"x", "axes", "extra"})
	assert.Equal(t, []string{"x"}, b["data"])
	assert.Equal(t, []string{"axes", "extra"}, unbound)

	_, unbound = mean.Bind([]string{"x", ""})
	assert.Empty(t, unbound, "omitted trailing inputs are not surplus")
}

func TestLoadForeignErrors(t *testing.T) {
	_, err := LoadForeign(strings.NewReader(`ops: []`))
	assert.Error(t, err)

	_, err = LoadForeign(strings.NewReader(`
framework: x
ops:
  - name: Op
    inputs: [{name: a, variadic: true}, {name: b, variadic: true}]
`))
	assert.Error(t, err)

	_, err = LoadForeign(strings.NewReader(`
framework: x
ops:
  - name: Op
    attrs:
      - {name: t, type: DATA_TYPE, default: COMPLEX}
`))
	assert.Error(t, err)
}
