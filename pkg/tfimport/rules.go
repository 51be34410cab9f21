package tfimport

import (
	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/ir"
	"github.com/zerfoo/zimport/pkg/mapping"
)

func args(descs ...ir.ArgDescriptor) mapping.TransformerArgs {
	out := make(mapping.TransformerArgs, len(descs))
	for _, d := range descs {
		out[d.Name] = append(out[d.Name], d)
	}
	return out
}

// byFormat selects a per-dimension list entry by data_format: nchw for
// NCHW nodes, nhwc otherwise. explicit_paddings holds a (before, after)
// pair per dimension, so its positions are doubled.
func byFormat(nchw, nhwc int64) []ir.ArgDescriptor {
	return []ir.ArgDescriptor{
		ir.StringArg("data_format", "NCHW"),
		ir.Int64Arg("nchw", nchw),
		ir.Int64Arg("nhwc", nhwc),
	}
}

// Processes declares how each supported TensorFlow op maps onto the target
// catalog.
func Processes(cat *catalog.Catalog) (*mapping.ProcessRegistry, error) {
	b := mapping.NewProcessBuilder(mapping.NewRuleRegistry(FrameworkName), cat)

	for _, op := range [][2]string{{"Add", "add"}, {"AddV2", "add"}, {"Sub", "sub"}, {"Mul", "mul"}} {
		b.Map(op[0], op[1]).Tensor("ndarraymapping", mapping.Names("input", "x", "y", "y"), nil)
	}
	b.Map("Relu", "relu").
		Tensor("ndarraymapping", mapping.Names("input", "features"), nil).
		Attribute("argdescriptorconstant", nil, args(ir.DoubleArg("cutoff", 0)))
	b.Map("Identity", "identity").Tensor("passthrough", nil, nil)

	b.Map("MatMul", "matmul").
		Tensor("ndarraymapping", mapping.Names("input", "a", "y", "b"), nil).
		Attribute("valuemapping", mapping.Names("transposeX", "transpose_a", "transposeY", "transpose_b"), nil).
		Attribute("argdescriptorconstant", nil, args(ir.DoubleArg("alpha", 1), ir.DoubleArg("beta", 0)))

	b.Map("ConcatV2", "concat").
		Tensor("multiinputindex", mapping.Names("input", mapping.AllInputs), nil).
		Attribute("ndarraytointattributevalue", mapping.Names("concatDimension", "axis"), nil)

	b.Map("Conv2D", "conv2d").
		Tensor("ndarraymapping", mapping.Names("input", "input", "weights", "filter"), nil).
		Attribute("ndarraysizeat", mapping.Names("kH", "filter", "kW", "filter"), args(
			ir.Int64Arg("kH", 0),
			ir.Int64Arg("kW", 1),
		)).
		Attribute("conditionalfieldvalueintindex", mapping.Names(
			"sH", "strides", "sW", "strides",
			"pH", "explicit_paddings", "pW", "explicit_paddings",
			"dH", "dilations", "dW", "dilations",
		), mapping.TransformerArgs{
			"sH": byFormat(2, 1), "sW": byFormat(3, 2),
			"pH": byFormat(4, 2), "pW": byFormat(6, 4),
			"dH": byFormat(2, 1), "dW": byFormat(3, 2),
		}).
		Attribute("stringequals", mapping.Names("isSameMode", "padding", "isNHWC", "data_format"), args(
			ir.StringArg("isSameMode", "SAME"),
			ir.StringArg("isNHWC", "NHWC"),
		)).
		Attribute("argdescriptorconstant", nil, args(ir.Int64Arg("groups", 1)))

	b.Map("Transpose", "permute").
		Tensor("ndarraymapping", mapping.Names("input", "x"), nil).
		Attribute("ndarraytointattributevalue", mapping.Names("permuteDims", "perm"), nil)
	b.Map("Reshape", "reshape").Tensor("ndarraymapping", mapping.Names("input", "tensor", "shape", "shape"), nil)
	b.Map("Softmax", "softmax").
		Tensor("ndarraymapping", mapping.Names("input", "logits"), nil).
		Attribute("argdescriptorconstant", nil, args(ir.Int64Arg("dimension", -1)))
	b.Map("Cast", "cast").
		Tensor("ndarraymapping", mapping.Names("input", "x"), nil).
		Attribute("datatypemapping", mapping.Names("dtype", "DstT"), nil)
	b.Map("Squeeze", "squeeze").
		Tensor("ndarraymapping", mapping.Names("input", "input"), nil).
		Attribute("listnumbertolistnumber", mapping.Names("axes", "squeeze_dims"), nil)
	b.Map("ExpandDims", "expand_dims").
		Tensor("ndarraymapping", mapping.Names("input", "input"), nil).
		Attribute("ndarraytointattributevalue", mapping.Names("axes", "dim"), nil)
	b.Map("Mean", "reduce_mean").
		Tensor("ndarraymapping", mapping.Names("input", "input"), nil).
		Attribute("ndarraytointattributevalue", mapping.Names("dimensions", "reduction_indices"), nil).
		Attribute("valuemapping", mapping.Names("keepDims", "keep_dims"), nil)
	b.Map("GatherV2", "gather").
		Tensor("ndarraymapping", mapping.Names("input", "params", "indices", "indices"), nil).
		Attribute("ndarraytointattributevalue", mapping.Names("dimensions", "axis"), nil)
	b.Map("Shape", "shape_of").
		Tensor("ndarraymapping", mapping.Names("input", "input"), nil).
		Attribute("datatypetoint", mapping.Names("dataType", "out_type"), nil)
	b.Map("LeakyRelu", "leakyrelu").
		Tensor("ndarraymapping", mapping.Names("input", "features"), nil).
		Attribute("valuemapping", mapping.Names("alpha", "alpha"), nil)

	b.Map("FusedBatchNormV3", "batchnorm").
		Tensor("ndarraymapping", mapping.Names(
			"input", "x",
			"mean", "mean",
			"variance", "variance",
			"gamma", "scale",
			"beta", "offset",
		), nil).
		Attribute("valuemapping", mapping.Names("epsilon", "epsilon"), nil).
		Attribute("invertbooleannumber", mapping.Names("isInference", "is_training"), nil).
		Attribute("stringequals", mapping.Names("isNHWC", "data_format"), args(ir.StringArg("isNHWC", "NHWC"))).
		Attribute("argdescriptorconstant", nil, args(ir.BoolArg("applyGamma", true), ir.BoolArg("applyBeta", true)))

	return b.Build()
}
