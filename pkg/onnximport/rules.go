package onnximport

import (
	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/ir"
	"github.com/zerfoo/zimport/pkg/mapping"
)

func constants(args ...ir.ArgDescriptor) mapping.TransformerArgs {
	out := make(mapping.TransformerArgs, len(args))
	for _, a := range args {
		out[a.Name] = append(out[a.Name], a)
	}
	return out
}

// Processes declares how each supported ONNX op maps onto the target
// catalog.
func Processes(cat *catalog.Catalog) (*mapping.ProcessRegistry, error) {
	b := mapping.NewProcessBuilder(mapping.NewRuleRegistry(FrameworkName), cat)

	for _, op := range [][2]string{{"Add", "add"}, {"Sub", "sub"}, {"Mul", "mul"}} {
		b.Map(op[0], op[1]).Tensor("ndarraymapping", mapping.Names("input", "A", "y", "B"), nil)
	}
	b.Map("Relu", "relu").
		Tensor("ndarraymapping", mapping.Names("input", "X"), nil).
		Attribute("argdescriptorconstant", nil, constants(ir.DoubleArg("cutoff", 0)))
	b.Map("Identity", "identity").Tensor("passthrough", nil, nil)

	b.Map("MatMul", "matmul").
		Tensor("ndarraymapping", mapping.Names("input", "A", "y", "B"), nil).
		Attribute("argdescriptorconstant", nil, constants(
			ir.BoolArg("transposeX", false),
			ir.BoolArg("transposeY", false),
			ir.DoubleArg("alpha", 1),
			ir.DoubleArg("beta", 0),
		))
	b.Map("Gemm", "matmul").
		Tensor("ndarraymapping", mapping.Names("input", "A", "y", "B", "bias", "C"), nil).
		Attribute("valuemapping", mapping.Names(
			"transposeX", "transA",
			"transposeY", "transB",
			"alpha", "alpha",
			"beta", "beta",
		), nil)

	b.Map("Concat", "concat").
		Tensor("multiinputindex", mapping.Names("input", "inputs"), nil).
		Attribute("valuemapping", mapping.Names("concatDimension", "axis"), nil)

	b.Map("Conv", "conv2d").
		Tensor("ndarraymapping", mapping.Names("input", "X", "weights", "W", "bias", "B"), nil).
		Attribute("ndarraysizeat", mapping.Names("kH", "W", "kW", "W"), constants(
			ir.Int64Arg("kH", 2),
			ir.Int64Arg("kW", 3),
		)).
		Attribute("listattributevaluelookuptoindex", mapping.Names(
			"sH", "strides", "sW", "strides",
			"pH", "pads", "pW", "pads",
			"dH", "dilations", "dW", "dilations",
		), constants(
			ir.Int64Arg("sH", 0), ir.Int64Arg("sW", 1),
			ir.Int64Arg("pH", 0), ir.Int64Arg("pW", 1),
			ir.Int64Arg("dH", 0), ir.Int64Arg("dW", 1),
		)).
		Attribute("stringequals", mapping.Names("isSameMode", "auto_pad"), constants(
			ir.StringArg("isSameMode", "SAME_UPPER"),
			ir.StringArg("isSameMode", "SAME_LOWER"),
		)).
		Attribute("valuemapping", mapping.Names("groups", "group"), nil).
		Attribute("argdescriptorconstant", nil, constants(ir.Int64Arg("isNHWC", 0)))

	b.Map("Transpose", "permute").
		Tensor("ndarraymapping", mapping.Names("input", "data"), nil).
		Attribute("listnumbertolistnumber", mapping.Names("permuteDims", "perm"), nil)
	b.Map("Reshape", "reshape").Tensor("ndarraymapping", mapping.Names("input", "data", "shape", "shape"), nil)
	b.Map("Softmax", "softmax").
		Tensor("ndarraymapping", mapping.Names("input", "input"), nil).
		Attribute("valuemapping", mapping.Names("dimension", "axis"), nil)
	b.Map("Cast", "cast").
		Tensor("ndarraymapping", mapping.Names("input", "input"), nil).
		Attribute("datatypemapping", mapping.Names("dtype", "to"), nil)
	b.Map("Squeeze", "squeeze").
		Tensor("ndarraymapping", mapping.Names("input", "data"), nil).
		Attribute("ndarraytointattributevalue", mapping.Names("axes", "axes"), nil)
	b.Map("Unsqueeze", "expand_dims").
		Tensor("ndarraymapping", mapping.Names("input", "data"), nil).
		Attribute("ndarraytointattributevalue", mapping.Names("axes", "axes"), nil)
	b.Map("ReduceMean", "reduce_mean").
		Tensor("ndarraymapping", mapping.Names("input", "data"), nil).
		Attribute("ndarraytointattributevalue", mapping.Names("dimensions", "axes"), nil).
		Attribute("valuemapping", mapping.Names("keepDims", "keepdims"), nil)
	b.Map("Gather", "gather").
		Tensor("ndarraymapping", mapping.Names("input", "data", "indices", "indices"), nil).
		Attribute("valuemapping", mapping.Names("dimensions", "axis"), nil)
	b.Map("Shape", "shape_of").
		Tensor("ndarraymapping", mapping.Names("input", "data"), nil).
		Attribute("argdescriptorconstant", nil, constants(ir.Int64Arg("dataType", int64(ir.Int64))))
	b.Map("LeakyRelu", "leakyrelu").
		Tensor("ndarraymapping", mapping.Names("input", "X"), nil).
		Attribute("valuemapping", mapping.Names("alpha", "alpha"), nil)
	b.Map("Flatten", "flatten_2d").
		Tensor("ndarraymapping", mapping.Names("input", "input"), nil).
		Attribute("valuemapping", mapping.Names("flattenDimension", "axis"), nil)

	b.Map("BatchNormalization", "batchnorm").
		Tensor("ndarraymapping", mapping.Names(
			"input", "X",
			"mean", "input_mean",
			"variance", "input_var",
			"gamma", "scale",
			"beta", "B",
		), nil).
		Attribute("valuemapping", mapping.Names("epsilon", "epsilon"), nil).
		Attribute("invertbooleannumber", mapping.Names("isInference", "training_mode"), nil).
		Attribute("argdescriptorconstant", nil, constants(
			ir.BoolArg("applyGamma", true),
			ir.BoolArg("applyBeta", true),
			ir.Int64Arg("isNHWC", 0),
		))

	return b.Build()
}
