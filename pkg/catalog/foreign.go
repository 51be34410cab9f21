package catalog

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zerfoo/zimport/pkg/ir"
)

// ForeignArg is a declared input of a foreign op.
type ForeignArg struct {
	Name string `yaml:"name"`
	// Variadic absorbs every node input not claimed by the other args.
	Variadic bool `yaml:"variadic"`
	// Optional inputs may be absent from a node.
	Optional bool `yaml:"optional"`
	// Attribute marks an input that carries a configuration value (an axis,
	// a shape) rather than data flowing through the op.
	Attribute bool `yaml:"attribute"`
}

// ForeignAttr is a declared attribute of a foreign op.
type ForeignAttr struct {
	Name     string
	Type     ir.AttributeValueType
	Default  *ir.AttrValue
	Optional bool
}

// ForeignOp is the declared signature of a foreign op.
type ForeignOp struct {
	Name   string
	Inputs []ForeignArg
	Attrs  []ForeignAttr
}

// Input returns the declared input named name.
func (o *ForeignOp) Input(name string) (ForeignArg, bool) {
	for _, a := range o.Inputs {
		if a.Name == name {
			return a, true
		}
	}
	return ForeignArg{}, false
}

// Attr returns the declared attribute named name.
func (o *ForeignOp) Attr(name string) (ForeignAttr, bool) {
	for _, a := range o.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return ForeignAttr{}, false
}

// Bind assigns a node's positional inputs to the declared input args. A
// variadic arg takes the surplus; args past the end of inputs stay unbound.
// Empty input names mark omitted optional inputs and are not bound. Inputs
// no declared arg can take are returned as unbound.
func (o *ForeignOp) Bind(inputs []string) (bound map[string][]string, unbound []string) {
	bound = make(map[string][]string, len(o.Inputs))
	surplus := len(inputs) - len(o.Inputs) + 1
	pos := 0
	for _, a := range o.Inputs {
		n := 1
		if a.Variadic {
			n = max(surplus, 0)
		}
		for i := 0; i < n && pos < len(inputs); i++ {
			if inputs[pos] != "" {
				bound[a.Name] = append(bound[a.Name], inputs[pos])
			}
			pos++
		}
	}
	for ; pos < len(inputs); pos++ {
		if inputs[pos] != "" {
			unbound = append(unbound, inputs[pos])
		}
	}
	return bound, unbound
}

// ForeignCatalog maps a framework's op types to their signatures.
type ForeignCatalog struct {
	framework string
	ops       map[string]*ForeignOp
}

// NewForeign builds a foreign catalog for framework.
func NewForeign(framework string, ops ...ForeignOp) (*ForeignCatalog, error) {
	c := &ForeignCatalog{framework: framework, ops: make(map[string]*ForeignOp, len(ops))}
	for i := range ops {
		op := ops[i]
		if op.Name == "" {
			return nil, errors.Errorf("%s: op without a name", framework)
		}
		if _, dup := c.ops[op.Name]; dup {
			return nil, errors.Errorf("%s: duplicate op %q", framework, op.Name)
		}
		seen := make(map[string]bool)
		variadic := 0
		for _, a := range op.Inputs {
			if seen[a.Name] {
				return nil, errors.Errorf("%s op %q: duplicate input %q", framework, op.Name, a.Name)
			}
			seen[a.Name] = true
			if a.Variadic {
				variadic++
			}
		}
		if variadic > 1 {
			return nil, errors.Errorf("%s op %q: more than one variadic input", framework, op.Name)
		}
		for _, a := range op.Attrs {
			if seen[a.Name] {
				return nil, errors.Errorf("%s op %q: duplicate name %q", framework, op.Name, a.Name)
			}
			seen[a.Name] = true
			if a.Type == ir.AttrInvalid {
				return nil, errors.Errorf("%s op %q: attribute %q has no type", framework, op.Name, a.Name)
			}
		}
		c.ops[op.Name] = &op
	}
	return c, nil
}

// Framework returns the framework name the catalog describes.
func (c *ForeignCatalog) Framework() string { return c.framework }

// Op returns the signature of the named op type.
func (c *ForeignCatalog) Op(name string) (*ForeignOp, bool) {
	op, ok := c.ops[name]
	return op, ok
}

// Ops returns the op type names in sorted order.
func (c *ForeignCatalog) Ops() []string {
	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type foreignFile struct {
	Framework string       `yaml:"framework"`
	Ops       []foreignDef `yaml:"ops"`
}

type foreignDef struct {
	Name   string        `yaml:"name"`
	Inputs []ForeignArg  `yaml:"inputs"`
	Attrs  []foreignAttr `yaml:"attrs"`
}

type foreignAttr struct {
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type"`
	Optional bool      `yaml:"optional"`
	Default  yaml.Node `yaml:"default"`
}

// LoadForeign reads a foreign catalog from YAML.
func LoadForeign(r io.Reader) (*ForeignCatalog, error) {
	var f foreignFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "failed to decode foreign op catalog")
	}
	if f.Framework == "" {
		return nil, errors.New("foreign op catalog does not name its framework")
	}

	ops := make([]ForeignOp, 0, len(f.Ops))
	for _, d := range f.Ops {
		op := ForeignOp{Name: d.Name, Inputs: d.Inputs}
		for _, a := range d.Attrs {
			t, ok := ir.ParseAttributeValueType(a.Type)
			if !ok {
				return nil, errors.Errorf("%s op %q: attribute %q has unknown type %q", f.Framework, d.Name, a.Name, a.Type)
			}
			def, err := decodeDefault(t, &a.Default)
			if err != nil {
				return nil, errors.Wrapf(err, "%s op %q: default of attribute %q", f.Framework, d.Name, a.Name)
			}
			op.Attrs = append(op.Attrs, ForeignAttr{Name: a.Name, Type: t, Default: def, Optional: a.Optional})
		}
		ops = append(ops, op)
	}
	return NewForeign(f.Framework, ops...)
}

func decodeDefault(t ir.AttributeValueType, n *yaml.Node) (*ir.AttrValue, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	v := &ir.AttrValue{Type: t}
	var err error
	switch t {
	case ir.AttrInt:
		err = n.Decode(&v.Int)
	case ir.AttrFloat:
		err = n.Decode(&v.Float)
	case ir.AttrString:
		err = n.Decode(&v.String)
	case ir.AttrBool:
		err = n.Decode(&v.Bool)
	case ir.AttrDataType:
		var s string
		if err = n.Decode(&s); err == nil {
			var ok bool
			if v.DataType, ok = ir.ParseDataType(s); !ok {
				err = errors.Errorf("unknown data type %q", s)
			}
		}
	case ir.AttrListInt:
		err = n.Decode(&v.Ints)
	case ir.AttrListFloat:
		err = n.Decode(&v.Floats)
	case ir.AttrListString:
		err = n.Decode(&v.Strings)
	case ir.AttrListBool:
		err = n.Decode(&v.Bools)
	default:
		err = errors.Errorf("%s attributes cannot have a default", t)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// LoadForeignFile reads a foreign catalog from a YAML file.
func LoadForeignFile(path string) (*ForeignCatalog, error) {
	f, err := os.Open(path) //nolint:gosec // user supplied catalog path
	if err != nil {
		return nil, errors.Wrap(err, "failed to open foreign op catalog")
	}
	defer func() { _ = f.Close() }()
	c, err := LoadForeign(f)
	if err != nil {
		return nil, errors.Wrapf(err, "foreign op catalog %s", path)
	}
	return c, nil
}

var (
	foreignMu    sync.Mutex
	foreignCache = make(map[string]*ForeignCatalog)
)

// DefaultForeign returns the built-in catalog of framework's ops ("onnx" or
// "tensorflow"). Each catalog is loaded once and shared.
func DefaultForeign(framework string) (*ForeignCatalog, error) {
	framework = strings.ToLower(framework)
	foreignMu.Lock()
	defer foreignMu.Unlock()
	if c, ok := foreignCache[framework]; ok {
		return c, nil
	}
	f, err := definitions.Open("data/" + framework + ".yaml")
	if err != nil {
		return nil, errors.Errorf("no built-in op catalog for framework %q", framework)
	}
	defer func() { _ = f.Close() }()
	c, err := LoadForeign(f)
	if err != nil {
		return nil, errors.Wrapf(err, "embedded %s op catalog", framework)
	}
	foreignCache[framework] = c
	return c, nil
}
