package catalog

import (
	"embed"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zerfoo/zimport/pkg/ir"
)

//go:embed data/*.yaml
var definitions embed.FS

type targetFile struct {
	Ops []targetOp `yaml:"ops"`
}

type targetOp struct {
	Name string      `yaml:"name"`
	Args []targetArg `yaml:"args"`
}

type targetArg struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Variadic bool   `yaml:"variadic"`
}

// Load reads a target catalog from YAML. Argument indexes are assigned from
// declaration order among the arguments of the same type. A variadic
// argument occupies its index and every index after it, so it must be the
// last argument of its type.
func Load(r io.Reader) (*Catalog, error) {
	var f targetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "failed to decode op catalog")
	}

	descs := make([]ir.OpDescriptor, 0, len(f.Ops))
	for _, op := range f.Ops {
		next := make(map[ir.ArgType]int)
		variadic := make(map[ir.ArgType]string)
		desc := ir.OpDescriptor{Name: op.Name}
		for _, a := range op.Args {
			t, ok := ir.ParseArgType(a.Type)
			if !ok {
				return nil, errors.Errorf("op %q: argument %q has unknown type %q", op.Name, a.Name, a.Type)
			}
			if v, ok := variadic[t]; ok {
				return nil, errors.Errorf("op %q: %s argument %q follows variadic argument %q", op.Name, t, a.Name, v)
			}
			if a.Variadic {
				variadic[t] = a.Name
			}
			desc.Args = append(desc.Args, ir.ArgDescriptor{Name: a.Name, ArgType: t, ArgIndex: next[t]})
			next[t]++
		}
		descs = append(descs, desc)
	}
	return New(descs...)
}

// LoadFile reads a target catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // user supplied catalog path
	if err != nil {
		return nil, errors.Wrap(err, "failed to open op catalog")
	}
	defer func() { _ = f.Close() }()
	c, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "op catalog %s", path)
	}
	return c, nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	f, err := definitions.Open("data/target.yaml")
	if err != nil {
		return nil, errors.Wrap(err, "embedded op catalog")
	}
	defer func() { _ = f.Close() }()
	return Load(f)
})

// Default returns the built-in target op catalog. It is loaded once and
// shared.
func Default() (*Catalog, error) {
	return defaultCatalog()
}
