// Package catalog holds the op signatures an import resolves against: the
// target op descriptor catalog and, per source framework, the declared
// inputs and attributes of foreign ops.
//
// Catalogs are built once and are read-only afterwards, so a single
// instance may be shared by any number of concurrent imports.
package catalog

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/zerfoo/zimport/pkg/ir"
)

var (
	// ErrOpNotFound is returned when a catalog has no op of the given name.
	ErrOpNotFound = errors.New("op not found")
	// ErrArgNotFound is returned when an op has no argument of the given
	// name and type.
	ErrArgNotFound = errors.New("argument not found")
)

// Catalog maps target op names to their descriptors.
type Catalog struct {
	ops map[string]*ir.OpDescriptor
}

// New builds a catalog from descs. Op names must be unique and, within an
// op, every (ArgType, ArgIndex) pair and every (ArgType, Name) pair must be
// unique.
func New(descs ...ir.OpDescriptor) (*Catalog, error) {
	c := &Catalog{ops: make(map[string]*ir.OpDescriptor, len(descs))}
	for _, d := range descs {
		if d.Name == "" {
			return nil, errors.New("op descriptor without a name")
		}
		if _, dup := c.ops[d.Name]; dup {
			return nil, errors.Errorf("duplicate op %q", d.Name)
		}
		type slot struct {
			t   ir.ArgType
			idx int
		}
		type named struct {
			t    ir.ArgType
			name string
		}
		slots := make(map[slot]string)
		names := make(map[named]bool)
		args := make([]ir.ArgDescriptor, 0, len(d.Args))
		for _, a := range d.Args {
			if a.Name == "" || a.ArgType == ir.ArgUnknown {
				return nil, errors.Errorf("op %q: argument needs a name and a type", d.Name)
			}
			if a.ArgIndex < 0 {
				return nil, errors.Errorf("op %q: argument %q has negative index", d.Name, a.Name)
			}
			s := slot{a.ArgType, a.ArgIndex}
			if other, dup := slots[s]; dup {
				return nil, errors.Errorf("op %q: %q and %q share slot %s", d.Name, other, a.Name, a.Key())
			}
			slots[s] = a.Name
			n := named{a.ArgType, a.Name}
			if names[n] {
				return nil, errors.Errorf("op %q: duplicate %s argument %q", d.Name, a.ArgType, a.Name)
			}
			names[n] = true
			args = append(args, ir.ArgDescriptor{Name: a.Name, ArgType: a.ArgType, ArgIndex: a.ArgIndex})
		}
		c.ops[d.Name] = &ir.OpDescriptor{Name: d.Name, Args: args}
	}
	return c, nil
}

// FindOp returns the descriptor of the named op. The result is shared and
// must not be modified.
func (c *Catalog) FindOp(name string) (*ir.OpDescriptor, error) {
	op, ok := c.ops[name]
	if !ok {
		return nil, errors.Wrapf(ErrOpNotFound, "target op %q", name)
	}
	return op, nil
}

// LookupArgIndex returns the position argName occupies among the argType
// arguments of op.
func (c *Catalog) LookupArgIndex(op, argName string, argType ir.ArgType) (int, error) {
	desc, err := c.FindOp(op)
	if err != nil {
		return 0, err
	}
	a, ok := desc.Arg(argName, argType)
	if !ok {
		return 0, errors.Wrapf(ErrArgNotFound, "op %q has no %s argument %q", op, argType, argName)
	}
	return a.ArgIndex, nil
}

// Ops returns the op names in sorted order.
func (c *Catalog) Ops() []string {
	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of ops.
func (c *Catalog) Len() int { return len(c.ops) }
