package mapping

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/ir"
)

// Process is the mapping of one foreign op type onto a target op.
type Process struct {
	Framework      string
	ForeignOp      string
	TargetOp       string
	TensorRules    []Rule
	AttributeRules []Rule
}

// Rules returns the tensor rules followed by the attribute rules.
func (p *Process) Rules() []Rule {
	out := make([]Rule, 0, len(p.TensorRules)+len(p.AttributeRules))
	out = append(out, p.TensorRules...)
	return append(out, p.AttributeRules...)
}

// Apply runs every rule against ctx and returns the merged args sorted by
// (ArgType, ArgIndex). Before a rule runs, the foreign value of each of its
// mappings is classified and checked against the rule's accepted types.
func (p *Process) Apply(ctx *Context) ([]ir.ArgDescriptor, error) {
	type slot struct {
		t   ir.ArgType
		idx int
	}
	owners := make(map[slot]string)
	var args []ir.ArgDescriptor

	for _, r := range p.Rules() {
		for _, m := range r.Mappings() {
			if ctx.IsAbsentOptional(m.Foreign) {
				continue
			}
			t, err := ctx.ResolveType(m.Foreign)
			if err != nil {
				if me, ok := err.(*Error); ok {
					me.Rule = r.Name()
				}
				return nil, err
			}
			if !r.AcceptsInputType(t) {
				return nil, ctx.errorf(UnsupportedType, r.Name(), m.Foreign, "rule does not accept %s values", t)
			}
		}

		out, err := r.ConvertAttributes(ctx)
		if err != nil {
			return nil, err
		}
		for _, a := range out {
			s := slot{a.ArgType, a.ArgIndex}
			if other, dup := owners[s]; dup {
				return nil, ctx.errorf(IndexResolutionFailure, r.Name(), a.Name,
					"slot %s already taken by %q", a.Key(), other)
			}
			owners[s] = a.Name
			args = append(args, a)
		}
	}

	ir.SortArgs(args)
	return args, nil
}

// ProcessRegistry holds the processes of one framework keyed by foreign op.
type ProcessRegistry struct {
	framework string
	processes map[string]*Process
}

// Framework returns the framework the registry serves.
func (r *ProcessRegistry) Framework() string { return r.framework }

// Lookup returns the process for a foreign op type.
func (r *ProcessRegistry) Lookup(foreignOp string) (*Process, bool) {
	p, ok := r.processes[foreignOp]
	return p, ok
}

// ForeignOps returns the supported foreign op types in sorted order.
func (r *ProcessRegistry) ForeignOps() []string {
	ops := make([]string, 0, len(r.processes))
	for op := range r.processes {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Len returns the number of processes.
func (r *ProcessRegistry) Len() int { return len(r.processes) }

// ProcessBuilder declares the processes of a framework.
//
//	b := mapping.NewProcessBuilder(rules, cat)
//	b.Map("Relu", "relu").Tensor("ndarraymapping", mapping.Names("input", "X"), nil)
//	procs, err := b.Build()
type ProcessBuilder struct {
	rules   *RuleRegistry
	catalog *catalog.Catalog
	decls   []*OpMapping
}

// NewProcessBuilder returns a builder creating rules from rules and
// validating them against cat.
func NewProcessBuilder(rules *RuleRegistry, cat *catalog.Catalog) *ProcessBuilder {
	return &ProcessBuilder{rules: rules, catalog: cat}
}

// OpMapping is the declaration of one process.
type OpMapping struct {
	b       *ProcessBuilder
	process *Process
	err     error
}

// Map declares that foreignOp translates into targetOp.
func (b *ProcessBuilder) Map(foreignOp, targetOp string) *OpMapping {
	m := &OpMapping{b: b, process: &Process{
		Framework: b.rules.Framework(),
		ForeignOp: foreignOp,
		TargetOp:  targetOp,
	}}
	b.decls = append(b.decls, m)
	return m
}

// Tensor adds a tensor rule.
func (m *OpMapping) Tensor(id string, mappings []NamePair, args TransformerArgs) *OpMapping {
	return m.add(CategoryTensor, id, mappings, args)
}

// Attribute adds an attribute rule.
func (m *OpMapping) Attribute(id string, mappings []NamePair, args TransformerArgs) *OpMapping {
	return m.add(CategoryAttribute, id, mappings, args)
}

func (m *OpMapping) add(category, id string, mappings []NamePair, args TransformerArgs) *OpMapping {
	if m.err != nil {
		return m
	}
	if got, ok := m.b.rules.Category(id); ok && got != category {
		m.err = errors.Errorf("rule %q is a %s rule", id, got)
		return m
	}
	r, err := m.b.rules.New(id, mappings, args)
	if err != nil {
		m.err = err
		return m
	}
	if category == CategoryTensor {
		m.process.TensorRules = append(m.process.TensorRules, r)
	} else {
		m.process.AttributeRules = append(m.process.AttributeRules, r)
	}
	return m
}

// Build validates every declaration and returns the registry.
func (b *ProcessBuilder) Build() (*ProcessRegistry, error) {
	reg := &ProcessRegistry{framework: b.rules.Framework(), processes: make(map[string]*Process, len(b.decls))}
	for _, m := range b.decls {
		p := m.process
		if m.err != nil {
			return nil, errors.Wrapf(m.err, "%s op %q", reg.framework, p.ForeignOp)
		}
		if _, dup := reg.processes[p.ForeignOp]; dup {
			return nil, errors.Errorf("%s op %q declared twice", reg.framework, p.ForeignOp)
		}
		if err := b.validate(p); err != nil {
			return nil, errors.Wrapf(err, "%s op %q", reg.framework, p.ForeignOp)
		}
		reg.processes[p.ForeignOp] = p
	}
	return reg, nil
}

func (b *ProcessBuilder) validate(p *Process) error {
	op, err := b.catalog.FindOp(p.TargetOp)
	if err != nil {
		return err
	}
	targets := make(map[string]string)
	for _, r := range p.Rules() {
		names := r.Mappings()
		var written []string
		if t, ok := r.(Targeter); ok {
			written = t.Targets()
		} else {
			for _, n := range names {
				written = append(written, n.Target)
			}
		}
		for _, name := range written {
			if other, dup := targets[name]; dup {
				return errors.Errorf("target %q written by rules %q and %q", name, other, r.Name())
			}
			targets[name] = r.Name()

			var types []ir.ArgType
			for _, a := range op.Args {
				if a.Name == name {
					types = append(types, a.ArgType)
				}
			}
			if len(types) == 0 {
				return errors.Errorf("rule %q: target op %q has no argument %q", r.Name(), op.Name, name)
			}
			if !r.OutputsType(types) {
				return errors.Errorf("rule %q cannot produce %v for %q", r.Name(), types, name)
			}
		}
		for key := range r.TransformerArgs() {
			if _, ok := targets[key]; !ok {
				return errors.Errorf("rule %q: transformer argument %q matches no target", r.Name(), key)
			}
		}
	}
	return nil
}
