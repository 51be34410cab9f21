package mapping

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/zerfoo/zimport/pkg/ir"
)

// NamePair maps a target argument name to a foreign attribute or input name.
type NamePair struct {
	Target  string
	Foreign string
}

// Names builds an ordered mapping from alternating target and foreign
// names. It panics on an odd number of names, which is a declaration bug.
func Names(kv ...string) []NamePair {
	if len(kv)%2 != 0 {
		panic("mapping.Names: odd number of names")
	}
	out := make([]NamePair, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		out = append(out, NamePair{Target: kv[i], Foreign: kv[i+1]})
	}
	return out
}

// TransformerArgs holds auxiliary rule configuration keyed by target name.
type TransformerArgs map[string][]ir.ArgDescriptor

// Rule categories.
const (
	CategoryAttribute = "attribute"
	CategoryTensor    = "tensor"
)

// RuleMetadata describes a rule for registry lookup and diagnostics. It is
// only consulted while processes are assembled.
type RuleMetadata struct {
	Framework  string
	Identifier string
	Category   string
}

// Rule converts the declared name correspondences of one foreign node into
// target args. Rules hold only their configuration and may be shared by
// concurrent imports.
type Rule interface {
	Name() string
	Metadata() RuleMetadata
	Mappings() []NamePair
	TransformerArgs() TransformerArgs
	// AcceptsInputType reports whether the rule can consume a foreign value
	// of type t. ConvertAttributes is never called for a mapping whose
	// foreign value has a type the rule does not accept.
	AcceptsInputType(t ir.AttributeValueType) bool
	// OutputsType reports whether the rule can produce args of all types.
	OutputsType(types []ir.ArgType) bool
	ConvertAttributes(ctx *Context) ([]ir.ArgDescriptor, error)
}

// Base carries the configuration every rule shares. Custom rules embed it.
type Base struct {
	Meta RuleMetadata
	Map  []NamePair
	Args TransformerArgs
}

// Name returns the rule identifier.
func (b *Base) Name() string { return b.Meta.Identifier }

// Metadata returns the rule metadata.
func (b *Base) Metadata() RuleMetadata { return b.Meta }

// Mappings returns the declared name pairs.
func (b *Base) Mappings() []NamePair { return b.Map }

// TransformerArgs returns the configured transformer args.
func (b *Base) TransformerArgs() TransformerArgs { return b.Args }

// Targets returns the target names the rule writes. The builder resolves
// each against the target op when a process is assembled.
func (b *Base) Targets() []string {
	out := make([]string, 0, len(b.Map))
	for _, p := range b.Map {
		out = append(out, p.Target)
	}
	return out
}

// pairs calls fn for every mapping whose foreign value the node provides.
func (b *Base) pairs(ctx *Context, fn func(p NamePair) error) error {
	for _, p := range b.Map {
		if ctx.IsAbsentOptional(p.Foreign) {
			continue
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// transformerArg returns the first transformer arg configured for target.
func (b *Base) transformerArg(ctx *Context, target string) (ir.ArgDescriptor, error) {
	args := b.Args[target]
	if len(args) == 0 {
		return ir.ArgDescriptor{}, ctx.errorf(MissingTransformerArg, b.Name(), target, "rule requires a transformer argument")
	}
	return args[0], nil
}

func (b *Base) errorf(ctx *Context, kind ErrorKind, name, format string, args ...any) *Error {
	return ctx.errorf(kind, b.Name(), name, format, args...)
}

// Targeter is implemented by rules that report which target names they
// write. Rules that don't are checked against their mapping targets.
type Targeter interface {
	Targets() []string
}

// Factory creates a configured rule.
type Factory func(base Base) Rule

type registeredRule struct {
	category string
	factory  Factory
}

// RuleRegistry holds the rule variants available to one framework.
type RuleRegistry struct {
	framework string
	rules     map[string]registeredRule
}

// NewRuleRegistry returns a registry for framework holding every built-in
// rule variant.
func NewRuleRegistry(framework string) *RuleRegistry {
	r := &RuleRegistry{framework: framework, rules: make(map[string]registeredRule)}
	for id, f := range builtinAttributeRules {
		r.rules[id] = registeredRule{CategoryAttribute, f}
	}
	for id, f := range builtinTensorRules {
		r.rules[id] = registeredRule{CategoryTensor, f}
	}
	return r
}

// Framework returns the framework the registry serves.
func (r *RuleRegistry) Framework() string { return r.framework }

// Register adds a rule variant, replacing any variant of the same id.
func (r *RuleRegistry) Register(id, category string, f Factory) error {
	if id == "" || f == nil {
		return errors.New("rule registration needs an identifier and a factory")
	}
	if category != CategoryAttribute && category != CategoryTensor {
		return errors.Errorf("rule %q: unknown category %q", id, category)
	}
	r.rules[id] = registeredRule{category, f}
	return nil
}

// Identifiers returns the registered rule ids in sorted order.
func (r *RuleRegistry) Identifiers() []string {
	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Category returns the category of rule id.
func (r *RuleRegistry) Category(id string) (string, bool) {
	rr, ok := r.rules[id]
	return rr.category, ok
}

// New creates rule id with the given configuration.
func (r *RuleRegistry) New(id string, mappings []NamePair, args TransformerArgs) (Rule, error) {
	rr, ok := r.rules[id]
	if !ok {
		return nil, errors.Errorf("%s: unknown rule %q", r.framework, id)
	}
	seen := make(map[string]bool, len(mappings))
	for _, p := range mappings {
		if p.Target == "" || p.Foreign == "" {
			return nil, errors.Errorf("%s rule %q: empty name in mapping", r.framework, id)
		}
		if seen[p.Target] {
			return nil, errors.Errorf("%s rule %q: target %q mapped twice", r.framework, id, p.Target)
		}
		seen[p.Target] = true
	}
	return rr.factory(Base{
		Meta: RuleMetadata{Framework: r.framework, Identifier: id, Category: rr.category},
		Map:  mappings,
		Args: args,
	}), nil
}
