package mapping

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies mapping failures.
type ErrorKind int

// Mapping failure kinds.
const (
	// UnresolvedReference: a foreign name matches no attribute, input or
	// graph tensor.
	UnresolvedReference ErrorKind = iota + 1
	// UnsupportedType: a rule was asked to consume a value type it does not
	// accept, or a value cannot be represented as the target arg type.
	UnsupportedType
	// MissingTransformerArg: a rule needs a transformer arg that was not
	// configured.
	MissingTransformerArg
	// IndexResolutionFailure: the target op has no slot for an arg, or two
	// args claim the same slot.
	IndexResolutionFailure
	// InvalidTransformerArg: a configured transformer arg does not fit the
	// value it is applied to.
	InvalidTransformerArg
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrUnresolvedReference    = errors.New("unresolved reference")
	ErrUnsupportedType        = errors.New("unsupported type")
	ErrMissingTransformerArg  = errors.New("missing transformer argument")
	ErrIndexResolutionFailure = errors.New("index resolution failure")
	ErrInvalidTransformerArg  = errors.New("invalid transformer argument")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case UnresolvedReference:
		return ErrUnresolvedReference
	case UnsupportedType:
		return ErrUnsupportedType
	case MissingTransformerArg:
		return ErrMissingTransformerArg
	case IndexResolutionFailure:
		return ErrIndexResolutionFailure
	case InvalidTransformerArg:
		return ErrInvalidTransformerArg
	}
	return nil
}

func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "unknown mapping error"
}

// Error is a mapping failure for one node.
type Error struct {
	Kind ErrorKind
	// Node is the foreign node name.
	Node string
	// Rule is the identifier of the failing rule, if any.
	Rule string
	// Name is the foreign or target name being resolved.
	Name string
	Msg  string
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: node %q", e.Kind, e.Node)
	if e.Rule != "" {
		s += fmt.Sprintf(" rule %q", e.Rule)
	}
	if e.Name != "" {
		s += fmt.Sprintf(" name %q", e.Name)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return 0
}
