package scene

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownAttribute is returned when a name or key does not resolve to
	// an attribute of the object's class.
	ErrUnknownAttribute = errors.New("scene: unknown attribute")
	// ErrDuplicateAttribute is returned when a class declares a name or alias
	// twice.
	ErrDuplicateAttribute = errors.New("scene: duplicate attribute")
	// ErrTypeMismatch is returned when a value tag differs from the attribute
	// tag.
	ErrTypeMismatch = errors.New("scene: type mismatch")
	// ErrInvalidTimestep is returned for out-of-range timesteps, and for end
	// timestep access on non-blurrable attributes under the strict policy.
	ErrInvalidTimestep = errors.New("scene: invalid timestep")
	// ErrNotBindable is returned when binding an attribute without the
	// bindable flag.
	ErrNotBindable = errors.New("scene: attribute is not bindable")
	// ErrTransactionState is returned for unbalanced update brackets and
	// mutations outside a transaction under the strict policy.
	ErrTransactionState = errors.New("scene: invalid transaction state")
	// ErrUnsupportedTypeDispatch is returned when no dispatch entry exists for
	// a tag.
	ErrUnsupportedTypeDispatch = errors.New("scene: unsupported type dispatch")
	// ErrInvalidAttribute is returned when a declaration is inconsistent.
	ErrInvalidAttribute = errors.New("scene: invalid attribute declaration")
	// ErrClassFrozen is returned when declaring on a class that already has
	// instances.
	ErrClassFrozen = errors.New("scene: class is frozen")
	// ErrClassMismatch is returned when a key or slot belongs to another class.
	ErrClassMismatch = errors.New("scene: attribute belongs to another class")
	// ErrUnknownSceneClass is returned by context lookups.
	ErrUnknownSceneClass = errors.New("scene: unknown scene class")
	// ErrDuplicateSceneClass is returned when a class name is registered twice.
	ErrDuplicateSceneClass = errors.New("scene: duplicate scene class")
	// ErrUnknownSceneObject is returned by context lookups.
	ErrUnknownSceneObject = errors.New("scene: unknown scene object")
	// ErrDuplicateSceneObject is returned when an object name is taken.
	ErrDuplicateSceneObject = errors.New("scene: duplicate scene object")
)

// AttributeError annotates a failed attribute operation with the object and
// attribute it concerned.
type AttributeError struct {
	Op        string
	Class     string
	Object    string
	Attribute string
	Err       error
}

func (e *AttributeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("scene: ")
	b.WriteString(e.Op)
	if e.Object != "" {
		fmt.Fprintf(&b, " object=%q", e.Object)
	}
	if e.Class != "" {
		fmt.Fprintf(&b, " class=%q", e.Class)
	}
	if e.Attribute != "" {
		fmt.Fprintf(&b, " attribute=%q", e.Attribute)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(strings.TrimPrefix(e.Err.Error(), "scene: "))
	}
	return b.String()
}

func (e *AttributeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (o *SceneObject) attrError(op, attr string, err error) error {
	if err == nil {
		return nil
	}
	var attrErr *AttributeError
	if errors.As(err, &attrErr) {
		return err
	}
	return &AttributeError{
		Op:        op,
		Class:     o.class.name,
		Object:    o.name,
		Attribute: attr,
		Err:       err,
	}
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Object string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("scene: %s evaluator %s object=%s: %v", e.Engine, describeExpression(e.Expr), e.Object, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "scene:") {
		return err
	}
	return fmt.Errorf("scene: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, object string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Object == "" {
			evalErr.Object = object
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Object: object,
		Err:    err,
	}
}
