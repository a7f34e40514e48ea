package pattern

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is matched by every parameter validation failure.
var ErrInvalidParameter = errors.New("invalid pattern parameter")

// ParameterError reports a pattern argument outside its valid range.
type ParameterError struct {
	Kind   Kind
	Param  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid %s parameter %s: %s", e.Kind, e.Param, e.Reason)
}

// Is reports whether target is ErrInvalidParameter.
func (e *ParameterError) Is(target error) bool { return target == ErrInvalidParameter }

func paramErr(kind Kind, param, format string, args ...any) error {
	return &ParameterError{Kind: kind, Param: param, Reason: fmt.Sprintf(format, args...)}
}
