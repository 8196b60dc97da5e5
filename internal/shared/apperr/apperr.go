package apperr

import (
	"errors"
	"fmt"
)

// Kind separa erros por responsabilidade: culpa do caller (sem retry),
// falha de infraestrutura (retryável) ou invariante quebrada (fatal).
type Kind int

const (
	KindValidation Kind = iota + 1
	KindInfrastructure
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInfrastructure:
		return "infrastructure"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Code string // identificador estável, ex: "insufficient_funds"
	Err  error  // causa opcional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is permite comparar com sentinelas: dois *Error são iguais se Kind e Code batem.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func Validation(code string) *Error {
	return &Error{Kind: KindValidation, Code: code}
}

func Infrastructure(code string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Code: code, Err: err}
}

func Invariant(code string, err error) *Error {
	return &Error{Kind: KindInvariant, Code: code, Err: err}
}

// KindOf devolve o Kind do erro, ou KindInfrastructure quando o erro
// não é um *Error (falha desconhecida de driver/rede é tratada como retryável).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

func IsValidation(err error) bool     { return KindOf(err) == KindValidation }
func IsInfrastructure(err error) bool { return KindOf(err) == KindInfrastructure }
func IsInvariant(err error) bool      { return KindOf(err) == KindInvariant }
