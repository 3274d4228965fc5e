package library

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const (
	NotAuthorized                     = "NOT_AUTHORIZED"
	InvalidAddress                    = "INVALID_ADDRESS"
	ControllerViolation               = "CONTROLLER_VIOLATION"
	ChecksReentrancy                  = "CHECKS_REENTRANCY"
	ImpersonateReentrancy             = "IMPERSONATE_REENTRANCY"
	InvalidNonce                      = "INVALID_NONCE"
	InvalidTimestamp                  = "INVALID_TIMESTAMP"
	InvalidSignature                  = "INVALID_SIGNATURE"
	AccountStatusViolation            = "ACCOUNT_STATUS_VIOLATION"
	VaultStatusViolation              = "VAULT_STATUS_VIOLATION"
	InvalidData                       = "INVALID_DATA"
	InvalidValue                      = "INVALID_VALUE"
	NoChange                          = "NO_CHANGE"
	TooManyElements                   = "TOO_MANY_ELEMENTS"
	InvalidIndex                      = "INVALID_INDEX"
	CallDepthViolation                = "CALL_DEPTH_VIOLATION"
	SimulationBatchNested             = "SIMULATION_BATCH_NESTED"
	OnBehalfOfAccountNotAuthenticated = "ON_BEHALF_OF_ACCOUNT_NOT_AUTHENTICATED"
)

var categories = map[string]goerrors.Category{
	NotAuthorized:                     goerrors.CategoryAuthz,
	InvalidAddress:                    goerrors.CategoryBadInput,
	ControllerViolation:               goerrors.CategoryConflict,
	ChecksReentrancy:                  goerrors.CategoryConflict,
	ImpersonateReentrancy:             goerrors.CategoryConflict,
	InvalidNonce:                      goerrors.CategoryValidation,
	InvalidTimestamp:                  goerrors.CategoryValidation,
	InvalidSignature:                  goerrors.CategoryAuth,
	AccountStatusViolation:            goerrors.CategoryExternal,
	VaultStatusViolation:              goerrors.CategoryExternal,
	InvalidData:                       goerrors.CategoryBadInput,
	InvalidValue:                      goerrors.CategoryBadInput,
	NoChange:                          goerrors.CategoryConflict,
	TooManyElements:                   goerrors.CategoryOperation,
	InvalidIndex:                      goerrors.CategoryBadInput,
	CallDepthViolation:                goerrors.CategoryOperation,
	SimulationBatchNested:             goerrors.CategoryOperation,
	OnBehalfOfAccountNotAuthenticated: goerrors.CategoryAuth,
}

// Fail builds a connector error of the given kind.
func Fail(code string, format string, args ...any) *goerrors.Error {
	category, ok := categories[code]
	if !ok {
		category = goerrors.CategoryInternal
	}
	return goerrors.New(fmt.Sprintf(format, args...), category).WithTextCode(code)
}

// Wrap builds a connector error of the given kind that carries source as its cause.
func Wrap(source error, code string, format string, args ...any) *goerrors.Error {
	e := Fail(code, format, args...)
	e.Source = source
	return e
}

// IsError reports whether the outermost connector error in err's chain is of the given kind.
func IsError(err error, code string) bool {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e.TextCode == code
	}
	return false
}

// ErrorCode returns the kind of the outermost connector error in err's chain, or "".
func ErrorCode(err error) string {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e.TextCode
	}
	return ""
}
