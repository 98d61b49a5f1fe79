package model

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// Error kinds shared by every store and use case. Match them with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrReferentialConflict = errors.New("referential conflict")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// Context keys for error values
const (
	RiskCodeKey  = "risk_code"
	VersionIDKey = "version_id"
	RuleIDKey    = "rule_id"
	RuleCountKey = "rule_count"
	StatusKey    = "status"
)

// StoreUnavailable wraps a backend failure so that it matches ErrStoreUnavailable
// while keeping the original cause in the chain.
func StoreUnavailable(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(fmt.Errorf("%w: %w", ErrStoreUnavailable, err), msg, opts...)
}

// ErrorValue looks up a goerr value by key anywhere in the error chain.
func ErrorValue(err error, key string) (any, bool) {
	for err != nil {
		if ge, ok := err.(*goerr.Error); ok {
			if v, found := ge.Values()[key]; found {
				return v, true
			}
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}

// BlockingRuleCount returns the number of rules that blocked a delete, if the error carries it.
func BlockingRuleCount(err error) (int, bool) {
	v, ok := ErrorValue(err, RuleCountKey)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}
