package tipbot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
)

// Errors corresponding to Tipbot contract exceptions. Use [ParseError] to
// match them with errors.Is.
var (
	ErrUnauthorized        = errors.New(tipbotconst.ErrUnauthorized)
	ErrWitnessFailed       = errors.New(tipbotconst.ErrWitnessFailed)
	ErrContractPaused      = errors.New(tipbotconst.ErrContractPaused)
	ErrZeroAmount          = errors.New(tipbotconst.ErrZeroAmount)
	ErrNegativeAmount      = errors.New(tipbotconst.ErrNegativeAmount)
	ErrOverflow            = errors.New(tipbotconst.ErrOverflow)
	ErrInsufficientFunds   = errors.New(tipbotconst.ErrInsufficientFunds)
	ErrUnknownHandle       = errors.New(tipbotconst.ErrUnknownHandle)
	ErrHandleAlreadyLinked = errors.New(tipbotconst.ErrHandleAlreadyLinked)
	ErrCallerAlreadyLinked = errors.New(tipbotconst.ErrCallerAlreadyLinked)
	ErrNotLinked           = errors.New(tipbotconst.ErrNotLinked)
	ErrInvalidOwner        = errors.New(tipbotconst.ErrInvalidOwner)
	ErrInvalidHandle       = errors.New(tipbotconst.ErrInvalidHandle)
	ErrInvalidAccount      = errors.New(tipbotconst.ErrInvalidAccount)
	ErrSelfTip             = errors.New(tipbotconst.ErrSelfTip)
	ErrReentrantCall       = errors.New(tipbotconst.ErrReentrantCall)
	ErrUnsupportedToken    = errors.New(tipbotconst.ErrUnsupportedToken)
	ErrInvalidConfig       = errors.New(tipbotconst.ErrInvalidConfig)
	ErrTransferFailed      = errors.New(tipbotconst.ErrTransferFailed)
)

var contractErrors = []error{
	ErrUnauthorized,
	ErrWitnessFailed,
	ErrContractPaused,
	ErrZeroAmount,
	ErrNegativeAmount,
	ErrOverflow,
	ErrInsufficientFunds,
	ErrUnknownHandle,
	ErrHandleAlreadyLinked,
	ErrCallerAlreadyLinked,
	ErrNotLinked,
	ErrInvalidOwner,
	ErrInvalidHandle,
	ErrInvalidAccount,
	ErrSelfTip,
	ErrReentrantCall,
	ErrUnsupportedToken,
	ErrInvalidConfig,
	ErrTransferFailed,
}

// ParseError looks for a Tipbot contract exception in the error returned by
// a contract invocation (test invocation made by an actor or an invoker, or
// FAULT exception from the application log) and wraps err with the
// corresponding error from this package. Errors not caused by the contract
// are returned as is.
func ParseError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	for _, e := range contractErrors {
		if strings.Contains(msg, e.Error()) {
			return fmt.Errorf("%w: %w", e, err)
		}
	}

	return err
}

// FaultError converts FAULT exception of the persisted transaction into
// an error. Empty exception (HALT) yields nil.
func FaultError(exception string) error {
	if exception == "" {
		return nil
	}

	return ParseError(errors.New(exception))
}
