/*
Package tipbotconst contains constants shared by the Tipbot contract and the
software working with it: FAULT messages, notification names and limits.
*/
package tipbotconst

// Exception messages the contract panics with. They are stable and may be
// matched against the FAULT exception of a failed invocation.
const (
	ErrUnauthorized        = "unauthorized"
	ErrWitnessFailed       = "witness check failed"
	ErrContractPaused      = "contract is paused"
	ErrZeroAmount          = "zero amount"
	ErrNegativeAmount      = "negative amount"
	ErrOverflow            = "balance overflow"
	ErrInsufficientFunds   = "insufficient funds"
	ErrUnknownHandle       = "unknown handle"
	ErrHandleAlreadyLinked = "handle is already linked"
	ErrCallerAlreadyLinked = "account is already linked"
	ErrNotLinked           = "account is not linked"
	ErrInvalidOwner        = "invalid owner"
	ErrInvalidHandle       = "invalid handle"
	ErrInvalidAccount      = "invalid account"
	ErrSelfTip             = "self tip"
	ErrReentrantCall       = "reentrant call"
	ErrUnsupportedToken    = "only GAS can be deposited"
	ErrInvalidConfig       = "invalid config value"
	ErrTransferFailed      = "GAS transfer failed"
)

// Notification names.
const (
	DepositedEvent     = "Deposited"
	WithdrawnEvent     = "Withdrawn"
	TippedEvent        = "Tipped"
	FeeChargedEvent    = "FeeCharged"
	LinkChangedEvent   = "LinkChanged"
	OwnerChangedEvent  = "OwnerChanged"
	PauseChangedEvent  = "PauseChanged"
	ConfigChangedEvent = "ConfigChanged"
)

// Keys of ConfigChanged notifications.
const (
	TipFeeConfig       = "TipFee"
	BalanceLimitConfig = "BalanceLimit"
)

// Handle limits. A handle consists of lowercase latin letters, digits and
// underscores.
const (
	MinHandleLength = 1
	MaxHandleLength = 32
)

// MaxBalance is a decimal representation of the default balance limit, the
// largest unsigned 128-bit integer.
const MaxBalance = "340282366920938463463374607431768211455"

// Storage keys and prefixes.
const (
	OwnerKey        = 'o'
	PausedKey       = 'p'
	TipFeeKey       = 'f'
	BalanceLimitKey = 'l'
	TotalKey        = 't'
	LockKey         = 'r'

	AccountPrefix = 'a'
	HandlePrefix  = 'h'
	LinkPrefix    = 'n'
)
