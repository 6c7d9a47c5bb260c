package model

import (
	"errors"
	"fmt"
	"time"
)

// Errors shared by every core operation. Transport maps each kind to a localized message.
var (
	ErrNotRegistered      = errors.New("player not registered")
	ErrIneligibleTarget   = errors.New("ineligible target")
	ErrNoWeapon           = errors.New("weapon not in inventory")
	ErrAlreadyActive      = errors.New("defense already active")
	ErrUnknownItem        = errors.New("unknown item")
	ErrConflict           = errors.New("concurrent update conflict")
	ErrTransientIO        = errors.New("storage temporarily unavailable")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrPrivateChat        = errors.New("game actions are only available in groups")
	ErrRateLimited        = errors.New("too many requests")
	ErrInvalidPayload     = errors.New("invalid payment payload")
	ErrDuplicatePayment   = errors.New("payment already processed")
	ErrInvalidAmount      = errors.New("amount must be positive")

	// ErrForeignInvoice is a checkout by someone other than the invoiced player.
	ErrForeignInvoice = fmt.Errorf("invoice issued to another player: %w", ErrInvalidPayload)
)

// Currencies.
const (
	CurrencyMedals = "medals"
	CurrencyStars  = "stars"
)

// CooldownError reports an action that is not ready yet.
type CooldownError struct {
	Action    string
	Remaining int64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown for %s", e.Action, time.Duration(e.Remaining)*time.Second)
}

// InsufficientBalanceError reports a debit larger than the balance.
type InsufficientBalanceError struct {
	Currency string
	Needed   int64
	Have     int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s: need %d, have %d", e.Currency, e.Needed, e.Have)
}

// NotOwnedError reports an item the player does not hold.
type NotOwnedError struct {
	ItemID string
}

func (e *NotOwnedError) Error() string {
	return fmt.Sprintf("item %q not owned", e.ItemID)
}

// Reasons an item can be disallowed.
const (
	ReasonLevelRequired = "level_required"
	ReasonAchievement   = "achievement"
	ReasonLimitedTime   = "limited_time_expired"
	ReasonMaxStack      = "max_stack"
	ReasonWrongCurrency = "wrong_currency"
	ReasonNotUsable     = "not_usable"
	ReasonNotForSale    = "not_for_sale"
)

// DisallowedError reports an item that cannot be bought or used right now.
type DisallowedError struct {
	ItemID string
	Reason string
}

func (e *DisallowedError) Error() string {
	return fmt.Sprintf("item %q disallowed: %s", e.ItemID, e.Reason)
}

// IsRetryable reports whether the caller may retry the operation once.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTransientIO)
}
