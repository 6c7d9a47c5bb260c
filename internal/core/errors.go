package core

import (
	"errors"

	"missile-bot/internal/model"
)

// Error kinds reported to the transport and to metrics.
const (
	KindNotRegistered       = "not_registered"
	KindIneligibleTarget    = "ineligible_target"
	KindOnCooldown          = "on_cooldown"
	KindInsufficientBalance = "insufficient_balance"
	KindNoWeapon            = "no_weapon"
	KindNotOwned            = "not_owned"
	KindAlreadyActive       = "already_active"
	KindItemDisallowed      = "item_disallowed"
	KindUnknownItem         = "unknown_item"
	KindConflict            = "conflict"
	KindTransientIO         = "transient_io"
	KindInvariantViolation  = "invariant_violation"
	KindInvalidPayload      = "invalid_payload"
	KindInvalidAmount       = "invalid_amount"
	KindPrivateChat         = "private_chat"
	KindRateLimited         = "rate_limited"
	KindInternal            = "internal"
)

// ErrorKind maps an error returned by a core operation to its kind.
func ErrorKind(err error) string {
	var (
		cooldown     *model.CooldownError
		insufficient *model.InsufficientBalanceError
		notOwned     *model.NotOwnedError
		disallowed   *model.DisallowedError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cooldown):
		return KindOnCooldown
	case errors.As(err, &insufficient):
		return KindInsufficientBalance
	case errors.As(err, &notOwned):
		return KindNotOwned
	case errors.As(err, &disallowed):
		return KindItemDisallowed
	case errors.Is(err, model.ErrNotRegistered):
		return KindNotRegistered
	case errors.Is(err, model.ErrIneligibleTarget):
		return KindIneligibleTarget
	case errors.Is(err, model.ErrNoWeapon):
		return KindNoWeapon
	case errors.Is(err, model.ErrAlreadyActive):
		return KindAlreadyActive
	case errors.Is(err, model.ErrUnknownItem):
		return KindUnknownItem
	case errors.Is(err, model.ErrConflict):
		return KindConflict
	case errors.Is(err, model.ErrTransientIO):
		return KindTransientIO
	case errors.Is(err, model.ErrInvariantViolation):
		return KindInvariantViolation
	case errors.Is(err, model.ErrInvalidPayload), errors.Is(err, model.ErrDuplicatePayment):
		return KindInvalidPayload
	case errors.Is(err, model.ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, model.ErrPrivateChat):
		return KindPrivateChat
	case errors.Is(err, model.ErrRateLimited):
		return KindRateLimited
	}
	return KindInternal
}
