package domain

import "errors"

// Engine errors. Every error aborts the whole operation with no partial state
// mutation; retries are the caller's responsibility.
var (
	// Validation: malformed caller input, detected before any mutation.
	ErrValueTooSmall    = errors.New("value too small")
	ErrValueTooLarge    = errors.New("value too large")
	ErrValueInvalid     = errors.New("value invalid")
	ErrInvalidAmount    = errors.New("amount is invalid")
	ErrInvalidParameter = errors.New("invalid parameter")

	// Authorization: wrong caller for a privileged operation.
	ErrIncorrectAuthority  = errors.New("incorrect authority")
	ErrResolutionAuthority = errors.New("invalid resolution authority")

	// State: operation attempted outside its valid lifecycle window.
	ErrNotInitialized     = errors.New("engine params not initialized")
	ErrCurveComplete      = errors.New("cannot swap after the curve is completed")
	ErrMarketCompleted    = errors.New("market already completed")
	ErrMarketNotCompleted = errors.New("market is not completed")
	ErrLaunchPhase        = errors.New("trading has not started yet")
	ErrStartTime          = errors.New("start slot is in the past")
	ErrEndTime            = errors.New("ending slot is invalid")
	ErrEndTimeElapsed     = errors.New("trading window has ended")

	// Arithmetic: checked-math failure, fatal to the operation, never
	// silently saturated.
	ErrOverflow = errors.New("overflow or underflow occurred")

	// Liquidity: the curve or ledger cannot satisfy the request under current
	// reserves or slippage bound.
	ErrInsufficientTokens = errors.New("not enough tokens to fill the order")
	ErrInsufficientSol    = errors.New("not enough sol received to be valid")
	ErrReturnTooSmall     = errors.New("return amount below minimum receive amount")
	ErrWithdrawAmount     = errors.New("withdraw amount exceeds lp entitlement")
	ErrWithdrawNotLP      = errors.New("withdraw caller has no lp position")

	// Resolution consistency.
	ErrResolutionSide      = errors.New("winning side is invalid")
	ErrResolutionYesAmount = errors.New("declared yes amount inconsistent with supply")
	ErrResolutionNoAmount  = errors.New("declared no amount inconsistent with supply")
)

// Infrastructure errors shared by stores, caches, and transport.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrLockHeld      = errors.New("lock already held")
)
