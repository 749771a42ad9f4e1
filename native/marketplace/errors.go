package marketplace

import (
	"errors"

	nativecommon "github.com/chronogist/iNS-intelligent-name-service-sub001/native/common"
)

// ErrPaused re-exports the module pause failure under the marketplace
// error taxonomy so callers can match it alongside the other sentinels.
var ErrPaused = nativecommon.ErrModulePaused

var (
	errNilState    = errors.New("marketplace engine: state not configured")
	errNilRegistry = errors.New("marketplace engine: registry not configured")

	// ErrNotOwner rejects listing or acceptance calls from anyone but the
	// current registry owner of the asset.
	ErrNotOwner = errors.New("marketplace: caller is not the asset owner")
	// ErrUnauthorized rejects role-gated administrative calls.
	ErrUnauthorized = errors.New("marketplace: caller lacks operator role")
	// ErrInvalidPrice rejects non-positive sale prices and daily rates.
	ErrInvalidPrice = errors.New("marketplace: price must be positive")
	// ErrInvalidDuration rejects rental durations outside [1, 365] days or
	// listings with min above max.
	ErrInvalidDuration = errors.New("marketplace: rental duration out of range")
	// ErrInvalidAmount rejects zero-amount offers.
	ErrInvalidAmount = errors.New("marketplace: amount must be positive")
	// ErrAlreadyListed rejects a second active listing for the same asset.
	ErrAlreadyListed = errors.New("marketplace: asset already listed")
	// ErrNotListed rejects purchases, rentals and listing mutations when no
	// active listing exists.
	ErrNotListed = errors.New("marketplace: asset not listed")
	// ErrAssetLocked rejects sales, re-listings and re-rentals while an
	// unexpired rental occupies the asset.
	ErrAssetLocked = errors.New("marketplace: asset locked by active rental")
	// ErrInsufficientPayment rejects payments below the computed total.
	ErrInsufficientPayment = errors.New("marketplace: payment below required amount")
	// ErrInsufficientFunds rejects payers whose balance cannot cover the
	// attached payment.
	ErrInsufficientFunds = errors.New("marketplace: insufficient balance")
	// ErrSelfTransaction rejects buying, renting or offering on an asset the
	// caller already owns.
	ErrSelfTransaction = errors.New("marketplace: self transaction not allowed")
	// ErrInvalidIndex rejects offer indices outside the stored sequence.
	ErrInvalidIndex = errors.New("marketplace: offer index out of range")
	// ErrOfferNotActive rejects acting twice on the same offer.
	ErrOfferNotActive = errors.New("marketplace: offer not active")
	// ErrOfferExpired blocks acceptance of offers past their window.
	ErrOfferExpired = errors.New("marketplace: offer expired")
	// ErrRentalNotExpired blocks ending a rental before its end time.
	ErrRentalNotExpired = errors.New("marketplace: rental period not over")
	// ErrNoActiveRental rejects ending a rental that does not exist or has
	// already been ended.
	ErrNoActiveRental = errors.New("marketplace: no active rental")
	// ErrTransferFailed wraps fund or ownership movement failures.
	ErrTransferFailed = errors.New("marketplace: transfer failed")
	// ErrAssetNotFound rejects operations on nodes the registry has never
	// seen.
	ErrAssetNotFound = errors.New("marketplace: asset not found")
	// ErrFeeTooHigh rejects platform fee updates above the hard ceiling.
	ErrFeeTooHigh = errors.New("marketplace: fee exceeds ceiling")
	// ErrZeroTreasury rejects configuring an empty treasury address.
	ErrZeroTreasury = errors.New("marketplace: treasury not configured")
)
