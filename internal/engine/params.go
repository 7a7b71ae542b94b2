package engine

import "github.com/alanyoungcy/curvemarket/internal/domain"

// ValidateParams checks a proposed params record for internal consistency.
// Violating combinations are rejected here, at configuration time, never at
// trade time.
func ValidateParams(p domain.Params) error {
	if p.Authority == "" || p.TeamWallet == "" {
		return domain.ErrInvalidParameter
	}
	for _, fee := range []uint64{
		p.PlatformBuyFeeBps, p.PlatformSellFeeBps, p.LPBuyFeeBps, p.LPSellFeeBps,
	} {
		if fee > domain.BpsDenominator {
			return domain.ErrInvalidParameter
		}
	}
	mult, err := Pow10(p.TokenDecimals)
	if err != nil {
		return domain.ErrInvalidParameter
	}
	// No fractional base units at whole-token granularity.
	if p.TokenSupply == 0 || p.TokenSupply%mult != 0 {
		return domain.ErrValueInvalid
	}
	if p.TokenSupply < p.InitialTokenReserves {
		return domain.ErrInvalidAmount
	}
	if p.InitialTokenReserves == 0 {
		return domain.ErrValueTooSmall
	}
	if p.MinSolLiquidity == 0 {
		return domain.ErrValueTooSmall
	}
	return nil
}

// ApplyParams validates next and writes it over current. The first apply
// bootstraps the record; afterwards only the current authority may overwrite,
// and re-applying the same record is idempotent. A pending authority transfer
// survives the overwrite.
func ApplyParams(current *domain.Params, next domain.Params, caller string) error {
	if err := ValidateParams(next); err != nil {
		return err
	}
	if current.Initialized && caller != current.Authority {
		return domain.ErrIncorrectAuthority
	}
	pending := current.PendingAuthority
	*current = next
	current.PendingAuthority = pending
	current.Initialized = true
	return nil
}

// NominateAuthority stages a two-step ownership transfer. Only the current
// authority may nominate; the nomination has no effect until accepted.
func NominateAuthority(p *domain.Params, caller, nominee string) error {
	if !p.Initialized || caller != p.Authority {
		return domain.ErrIncorrectAuthority
	}
	if nominee == "" {
		return domain.ErrInvalidParameter
	}
	p.PendingAuthority = nominee
	return nil
}

// AcceptAuthority commits a staged ownership transfer. Only the nominee may
// accept; accepting clears the pending slot.
func AcceptAuthority(p *domain.Params, caller string) error {
	if !p.Initialized || p.PendingAuthority == "" || caller != p.PendingAuthority {
		return domain.ErrIncorrectAuthority
	}
	p.Authority = caller
	p.PendingAuthority = ""
	return nil
}
