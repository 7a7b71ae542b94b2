package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

func testParams() domain.Params {
	return domain.Params{
		Authority:            "alice",
		TeamWallet:           "team-wallet",
		PlatformBuyFeeBps:    100,
		PlatformSellFeeBps:   100,
		LPBuyFeeBps:          100,
		LPSellFeeBps:         100,
		TokenSupply:          1_000_000_000_000,
		TokenDecimals:        6,
		InitialTokenReserves: 1_000_000_000_000,
		MinSolLiquidity:      30_000_000,
		Initialized:          true,
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Params)
		wantErr error
	}{
		{name: "valid", mutate: func(p *domain.Params) {}},
		{
			name:    "missing authority",
			mutate:  func(p *domain.Params) { p.Authority = "" },
			wantErr: domain.ErrInvalidParameter,
		},
		{
			name:    "missing team wallet",
			mutate:  func(p *domain.Params) { p.TeamWallet = "" },
			wantErr: domain.ErrInvalidParameter,
		},
		{
			name:    "buy fee over 100 percent",
			mutate:  func(p *domain.Params) { p.PlatformBuyFeeBps = 10_001 },
			wantErr: domain.ErrInvalidParameter,
		},
		{
			name:    "lp sell fee over 100 percent",
			mutate:  func(p *domain.Params) { p.LPSellFeeBps = 20_000 },
			wantErr: domain.ErrInvalidParameter,
		},
		{
			name:    "supply not whole tokens",
			mutate:  func(p *domain.Params) { p.TokenSupply = 1_000_000_000_001 },
			wantErr: domain.ErrValueInvalid,
		},
		{
			name:    "zero supply",
			mutate:  func(p *domain.Params) { p.TokenSupply = 0 },
			wantErr: domain.ErrValueInvalid,
		},
		{
			name:    "supply below initial reserves",
			mutate:  func(p *domain.Params) { p.TokenSupply = 1_000_000 },
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "zero initial reserves",
			mutate:  func(p *domain.Params) { p.InitialTokenReserves = 0; p.TokenSupply = 0 },
			wantErr: domain.ErrValueInvalid,
		},
		{
			name:    "zero virtual liquidity",
			mutate:  func(p *domain.Params) { p.MinSolLiquidity = 0 },
			wantErr: domain.ErrValueTooSmall,
		},
		{
			name:    "decimals too large",
			mutate:  func(p *domain.Params) { p.TokenDecimals = 20 },
			wantErr: domain.ErrInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			err := ValidateParams(p)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestApplyParamsBootstrap(t *testing.T) {
	var current domain.Params

	next := testParams()
	next.Initialized = false
	require.NoError(t, ApplyParams(&current, next, "anyone"))

	assert.True(t, current.Initialized)
	assert.Equal(t, "alice", current.Authority)
	assert.Equal(t, uint64(30_000_000), current.MinSolLiquidity)
}

func TestApplyParamsAuthorityOnly(t *testing.T) {
	current := testParams()

	next := current
	next.PlatformBuyFeeBps = 250
	require.ErrorIs(t, ApplyParams(&current, next, "mallory"), domain.ErrIncorrectAuthority)
	assert.Equal(t, uint64(100), current.PlatformBuyFeeBps)

	require.NoError(t, ApplyParams(&current, next, "alice"))
	assert.Equal(t, uint64(250), current.PlatformBuyFeeBps)
}

func TestApplyParamsPreservesPendingAuthority(t *testing.T) {
	current := testParams()
	require.NoError(t, NominateAuthority(&current, "alice", "bob"))

	next := testParams()
	next.LPBuyFeeBps = 50
	require.NoError(t, ApplyParams(&current, next, "alice"))
	assert.Equal(t, "bob", current.PendingAuthority)
}

func TestAuthorityTransfer(t *testing.T) {
	p := testParams()

	require.ErrorIs(t, NominateAuthority(&p, "mallory", "mallory"), domain.ErrIncorrectAuthority)
	require.ErrorIs(t, NominateAuthority(&p, "alice", ""), domain.ErrInvalidParameter)

	// Nothing pending yet: accept must fail for everyone.
	require.ErrorIs(t, AcceptAuthority(&p, "bob"), domain.ErrIncorrectAuthority)

	require.NoError(t, NominateAuthority(&p, "alice", "bob"))
	assert.Equal(t, "alice", p.Authority, "nomination alone must not transfer")

	require.ErrorIs(t, AcceptAuthority(&p, "mallory"), domain.ErrIncorrectAuthority)
	require.ErrorIs(t, AcceptAuthority(&p, "alice"), domain.ErrIncorrectAuthority)

	require.NoError(t, AcceptAuthority(&p, "bob"))
	assert.Equal(t, "bob", p.Authority)
	assert.Empty(t, p.PendingAuthority)

	// The old authority is fully demoted.
	require.ErrorIs(t, NominateAuthority(&p, "alice", "carol"), domain.ErrIncorrectAuthority)
	require.NoError(t, NominateAuthority(&p, "bob", "carol"))
}

func TestAuthorityRenomination(t *testing.T) {
	p := testParams()
	require.NoError(t, NominateAuthority(&p, "alice", "bob"))
	require.NoError(t, NominateAuthority(&p, "alice", "carol"))

	// The superseded nominee can no longer accept.
	require.ErrorIs(t, AcceptAuthority(&p, "bob"), domain.ErrIncorrectAuthority)
	require.NoError(t, AcceptAuthority(&p, "carol"))
	assert.Equal(t, "carol", p.Authority)
}
