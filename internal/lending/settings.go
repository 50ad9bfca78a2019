package lending

import (
	"fmt"

	"github.com/microcredit-pool-ledger/internal/config"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/shopspring/decimal"
)

// ConfigFromSettings builds the lending policy from loaded settings.
func ConfigFromSettings(s config.LendingConfig) (Config, error) {
	terms, err := loan.ParseTerms(s.BaseRate, s.PunitiveRate, s.RateThreshold, s.OverdueThreshold, s.MinHoldingPeriod)
	if err != nil {
		return Config{}, err
	}
	repay, err := decimal.NewFromString(s.RepayGrowth)
	if err != nil {
		return Config{}, fmt.Errorf("invalid repay growth %q: %w", s.RepayGrowth, err)
	}
	recovery, err := decimal.NewFromString(s.RecoveryGrowth)
	if err != nil {
		return Config{}, fmt.Errorf("invalid recovery growth %q: %w", s.RecoveryGrowth, err)
	}

	return Config{
		Terms:               terms,
		InitialCreditLimit:  s.InitialCreditLimit,
		RepayGrowth:         repay,
		RecoveryGrowth:      recovery,
		BootstrapMinDeposit: s.BootstrapMinDeposit,
	}, nil
}
