package queries

import (
	"context"
	"strings"

	"github.com/holiman/uint256"

	"quorum/contexts/settlement-core/stake-ledger/domain/entities"
	domainerrors "quorum/contexts/settlement-core/stake-ledger/domain/errors"
	"quorum/contexts/settlement-core/stake-ledger/ports"
)

// BalanceUseCase serves balance reads. StakeBalance doubles as the stake
// feed for the settlement engine's vote weighting.
type BalanceUseCase struct {
	Accounts ports.AccountRepository
}

func (uc BalanceUseCase) BalanceOf(ctx context.Context, participant string) (entities.StakeAccount, error) {
	if strings.TrimSpace(participant) == "" {
		return entities.StakeAccount{}, domainerrors.ErrInvalidInput
	}
	account, found, err := uc.Accounts.GetAccount(ctx, participant)
	if err != nil {
		return entities.StakeAccount{}, err
	}
	if !found {
		return entities.StakeAccount{}, domainerrors.ErrAccountNotFound
	}
	return account, nil
}

// StakeBalance reports the participant's balance without requiring the
// account to exist. Unknown participants read as zero with found=false.
func (uc BalanceUseCase) StakeBalance(ctx context.Context, participant string) (*uint256.Int, bool, error) {
	account, found, err := uc.Accounts.GetAccount(ctx, participant)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return new(uint256.Int), false, nil
	}
	return account.BalanceOrZero(), true, nil
}
