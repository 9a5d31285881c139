package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"quorum/contexts/settlement-core/stake-ledger/application/commands"
	"quorum/contexts/settlement-core/stake-ledger/application/queries"
	"quorum/contexts/settlement-core/stake-ledger/domain/entities"
	domainerrors "quorum/contexts/settlement-core/stake-ledger/domain/errors"
	httptransport "quorum/contexts/settlement-core/stake-ledger/transport/http"
)

type Handler struct {
	Stake    commands.StakeUseCase
	Balances queries.BalanceUseCase
	Logger   *slog.Logger
}

func (h Handler) DepositHandler(
	ctx context.Context,
	userID string,
	idempotencyKey string,
	req httptransport.DepositRequest,
) (httptransport.AccountResponse, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	result, err := h.Stake.Deposit(ctx, commands.DepositCommand{
		Participant:    userID,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	return accountResponse(result.Account, result.Replayed), nil
}

func (h Handler) WithdrawHandler(
	ctx context.Context,
	userID string,
	idempotencyKey string,
	req httptransport.WithdrawRequest,
) (httptransport.AccountResponse, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	result, err := h.Stake.Withdraw(ctx, commands.WithdrawCommand{
		Participant:    userID,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	return accountResponse(result.Account, result.Replayed), nil
}

func (h Handler) BalanceHandler(ctx context.Context, participant string) (httptransport.AccountResponse, error) {
	account, err := h.Balances.BalanceOf(ctx, participant)
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	return accountResponse(account, false), nil
}

func accountResponse(account entities.StakeAccount, replayed bool) httptransport.AccountResponse {
	return httptransport.AccountResponse{
		Participant: account.Participant,
		Balance:     account.BalanceOrZero().Dec(),
		Replayed:    replayed,
		UpdatedAt:   account.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func parseAmount(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: amount is required", domainerrors.ErrInvalidAmount)
	}
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: amount must be a decimal integer", domainerrors.ErrInvalidAmount)
	}
	return amount, nil
}
