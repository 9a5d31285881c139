package custody

import (
	"context"
	"log/slog"
	"strings"

	"github.com/holiman/uint256"

	"quorum/contexts/settlement-core/stake-ledger/ports"
)

// LoggingGateway acknowledges custody transfers with a structured log line.
// Deployments that settle against a real custodian replace it behind the
// CustodyGateway port.
type LoggingGateway struct {
	Logger *slog.Logger
}

func NewLoggingGateway(logger *slog.Logger) LoggingGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return LoggingGateway{Logger: logger}
}

func (g LoggingGateway) TransferIn(_ context.Context, participant string, amount *uint256.Int) error {
	g.log("custody_transfer_in", participant, amount)
	return nil
}

func (g LoggingGateway) TransferOut(_ context.Context, participant string, amount *uint256.Int) error {
	g.log("custody_transfer_out", participant, amount)
	return nil
}

func (g LoggingGateway) log(event string, participant string, amount *uint256.Int) {
	amountText := "0"
	if amount != nil {
		amountText = amount.Dec()
	}
	g.Logger.Info("custody transfer acknowledged",
		"event", event,
		"module", "settlement-core/stake-ledger",
		"layer", "adapter",
		"participant", strings.TrimSpace(participant),
		"amount", amountText,
	)
}

var _ ports.CustodyGateway = LoggingGateway{}
