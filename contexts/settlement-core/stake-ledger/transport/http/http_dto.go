package http

// Amounts travel as decimal strings so 256-bit balances survive JSON intact.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DepositRequest struct {
	Amount string `json:"amount"`
}

type WithdrawRequest struct {
	Amount string `json:"amount"`
}

type AccountResponse struct {
	Participant string `json:"participant"`
	Balance     string `json:"balance"`
	Replayed    bool   `json:"replayed,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}
