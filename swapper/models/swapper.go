package models

// FailureReason classifies why a swap or estimate request did not succeed
type FailureReason string

const (
	ReasonNone              FailureReason = ""
	ReasonInvalidAddress    FailureReason = "invalid_address"
	ReasonInvalidAmount     FailureReason = "invalid_amount"
	ReasonRPCError          FailureReason = "rpc_error"
	ReasonContractNotActive FailureReason = "contract_not_active"
	ReasonQuoteUnavailable  FailureReason = "quote_unavailable"
	ReasonEncodingError     FailureReason = "encoding_error"
	ReasonNotImplemented    FailureReason = "not_implemented"
)

// NativeSource is the token identifier used for the chain native coin in estimate requests
const NativeSource = "native"

// TransactionDescriptor is a single outgoing message for a wallet to sign and send
type TransactionDescriptor struct {
	Address string `json:"address"` // Destination contract, user friendly form
	Amount  string `json:"amount"`  // Attached value in nanotons
	Payload string `json:"payload"` // Base64 BOC of the message body
}

// NativeToJettonRequest - POST body of the native to jetton swap
type NativeToJettonRequest struct {
	TokenAddress string `json:"token_address"` // Jetton master address of the token to buy
	AmountIn     string `json:"amount_in"`     // Human readable TON amount, e.g. "1.5"
}

// JettonToNativeRequest - POST body of the jetton to native swap
type JettonToNativeRequest struct {
	TokenAddress string `json:"token_address"`
	AmountIn     string `json:"amount_in"`
	Decimals     int    `json:"decimals"`
	UserAddress  string `json:"user_address"` // Wallet that owns the jettons
}

// JettonToJettonRequest - POST body of the jetton to jetton swap
type JettonToJettonRequest struct {
	UserAddress string `json:"user_address"`
	TokenIn     string `json:"token_in"`
	TokenOut    string `json:"token_out"`
	AmountIn    string `json:"amount_in"`
	Decimals    int    `json:"decimals"`
}

// SwapResponse is the outcome of a swap request.
// On success Transaction holds the message to sign, otherwise Reason and ErrorMessage explain the failure.
type SwapResponse struct {
	Success           bool                   `json:"success"`
	Reason            FailureReason          `json:"reason,omitempty"`
	ErrorMessage      string                 `json:"error_message,omitempty"`
	Transaction       *TransactionDescriptor `json:"transaction,omitempty"`
	ExpectedAmountOut string                 `json:"expected_amount_out,omitempty"` // Pool estimate in jetton base units
	MinAmountOut      string                 `json:"min_amount_out,omitempty"`      // Limit encoded into the swap step
}

// EstimateRequest - POST body of the estimate endpoint
type EstimateRequest struct {
	TokenIn     string `json:"token_in"`               // "native" or a jetton master address
	TokenOut    string `json:"token_out"`              // "native" or a jetton master address
	AmountIn    string `json:"amount_in"`              // Human readable amount of TokenIn
	DecimalsIn  *int32 `json:"decimals_in,omitempty"`  // Defaults to 9
	DecimalsOut *int32 `json:"decimals_out,omitempty"` // Defaults to 9
}

// EstimateResponse is the outcome of an estimate request
type EstimateResponse struct {
	Success      bool          `json:"success"`
	AmountOut    string        `json:"amount_out"` // Human readable amount of TokenOut
	Reason       FailureReason `json:"reason,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}
