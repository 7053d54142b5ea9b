package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/models"
)

// maxRequestBody limits the size of JSON request bodies
const maxRequestBody = 64 << 10

// SwapService is what the HTTP handlers need from the swapper
type SwapService interface {
	SwapNativeToJetton(ctx context.Context, tokenAddress, nativeAmountIn string) models.SwapResponse
	SwapJettonToNative(ctx context.Context, tokenAddress, jettonAmountIn string, decimals int, userAddress string) models.SwapResponse
	SwapJettonToJetton(ctx context.Context, userAddress, tokenIn, tokenOut, jettonAmountIn string, decimals int) models.SwapResponse
	EstimateSwapOut(ctx context.Context, req models.EstimateRequest) models.EstimateResponse
}

// SwapperServer serves the swapper over JSON
type SwapperServer struct {
	swapper SwapService
}

// NewSwapperServer creates a new SwapperServer
func NewSwapperServer(swapper SwapService) *SwapperServer {
	return &SwapperServer{swapper: swapper}
}

// errorResponse is the body of 4xx answers
type errorResponse struct {
	Error string `json:"error"`
}

// SwapNativeToJetton handles POST /v1/swap/native-to-jetton.
//
// Returns:
// - 400 Bad Request: malformed JSON or missing fields
// - 200 OK with success=false: valid query but the swap can not be prepared
// - 200 OK with success=true: transaction prepared
func (s *SwapperServer) SwapNativeToJetton(w http.ResponseWriter, r *http.Request) {
	var req models.NativeToJettonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := requireFields(map[string]string{
		"token_address": req.TokenAddress,
		"amount_in":     req.AmountIn,
	}); err != nil {
		writeBadRequest(w, err)
		return
	}

	start := time.Now()
	resp := s.swapper.SwapNativeToJetton(r.Context(), req.TokenAddress, req.AmountIn)
	recordSwap(r.Context(), "native_to_jetton", start, resp)
	writeJSON(w, http.StatusOK, resp)
}

// SwapJettonToNative handles POST /v1/swap/jetton-to-native
func (s *SwapperServer) SwapJettonToNative(w http.ResponseWriter, r *http.Request) {
	var req models.JettonToNativeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := requireFields(map[string]string{
		"token_address": req.TokenAddress,
		"amount_in":     req.AmountIn,
		"user_address":  req.UserAddress,
	}); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.Decimals < 0 {
		writeBadRequest(w, errors.New("decimals must not be negative"))
		return
	}

	start := time.Now()
	resp := s.swapper.SwapJettonToNative(r.Context(), req.TokenAddress, req.AmountIn, req.Decimals, req.UserAddress)
	recordSwap(r.Context(), "jetton_to_native", start, resp)
	writeJSON(w, http.StatusOK, resp)
}

// SwapJettonToJetton handles POST /v1/swap/jetton-to-jetton
func (s *SwapperServer) SwapJettonToJetton(w http.ResponseWriter, r *http.Request) {
	var req models.JettonToJettonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := requireFields(map[string]string{
		"user_address": req.UserAddress,
		"token_in":     req.TokenIn,
		"token_out":    req.TokenOut,
		"amount_in":    req.AmountIn,
	}); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.Decimals < 0 {
		writeBadRequest(w, errors.New("decimals must not be negative"))
		return
	}

	start := time.Now()
	resp := s.swapper.SwapJettonToJetton(r.Context(), req.UserAddress, req.TokenIn, req.TokenOut, req.AmountIn, req.Decimals)
	recordSwap(r.Context(), "jetton_to_jetton", start, resp)
	writeJSON(w, http.StatusOK, resp)
}

// EstimateSwapOut handles POST /v1/estimate.
// An empty amount_in is valid and answers with an empty amount_out.
func (s *SwapperServer) EstimateSwapOut(w http.ResponseWriter, r *http.Request) {
	var req models.EstimateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := requireFields(map[string]string{
		"token_in":  req.TokenIn,
		"token_out": req.TokenOut,
	}); err != nil {
		writeBadRequest(w, err)
		return
	}
	for name, decimals := range map[string]*int32{"decimals_in": req.DecimalsIn, "decimals_out": req.DecimalsOut} {
		if decimals != nil && (*decimals < 0 || *decimals > 30) {
			writeBadRequest(w, fmt.Errorf("%s must be between 0 and 30", name))
			return
		}
	}

	start := time.Now()
	resp := s.swapper.EstimateSwapOut(r.Context(), req)
	recordEstimate(r.Context(), start, resp)
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, err error) {
	Logger.Debug().Err(err).Msg("Rejected request")
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		Logger.Error().Err(err).Msg("Failed to write response")
	}
}
