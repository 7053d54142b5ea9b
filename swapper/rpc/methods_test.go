package rpc_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zeebo/assert"

	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/models"
	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/rpc"
)

// MockSwapService implements rpc.SwapService for testing
type MockSwapService struct {
	swapResp     models.SwapResponse
	estimateResp models.EstimateResponse

	lastToken    string
	lastAmount   string
	lastDecimals int
	lastEstimate models.EstimateRequest
}

func (m *MockSwapService) SwapNativeToJetton(ctx context.Context, tokenAddress, nativeAmountIn string) models.SwapResponse {
	m.lastToken = tokenAddress
	m.lastAmount = nativeAmountIn
	return m.swapResp
}

func (m *MockSwapService) SwapJettonToNative(ctx context.Context, tokenAddress, jettonAmountIn string, decimals int, userAddress string) models.SwapResponse {
	m.lastToken = tokenAddress
	m.lastAmount = jettonAmountIn
	m.lastDecimals = decimals
	return models.SwapResponse{Success: false, Reason: models.ReasonNotImplemented, ErrorMessage: "not implemented"}
}

func (m *MockSwapService) SwapJettonToJetton(ctx context.Context, userAddress, tokenIn, tokenOut, jettonAmountIn string, decimals int) models.SwapResponse {
	m.lastToken = tokenIn
	m.lastAmount = jettonAmountIn
	m.lastDecimals = decimals
	return models.SwapResponse{Success: false, Reason: models.ReasonNotImplemented, ErrorMessage: "not implemented"}
}

func (m *MockSwapService) EstimateSwapOut(ctx context.Context, req models.EstimateRequest) models.EstimateResponse {
	m.lastEstimate = req
	return m.estimateResp
}

type staticReadiness bool

func (r staticReadiness) Healthy() bool { return bool(r) }

func newTestServer(t *testing.T, service rpc.SwapService, readiness rpc.ReadinessChecker) http.Handler {
	t.Helper()
	config := &rpc.ServerConfig{
		Address:        "127.0.0.1:0",
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
	}
	server, err := rpc.NewServer(context.Background(), config, service, readiness)
	assert.NoError(t, err)
	return server.Handler()
}

func post(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSwapNativeToJetton_Success(t *testing.T) {
	service := &MockSwapService{swapResp: models.SwapResponse{
		Success: true,
		Transaction: &models.TransactionDescriptor{
			Address: "EQvault",
			Amount:  "2000000000",
			Payload: "te6cc...",
		},
		ExpectedAmountOut: "500",
		MinAmountOut:      "495",
	}}
	handler := newTestServer(t, service, nil)

	rec := post(t, handler, "/v1/swap/native-to-jetton", `{"token_address":"EQtoken","amount_in":"1.5"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store, no-cache, must-revalidate", rec.Header().Get("Cache-Control"))

	var resp models.SwapResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "EQvault", resp.Transaction.Address)
	assert.Equal(t, "2000000000", resp.Transaction.Amount)
	assert.Equal(t, "495", resp.MinAmountOut)

	assert.Equal(t, "EQtoken", service.lastToken)
	assert.Equal(t, "1.5", service.lastAmount)
}

func TestSwapNativeToJetton_NegativeOutcomeIsOK(t *testing.T) {
	service := &MockSwapService{swapResp: models.SwapResponse{
		Success:      false,
		Reason:       models.ReasonContractNotActive,
		ErrorMessage: "vault is not active",
	}}
	handler := newTestServer(t, service, nil)

	rec := post(t, handler, "/v1/swap/native-to-jetton", `{"token_address":"EQtoken","amount_in":"1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.SwapResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, models.ReasonContractNotActive, resp.Reason)
	assert.True(t, resp.Transaction == nil)
}

func TestSwapNativeToJetton_BadRequests(t *testing.T) {
	handler := newTestServer(t, &MockSwapService{}, nil)

	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed json", body: `{"token_address":`, want: "invalid request body"},
		{name: "empty body", body: ``, want: "request body is empty"},
		{name: "missing fields", body: `{}`, want: "missing required fields: amount_in, token_address"},
		{name: "unknown field", body: `{"token_address":"EQ","amount_in":"1","slippage":5}`, want: "unknown field"},
		{name: "two objects", body: `{"token_address":"EQ","amount_in":"1"}{}`, want: "single JSON object"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, handler, "/v1/swap/native-to-jetton", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.True(t, strings.Contains(rec.Body.String(), tc.want))
		})
	}
}

func TestSwapNativeToJetton_MethodNotAllowed(t *testing.T) {
	handler := newTestServer(t, &MockSwapService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/swap/native-to-jetton", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestJettonSwaps_NotImplemented(t *testing.T) {
	service := &MockSwapService{}
	handler := newTestServer(t, service, nil)

	rec := post(t, handler, "/v1/swap/jetton-to-native",
		`{"token_address":"EQtoken","amount_in":"10","decimals":6,"user_address":"EQuser"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"reason":"not_implemented"`))
	assert.Equal(t, 6, service.lastDecimals)

	rec = post(t, handler, "/v1/swap/jetton-to-jetton",
		`{"user_address":"EQuser","token_in":"EQa","token_out":"EQb","amount_in":"3","decimals":9}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"reason":"not_implemented"`))
	assert.Equal(t, "EQa", service.lastToken)

	rec = post(t, handler, "/v1/swap/jetton-to-native",
		`{"token_address":"EQtoken","amount_in":"10","decimals":-1,"user_address":"EQuser"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimate(t *testing.T) {
	service := &MockSwapService{estimateResp: models.EstimateResponse{Success: true, AmountOut: "1.2345"}}
	handler := newTestServer(t, service, nil)

	rec := post(t, handler, "/v1/estimate",
		`{"token_in":"native","token_out":"EQtoken","amount_in":"2.5","decimals_out":6}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.EstimateResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "1.2345", resp.AmountOut)

	assert.Equal(t, "2.5", service.lastEstimate.AmountIn)
	assert.True(t, service.lastEstimate.DecimalsIn == nil)
	assert.Equal(t, int32(6), *service.lastEstimate.DecimalsOut)
}

func TestEstimate_EmptyAmountIsValid(t *testing.T) {
	service := &MockSwapService{estimateResp: models.EstimateResponse{Success: true}}
	handler := newTestServer(t, service, nil)

	rec := post(t, handler, "/v1/estimate", `{"token_in":"native","token_out":"EQtoken","amount_in":""}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"amount_out":""`))
}

func TestEstimate_BadDecimals(t *testing.T) {
	handler := newTestServer(t, &MockSwapService{}, nil)

	rec := post(t, handler, "/v1/estimate", `{"token_in":"native","token_out":"EQtoken","amount_in":"1","decimals_in":31}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerEndpoints(t *testing.T) {
	handler := newTestServer(t, &MockSwapService{}, staticReadiness(true))

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/server/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "healthy"))

	rec = get("/server/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	_ = post(t, handler, "/v1/swap/native-to-jetton", `{"token_address":"EQtoken","amount_in":"1"}`)
	rec = get("/server/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "swapper_swap_requests_total"))
}

func TestServerReady_Unhealthy(t *testing.T) {
	handler := newTestServer(t, &MockSwapService{}, staticReadiness(false))

	req := httptest.NewRequest(http.MethodGet, "/server/ready", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
