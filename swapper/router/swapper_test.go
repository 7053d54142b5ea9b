package router_test

import (
	"context"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"github.com/zeebo/assert"

	models "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/models"
	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router"
	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/brokers"
	swapmsg "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/swap_msg"
)

func testAddr(fill byte) *address.Address {
	data := make([]byte, 32)
	for i := range data {
		data[i] = fill
	}
	return address.NewAddress(0, 0, data)
}

var (
	jettonRoot  = testAddr(0x11)
	poolAddr    = testAddr(0x22)
	vaultAddr   = testAddr(0x33)
	otherJetton = testAddr(0x44)
)

// MockBroker implements brokers.DexBroker for testing
type MockBroker struct {
	mu sync.Mutex

	seqno     uint32
	statuses  map[string]string // address -> account status, missing means active
	amountOut *big.Int

	poolErr     error
	stateErr    error
	estimateErr error
	panicOn     string

	calls         atomic.Int32
	stateReads    atomic.Int32
	inFlight      atomic.Int32
	maxInFlight   atomic.Int32
	stateDelay    time.Duration
	lastAssetIn   swapmsg.Asset
	lastAmountIn  *big.Int
	lastPoolAsset [2]swapmsg.Asset
}

func newMockBroker() *MockBroker {
	return &MockBroker{
		seqno:     100,
		statuses:  map[string]string{},
		amountOut: big.NewInt(500),
	}
}

func (m *MockBroker) GetBrokerType() string {
	return "mock"
}

func (m *MockBroker) LastSeqno(ctx context.Context) (uint32, error) {
	m.calls.Add(1)
	return m.seqno, nil
}

func (m *MockBroker) AccountState(ctx context.Context, seqno uint32, addr *address.Address) (*brokers.AccountState, error) {
	m.calls.Add(1)
	m.stateReads.Add(1)

	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxInFlight.Load()
		if current <= peak || m.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}
	if m.stateDelay > 0 {
		time.Sleep(m.stateDelay)
	}

	if m.panicOn == "state" {
		panic("state read exploded")
	}
	if m.stateErr != nil {
		return nil, m.stateErr
	}
	if seqno != m.seqno {
		return nil, errors.New("unexpected seqno")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[addr.String()]
	if !ok {
		status = brokers.AccountStatusActive
	}
	return &brokers.AccountState{Status: status}, nil
}

func (m *MockBroker) PoolAddress(ctx context.Context, poolType swapmsg.PoolType, assets [2]swapmsg.Asset) (*address.Address, error) {
	m.calls.Add(1)
	if m.poolErr != nil {
		return nil, m.poolErr
	}
	m.mu.Lock()
	m.lastPoolAsset = assets
	m.mu.Unlock()
	return poolAddr, nil
}

func (m *MockBroker) VaultAddress(ctx context.Context, asset swapmsg.Asset) (*address.Address, error) {
	m.calls.Add(1)
	return vaultAddr, nil
}

func (m *MockBroker) EstimateSwapOut(ctx context.Context, pool *address.Address, assetIn swapmsg.Asset, amountIn *big.Int) (*brokers.SwapEstimate, error) {
	m.calls.Add(1)
	if m.estimateErr != nil {
		return nil, m.estimateErr
	}
	m.mu.Lock()
	m.lastAssetIn = assetIn
	m.lastAmountIn = new(big.Int).Set(amountIn)
	m.mu.Unlock()
	if m.amountOut == nil {
		return &brokers.SwapEstimate{}, nil
	}
	return &brokers.SwapEstimate{AmountOut: new(big.Int).Set(m.amountOut), TradeFee: big.NewInt(1)}, nil
}

func newSwapper(t *testing.T, broker brokers.DexBroker) *router.Swapper {
	t.Helper()
	s, err := router.NewSwapper(broker, router.DefaultSwapperConfig())
	assert.NoError(t, err)
	return s
}

func decodePayload(t *testing.T, payload string) *swapmsg.NativeSwapRequest {
	t.Helper()
	boc, err := base64.StdEncoding.DecodeString(payload)
	assert.NoError(t, err)
	c, err := cell.FromBOC(boc)
	assert.NoError(t, err)
	req, err := swapmsg.DecodeNativeSwapBody(c)
	assert.NoError(t, err)
	return req
}

func TestSwapper_NativeToJetton(t *testing.T) {
	broker := newMockBroker()
	s := newSwapper(t, broker)

	resp := s.SwapNativeToJetton(context.Background(), jettonRoot.String(), "1.5")
	assert.True(t, resp.Success)
	assert.Equal(t, models.ReasonNone, resp.Reason)
	assert.NotNil(t, resp.Transaction)

	assert.Equal(t, vaultAddr.String(), resp.Transaction.Address)
	assert.Equal(t, "2000000000", resp.Transaction.Amount)
	assert.Equal(t, "500", resp.ExpectedAmountOut)
	assert.Equal(t, "495", resp.MinAmountOut)

	body := decodePayload(t, resp.Transaction.Payload)
	assert.Equal(t, "1500000000", body.Amount.String())
	assert.Equal(t, "495", body.Limit.String())
	assert.Equal(t, poolAddr.String(), body.PoolAddress.String())
	assert.Equal(t, uint64(0), body.QueryID)
	assert.Nil(t, body.Next)

	assert.True(t, broker.lastAssetIn.Equal(swapmsg.NativeAsset()))
	assert.Equal(t, "1500000000", broker.lastAmountIn.String())
	assert.True(t, broker.lastPoolAsset[0].Equal(swapmsg.NativeAsset()))
	assert.True(t, broker.lastPoolAsset[1].Equal(swapmsg.JettonAsset(jettonRoot)))
}

func TestSwapper_NativeToJetton_CustomConfig(t *testing.T) {
	broker := newMockBroker()
	broker.amountOut = big.NewInt(10_000)

	s, err := router.NewSwapper(broker, router.SwapperConfig{
		SlippageBps: 250,
		GasReserve:  big.NewInt(300_000_000),
		QueryID:     7,
	})
	assert.NoError(t, err)

	resp := s.SwapNativeToJetton(context.Background(), jettonRoot.String(), "2")
	assert.True(t, resp.Success)
	assert.Equal(t, "2300000000", resp.Transaction.Amount)
	assert.Equal(t, "9750", resp.MinAmountOut)

	body := decodePayload(t, resp.Transaction.Payload)
	assert.Equal(t, uint64(7), body.QueryID)
	assert.Equal(t, "9750", body.Limit.String())
}

func TestSwapper_NativeToJetton_Idempotent(t *testing.T) {
	s := newSwapper(t, newMockBroker())

	first := s.SwapNativeToJetton(context.Background(), jettonRoot.String(), "1.5")
	second := s.SwapNativeToJetton(context.Background(), jettonRoot.String(), "1.5")
	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Equal(t, first.Transaction.Payload, second.Transaction.Payload)
	assert.Equal(t, first.Transaction.Amount, second.Transaction.Amount)
}

func TestSwapper_NativeToJetton_ReadsStatesConcurrently(t *testing.T) {
	broker := newMockBroker()
	broker.stateDelay = 50 * time.Millisecond
	s := newSwapper(t, broker)

	resp := s.SwapNativeToJetton(context.Background(), jettonRoot.String(), "1")
	assert.True(t, resp.Success)
	assert.Equal(t, int32(2), broker.stateReads.Load())
	assert.Equal(t, int32(2), broker.maxInFlight.Load())
}

func TestSwapper_NativeToJetton_InactiveVault(t *testing.T) {
	broker := newMockBroker()
	broker.statuses[vaultAddr.String()] = brokers.AccountStatusUninit
	s := newSwapper(t, broker)

	resp := s.SwapNativeToJetton(context.Background(), jettonRoot.String(), "1.5")
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Transaction)
	assert.Equal(t, models.ReasonContractNotActive, resp.Reason)
	assert.True(t, strings.Contains(resp.ErrorMessage, "vault"))
}

func TestSwapper_NativeToJetton_InactivePool(t *testing.T) {
	broker := newMockBroker()
	broker.statuses[poolAddr.String()] = brokers.AccountStatusFrozen
	s := newSwapper(t, broker)

	resp := s.SwapNativeToJetton(context.Background(), jettonRoot.String(), "1.5")
	assert.False(t, resp.Success)
	assert.Equal(t, models.ReasonContractNotActive, resp.Reason)
	assert.True(t, strings.Contains(resp.ErrorMessage, "pool"))
}

func TestSwapper_NativeToJetton_Failures(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		amount string
		setup  func(m *MockBroker)
		reason models.FailureReason
	}{
		{name: "bad address", token: "not-an-address", amount: "1", reason: models.ReasonInvalidAddress},
		{name: "empty address", token: "", amount: "1", reason: models.ReasonInvalidAddress},
		{name: "bad amount", token: jettonRoot.String(), amount: "one", reason: models.ReasonInvalidAmount},
		{name: "zero amount", token: jettonRoot.String(), amount: "0", reason: models.ReasonInvalidAmount},
		{name: "too many decimals", token: jettonRoot.String(), amount: "0.0000000001", reason: models.ReasonInvalidAmount},
		{
			name: "pool lookup fails", token: jettonRoot.String(), amount: "1",
			setup:  func(m *MockBroker) { m.poolErr = errors.New("liteserver timeout") },
			reason: models.ReasonRPCError,
		},
		{
			name: "state read fails", token: jettonRoot.String(), amount: "1",
			setup:  func(m *MockBroker) { m.stateErr = errors.New("connection reset") },
			reason: models.ReasonRPCError,
		},
		{
			name: "estimate fails", token: jettonRoot.String(), amount: "1",
			setup:  func(m *MockBroker) { m.estimateErr = errors.New("exit code 9") },
			reason: models.ReasonQuoteUnavailable,
		},
		{
			name: "estimate without amount", token: jettonRoot.String(), amount: "1",
			setup:  func(m *MockBroker) { m.amountOut = nil },
			reason: models.ReasonQuoteUnavailable,
		},
		{
			name: "negative estimate", token: jettonRoot.String(), amount: "1",
			setup:  func(m *MockBroker) { m.amountOut = big.NewInt(-5) },
			reason: models.ReasonQuoteUnavailable,
		},
		{
			name: "broker panics", token: jettonRoot.String(), amount: "1",
			setup:  func(m *MockBroker) { m.panicOn = "state" },
			reason: models.ReasonRPCError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			broker := newMockBroker()
			if tc.setup != nil {
				tc.setup(broker)
			}
			s := newSwapper(t, broker)

			resp := s.SwapNativeToJetton(context.Background(), tc.token, tc.amount)
			assert.False(t, resp.Success)
			assert.Nil(t, resp.Transaction)
			assert.Equal(t, tc.reason, resp.Reason)
			assert.NotEqual(t, "", resp.ErrorMessage)
		})
	}
}

func TestSwapper_NativeToJetton_RejectsNonDecimalAmounts(t *testing.T) {
	for _, amount := range []string{"1e3", "1E-9", "+1", "-0", "0e5", "0x10", "."} {
		t.Run(amount, func(t *testing.T) {
			broker := newMockBroker()
			s := newSwapper(t, broker)

			resp := s.SwapNativeToJetton(context.Background(), jettonRoot.String(), amount)
			assert.False(t, resp.Success)
			assert.Nil(t, resp.Transaction)
			assert.Equal(t, models.ReasonInvalidAmount, resp.Reason)
			assert.Equal(t, int32(0), broker.calls.Load())
		})
	}
}

func TestSwapper_NotImplemented(t *testing.T) {
	broker := newMockBroker()
	s := newSwapper(t, broker)

	resp := s.SwapJettonToNative(context.Background(), jettonRoot.String(), "10", 9, otherJetton.String())
	assert.False(t, resp.Success)
	assert.Equal(t, models.ReasonNotImplemented, resp.Reason)

	resp = s.SwapJettonToJetton(context.Background(), otherJetton.String(), jettonRoot.String(), otherJetton.String(), "10", 6)
	assert.False(t, resp.Success)
	assert.Equal(t, models.ReasonNotImplemented, resp.Reason)

	assert.Equal(t, int32(0), broker.calls.Load())
}

func TestSwapper_EstimateSwapOut_ShortCircuits(t *testing.T) {
	for _, amount := range []string{"0", "0.", "0.00", "00", ""} {
		broker := newMockBroker()
		s := newSwapper(t, broker)

		resp := s.EstimateSwapOut(context.Background(), models.EstimateRequest{
			TokenIn:  models.NativeSource,
			TokenOut: jettonRoot.String(),
			AmountIn: amount,
		})
		assert.True(t, resp.Success)
		if amount == "" {
			assert.Equal(t, "", resp.AmountOut)
		} else {
			assert.Equal(t, "0", resp.AmountOut)
		}
		assert.Equal(t, int32(0), broker.calls.Load())
	}
}

func TestSwapper_EstimateSwapOut(t *testing.T) {
	broker := newMockBroker()
	broker.amountOut = big.NewInt(1_234_500)
	s := newSwapper(t, broker)

	decimalsOut := int32(6)
	resp := s.EstimateSwapOut(context.Background(), models.EstimateRequest{
		TokenIn:     "native",
		TokenOut:    jettonRoot.String(),
		AmountIn:    "2.5",
		DecimalsOut: &decimalsOut,
	})
	assert.True(t, resp.Success)
	assert.Equal(t, "1.2345", resp.AmountOut)
	assert.Equal(t, "2500000000", broker.lastAmountIn.String())
	assert.True(t, broker.lastAssetIn.Equal(swapmsg.NativeAsset()))
}

func TestSwapper_EstimateSwapOut_JettonIn(t *testing.T) {
	broker := newMockBroker()
	broker.amountOut = big.NewInt(3_000_000_000)
	s := newSwapper(t, broker)

	decimalsIn := int32(6)
	resp := s.EstimateSwapOut(context.Background(), models.EstimateRequest{
		TokenIn:    jettonRoot.String(),
		TokenOut:   models.NativeSource,
		AmountIn:   "15",
		DecimalsIn: &decimalsIn,
	})
	assert.True(t, resp.Success)
	assert.Equal(t, "3", resp.AmountOut)
	assert.Equal(t, "15000000", broker.lastAmountIn.String())
	assert.True(t, broker.lastAssetIn.Equal(swapmsg.JettonAsset(jettonRoot)))
}

func TestSwapper_EstimateSwapOut_Failures(t *testing.T) {
	cases := []struct {
		name   string
		req    models.EstimateRequest
		setup  func(m *MockBroker)
		reason models.FailureReason
	}{
		{
			name:   "same token",
			req:    models.EstimateRequest{TokenIn: "native", TokenOut: "native", AmountIn: "1"},
			reason: models.ReasonInvalidAddress,
		},
		{
			name:   "bad token",
			req:    models.EstimateRequest{TokenIn: "native", TokenOut: "???", AmountIn: "1"},
			reason: models.ReasonInvalidAddress,
		},
		{
			name:   "bad amount",
			req:    models.EstimateRequest{TokenIn: "native", TokenOut: jettonRoot.String(), AmountIn: "1..2"},
			reason: models.ReasonInvalidAmount,
		},
		{
			name:   "inactive pool",
			req:    models.EstimateRequest{TokenIn: "native", TokenOut: jettonRoot.String(), AmountIn: "1"},
			setup:  func(m *MockBroker) { m.statuses[poolAddr.String()] = brokers.AccountStatusNonExist },
			reason: models.ReasonContractNotActive,
		},
		{
			name:   "quote fails",
			req:    models.EstimateRequest{TokenIn: "native", TokenOut: jettonRoot.String(), AmountIn: "1"},
			setup:  func(m *MockBroker) { m.estimateErr = errors.New("pool has no liquidity") },
			reason: models.ReasonQuoteUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			broker := newMockBroker()
			if tc.setup != nil {
				tc.setup(broker)
			}
			s := newSwapper(t, broker)

			resp := s.EstimateSwapOut(context.Background(), tc.req)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.reason, resp.Reason)
		})
	}
}

func TestSwapper_EstimateSwapOut_RejectsNonDecimalAmounts(t *testing.T) {
	for _, amount := range []string{"-0", "0e5", "1e3", "+1"} {
		t.Run(amount, func(t *testing.T) {
			broker := newMockBroker()
			s := newSwapper(t, broker)

			resp := s.EstimateSwapOut(context.Background(), models.EstimateRequest{
				TokenIn:  models.NativeSource,
				TokenOut: jettonRoot.String(),
				AmountIn: amount,
			})
			assert.False(t, resp.Success)
			assert.Equal(t, "", resp.AmountOut)
			assert.Equal(t, models.ReasonInvalidAmount, resp.Reason)
			assert.Equal(t, int32(0), broker.calls.Load())
		})
	}
}

func TestNewSwapper_Invalid(t *testing.T) {
	_, err := router.NewSwapper(nil, router.DefaultSwapperConfig())
	assert.Error(t, err)

	_, err = router.NewSwapper(newMockBroker(), router.SwapperConfig{SlippageBps: 10_001})
	assert.Error(t, err)

	_, err = router.NewSwapper(newMockBroker(), router.SwapperConfig{GasReserve: big.NewInt(-1)})
	assert.Error(t, err)
}
