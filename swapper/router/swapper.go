package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	models "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/models"
	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/brokers"
	swapmsg "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/swap_msg"
)

var swapperLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	swapperLog = zerolog.New(out).With().Timestamp().Str("component", "swapper").Logger()
}

const tracerName = "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router"

// DefaultGasReserve is the value attached on top of the swapped amount to pay for fees, 0.5 TON
var DefaultGasReserve = big.NewInt(500_000_000)

// SwapperConfig holds the swap defaults
type SwapperConfig struct {
	SlippageBps uint32           // Slippage tolerance applied to pool estimates
	GasReserve  *big.Int         // Nanotons added to the attached value of native swaps
	QueryID     uint64           // Query id written into swap bodies
	PoolType    swapmsg.PoolType // Pool type used to resolve pools
}

// DefaultSwapperConfig returns 1% slippage, 0.5 TON gas reserve and volatile pools
func DefaultSwapperConfig() SwapperConfig {
	return SwapperConfig{
		SlippageBps: brokers.DefaultSlippageBps,
		GasReserve:  new(big.Int).Set(DefaultGasReserve),
		PoolType:    swapmsg.PoolVolatile,
	}
}

// Swapper prepares swap transactions and estimates swap output through a DEX broker.
// It keeps no state between calls apart from its configuration.
type Swapper struct {
	broker brokers.DexBroker
	config SwapperConfig
	tracer trace.Tracer
}

// NewSwapper creates a new Swapper, a nil gas reserve is replaced with DefaultGasReserve
func NewSwapper(broker brokers.DexBroker, config SwapperConfig) (*Swapper, error) {
	if broker == nil {
		return nil, errors.New("broker is required")
	}
	if config.SlippageBps > brokers.MaxSlippageBps {
		return nil, fmt.Errorf("slippage %d bps is above %d", config.SlippageBps, brokers.MaxSlippageBps)
	}
	if config.GasReserve == nil {
		config.GasReserve = new(big.Int).Set(DefaultGasReserve)
	}
	if config.GasReserve.Sign() < 0 {
		return nil, errors.New("gas reserve must not be negative")
	}

	swapperLog.Info().
		Str("broker", broker.GetBrokerType()).
		Uint32("slippageBps", config.SlippageBps).
		Str("gasReserve", config.GasReserve.String()).
		Msg("Swapper initialized")

	return &Swapper{
		broker: broker,
		config: config,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// SwapNativeToJetton prepares a swap of nativeAmountIn TON into the jetton with the given root address.
// The returned descriptor targets the native vault and carries the swap body with a slippage limit.
func (s *Swapper) SwapNativeToJetton(ctx context.Context, tokenAddress, nativeAmountIn string) (resp models.SwapResponse) {
	ctx, span := s.tracer.Start(ctx, "Swapper.SwapNativeToJetton",
		trace.WithAttributes(
			attribute.String("token_address", tokenAddress),
			attribute.String("amount_in", nativeAmountIn),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", ErrChainQuery, r)
			swapperLog.Error().Err(err).Str("token", tokenAddress).Msg("Recovered from panic while preparing swap")
			resp = swapFailure(err)
		}
		if !resp.Success {
			span.SetStatus(codes.Error, resp.ErrorMessage)
			span.SetAttributes(attribute.String("reason", string(resp.Reason)))
		}
	}()

	swapperLog.Info().
		Str("token", tokenAddress).
		Str("amount", nativeAmountIn).
		Msg("Preparing native to jetton swap")

	descriptor, expected, minOut, err := s.prepareNativeToJetton(ctx, tokenAddress, nativeAmountIn)
	if err != nil {
		span.RecordError(err)
		swapperLog.Warn().
			Err(err).
			Str("token", tokenAddress).
			Str("amount", nativeAmountIn).
			Str("reason", string(reasonFor(err))).
			Msg("Native to jetton swap failed")
		return swapFailure(err)
	}

	swapperLog.Info().
		Str("vault", descriptor.Address).
		Str("value", descriptor.Amount).
		Str("expected", expected.String()).
		Str("minOut", minOut.String()).
		Msg("Native to jetton swap prepared")

	return models.SwapResponse{
		Success:           true,
		Transaction:       descriptor,
		ExpectedAmountOut: expected.String(),
		MinAmountOut:      minOut.String(),
	}
}

func (s *Swapper) prepareNativeToJetton(
	ctx context.Context,
	tokenAddress, nativeAmountIn string,
) (*models.TransactionDescriptor, *big.Int, *big.Int, error) {
	jettonRoot, err := parseAddress(tokenAddress)
	if err != nil {
		return nil, nil, nil, err
	}

	amountIn, err := ParseUnits(nativeAmountIn, NativeDecimals)
	if err != nil {
		return nil, nil, nil, err
	}
	if amountIn.Sign() == 0 {
		return nil, nil, nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}

	native := swapmsg.NativeAsset()
	jetton := swapmsg.JettonAsset(jettonRoot)

	pool, err := s.broker.PoolAddress(ctx, s.config.PoolType, [2]swapmsg.Asset{native, jetton})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: resolve pool: %w", ErrChainQuery, err)
	}
	vault, err := s.broker.VaultAddress(ctx, native)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: resolve native vault: %w", ErrChainQuery, err)
	}

	if err := s.requireActive(ctx, namedAccount{"pool", pool}, namedAccount{"vault", vault}); err != nil {
		return nil, nil, nil, err
	}

	expected, err := s.estimate(ctx, pool, native, amountIn)
	if err != nil {
		return nil, nil, nil, err
	}

	minOut, err := brokers.MinOutput(expected, s.config.SlippageBps)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrQuoteUnavailable, err)
	}

	body, err := swapmsg.BuildNativeSwapBody(swapmsg.NativeSwapRequest{
		QueryID:     s.config.QueryID,
		Amount:      amountIn,
		PoolAddress: pool,
		Limit:       minOut,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	value := new(big.Int).Add(amountIn, s.config.GasReserve)
	return &models.TransactionDescriptor{
		Address: vault.String(),
		Amount:  value.String(),
		Payload: swapmsg.ToBase64BOC(body),
	}, expected, minOut, nil
}

// SwapJettonToNative prepares a swap of jettons back into TON.
// The swap goes through a jetton transfer to the jetton vault and is not supported yet.
func (s *Swapper) SwapJettonToNative(
	ctx context.Context,
	tokenAddress, jettonAmountIn string,
	decimals int,
	userAddress string,
) models.SwapResponse {
	_, span := s.tracer.Start(ctx, "Swapper.SwapJettonToNative")
	defer span.End()

	swapperLog.Warn().
		Str("token", tokenAddress).
		Str("amount", jettonAmountIn).
		Int("decimals", decimals).
		Str("user", userAddress).
		Msg("Jetton to native swap requested but not supported")

	err := fmt.Errorf("jetton to native swap: %w", ErrNotImplemented)
	span.SetStatus(codes.Error, err.Error())
	return swapFailure(err)
}

// SwapJettonToJetton prepares a swap between two jettons, not supported yet.
func (s *Swapper) SwapJettonToJetton(
	ctx context.Context,
	userAddress, tokenIn, tokenOut, jettonAmountIn string,
	decimals int,
) models.SwapResponse {
	_, span := s.tracer.Start(ctx, "Swapper.SwapJettonToJetton")
	defer span.End()

	swapperLog.Warn().
		Str("user", userAddress).
		Str("tokenIn", tokenIn).
		Str("tokenOut", tokenOut).
		Str("amount", jettonAmountIn).
		Int("decimals", decimals).
		Msg("Jetton to jetton swap requested but not supported")

	err := fmt.Errorf("jetton to jetton swap: %w", ErrNotImplemented)
	span.SetStatus(codes.Error, err.Error())
	return swapFailure(err)
}

// EstimateSwapOut returns the expected output amount for the request as human readable text.
// An empty amount gives an empty answer and a zero amount gives "0", both without chain queries.
func (s *Swapper) EstimateSwapOut(ctx context.Context, req models.EstimateRequest) (resp models.EstimateResponse) {
	ctx, span := s.tracer.Start(ctx, "Swapper.EstimateSwapOut",
		trace.WithAttributes(
			attribute.String("token_in", req.TokenIn),
			attribute.String("token_out", req.TokenOut),
			attribute.String("amount_in", req.AmountIn),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", ErrChainQuery, r)
			swapperLog.Error().Err(err).Msg("Recovered from panic while estimating")
			resp = estimateFailure(err)
		}
		if !resp.Success {
			span.SetStatus(codes.Error, resp.ErrorMessage)
		}
	}()

	text := strings.TrimSpace(req.AmountIn)
	if text == "" {
		return models.EstimateResponse{Success: true, AmountOut: ""}
	}
	if isZeroAmount(text) {
		return models.EstimateResponse{Success: true, AmountOut: "0"}
	}

	amountOut, err := s.estimateRequest(ctx, req)
	if err != nil {
		span.RecordError(err)
		swapperLog.Warn().
			Err(err).
			Str("tokenIn", req.TokenIn).
			Str("tokenOut", req.TokenOut).
			Str("amount", req.AmountIn).
			Msg("Estimate failed")
		return estimateFailure(err)
	}

	formatted := FormatUnits(amountOut, decimalsOrDefault(req.DecimalsOut))
	swapperLog.Debug().
		Str("tokenIn", req.TokenIn).
		Str("tokenOut", req.TokenOut).
		Str("amountIn", req.AmountIn).
		Str("amountOut", formatted).
		Msg("Estimate done")

	return models.EstimateResponse{Success: true, AmountOut: formatted}
}

func (s *Swapper) estimateRequest(ctx context.Context, req models.EstimateRequest) (*big.Int, error) {
	assetIn, err := parseAsset(req.TokenIn)
	if err != nil {
		return nil, err
	}
	assetOut, err := parseAsset(req.TokenOut)
	if err != nil {
		return nil, err
	}
	if assetIn.Equal(assetOut) {
		return nil, fmt.Errorf("%w: token in and token out are the same", ErrInvalidAddress)
	}

	amountIn, err := ParseUnits(req.AmountIn, decimalsOrDefault(req.DecimalsIn))
	if err != nil {
		return nil, err
	}

	pool, err := s.broker.PoolAddress(ctx, s.config.PoolType, [2]swapmsg.Asset{assetIn, assetOut})
	if err != nil {
		return nil, fmt.Errorf("%w: resolve pool: %w", ErrChainQuery, err)
	}

	if err := s.requireActive(ctx, namedAccount{"pool", pool}); err != nil {
		return nil, err
	}

	return s.estimate(ctx, pool, assetIn, amountIn)
}

// namedAccount is an account checked by requireActive, the name is used in errors
type namedAccount struct {
	name string
	addr *address.Address
}

// requireActive reads the accounts at the current chain head and fails if any of them is not active.
// The reads run concurrently since they share the same seqno.
func (s *Swapper) requireActive(ctx context.Context, accounts ...namedAccount) error {
	seqno, err := s.broker.LastSeqno(ctx)
	if err != nil {
		return fmt.Errorf("%w: read chain head: %w", ErrChainQuery, err)
	}

	states := make([]*brokers.AccountState, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: panic reading %s state: %v", ErrChainQuery, account.name, r)
				}
			}()
			state, err := s.broker.AccountState(gctx, seqno, account.addr)
			if err != nil {
				return fmt.Errorf("%w: read %s state: %w", ErrChainQuery, account.name, err)
			}
			states[i] = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, account := range accounts {
		if !states[i].IsActive() {
			status := brokers.AccountStatusNonExist
			if states[i] != nil {
				status = states[i].Status
			}
			return fmt.Errorf("%w: %s %s is %s", ErrContractNotActive, account.name, account.addr.String(), status)
		}
	}
	return nil
}

// estimate asks the pool for the expected output and rejects unusable answers
func (s *Swapper) estimate(ctx context.Context, pool *address.Address, assetIn swapmsg.Asset, amountIn *big.Int) (*big.Int, error) {
	estimate, err := s.broker.EstimateSwapOut(ctx, pool, assetIn, amountIn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuoteUnavailable, err)
	}
	if estimate == nil || estimate.AmountOut == nil || estimate.AmountOut.Sign() < 0 {
		return nil, fmt.Errorf("%w: pool %s returned no usable amount", ErrQuoteUnavailable, pool.String())
	}
	return estimate.AmountOut, nil
}

// parseAsset reads "native" or a jetton root address
func parseAsset(token string) (swapmsg.Asset, error) {
	if strings.EqualFold(strings.TrimSpace(token), models.NativeSource) {
		return swapmsg.NativeAsset(), nil
	}
	root, err := parseAddress(token)
	if err != nil {
		return swapmsg.Asset{}, err
	}
	return swapmsg.JettonAsset(root), nil
}

// isZeroAmount reports whether text is a plain decimal equal to zero, e.g. "0", "0." or "0.00"
func isZeroAmount(text string) bool {
	text = strings.TrimSuffix(text, ".")
	if !isDecimalText(text) {
		return false
	}
	d, err := decimal.NewFromString(text)
	return err == nil && d.IsZero()
}
