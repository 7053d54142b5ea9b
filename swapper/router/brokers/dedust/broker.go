package dedust

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"

	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/brokers"
	swapmsg "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/swap_msg"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "dedust-broker").Logger()
}

// LiteAPI is the part of ton.APIClientWrapped used by the broker
type LiteAPI interface {
	CurrentMasterchainInfo(ctx context.Context) (*ton.BlockIDExt, error)
	LookupBlock(ctx context.Context, workchain int32, shard int64, seqno uint32) (*ton.BlockIDExt, error)
	GetAccount(ctx context.Context, block *ton.BlockIDExt, addr *address.Address) (*tlb.Account, error)
	RunGetMethod(ctx context.Context, block *ton.BlockIDExt, addr *address.Address, method string, params ...any) (*ton.ExecutionResult, error)
}

// LiteBroker implements brokers.DexBroker for DeDust using liteserver get-methods
type LiteBroker struct {
	api     LiteAPI
	factory *address.Address

	// last masterchain block returned by LastSeqno, state reads and get-methods reuse it
	// while it is younger than headMaxAge
	mu          sync.RWMutex
	lastBlock   *ton.BlockIDExt
	lastBlockAt time.Time
}

var _ brokers.DexBroker = (*LiteBroker)(nil)

// NewLiteBroker creates a DeDust broker that resolves contracts through the given factory
func NewLiteBroker(api LiteAPI, factory *address.Address) *LiteBroker {
	if factory == nil {
		factory = MainnetFactory()
	}
	return &LiteBroker{
		api:     api,
		factory: factory,
	}
}

// GetBrokerType returns the broker type identifier
func (b *LiteBroker) GetBrokerType() string {
	return BrokerType
}

// LastSeqno implements brokers.ChainClient
func (b *LiteBroker) LastSeqno(ctx context.Context) (uint32, error) {
	block, err := b.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get masterchain info: %w", err)
	}

	b.storeHead(block)
	return block.SeqNo, nil
}

// AccountState implements brokers.ChainClient
func (b *LiteBroker) AccountState(ctx context.Context, seqno uint32, addr *address.Address) (*brokers.AccountState, error) {
	block, err := b.blockBySeqno(ctx, seqno)
	if err != nil {
		return nil, err
	}

	account, err := b.api.GetAccount(ctx, block, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", addr.String(), err)
	}

	state := &brokers.AccountState{Status: brokers.AccountStatusNonExist}
	if account.IsActive && account.State != nil {
		state.Status = accountStatus(account.State.Status)
	}

	log.Debug().
		Str("address", addr.String()).
		Uint32("seqno", seqno).
		Str("status", state.Status).
		Msg("Account state loaded")
	return state, nil
}

// PoolAddress implements brokers.ContractResolver
func (b *LiteBroker) PoolAddress(ctx context.Context, poolType swapmsg.PoolType, assets [2]swapmsg.Asset) (*address.Address, error) {
	asset0, err := swapmsg.PackAsset(assets[0])
	if err != nil {
		return nil, err
	}
	asset1, err := swapmsg.PackAsset(assets[1])
	if err != nil {
		return nil, err
	}

	result, err := b.runFactoryMethod(ctx, getPoolAddressMethod, int64(poolType), asset0.BeginParse(), asset1.BeginParse())
	if err != nil {
		return nil, err
	}

	pool, err := loadAddressResult(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool address: %w", err)
	}

	log.Debug().
		Str("asset0", assets[0].String()).
		Str("asset1", assets[1].String()).
		Str("pool", pool.String()).
		Msg("Resolved pool address")
	return pool, nil
}

// VaultAddress implements brokers.ContractResolver
func (b *LiteBroker) VaultAddress(ctx context.Context, asset swapmsg.Asset) (*address.Address, error) {
	packed, err := swapmsg.PackAsset(asset)
	if err != nil {
		return nil, err
	}

	result, err := b.runFactoryMethod(ctx, getVaultAddressMethod, packed.BeginParse())
	if err != nil {
		return nil, err
	}

	vault, err := loadAddressResult(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault address: %w", err)
	}

	log.Debug().Str("asset", asset.String()).Str("vault", vault.String()).Msg("Resolved vault address")
	return vault, nil
}

// EstimateSwapOut implements brokers.PoolEstimator
func (b *LiteBroker) EstimateSwapOut(
	ctx context.Context,
	pool *address.Address,
	assetIn swapmsg.Asset,
	amountIn *big.Int,
) (*brokers.SwapEstimate, error) {
	packed, err := swapmsg.PackAsset(assetIn)
	if err != nil {
		return nil, err
	}

	block, err := b.headBlock(ctx)
	if err != nil {
		return nil, err
	}

	result, err := b.api.RunGetMethod(ctx, block, pool, estimateSwapOutMethod, packed.BeginParse(), amountIn)
	if err != nil {
		return nil, fmt.Errorf("%s failed on %s: %w", estimateSwapOutMethod, pool.String(), err)
	}

	assetSlice, err := result.Slice(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset out: %w", err)
	}
	assetOut, err := swapmsg.LoadAsset(assetSlice)
	if err != nil {
		return nil, err
	}
	amountOut, err := result.Int(1)
	if err != nil {
		return nil, fmt.Errorf("failed to read amount out: %w", err)
	}
	tradeFee, err := result.Int(2)
	if err != nil {
		return nil, fmt.Errorf("failed to read trade fee: %w", err)
	}

	log.Debug().
		Str("pool", pool.String()).
		Str("assetIn", assetIn.String()).
		Str("amountIn", amountIn.String()).
		Str("amountOut", amountOut.String()).
		Str("tradeFee", tradeFee.String()).
		Msg("Estimated swap out")

	return &brokers.SwapEstimate{
		AssetOut:  assetOut,
		AmountOut: amountOut,
		TradeFee:  tradeFee,
	}, nil
}

func (b *LiteBroker) runFactoryMethod(ctx context.Context, method string, params ...any) (*ton.ExecutionResult, error) {
	block, err := b.headBlock(ctx)
	if err != nil {
		return nil, err
	}

	result, err := b.api.RunGetMethod(ctx, block, b.factory, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s failed on factory %s: %w", method, b.factory.String(), err)
	}
	return result, nil
}

func (b *LiteBroker) storeHead(block *ton.BlockIDExt) {
	b.mu.Lock()
	b.lastBlock = block
	b.lastBlockAt = time.Now()
	b.mu.Unlock()
}

// headBlock returns the block of the last LastSeqno call, or a fresh head once that one is stale
func (b *LiteBroker) headBlock(ctx context.Context) (*ton.BlockIDExt, error) {
	b.mu.RLock()
	cached, at := b.lastBlock, b.lastBlockAt
	b.mu.RUnlock()

	if cached != nil && time.Since(at) < headMaxAge {
		return cached, nil
	}

	block, err := b.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get masterchain info: %w", err)
	}
	b.storeHead(block)
	return block, nil
}

// blockBySeqno returns the masterchain block with the given seqno
func (b *LiteBroker) blockBySeqno(ctx context.Context, seqno uint32) (*ton.BlockIDExt, error) {
	b.mu.RLock()
	cached := b.lastBlock
	b.mu.RUnlock()

	if cached != nil && cached.SeqNo == seqno {
		return cached, nil
	}

	block, err := b.api.LookupBlock(ctx, masterchainID, masterchainShard, seqno)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup block %d: %w", seqno, err)
	}
	return block, nil
}

func loadAddressResult(result *ton.ExecutionResult) (*address.Address, error) {
	slice, err := result.Slice(0)
	if err != nil {
		return nil, err
	}
	addr, err := slice.LoadAddr()
	if err != nil {
		return nil, err
	}
	if addr == nil || addr.Type() != address.StdAddress {
		return nil, errors.New("get-method returned a non standard address")
	}
	return addr, nil
}

func accountStatus(status tlb.AccountStatus) string {
	switch status {
	case tlb.AccountStatusActive:
		return brokers.AccountStatusActive
	case tlb.AccountStatusUninit:
		return brokers.AccountStatusUninit
	case tlb.AccountStatusFrozen:
		return brokers.AccountStatusFrozen
	default:
		return brokers.AccountStatusNonExist
	}
}
