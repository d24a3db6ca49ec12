package solana

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// 质押仓位账户布局：discriminator(8) + owner(32) + staked(u64) + stake_at(i64) + unstake_at(i64)
const stakePositionDataLen = 8 + 32 + 8 + 8 + 8

// StakeOracle 从链上质押程序读取账户的质押量和时间戳，
// 实现 engine.BalanceOracle
type StakeOracle struct {
	client         *rpc.Client
	stakingProgram solana.PublicKey
}

func NewStakeOracle(rpcEndpoint string, stakingProgram string) (*StakeOracle, error) {
	program, err := solana.PublicKeyFromBase58(stakingProgram)
	if err != nil {
		return nil, fmt.Errorf("invalid staking program address: %w", err)
	}
	return &StakeOracle{
		client:         rpc.New(rpcEndpoint),
		stakingProgram: program,
	}, nil
}

// positionAddress 推导账户质押仓位的 PDA: ["position", program, owner]
func (o *StakeOracle) positionAddress(owner solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		[]byte("position"),
		o.stakingProgram.Bytes(),
		owner.Bytes(),
	}
	addr, _, err := solana.FindProgramAddress(seeds, o.stakingProgram)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive position address: %w", err)
	}
	return addr, nil
}

// BalanceInfo 查询 account 的质押量、解押发起时间、质押发起时间。
// 链上没有仓位账户视为从未质押，返回全零。
func (o *StakeOracle) BalanceInfo(account string) (decimal.Decimal, int64, int64, error) {
	owner, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return decimal.Zero, 0, 0, fmt.Errorf("invalid account address: %w", err)
	}

	position, err := o.positionAddress(owner)
	if err != nil {
		return decimal.Zero, 0, 0, err
	}

	info, err := o.client.GetAccountInfo(context.Background(), position)
	if errors.Is(err, rpc.ErrNotFound) {
		return decimal.Zero, 0, 0, nil
	}
	if err != nil {
		log.Errorf("> 查询账户 %s 的质押仓位失败: %v", account, err)
		return decimal.Zero, 0, 0, fmt.Errorf("failed to fetch stake position: %w", err)
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return decimal.Zero, 0, 0, nil
	}

	data := info.Value.Data.GetBinary()
	if len(data) < stakePositionDataLen {
		return decimal.Zero, 0, 0, fmt.Errorf("stake position data too short: %d bytes", len(data))
	}

	staked := binary.LittleEndian.Uint64(data[40:48])
	stakeAt := int64(binary.LittleEndian.Uint64(data[48:56]))
	unstakeAt := int64(binary.LittleEndian.Uint64(data[56:64]))

	return decimal.NewFromInt(int64(staked)), unstakeAt, stakeAt, nil
}
