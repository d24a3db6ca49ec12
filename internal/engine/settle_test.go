package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 场景：price=1 size=1000 goal=500，两人各投 300，
// finalize 通过后各领满额 300，无任何按比例折减。
func TestClaimPaysRecordedAllocation(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id, "alice", "USDC", d(300))
	require.NoError(t, err)
	_, err = env.engine.Participate(id, "bob", "USDC", d(300))
	require.NoError(t, err)

	env.clock.Advance(49 * time.Hour)
	require.NoError(t, env.engine.FinalizeRound(id))

	view, err := env.engine.RoundSnapshot(id)
	require.NoError(t, err)
	assert.True(t, view.FundedValue.Equal(d(600)))

	for _, account := range []string{"alice", "bob"} {
		res, err := env.engine.Claim(id, account)
		require.NoError(t, err)
		// 分配在参与时一次性锁定，领取时不做任何比例重算
		assert.True(t, res.TokenAllocation.Equal(d(300)))
		assert.True(t, res.BuyAmount.Equal(d(300)))
		assert.True(t, res.FyAmount.IsZero())
		assert.True(t, env.ledger.paidTo("IDO", account).Equal(d(300)))
	}

	// 认购款全部归集 treasury
	assert.True(t, env.ledger.paidTo("USDC", treasuryAccount).Equal(d(600)))

	view, err = env.engine.RoundSnapshot(id)
	require.NoError(t, err)
	assert.True(t, view.TokensClaimed.Equal(d(600)))
	assert.True(t, view.TokensClaimed.LessThanOrEqual(view.TokensSold))

	// 全部领完后该轮次不再占用预留
	assert.True(t, env.engine.Reserved("IDO").IsZero())
}

func TestClaimGuards(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id, "alice", "USDC", d(600))
	require.NoError(t, err)

	// finalize 前不可领取
	_, err = env.engine.Claim(id, "alice")
	assert.ErrorIs(t, err, ErrNotFinalized)

	env.clock.Advance(25 * time.Hour)
	require.NoError(t, env.engine.FinalizeRound(id))

	// claimable 时间未到
	_, err = env.engine.Claim(id, "alice")
	assert.ErrorIs(t, err, ErrNotClaimableYet)

	env.clock.Advance(24 * time.Hour)

	// 没有仓位的账户
	_, err = env.engine.Claim(id, "nobody")
	assert.ErrorIs(t, err, ErrNoPosition)

	_, err = env.engine.Claim(id, "alice")
	require.NoError(t, err)

	// 仓位已删除，重复领取失败
	_, err = env.engine.Claim(id, "alice")
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestClaimSplitsFyAndBuyPortions(t *testing.T) {
	env := newTestEnv(t)
	p := defaultRoundParams()
	p.FyToken = "fyUSDC"
	p.FyTokenMaxBps = 5000
	id := newEnabledRound(t, env, p, openSpec())

	_, err := env.engine.Participate(id, "alice", "fyUSDC", d(200))
	require.NoError(t, err)
	_, err = env.engine.Participate(id, "alice", "USDC", d(400))
	require.NoError(t, err)

	env.clock.Advance(49 * time.Hour)
	require.NoError(t, env.engine.FinalizeRound(id))

	res, err := env.engine.Claim(id, "alice")
	require.NoError(t, err)
	assert.True(t, res.FyAmount.Equal(d(200)))
	assert.True(t, res.BuyAmount.Equal(d(400)))
	// 出账合计等于仓位 amount，资金不增不减
	assert.True(t, res.FyAmount.Add(res.BuyAmount).Equal(d(600)))
	assert.True(t, env.ledger.paidTo("fyUSDC", treasuryAccount).Equal(d(200)))
	assert.True(t, env.ledger.paidTo("USDC", treasuryAccount).Equal(d(400)))
}

func TestClaimPayoutFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id, "alice", "USDC", d(600))
	require.NoError(t, err)

	env.clock.Advance(49 * time.Hour)
	require.NoError(t, env.engine.FinalizeRound(id))

	reservedBefore := env.engine.Reserved("IDO")
	env.ledger.failPayout = errors.New("transfer rejected")

	_, err = env.engine.Claim(id, "alice")
	require.Error(t, err)

	// 仓位、预留、领取累计全部恢复原状
	pos, err := env.engine.PositionOf(id, "alice")
	require.NoError(t, err)
	assert.True(t, pos.TokenAllocation.Equal(d(600)))
	assert.True(t, env.engine.Reserved("IDO").Equal(reservedBefore))

	view, err := env.engine.RoundSnapshot(id)
	require.NoError(t, err)
	assert.True(t, view.TokensClaimed.IsZero())

	// 故障清除后可以重试
	env.ledger.failPayout = nil
	_, err = env.engine.Claim(id, "alice")
	assert.NoError(t, err)
}

// 场景：轮次取消后单个参与者退款 50，拆分到两种支付代币，
// 仓位删除后第二次退款报无资金错误。
func TestRefundReturnsExactDeposit(t *testing.T) {
	env := newTestEnv(t)
	p := defaultRoundParams()
	p.FyToken = "fyUSDC"
	p.FyTokenMaxBps = 5000
	id := newEnabledRound(t, env, p, openSpec())

	_, err := env.engine.Participate(id, "carol", "fyUSDC", d(20))
	require.NoError(t, err)
	_, err = env.engine.Participate(id, "carol", "USDC", d(30))
	require.NoError(t, err)

	require.NoError(t, env.engine.CancelRound(id))

	res, err := env.engine.ClaimRefund(id, "carol")
	require.NoError(t, err)
	assert.True(t, res.FyAmount.Equal(d(20)))
	assert.True(t, res.BuyAmount.Equal(d(30)))
	assert.True(t, env.ledger.paidTo("fyUSDC", "carol").Equal(d(20)))
	assert.True(t, env.ledger.paidTo("USDC", "carol").Equal(d(30)))

	// 轮次累计同步扣回
	view, err := env.engine.RoundSnapshot(id)
	require.NoError(t, err)
	assert.True(t, view.TokensSold.IsZero())
	assert.True(t, view.FundedValue.IsZero())
	assert.True(t, view.FundedByToken["USDC"].IsZero())
	assert.True(t, view.FundedByToken["fyUSDC"].IsZero())

	// 二次退款失败
	_, err = env.engine.ClaimRefund(id, "carol")
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestRefundRequiresCanceledRound(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id, "alice", "USDC", d(100))
	require.NoError(t, err)

	_, err = env.engine.ClaimRefund(id, "alice")
	assert.ErrorIs(t, err, ErrNotCanceled)
}

func TestRefundPayoutFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id, "alice", "USDC", d(100))
	require.NoError(t, err)
	require.NoError(t, env.engine.CancelRound(id))

	env.ledger.failPayout = errors.New("transfer rejected")
	_, err = env.engine.ClaimRefund(id, "alice")
	require.Error(t, err)

	pos, err := env.engine.PositionOf(id, "alice")
	require.NoError(t, err)
	assert.True(t, pos.Amount.Equal(d(100)))

	view, err := env.engine.RoundSnapshot(id)
	require.NoError(t, err)
	assert.True(t, view.TokensSold.Equal(d(100)))
	assert.True(t, view.FundedValue.Equal(d(100)))
}

func TestWithdrawSpare(t *testing.T) {
	env := newTestEnv(t)
	// 多注资 200，未被任何轮次预留
	env.ledger.fund("IDO", d(200))
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	spare, err := env.engine.WithdrawSpare(id, "admin")
	require.NoError(t, err)
	assert.True(t, spare.Equal(d(200)))
	assert.True(t, env.ledger.paidTo("IDO", "admin").Equal(d(200)))

	// 再提一次已无闲置
	_, err = env.engine.WithdrawSpare(id, "admin")
	assert.Error(t, err)

	// 预留量从未超过实际余额
	balance, err := env.ledger.Balance("IDO")
	require.NoError(t, err)
	assert.True(t, env.engine.Reserved("IDO").LessThanOrEqual(balance))
}

// 同代币两轮次共享预留池：finalize 释放的未售出部分可立即被第二轮使用
func TestSharedReservationAcrossRounds(t *testing.T) {
	env := newTestEnv(t)
	id1 := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id1, "alice", "USDC", d(600))
	require.NoError(t, err)
	env.clock.Advance(25 * time.Hour)
	require.NoError(t, env.engine.FinalizeRound(id1))
	// 释放 400
	assert.True(t, env.engine.Reserved("IDO").Equal(d(600)))

	p := defaultRoundParams()
	p.Size = d(400)
	p.FundingGoal = d(0)
	p.StartTime = env.clock.Now()
	p.EndTime = env.clock.Now().Add(time.Hour)
	p.ClaimableTime = env.clock.Now().Add(2 * time.Hour)
	id2, err := env.engine.CreateRound(p)
	require.NoError(t, err)
	require.NoError(t, env.engine.SetRoundSpec(id2, openSpec()))
	// 余额 1000，预留 600 + 400 = 1000，恰好放得下
	require.NoError(t, env.engine.EnableRound(id2))
	assert.True(t, env.engine.Reserved("IDO").Equal(d(1000)))
}
