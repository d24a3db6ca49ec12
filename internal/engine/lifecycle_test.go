package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoundValidatesTimes(t *testing.T) {
	env := newTestEnv(t)

	p := defaultRoundParams()
	p.EndTime = p.StartTime
	_, err := env.engine.CreateRound(p)
	assert.Error(t, err)

	p = defaultRoundParams()
	p.ClaimableTime = p.EndTime
	_, err = env.engine.CreateRound(p)
	assert.Error(t, err)
}

func TestCreateRoundRejectsUnreachableGoal(t *testing.T) {
	env := newTestEnv(t)

	// size=1000, price=1, decimals=0 => 最多筹 1000
	p := defaultRoundParams()
	p.FundingGoal = d(1001)
	_, err := env.engine.CreateRound(p)
	assert.Error(t, err)

	p.FundingGoal = d(1000)
	_, err = env.engine.CreateRound(p)
	assert.NoError(t, err)
}

func TestEnableRequiresSpec(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.fund("IDO", d(1000))

	id, err := env.engine.CreateRound(defaultRoundParams())
	require.NoError(t, err)

	assert.ErrorIs(t, env.engine.EnableRound(id), ErrSpecNotSet)

	require.NoError(t, env.engine.SetRoundSpec(id, openSpec()))
	assert.NoError(t, env.engine.EnableRound(id))
	assert.ErrorIs(t, env.engine.EnableRound(id), ErrAlreadyEnabled)
}

func TestSetSpecCoercesMinAllocation(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.engine.CreateRound(defaultRoundParams())
	require.NoError(t, err)

	spec := openSpec()
	spec.MinAllocation = d(0)
	require.NoError(t, env.engine.SetRoundSpec(id, spec))

	view, err := env.engine.RoundSnapshot(id)
	require.NoError(t, err)
	assert.True(t, view.Spec.MinAllocation.Equal(d(1)))
}

func TestSetSpecRejectedAfterEnable(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())
	assert.ErrorIs(t, env.engine.SetRoundSpec(id, openSpec()), ErrAlreadyEnabled)
}

func TestEnableChecksReservationAgainstBalance(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.fund("IDO", d(1500))

	first := newEnabledRound(t, env, func() CreateRoundParams {
		p := defaultRoundParams()
		p.Size = d(1000)
		return p
	}(), openSpec())
	_ = first
	assert.True(t, env.engine.Reserved("IDO").Equal(d(1000)))

	// 剩余 500，不足以再开一个 1000 的轮次
	p := defaultRoundParams()
	p.Size = d(1000)
	id2, err := env.engine.CreateRound(p)
	require.NoError(t, err)
	require.NoError(t, env.engine.SetRoundSpec(id2, openSpec()))

	err = env.engine.EnableRound(id2)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	// 失败的 enable 不得留下预留
	assert.True(t, env.engine.Reserved("IDO").Equal(d(1000)))

	// 补足余额后成功
	env.ledger.fund("IDO", d(500))
	require.NoError(t, env.engine.EnableRound(id2))
	assert.True(t, env.engine.Reserved("IDO").Equal(d(2000)))
}

func TestFinalizeRequiresEndAndGoal(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id, "alice", "USDC", d(600))
	require.NoError(t, err)

	// 未到结束时间
	assert.ErrorIs(t, env.engine.FinalizeRound(id), ErrRoundNotEnded)

	env.clock.Advance(25 * time.Hour)
	require.NoError(t, env.engine.FinalizeRound(id))
	assert.ErrorIs(t, env.engine.FinalizeRound(id), ErrAlreadyFinalized)
}

func TestFinalizeRejectsBelowGoal(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id, "alice", "USDC", d(100))
	require.NoError(t, err)

	env.clock.Advance(25 * time.Hour)
	assert.ErrorIs(t, env.engine.FinalizeRound(id), ErrFundingGoalNotReached)
}

func TestFinalizeReleasesUnsoldReservation(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id, "alice", "USDC", d(600))
	require.NoError(t, err)
	assert.True(t, env.engine.Reserved("IDO").Equal(d(1000)))

	env.clock.Advance(25 * time.Hour)
	require.NoError(t, env.engine.FinalizeRound(id))

	// 1000 - 600 未售出，退回共享池
	assert.True(t, env.engine.Reserved("IDO").Equal(d(600)))
}

func TestCancelReleasesReservation(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())
	assert.True(t, env.engine.Reserved("IDO").Equal(d(1000)))

	require.NoError(t, env.engine.CancelRound(id))
	assert.True(t, env.engine.Reserved("IDO").IsZero())
	assert.ErrorIs(t, env.engine.CancelRound(id), ErrAlreadyCanceled)
}

func TestCancelAfterFinalizeReleasesUnclaimedOnly(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	_, err := env.engine.Participate(id, "alice", "USDC", d(300))
	require.NoError(t, err)
	_, err = env.engine.Participate(id, "bob", "USDC", d(300))
	require.NoError(t, err)

	env.clock.Advance(49 * time.Hour)
	require.NoError(t, env.engine.FinalizeRound(id))

	_, err = env.engine.Claim(id, "alice")
	require.NoError(t, err)
	// sold 600, claimed 300 => 预留剩 300
	assert.True(t, env.engine.Reserved("IDO").Equal(d(300)))

	require.NoError(t, env.engine.CancelRound(id))
	assert.True(t, env.engine.Reserved("IDO").IsZero())

	// 取消后 claim 路径永久关闭
	_, err = env.engine.Claim(id, "bob")
	assert.ErrorIs(t, err, ErrAlreadyCanceled)
	// bob 只能退款
	_, err = env.engine.ClaimRefund(id, "bob")
	assert.NoError(t, err)
}

func TestCanceledRoundCannotFinalize(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	require.NoError(t, env.engine.CancelRound(id))
	env.clock.Advance(25 * time.Hour)
	assert.ErrorIs(t, env.engine.FinalizeRound(id), ErrAlreadyCanceled)
}

func TestDelayEndTimeMonotonicAndCapped(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	view, err := env.engine.RoundSnapshot(id)
	require.NoError(t, err)
	initialEnd := view.Clock.InitialEndTime

	// 向前移被拒
	assert.Error(t, env.engine.DelayEndTime(id, initialEnd.Add(-time.Hour)))

	// 超出 initial + 14 天被拒
	assert.Error(t, env.engine.DelayEndTime(id, initialEnd.Add(MaxTimeExtension).Add(time.Second)))

	// 合法推迟（同时推迟 claimable 保持次序）
	require.NoError(t, env.engine.DelayClaimableTime(id, view.Clock.InitialClaimableTime.Add(13*24*time.Hour)))
	require.NoError(t, env.engine.DelayEndTime(id, initialEnd.Add(13*24*time.Hour)))

	// 推迟后不能回退
	assert.Error(t, env.engine.DelayEndTime(id, initialEnd.Add(12*24*time.Hour)))
}

func TestDelayClaimableTimeCapped(t *testing.T) {
	env := newTestEnv(t)
	id := newEnabledRound(t, env, defaultRoundParams(), openSpec())

	view, err := env.engine.RoundSnapshot(id)
	require.NoError(t, err)
	initial := view.Clock.InitialClaimableTime

	assert.Error(t, env.engine.DelayClaimableTime(id, initial.Add(MaxTimeExtension).Add(time.Minute)))
	assert.NoError(t, env.engine.DelayClaimableTime(id, initial.Add(MaxTimeExtension)))
}
