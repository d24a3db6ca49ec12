package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 场景：等级表 [1:100, 2:200, 3:300] → [1.0x, 1.25x, 1.5x]
func TestRankAndMultiplierTiers(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())

	// 恰好踩在阈值上取该档
	env.oracle.setStake("exact", d(200))
	rank, multiplier, err := env.engine.RankAndMultiplier("exact")
	require.NoError(t, err)
	assert.Equal(t, uint(2), rank)
	assert.Equal(t, int64(12500), multiplier)

	// 低于最低阈值
	env.oracle.setStake("small", d(50))
	rank, multiplier, err = env.engine.RankAndMultiplier("small")
	require.NoError(t, err)
	assert.Equal(t, uint(0), rank)
	assert.Equal(t, int64(0), multiplier)

	// 超过最高阈值取最高档
	env.oracle.setStake("whale", d(10000))
	rank, multiplier, err = env.engine.RankAndMultiplier("whale")
	require.NoError(t, err)
	assert.Equal(t, uint(3), rank)
	assert.Equal(t, int64(15000), multiplier)
}

func TestRankZeroWhileUnstaking(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())

	env.oracle.setUnstaking("alice", d(500))
	rank, multiplier, err := env.engine.RankAndMultiplier("alice")
	require.NoError(t, err)
	assert.Equal(t, uint(0), rank)
	assert.Equal(t, int64(0), multiplier)

	// 从未质押同样是 0
	rank, multiplier, err = env.engine.RankAndMultiplier("stranger")
	require.NoError(t, err)
	assert.Equal(t, uint(0), rank)
	assert.Equal(t, int64(0), multiplier)
}

func TestRankOracleErrorPropagates(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())
	env.oracle.failFor["alice"] = errors.New("rpc down")

	_, _, err := env.engine.RankAndMultiplier("alice")
	var oracleErr *OracleError
	assert.ErrorAs(t, err, &oracleErr)
}

func TestLevelUpdateTimelock(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())

	newLevels := []RankLevel{
		{Level: 1, Threshold: d(500), MultiplierBps: 10000},
	}
	require.NoError(t, env.engine.ProposeLevelUpdate(newLevels))

	// 同时只允许一个提议
	assert.ErrorIs(t, env.engine.ProposeLevelUpdate(newLevels), ErrProposalPending)

	// 延迟未到
	assert.ErrorIs(t, env.engine.ExecuteLevelUpdate(), ErrTimelockNotElapsed)

	env.clock.Advance(LevelUpdateDelay + time.Minute)
	require.NoError(t, env.engine.ExecuteLevelUpdate())

	// 缩表后旧的高档位彻底消失
	levels := env.engine.Levels()
	require.Len(t, levels, 1)

	env.oracle.setStake("whale", d(10000))
	rank, _, err := env.engine.RankAndMultiplier("whale")
	require.NoError(t, err)
	assert.Equal(t, uint(1), rank)

	// 执行后没有挂起提议
	assert.ErrorIs(t, env.engine.ExecuteLevelUpdate(), ErrNoProposalPending)
}

func TestCancelLevelUpdate(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())

	require.NoError(t, env.engine.ProposeLevelUpdate(defaultLevels()))
	require.NoError(t, env.engine.CancelLevelUpdate())
	assert.ErrorIs(t, env.engine.ExecuteLevelUpdate(), ErrNoProposalPending)
}

func TestLevelValidation(t *testing.T) {
	env := newTestEnv(t)

	// 编号必须从 1 连续
	err := env.engine.ProposeLevelUpdate([]RankLevel{
		{Level: 2, Threshold: d(100), MultiplierBps: 10000},
	})
	assert.Error(t, err)

	// 阈值严格递增
	err = env.engine.ProposeLevelUpdate([]RankLevel{
		{Level: 1, Threshold: d(100), MultiplierBps: 10000},
		{Level: 2, Threshold: d(100), MultiplierBps: 12000},
	})
	assert.Error(t, err)

	// 乘数不得下降
	err = env.engine.ProposeLevelUpdate([]RankLevel{
		{Level: 1, Threshold: d(100), MultiplierBps: 12000},
		{Level: 2, Threshold: d(200), MultiplierBps: 10000},
	})
	assert.Error(t, err)

	// 空表
	assert.Error(t, env.engine.ProposeLevelUpdate(nil))
}

func TestOracleSwapTimelock(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())
	env.oracle.setStake("alice", d(200))

	replacement := newMockOracle()
	replacement.setStake("alice", d(300))

	require.NoError(t, env.engine.ProposeOracleSwap(replacement))
	assert.ErrorIs(t, env.engine.ProposeOracleSwap(replacement), ErrProposalPending)
	assert.ErrorIs(t, env.engine.ExecuteOracleSwap(), ErrTimelockNotElapsed)

	// 切换前仍然读旧源
	rank, _, err := env.engine.RankAndMultiplier("alice")
	require.NoError(t, err)
	assert.Equal(t, uint(2), rank)

	env.clock.Advance(OracleSwapDelay + time.Minute)
	require.NoError(t, env.engine.ExecuteOracleSwap())

	rank, _, err = env.engine.RankAndMultiplier("alice")
	require.NoError(t, err)
	assert.Equal(t, uint(3), rank)
}
