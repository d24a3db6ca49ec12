package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 新建一个 start 在 regStart 之后的轮次，供挂载测试用
func newAttachableRound(t *testing.T, env *testEnv) uint {
	t.Helper()
	p := defaultRoundParams()
	p.StartTime = baseTime.Add(2 * time.Hour)
	p.EndTime = baseTime.Add(24 * time.Hour)
	p.ClaimableTime = baseTime.Add(48 * time.Hour)
	p.NoRegistration = false
	id, err := env.engine.CreateRound(p)
	require.NoError(t, err)
	return id
}

func TestCreateMetaIDOValidatesWindow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.CreateMetaIDO(nil, baseTime, baseTime.Add(-time.Second))
	assert.Error(t, err)

	// regStart == regEnd 合法：关闭自助注册
	_, err = env.engine.CreateMetaIDO(nil, baseTime, baseTime)
	assert.NoError(t, err)
}

func TestManageRoundSingleParent(t *testing.T) {
	env := newTestEnv(t)
	id := newAttachableRound(t, env)

	m1, err := env.engine.CreateMetaIDO([]uint{id}, baseTime, baseTime.Add(time.Hour))
	require.NoError(t, err)

	m2, err := env.engine.CreateMetaIDO(nil, baseTime, baseTime.Add(time.Hour))
	require.NoError(t, err)

	// 已有归属不能再挂
	assert.ErrorIs(t, env.engine.ManageRound(m2, id, true), ErrRoundHasParent)

	// 不属于 m2，摘除失败
	assert.ErrorIs(t, env.engine.ManageRound(m2, id, false), ErrRoundNotInMetaIDO)

	// 从 m1 摘除后可以挂 m2
	require.NoError(t, env.engine.ManageRound(m1, id, false))
	require.NoError(t, env.engine.ManageRound(m2, id, true))

	view, err := env.engine.RoundSnapshot(id)
	require.NoError(t, err)
	assert.Equal(t, m2, view.Clock.ParentMetaIDO)
}

func TestManageRoundRejectsLateRegistrationStart(t *testing.T) {
	env := newTestEnv(t)

	p := defaultRoundParams()
	p.StartTime = baseTime.Add(30 * time.Minute)
	p.NoRegistration = false
	id, err := env.engine.CreateRound(p)
	require.NoError(t, err)

	// 注册窗口开在轮次开始之后，拒绝挂载
	_, err = env.engine.CreateMetaIDO([]uint{id}, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))
	assert.Error(t, err)
}

func TestRegisterSelfWindow(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())
	env.oracle.setStake("alice", d(150))

	metaID, err := env.engine.CreateMetaIDO(nil, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))
	require.NoError(t, err)

	// 窗口未开
	_, _, err = env.engine.RegisterSelf(metaID, "alice")
	assert.ErrorIs(t, err, ErrRegistrationClosed)

	env.clock.Set(baseTime.Add(90 * time.Minute))
	rank, multiplier, err := env.engine.RegisterSelf(metaID, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint(1), rank)
	assert.Equal(t, int64(10000), multiplier)

	// 窗口已关
	env.clock.Set(baseTime.Add(3 * time.Hour))
	_, _, err = env.engine.RegisterSelf(metaID, "alice")
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestRegisterSelfDisabledWhenWindowZero(t *testing.T) {
	env := newTestEnv(t)
	metaID, err := env.engine.CreateMetaIDO(nil, baseTime, baseTime)
	require.NoError(t, err)

	_, _, err = env.engine.RegisterSelf(metaID, "alice")
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestRegisterSelfMonotonicRank(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())
	env.oracle.setStake("alice", d(150)) // rank 1

	metaID, err := env.engine.CreateMetaIDO(nil, baseTime, baseTime.Add(24*time.Hour))
	require.NoError(t, err)
	env.clock.Set(baseTime.Add(time.Hour))

	_, _, err = env.engine.RegisterSelf(metaID, "alice")
	require.NoError(t, err)

	// rank 不变的重注册被拒
	_, _, err = env.engine.RegisterSelf(metaID, "alice")
	assert.ErrorIs(t, err, ErrRankNotIncreased)

	// 质押掉到 rank 0 更不行
	env.oracle.setStake("alice", d(10))
	_, _, err = env.engine.RegisterSelf(metaID, "alice")
	assert.ErrorIs(t, err, ErrRankNotIncreased)

	// 升到 rank 2 可以刷新快照
	env.oracle.setStake("alice", d(250))
	rank, multiplier, err := env.engine.RegisterSelf(metaID, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint(2), rank)
	assert.Equal(t, int64(12500), multiplier)
}

func TestRegisterSelfAbortsOnOracleFailure(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())
	env.oracle.failFor["alice"] = errors.New("rpc timeout")

	metaID, err := env.engine.CreateMetaIDO(nil, baseTime, baseTime.Add(time.Hour))
	require.NoError(t, err)
	env.clock.Set(baseTime.Add(time.Minute))

	_, _, err = env.engine.RegisterSelf(metaID, "alice")
	var oracleErr *OracleError
	require.ErrorAs(t, err, &oracleErr)

	// 失败时不得默认成 rank 0 注册
	_, registered, err := env.engine.Registration(metaID, "alice")
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestAdminRegisterBypassesWindowAndRank(t *testing.T) {
	env := newTestEnv(t)
	installLevels(t, env, defaultLevels())
	env.oracle.setStake("alice", d(150))
	env.oracle.setStake("bob", d(250))

	// 零长窗口：自助注册关闭，管理员仍可注册
	metaID, err := env.engine.CreateMetaIDO(nil, baseTime, baseTime)
	require.NoError(t, err)

	require.NoError(t, env.engine.AdminRegister(metaID, []string{"alice", "bob"}))

	reg, ok, err := env.engine.Registration(metaID, "bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint(2), reg.Rank)

	// 已注册的账户在批量里被跳过而不是报错
	require.NoError(t, env.engine.AdminRegister(metaID, []string{"alice", "carol"}))
	_, ok, err = env.engine.Registration(metaID, "carol")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdminDeregisterIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.oracle.setStake("alice", d(150))

	metaID, err := env.engine.CreateMetaIDO(nil, baseTime, baseTime)
	require.NoError(t, err)
	require.NoError(t, env.engine.AdminRegister(metaID, []string{"alice"}))

	require.NoError(t, env.engine.AdminDeregister(metaID, []string{"alice"}))
	// 再注销一次是 no-op
	require.NoError(t, env.engine.AdminDeregister(metaID, []string{"alice"}))

	_, ok, err := env.engine.Registration(metaID, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelayRegistrationEnd(t *testing.T) {
	env := newTestEnv(t)
	metaID, err := env.engine.CreateMetaIDO(nil, baseTime, baseTime.Add(time.Hour))
	require.NoError(t, err)

	// 只能后移
	assert.Error(t, env.engine.DelayRegistrationEnd(metaID, baseTime.Add(30*time.Minute)))
	// 上限 initial + 14 天
	assert.Error(t, env.engine.DelayRegistrationEnd(metaID, baseTime.Add(time.Hour).Add(MaxTimeExtension).Add(time.Second)))
	assert.NoError(t, env.engine.DelayRegistrationEnd(metaID, baseTime.Add(time.Hour).Add(MaxTimeExtension)))
}
