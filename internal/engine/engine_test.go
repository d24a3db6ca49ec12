package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Unix(1700000000, 0).UTC()

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// testClock 可手动推进的时间源
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(dur)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type depositCall struct {
	token  string
	from   string
	amount decimal.Decimal
}

// mockLedger 内存托管账本：余额核验、出账批量原子、可注入失败
type mockLedger struct {
	mu          sync.Mutex
	balances    map[string]decimal.Decimal
	deposits    []depositCall
	payouts     [][]Payment
	failDeposit error
	failPayout  error
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[string]decimal.Decimal)}
}

func (m *mockLedger) fund(token string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[token] = m.bal(token).Add(amount)
}

func (m *mockLedger) bal(token string) decimal.Decimal {
	if v, ok := m.balances[token]; ok {
		return v
	}
	return decimal.Zero
}

func (m *mockLedger) Deposit(token, from string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeposit != nil {
		return m.failDeposit
	}
	m.balances[token] = m.bal(token).Add(amount)
	m.deposits = append(m.deposits, depositCall{token: token, from: from, amount: amount})
	return nil
}

func (m *mockLedger) Payout(payments ...Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPayout != nil {
		return m.failPayout
	}
	for _, p := range payments {
		if m.bal(p.Token).LessThan(p.Amount) {
			return errors.New("insufficient engine balance")
		}
	}
	for _, p := range payments {
		m.balances[p.Token] = m.bal(p.Token).Sub(p.Amount)
	}
	m.payouts = append(m.payouts, payments)
	return nil
}

func (m *mockLedger) Balance(token string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bal(token), nil
}

// paidTo 汇总某账户收到的某代币总额
func (m *mockLedger) paidTo(token, to string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, batch := range m.payouts {
		for _, p := range batch {
			if p.Token == token && p.To == to {
				total = total.Add(p.Amount)
			}
		}
	}
	return total
}

type stakeInfo struct {
	staked    decimal.Decimal
	unstakeAt int64
	stakeAt   int64
}

// mockOracle 内存质押余额源，可注入失败
type mockOracle struct {
	mu      sync.Mutex
	stakes  map[string]stakeInfo
	failFor map[string]error
}

func newMockOracle() *mockOracle {
	return &mockOracle{
		stakes:  make(map[string]stakeInfo),
		failFor: make(map[string]error),
	}
}

func (o *mockOracle) setStake(account string, staked decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stakes[account] = stakeInfo{staked: staked, stakeAt: baseTime.Unix()}
}

func (o *mockOracle) setUnstaking(account string, staked decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stakes[account] = stakeInfo{staked: staked, stakeAt: baseTime.Unix(), unstakeAt: baseTime.Unix()}
}

func (o *mockOracle) BalanceInfo(account string) (decimal.Decimal, int64, int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err, ok := o.failFor[account]; ok {
		return decimal.Zero, 0, 0, err
	}
	info, ok := o.stakes[account]
	if !ok {
		return decimal.Zero, 0, 0, nil
	}
	return info.staked, info.unstakeAt, info.stakeAt, nil
}

// testEnv 组装一套引擎与协作方
type testEnv struct {
	engine *Engine
	ledger *mockLedger
	oracle *mockOracle
	clock  *testClock
}

const treasuryAccount = "treasury-account"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ledger := newMockLedger()
	oracle := newMockOracle()
	clock := newTestClock(baseTime)
	e := New(ledger, oracle, treasuryAccount)
	e.SetClock(clock.Now)
	return &testEnv{engine: e, ledger: ledger, oracle: oracle, clock: clock}
}

// defaultRoundParams 一个从 baseTime 起跑、零小数位、单价 1 的轮次
func defaultRoundParams() CreateRoundParams {
	return CreateRoundParams{
		IdoToken:         "IDO",
		IdoTokenDecimals: 0,
		BuyToken:         "USDC",
		Price:            d(1),
		Size:             d(1000),
		FundingGoal:      d(500),
		StartTime:        baseTime,
		EndTime:          baseTime.Add(24 * time.Hour),
		ClaimableTime:    baseTime.Add(48 * time.Hour),
		NoRegistration:   true,
	}
}

// openSpec 不限 rank、不用乘数的 spec
func openSpec() SpecParams {
	return SpecParams{
		MaxAllocation: d(1000),
		MinAllocation: d(1),
		NoMultiplier:  true,
		NoRank:        true,
	}
}

// newEnabledRound 建一个已注资、已设 spec、已 enable 的轮次
func newEnabledRound(t *testing.T, env *testEnv, params CreateRoundParams, spec SpecParams) uint {
	t.Helper()
	env.ledger.fund(params.IdoToken, params.Size)
	id, err := env.engine.CreateRound(params)
	require.NoError(t, err)
	require.NoError(t, env.engine.SetRoundSpec(id, spec))
	require.NoError(t, env.engine.EnableRound(id))
	return id
}

// defaultLevels 100/200/300 阈值对应 1.0x / 1.25x / 1.5x
func defaultLevels() []RankLevel {
	return []RankLevel{
		{Level: 1, Threshold: d(100), MultiplierBps: 10000},
		{Level: 2, Threshold: d(200), MultiplierBps: 12500},
		{Level: 3, Threshold: d(300), MultiplierBps: 15000},
	}
}

// installLevels 跳过时间锁直接装表，测试夹具用
func installLevels(t *testing.T, env *testEnv, levels []RankLevel) {
	t.Helper()
	env.engine.RestoreLevels(levels)
}
