package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RoundView 是轮次状态的深拷贝快照，供 API 响应与持久化日志使用
type RoundView struct {
	ID            uint
	Clock         RoundClock
	Spec          RoundSpec
	IdoToken      string
	IdoDecimals   int
	BuyToken      string
	FyToken       string
	Price         decimal.Decimal
	Size          decimal.Decimal
	TokensSold    decimal.Decimal
	TokensClaimed decimal.Decimal
	FundingGoal   decimal.Decimal
	FundedValue   decimal.Decimal
	FyTokenMaxBps int64
	FundedByToken map[string]decimal.Decimal
	Participants  int
}

// MetaIDOView 是 MetaIDO 状态快照
type MetaIDOView struct {
	ID                     uint
	RoundIDs               []uint
	RegistrationStart      int64
	RegistrationEnd        int64
	InitialRegistrationEnd int64
	RegisteredCount        int
}

// RegistrationView 单个账户的注册快照
type RegistrationView struct {
	Account       string
	Rank          uint
	MultiplierBps int64
}

// RoundSnapshot 返回轮次快照；不存在时返回 ErrRoundNotFound
func (e *Engine) RoundSnapshot(id uint) (*RoundView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(id)
	if err != nil {
		return nil, err
	}
	return snapshotRound(r), nil
}

// RoundSnapshots 返回全部轮次快照，按 id 升序
func (e *Engine) RoundSnapshots() []*RoundView {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]*RoundView, 0, len(e.rounds))
	for _, r := range e.rounds {
		views = append(views, snapshotRound(r))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// PositionOf 返回账户在某轮次的仓位副本
func (e *Engine) PositionOf(roundID uint, account string) (*Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(roundID)
	if err != nil {
		return nil, err
	}
	p, ok := r.Config.Positions[account]
	if !ok {
		return nil, ErrNoPosition
	}
	copied := *p
	return &copied, nil
}

// Participants 分页列出参与者（按首次参与顺序）
func (e *Engine) Participants(roundID uint, offset, limit int) ([]string, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(roundID)
	if err != nil {
		return nil, 0, err
	}
	total := len(r.Config.Participants)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []string{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	page := append([]string(nil), r.Config.Participants[offset:end]...)
	return page, total, nil
}

// FundsRaised 返回某轮次分币种的累计认购额
func (e *Engine) FundsRaised(roundID uint) (map[string]decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.round(roundID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(r.Config.FundedByToken))
	for token, amount := range r.Config.FundedByToken {
		out[token] = amount
	}
	return out, nil
}

// AccountFunding 汇总账户在所有轮次中的在册出资（已 claim / refund 的仓位不计）
func (e *Engine) AccountFunding(account string) map[uint]decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[uint]decimal.Decimal)
	for id, r := range e.rounds {
		if p, ok := r.Config.Positions[account]; ok {
			out[id] = p.Amount
		}
	}
	return out
}

// Reserved 返回某代币的全局预留量
func (e *Engine) Reserved(token string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reservedOf(token)
}

// ReservedTokens 返回所有有预留记录的代币及其预留量
func (e *Engine) ReservedTokens() map[string]decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(e.reserved))
	for token, amount := range e.reserved {
		out[token] = amount
	}
	return out
}

// MetaIDOSnapshot 返回 MetaIDO 快照
func (e *Engine) MetaIDOSnapshot(id uint) (*MetaIDOView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metaIDO(id)
	if err != nil {
		return nil, err
	}
	return &MetaIDOView{
		ID:                     m.ID,
		RoundIDs:               append([]uint(nil), m.RoundIDs...),
		RegistrationStart:      m.RegistrationStart.Unix(),
		RegistrationEnd:        m.RegistrationEnd.Unix(),
		InitialRegistrationEnd: m.InitialRegistrationEnd.Unix(),
		RegisteredCount:        len(m.Registered),
	}, nil
}

// Registration 返回账户在 MetaIDO 里的注册快照；未注册时 ok 为 false
func (e *Engine) Registration(metaID uint, account string) (*RegistrationView, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metaIDO(metaID)
	if err != nil {
		return nil, false, err
	}
	if !m.Registered[account] {
		return nil, false, nil
	}
	return &RegistrationView{
		Account:       account,
		Rank:          m.UserRank[account],
		MultiplierBps: m.UserMultiplier[account],
	}, true, nil
}

// Registrations 返回 MetaIDO 全部注册快照（管理端导出用）
func (e *Engine) Registrations(metaID uint) ([]RegistrationView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metaIDO(metaID)
	if err != nil {
		return nil, err
	}
	out := make([]RegistrationView, 0, len(m.Registered))
	for account := range m.Registered {
		out = append(out, RegistrationView{
			Account:       account,
			Rank:          m.UserRank[account],
			MultiplierBps: m.UserMultiplier[account],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out, nil
}

func snapshotRound(r *Round) *RoundView {
	funded := make(map[string]decimal.Decimal, len(r.Config.FundedByToken))
	for token, amount := range r.Config.FundedByToken {
		funded[token] = amount
	}
	return &RoundView{
		ID:            r.ID,
		Clock:         r.Clock,
		Spec:          r.Spec,
		IdoToken:      r.Config.IdoToken,
		IdoDecimals:   r.Config.IdoTokenDecimals,
		BuyToken:      r.Config.BuyToken,
		FyToken:       r.Config.FyToken,
		Price:         r.Config.Price,
		Size:          r.Config.Size,
		TokensSold:    r.Config.TokensSold,
		TokensClaimed: r.Config.TokensClaimed,
		FundingGoal:   r.Config.FundingGoal,
		FundedValue:   r.Config.FundedValue,
		FyTokenMaxBps: r.Config.FyTokenMaxBps,
		FundedByToken: funded,
		Participants:  len(r.Config.Participants),
	}
}
