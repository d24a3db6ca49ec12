package engine

import (
	"time"
)

// CreateMetaIDO 创建注册窗口并挂载给定轮次。
// regEnd == regStart 合法，表示完全关闭自助注册（只留管理员批量注册）。
func (e *Engine) CreateMetaIDO(roundIDs []uint, regStart, regEnd time.Time) (uint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if regEnd.Before(regStart) {
		return 0, &ValidationError{Field: "registration_end", Detail: "must be >= registration_start"}
	}

	// 先整体校验再提交，避免挂载一半失败留下部分状态
	for _, roundID := range roundIDs {
		r, err := e.round(roundID)
		if err != nil {
			return 0, err
		}
		if err := e.checkAttachable(r, regStart); err != nil {
			return 0, err
		}
	}

	id := e.nextMetaID
	e.nextMetaID++

	m := newMetaIDO(id)
	m.RegistrationStart = regStart
	m.RegistrationEnd = regEnd
	m.InitialRegistrationEnd = regEnd
	e.metaIDOs[id] = m

	for _, roundID := range roundIDs {
		e.attachRound(m, e.rounds[roundID])
	}
	return id, nil
}

// ManageRound 挂载或摘除轮次；轮次与 MetaIDO 的归属关系双向唯一
func (e *Engine) ManageRound(metaID, roundID uint, add bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metaIDO(metaID)
	if err != nil {
		return err
	}
	r, err := e.round(roundID)
	if err != nil {
		return err
	}

	if add {
		if err := e.checkAttachable(r, m.RegistrationStart); err != nil {
			return err
		}
		e.attachRound(m, r)
		return nil
	}

	if r.Clock.ParentMetaIDO != metaID {
		return ErrRoundNotInMetaIDO
	}
	r.Clock.ParentMetaIDO = 0
	for i, id := range m.RoundIDs {
		if id == roundID {
			m.RoundIDs = append(m.RoundIDs[:i], m.RoundIDs[i+1:]...)
			break
		}
	}
	return nil
}

// checkAttachable 注册窗口必须在轮次开始前打开，且轮次尚无归属
func (e *Engine) checkAttachable(r *Round, regStart time.Time) error {
	if r.Clock.ParentMetaIDO != 0 {
		return ErrRoundHasParent
	}
	if !regStart.Before(r.Clock.StartTime) {
		return &ValidationError{
			Field:  "registration_start",
			Detail: "must be before the round start time",
		}
	}
	return nil
}

func (e *Engine) attachRound(m *MetaIDO, r *Round) {
	r.Clock.ParentMetaIDO = m.ID
	m.RoundIDs = append(m.RoundIDs, r.ID)
}

// RegisterSelf 自助注册：仅限窗口内，且窗口长度不为零。
// 注册时从 RankOracle 抓取快照；重复注册要求 rank 严格高于上次记录，
// 防止在更差的时点重注册洗低 rank。oracle 失败时整个注册中止。
func (e *Engine) RegisterSelf(metaID uint, account string) (uint, int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metaIDO(metaID)
	if err != nil {
		return 0, 0, err
	}

	now := e.now()
	if m.RegistrationStart.Equal(m.RegistrationEnd) {
		return 0, 0, &TimeWindowError{
			Op:       "register",
			Limit:    "self registration disabled",
			Detail:   "registration window has zero length",
			Sentinel: ErrRegistrationClosed,
		}
	}
	if now.Before(m.RegistrationStart) || now.After(m.RegistrationEnd) {
		return 0, 0, &TimeWindowError{
			Op:       "register",
			Limit:    m.RegistrationEnd.Format(time.RFC3339),
			Detail:   "outside registration window",
			Sentinel: ErrRegistrationClosed,
		}
	}

	rank, multiplierBps, err := e.rankAndMultiplier(account)
	if err != nil {
		return 0, 0, err
	}

	if m.Registered[account] && rank <= m.UserRank[account] {
		return 0, 0, ErrRankNotIncreased
	}

	m.Registered[account] = true
	m.UserRank[account] = rank
	m.UserMultiplier[account] = multiplierBps
	return rank, multiplierBps, nil
}

// AdminRegister 管理员批量注册：绕过时间窗口与单调 rank 约束，
// 已注册的账户直接跳过。先抓全部快照再提交，保持批量原子。
func (e *Engine) AdminRegister(metaID uint, accounts []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metaIDO(metaID)
	if err != nil {
		return err
	}

	type snapshot struct {
		account       string
		rank          uint
		multiplierBps int64
	}
	var pending []snapshot
	for _, account := range accounts {
		if m.Registered[account] {
			continue
		}
		rank, multiplierBps, err := e.rankAndMultiplier(account)
		if err != nil {
			return err
		}
		pending = append(pending, snapshot{account: account, rank: rank, multiplierBps: multiplierBps})
	}

	for _, s := range pending {
		m.Registered[s.account] = true
		m.UserRank[s.account] = s.rank
		m.UserMultiplier[s.account] = s.multiplierBps
	}
	return nil
}

// AdminDeregister 批量注销，未注册的账户是 no-op 而不是错误
func (e *Engine) AdminDeregister(metaID uint, accounts []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metaIDO(metaID)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if !m.Registered[account] {
			continue
		}
		delete(m.Registered, account)
		delete(m.UserRank, account)
		delete(m.UserMultiplier, account)
	}
	return nil
}

// DelayRegistrationEnd 注册截止时间只能后移，上限 initial + 14 天
func (e *Engine) DelayRegistrationEnd(metaID uint, newEnd time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metaIDO(metaID)
	if err != nil {
		return err
	}
	if !newEnd.After(m.RegistrationEnd) {
		return &ValidationError{Field: "registration_end", Detail: "may only move forward"}
	}
	if newEnd.After(m.InitialRegistrationEnd.Add(MaxTimeExtension)) {
		return &ValidationError{Field: "registration_end", Detail: "beyond initial registration end + 14 days"}
	}
	m.RegistrationEnd = newEnd
	return nil
}
