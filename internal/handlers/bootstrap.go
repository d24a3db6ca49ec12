package handlers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"idocontrol/internal/engine"
	"idocontrol/internal/models"
	dbconfig "idocontrol/pkg/config"
)

// Engine 是进程内唯一的权威记账状态；数据库只是它的写穿日志
var Engine *engine.Engine

// EventPublisher 把领域事件推到 ido_events 队列，worker 消费落库。
// 发布失败只记日志，不影响主流程。
var EventPublisher *dbconfig.Publisher

const EventQueue = "ido_events"

// InitEngine 构建引擎实例，api 进程启动时调用一次
func InitEngine(ledger engine.TokenLedger, oracle engine.BalanceOracle, treasury string) {
	Engine = engine.New(ledger, oracle, treasury)
}

// LoadEngineState 从日志表恢复全部轮次、MetaIDO 与等级表，
// 最后重建预留账本。必须在 InitEngine 之后、路由启动之前调用。
func LoadEngineState() error {
	var levelRows []models.RankLevelConfig
	if err := dbconfig.DB.Order("level ASC").Find(&levelRows).Error; err != nil {
		return err
	}
	levels := make([]engine.RankLevel, 0, len(levelRows))
	for _, row := range levelRows {
		levels = append(levels, engine.RankLevel{
			Level:         row.Level,
			Threshold:     row.Threshold,
			MultiplierBps: row.MultiplierBps,
		})
	}
	Engine.RestoreLevels(levels)

	var metaRows []models.MetaIdo
	if err := dbconfig.DB.Order("id ASC").Find(&metaRows).Error; err != nil {
		return err
	}
	for _, row := range metaRows {
		m := &engine.MetaIDO{
			ID:                     row.ID,
			RegistrationStart:      row.RegistrationStart,
			RegistrationEnd:        row.RegistrationEnd,
			InitialRegistrationEnd: row.InitialRegistrationEnd,
			Registered:             make(map[string]bool),
			UserRank:               make(map[string]uint),
			UserMultiplier:         make(map[string]int64),
		}
		var regs []models.MetaIdoRegistration
		if err := dbconfig.DB.Where("meta_ido_id = ?", row.ID).Find(&regs).Error; err != nil {
			return err
		}
		for _, reg := range regs {
			m.Registered[reg.Account] = true
			m.UserRank[reg.Account] = reg.Rank
			m.UserMultiplier[reg.Account] = reg.MultiplierBps
		}
		Engine.RestoreMetaIDO(m)
	}

	var roundRows []models.IdoRound
	if err := dbconfig.DB.Order("id ASC").Find(&roundRows).Error; err != nil {
		return err
	}
	for i := range roundRows {
		r, err := restoreRoundFromRow(&roundRows[i])
		if err != nil {
			return err
		}
		Engine.RestoreRound(r)
	}

	// 挂载关系从 ido_round.parent_meta_ido_id 反查回填
	for _, row := range roundRows {
		if row.ParentMetaIdoID != 0 {
			if err := relinkRound(row.ParentMetaIdoID, row.ID); err != nil {
				return err
			}
		}
	}

	Engine.RecomputeReservations()
	if err := persistReservations(); err != nil {
		return err
	}

	log.Infof("engine state restored: %d rounds, %d meta idos, %d rank levels",
		len(roundRows), len(metaRows), len(levelRows))
	return nil
}

// relinkRound 把恢复出来的轮次 id 补回父 MetaIDO 的 RoundIDs 列表
func relinkRound(metaID, roundID uint) error {
	view, err := Engine.MetaIDOSnapshot(metaID)
	if err != nil {
		return fmt.Errorf("round %d references missing meta ido %d: %w", roundID, metaID, err)
	}
	for _, id := range view.RoundIDs {
		if id == roundID {
			return nil
		}
	}
	return Engine.RelinkRound(metaID, roundID)
}

func restoreRoundFromRow(row *models.IdoRound) (*engine.Round, error) {
	r := &engine.Round{ID: row.ID}
	r.Clock = engine.RoundClock{
		StartTime:            row.StartTime,
		EndTime:              row.EndTime,
		ClaimableTime:        row.ClaimableTime,
		InitialEndTime:       row.InitialEndTime,
		InitialClaimableTime: row.InitialClaimableTime,
		ParentMetaIDO:        row.ParentMetaIdoID,
		IsFinalized:          row.IsFinalized,
		IsCanceled:           row.IsCanceled,
		IsEnabled:            row.IsEnabled,
		NoRegistration:       row.NoRegistration,
	}
	r.Config.IdoToken = row.IdoToken
	r.Config.IdoTokenDecimals = row.IdoTokenDecimals
	r.Config.BuyToken = row.BuyToken
	r.Config.FyToken = row.FyToken
	r.Config.Price = row.Price
	r.Config.Size = row.Size
	r.Config.TokensSold = row.TokensSold
	r.Config.TokensClaimed = row.TokensClaimed
	r.Config.FundingGoal = row.FundingGoal
	r.Config.FundedValue = row.FundedValue
	r.Config.FyTokenMaxBps = row.FyTokenMaxBps
	r.Spec = engine.RoundSpec{
		MinRank:                    row.MinRank,
		MaxRank:                    row.MaxRank,
		MaxAllocation:              row.MaxAllocation,
		MinAllocation:              row.MinAllocation,
		MaxAllocationMultiplierBps: row.MaxAllocationMultiplierBps,
		NoMultiplier:               row.NoMultiplier,
		NoRank:                     row.NoRank,
		Initialized:                row.SpecInitialized,
	}

	r.Config.FundedByToken = make(map[string]decimal.Decimal, len(row.FundedByToken))
	for token, raw := range row.FundedByToken {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("round %d: funded_by_token[%s] is not a string", row.ID, token)
		}
		amount, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("round %d: funded_by_token[%s]: %w", row.ID, token, err)
		}
		r.Config.FundedByToken[token] = amount
	}

	r.Config.Positions = make(map[string]*engine.Position)
	var positions []models.RoundPosition
	if err := dbconfig.DB.Where("round_id = ?", row.ID).Find(&positions).Error; err != nil {
		return nil, err
	}
	for _, p := range positions {
		r.Config.Positions[p.Account] = &engine.Position{
			Amount:          p.Amount,
			FyAmount:        p.FyAmount,
			TokenAllocation: p.TokenAllocation,
		}
	}

	var participants []models.RoundParticipant
	if err := dbconfig.DB.Where("round_id = ?", row.ID).Order("id ASC").Find(&participants).Error; err != nil {
		return nil, err
	}
	for _, p := range participants {
		r.Config.Participants = append(r.Config.Participants, p.Account)
	}
	return r, nil
}

// persistRound 把轮次快照写穿到 ido_round
func persistRound(view *engine.RoundView) error {
	funded := make(models.JSONB, len(view.FundedByToken))
	for token, amount := range view.FundedByToken {
		funded[token] = amount.String()
	}
	row := models.IdoRound{
		ID:                   view.ID,
		IdoToken:             view.IdoToken,
		IdoTokenDecimals:     view.IdoDecimals,
		BuyToken:             view.BuyToken,
		FyToken:              view.FyToken,
		Price:                view.Price,
		Size:                 view.Size,
		TokensSold:           view.TokensSold,
		TokensClaimed:        view.TokensClaimed,
		FundingGoal:          view.FundingGoal,
		FundedValue:          view.FundedValue,
		FyTokenMaxBps:        view.FyTokenMaxBps,
		FundedByToken:        funded,
		StartTime:            view.Clock.StartTime,
		EndTime:              view.Clock.EndTime,
		ClaimableTime:        view.Clock.ClaimableTime,
		InitialEndTime:       view.Clock.InitialEndTime,
		InitialClaimableTime: view.Clock.InitialClaimableTime,
		ParentMetaIdoID:      view.Clock.ParentMetaIDO,
		IsFinalized:          view.Clock.IsFinalized,
		IsCanceled:           view.Clock.IsCanceled,
		IsEnabled:            view.Clock.IsEnabled,
		NoRegistration:       view.Clock.NoRegistration,

		SpecInitialized:            view.Spec.Initialized,
		MinRank:                    view.Spec.MinRank,
		MaxRank:                    view.Spec.MaxRank,
		MaxAllocation:              view.Spec.MaxAllocation,
		MinAllocation:              view.Spec.MinAllocation,
		MaxAllocationMultiplierBps: view.Spec.MaxAllocationMultiplierBps,
		NoMultiplier:               view.Spec.NoMultiplier,
		NoRank:                     view.Spec.NoRank,
	}
	return dbconfig.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// persistRoundByID 取最新快照写穿，写失败只记日志（内存状态已是权威）
func persistRoundByID(roundID uint) {
	view, err := Engine.RoundSnapshot(roundID)
	if err != nil {
		log.Errorf("snapshot round %d for persistence failed: %v", roundID, err)
		return
	}
	if err := persistRound(view); err != nil {
		log.Errorf("persist round %d failed: %v", roundID, err)
	}
}

func persistPosition(roundID uint, account string, p *engine.Position) {
	row := models.RoundPosition{
		RoundID:         roundID,
		Account:         account,
		Amount:          p.Amount,
		FyAmount:        p.FyAmount,
		TokenAllocation: p.TokenAllocation,
	}
	err := dbconfig.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "fy_amount", "token_allocation", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		log.Errorf("persist position round=%d account=%s failed: %v", roundID, account, err)
	}
}

func deletePosition(roundID uint, account string) {
	err := dbconfig.DB.Where("round_id = ? AND account = ?", roundID, account).
		Delete(&models.RoundPosition{}).Error
	if err != nil {
		log.Errorf("delete position round=%d account=%s failed: %v", roundID, account, err)
	}
}

func persistParticipant(roundID uint, account string) {
	row := models.RoundParticipant{RoundID: roundID, Account: account}
	err := dbconfig.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		log.Errorf("persist participant round=%d account=%s failed: %v", roundID, account, err)
	}
}

// persistMetaIdoByID 取最新快照写穿 meta_ido 行
func persistMetaIdoByID(metaID uint) {
	view, err := Engine.MetaIDOSnapshot(metaID)
	if err != nil {
		log.Errorf("snapshot meta ido %d for persistence failed: %v", metaID, err)
		return
	}
	row := models.MetaIdo{
		ID:                     view.ID,
		RegistrationStart:      timeFromUnix(view.RegistrationStart),
		RegistrationEnd:        timeFromUnix(view.RegistrationEnd),
		InitialRegistrationEnd: timeFromUnix(view.InitialRegistrationEnd),
	}
	err = dbconfig.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		log.Errorf("persist meta ido %d failed: %v", metaID, err)
	}
}

func persistRegistration(metaID uint, account string, rank uint, multiplierBps int64, byAdmin bool) {
	row := models.MetaIdoRegistration{
		MetaIdoID:     metaID,
		Account:       account,
		Rank:          rank,
		MultiplierBps: multiplierBps,
		ByAdmin:       byAdmin,
	}
	err := dbconfig.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meta_ido_id"}, {Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"rank", "multiplier_bps", "by_admin", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		log.Errorf("persist registration meta=%d account=%s failed: %v", metaID, account, err)
	}
}

func deleteRegistrations(metaID uint, accounts []string) {
	if len(accounts) == 0 {
		return
	}
	err := dbconfig.DB.Where("meta_ido_id = ? AND account IN ?", metaID, accounts).
		Delete(&models.MetaIdoRegistration{}).Error
	if err != nil {
		log.Errorf("delete registrations meta=%d failed: %v", metaID, err)
	}
}

// persistLevels 整表替换等级配置
func persistLevels(levels []engine.RankLevel) {
	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.RankLevelConfig{}).Error; err != nil {
			return err
		}
		for _, level := range levels {
			row := models.RankLevelConfig{
				Level:         level.Level,
				Threshold:     level.Threshold,
				MultiplierBps: level.MultiplierBps,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("persist rank levels failed: %v", err)
	}
}

// persistReservations 把预留账本镜像到 token_reservation
func persistReservations() error {
	reserved := Engine.ReservedTokens()
	return dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.TokenReservation{}).Error; err != nil {
			return err
		}
		for token, amount := range reserved {
			row := models.TokenReservation{Token: token, Reserved: amount}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func syncReservations() {
	if err := persistReservations(); err != nil {
		log.Errorf("persist reservations failed: %v", err)
	}
}

func recordTransfer(roundID uint, account, token, direction, reason string, amount decimal.Decimal) {
	row := models.IdoFundTransferRecord{
		RoundID:   roundID,
		Account:   account,
		Token:     token,
		Direction: direction,
		Reason:    reason,
		Amount:    amount,
	}
	if err := dbconfig.DB.Create(&row).Error; err != nil {
		log.Errorf("record transfer round=%d account=%s failed: %v", roundID, account, err)
	}
}

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// publishEvent 尽力而为地发布领域事件
func publishEvent(eventType string, payload map[string]interface{}) {
	if EventPublisher == nil {
		return
	}
	message := map[string]interface{}{
		"event_type": eventType,
		"payload":    payload,
	}
	if err := EventPublisher.Publish(EventQueue, message); err != nil {
		log.Warnf("publish event %s failed: %v", eventType, err)
	}
}
