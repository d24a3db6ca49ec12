package business

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"idocontrol/internal/models"
	dbconfig "idocontrol/pkg/config"
)

// FundingStats 结构体用于统一返回轮次筹资数据
type FundingStats struct {
	RoundID          uint              `json:"round_id"`
	TokensSold       string            `json:"tokens_sold"`
	TokensClaimed    string            `json:"tokens_claimed"`
	FundedValue      string            `json:"funded_value"`
	FundingGoal      string            `json:"funding_goal"`
	GoalReached      bool              `json:"goal_reached"`
	Participants     int64             `json:"participants"`
	OpenPositions    int64             `json:"open_positions"`
	InflowByToken    map[string]string `json:"inflow_by_token"`
	OutflowByToken   map[string]string `json:"outflow_by_token"`
	NetFlowByToken   map[string]string `json:"net_flow_by_token"`
	SellThroughRatio string            `json:"sell_through_ratio"`
}

// sumTransfers 按方向聚合某轮次的资金流水，返回分币种合计
func sumTransfers(roundID uint, direction string) (map[string]decimal.Decimal, error) {
	var records []models.IdoFundTransferRecord
	if err := dbconfig.DB.Where("round_id = ? AND direction = ?", roundID, direction).
		Find(&records).Error; err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal)
	for _, record := range records {
		out[record.Token] = out[record.Token].Add(record.Amount)
	}
	return out, nil
}

// CalculateFundingStats 从日志表计算轮次筹资统计。
// worker 定时快照和管理端查询走的都是这条路径，不依赖 api 进程的内存状态。
func CalculateFundingStats(roundID uint) (*FundingStats, error) {
	var round models.IdoRound
	if err := dbconfig.DB.First(&round, roundID).Error; err != nil {
		return nil, err
	}

	var participants int64
	if err := dbconfig.DB.Model(&models.RoundParticipant{}).
		Where("round_id = ?", roundID).Count(&participants).Error; err != nil {
		return nil, err
	}

	var openPositions int64
	if err := dbconfig.DB.Model(&models.RoundPosition{}).
		Where("round_id = ?", roundID).Count(&openPositions).Error; err != nil {
		return nil, err
	}

	inflow, err := sumTransfers(roundID, "in")
	if err != nil {
		return nil, err
	}
	outflow, err := sumTransfers(roundID, "out")
	if err != nil {
		return nil, err
	}

	// 净流 = 入金 - 出金，按币种对账
	net := make(map[string]decimal.Decimal)
	for token, amount := range inflow {
		net[token] = amount
	}
	for token, amount := range outflow {
		net[token] = net[token].Sub(amount)
	}

	sellThrough := decimal.Zero
	if round.Size.IsPositive() {
		sellThrough = round.TokensSold.DivRound(round.Size, 4)
	}

	stats := &FundingStats{
		RoundID:          round.ID,
		TokensSold:       round.TokensSold.String(),
		TokensClaimed:    round.TokensClaimed.String(),
		FundedValue:      round.FundedValue.String(),
		FundingGoal:      round.FundingGoal.String(),
		GoalReached:      round.FundedValue.GreaterThanOrEqual(round.FundingGoal),
		Participants:     participants,
		OpenPositions:    openPositions,
		InflowByToken:    stringifyAmounts(inflow),
		OutflowByToken:   stringifyAmounts(outflow),
		NetFlowByToken:   stringifyAmounts(net),
		SellThroughRatio: sellThrough.String(),
	}
	return stats, nil
}

// CheckCustodyCoverage 校验某代币的托管余额覆盖全局预留。
// 返回 (余额, 预留, 是否覆盖)；审计任务发现缺口时告警。
func CheckCustodyCoverage(token string) (decimal.Decimal, decimal.Decimal, bool, error) {
	var balance models.CustodyBalance
	err := dbconfig.DB.Where("token = ?", token).First(&balance).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, decimal.Zero, false, err
	}

	var reservation models.TokenReservation
	err = dbconfig.DB.Where("token = ?", token).First(&reservation).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, decimal.Zero, false, err
	}

	covered := !reservation.Reserved.GreaterThan(balance.Balance)
	return balance.Balance, reservation.Reserved, covered, nil
}

func stringifyAmounts(amounts map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(amounts))
	for token, amount := range amounts {
		out[token] = amount.String()
	}
	return out
}
