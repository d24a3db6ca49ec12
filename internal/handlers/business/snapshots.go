package business

import (
	logger "github.com/sirupsen/logrus"

	"idocontrol/internal/models"
	dbconfig "idocontrol/pkg/config"
)

// SnapshotRoundFunding 为所有未取消轮次各写一条筹资快照
func SnapshotRoundFunding() error {
	var rounds []models.IdoRound
	if err := dbconfig.DB.Find(&rounds).Error; err != nil {
		return err
	}

	for _, round := range rounds {
		if round.IsCanceled {
			continue
		}

		stats, err := CalculateFundingStats(round.ID)
		if err != nil {
			logger.Errorf("calculate funding stats for round %d failed: %v", round.ID, err)
			continue
		}

		raised := make(models.JSONB, len(stats.NetFlowByToken))
		for token, amount := range stats.NetFlowByToken {
			raised[token] = amount
		}

		record := models.RoundSettleRecord{
			RoundID:       round.ID,
			TokensSold:    round.TokensSold,
			TokensClaimed: round.TokensClaimed,
			FundedValue:   round.FundedValue,
			Participants:  int(stats.Participants),
			RaisedByToken: raised,
		}
		if err := dbconfig.DB.Create(&record).Error; err != nil {
			logger.Errorf("create settle record for round %d failed: %v", round.ID, err)
		}
	}
	return nil
}

// AuditReservationCoverage 逐币种核对托管余额覆盖全局预留，缺口打错误日志
func AuditReservationCoverage() error {
	var reservations []models.TokenReservation
	if err := dbconfig.DB.Find(&reservations).Error; err != nil {
		return err
	}

	for _, reservation := range reservations {
		balance, reserved, covered, err := CheckCustodyCoverage(reservation.Token)
		if err != nil {
			logger.Errorf("check custody coverage for %s failed: %v", reservation.Token, err)
			continue
		}
		if !covered {
			// 缺口说明账本和托管余额脱节，需要人工介入
			logger.Errorf("reservation gap for %s: balance %s < reserved %s",
				reservation.Token, balance.String(), reserved.String())
		}
	}
	return nil
}
