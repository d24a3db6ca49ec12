package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"idocontrol/internal/engine"
	"idocontrol/internal/models"
)

// CustodyLedger 实现 engine.TokenLedger：
// 余额核验的入金/出金记账，整批出账跑在同一个数据库事务里，
// 任何一笔余额不足则整批回滚，不会出现部分转账。
type CustodyLedger struct {
	db *gorm.DB
}

func NewCustodyLedger(db *gorm.DB) *CustodyLedger {
	return &CustodyLedger{db: db}
}

// Deposit 把 amount 记入托管余额并留流水
func (l *CustodyLedger) Deposit(token, from string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit amount must be positive, got %s", amount)
	}

	return l.db.Transaction(func(tx *gorm.DB) error {
		var balance models.CustodyBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token = ?", token).First(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			balance = models.CustodyBalance{Token: token, Balance: decimal.Zero}
			if err := tx.Create(&balance).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		balance.Balance = balance.Balance.Add(amount)
		if err := tx.Save(&balance).Error; err != nil {
			return err
		}

		return tx.Create(&models.CustodyTransfer{
			Token:        token,
			Counterparty: from,
			Direction:    "in",
			Amount:       amount,
		}).Error
	})
}

// Payout 批量出账；先锁行核验全部余额，再统一扣减
func (l *CustodyLedger) Payout(payments ...engine.Payment) error {
	if len(payments) == 0 {
		return nil
	}

	return l.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range payments {
			if !p.Amount.IsPositive() {
				return fmt.Errorf("payout amount must be positive, got %s", p.Amount)
			}

			var balance models.CustodyBalance
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("token = ?", p.Token).First(&balance).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no custody balance for token %s", p.Token)
			} else if err != nil {
				return err
			}

			if balance.Balance.LessThan(p.Amount) {
				return fmt.Errorf("insufficient custody balance for %s: have %s, need %s",
					p.Token, balance.Balance, p.Amount)
			}

			balance.Balance = balance.Balance.Sub(p.Amount)
			if err := tx.Save(&balance).Error; err != nil {
				return err
			}

			if err := tx.Create(&models.CustodyTransfer{
				Token:        p.Token,
				Counterparty: p.To,
				Direction:    "out",
				Amount:       p.Amount,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Balance 读某代币的托管余额，没有记录视为 0
func (l *CustodyLedger) Balance(token string) (decimal.Decimal, error) {
	var balance models.CustodyBalance
	err := l.db.Where("token = ?", token).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Balance, nil
}
