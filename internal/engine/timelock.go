package engine

import "time"

// PendingChange 是一个带最小延迟闸门的待执行变更。
// propose 时记录解锁时间，execute 时重新对照当前时间检查；
// 没有后台调度，到期与否完全由每次调用自己判断。
type PendingChange[T any] struct {
	Value      T
	UnlockTime time.Time
}

func newPendingChange[T any](value T, unlock time.Time) *PendingChange[T] {
	return &PendingChange[T]{Value: value, UnlockTime: unlock}
}

// Ready 判断延迟是否已过
func (p *PendingChange[T]) Ready(now time.Time) bool {
	return !now.Before(p.UnlockTime)
}
