package service

import "time"

// Clock 抽象化時間來源，讓狀態判斷與背景清理可以在測試中被決定性地驅動
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock 回傳讀取系統時間的 Clock
func SystemClock() Clock {
	return systemClock{}
}
