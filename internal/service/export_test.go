package service

import "time"

// 测试专用的时钟注入入口，只在测试编译中存在。

// SetClock 替换预留服务的时钟源。
func (s *ReservationService) SetClock(now func() time.Time) {
	s.now = now
}

// SetClock 替换协调器的时钟源。
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// SetClock 替换统计服务的时钟源。
func (s *StatsService) SetClock(now func() time.Time) {
	s.now = now
}
