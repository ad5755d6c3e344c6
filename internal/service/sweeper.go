package service

import (
	"context"
	"errors"
	"log"
	"time"

	"debate_hub/internal/models"
	"debate_hub/internal/repository"
)

// errNoTransition 表示掃描期間別的提交已經先完成了這個轉換，本輪不需動作
var errNoTransition = errors.New("no transition needed")

// Sweeper 是辯論生命週期的背景清理程序：
// 把到點的 scheduled 辯論轉為 active，把逾時的 active 辯論結束。
// 以 Clock 參數化，測試可以直接呼叫 Tick 決定性地驅動。
type Sweeper struct {
	debateRepo  repository.DebateRepository
	broadcaster Broadcaster
	clock       Clock
	interval    time.Duration
}

func NewSweeper(debateRepo repository.DebateRepository, broadcaster Broadcaster, clock Clock, interval time.Duration) *Sweeper {
	return &Sweeper{
		debateRepo:  debateRepo,
		broadcaster: broadcaster,
		clock:       clock,
		interval:    interval,
	}
}

// Run 以固定週期執行 Tick，直到 context 結束
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick 執行一輪掃描。可以重複呼叫：已經轉換過的辯論是無操作。
// 單場辯論的失敗只記錄，不影響同一輪其他辯論的處理。
func (s *Sweeper) Tick() {
	now := s.clock.Now()
	s.promoteScheduled(now)
	s.endExpired(now)
}

// promoteScheduled 把開始時間已到的 scheduled 辯論轉為 active
func (s *Sweeper) promoteScheduled(now time.Time) {
	debates, err := s.debateRepo.FindByStatus(models.StatusScheduled)
	if err != nil {
		log.Printf("sweep: list scheduled debates: %v", err)
		return
	}

	for i := range debates {
		id := debates[i].ID
		if !debates[i].HasStarted(now) {
			continue
		}

		committed, err := s.debateRepo.Commit(id, func(d *models.Debate) error {
			// 提交內重新檢查，與手動變更狀態的請求競態時保持冪等
			if d.Status != models.StatusScheduled || !d.HasStarted(now) {
				return errNoTransition
			}
			d.Status = models.StatusActive
			// 開始即已逾時的辯論直接結束
			if d.HasEnded(now) {
				d.End(now)
			}
			return nil
		})
		if errors.Is(err, errNoTransition) {
			continue
		}
		if err != nil {
			log.Printf("sweep: promote debate %d: %v", id, err)
			continue
		}

		s.broadcaster.BroadcastEvent(id, models.StatusUpdatedEvent(id, committed.Status, committed.EndTime))
	}
}

// endExpired 結束所有逾時仍在進行的辯論
func (s *Sweeper) endExpired(now time.Time) {
	debates, err := s.debateRepo.FindByStatus(models.StatusActive)
	if err != nil {
		log.Printf("sweep: list active debates: %v", err)
		return
	}

	for i := range debates {
		id := debates[i].ID
		if !debates[i].HasEnded(now) {
			continue
		}

		committed, err := s.debateRepo.Commit(id, func(d *models.Debate) error {
			// 已經被主持人或上一輪掃描結束的辯論是無操作，不會重複套用
			if d.Status == models.StatusEnded || !d.HasEnded(now) {
				return errNoTransition
			}
			d.End(now)
			return nil
		})
		if errors.Is(err, errNoTransition) {
			continue
		}
		if err != nil {
			log.Printf("sweep: end debate %d: %v", id, err)
			continue
		}

		s.broadcaster.BroadcastEvent(id, models.StatusUpdatedEvent(id, committed.Status, committed.EndTime))
	}
}
