package service

import (
	"errors"
	"testing"
	"time"

	"debate_hub/internal/models"
)

func newTestSweeper(env *testEnv) *Sweeper {
	return NewSweeper(env.debates, env.hub, env.clock, time.Minute)
}

func TestSweeperEndsExpiredDebate(t *testing.T) {
	env := newTestEnv(t)
	hostID := env.addUser(t, "host", "en")
	userA := env.addUser(t, "alice", "es")

	// 限時 1 分鐘、立即開始
	debate := env.createDebate(t, hostID, CreateDebateInput{Title: "限時", Capacity: 4, TimeLimit: 1})
	if _, err := env.svc.JoinDebate(debate.ID, userA); err != nil {
		t.Fatalf("join: %v", err)
	}

	sweeper := newTestSweeper(env)

	// 時限未到，掃描不動作
	env.clock.Advance(30 * time.Second)
	sweeper.Tick()
	mid, _ := env.debates.FindByID(debate.ID)
	if mid.Status != models.StatusActive {
		t.Fatalf("status = %s before deadline, want active", mid.Status)
	}

	// 超過時限後的下一輪掃描必須結束辯論
	env.clock.Advance(31 * time.Second)
	sweeper.Tick()

	ended, _ := env.debates.FindByID(debate.ID)
	if ended.Status != models.StatusEnded {
		t.Fatalf("status = %s after deadline, want ended", ended.Status)
	}
	if ended.EndTime == nil {
		t.Fatal("end time should be set")
	}
	for _, p := range ended.Participants {
		if p.IsActive {
			t.Errorf("participant %d still active after sweep", p.UserID)
		}
	}
	if got := len(env.hub.eventsOfType(models.EventStatusUpdated)); got != 1 {
		t.Errorf("status-updated events = %d, want 1", got)
	}

	// 再掃一輪是無操作：狀態與事件數都不變
	endTime := *ended.EndTime
	env.clock.Advance(time.Minute)
	sweeper.Tick()

	again, _ := env.debates.FindByID(debate.ID)
	if !again.EndTime.Equal(endTime) {
		t.Errorf("end time changed on repeated sweep: %v -> %v", endTime, again.EndTime)
	}
	if got := len(env.hub.eventsOfType(models.EventStatusUpdated)); got != 1 {
		t.Errorf("status-updated events after repeat = %d, want 1", got)
	}
}

func TestSweeperPromotesScheduledDebate(t *testing.T) {
	env := newTestEnv(t)
	hostID := env.addUser(t, "host", "en")

	start := env.clock.Now().Add(10 * time.Minute)
	debate := env.createDebate(t, hostID, CreateDebateInput{Title: "預約", Capacity: 4, StartTime: &start})

	sweeper := newTestSweeper(env)

	sweeper.Tick()
	early, _ := env.debates.FindByID(debate.ID)
	if early.Status != models.StatusScheduled {
		t.Fatalf("status = %s before start, want scheduled", early.Status)
	}

	env.clock.Advance(10 * time.Minute)
	sweeper.Tick()

	promoted, _ := env.debates.FindByID(debate.ID)
	if promoted.Status != models.StatusActive {
		t.Fatalf("status = %s after start, want active", promoted.Status)
	}
	if got := len(env.hub.eventsOfType(models.EventStatusUpdated)); got != 1 {
		t.Errorf("status-updated events = %d, want 1", got)
	}
}

func TestSweeperContinuesAfterSingleFailure(t *testing.T) {
	env := newTestEnv(t)
	hostID := env.addUser(t, "host", "en")

	// 兩場都已逾時，第一場的提交被設定成失敗
	broken := env.createDebate(t, hostID, CreateDebateInput{Title: "壞掉", Capacity: 4, TimeLimit: 1})
	healthy := env.createDebate(t, hostID, CreateDebateInput{Title: "正常", Capacity: 4, TimeLimit: 1})
	env.debates.commitErrs[broken.ID] = errors.New("storage down")

	env.clock.Advance(2 * time.Minute)
	newTestSweeper(env).Tick()

	// 單場失敗不能中斷整輪掃描
	ended, _ := env.debates.FindByID(healthy.ID)
	if ended.Status != models.StatusEnded {
		t.Errorf("healthy debate status = %s, want ended", ended.Status)
	}

	// 失敗的那場下一輪重試
	delete(env.debates.commitErrs, broken.ID)
	newTestSweeper(env).Tick()
	retried, _ := env.debates.FindByID(broken.ID)
	if retried.Status != models.StatusEnded {
		t.Errorf("broken debate status after retry = %s, want ended", retried.Status)
	}
}

func TestSweeperRacesWithExplicitEnd(t *testing.T) {
	env := newTestEnv(t)
	hostID := env.addUser(t, "host", "en")

	debate := env.createDebate(t, hostID, CreateDebateInput{Title: "競態", Capacity: 4, TimeLimit: 1})
	env.clock.Advance(2 * time.Minute)

	// 主持人先明確結束，掃描隨後到達：轉換只能套用一次
	if _, err := env.svc.EndDebate(debate.ID, hostID); err != nil {
		t.Fatalf("explicit end: %v", err)
	}
	ended, _ := env.debates.FindByID(debate.ID)
	endTime := *ended.EndTime

	env.clock.Advance(time.Minute)
	newTestSweeper(env).Tick()

	after, _ := env.debates.FindByID(debate.ID)
	if !after.EndTime.Equal(endTime) {
		t.Errorf("sweep re-applied end: %v -> %v", endTime, after.EndTime)
	}
	if got := len(env.hub.eventsOfType(models.EventStatusUpdated)); got != 1 {
		t.Errorf("status-updated events = %d, want 1", got)
	}
}
