package cron_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/fitagent/internal/cron"
	"github.com/flemzord/fitagent/internal/cron/crontest"
)

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	if err := s.RegisterJob(&crontest.MockJob{NameVal: "test", ScheduleVal: "* * * * *"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := s.RegisterJob(&crontest.MockJob{NameVal: "test", ScheduleVal: "* * * * *"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestScheduler_RegisterJob_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(nil)
	if err := s.RegisterJob(&crontest.MockJob{NameVal: "bad", ScheduleVal: "invalid"}); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if len(s.Jobs()) != 0 {
		t.Errorf("invalid job registered: %v", s.Jobs())
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(&crontest.MockJob{NameVal: "noop", ScheduleVal: "* * * * *"})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	if err := cron.NewScheduler(nil).Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(nil)
	job := &crontest.MockJob{NameVal: "prune", ScheduleVal: "0 3 * * *"}
	_ = s.RegisterJob(job)

	if err := s.RunNow(context.Background(), "prune"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if job.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", job.CallCount())
	}
	if err := s.RunNow(context.Background(), "missing"); !errors.Is(err, cron.ErrUnknownJob) {
		t.Errorf("err = %v, want ErrUnknownJob", err)
	}
}

func TestScheduler_RunNow_Busy(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	s := cron.NewScheduler(nil)
	_ = s.RegisterJob(&crontest.MockJob{
		NameVal:     "slow",
		ScheduleVal: "* * * * *",
		RunFunc: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started

	if err := s.RunNow(context.Background(), "slow"); !errors.Is(err, cron.ErrJobBusy) {
		t.Errorf("err = %v, want ErrJobBusy", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("first RunNow: %v", err)
	}
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()

	for expr, ok := range map[string]bool{
		"*/5 * * * *": true,
		"0 3 * * *":   true,
		"60 * * * *":  false,
		"":            false,
		"* * * * * *": false,
	} {
		err := cron.ValidateSchedule(expr)
		if (err == nil) != ok {
			t.Errorf("ValidateSchedule(%q) = %v", expr, err)
		}
	}
}

func TestScheduler_Jobs(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(nil)
	for _, n := range []string{"b", "a"} {
		_ = s.RegisterJob(&crontest.MockJob{NameVal: n, ScheduleVal: "* * * * *"})
	}
	if got := strings.Join(s.Jobs(), ","); got != "b,a" {
		t.Errorf("Jobs = %s", got)
	}
}

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func TestHistoryPruneJob(t *testing.T) {
	t.Parallel()

	p := &crontest.MockPruner{PruneFunc: func(context.Context, time.Time) (int64, error) { return 3, nil }}
	j := &cron.HistoryPruneJob{Store: p, Retention: 24 * time.Hour, Now: func() time.Time { return fixedNow }}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(p.Cutoffs) != 1 || !p.Cutoffs[0].Equal(fixedNow.Add(-24*time.Hour)) {
		t.Errorf("cutoffs = %v", p.Cutoffs)
	}
	if j.Schedule() != "0 3 * * *" {
		t.Errorf("default schedule = %q", j.Schedule())
	}
}

func TestHistoryPruneJob_DisabledAndFailing(t *testing.T) {
	t.Parallel()

	p := &crontest.MockPruner{}
	if err := (&cron.HistoryPruneJob{Store: p}).Run(context.Background()); err != nil || len(p.Cutoffs) != 0 {
		t.Errorf("zero retention should be a no-op: err=%v cutoffs=%v", err, p.Cutoffs)
	}

	failing := &crontest.MockPruner{PruneFunc: func(context.Context, time.Time) (int64, error) {
		return 0, errors.New("locked")
	}}
	if err := (&cron.HistoryPruneJob{Store: failing, Retention: time.Hour}).Run(context.Background()); err == nil {
		t.Error("expected prune error")
	}
}
