package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yeisme/codespace/pkg/scheduler"
)

const never = "0 0 1 1 *"

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

func waitFor(t *testing.T, s *scheduler.Scheduler, name string, cond func(scheduler.JobInfo) bool) scheduler.JobInfo {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		info, err := s.GetJobInfoByName(name)
		if err != nil {
			t.Fatalf("job info: %v", err)
		}

		if cond(info) {
			return info
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("job %s did not reach the expected state", name)

	return scheduler.JobInfo{}
}

func TestAddCron(t *testing.T) {
	s := newScheduler(t)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	if err := s.AddCron(ctx, "b", never, noop); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.AddCron(ctx, "a", never, noop); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.AddCron(ctx, "a", never, noop); err == nil {
		t.Fatalf("duplicate name accepted")
	}

	if err := s.AddCron(ctx, "bad", "not a cron", noop); err == nil {
		t.Fatalf("invalid cron accepted")
	}

	infos := s.GetJobInfos()
	if len(infos) != 2 || infos[0].Name != "a" || infos[1].Name != "b" {
		t.Fatalf("infos = %+v", infos)
	}

	if infos[0].NextRun.IsZero() || infos[0].Status != scheduler.StatusScheduled {
		t.Fatalf("unexpected info %+v", infos[0])
	}
}

func TestRunNowRecordsResult(t *testing.T) {
	s := newScheduler(t)
	ctx := context.Background()

	fail := true
	done := make(chan struct{}, 4)

	if err := s.AddCron(ctx, "flaky", never, func(context.Context) error {
		defer func() { done <- struct{}{} }()

		if fail {
			return errors.New("boom")
		}

		return nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.RunNow("flaky"); err != nil {
		t.Fatalf("run now: %v", err)
	}

	<-done

	info := waitFor(t, s, "flaky", func(i scheduler.JobInfo) bool { return i.Runs == 1 })
	if info.Status != scheduler.StatusError || info.Error != "boom" || info.Failures != 1 {
		t.Fatalf("failed run = %+v", info)
	}

	fail = false

	if err := s.RunNow("flaky"); err != nil {
		t.Fatalf("run now: %v", err)
	}

	<-done

	info = waitFor(t, s, "flaky", func(i scheduler.JobInfo) bool { return i.Runs == 2 })
	if info.Status != scheduler.StatusScheduled || info.Error != "" || info.LastSuccess.IsZero() {
		t.Fatalf("successful run = %+v", info)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	s := newScheduler(t)

	if err := s.AddCron(context.Background(), "panics", never, func(context.Context) error {
		panic("oops")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.RunNow("panics"); err != nil {
		t.Fatalf("run now: %v", err)
	}

	info := waitFor(t, s, "panics", func(i scheduler.JobInfo) bool { return i.Runs == 1 })
	if info.Status != scheduler.StatusError || info.Failures != 1 {
		t.Fatalf("panic run = %+v", info)
	}
}

func TestRemoveJob(t *testing.T) {
	s := newScheduler(t)

	if err := s.AddCron(context.Background(), "gone", never, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("add: %v", err)
	}

	info, _ := s.GetJobInfoByName("gone")

	id, err := uuid.Parse(info.ID)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}

	if err := s.RemoveJob(id); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := s.RemoveJob(id); !errors.Is(err, scheduler.ErrJobNotFound) {
		t.Fatalf("second remove = %v", err)
	}

	if err := s.RunNow("gone"); !errors.Is(err, scheduler.ErrJobNotFound) {
		t.Fatalf("run removed job = %v", err)
	}
}
