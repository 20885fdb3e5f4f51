package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rajasatyajit/DisasterWatch/config"
)

type countingRunner struct {
	ingests atomic.Int32
	sweeps  atomic.Int32
}

func (r *countingRunner) Ingest(ctx context.Context) error {
	r.ingests.Add(1)
	return nil
}

func (r *countingRunner) Sweep(ctx context.Context) error {
	r.sweeps.Add(1)
	return nil
}

func TestStart_RejectsInvalidSpec(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SchedulerConfig
	}{
		{
			name: "bad ingest spec",
			cfg:  config.SchedulerConfig{IngestSpec: "not a spec", SweepSpec: "0 * * * *"},
		},
		{
			name: "bad sweep spec",
			cfg:  config.SchedulerConfig{IngestSpec: "*/30 * * * *", SweepSpec: "whenever"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.cfg, &countingRunner{})
			if err := s.Start(context.Background()); err == nil {
				s.Stop()
				t.Fatal("expected error for invalid cron spec")
			}
		})
	}
}

func TestStart_RunsStartupIngestionAfterDelay(t *testing.T) {
	runner := &countingRunner{}
	s := New(config.SchedulerConfig{
		IngestSpec:   "*/30 * * * *",
		SweepSpec:    "0 * * * *",
		StartupDelay: 10 * time.Millisecond,
	}, runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for runner.ingests.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("startup ingestion did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStart_CancelledContextSkipsStartupRun(t *testing.T) {
	runner := &countingRunner{}
	s := New(config.SchedulerConfig{
		IngestSpec:   "*/30 * * * *",
		SweepSpec:    "0 * * * *",
		StartupDelay: 50 * time.Millisecond,
	}, runner)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()
	s.Stop()

	time.Sleep(100 * time.Millisecond)
	if got := runner.ingests.Load(); got != 0 {
		t.Errorf("ingests after cancel = %d, want 0", got)
	}
}
