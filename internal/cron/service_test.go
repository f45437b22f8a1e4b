package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/metrics"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	run  func(context.Context) error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	if t.run == nil {
		return nil
	}
	return t.run(ctx)
}

func failWith(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	r, err := NewRegistry(jobs...)
	require.NoError(t, err)
	return r
}

func failureLabels(t *testing.T, reg *prometheus.Registry) []string {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	var labels []string
	for _, mf := range mfs {
		if mf.GetName() != "storefront_cron_job_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			values := map[string]string{}
			for _, label := range m.GetLabel() {
				values[label.GetName()] = label.GetValue()
			}
			if values["result"] == "failure" {
				labels = append(labels, values["job"])
			}
		}
	}
	return labels
}

func TestRunOnceRunsAllJobsAndCombinesFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	ok := &testJob{name: "success"}
	failing := &testJob{name: "fail", run: failWith(errors.New("boom"))}
	after := &testJob{name: "after"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: mustRegistry(t, ok, failing, after),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	err = service.RunOnce(context.Background())
	require.ErrorContains(t, err, "fail: boom")
	assert.Len(t, multierr.Errors(err), 1)
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, after.runs)
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
	assert.Equal(t, []string{"fail"}, failureLabels(t, reg))
}

func TestRunOnceRecoversJobPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	after := &testJob{name: "after"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger: logger.Nop(),
		Registry: mustRegistry(t,
			&testJob{name: "explodes", run: func(context.Context) error { panic("nil repo") }},
			after,
		),
		Lock:    lock,
		Metrics: metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	err = service.RunOnce(context.Background())
	require.ErrorContains(t, err, "explodes: panic: nil repo")
	assert.Equal(t, 1, after.runs)
	assert.Equal(t, 1, lock.releases)
	assert.Equal(t, []string{"explodes"}, failureLabels(t, reg))
}

func TestRunOnceBoundsJobDuration(t *testing.T) {
	slow := &testJob{name: "slow", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	service, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   mustRegistry(t, slow),
		Lock:       &fakeLock{},
		JobTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	err = service.RunOnce(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "order-ttl"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{held: true},
	})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "order-ttl"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{},
	})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, service.interval)
	assert.Equal(t, defaultJobTimeout, service.jobTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = service.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, job.runs)
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	require.Error(t, err)
}
