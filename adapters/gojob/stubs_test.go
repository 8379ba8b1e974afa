package gojob

import (
	"context"

	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/inbound"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	glog "github.com/goliatone/go-logger/glog"
)

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	deliveries []queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	if len(s.deliveries) == 0 {
		return nil, nil
	}
	next := s.deliveries[0]
	s.deliveries = s.deliveries[1:]
	return next, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nacked   bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nacked = true
	s.nackOpts = opts
	return nil
}

type stubExecutor struct {
	jobs  []inbound.SideEffectJob
	err   error
	onRun func()
}

func (s *stubExecutor) RunSideEffects(_ context.Context, sideEffects inbound.SideEffectJob) (core.SideEffectSummary, error) {
	s.jobs = append(s.jobs, sideEffects)
	if s.onRun != nil {
		s.onRun()
	}
	if s.err != nil {
		return core.SideEffectSummary{}, s.err
	}
	return core.SummarizeSideEffects(core.SideEffectSucceeded(core.SideEffectNotification, 1, "5551234")), nil
}

type capturingLogger struct {
	warns  int
	errors int
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Info(string, ...any)  {}
func (l *capturingLogger) Warn(string, ...any)  { l.warns++ }
func (l *capturingLogger) Error(string, ...any) { l.errors++ }
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) WithContext(context.Context) glog.Logger { return l }

var _ glog.Logger = (*capturingLogger)(nil)
