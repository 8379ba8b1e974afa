package core

import (
	"sort"
	"strings"
)

const (
	SideEffectShipment     = "shipment"
	SideEffectNotification = "notification"
	SideEffectTracking     = "tracking"
)

type SideEffectStatus string

const (
	SideEffectStatusSucceeded SideEffectStatus = "succeeded"
	SideEffectStatusFailed    SideEffectStatus = "failed"
	// SideEffectStatusSkipped is a designed no-op, e.g. no phone to notify.
	SideEffectStatusSkipped SideEffectStatus = "skipped"
)

// SideEffectResult is the explicit outcome of one best-effort action.
type SideEffectResult struct {
	Name     string
	Status   SideEffectStatus
	Attempts int
	Value    string
	Reason   string
	Err      error
}

func SideEffectSucceeded(name string, attempts int, value string) SideEffectResult {
	return SideEffectResult{Name: name, Status: SideEffectStatusSucceeded, Attempts: attempts, Value: value}
}

func SideEffectSkipped(name string, reason string) SideEffectResult {
	return SideEffectResult{Name: name, Status: SideEffectStatusSkipped, Reason: strings.TrimSpace(reason)}
}

func SideEffectFailed(name string, attempts int, err error) SideEffectResult {
	result := SideEffectResult{Name: name, Status: SideEffectStatusFailed, Attempts: attempts, Err: err}
	if err != nil {
		result.Reason = err.Error()
	}
	return result
}

func (r SideEffectResult) Failed() bool {
	return r.Status == SideEffectStatusFailed
}

type SideEffectOutcome string

const (
	SideEffectsNone     SideEffectOutcome = "none"
	SideEffectsOK       SideEffectOutcome = "ok"
	SideEffectsPartial  SideEffectOutcome = "partial"
	SideEffectsDeferred SideEffectOutcome = "deferred"
)

// SideEffectSummary aggregates the results of the side effects run for one event.
type SideEffectSummary struct {
	Outcome SideEffectOutcome
	Results []SideEffectResult
}

func SummarizeSideEffects(results ...SideEffectResult) SideEffectSummary {
	if len(results) == 0 {
		return SideEffectSummary{Outcome: SideEffectsNone}
	}
	summary := SideEffectSummary{
		Outcome: SideEffectsOK,
		Results: append([]SideEffectResult(nil), results...),
	}
	for _, result := range results {
		if result.Failed() {
			summary.Outcome = SideEffectsPartial
			break
		}
	}
	sort.SliceStable(summary.Results, func(i, j int) bool {
		return summary.Results[i].Name < summary.Results[j].Name
	})
	return summary
}

func DeferredSideEffects() SideEffectSummary {
	return SideEffectSummary{Outcome: SideEffectsDeferred}
}

func (s SideEffectSummary) Result(name string) (SideEffectResult, bool) {
	for _, result := range s.Results {
		if result.Name == name {
			return result, true
		}
	}
	return SideEffectResult{}, false
}

// Statuses flattens the summary for logs and the event log.
func (s SideEffectSummary) Statuses() map[string]string {
	out := make(map[string]string, len(s.Results))
	for _, result := range s.Results {
		out[result.Name] = string(result.Status)
	}
	return out
}
