// Package agent orchestrates the generative-text calls behind the coaching
// endpoints: daily agenda recommendations, coach chat replies, habit plans
// and the aggregated advisor.
//
// Every agent follows the same contract: build a structured payload, send it
// with a fixed system instruction to the completion capability, parse the
// returned text strictly as JSON, and substitute a deterministic local
// fallback on any failure. Mock mode bypasses the external call entirely so
// the system is fully testable without network access.
package agent

import "time"

// Version markers distinguishing degraded responses from real model output.
const (
	// MockModelVersion tags deterministic mock-mode content.
	MockModelVersion = "mock-2024.11"
	// FallbackModelVersion tags local heuristic content substituted after a
	// call or parse failure.
	FallbackModelVersion = "fallback-heuristic"
)

// clock is overridable in tests so mock plans stay deterministic.
type clock func() time.Time
