// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.CollectAndCount(HTTPRequests)
	RecordHTTPRequest("GET", "/healthz", 200, 5*time.Millisecond)
	after := testutil.CollectAndCount(HTTPRequests)
	if after <= before {
		t.Errorf("expected new http_requests_total series, before=%d after=%d", before, after)
	}
}

func TestRecordInferenceOutcomes(t *testing.T) {
	for _, outcome := range []string{"success", "error", "degraded", "rejected"} {
		RecordInference(outcome, 100*time.Millisecond)
	}
	if got := testutil.CollectAndCount(InferenceCalls); got < 4 {
		t.Errorf("expected at least 4 inference outcome series, got %d", got)
	}
}

func TestCountersIncrement(t *testing.T) {
	base := testutil.ToFloat64(StaleSequenceSkips)
	StaleSequenceSkips.Inc()
	StaleSequenceSkips.Inc()
	if got := testutil.ToFloat64(StaleSequenceSkips); got != base+2 {
		t.Errorf("stale sequence skips = %v, want %v", got, base+2)
	}

	PatternsDetected.WithLabelValues("scoring_run").Inc()
	if got := testutil.ToFloat64(PatternsDetected.WithLabelValues("scoring_run")); got < 1 {
		t.Errorf("patterns detected = %v, want >= 1", got)
	}
}

func TestGauges(t *testing.T) {
	ConnectionsActive.Set(3)
	if got := testutil.ToFloat64(ConnectionsActive); got != 3 {
		t.Errorf("connections active = %v, want 3", got)
	}
	ConnectionsActive.Dec()
	if got := testutil.ToFloat64(ConnectionsActive); got != 2 {
		t.Errorf("connections active = %v, want 2", got)
	}
}
