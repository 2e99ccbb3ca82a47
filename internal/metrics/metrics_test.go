package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/runs", "202", 0.012)

	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/runs", "202"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordRunLifecycle(t *testing.T) {
	RunsTotal.Reset()
	RunsInProgress.Set(0)

	RecordRunStarted()
	RecordRunStarted()
	if got := testutil.ToFloat64(RunsInProgress); got != 2.0 {
		t.Errorf("Expected 2 runs in progress, got %f", got)
	}

	RecordRunFinished("completed", "", 42)
	RecordRunFinished("failed", "ai_exhausted", 3)

	if got := testutil.ToFloat64(RunsInProgress); got != 0.0 {
		t.Errorf("Expected 0 runs in progress, got %f", got)
	}
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues("completed", "")); got != 1.0 {
		t.Errorf("Expected 1 completed run, got %f", got)
	}
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues("failed", "ai_exhausted")); got != 1.0 {
		t.Errorf("Expected 1 failed run, got %f", got)
	}
}

func TestRecordAIAttempt(t *testing.T) {
	AIAttemptsTotal.Reset()

	RecordAIAttempt("openai", "recoverable")
	RecordAIAttempt("groq", "success")
	RecordAIAttempt("openai", "recoverable")

	if got := testutil.ToFloat64(AIAttemptsTotal.WithLabelValues("openai", "recoverable")); got != 2.0 {
		t.Errorf("Expected 2 recoverable openai attempts, got %f", got)
	}
	if got := testutil.ToFloat64(AIAttemptsTotal.WithLabelValues("groq", "success")); got != 1.0 {
		t.Errorf("Expected 1 successful groq attempt, got %f", got)
	}
}

func TestRecordBackgroundLookup(t *testing.T) {
	BackgroundLookupsTotal.Reset()
	BackgroundEvictionsTotal.Reset()

	RecordBackgroundLookup("hit")
	RecordBackgroundLookup("miss")
	RecordBackgroundLookup("hit")
	RecordBackgroundEviction("ttl")
	SetBackgroundCacheEntries(7)

	if got := testutil.ToFloat64(BackgroundLookupsTotal.WithLabelValues("hit")); got != 2.0 {
		t.Errorf("Expected 2 hits, got %f", got)
	}
	if got := testutil.ToFloat64(BackgroundEvictionsTotal.WithLabelValues("ttl")); got != 1.0 {
		t.Errorf("Expected 1 ttl eviction, got %f", got)
	}
	if got := testutil.ToFloat64(BackgroundCacheEntries); got != 7.0 {
		t.Errorf("Expected 7 cache entries, got %f", got)
	}
}

func TestRecordAssembly(t *testing.T) {
	AssembliesTotal.Reset()
	AssemblyFallbacksTotal.Reset()

	RecordAssemblyFallback("background")
	RecordAssembly("gradient", 12.5)

	if got := testutil.ToFloat64(AssemblyFallbacksTotal.WithLabelValues("background")); got != 1.0 {
		t.Errorf("Expected 1 fallback, got %f", got)
	}
	if got := testutil.ToFloat64(AssembliesTotal.WithLabelValues("gradient")); got != 1.0 {
		t.Errorf("Expected 1 gradient assembly, got %f", got)
	}
}

func TestRecordDatabaseOperation(t *testing.T) {
	DatabaseOperationsTotal.Reset()

	RecordDatabaseOperation("save_record", "error", 0.01)

	if got := testutil.ToFloat64(DatabaseOperationsTotal.WithLabelValues("save_record", "error")); got != 1.0 {
		t.Errorf("Expected 1 failed save, got %f", got)
	}
}

func TestSetQueueDepth(t *testing.T) {
	QueueDepth.Reset()

	SetQueueDepth("shortforge.runs", 7)
	SetQueueDepth("shortforge.runs.dlq", 1)
	SetQueueDepth("shortforge.runs", 3)

	if got := testutil.ToFloat64(QueueDepth.WithLabelValues("shortforge.runs")); got != 3.0 {
		t.Errorf("Expected queue depth 3, got %f", got)
	}
	if got := testutil.ToFloat64(QueueDepth.WithLabelValues("shortforge.runs.dlq")); got != 1.0 {
		t.Errorf("Expected dead letter depth 1, got %f", got)
	}
}
