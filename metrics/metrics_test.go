package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestRecordDeletion(t *testing.T) {
	scenarios := []struct {
		name    string
		kind    string
		outcome string
		times   int
	}{
		{name: "reply deleted", kind: "reply", outcome: "deleted", times: 2},
		{name: "post gone", kind: "post", outcome: "not_found", times: 1},
		{name: "thread forbidden", kind: "thread", outcome: "forbidden", times: 3},
	}
	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			before := testutil.ToFloat64(deletions.WithLabelValues(scenario.kind, scenario.outcome))
			for range scenario.times {
				RecordDeletion(scenario.kind, scenario.outcome)
			}
			after := testutil.ToFloat64(deletions.WithLabelValues(scenario.kind, scenario.outcome))
			assert.Equal(t, float64(scenario.times), after-before)
		})
	}
}

func TestCounters(t *testing.T) {
	created := testutil.ToFloat64(auctionsCreated)
	RecordAuctionCreated()
	assert.Equal(t, created+1, testutil.ToFloat64(auctionsCreated))

	tracked := testutil.ToFloat64(repliesTracked)
	RecordReplyTracked()
	assert.Equal(t, tracked+1, testutil.ToFloat64(repliesTracked))

	failed := testutil.ToFloat64(ingestFailures.WithLabelValues("thread"))
	RecordIngestFailure("thread")
	assert.Equal(t, failed+1, testutil.ToFloat64(ingestFailures.WithLabelValues("thread")))

	sweeps := testutil.ToFloat64(sweepErrors)
	RecordSweepError()
	assert.Equal(t, sweeps+1, testutil.ToFloat64(sweepErrors))

	RecordSweepDuration(0.25)
	assert.Equal(t, 1, testutil.CollectAndCount(sweepDuration))
}
