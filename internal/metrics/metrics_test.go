package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAdapterCall(t *testing.T) {
	before := testutil.ToFloat64(AdapterCalls.WithLabelValues("youtube", "timeout"))
	RecordAdapterCall("youtube", "timeout", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(AdapterCalls.WithLabelValues("youtube", "timeout")))
}

func TestRecordCache(t *testing.T) {
	before := testutil.ToFloat64(CacheLookups.WithLabelValues("shared"))
	RecordCache("shared")
	RecordCache("shared")
	assert.Equal(t, before+2, testutil.ToFloat64(CacheLookups.WithLabelValues("shared")))
}

func TestRecordSearch(t *testing.T) {
	before := testutil.ToFloat64(Searches.WithLabelValues("true"))
	RecordSearch(true, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(Searches.WithLabelValues("true")))
}
