package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_resagg_new")

	assert.NotNil(t, m.JobsStarted)
	assert.NotNil(t, m.JobsCompleted)
	assert.NotNil(t, m.JobsFailed)
	assert.NotNil(t, m.JobDuration)
	assert.NotNil(t, m.SearchesStarted)
	assert.NotNil(t, m.SearchesCompleted)
	assert.NotNil(t, m.SearchesFailed)
	assert.NotNil(t, m.SearchDuration)
	assert.NotNil(t, m.RecordsPerSearch)
	assert.NotNil(t, m.SourceRateLimited)
	assert.NotNil(t, m.PapersDiscovered)
	assert.NotNil(t, m.PapersDuplicate)
	assert.NotNil(t, m.ExportsTotal)
	assert.NotNil(t, m.EventsPublished)
	assert.NotNil(t, m.EventsFailed)
}

func TestRecordJobStarted(t *testing.T) {
	m := NewMetrics("test_resagg_job_started")

	initial := testutil.ToFloat64(m.JobsStarted)
	m.RecordJobStarted()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.JobsStarted))
}

func TestRecordJobCompleted(t *testing.T) {
	m := NewMetrics("test_resagg_job_completed")

	m.RecordJobCompleted(12.5)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsCompleted))

	histCount, err := getHistogramSampleCount(m.JobDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordJobFailed(t *testing.T) {
	m := NewMetrics("test_resagg_job_failed")

	m.RecordJobFailed(3.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsFailed))
}

func TestRecordSearchOutcomes(t *testing.T) {
	m := NewMetrics("test_resagg_search")

	m.RecordSearchStarted("arxiv")
	m.RecordSearchCompleted("arxiv", 1.2, 40)
	m.RecordSearchFailed("pubmed", "timeout", 30.0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesStarted.WithLabelValues("arxiv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesCompleted.WithLabelValues("arxiv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesFailed.WithLabelValues("pubmed", "timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SearchesFailed.WithLabelValues("pubmed", "rate_limited")))
}

func TestRecordSourceRateLimited(t *testing.T) {
	m := NewMetrics("test_resagg_rate_limited")

	m.RecordSourceRateLimited("crossref")
	m.RecordSourceRateLimited("crossref")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("crossref")))
}

func TestRecordPapers(t *testing.T) {
	m := NewMetrics("test_resagg_papers")

	m.RecordPapers(42, 9)
	assert.Equal(t, 42.0, testutil.ToFloat64(m.PapersDiscovered))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.PapersDuplicate))
}

func TestRecordExport(t *testing.T) {
	m := NewMetrics("test_resagg_export")

	m.RecordExport("csv")
	m.RecordExport("bibtex")
	m.RecordExport("csv")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExportsTotal.WithLabelValues("csv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportsTotal.WithLabelValues("bibtex")))
}

func TestRecordEvents(t *testing.T) {
	m := NewMetrics("test_resagg_events")

	m.RecordEventPublished()
	m.RecordEventFailed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsFailed))
}

// getHistogramSampleCount extracts the sample count from a histogram by
// collecting it into a client_model metric.
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var metric = &dto.Metric{}
	if err := m.Write(metric); err != nil {
		return 0, err
	}

	return metric.Histogram.GetSampleCount(), nil
}
