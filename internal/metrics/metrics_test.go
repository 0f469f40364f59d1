package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("test")

	m.ObserveAction("feed", time.Now())
	m.ObserveAction("feed", time.Now())
	m.RecordAward("quiz_completed", false)
	m.RecordAward("quiz_completed", true)
	m.RecordAward("quiz_completed", true)
	m.RecordGift("cookie")
	m.RecordEvolution("hatchling")
	m.RecordError("gift", 2100)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.actions.WithLabelValues("feed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.awards.WithLabelValues("quiz_completed", AwardGranted)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.awards.WithLabelValues("quiz_completed", AwardDuplicate)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.gifts.WithLabelValues("cookie")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.evolutions.WithLabelValues("hatchling")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("gift", "2100")))
}

// nil指标对象可安全调用
func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAction("feed", time.Now())
		m.RecordAward("x", false)
		m.RecordGift("cookie")
		m.RecordEvolution("adult")
		m.RecordError("feed", 1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New("")
	m.RecordGift("cake")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `dragon_gifts_total{item_id="cake"} 1`))
}
