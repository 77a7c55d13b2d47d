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

	tt "github.com/gnolang/revxslt/internal/types"
	"github.com/gnolang/revxslt/match"
)

func TestObserve(t *testing.T) {
	t.Parallel()

	m := New()
	m.Observe(tt.Record{Status: tt.StatusMatched, Bindings: match.Bindings{"a": match.Value("1")}, Duration: time.Millisecond})
	m.Observe(tt.Record{Status: tt.StatusMatched, Duration: time.Millisecond})
	m.Observe(tt.Record{Status: tt.StatusNoMatch, Duration: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.extractions.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractions.WithLabelValues("no-match")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.extractions.WithLabelValues("error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.Observe(tt.Record{Status: tt.StatusError})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `revxslt_extractions_total{status="error"} 1`))
}
