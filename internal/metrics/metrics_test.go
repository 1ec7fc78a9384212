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

	"echo-func/internal/echo"
	"echo-func/pkg/handler"
)

func TestCollector_TrackRequest(t *testing.T) {
	c := New()

	c.TrackRequest(handler.Invocation{Function: "HttpPostTrigger", Method: http.MethodPost, StatusCode: http.StatusOK, Duration: 5 * time.Millisecond})
	c.TrackRequest(handler.Invocation{Function: "HttpPostTrigger", Method: http.MethodPost, StatusCode: http.StatusOK, Duration: 7 * time.Millisecond})
	c.TrackRequest(handler.Invocation{Function: "HttpTrigger", Method: http.MethodGet, StatusCode: http.StatusUnauthorized, Duration: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.invocations.WithLabelValues("HttpPostTrigger", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.invocations.WithLabelValues("HttpTrigger", "GET", "401")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))
}

func TestCollector_ObserveContent(t *testing.T) {
	c := New()

	c.ObserveContent(echo.ContentParsed)
	c.ObserveContent(echo.ContentInvalid)
	c.ObserveContent(echo.ContentInvalid)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.content.WithLabelValues("parsed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.content.WithLabelValues("invalid")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.content.WithLabelValues("absent")))
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveContent(echo.ContentParsed)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `echo_func_request_content_total{status="parsed"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestCollector_Registry(t *testing.T) {
	c := New()
	c.TrackRequest(handler.Invocation{Function: "HttpTrigger", Method: http.MethodGet, StatusCode: http.StatusOK})
	c.ObserveContent(echo.ContentAbsent)

	count, err := testutil.GatherAndCount(c.Registry(),
		"echo_func_invocations_total",
		"echo_func_invocation_duration_seconds",
		"echo_func_request_content_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	expected := `
# HELP echo_func_invocations_total Function invocations by function, method and status code.
# TYPE echo_func_invocations_total counter
echo_func_invocations_total{code="200",function="HttpTrigger",method="GET"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "echo_func_invocations_total"))
}
