package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveComputation(t *testing.T) {
	okBefore := testutil.ToFloat64(computationsTotal.WithLabelValues("ok"))
	noGoodBefore := testutil.ToFloat64(computationsTotal.WithLabelValues("no_good_pixels"))
	errBefore := testutil.ToFloat64(computationsTotal.WithLabelValues("error"))
	acceptedBefore := testutil.ToFloat64(samplesTotal.WithLabelValues("accepted"))

	ObserveComputation(Computation{Total: 10, Accepted: 8, Clipped: 7, Iterations: 2, Duration: time.Millisecond})
	ObserveComputation(Computation{Total: 4, NoGood: true})
	ObserveComputation(Computation{Total: 100, Accepted: 100, Err: errors.New("boom")})

	assert.Equal(t, okBefore+1, testutil.ToFloat64(computationsTotal.WithLabelValues("ok")))
	assert.Equal(t, noGoodBefore+1, testutil.ToFloat64(computationsTotal.WithLabelValues("no_good_pixels")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(computationsTotal.WithLabelValues("error")))
	// Failed computations do not count samples.
	assert.Equal(t, acceptedBefore+8, testutil.ToFloat64(samplesTotal.WithLabelValues("accepted")))
}

func TestObserveToolCall(t *testing.T) {
	before := testutil.ToFloat64(toolCallsTotal.WithLabelValues("image_statistics", "error"))
	ObserveToolCall("image_statistics", errors.New("bad path"))
	ObserveToolCall("image_statistics", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(toolCallsTotal.WithLabelValues("image_statistics", "error")))
}

func TestSetCacheEntries(t *testing.T) {
	SetCacheEntries(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(cacheEntries))
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ObserveToolCall("statistics_properties", nil)

	addr, err := Serve(ctx, "127.0.0.1:0", func(err error) { t.Errorf("serve error: %v", err) })
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "image_stats_tool_calls_total"))
}

func TestServe_BadAddress(t *testing.T) {
	_, err := Serve(context.Background(), "not-an-address", nil)
	assert.Error(t, err)
}
