package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
)

func decodeWriteRequest(t *testing.T, body []byte) *prompb.WriteRequest {
	t.Helper()
	raw, err := snappy.Decode(nil, body)
	require.NoError(t, err)
	var req prompb.WriteRequest
	require.NoError(t, proto.Unmarshal(raw, protoadapt.MessageV2Of(&req)))
	return &req
}

func findSample(req *prompb.WriteRequest, name string, labels map[string]string) *prompb.Sample {
	for _, series := range req.Timeseries {
		got := map[string]string{}
		for _, label := range series.Labels {
			got[label.Name] = label.Value
		}
		if got["__name__"] != name {
			continue
		}
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match && len(series.Samples) == 1 {
			return &series.Samples[0]
		}
	}
	return nil
}

func TestRemoteWritePusherSendsSeries(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newMetrics(registry)
	rec := &recorder{metrics: m}
	rec.RecordQuoteCreated("42", "manual")
	rec.RecordQuoteCreated("42", "manual")
	rec.RecordQuoteAccepted("42", "package")
	m.quotesByStatus.WithLabelValues("draft").Set(3)

	var (
		gotHeaders http.Header
		gotBody    []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewRemoteWritePusher(srv.URL, "secret")
	require.NoError(t, p.Push(context.Background(), registry))

	assert.Equal(t, "snappy", gotHeaders.Get("Content-Encoding"))
	assert.Equal(t, "application/x-protobuf", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "0.1.0", gotHeaders.Get("X-Prometheus-Remote-Write-Version"))
	assert.Equal(t, "Bearer secret", gotHeaders.Get("Authorization"))

	req := decodeWriteRequest(t, gotBody)

	created := findSample(req, "offert_quotes_created_total", map[string]string{"company": "42", "source": "manual"})
	require.NotNil(t, created)
	assert.Equal(t, float64(2), created.Value)

	accepted := findSample(req, "offert_quotes_accepted_total", map[string]string{"company": "42", "via": "package"})
	require.NotNil(t, accepted)
	assert.Equal(t, float64(1), accepted.Value)

	byStatus := findSample(req, "offert_quotes_by_status", map[string]string{"status": "draft"})
	require.NotNil(t, byStatus)
	assert.Equal(t, float64(3), byStatus.Value)
}

func TestRemoteWritePusherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	registry := prometheus.NewRegistry()
	m := newMetrics(registry)
	(&recorder{metrics: m}).RecordQuoteSent("7")

	p := NewRemoteWritePusher(srv.URL, "")
	err := p.Push(context.Background(), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestRemoteWritePusherSkipsEmptyRegistry(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	p := NewRemoteWritePusher(srv.URL, "")
	require.NoError(t, p.Push(context.Background(), prometheus.NewRegistry()))
	assert.False(t, hit, "empty registry must not produce a request")
}

func TestBuildSeriesSkipsHistograms(t *testing.T) {
	registry := prometheus.NewRegistry()
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_latency_seconds"})
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_events_total"})
	registry.MustRegister(hist, counter)
	hist.Observe(0.2)
	counter.Inc()

	families, err := registry.Gather()
	require.NoError(t, err)

	series := buildRemoteWriteSeries(families, 1000)
	require.Len(t, series, 1)
	assert.Equal(t, "__name__", series[0].Labels[0].Name)
	assert.Equal(t, "test_events_total", series[0].Labels[0].Value)
	assert.Equal(t, float64(1), series[0].Samples[0].Value)
	assert.Equal(t, int64(1000), series[0].Samples[0].Timestamp)
}

func TestNewPusherConfig(t *testing.T) {
	log := zap.NewNop()

	assert.Nil(t, NewPusher(config.Config{}, log))

	assert.Nil(t, NewPusher(config.Config{
		MetricsPushExporter: "prometheus_remote_write",
	}, log), "missing endpoint disables push")

	assert.Nil(t, NewPusher(config.Config{
		MetricsPushExporter: "prometheus_remote_write",
		MetricsPushEndpoint: "not a url",
	}, log))

	assert.Nil(t, NewPusher(config.Config{
		MetricsPushExporter: "statsd",
		MetricsPushEndpoint: "http://example.com",
	}, log), "unknown exporter disables push")

	p := NewPusher(config.Config{
		MetricsPushExporter: "prometheus_remote_write",
		MetricsPushEndpoint: "http://example.com/api/v1/write",
		MetricsPushAuthToken: "tok",
	}, log)
	require.IsType(t, &RemoteWritePusher{}, p)

	p = NewPusher(config.Config{
		MetricsPushExporter: "prometheus_pushgateway",
		MetricsPushEndpoint: "http://example.com:9091",
		AppName:             "offertgenerator",
	}, log)
	require.IsType(t, &PushgatewayPusher{}, p)
}

func TestPackageRecorderDefaultsToNoop(t *testing.T) {
	// Must not panic before a recorder is installed.
	RecordQuoteCreated("", "")
	RecordPublicView("9")

	registry := prometheus.NewRegistry()
	m := newMetrics(registry)
	setRecorder(&recorder{metrics: m})
	RecordQuoteSent("")

	families, err := registry.Gather()
	require.NoError(t, err)
	series := buildRemoteWriteSeries(families, 0)
	sent := findSample(&prompb.WriteRequest{Timeseries: series}, "offert_quotes_sent_total", map[string]string{"company": "unknown"})
	require.NotNil(t, sent, "blank company collapses to the unknown label")
	assert.Equal(t, float64(1), sent.Value)
}
