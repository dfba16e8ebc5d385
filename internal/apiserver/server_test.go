package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moolen/bonvoyage/internal/api"
	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/metrics"
	"github.com/moolen/bonvoyage/internal/pipeline"
	"github.com/moolen/bonvoyage/internal/trip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itinerary = "# Travel Itinerary: Tokyo\n\n## Day 1\n\n- Tsukiji breakfast\n\n<script>alert(1)</script>\n"

// stubPlanner records requests and returns a canned result or error.
type stubPlanner struct {
	mu       sync.Mutex
	requests []trip.Request
	err      error
}

func (p *stubPlanner) Plan(ctx context.Context, req trip.Request, observers ...pipeline.Observer) (*pipeline.Result, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &pipeline.Result{
		RunID: "run-1",
		Final: pipeline.StageResult{Stage: "planning", Text: itinerary},
		Stages: []pipeline.StageResult{
			{Stage: "research", Text: "RESEARCH_TEXT"},
			{Stage: "guide", Text: "GUIDE_TEXT"},
			{Stage: "planning", Text: itinerary},
		},
		Duration: 1500 * time.Millisecond,
	}, nil
}

func (p *stubPlanner) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func newTestServer(t *testing.T, planner Planner, mutate ...func(*Options)) *Server {
	t.Helper()
	opts := Options{
		Config: config.ServerConfig{
			Port:     0,
			PlanTTL:  time.Minute,
			MaxPlans: 8,
		},
		Planner: planner,
		Now:     func() time.Time { return time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC) },
	}
	for _, m := range mutate {
		m(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func tokyoForm() url.Values {
	return url.Values{
		"origin":         {"Paris"},
		"destination":    {"Tokyo"},
		"departure_date": {"2025-04-01"},
		"return_date":    {"2025-04-05"},
		"interests":      {"food, culture"},
	}
}

// newFormRequest builds a form submission from httptest's default peer, 192.0.2.1.
func newFormRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/plans", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postForm(s *Server, values url.Values) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, newFormRequest(values))
	return rec
}

func postJSON(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

var downloadLink = regexp.MustCompile(`/plans/[0-9a-f-]+/download`)

func TestNew_RequiresPlanner(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, &stubPlanner{})

	rec := get(s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Generate Travel Plan")
	assert.Contains(t, rec.Body.String(), `name="departure_date"`)

	assert.Equal(t, http.StatusNotFound, get(s, "/nope").Code)
}

func TestSubmit_RendersItineraryAndDownload(t *testing.T) {
	planner := &stubPlanner{}
	s := newTestServer(t, planner)

	rec := postForm(s, tokyoForm())
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Travel Itinerary: Tokyo</h1>")
	assert.Contains(t, body, "Tsukiji breakfast")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "Download Travel Plan")

	require.Equal(t, 1, planner.calls())
	got := planner.requests[0]
	assert.Equal(t, "Paris", got.Origin())
	assert.Equal(t, "Tokyo", got.Destination())
	assert.Equal(t, "2025-04-01", got.DateFrom())
	assert.Equal(t, "2025-04-05", got.DateTo())

	link := downloadLink.FindString(body)
	require.NotEmpty(t, link)

	dl := get(s, link)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "text/plain; charset=utf-8", dl.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=Travel_Plan_Tokyo_2025-04-01.txt", dl.Header().Get("Content-Disposition"))
	assert.Equal(t, itinerary, dl.Body.String(), "download is the unmodified planner output")
}

func TestSubmit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(url.Values)
		message string
	}{
		{"missing destination", func(v url.Values) { v.Set("destination", " ") }, trip.MessageMissingFields},
		{"missing interests", func(v url.Values) { v.Del("interests") }, trip.MessageMissingFields},
		{"return before departure", func(v url.Values) { v.Set("return_date", "2025-03-30") }, trip.MessageDateOrder},
		{"same day", func(v url.Values) { v.Set("return_date", "2025-04-01") }, trip.MessageDateOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := &stubPlanner{}
			s := newTestServer(t, planner)

			values := tokyoForm()
			tt.mutate(values)
			rec := postForm(s, values)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
			assert.Contains(t, rec.Body.String(), `value="Paris"`, "input is kept")
			assert.Zero(t, planner.calls(), "pipeline must not start")
		})
	}
}

func TestSubmit_PlannerFailure(t *testing.T) {
	planner := &stubPlanner{err: &pipeline.StageError{Stage: "guide", Err: errors.New("model unavailable")}}
	s := newTestServer(t, planner)

	rec := postForm(s, tokyoForm())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "An error occurred:")
	assert.Contains(t, rec.Body.String(), "model unavailable")
	assert.NotRegexp(t, downloadLink, rec.Body.String())
}

func TestSubmit_MissingAPIKey(t *testing.T) {
	planner := &stubPlanner{err: config.NewConfigurationError("GEMINI_API_KEY not found")}
	s := newTestServer(t, planner)

	rec := postForm(s, tokyoForm())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "GEMINI_API_KEY")
}

func TestDownload_Unknown(t *testing.T) {
	s := newTestServer(t, &stubPlanner{})

	rec := get(s, "/plans/does-not-exist/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(api.ErrorCodeNotFound), resp.Error)
}

func TestCreatePlanAPI(t *testing.T) {
	s := newTestServer(t, &stubPlanner{})

	rec := postJSON(s, `{"origin":"Paris","destination":"Tokyo","departure_date":"2025-04-01","return_date":"2025-04-05","interests":"food"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp planResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Travel_Plan_Tokyo_2025-04-01.txt", resp.FileName)
	assert.Equal(t, itinerary, resp.Itinerary)
	assert.Equal(t, int64(1500), resp.DurationMS)
	require.Len(t, resp.Stages, 3)
	assert.Equal(t, pipeline.StageID("research"), resp.Stages[0].Stage)
	assert.Equal(t, downloadURL(resp.ID), resp.DownloadURL)

	dl := get(s, resp.DownloadURL)
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, itinerary, dl.Body.String())
}

func TestCreatePlanAPI_Errors(t *testing.T) {
	planner := &stubPlanner{}
	s := newTestServer(t, planner)

	rec := postJSON(s, `{"origin":"Paris"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(api.ErrorCodeInvalidRequest), resp.Error)
	assert.Equal(t, trip.MessageMissingFields, resp.Message)
	assert.Equal(t, []string{"destination", "departure date", "return date", "interests"}, resp.Fields)

	rec = postJSON(s, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, planner.calls())
}

func TestRateLimit(t *testing.T) {
	planner := &stubPlanner{}
	s := newTestServer(t, planner, func(o *Options) { o.Config.RequestsPerMinute = 1 })

	assert.Equal(t, http.StatusOK, postForm(s, tokyoForm()).Code)

	rec := postForm(s, tokyoForm())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, planner.calls())

	// A forged X-Forwarded-For from an untrusted peer does not buy a new budget.
	spoofed := newFormRequest(tokyoForm())
	spoofed.Header.Set("X-Forwarded-For", "198.51.100.7")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, spoofed)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Other clients have their own budget.
	other := newFormRequest(tokyoForm())
	other.RemoteAddr = "198.51.100.7:5555"
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, planner.calls())
}

func TestRateLimit_TrustedProxy(t *testing.T) {
	planner := &stubPlanner{}
	s := newTestServer(t, planner, func(o *Options) {
		o.Config.RequestsPerMinute = 1
		o.Config.TrustedProxies = []string{"192.0.2.0/24"}
	})

	for _, client := range []string{"198.51.100.1", "198.51.100.2"} {
		req := newFormRequest(tokyoForm())
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, client)
	}

	req := newFormRequest(tokyoForm())
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	s := newTestServer(t, &stubPlanner{}, func(o *Options) {
		o.Gatherer = reg
		o.Metrics = m
	})

	rec := get(s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	values := tokyoForm()
	values.Del("origin")
	require.Equal(t, http.StatusBadRequest, postForm(s, values).Code)

	rec = get(s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bonvoyage_pipeline_runs_total{outcome="invalid"} 1`)
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	s := newTestServer(t, &stubPlanner{})
	assert.Equal(t, http.StatusNotFound, get(s, "/metrics").Code)
}

func TestClientIP(t *testing.T) {
	s := newTestServer(t, &stubPlanner{}, func(o *Options) {
		o.Config.TrustedProxies = []string{"10.0.0.0/8"}
	})

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "203.0.113.5:4242", "203.0.113.5"},
		{"no port", nil, "203.0.113.9", "203.0.113.9"},
		{"untrusted peer forwarded for", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "203.0.113.5:1", "203.0.113.5"},
		{"untrusted peer real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "203.0.113.5:1", "203.0.113.5"},
		{"trusted peer forwarded for", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "10.0.0.2:1", "198.51.100.1"},
		{"client supplied prefix ignored", map[string]string{"X-Forwarded-For": "192.0.2.66, 198.51.100.1"}, "10.0.0.2:1", "198.51.100.1"},
		{"only trusted hops", map[string]string{"X-Forwarded-For": "10.0.0.5, 10.0.0.1"}, "10.0.0.2:1", "10.0.0.5"},
		{"trusted peer real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.2:1", "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, s.clientIP(r))
		})
	}
}

func TestNew_InvalidTrustedProxy(t *testing.T) {
	_, err := New(Options{
		Config:  config.ServerConfig{TrustedProxies: []string{"proxy.local"}},
		Planner: &stubPlanner{},
	})
	assert.Error(t, err)
}

func TestPlanStore_Bounded(t *testing.T) {
	store := newPlanStore(1, time.Minute)
	now := time.Now()

	first := store.Add("a.txt", "A", now)
	second := store.Add("b.txt", "B", now)

	_, ok := store.Get(first.ID)
	assert.False(t, ok, "oldest plan is evicted")
	got, ok := store.Get(second.ID)
	require.True(t, ok)
	assert.Equal(t, "B", got.Text)
	assert.Equal(t, 1, store.Len())
}

func TestRenderMarkdown_Sanitizes(t *testing.T) {
	out := string(renderMarkdown("## Day 1\n\n[click](javascript:alert(1))\n\n<img src=x onerror=alert(1)>"))
	assert.Contains(t, out, "<h2>Day 1</h2>")
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "onerror")
}

func TestStartStop(t *testing.T) {
	s := newTestServer(t, &stubPlanner{})
	require.NoError(t, s.Start(context.Background()))

	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
	assert.Equal(t, "web server", s.Name())
}
