package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/resume-builder/internal/entries"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/pagination"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSurface measures to a fixed height and captures solid pages.
type fakeSurface struct {
	height float64
	block  chan struct{}
	closed *int
	mu     *sync.Mutex
}

func (f *fakeSurface) ContentHeight(_ context.Context) (float64, error) {
	return f.height, nil
}

func (f *fakeSurface) MountOffscreen(_ context.Context, _ export.MountOptions) (export.Target, error) {
	return &fakeTarget{block: f.block}, nil
}

func (f *fakeSurface) Close() {
	f.mu.Lock()
	*f.closed++
	f.mu.Unlock()
}

type fakeTarget struct {
	block chan struct{}
}

func (t *fakeTarget) ContentHeight(_ context.Context) (float64, error) { return 0, nil }

func (t *fakeTarget) NudgeBreaks(_ context.Context, _ export.NudgeOptions) error { return nil }

func (t *fakeTarget) CaptureSlice(ctx context.Context, _ pagination.Band, scale float64) (image.Image, error) {
	if t.block != nil {
		select {
		case <-t.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	w := int(math.Round(pagination.PageWidthPx * scale))
	h := int(math.Round(pagination.PageHeightPx * scale))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}

func (t *fakeTarget) Release(_ context.Context) error { return nil }

// testEnv wires a server to fake surfaces.
type testEnv struct {
	server  *Server
	mu      sync.Mutex
	height  float64
	block   chan struct{}
	opened  int
	closed  int
	openErr error
	saved   []map[string]string
}

func newTestEnv(t *testing.T, form map[string]string, mutate ...func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{height: 500}

	opts := export.DefaultOptions()
	opts.OutputDir = t.TempDir()

	cfg := Config{
		Form:     form,
		Export:   opts,
		Debounce: 10 * time.Millisecond,
		OpenSurface: func(_ context.Context, html string) (Surface, error) {
			env.mu.Lock()
			defer env.mu.Unlock()
			if env.openErr != nil {
				return nil, env.openErr
			}
			if !strings.Contains(html, `id="resume-root"`) {
				return nil, errors.New("rendered document has no root")
			}
			env.opened++
			return &fakeSurface{height: env.height, block: env.block, closed: &env.closed, mu: &env.mu}, nil
		},
		Persist: func(form map[string]string) error {
			env.mu.Lock()
			env.saved = append(env.saved, form)
			env.mu.Unlock()
			return nil
		},
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.debouncer.Stop()
		s.rateLimiter.Stop()
	})
	env.server = s
	return env
}

func (e *testEnv) setHeight(h float64) {
	e.mu.Lock()
	e.height = h
	e.mu.Unlock()
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestNew_RequiresSurfaceFactory(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "idle", resp["export"])
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodOptions, "/sections/skills", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestGetForm(t *testing.T) {
	env := newTestEnv(t, map[string]string{"firstName": "Jan", "skills": "- Go|5"})

	w := env.do(t, http.MethodGet, "/form", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, "Jan", resp["firstName"])
	assert.Equal(t, "- Go|5", resp["skills"])
}

func TestPutForm(t *testing.T) {
	env := newTestEnv(t, map[string]string{"firstName": "Jan"})

	w := env.do(t, http.MethodPut, "/form", `{"lastName": "Kowalski", "interests": "- Chess\n- Go"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "Jan", env.server.Store().Field("firstName"))
	assert.Equal(t, "Kowalski", env.server.Store().Field("lastName"))
	assert.Equal(t, 2, env.server.Store().Len(entries.KindInterests))
}

func TestPutForm_SchemaViolation(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPut, "/form", `{"skills": ["Go"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPut, "/form", `{ nope`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSectionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/sections/experience", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["index"])

	for field, value := range map[string]any{
		"company":   "Acme Corp",
		"position":  "Engineer",
		"startDate": "01.2020",
		"isCurrent": true,
		"details":   "- Built X",
	} {
		w = env.do(t, http.MethodPut, "/sections/experience/0", UpdateRecordRequest{Field: field, Value: value})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	assert.Equal(t, "Acme Corp|Engineer|01.2020 - do teraz\n- Built X\n\n", env.server.Store().Field("experience"))

	w = env.do(t, http.MethodGet, "/sections/experience", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Len(t, resp["records"], 1)
	assert.Equal(t, env.server.Store().Field("experience"), resp["text"])

	w = env.do(t, http.MethodDelete, "/sections/experience/0", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, env.server.Store().Len(entries.KindExperience))
	assert.Equal(t, "", env.server.Store().Field("experience"))
}

func TestUpdateRecord_AppendsAtEnd(t *testing.T) {
	env := newTestEnv(t, map[string]string{"skills": "- Go|5"})

	w := env.do(t, http.MethodPut, "/sections/skills/1", UpdateRecordRequest{Field: "skill", Value: "SQL"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "- Go|5\n- SQL|3", env.server.Store().Field("skills"))
}

func TestUpdateRecord_PastEndIsNotFound(t *testing.T) {
	env := newTestEnv(t, map[string]string{"skills": "- Go|5"})

	tests := []struct {
		path  string
		field string
	}{
		{"/sections/skills/2", "skill"},
		{"/sections/experience/100000000", "position"},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodPut, tt.path, UpdateRecordRequest{Field: tt.field, Value: "x"})
		assert.Equal(t, http.StatusNotFound, w.Code, tt.path)
	}
	assert.Equal(t, 1, env.server.Store().Len(entries.KindSkills))
	assert.Equal(t, 0, env.server.Store().Len(entries.KindExperience))
}

func TestUpdateRecord_RemovedConcurrently(t *testing.T) {
	env := newTestEnv(t, map[string]string{"skills": "- Go|5\n- SQL|4"})

	// Another client deletes the record between the update and the read-back.
	var once sync.Once
	env.server.Store().OnChange(func(key string) {
		if key == "skills" {
			once.Do(func() {
				require.NoError(t, env.server.Store().Remove(entries.KindSkills, 1))
			})
		}
	})

	w := env.do(t, http.MethodPut, "/sections/skills/1", UpdateRecordRequest{Field: "skill", Value: "Rust"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["index"])
	assert.Nil(t, body["record"])
	assert.Equal(t, "- Go|5", env.server.Store().Field("skills"))
}

func TestReorderRecords(t *testing.T) {
	env := newTestEnv(t, map[string]string{"skills": "- Go|5\n- SQL|4\n- Rust|2"})

	w := env.do(t, http.MethodPost, "/sections/skills/reorder", map[string]int{"from": 2, "to": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "- Rust|2\n- Go|5\n- SQL|4", env.server.Store().Field("skills"))

	w = env.do(t, http.MethodPost, "/sections/skills/reorder", map[string]int{"from": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/sections/skills/reorder", map[string]int{"from": 0, "to": 9})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSectionErrors(t *testing.T) {
	env := newTestEnv(t, map[string]string{"skills": "- Go|5"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown kind", http.MethodGet, "/sections/hobbies", nil, http.StatusNotFound},
		{"non-numeric index", http.MethodDelete, "/sections/skills/first", nil, http.StatusBadRequest},
		{"index out of range", http.MethodDelete, "/sections/skills/5", nil, http.StatusNotFound},
		{"negative index", http.MethodPut, "/sections/skills/-1", UpdateRecordRequest{Field: "skill", Value: "Go"}, http.StatusNotFound},
		{"unknown field", http.MethodPut, "/sections/skills/0", UpdateRecordRequest{Field: "company", Value: "Acme"}, http.StatusBadRequest},
		{"missing field", http.MethodPut, "/sections/skills/0", UpdateRecordRequest{Value: "Go"}, http.StatusBadRequest},
		{"bad proficiency type", http.MethodPut, "/sections/skills/0", UpdateRecordRequest{Field: "proficiency", Value: "high"}, http.StatusBadRequest},
		{"malformed body", http.MethodPut, "/sections/skills/0", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestValidateSection(t *testing.T) {
	env := newTestEnv(t, map[string]string{"skills": "- Go|9\n- SQL|4"})

	w := env.do(t, http.MethodGet, "/sections/skills/problems", nil)
	require.Equal(t, http.StatusOK, w.Code)

	problems := decode(t, w)["problems"].([]any)
	require.Len(t, problems, 1)
	problem := problems[0].(map[string]any)
	assert.EqualValues(t, 0, problem["Index"])
	assert.Equal(t, "proficiency", problem["Field"])

	w = env.do(t, http.MethodGet, "/sections/languages/problems", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["problems"])
}

func TestPaginationRefresh(t *testing.T) {
	env := newTestEnv(t, map[string]string{"firstName": "Jan"})
	env.setHeight(2500)

	w := env.do(t, http.MethodGet, "/pagination?refresh=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var estimate pagination.Estimate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &estimate))
	assert.Equal(t, 3, estimate.PageCount)
	assert.Equal(t, []float64{1123, 2246}, estimate.Breaks)
	assert.False(t, estimate.Degraded)

	env.mu.Lock()
	assert.Equal(t, env.opened, env.closed, "every measuring surface is closed")
	env.mu.Unlock()
}

func TestPaginationDegradesWhenSurfaceFails(t *testing.T) {
	env := newTestEnv(t, nil)
	env.openErr = errors.New("no chrome")

	w := env.do(t, http.MethodGet, "/pagination?refresh=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var estimate pagination.Estimate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &estimate))
	assert.Equal(t, 1, estimate.PageCount)
	assert.True(t, estimate.Degraded)
}

func TestEditTriggersDebouncedRemeasure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.setHeight(1500)

	w := env.do(t, http.MethodPost, "/sections/interests", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Eventually(t, func() bool {
		return env.server.currentEstimate().PageCount == 2
	}, 2*time.Second, 10*time.Millisecond)

	env.mu.Lock()
	defer env.mu.Unlock()
	require.NotEmpty(t, env.saved, "changes are persisted")
	assert.Contains(t, env.saved[len(env.saved)-1], "interests")
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t, map[string]string{"firstName": "Jan", "lastName": "Kowalski"})
	env.setHeight(2500)
	env.do(t, http.MethodGet, "/pagination?refresh=true", nil)

	w := env.do(t, http.MethodGet, "/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `id="resume-root"`)
	assert.Contains(t, w.Body.String(), "Kowalski")
	assert.Equal(t, 2, rendering.CountMarkers(w.Body.String()))

	w = env.do(t, http.MethodGet, "/preview?markers=false", nil)
	assert.Equal(t, 0, rendering.CountMarkers(w.Body.String()))
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, map[string]string{"firstName": "Jan", "lastName": "Kowalski"})

	w := env.do(t, http.MethodPost, "/export", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result export.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, strings.HasPrefix(result.FileName, "Jan_Kowalski_"))
	assert.Equal(t, 1, result.PageCount)

	w = env.do(t, http.MethodGet, "/exports/"+result.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	env.mu.Lock()
	assert.Equal(t, env.opened, env.closed)
	env.mu.Unlock()
}

func TestExport_CustomFileName(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/export", ExportRequest{FileName: "my-cv"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "my-cv.pdf", decode(t, w)["file_name"])
}

func TestExport_SurfaceFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.openErr = errors.New("chrome not found")

	w := env.do(t, http.MethodPost, "/export", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], "chrome not found")
}

func TestExport_ConflictWhileExporting(t *testing.T) {
	env := newTestEnv(t, nil)
	env.block = make(chan struct{})

	done := make(chan int, 1)
	go func() {
		done <- env.do(t, http.MethodPost, "/export", nil).Code
	}()

	require.Eventually(t, func() bool {
		return env.server.assembler.State() == export.StateExporting
	}, 2*time.Second, 5*time.Millisecond)

	w := env.do(t, http.MethodPost, "/export", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(env.block)
	assert.Equal(t, http.StatusCreated, <-done)
}

func TestGetExport_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/exports/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/exports/6f1c1c4e-8f6a-4a53-9a43-0d1c3a0c2b11", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitedExport(t *testing.T) {
	env := newTestEnv(t, nil, func(cfg *Config) {
		cfg.RateLimit = &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  100,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/export", Method: "POST", Limit: 1, Window: time.Hour},
			},
		}
	})

	w := env.do(t, http.MethodPost, "/export", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/export", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode(t, w)["error"])
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	readEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	assert.Equal(t, "pagination", readEvent(), "the current estimate is sent on connect")

	env.server.Store().SetField("firstName", "Anna")
	assert.Equal(t, "change", readEvent())
	assert.Equal(t, "pagination", readEvent(), "the debounced measurement follows")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{export.ErrExportInProgress, http.StatusConflict},
		{&entries.KindError{Name: "x"}, http.StatusNotFound},
		{&ErrExportNotFound{ID: "x"}, http.StatusNotFound},
		{&entries.FieldError{Kind: entries.KindSkills, Field: "x"}, http.StatusBadRequest},
		{&ErrValidation{Field: "f", Message: "m"}, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "index", Message: "must be an integer"}
	assert.Equal(t, "validation error: index - must be an integer", err.Error())
}

func TestSSEWriter_NumbersEventsAndPings(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.WriteEvent("change", map[string]int{"revision": 1}))
	require.NoError(t, sse.Ping())
	require.NoError(t, sse.WriteEvent("pagination", map[string]int{"page_count": 2}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"id: 1\nevent: change\ndata: {\"revision\":1}\n\n"+
			": ping\n\n"+
			"id: 2\nevent: pagination\ndata: {\"page_count\":2}\n\n",
		rec.Body.String())
}
