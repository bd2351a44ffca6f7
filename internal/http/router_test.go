package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pathprogress/internal/data/repos"
	"github.com/yungbote/pathprogress/internal/data/repos/testutil"
	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	httpH "github.com/yungbote/pathprogress/internal/http/handlers"
	"github.com/yungbote/pathprogress/internal/observability"
	"github.com/yungbote/pathprogress/internal/realtime"
	"github.com/yungbote/pathprogress/internal/realtime/bus"
	"github.com/yungbote/pathprogress/internal/services"
)

func newTestRouter(t *testing.T) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	metrics := observability.NewMetrics()

	hub := realtime.NewSSEHub(log)
	b := bus.NewMemoryBus()
	if err := b.StartForwarder(context.Background(), hub.Broadcast); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	notifier := services.NewNotifier(b, metrics, log)
	paths := services.NewPathService(repos.NewPathRepo(db, log), notifier, metrics, log)
	progress := services.NewProgressService(paths, repos.NewPathProgressRepo(db, log), notifier, metrics, log)

	r := NewRouter(RouterConfig{
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.Pinger{
			"db": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		}),
		PathHandler:     httpH.NewPathHandler(log, paths),
		ProgressHandler: httpH.NewProgressHandler(log, progress),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub, paths),
		Metrics:         metrics,
		Log:             log,
	})
	return r, metrics
}

func do(t *testing.T, r http.Handler, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func createPath(t *testing.T, r http.Handler, title string) *curriculum.Path {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"title": title, "curriculum": testutil.GoDoc()})
	rec := do(t, r, http.MethodPost, "/api/paths", "application/json", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: want=201 got=%d body=%s", rec.Code, rec.Body.String())
	}
	return decode[struct{ Path *curriculum.Path }](t, rec).Path
}

func TestHealthRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	if rec := do(t, r, http.MethodGet, "/healthcheck", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d %s", rec.Code, rec.Body.String())
	}
}

func TestPathRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createPath(t, r, "Intro to Go")

	list := decode[struct{ Paths []*curriculum.Path }](t, do(t, r, http.MethodGet, "/api/paths", "", nil))
	if len(list.Paths) != 1 || list.Paths[0].ID != created.ID {
		t.Fatalf("list: %+v", list.Paths)
	}

	rec := do(t, r, http.MethodGet, "/api/paths/slug/intro-to-go", "", nil)
	if got := decode[struct{ Path *curriculum.Path }](t, rec).Path; got == nil || got.ID != created.ID {
		t.Fatalf("by slug: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/paths/slug/nope", "", nil)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"code":"path_not_found"`) {
		t.Fatalf("missing slug: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/paths/not-a-uuid", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("bad id: want=404 got=%d", rec.Code)
	}
}

func TestCreatePathFromYAML(t *testing.T) {
	r, _ := newTestRouter(t)
	doc := "title: Rust Basics\nmodules:\n  - title: Ownership\n    competencies:\n      - Borrowing\n"
	rec := do(t, r, http.MethodPost, "/api/paths", "application/yaml", []byte(doc))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create yaml: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[struct{ Path *curriculum.Path }](t, rec).Path; got.Title != "Rust Basics" {
		t.Fatalf("title: want=%q got=%q", "Rust Basics", got.Title)
	}

	rec = do(t, r, http.MethodPost, "/api/paths", "application/json", []byte(`{"title": 5}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: want=400 got=%d", rec.Code)
	}
}

func TestMetadataRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	p := createPath(t, r, "Intro to Go")

	body := []byte(`{"progress": 40, "completed_modules": 0, "status": "active", "last_accessed": "2026-01-02T03:04:05Z"}`)
	rec := do(t, r, http.MethodPatch, "/api/paths/"+p.ID.String()+"/metadata", "application/json", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[struct{ Path *curriculum.Path }](t, rec).Path
	if got.Progress != 40 || got.Status != curriculum.StatusActive {
		t.Fatalf("metadata applied: %+v", got)
	}

	rec = do(t, r, http.MethodPatch, "/api/paths/"+p.ID.String()+"/metadata", "application/json", []byte(`{"progress": 140, "status": "active"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range: want=400 got=%d", rec.Code)
	}
}

func TestProgressRoutes(t *testing.T) {
	r, metrics := newTestRouter(t)
	p := createPath(t, r, "Intro to Go")
	base := "/api/paths/" + p.ID.String() + "/progress/intro-to-go"

	if rec := do(t, r, http.MethodGet, base, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("before put: want=404 got=%d", rec.Code)
	}

	body := []byte(`{"items": {"m0-competency-0": {"status": "done"}, "m0-resource-0": {"status": "skip"}}}`)
	rec := do(t, r, http.MethodPut, base, "application/json", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[struct{ Progress *types.PathProgress }](t, rec).Progress
	if got.TotalItems != 3 || got.CompletedItems != 1 || got.TotalProgress != 33 {
		t.Fatalf("recomputed: total=%d completed=%d pct=%d", got.TotalItems, got.CompletedItems, got.TotalProgress)
	}

	rec = do(t, r, http.MethodGet, base, "", nil)
	if got := decode[struct{ Progress *types.PathProgress }](t, rec).Progress; got == nil || got.StatusOf("m0-resource-0") != types.StatusSkip {
		t.Fatalf("get after put: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPut, base, "application/json", []byte(`{"items": {"m0-competency-0": {"status": "finished"}}}`))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"code":"invalid_status"`) {
		t.Fatalf("bad status: %d %s", rec.Code, rec.Body.String())
	}

	if got := metrics.ProgressWrites("ok"); got != 1 {
		t.Fatalf("progress writes: want=1 got=%v", got)
	}
	exposition := do(t, r, http.MethodGet, "/metrics", "", nil).Body.String()
	if !strings.Contains(exposition, `route="/api/paths/:id/progress/:slug"`) {
		t.Fatalf("api metrics missing route label:\n%s", exposition)
	}
}

func TestEmptySlugSegment(t *testing.T) {
	r, _ := newTestRouter(t)
	p := createPath(t, r, "!!!")
	base := "/api/paths/" + p.ID.String() + "/progress/" + types.SlugSegment("")

	rec := do(t, r, http.MethodPut, base, "application/json", []byte(`{"items": {"m0-competency-1": {"status": "done"}}}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[struct{ Progress *types.PathProgress }](t, rec).Progress; got.Slug != "" {
		t.Fatalf("slug: want empty got=%q", got.Slug)
	}
}

func TestPathEventsStream(t *testing.T) {
	r, _ := newTestRouter(t)
	p := createPath(t, r, "Intro to Go")

	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/paths/"+p.ID.String()+"/events", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	body := []byte(`{"items": {"m0-competency-0": {"status": "done"}}}`)
	put := do(t, r, http.MethodPut, "/api/paths/"+p.ID.String()+"/progress/intro-to-go", "application/json", body)
	if put.Code != http.StatusOK {
		t.Fatalf("put: %d %s", put.Code, put.Body.String())
	}

	sc := bufio.NewScanner(resp.Body)
	var event string
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			var msg realtime.SSEMessage
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			if event != string(realtime.SSEEventProgressUpdated) || msg.Channel != p.ID.String() {
				t.Fatalf("frame: event=%q channel=%q", event, msg.Channel)
			}
			return
		}
	}
	t.Fatalf("stream ended without a frame: %v", sc.Err())
}
