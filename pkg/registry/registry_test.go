package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/pipeline"
	"github.com/echiweshe/sceneforge/pkg/settings"
	"github.com/echiweshe/sceneforge/pkg/worker"
)

const testMarkup = `<svg viewBox="0 0 100 100">
	<rect id="box" x="10" y="10" width="30" height="30" fill="red"/>
</svg>`

const testTimeline = `
- target: box
  property: opacity
  keyframes:
    - frame: 0
      value: 1
    - frame: 10
      value: 0
`

func testRegistry(t *testing.T, store settings.Store) *Registry {
	t.Helper()
	pool := worker.NewPool(pipeline.NewRunner(nil, nil, nil), worker.Config{Workers: 2})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool.Shutdown(ctx)
	})
	return New(pool, store, nil)
}

func TestToolsListing(t *testing.T) {
	list := Tools()
	if len(list) != 3 {
		t.Fatalf("Tools() = %d entries, want 3", len(list))
	}
	want := []string{"animate_scene", "render_scene", "svg_to_3d"}
	for i, name := range want {
		if list[i].Name != name {
			t.Errorf("tool[%d] = %q, want %q", i, list[i].Name, name)
		}
	}
}

func TestInvokeConvert(t *testing.T) {
	reg := testRegistry(t, nil)

	inv, err := reg.Invoke(context.Background(), "svg_to_3d", &pipeline.Options{
		Markup: []byte(testMarkup),
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if inv.Status != worker.StateDone {
		t.Fatalf("Status = %s, want %s (error %q)", inv.Status, worker.StateDone, inv.Error)
	}
	if len(inv.ObjectsCreated) == 0 {
		t.Error("ObjectsCreated is empty")
	}
	if inv.OutputPath != "" {
		t.Errorf("OutputPath = %q, want empty for conversion", inv.OutputPath)
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	reg := testRegistry(t, nil)

	_, err := reg.Invoke(context.Background(), "teleport", &pipeline.Options{Markup: []byte(testMarkup)})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeNotSupported) {
		t.Errorf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeNotSupported)
	}
}

func TestInvokeAnimateRequiresTimeline(t *testing.T) {
	reg := testRegistry(t, nil)

	_, err := reg.Invoke(context.Background(), "animate_scene", &pipeline.Options{Markup: []byte(testMarkup)})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}

func TestInvokeAppliesSavedSettings(t *testing.T) {
	store := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.toml"))
	saved := settings.Default()
	saved.Conversion.ExtrudeDepth = 0.7
	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatal(err)
	}
	reg := testRegistry(t, store)

	opts := &pipeline.Options{Markup: []byte(testMarkup)}
	inv, err := reg.Invoke(context.Background(), "svg_to_3d", opts)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if inv.Status != worker.StateDone {
		t.Fatalf("Status = %s (error %q)", inv.Status, inv.Error)
	}
	if opts.ExtrudeDepth != 0.7 {
		t.Errorf("ExtrudeDepth = %v, want 0.7 from saved settings", opts.ExtrudeDepth)
	}
}

func TestHTTPSubmitAndPoll(t *testing.T) {
	reg := testRegistry(t, nil)
	srv := httptest.NewServer(reg.Router())
	defer srv.Close()

	body, _ := json.Marshal(jobRequest{
		Tool:     "animate_scene",
		Markup:   testMarkup,
		Timeline: testTimeline,
	})
	resp, err := http.Post(srv.URL+"/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	var job worker.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("decoding job: %v", err)
	}
	if job.ID == "" {
		t.Fatal("empty job id")
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		r2, err := http.Get(srv.URL + "/jobs/" + job.ID)
		if err != nil {
			t.Fatalf("GET /jobs/%s: %v", job.ID, err)
		}
		var polled worker.Job
		if err := json.NewDecoder(r2.Body).Decode(&polled); err != nil {
			t.Fatalf("decoding poll: %v", err)
		}
		r2.Body.Close()
		if polled.State.Terminal() {
			if polled.State != worker.StateDone {
				t.Fatalf("State = %s, want %s (error %q)", polled.State, worker.StateDone, polled.Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in state %s", polled.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHTTPErrors(t *testing.T) {
	reg := testRegistry(t, nil)
	srv := httptest.NewServer(reg.Router())
	defer srv.Close()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   errors.Code
	}{
		{
			name:       "unknown tool",
			body:       `{"tool": "teleport", "markup": "<svg/>"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeNotSupported,
		},
		{
			name:       "malformed body",
			body:       `{"tool":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeInvalidInput,
		},
		{
			name:       "missing input",
			body:       `{"tool": "svg_to_3d"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeInvalidInput,
		},
		{
			name:       "malformed timeline",
			body:       `{"tool": "animate_scene", "markup": "<svg/>", "timeline": "{{nope"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/jobs", "application/json", bytes.NewReader([]byte(tt.body)))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var payload map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if payload["code"] != string(tt.wantCode) {
				t.Errorf("code = %q, want %q", payload["code"], tt.wantCode)
			}
		})
	}
}

func TestHTTPHealthAndUnknownJob(t *testing.T) {
	reg := testRegistry(t, nil)
	srv := httptest.NewServer(reg.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/jobs/nope")
	if err != nil {
		t.Fatalf("GET /jobs/nope: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job status = %d", resp.StatusCode)
	}
}
