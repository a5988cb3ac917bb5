package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brookman/respeaker-go/internal/device"
	"github.com/brookman/respeaker-go/internal/infrastructure/config"
	"github.com/brookman/respeaker-go/internal/infrastructure/logging"
	"github.com/brookman/respeaker-go/internal/param"
	"github.com/brookman/respeaker-go/internal/preset"
	"github.com/brookman/respeaker-go/internal/state"
)

// stubDevice implements Device against an in-memory value map.
type stubDevice struct {
	values   map[param.Kind]param.Value
	writes   []param.Kind
	resets   int
	readErr  error
	writeErr error
	listErr  error
	resetErr error
}

func newStubDevice() *stubDevice {
	return &stubDevice{
		values: map[param.Kind]param.Value{
			param.AGCGain:  param.Float(3.5),
			param.HPFOnOff: param.Int(1),
			param.DOAAngle: param.Int(135),
		},
	}
}

func (d *stubDevice) Read(k param.Kind) (param.Value, error) {
	if d.readErr != nil {
		return param.Value{}, d.readErr
	}
	v, ok := d.values[k]
	if !ok {
		return param.Value{}, fmt.Errorf("no stub value for %s", k)
	}
	return v, nil
}

func (d *stubDevice) Write(k param.Kind, v param.Value) error {
	if d.writeErr != nil {
		return d.writeErr
	}
	d.values[k] = v
	d.writes = append(d.writes, k)
	return nil
}

func (d *stubDevice) List() ([]device.Row, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	kinds := make([]param.Kind, 0, len(d.values))
	for k := range d.values {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	rows := make([]device.Row, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, device.Row{Kind: k, Definition: k.Definition(), Value: d.values[k]})
	}
	return rows, nil
}

func (d *stubDevice) Reset() error {
	if d.resetErr != nil {
		return d.resetErr
	}
	d.resets++
	return nil
}

// memRepo is an in-memory preset.Repository.
type memRepo struct {
	presets map[string]*preset.Preset
	nextID  int
}

func newMemRepo() *memRepo {
	return &memRepo{presets: make(map[string]*preset.Preset)}
}

func (r *memRepo) Save(_ context.Context, p *preset.Preset) error {
	for id, existing := range r.presets {
		if existing.Name == p.Name && id != p.ID {
			return preset.ErrDuplicateName
		}
	}
	if p.ID == "" {
		r.nextID++
		p.ID = fmt.Sprintf("preset-%d", r.nextID)
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()
	stored := *p
	r.presets[p.ID] = &stored
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*preset.Preset, error) {
	p, ok := r.presets[id]
	if !ok {
		return nil, preset.ErrNotFound
	}
	return p, nil
}

func (r *memRepo) GetByName(_ context.Context, name string) (*preset.Preset, error) {
	for _, p := range r.presets {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, preset.ErrNotFound
}

func (r *memRepo) List(_ context.Context) ([]*preset.Preset, error) {
	out := make([]*preset.Preset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.presets[id]; !ok {
		return preset.ErrNotFound
	}
	delete(r.presets, id)
	return nil
}

// newTestServer builds a server around the stub and returns the HTTP
// test server plus the configured Server.
func newTestServer(t *testing.T, dev Device, repo preset.Repository) (*httptest.Server, *Server) {
	t.Helper()

	s, err := New(Deps{
		Config:  config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:      config.WebSocketConfig{MaxMessageSize: 4096, PingInterval: 30, PongTimeout: 60},
		Logger:  logging.Default(),
		Device:  dev,
		Cache:   state.NewCache(),
		Presets: repo,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.started = time.Now()
	s.hub = NewHub(s.wsCfg, s.logger)

	ts := httptest.NewServer(s.buildRouter())
	t.Cleanup(ts.Close)
	return ts, s
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return resp, decoded
}

func TestHandleHealth(t *testing.T) {
	ts, _ := newTestServer(t, newStubDevice(), nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
}

func TestHandleListParams(t *testing.T) {
	dev := newStubDevice()
	ts, _ := newTestServer(t, dev, nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/params", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if int(body["count"].(float64)) != len(dev.values) {
		t.Errorf("count = %v, want %d", body["count"], len(dev.values))
	}

	params, ok := body["params"].([]any)
	if !ok || len(params) != len(dev.values) {
		t.Fatalf("params = %v, want %d entries", body["params"], len(dev.values))
	}
	first := params[0].(map[string]any)
	for _, field := range []string{"name", "type", "access", "value", "description"} {
		if _, ok := first[field]; !ok {
			t.Errorf("param entry missing %q field: %v", field, first)
		}
	}
}

func TestHandleGetParam(t *testing.T) {
	ts, _ := newTestServer(t, newStubDevice(), nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/params/DOAANGLE", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["name"] != "DOAANGLE" {
		t.Errorf("name = %v, want DOAANGLE", body["name"])
	}
	if body["value"] != "135" {
		t.Errorf("value = %v, want 135", body["value"])
	}
	if body["access"] != "ro" {
		t.Errorf("access = %v, want ro", body["access"])
	}

	// Lookup is case-insensitive.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/params/doaangle", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("lowercase lookup status = %d, want 200", resp.StatusCode)
	}
}

func TestHandleGetParamUnknown(t *testing.T) {
	ts, _ := newTestServer(t, newStubDevice(), nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/params/NOSUCH", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if body["code"] != ErrCodeNotFound {
		t.Errorf("code = %v, want %s", body["code"], ErrCodeNotFound)
	}
}

func TestHandleSetParam(t *testing.T) {
	dev := newStubDevice()
	ts, s := newTestServer(t, dev, nil)

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/v1/params/AGCGAIN", map[string]string{"value": "7.5"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", resp.StatusCode, body)
	}
	if body["value"] != "7.5" {
		t.Errorf("value = %v, want 7.5", body["value"])
	}

	// The write lands in the cache for the reconciler, not on the device.
	v, ok := s.cache.Get(param.AGCGain)
	if !ok || v.Float() != 7.5 {
		t.Errorf("cache AGCGAIN = %v (ok=%v), want 7.5", v, ok)
	}
	if len(dev.writes) != 0 {
		t.Errorf("device writes = %v, want none", dev.writes)
	}
}

func TestHandleSetParamBadInput(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown param", "/api/v1/params/NOSUCH", `{"value":"1"}`, http.StatusNotFound},
		{"invalid json", "/api/v1/params/AGCGAIN", `{not json`, http.StatusBadRequest},
		{"unparsable value", "/api/v1/params/AGCGAIN", `{"value":"loud"}`, http.StatusBadRequest},
		{"int param rejects float text", "/api/v1/params/HPFONOFF", `{"value":"1.5"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newStubDevice()
			ts, _ := newTestServer(t, dev, nil)

			req, err := http.NewRequest(http.MethodPut, ts.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("building request: %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if len(dev.writes) != 0 {
				t.Errorf("writes = %v, want none", dev.writes)
			}
		})
	}
}

func TestHandleSetParamValidation(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		value      string
		wantStatus int
	}{
		{"read only", "/api/v1/params/DOAANGLE", "5", http.StatusForbidden},
		{"out of range", "/api/v1/params/HPFONOFF", "9", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newStubDevice()
			ts, s := newTestServer(t, dev, nil)

			resp, _ := doJSON(t, http.MethodPut, ts.URL+tt.path, map[string]string{"value": tt.value})
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if s.cache.Len() != 0 {
				t.Errorf("cache has %d entries after rejected write, want 0", s.cache.Len())
			}
		})
	}
}

func TestHandleGetParamDeviceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"reset in flight", device.ErrResetInFlight, http.StatusConflict},
		{"session closed", device.ErrSessionClosed, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newStubDevice()
			dev.readErr = tt.err
			ts, _ := newTestServer(t, dev, nil)

			resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/params/AGCGAIN", nil)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestHandleReset(t *testing.T) {
	dev := newStubDevice()
	ts, _ := newTestServer(t, dev, nil)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if dev.resets != 1 {
		t.Errorf("resets = %d, want 1", dev.resets)
	}
}

func TestHandleResetConflict(t *testing.T) {
	dev := newStubDevice()
	dev.resetErr = device.ErrResetInFlight
	ts, _ := newTestServer(t, dev, nil)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/reset", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestPresetLifecycle(t *testing.T) {
	dev := newStubDevice()
	ts, _ := newTestServer(t, dev, newMemRepo())

	// Capture: DOAANGLE is read-only and must not be stored.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/presets", map[string]string{
		"name":        "evening",
		"description": "low gain for the evening",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (body %v)", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("created preset has no id")
	}
	values := body["values"].(map[string]any)
	if _, ok := values["DOAANGLE"]; ok {
		t.Error("read-only DOAANGLE captured into preset")
	}
	if len(values) != 2 {
		t.Errorf("captured %d values, want 2 (AGCGAIN, HPFONOFF)", len(values))
	}

	// Duplicate name is a conflict.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/presets", map[string]string{"name": "evening"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", resp.StatusCode)
	}

	// Get and list.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/presets/"+id, nil)
	if resp.StatusCode != http.StatusOK || body["name"] != "evening" {
		t.Errorf("get = %d %v, want 200 evening", resp.StatusCode, body["name"])
	}
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/presets", nil)
	if resp.StatusCode != http.StatusOK || int(body["count"].(float64)) != 1 {
		t.Errorf("list = %d count %v, want 200 count 1", resp.StatusCode, body["count"])
	}

	// Apply writes the captured values back.
	dev.writes = nil
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/presets/"+id+"/apply", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply status = %d, want 200 (body %v)", resp.StatusCode, body)
	}
	if len(dev.writes) != 2 {
		t.Errorf("apply wrote %d params, want 2", len(dev.writes))
	}

	// Delete, then get turns into 404.
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/presets/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d, want 200", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/presets/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", resp.StatusCode)
	}
}

// recordingAdopter captures Adopt calls for assertions.
type recordingAdopter struct {
	mu      sync.Mutex
	adopted map[param.Kind]param.Value
}

func (a *recordingAdopter) Adopt(k param.Kind, v param.Value) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.adopted == nil {
		a.adopted = make(map[param.Kind]param.Value)
	}
	a.adopted[k] = v
}

func TestApplyPresetNotifiesAdopter(t *testing.T) {
	dev := newStubDevice()
	ts, s := newTestServer(t, dev, newMemRepo())
	adopter := &recordingAdopter{}
	s.adopter = adopter

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/presets", map[string]string{"name": "studio"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	id := body["id"].(string)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/presets/"+id+"/apply", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply status = %d, want 200", resp.StatusCode)
	}

	// Every applied value must be reported, so the reconciliation loop
	// does not push them a second time on its next pass.
	adopter.mu.Lock()
	defer adopter.mu.Unlock()
	if len(adopter.adopted) != len(dev.writes) {
		t.Fatalf("adopted %d values, want %d (one per applied write)", len(adopter.adopted), len(dev.writes))
	}
	for _, k := range dev.writes {
		got, ok := adopter.adopted[k]
		if !ok || !got.Equal(dev.values[k]) {
			t.Errorf("adopted[%s] = %v %v, want %s", k, got, ok, dev.values[k])
		}
	}
}

func TestPresetsUnavailable(t *testing.T) {
	ts, _ := newTestServer(t, newStubDevice(), nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/presets", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if body["code"] != ErrCodeUnavailable {
		t.Errorf("code = %v, want %s", body["code"], ErrCodeUnavailable)
	}
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Deps{Device: newStubDevice(), Cache: state.NewCache()}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Default(), Cache: state.NewCache()}); err == nil {
		t.Error("New() without device should fail")
	}
	if _, err := New(Deps{Logger: logging.Default(), Device: newStubDevice()}); err == nil {
		t.Error("New() without cache should fail")
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts, _ := newTestServer(t, newStubDevice(), nil)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/health", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "my-request")
	got, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	got.Body.Close()
	if got.Header.Get("X-Request-ID") != "my-request" {
		t.Errorf("X-Request-ID = %q, want my-request", got.Header.Get("X-Request-ID"))
	}
}
