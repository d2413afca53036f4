package controller

import (
	"context"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"antartida-viewer/internal/modules/antartida/client"
	"antartida-viewer/internal/modules/antartida/display"
	"antartida-viewer/internal/modules/antartida/query"
	"antartida-viewer/internal/modules/antartida/types"
	"antartida-viewer/internal/modules/antartida/views"
)

func TestMain(m *testing.M) {
	if err := views.LoadTemplates(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockFetcher struct {
	calls atomic.Int32
	fetch func(ctx context.Context, d query.Descriptor) ([]types.Measurement, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, d query.Descriptor) ([]types.Measurement, error) {
	m.calls.Add(1)
	if m.fetch == nil {
		return nil, nil
	}
	return m.fetch(ctx, d)
}

var testNow = time.Date(2025, 2, 8, 10, 30, 0, 0, time.UTC)

func newTestMux(t *testing.T, f Fetcher) (*http.ServeMux, *display.Holder) {
	t.Helper()
	holder := display.NewHolderWithClock(func() time.Time { return testNow })
	mux := http.NewServeMux()
	NewAntartidaController(f, holder, Options{
		Now: func() time.Time { return testNow },
	}).RegisterRoutes(mux)
	return mux, holder
}

func scenarioForm() url.Values {
	return url.Values{
		"start":       {"2025-02-01T00:00"},
		"end":         {"2025-02-02T00:00"},
		"station":     {"89064"},
		"location":    {"Europe/Berlin"},
		"aggregation": {"None"},
		"temperature": {"true"},
		"speed":       {"true"},
	}
}

func postQuery(mux http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func num(v float64) *float64 { return &v }

func measurement(raw string, temperature *float64) types.Measurement {
	ts, err := types.ParseTimestamp(raw)
	if err != nil {
		panic(err)
	}
	return types.Measurement{Station: "Meteo Station Juan Carlos I", DateTime: ts, Temperature: temperature}
}

func Test_handleIndex(t *testing.T) {
	mux, _ := newTestMux(t, &mockFetcher{})

	t.Run("renders default form", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("Content-Type = %q; want text/html", ct)
		}
		body := rec.Body.String()
		for _, want := range []string{
			`value="2025-02-01T10:30"`,
			`value="2025-02-08T10:30"`,
			`value="Europe/Berlin"`,
			`<option value="89064" selected>`,
			`<option value="None" selected>`,
			`name="temperature" value="true" checked`,
			`name="speed" value="true" checked`,
			`data-state="idle"`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
		if strings.Contains(body, `name="pressure" value="true" checked`) {
			t.Error("pressure checked by default")
		}
	})

	t.Run("returns 404 when path is not /", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("returns 405 for POST /", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func Test_handleQuery_Success(t *testing.T) {
	var got query.Descriptor
	f := &mockFetcher{fetch: func(_ context.Context, d query.Descriptor) ([]types.Measurement, error) {
		got = d
		return []types.Measurement{
			measurement("2025-02-01T12:00:00+0100", num(-1.25)),
			measurement("2025-02-01T12:10:00+0100", nil),
			measurement("2025-02-01T12:20:00+0100", num(0.5)),
		}, nil
	}}
	mux, holder := newTestMux(t, f)

	rec := postQuery(mux, scenarioForm())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d\n%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if f.calls.Load() != 1 {
		t.Errorf("fetch calls = %d; want 1", f.calls.Load())
	}
	if got.StartParam() != "2025-02-01T00:00:00" || got.EndParam() != "2025-02-02T00:00:00" {
		t.Errorf("descriptor range = %s..%s", got.StartParam(), got.EndParam())
	}
	if got.VariablesParam() != "temperature,speed" {
		t.Errorf("variables = %q; want temperature,speed", got.VariablesParam())
	}
	if _, ok := holder.Current().(display.Success); !ok {
		t.Errorf("state = %T; want Success", holder.Current())
	}

	// The template escapes "+" in the raw offsets.
	body := html.UnescapeString(rec.Body.String())
	if n := strings.Count(body, `<tr class="row">`); n != 3 {
		t.Errorf("table rows = %d; want 3", n)
	}
	for _, want := range []string{
		`data-state="success"`,
		"2025-02-01T12:00:00+0100",
		"-1.2",
		"<svg",
		"3 records",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	first := strings.Index(body, "2025-02-01T12:00:00+0100")
	last := strings.Index(body, "2025-02-01T12:20:00+0100")
	if first < 0 || last < 0 || first > last {
		t.Error("rows not rendered in response order")
	}
}

func Test_handleQuery_ValidationError(t *testing.T) {
	f := &mockFetcher{}
	mux, holder := newTestMux(t, f)

	form := scenarioForm()
	form.Set("start", "2025-02-03T00:00")
	form.Set("end", "2025-02-02T00:00")
	rec := postQuery(mux, form)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if f.calls.Load() != 0 {
		t.Errorf("fetch calls = %d; want 0", f.calls.Load())
	}
	if _, ok := holder.Current().(display.Idle); !ok {
		t.Errorf("state = %T; want Idle", holder.Current())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-field="end">Start date must be before end date`) {
		t.Errorf("body missing end field error:\n%s", body)
	}
	if !strings.Contains(body, `value="2025-02-03T00:00"`) {
		t.Error("rejected start value not echoed back")
	}
}

func Test_handleQuery_MissingFields(t *testing.T) {
	f := &mockFetcher{}
	mux, _ := newTestMux(t, f)

	rec := postQuery(mux, url.Values{"station": {"12345"}})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if f.calls.Load() != 0 {
		t.Errorf("fetch calls = %d; want 0", f.calls.Load())
	}
	body := rec.Body.String()
	for _, field := range []string{"start", "end", "station", "location"} {
		if !strings.Contains(body, `data-field="`+field+`"`) {
			t.Errorf("body missing error for %s", field)
		}
	}
}

func Test_handleQuery_RemoteFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"station not found"}`))
	}))
	defer ts.Close()

	c, err := client.New(ts.URL, 0, nil)
	if err != nil {
		t.Fatalf("client.New() = %v", err)
	}
	mux, holder := newTestMux(t, c)

	rec := postQuery(mux, scenarioForm())

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadGateway)
	}
	failed, ok := holder.Current().(display.Failed)
	if !ok {
		t.Fatalf("state = %T; want Failed", holder.Current())
	}
	if failed.Message != "station not found" {
		t.Errorf("message = %q; want station not found", failed.Message)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `role="alert">station not found</div>`) {
		t.Errorf("body missing error banner:\n%s", body)
	}
	if strings.Contains(body, `<tr class="row">`) {
		t.Error("table rendered for failed query")
	}
}

func Test_handleQuery_ScenarioURL(t *testing.T) {
	var uri string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uri = r.URL.RequestURI()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	c, err := client.New(ts.URL, 0, nil)
	if err != nil {
		t.Fatalf("client.New() = %v", err)
	}
	mux, _ := newTestMux(t, c)

	rec := postQuery(mux, scenarioForm())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	want := "/antartida/datos/fechaini/2025-02-01T00:00:00/fechafin/2025-02-02T00:00:00/estacion/89064" +
		"?location=Europe%2FBerlin&aggregation=None&variables=temperature,speed"
	if uri != want {
		t.Errorf("request URI = %q; want %q", uri, want)
	}
	if !strings.Contains(rec.Body.String(), "No measurements for the selected range.") {
		t.Error("empty result message missing")
	}
}

func Test_handleQuery_BusyRejectsSecondSubmission(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &mockFetcher{fetch: func(context.Context, query.Descriptor) ([]types.Measurement, error) {
		close(started)
		<-release
		return nil, nil
	}}
	mux, holder := newTestMux(t, f)

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = postQuery(mux, scenarioForm())
	}()
	<-started

	if !holder.Busy() {
		t.Fatal("holder not busy while fetch in flight")
	}

	second := postQuery(mux, scenarioForm())
	if second.Code != http.StatusConflict {
		t.Errorf("second status = %d; want %d", second.Code, http.StatusConflict)
	}
	if !strings.Contains(second.Body.String(), "disabled>Querying…</button>") {
		t.Error("busy page does not disable the submit button")
	}

	partial := httptest.NewRecorder()
	mux.ServeHTTP(partial, httptest.NewRequest(http.MethodGet, "/partials/state", nil))
	if !strings.Contains(partial.Body.String(), `hx-get="/partials/state"`) {
		t.Error("loading partial does not poll")
	}
	if !strings.Contains(partial.Body.String(), `hx-swap-oob="true" disabled>Querying…</button>`) {
		t.Error("loading partial does not keep the submit button disabled")
	}

	close(release)
	wg.Wait()

	if first.Code != http.StatusOK {
		t.Errorf("first status = %d; want %d", first.Code, http.StatusOK)
	}
	if f.calls.Load() != 1 {
		t.Errorf("fetch calls = %d; want 1", f.calls.Load())
	}

	settled := httptest.NewRecorder()
	mux.ServeHTTP(settled, httptest.NewRequest(http.MethodGet, "/partials/state", nil))
	body := settled.Body.String()
	if strings.Contains(body, `hx-get="/partials/state"`) {
		t.Error("settled partial still polls")
	}
	if !strings.Contains(body, `<button type="submit" id="submit" hx-swap-oob="true">Query data</button>`) {
		t.Errorf("settled partial does not re-enable the submit button:\n%s", body)
	}
}

func Test_handleStatePartial(t *testing.T) {
	mux, _ := newTestMux(t, &mockFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/partials/state", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(strings.TrimSpace(body), `<section id="state" data-state="idle"`) {
		t.Errorf("body = %q; want state section", body)
	}
	if strings.Contains(body, "<form") {
		t.Error("partial contains the form")
	}
}
