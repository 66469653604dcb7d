package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/korjavin/dricalc/internal/calc"
	"github.com/korjavin/dricalc/internal/dataset"
	"github.com/korjavin/dricalc/internal/export"
	"github.com/korjavin/dricalc/internal/metrics"
	"github.com/korjavin/dricalc/internal/store"
	"github.com/korjavin/dricalc/internal/visits"
)

type stubCounter struct {
	total int64
	err   error
}

func (stubCounter) Hit(context.Context, string) error      { return nil }
func (c stubCounter) Total(context.Context) (int64, error) { return c.total, c.err }

func testServer(t *testing.T, apiKeys []string, counter visits.Counter) *httptest.Server {
	t.Helper()
	ds, err := dataset.Build([]*dataset.Table{{
		Tag:    "main",
		Header: []string{dataset.ColSampleName, dataset.ColCommonName, "熱量", "蛋白質", "鈉"},
		Rows: [][]string{
			{"地瓜", "番薯", "120", "1.3", ""},
			{"板豆腐", "傳統豆腐", "88", "8.5", "2"},
			{"嫩豆腐", "", "51", "4.9", "3"},
			{"雞胸肉", "", "104", "22.4", "49"},
		},
	}})
	require.NoError(t, err)

	s, err := store.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.PutDataset(ds))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Handler{
		Calc:   calc.New(ds),
		Store:  s,
		Visits: visits.NewTracker(counter, time.Second, logger),
	}
	mux := http.NewServeMux()
	RegisterRoutes(mux, apiKeys, h, metrics.NewRegistry())

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	srv := testServer(t, nil, nil)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 4, body["records"])
}

func TestNutrients(t *testing.T) {
	srv := testServer(t, nil, nil)
	resp, err := http.Get(srv.URL + "/api/v1/nutrients")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Nutrients []string `json:"nutrients"`
	}
	decode(t, resp, &body)
	assert.Equal(t, []string{"熱量", "蛋白質", "鈉"}, body.Nutrients)
}

func TestMatch(t *testing.T) {
	srv := testServer(t, nil, nil)
	resp := postJSON(t, srv.URL+"/api/v1/intake/match", map[string]string{
		"text": "豆腐 100g\n隨便打字\n地瓜葉 50g\n\n番薯 150g",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body matchResponse
	decode(t, resp, &body)
	assert.Equal(t, 1, body.DroppedLines)
	require.Len(t, body.Entries, 3)

	assert.Equal(t, "豆腐", body.Entries[0].Name)
	assert.Equal(t, 100.0, body.Entries[0].Grams)
	assert.Equal(t, []string{"板豆腐", "嫩豆腐"}, body.Entries[0].Candidates)

	assert.Empty(t, body.Entries[1].Candidates)
	assert.NotNil(t, body.Entries[1].Candidates)
	assert.Contains(t, body.Entries[1].Suggestions, "地瓜")

	assert.Equal(t, []string{"地瓜"}, body.Entries[2].Candidates)
	assert.Empty(t, body.Entries[2].Suggestions)
}

func TestMatch_NoEntries(t *testing.T) {
	srv := testServer(t, nil, nil)
	resp := postJSON(t, srv.URL+"/api/v1/intake/match", map[string]string{"text": "nothing here"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body errorResponse
	decode(t, resp, &body)
	assert.NotEmpty(t, body.Error)
}

func TestMatch_BadJSON(t *testing.T) {
	srv := testServer(t, nil, nil)
	resp, err := http.Post(srv.URL+"/api/v1/intake/match", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalculate(t *testing.T) {
	srv := testServer(t, nil, nil)
	resp := postJSON(t, srv.URL+"/api/v1/intake/calculate", calculateRequest{
		Text:      "地瓜 150g",
		Choices:   []string{"地瓜"},
		Nutrients: []string{"熱量", "鈉"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"columns":["樣品名稱","攝取量(g)","熱量","鈉"],"rows":[["地瓜",150,180,null],["總和",150,180,0]]}`,
		string(raw))
}

func TestCalculate_Errors(t *testing.T) {
	srv := testServer(t, nil, nil)
	tests := []struct {
		name string
		req  calculateRequest
		want int
	}{
		{"no entries", calculateRequest{Text: "", Nutrients: []string{"熱量"}}, http.StatusUnprocessableEntity},
		{"nothing usable", calculateRequest{Text: "外星食物 10g", Choices: []string{""}}, http.StatusUnprocessableEntity},
		{"missing choice", calculateRequest{Text: "豆腐 100g"}, http.StatusBadRequest},
		{"foreign choice", calculateRequest{Text: "豆腐 100g", Choices: []string{"地瓜"}}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/v1/intake/calculate", tc.req)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestExport(t *testing.T) {
	srv := testServer(t, nil, nil)
	resp := postJSON(t, srv.URL+"/api/v1/intake/export", calculateRequest{
		Text:      "豆腐 200g",
		Choices:   []string{"嫩豆腐"},
		Nutrients: []string{"蛋白質"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "filename*=UTF-8''"+url.PathEscape(export.FileName))

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"嫩豆腐", "200", "9.8"}, rows[1])
	assert.Equal(t, []string{"總和", "200", "9.8"}, rows[2])
}

func TestSuggest(t *testing.T) {
	srv := testServer(t, nil, nil)
	resp, err := http.Get(srv.URL + "/api/v1/samples/suggest?q=" + url.QueryEscape("豆腐"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results []string `json:"results"`
	}
	decode(t, resp, &body)
	assert.Contains(t, body.Results, "板豆腐")

	missing, err := http.Get(srv.URL + "/api/v1/samples/suggest")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestVisits(t *testing.T) {
	tests := []struct {
		name    string
		counter visits.Counter
		want    string
	}{
		{"available", stubCounter{total: 42}, `{"total":42}`},
		{"unavailable", stubCounter{err: errors.New("down")}, `{"total":null}`},
		{"not configured", nil, `{"total":null}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := testServer(t, nil, tc.counter)
			resp, err := http.Get(srv.URL + "/api/v1/visits")
			require.NoError(t, err)
			defer resp.Body.Close()
			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(raw))
		})
	}
}

func TestAPIKeyRequired(t *testing.T) {
	srv := testServer(t, []string{"secret"}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/nutrients")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/nutrients", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestMetricsRecorded(t *testing.T) {
	srv := testServer(t, nil, nil)
	postJSON(t, srv.URL+"/api/v1/intake/match", map[string]string{"text": "地瓜 10g"})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]struct {
		Total int64 `json:"total"`
	}
	decode(t, resp, &body)
	assert.EqualValues(t, 1, body["match"].Total)
}
