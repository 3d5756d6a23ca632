package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/muninn/pkg/archive"
	"github.com/ssargent/muninn/pkg/evt/evttest"
)

const testAPIKey = "test-key"

func testConfig() ServerConfig {
	return ServerConfig{Port: 8080, Bind: "127.0.0.1", APIKey: testAPIKey}
}

func openTestArchive(t *testing.T) *archive.Store {
	t.Helper()
	store, err := archive.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleLog() []byte {
	return evttest.BuildLog(
		evttest.RecordSpec{
			Number:        1,
			TimeGenerated: 1234567890,
			TimeWritten:   1234567890,
			EventID:       7036,
			EventType:     4,
			Source:        "Service Control Manager",
			Computer:      "WORKSTATION",
			Strings:       []string{"Print Spooler", "running"},
		},
		evttest.RecordSpec{
			Number:    2,
			EventID:   1102,
			EventType: 2,
			Source:    "Security",
			Computer:  "WORKSTATION",
			SID:       evttest.SID(1, 5, 18),
		},
	)
}

func doRequest(router http.Handler, method, target string, body []byte, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeParseResponse(t *testing.T, w *httptest.ResponseRecorder) ParseResponse {
	t.Helper()
	var envelope struct {
		Success bool          `json:"success"`
		Data    ParseResponse `json:"data"`
		Error   string        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "error: %s", envelope.Error)
	return envelope.Data
}

func TestHandleParse_CleanLog(t *testing.T) {
	router := NewRouter(NewServer(nil, testConfig(), nil), testConfig())

	w := doRequest(router, "POST", "/api/v1/parse", sampleLog(), testAPIKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeParseResponse(t, w)
	assert.Equal(t, "trusted_walk", resp.Strategy)
	assert.Empty(t, resp.Warning)
	assert.Equal(t, 2, resp.Expected)
	assert.Equal(t, 2, resp.Candidates)
	assert.Zero(t, resp.Skipped)
	require.Len(t, resp.Records, 2)

	first := resp.Records[0]
	assert.Equal(t, uint32(1), first.RecordNumber)
	assert.Equal(t, "2009-02-13T23:31:30Z", first.TimeGenerated)
	assert.Equal(t, uint16(7036), first.EventID)
	assert.Equal(t, "information", first.EventType)
	assert.Equal(t, []string{"Print Spooler", "running"}, first.Strings)

	assert.Equal(t, "S-1-5-18", resp.Records[1].UserSID)
}

func TestHandleParse_RejectsGarbage(t *testing.T) {
	router := NewRouter(NewServer(nil, testConfig(), nil), testConfig())

	w := doRequest(router, "POST", "/api/v1/parse", bytes.Repeat([]byte{0xAB}, 256), testAPIKey)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var envelope APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Error, "Not a recognizable event log")
}

func TestHandleParse_EmptyBody(t *testing.T) {
	router := NewRouter(NewServer(nil, testConfig(), nil), testConfig())

	w := doRequest(router, "POST", "/api/v1/parse", nil, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleParse_UploadCap(t *testing.T) {
	config := testConfig()
	config.MaxUploadBytes = 128
	router := NewRouter(NewServer(nil, config, nil), config)

	w := doRequest(router, "POST", "/api/v1/parse", sampleLog(), testAPIKey)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleParse_ArchivesWhenRequested(t *testing.T) {
	store := openTestArchive(t)
	router := NewRouter(NewServer(store, testConfig(), nil), testConfig())

	w := doRequest(router, "POST", "/api/v1/parse?archive=/logs/sys.evt", sampleLog(), testAPIKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	records, err := store.Records("/logs/sys.evt")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestHandleParse_ArchiveDisabled(t *testing.T) {
	router := NewRouter(NewServer(nil, testConfig(), nil), testConfig())

	w := doRequest(router, "POST", "/api/v1/parse?archive=/logs/sys.evt", sampleLog(), testAPIKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleArchiveRecords(t *testing.T) {
	store := openTestArchive(t)
	router := NewRouter(NewServer(store, testConfig(), nil), testConfig())

	w := doRequest(router, "POST", "/api/v1/parse?archive=/logs/sys.evt", sampleLog(), testAPIKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	tests := []struct {
		name   string
		target string
		status int
		count  int
	}{
		{"all records", "/api/v1/archive/records?source=/logs/sys.evt", http.StatusOK, 2},
		{"filtered", "/api/v1/archive/records?source=/logs/sys.evt&field=source&value=Security", http.StatusOK, 1},
		{"no matches", "/api/v1/archive/records?source=/logs/sys.evt&field=source&value=Nope", http.StatusOK, 0},
		{"unknown source", "/api/v1/archive/records?source=/logs/other.evt", http.StatusOK, 0},
		{"missing source", "/api/v1/archive/records", http.StatusBadRequest, 0},
		{"value without field", "/api/v1/archive/records?source=/logs/sys.evt&value=x", http.StatusBadRequest, 0},
		{"unknown field", "/api/v1/archive/records?source=/logs/sys.evt&field=nope&value=x", http.StatusBadRequest, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(router, "GET", tc.target, nil, testAPIKey)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.status != http.StatusOK {
				return
			}

			var envelope struct {
				Success bool                     `json:"success"`
				Data    []archive.ArchivedRecord `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			assert.Len(t, envelope.Data, tc.count)
		})
	}
}

func TestHandleListSources(t *testing.T) {
	store := openTestArchive(t)
	router := NewRouter(NewServer(store, testConfig(), nil), testConfig())

	w := doRequest(router, "GET", "/api/v1/archive/sources", nil, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool     `json:"success"`
		Data    []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data)

	doRequest(router, "POST", "/api/v1/parse?archive=/logs/sys.evt", sampleLog(), testAPIKey)

	w = doRequest(router, "GET", "/api/v1/archive/sources", nil, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"/logs/sys.evt"}, envelope.Data)
}
