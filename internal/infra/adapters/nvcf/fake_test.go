package nvcf

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const testKey = "nvapi-test-key"

// fakeNVCF is an in-memory stand-in for the asset store, the inference
// endpoint and the pexec status endpoint.
type fakeNVCF struct {
	t   *testing.T
	srv *httptest.Server

	mu sync.Mutex

	assetID      string // returned by allocation
	allocStatus  int
	uploadStatus int
	uploadDelay  time.Duration
	submitStatus int
	submitBody   []byte
	submitReqID  string
	pollStatuses []int
	pollBodies   map[int][]byte // attempt -> body

	allocBody    map[string]string
	uploaded     []byte
	uploadHeader http.Header
	submitted    inferenceBody
	submitHeader http.Header
	pollHits     int
	pollAuth     []string
}

func newFakeNVCF(t *testing.T) *fakeNVCF {
	t.Helper()
	f := &fakeNVCF{
		t:            t,
		assetID:      "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		allocStatus:  http.StatusOK,
		uploadStatus: http.StatusOK,
		submitStatus: http.StatusOK,
		submitBody:   []byte("PK-sync-archive"),
		submitReqID:  "req-123",
		pollBodies:   map[int][]byte{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/assets", f.handleAllocate)
	mux.HandleFunc("/upload/", f.handleUpload)
	mux.HandleFunc("/infer", f.handleSubmit)
	mux.HandleFunc("/status/", f.handleStatus)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeNVCF) options() Options {
	return Options{
		APIKey:          testKey,
		AssetsURL:       f.srv.URL + "/assets",
		InferenceURL:    f.srv.URL + "/infer",
		StatusURL:       f.srv.URL + "/status",
		AllocateTimeout: 2 * time.Second,
		UploadTimeout:   2 * time.Second,
		RequestTimeout:  2 * time.Second,
		PollDelay:       time.Millisecond,
		MaxRetries:      10,
	}
}

func (f *fakeNVCF) client() *Client {
	f.t.Helper()
	c, err := NewClient(f.options())
	if err != nil {
		f.t.Fatalf("NewClient: %v", err)
	}
	return c
}

func (f *fakeNVCF) handleAllocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		f.t.Errorf("allocate: unexpected method %s", r.Method)
	}
	if got := r.Header.Get("Authorization"); got != "Bearer "+testKey {
		f.t.Errorf("allocate: unexpected auth header %q", got)
	}
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.allocBody = body
	status, id := f.allocStatus, f.assetID
	f.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, "allocation refused", status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"uploadUrl": f.srv.URL + "/upload/" + id,
		"assetId":   id,
	})
}

func (f *fakeNVCF) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		f.t.Errorf("upload: unexpected method %s", r.Method)
	}
	b, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.uploaded = b
	f.uploadHeader = r.Header.Clone()
	status, delay := f.uploadStatus, f.uploadDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	w.WriteHeader(status)
}

func (f *fakeNVCF) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body inferenceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("submit: decode body: %v", err)
	}

	f.mu.Lock()
	f.submitted = body
	f.submitHeader = r.Header.Clone()
	status, payload, reqID := f.submitStatus, f.submitBody, f.submitReqID
	f.mu.Unlock()

	switch status {
	case http.StatusOK:
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(payload)
	case http.StatusAccepted:
		if reqID != "" {
			w.Header().Set(headerRequestID, reqID)
		}
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "detection failed: bad prompt", status)
	}
}

func (f *fakeNVCF) handleStatus(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.pollHits++
	attempt := f.pollHits
	f.pollAuth = append(f.pollAuth, r.Header.Get("Authorization"))
	status := http.StatusAccepted
	if attempt <= len(f.pollStatuses) {
		status = f.pollStatuses[attempt-1]
	}
	body := f.pollBodies[attempt]
	reqID := f.submitReqID
	f.mu.Unlock()

	if !strings.HasSuffix(r.URL.Path, "/"+reqID) {
		f.t.Errorf("status: unexpected path %s", r.URL.Path)
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (f *fakeNVCF) hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollHits
}

