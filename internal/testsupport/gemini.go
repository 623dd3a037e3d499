package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// GenerateFunc decides the reply for one generateContent call. The display
// name is the uploaded PDF's file name. A non-2xx status is written with body
// as-is; otherwise text becomes the single candidate part.
type GenerateFunc func(displayName string) (status int, text string)

// FakeGemini serves the subset of the Files and generateContent API the client
// uses. Each upload becomes ACTIVE immediately.
type FakeGemini struct {
	*httptest.Server

	mu       sync.Mutex
	names    map[string]string
	uploads  atomic.Int32
	generate atomic.Int32
	reply    GenerateFunc
}

// NewFakeGemini starts the server and registers its shutdown with t.
func NewFakeGemini(t testing.TB, reply GenerateFunc) *FakeGemini {
	t.Helper()
	if reply == nil {
		reply = func(name string) (int, string) {
			return http.StatusOK, "Summary of " + name
		}
	}
	fake := &FakeGemini{names: map[string]string{}, reply: reply}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Close)
	return fake
}

// Uploads reports how many files were uploaded.
func (f *FakeGemini) Uploads() int { return int(f.uploads.Load()) }

// Generations reports how many generateContent calls were served.
func (f *FakeGemini) Generations() int { return int(f.generate.Load()) }

func (f *FakeGemini) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/upload/v1beta/files":
		var start struct {
			File struct {
				DisplayName string `json:"display_name"`
			} `json:"file"`
		}
		_ = json.NewDecoder(r.Body).Decode(&start)
		id := fmt.Sprintf("f%d", f.uploads.Add(1))
		f.mu.Lock()
		f.names[id] = start.File.DisplayName
		f.mu.Unlock()
		w.Header().Set("X-Goog-Upload-URL", f.URL+"/session/"+id)
		w.WriteHeader(http.StatusOK)
	case strings.HasPrefix(r.URL.Path, "/session/"):
		id := strings.TrimPrefix(r.URL.Path, "/session/")
		_ = json.NewEncoder(w).Encode(map[string]any{"file": map[string]any{
			"name":     "files/" + id,
			"uri":      f.URL + "/v1beta/files/" + id,
			"mimeType": "application/pdf",
			"state":    "ACTIVE",
		}})
	case strings.HasSuffix(r.URL.Path, ":generateContent"):
		f.generate.Add(1)
		var req struct {
			Contents []struct {
				Parts []struct {
					FileData *struct {
						FileURI string `json:"file_uri"`
					} `json:"file_data"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		var id string
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 && req.Contents[0].Parts[0].FileData != nil {
			uri := req.Contents[0].Parts[0].FileData.FileURI
			id = uri[strings.LastIndex(uri, "/")+1:]
		}
		f.mu.Lock()
		name := f.names[id]
		f.mu.Unlock()

		status, text := f.reply(name)
		if status < 200 || status > 299 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(text))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": text}}},
				"finishReason": "STOP",
			}},
		})
	case strings.HasPrefix(r.URL.Path, "/v1beta/models/"):
		_, _ = w.Write([]byte(`{"name":"models/gemini-2.0-flash"}`))
	default:
		http.NotFound(w, r)
	}
}
