// Package remotetest provides an in-process contents API that enforces the
// optimistic-concurrency contract of the real store, for use in tests.
package remotetest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Object is a stored file.
type Object struct {
	SHA     string
	Content []byte
}

// Request records one call received by the server.
type Request struct {
	Method string
	Path   string
	Ref    string
	Auth   string
	SHA    string
	Branch string
}

// Server is a fake contents API. Objects are keyed by
// "<owner/name>/<branch>/<folder>/<filename>".
type Server struct {
	*httptest.Server

	// Token, when set, is required as "token <Token>" on every request.
	Token string
	// FailLookups makes every GET answer 500.
	FailLookups bool
	// OnLookup runs after a lookup is answered, before the response is sent.
	// Tests use it to mutate the store out of band.
	OnLookup func(key string)

	mu       sync.Mutex
	objects  map[string]Object
	requests []Request
}

// NewServer starts a server. Callers must Close it.
func NewServer() *Server {
	s := &Server{objects: make(map[string]Object)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// BlobSHA computes the git blob id of content.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Key builds the object key used by Seed and Object.
func Key(repo, branch, folder, filename string) string {
	return strings.Join([]string{repo, branch, strings.Trim(folder, "/"), filename}, "/")
}

// Seed stores content under key as if it had been committed out of band.
func (s *Server) Seed(key string, content []byte) Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := Object{SHA: BlobSHA(content), Content: append([]byte(nil), content...)}
	s.objects[key] = obj
	return obj
}

// Object returns the stored object for key.
func (s *Server) Object(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return o, ok
}

// Requests returns a copy of the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Puts returns the PUT calls received so far.
func (s *Server) Puts() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == http.MethodPut {
			out = append(out, r)
		}
	}
	return out
}

type putBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	rec := Request{Method: r.Method, Path: r.URL.Path, Ref: r.URL.Query().Get("ref"), Auth: r.Header.Get("Authorization")}

	repo, file, ok := splitContentsPath(r.URL.Path)
	if !ok {
		s.record(rec)
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	if s.Token != "" && rec.Auth != "token "+s.Token {
		s.record(rec)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.record(rec)
		s.lookup(w, repo, file, rec.Ref)
	case http.MethodPut:
		var body putBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.record(rec)
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Problems parsing JSON"})
			return
		}
		rec.SHA, rec.Branch = body.SHA, body.Branch
		s.record(rec)
		s.put(w, repo, file, body)
	default:
		s.record(rec)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) lookup(w http.ResponseWriter, repo, file, ref string) {
	if s.FailLookups {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
		return
	}
	if ref == "" {
		ref = "main"
	}
	key := repo + "/" + ref + "/" + file

	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()

	if s.OnLookup != nil {
		s.OnLookup(key)
	}

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sha": obj.SHA, "path": file, "type": "file"})
}

func (s *Server) put(w http.ResponseWriter, repo, file string, body putBody) {
	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "content is not valid Base64"})
		return
	}
	branch := body.Branch
	if branch == "" {
		branch = "main"
	}
	key := repo + "/" + branch + "/" + file

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.objects[key]
	switch {
	case exists && body.SHA == "":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": `Invalid request. "sha" wasn't supplied.`})
		return
	case exists && body.SHA != existing.SHA:
		writeJSON(w, http.StatusConflict, map[string]string{"message": fmt.Sprintf("%s does not match %s", file, body.SHA)})
		return
	case !exists && body.SHA != "":
		writeJSON(w, http.StatusConflict, map[string]string{"message": fmt.Sprintf("%s does not exist", file)})
		return
	}

	obj := Object{SHA: BlobSHA(content), Content: content}
	s.objects[key] = obj

	status := http.StatusCreated
	if exists {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"content": map[string]string{"sha": obj.SHA, "path": file}})
}

func (s *Server) record(r Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.mu.Unlock()
}

// splitContentsPath splits /repos/{owner}/{name}/contents/{path...}.
func splitContentsPath(p string) (repo, file string, ok bool) {
	rest, found := strings.CutPrefix(p, "/repos/")
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 4)
	if len(parts) != 4 || parts[2] != "contents" || parts[3] == "" {
		return "", "", false
	}
	return parts[0] + "/" + parts[1], parts[3], true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
