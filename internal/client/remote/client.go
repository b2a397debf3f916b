package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HuangJiaLian/Up2Git/internal/client/config"
	"github.com/HuangJiaLian/Up2Git/internal/common"
	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

// maxErrorBody caps how much of a rejection body is kept for diagnosis.
const maxErrorBody = 64 << 10

// RemoteObjectRef is what the store knows about a path. An empty RevisionID
// means no prior object was observed.
type RemoteObjectRef struct {
	Path       string
	RevisionID string
}

// Exists reports whether the lookup observed a revision.
func (r RemoteObjectRef) Exists() bool { return r.RevisionID != "" }

type contentsResponse struct {
	SHA string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// Client publishes files through the repository contents API.
type Client struct {
	cfg    config.Remote
	http   *http.Client
	logger logging.Logger
}

// NewClient builds a client for the given settings snapshot. When httpClient
// is nil a client bounded by cfg.Timeout is used.
func NewClient(cfg config.Remote, httpClient *http.Client, logger logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultRequestTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient, logger: logging.OrNop(logger)}
}

// Publish creates or replaces folder/filename on branch and returns its public
// URL. An existing object is replaced only with the revision observed by the
// lookup, so a concurrent change is rejected by the store instead of being
// overwritten silently.
func (c *Client) Publish(ctx context.Context, filename string, content []byte, folder, branch string) (string, error) {
	folder, branch = c.defaults(folder, branch)

	ref := c.Lookup(ctx, filename, folder, branch)

	body, err := json.Marshal(putRequest{
		Message: "Upload " + filename,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  branch,
		SHA:     ref.RevisionID,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPut, c.contentsURL(folder, filename, ""), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &common.TransportError{Op: "put " + ref.Path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn(ctx, "remote rejected upload",
			"path", ref.Path, "status", resp.StatusCode, "had_revision", ref.Exists())
		return "", &common.RemoteRejectedError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug(ctx, "upload stored",
		"path", ref.Path, "status", resp.StatusCode, "replaced", ref.Exists(), "elapsed", time.Since(start))

	return c.PublicURL(folder, branch, filename), nil
}

// Lookup fetches the current revision of folder/filename. Any failure,
// including transport errors and non-200 answers, is reported as "no prior
// object": a failed existence check must never block an upload.
//
// An unreachable but existing object is therefore attempted as a create,
// which the store rejects as a conflict.
func (c *Client) Lookup(ctx context.Context, filename, folder, branch string) RemoteObjectRef {
	folder, branch = c.defaults(folder, branch)
	ref := RemoteObjectRef{Path: folder + "/" + filename}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, c.contentsURL(folder, filename, branch), nil)
	if err != nil {
		c.logger.Debug(ctx, "lookup request", "path", ref.Path, "error", err)
		return ref
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "lookup failed, treating as new file", "path", ref.Path, "error", err)
		return ref
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug(ctx, "lookup found no object", "path", ref.Path, "status", resp.StatusCode)
		return ref
	}

	var cr contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		c.logger.Warn(ctx, "lookup response unreadable", "path", ref.Path, "error", err)
		return ref
	}

	ref.RevisionID = cr.SHA
	return ref
}

// PublicURL is the raw-content URL of folder/filename on branch.
func (c *Client) PublicURL(folder, branch, filename string) string {
	folder, branch = c.defaults(folder, branch)
	return PublicURL(c.cfg.RawBaseURL, c.cfg.Repository, branch, folder, filename)
}

// PublicURL builds {rawBase}/{repository}/{branch}/{folder}/{filename}.
func PublicURL(rawBase, repository, branch, folder, filename string) string {
	return strings.TrimRight(rawBase, "/") + "/" + strings.Join([]string{
		escapePath(repository), escapePath(branch), escapePath(folder), escapePath(filename),
	}, "/")
}

func (c *Client) contentsURL(folder, filename, ref string) string {
	u := c.cfg.APIBaseURL + "/repos/" + escapePath(c.cfg.Repository) +
		"/contents/" + escapePath(folder) + "/" + escapePath(filename)
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set(common.AuthorizationHeaderName, common.AuthorizationScheme+" "+c.cfg.Token)
	req.Header.Set("Accept", common.AcceptHeaderValue)
	return req, nil
}

func (c *Client) defaults(folder, branch string) (string, string) {
	if folder = strings.Trim(folder, "/"); folder == "" {
		folder = c.cfg.Folder
	}
	if branch == "" {
		branch = c.cfg.Branch
	}
	return folder, branch
}

// escapePath escapes every segment of a slash-separated path.
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
