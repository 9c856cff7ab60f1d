package review

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("roster/review")

// GitHubGateway drives the REST v3 flow against a GitHub-style platform:
// read the base ref, create a branch, put each file, open a pull request.
type GitHubGateway struct {
	client     *http.Client
	apiBase    string
	repo       string // owner/name
	baseBranch string
	token      string
}

// GitHubConfig configures a GitHubGateway.
type GitHubConfig struct {
	APIBase    string
	Repo       string
	BaseBranch string
	Token      string
	Timeout    time.Duration
}

func NewGitHubGateway(cfg GitHubConfig) *GitHubGateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &GitHubGateway{
		client:     &http.Client{Timeout: timeout},
		apiBase:    cfg.APIBase,
		repo:       cfg.Repo,
		baseBranch: cfg.BaseBranch,
		token:      cfg.Token,
	}
}

// BranchName derives a deterministic branch name from the edit contents so a
// retried submission lands on the same branch instead of opening a second
// review request.
func BranchName(edits []FileEdit) string {
	h := sha256.New()
	for _, edit := range edits {
		h.Write([]byte(edit.Path))
		h.Write([]byte{0})
		h.Write([]byte(edit.Content))
		h.Write([]byte{0})
	}
	return "roster-edit-" + hex.EncodeToString(h.Sum(nil))[:12]
}

// Submit opens a pull request containing the given file edits.
func (g *GitHubGateway) Submit(ctx context.Context, title string, edits []FileEdit) (ReviewRef, error) {
	branch := BranchName(edits)
	ctx, span := tracer.Start(ctx, "review.Submit", trace.WithAttributes(
		attribute.String("review.branch", branch),
		attribute.Int("review.file_count", len(edits)),
	))
	defer span.End()

	ref, err := g.submit(ctx, title, branch, edits)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return ReviewRef{}, err
	}
	span.SetAttributes(attribute.String("review.url", ref.URL))
	return ref, nil
}

func (g *GitHubGateway) submit(ctx context.Context, title, branch string, edits []FileEdit) (ReviewRef, error) {
	baseSHA, err := g.baseRef(ctx)
	if err != nil {
		return ReviewRef{}, err
	}
	if err := g.createBranch(ctx, branch, baseSHA); err != nil {
		return ReviewRef{}, err
	}
	for _, edit := range edits {
		if err := g.putFile(ctx, branch, title, edit); err != nil {
			return ReviewRef{}, err
		}
	}
	return g.openPullRequest(ctx, title, branch)
}

func (g *GitHubGateway) baseRef(ctx context.Context) (string, error) {
	var resp struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/repos/%s/git/ref/heads/%s", g.repo, g.baseBranch)
	if err := g.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Object.SHA, nil
}

func (g *GitHubGateway) createBranch(ctx context.Context, branch, sha string) error {
	body := map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": sha,
	}
	path := fmt.Sprintf("/repos/%s/git/refs", g.repo)
	err := g.do(ctx, http.MethodPost, path, body, nil)
	var ge *GatewayError
	if errors.As(err, &ge) && ge.Status == http.StatusUnprocessableEntity {
		// The branch name is content-derived, so an existing ref is a leftover
		// from an earlier partial attempt. Reset it to base and reuse it.
		return g.resetBranch(ctx, branch, sha)
	}
	return err
}

func (g *GitHubGateway) resetBranch(ctx context.Context, branch, sha string) error {
	body := map[string]any{
		"sha":   sha,
		"force": true,
	}
	path := fmt.Sprintf("/repos/%s/git/refs/heads/%s", g.repo, branch)
	return g.do(ctx, http.MethodPatch, path, body, nil)
}

func (g *GitHubGateway) putFile(ctx context.Context, branch, message string, edit FileEdit) error {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(edit.Content)),
		"branch":  branch,
	}
	// An existing file needs its blob SHA to be replaced.
	if sha, ok, err := g.existingFileSHA(ctx, edit.Path); err != nil {
		return err
	} else if ok {
		body["sha"] = sha
	}
	path := fmt.Sprintf("/repos/%s/contents/%s", g.repo, edit.Path)
	return g.do(ctx, http.MethodPut, path, body, nil)
}

func (g *GitHubGateway) existingFileSHA(ctx context.Context, filePath string) (string, bool, error) {
	var resp struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/contents/%s?ref=%s", g.repo, filePath, g.baseBranch)
	err := g.do(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		var ge *GatewayError
		if errors.As(err, &ge) && ge.Status == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return resp.SHA, true, nil
}

func (g *GitHubGateway) openPullRequest(ctx context.Context, title, branch string) (ReviewRef, error) {
	body := map[string]string{
		"title": title,
		"head":  branch,
		"base":  g.baseBranch,
	}
	var resp struct {
		HTMLURL string `json:"html_url"`
		Number  int    `json:"number"`
	}
	path := fmt.Sprintf("/repos/%s/pulls", g.repo)
	if err := g.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return ReviewRef{}, err
	}
	return ReviewRef{URL: resp.HTMLURL, ID: strconv.Itoa(resp.Number)}, nil
}

func (g *GitHubGateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.apiBase+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		// Network-level failures (timeouts, refused connections) are
		// retryable by definition.
		return &GatewayError{Transient: true, Message: "request failed", cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classify(resp.StatusCode, method+" "+path, payload)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &GatewayError{Transient: true, Message: "decode response", cause: err}
		}
	}
	return nil
}

// classify maps HTTP status codes onto the transient/permanent split: rate
// limiting and server errors are retryable, client errors (bad credentials,
// conflicting branch, validation rejections) are not.
func classify(status int, op string, body []byte) error {
	transient := status == http.StatusTooManyRequests || status >= 500
	message := op
	if len(body) > 0 {
		message = fmt.Sprintf("%s: %s", op, body)
	}
	return &GatewayError{Transient: transient, Status: status, Message: message}
}
