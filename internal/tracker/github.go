package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jayljohnson/nordhus.site/internal/faults"
)

const serviceName = "github"

// GitHubClient implements Gateway against the GitHub REST API.
type GitHubClient struct {
	owner      string
	repo       string
	token      string
	baseBranch string
	apiURL     string
	httpClient *http.Client
}

// NewGitHubClient creates a gateway for owner/repo. Pull requests target
// baseBranch; an empty value defaults to main.
func NewGitHubClient(owner, repo, token, baseBranch string) (*GitHubClient, error) {
	if token == "" {
		return nil, fmt.Errorf("github client requires a token")
	}
	if baseBranch == "" {
		baseBranch = "main"
	}
	return &GitHubClient{
		owner:      owner,
		repo:       repo,
		token:      token,
		baseBranch: baseBranch,
		apiURL:     "https://api.github.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type githubIssue struct {
	Number int `json:"number"`
}

type githubPull struct {
	Number int `json:"number"`
}

// CreateIssue opens a tracking issue labeled for construction projects.
func (c *GitHubClient) CreateIssue(ctx context.Context, title, body string) (int, error) {
	payload := map[string]any{
		"title":  title,
		"body":   body,
		"labels": []string{"construction", "auto-generated"},
	}
	var issue githubIssue
	if err := c.do(ctx, "create_issue", http.MethodPost, "issues", payload, &issue); err != nil {
		return 0, err
	}
	return issue.Number, nil
}

// OpenIntegrationRequest files a pull request from headBranch into the base
// branch and returns its number as the request id.
func (c *GitHubClient) OpenIntegrationRequest(ctx context.Context, title, body, headBranch string) (string, error) {
	payload := map[string]any{
		"title": title,
		"body":  body,
		"head":  headBranch,
		"base":  c.baseBranch,
	}
	var pr githubPull
	if err := c.do(ctx, "open_pull_request", http.MethodPost, "pulls", payload, &pr); err != nil {
		return "", err
	}
	return strconv.Itoa(pr.Number), nil
}

// Comment posts a comment to an issue or pull request.
func (c *GitHubClient) Comment(ctx context.Context, issueNumber int, text string) error {
	payload := map[string]string{"body": text}
	endpoint := fmt.Sprintf("issues/%d/comments", issueNumber)
	return c.do(ctx, "comment", http.MethodPost, endpoint, payload, nil)
}

func (c *GitHubClient) do(ctx context.Context, op, method, endpoint string, body, result any) error {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return err
	}
	u.Path = path.Join(u.Path, "repos", c.owner, c.repo, endpoint)

	var req *http.Request
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req, err = http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(string(jsonBody)))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return err
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "nordhus-site/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &faults.TransientServiceError{Service: serviceName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &faults.AuthorizationError{Service: serviceName, Op: op, Err: fmt.Errorf("%s", resp.Status)}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &faults.TransientServiceError{Service: serviceName, Op: op, Err: fmt.Errorf("%s", resp.Status)}
	case resp.StatusCode >= 400:
		return fmt.Errorf("github %s failed: %s", op, resp.Status)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}
