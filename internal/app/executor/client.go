package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codegrade/internal/common"
	"codegrade/internal/domain/model"

	"go.uber.org/zap"
)

const maxResponseBytes = 8 << 20

// Client is the contract of the external code execution service.
type Client interface {
	SubmitBatch(ctx context.Context, items []model.BatchItem) ([]string, error)
	AwaitResults(ctx context.Context, tokens []string) ([]model.ExecutionResult, error)
}

// Execute submits items and waits for all of them. Results keep item order.
// A caller deadline that expires while the judge is busy is a judge timeout.
func Execute(ctx context.Context, c Client, items []model.BatchItem) ([]model.ExecutionResult, error) {
	if len(items) == 0 {
		return nil, nil
	}
	tokens, err := c.SubmitBatch(ctx, items)
	if err != nil {
		return nil, deadlineAsJudgeTimeout(err)
	}
	results, err := c.AwaitResults(ctx, tokens)
	if err != nil {
		return nil, deadlineAsJudgeTimeout(err)
	}
	return results, nil
}

func deadlineAsJudgeTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, common.ErrJudgeTimeout) {
		return fmt.Errorf("%w: %w", common.ErrJudgeTimeout, err)
	}
	return err
}

type Judge0Config struct {
	URL             string // batch endpoint, e.g. https://judge0.example/submissions/batch
	APIKey          string
	APIHost         string
	PollInterval    time.Duration
	MaxPollAttempts int
	HTTPTimeout     time.Duration
}

type Judge0Client struct {
	cfg  Judge0Config
	http *http.Client
	log  *zap.Logger
}

func NewJudge0Client(cfg Judge0Config, log *zap.Logger) *Judge0Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 60
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Judge0Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
		log:  log,
	}
}

type judge0Submission struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type judge0BatchRequest struct {
	Submissions []judge0Submission `json:"submissions"`
}

type judge0TokenResponse struct {
	Token string `json:"token"`
}

type judge0Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type judge0Details struct {
	Token         string        `json:"token"`
	StatusID      *int          `json:"status_id"`
	Status        *judge0Status `json:"status"`
	Stdout        *string       `json:"stdout"`
	Stderr        *string       `json:"stderr"`
	CompileOutput *string       `json:"compile_output"`
	Time          flexFloat     `json:"time"`
	Memory        *int          `json:"memory"`
}

type judge0BatchResponse struct {
	Submissions []judge0Details `json:"submissions"`
}

// flexFloat accepts "0.012", 0.012 and null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid time value %s: %w", b, err)
	}
	*f = flexFloat(v)
	return nil
}

func (d judge0Details) statusID() int {
	if d.StatusID != nil {
		return *d.StatusID
	}
	if d.Status != nil {
		return d.Status.ID
	}
	return 0
}

func (d judge0Details) toResult() model.ExecutionResult {
	id := d.statusID()
	res := model.ExecutionResult{
		Token:    d.Token,
		StatusID: id,
		Status:   Classify(id),
		Time:     float64(d.Time),
	}
	if d.Stdout != nil {
		res.Stdout = *d.Stdout
	}
	if d.Stderr != nil {
		res.Stderr = *d.Stderr
	}
	if d.CompileOutput != nil {
		res.CompileOutput = *d.CompileOutput
	}
	if d.Memory != nil {
		res.Memory = *d.Memory
	}
	return res
}

func (c *Judge0Client) SubmitBatch(ctx context.Context, items []model.BatchItem) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	body := judge0BatchRequest{Submissions: make([]judge0Submission, len(items))}
	for i, it := range items {
		body.Submissions[i] = judge0Submission{
			SourceCode:     it.SourceCode,
			LanguageID:     it.LanguageID,
			Stdin:          it.Stdin,
			ExpectedOutput: it.ExpectedOutput,
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	u, err := c.endpoint(url.Values{"base64_encoded": {"false"}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("judge0 submit: %w: %w", common.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	var tokens []judge0TokenResponse
	if err := c.do(req, &tokens); err != nil {
		return nil, fmt.Errorf("judge0 submit: %w", err)
	}
	if len(tokens) != len(items) {
		return nil, fmt.Errorf("judge0 submit: got %d tokens for %d items: %w", len(tokens), len(items), common.ErrUpstreamUnavailable)
	}

	out := make([]string, len(tokens))
	for i, t := range tokens {
		if t.Token == "" {
			return nil, fmt.Errorf("judge0 submit: empty token at index %d: %w", i, common.ErrUpstreamUnavailable)
		}
		out[i] = t.Token
	}
	c.log.Debug("judge0 batch submitted", zap.Int("items", len(items)))
	return out, nil
}

// AwaitResults re-queries the whole token set until every result is terminal,
// at most MaxPollAttempts times.
func (c *Judge0Client) AwaitResults(ctx context.Context, tokens []string) ([]model.ExecutionResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	for attempt := 1; ; attempt++ {
		results, pending, err := c.fetch(ctx, tokens)
		if err != nil {
			return nil, err
		}
		if pending == 0 {
			c.log.Debug("judge0 batch finished", zap.Int("tokens", len(tokens)), zap.Int("polls", attempt))
			return results, nil
		}
		if attempt >= c.cfg.MaxPollAttempts {
			c.log.Warn("judge0 poll budget exhausted",
				zap.Int("tokens", len(tokens)), zap.Int("pending", pending), zap.Int("polls", attempt))
			return nil, fmt.Errorf("%d of %d cases still running after %d polls: %w",
				pending, len(tokens), attempt, common.ErrJudgeTimeout)
		}

		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Judge0Client) fetch(ctx context.Context, tokens []string) ([]model.ExecutionResult, int, error) {
	u, err := c.endpoint(url.Values{
		"tokens":         {strings.Join(tokens, ",")},
		"base64_encoded": {"false"},
		"fields":         {"*"},
	})
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("judge0 poll: %w: %w", common.ErrUpstreamUnavailable, err)
	}
	c.setAuthHeaders(req)

	var resp judge0BatchResponse
	if err := c.do(req, &resp); err != nil {
		return nil, 0, fmt.Errorf("judge0 poll: %w", err)
	}
	if len(resp.Submissions) != len(tokens) {
		return nil, 0, fmt.Errorf("judge0 poll: got %d results for %d tokens: %w",
			len(resp.Submissions), len(tokens), common.ErrUpstreamUnavailable)
	}

	// Positional order is trusted only when judge0 echoes no tokens at all.
	byToken := make(map[string]judge0Details, len(resp.Submissions))
	for _, d := range resp.Submissions {
		if d.Token != "" {
			byToken[d.Token] = d
		}
	}
	positional := len(byToken) == 0

	results := make([]model.ExecutionResult, len(tokens))
	pending := 0
	for i, tok := range tokens {
		d, ok := byToken[tok]
		if positional {
			d = resp.Submissions[i]
		} else if !ok {
			return nil, 0, fmt.Errorf("judge0 poll: no result for token %q: %w", tok, common.ErrUpstreamUnavailable)
		}
		if !IsTerminal(d.statusID()) {
			pending++
		}
		results[i] = d.toResult()
		results[i].Token = tok
	}
	return results, pending, nil
}

func (c *Judge0Client) endpoint(q url.Values) (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid judge0 url: %w", err)
	}
	existing := u.Query()
	for k, v := range q {
		existing[k] = v
	}
	u.RawQuery = existing.Encode()
	return u.String(), nil
}

func (c *Judge0Client) setAuthHeaders(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	}
	if c.cfg.APIHost != "" {
		req.Header.Set("x-rapidapi-host", c.cfg.APIHost)
	}
}

func (c *Judge0Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read body: %w: %w", common.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d: %w", resp.StatusCode, common.ErrUpstreamUnavailable)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed response: %w: %w", common.ErrUpstreamUnavailable, err)
	}
	return nil
}
