package provider

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

	"prospecting_backend/platform/config"
	"prospecting_backend/platform/logger"
	"prospecting_backend/platform/metrics"

	"golang.org/x/time/rate"
)

const (
	maxListPageSize = 100
	maxErrorBody    = 4 << 10
)

var (
	// ErrAlreadyInvited is returned by SendInvitation when the person already
	// has a pending invitation from the account.
	ErrAlreadyInvited = errors.New("already invited")
	// ErrNotFound is returned when the profile or post does not exist.
	ErrNotFound = errors.New("provider resource not found")
)

// APIError is a non-2xx response from the provider API.
type APIError struct {
	Status int    `json:"status"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	msg := e.Title
	if e.Detail != "" {
		msg = e.Detail
	}
	return fmt.Sprintf("provider api %d %s: %s", e.Status, e.Type, msg)
}

// Client talks to the provider API. Calls that hit LinkedIn on the
// account's behalf (profile fetch, search page, invitation) share one
// limiter; Wait only blocks the calling goroutine.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a client from cfg.
func NewClient(cfg config.ProviderConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GetProviderAPIURL(), "/"),
		apiKey:  cfg.GetProviderAPIKey(),
		http:    &http.Client{Timeout: cfg.GetProviderTimeout()},
		limiter: rate.NewLimiter(rate.Every(cfg.GetProviderThrottle()), 1),
		log:     log,
	}
}

// GetProfile fetches the full profile of identifier (public slug or
// provider id) including all sections.
func (c *Client) GetProfile(ctx context.Context, accountID, identifier string) (Profile, error) {
	if err := c.throttle(ctx); err != nil {
		return Profile{}, err
	}

	query := url.Values{"account_id": {accountID}, "linkedin_sections": {"*"}}
	var raw json.RawMessage
	if err := c.do(ctx, "get_profile", http.MethodGet, "/api/v1/users/"+url.PathEscape(identifier), query, nil, &raw); err != nil {
		return Profile{}, err
	}

	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	profile.Raw = raw
	return profile, nil
}

// SearchProfiles fetches one page of people matching criteria. Pass the
// cursor of the previous page to continue.
func (c *Client) SearchProfiles(ctx context.Context, accountID string, criteria SearchCriteria, cursor string, limit int) (SearchPage, error) {
	if err := c.throttle(ctx); err != nil {
		return SearchPage{}, err
	}

	query := url.Values{"account_id": {accountID}, "limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var page SearchPage
	if err := c.do(ctx, "search_profiles", http.MethodPost, "/api/v1/linkedin/search", query, criteria.WithDefaults(), &page); err != nil {
		return SearchPage{}, err
	}
	return page, nil
}

// SendInvitation sends a connection request to providerID. A pending
// invitation maps to ErrAlreadyInvited.
func (c *Client) SendInvitation(ctx context.Context, accountID, providerID, message string) (Invitation, error) {
	if err := c.throttle(ctx); err != nil {
		return Invitation{}, err
	}

	body := map[string]string{"account_id": accountID, "provider_id": providerID}
	if message != "" {
		body["message"] = message
	}

	var inv Invitation
	err := c.do(ctx, "send_invitation", http.MethodPost, "/api/v1/users/invite", nil, body, &inv)
	var apiErr *APIError
	if errors.As(err, &apiErr) && isAlreadyInvited(apiErr) {
		return Invitation{}, ErrAlreadyInvited
	}
	return inv, err
}

// GetAllPosts lists up to limit recent posts of identifier.
func (c *Client) GetAllPosts(ctx context.Context, accountID, identifier string, limit int) ([]Post, error) {
	return listAll[Post](ctx, c, "get_posts", "/api/v1/users/"+url.PathEscape(identifier)+"/posts", accountID, limit)
}

// GetAllPostComments lists up to limit comments of the post with socialID.
func (c *Client) GetAllPostComments(ctx context.Context, accountID, socialID string, limit int) ([]Comment, error) {
	return listAll[Comment](ctx, c, "get_post_comments", "/api/v1/posts/"+url.PathEscape(socialID)+"/comments", accountID, limit)
}

// GetAllPostReactions lists up to limit reactions of the post with socialID.
func (c *Client) GetAllPostReactions(ctx context.Context, accountID, socialID string, limit int) ([]PostReaction, error) {
	return listAll[PostReaction](ctx, c, "get_post_reactions", "/api/v1/posts/"+url.PathEscape(socialID)+"/reactions", accountID, limit)
}

func listAll[T any](ctx context.Context, c *Client, op, path, accountID string, limit int) ([]T, error) {
	items := make([]T, 0)
	cursor := ""
	for limit <= 0 || len(items) < limit {
		pageSize := maxListPageSize
		if limit > 0 && limit-len(items) < pageSize {
			pageSize = limit - len(items)
		}

		query := url.Values{"account_id": {accountID}, "limit": {strconv.Itoa(pageSize)}}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var page listPage[T]
		if err := c.do(ctx, op, http.MethodGet, path, query, nil, &page); err != nil {
			return items, err
		}
		items = append(items, page.Items...)

		if page.Cursor == "" || len(page.Items) == 0 {
			break
		}
		cursor = page.Cursor
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, query, body, out)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if !errors.Is(err, ErrNotFound) {
			c.log.WithContext(ctx).ProviderError(op, err, "path", path, "duration_ms", time.Since(start).Milliseconds())
		}
	}
	metrics.ProviderCalls.WithLabelValues(op, outcome).Inc()
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Type == "" {
		apiErr.Type = "errors/unexpected"
		apiErr.Title = strings.TrimSpace(string(data))
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}

func isAlreadyInvited(err *APIError) bool {
	t := strings.ToLower(err.Type)
	return strings.Contains(t, "already_invited") || strings.Contains(t, "cannot_resend_yet")
}
