package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"prospecting_backend/platform/logger"
)

type testConfig struct {
	url string
}

func (c testConfig) GetProviderAPIURL() string          { return c.url }
func (c testConfig) GetProviderAPIKey() string          { return "secret-key" }
func (c testConfig) GetProviderTimeout() time.Duration  { return 5 * time.Second }
func (c testConfig) GetProviderThrottle() time.Duration { return time.Millisecond }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testConfig{url: srv.URL}, logger.Discard())
}

func TestGetProfileSendsKeyAndKeepsRawPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "secret-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/api/v1/users/alice-smith" || r.URL.Query().Get("account_id") != "acc-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"provider_id":"ACo1","public_identifier":"alice-smith","first_name":"Alice","skills":[{"name":"Go","endorsement_count":3}]}`))
	})

	profile, err := client.GetProfile(context.Background(), "acc-1", "alice-smith")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.ProviderID != "ACo1" || profile.FirstName != "Alice" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if len(profile.Skills) != 1 || profile.Skills[0].Endorsements != 3 {
		t.Fatalf("unexpected skills: %+v", profile.Skills)
	}
	if !json.Valid(profile.Raw) || !strings.Contains(string(profile.Raw), "alice-smith") {
		t.Fatalf("expected raw payload to be kept")
	}
}

func TestGetProfileMapsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := client.GetProfile(context.Background(), "acc-1", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendInvitationMapsAlreadyInvited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":422,"type":"errors/already_invited_recently","title":"Already invited"}`))
	})

	if _, err := client.SendInvitation(context.Background(), "acc-1", "ACo1", "hi"); !errors.Is(err, ErrAlreadyInvited) {
		t.Fatalf("expected ErrAlreadyInvited, got %v", err)
	}
}

func TestSendInvitationReturnsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`boom`))
	})

	_, err := client.SendInvitation(context.Background(), "acc-1", "ACo1", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected APIError 500, got %v", err)
	}
}

func TestSearchProfilesCarriesCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body SearchCriteria
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Category != "people" || body.Keywords != "golang" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("cursor") != "page-2" || r.URL.Query().Get("limit") != "50" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"ACo9","public_identifier":"bob","name":"Bob B"}],"cursor":"page-3"}`))
	})

	page, err := client.SearchProfiles(context.Background(), "acc-1", SearchCriteria{Keywords: "golang"}, "page-2", 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Items) != 1 || page.Cursor != "page-3" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestGetAllPostReactionsFollowsCursorUntilLimit(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items := make([]PostReaction, 0, limit)
		for i := 0; i < 2 && i < limit; i++ {
			items = append(items, PostReaction{Value: "LIKE", Author: Author{ID: r.URL.Query().Get("cursor") + strconv.Itoa(i)}})
		}
		_ = json.NewEncoder(w).Encode(listPage[PostReaction]{Items: items, Cursor: "next" + strconv.Itoa(calls)})
	})

	reactions, err := client.GetAllPostReactions(context.Background(), "acc-1", "urn:li:activity:1", 5)
	if err != nil {
		t.Fatalf("reactions: %v", err)
	}
	if len(reactions) != 5 {
		t.Fatalf("expected 5 reactions, got %d", len(reactions))
	}
	if calls != 3 {
		t.Fatalf("expected 3 page calls, got %d", calls)
	}
}

func TestThrottleHonoursContextCancellation(t *testing.T) {
	client := NewClient(testConfig{url: "http://127.0.0.1:1"}, logger.Discard())
	client.limiter.SetLimit(0.0001)
	_ = client.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.GetProfile(ctx, "acc-1", "x"); err == nil {
		t.Fatalf("expected cancelled context to abort the throttle wait")
	}
}
