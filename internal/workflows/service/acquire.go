package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"prospecting_backend/internal/archive"
	leadsdomain "prospecting_backend/internal/leads/domain"
	"prospecting_backend/internal/leads/reconcile"
	"prospecting_backend/internal/provider"
	"prospecting_backend/internal/workflows/domain"
	"prospecting_backend/platform/logger"
)

const (
	defaultLeadListLimit = 1000
	engagementLimit      = 500
)

// run is the state shared by the acquisition paths of one run.
type run struct {
	wf      domain.Workflow
	account domain.Provider
	req     reconcile.UpsertRequest
	log     *logger.Logger
}

type acquisition struct {
	leads    []reconcile.ReconciledLead
	cursor   string
	criteria json.RawMessage
}

func (s *Service) acquire(ctx context.Context, r run, opts RunOptions) (acquisition, error) {
	switch r.wf.Source {
	case domain.SourceIdentifiers:
		return s.acquireIdentifiers(ctx, r, opts.Identifiers)
	case domain.SourceSearch:
		return s.acquireSearch(ctx, r)
	case domain.SourceLeadList:
		return s.acquireLeadList(ctx, r)
	case domain.SourceReactions:
		return s.acquireReactions(ctx, r)
	default:
		return acquisition{}, fmt.Errorf("unknown workflow source %q", r.wf.Source)
	}
}

// acquireIdentifiers fetches each profile in full. Profiles that cannot be
// fetched are skipped; the run fails only if none could be.
func (s *Service) acquireIdentifiers(ctx context.Context, r run, override []string) (acquisition, error) {
	identifiers := r.wf.Identifiers
	if len(override) > 0 {
		identifiers = override
	}
	identifiers = capItems(identifiers, r.wf.MaxResults)

	profiles := make([]provider.Profile, 0, len(identifiers))
	var lastErr error
	for _, identifier := range identifiers {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		profile, err := s.provider.GetProfile(ctx, r.account.AccountID, identifier)
		if err != nil {
			lastErr = err
			r.log.ProviderError("get_profile", err, "identifier", identifier)
			continue
		}
		s.archive(ctx, r, "profile", identifier, profile.Raw)
		profiles = append(profiles, profile)
	}
	if len(profiles) == 0 && lastErr != nil {
		return acquisition{}, fmt.Errorf("no profile could be fetched: %w", lastErr)
	}

	return acquisition{
		leads:  reconcileItems(ctx, s, r, reconcile.ProfileDetailAdapter{}, profiles),
		cursor: r.wf.Cursor,
	}, nil
}

// acquireSearch walks search pages from the stored cursor. A failing first
// page fails the run; a later failure keeps what was collected so far.
func (s *Service) acquireSearch(ctx context.Context, r run) (acquisition, error) {
	criteria, err := searchCriteria(r.wf)
	if err != nil {
		return acquisition{}, fmt.Errorf("decode search criteria: %w", err)
	}
	criteria = criteria.WithDefaults()
	used, err := json.Marshal(criteria)
	if err != nil {
		return acquisition{}, fmt.Errorf("encode search criteria: %w", err)
	}

	cursor := r.wf.Cursor
	collected := 0
	var leads []reconcile.ReconciledLead
	for page := 0; page < s.maxPages; page++ {
		limit := s.pageSize
		if r.wf.MaxResults > 0 && r.wf.MaxResults-collected < limit {
			limit = r.wf.MaxResults - collected
		}

		result, err := s.provider.SearchProfiles(ctx, r.account.AccountID, criteria, cursor, limit)
		if err != nil {
			if page == 0 {
				return acquisition{}, fmt.Errorf("fetch first search page: %w", err)
			}
			r.log.ProviderError("search_profiles", err, "page", page)
			break
		}

		items := capItems(result.Items, limit)
		leads = append(leads, reconcileItems(ctx, s, r, reconcile.SearchResultAdapter{}, items)...)
		collected += len(items)
		cursor = result.Cursor

		if cursor == "" || len(result.Items) == 0 {
			break
		}
		if r.wf.MaxResults > 0 && collected >= r.wf.MaxResults {
			break
		}
	}

	return acquisition{leads: leads, cursor: cursor, criteria: used}, nil
}

// acquireLeadList reuses the leads another workflow collected.
func (s *Service) acquireLeadList(ctx context.Context, r run) (acquisition, error) {
	limit := r.wf.MaxResults
	if limit <= 0 {
		limit = defaultLeadListLimit
	}
	source, err := s.leads.ListByWorkflow(ctx, *r.wf.SourceWorkflowID, r.wf.CompanyID, limit)
	if err != nil {
		return acquisition{}, fmt.Errorf("list source workflow leads: %w", err)
	}
	return acquisition{
		leads:  reconcileItems(ctx, s, r, reconcile.InternalLeadAdapter{}, source),
		cursor: r.wf.Cursor,
	}, nil
}

// acquireReactions turns everyone who commented on or reacted to the recent
// posts of the target into a lead carrying those engagements.
func (s *Service) acquireReactions(ctx context.Context, r run) (acquisition, error) {
	target := strings.TrimSpace(r.wf.TargetIdentifier)
	posts, err := s.provider.GetAllPosts(ctx, r.account.AccountID, target, s.postLimit)
	if err != nil {
		return acquisition{}, fmt.Errorf("list posts of %s: %w", target, err)
	}

	collector := newEngagementCollector()
	for _, post := range posts {
		if post.SocialID == "" {
			continue
		}

		comments, err := s.provider.GetAllPostComments(ctx, r.account.AccountID, post.SocialID, engagementLimit)
		if err != nil {
			r.log.ProviderError("get_post_comments", err, "post_id", post.ID)
		}
		for _, c := range comments {
			collector.addComment(post, c)
		}

		reactions, err := s.provider.GetAllPostReactions(ctx, r.account.AccountID, post.SocialID, engagementLimit)
		if err != nil {
			r.log.ProviderError("get_post_reactions", err, "post_id", post.ID)
		}
		for _, reaction := range reactions {
			collector.addReaction(post, reaction)
		}
	}

	items := capItems(collector.items, r.wf.MaxResults)
	r.log.Info("post engagement collected", "posts", len(posts), "authors", len(items))
	return acquisition{
		leads:  reconcileItems(ctx, s, r, reconcile.EngagementAdapter{}, items),
		cursor: r.wf.Cursor,
	}, nil
}

// engagementCollector groups engagements per author in first-seen order.
type engagementCollector struct {
	index map[string]int
	items []reconcile.Engagement
}

func newEngagementCollector() *engagementCollector {
	return &engagementCollector{index: make(map[string]int)}
}

func (c *engagementCollector) addComment(post provider.Post, comment provider.Comment) {
	if comment.ID == "" {
		return
	}
	c.add(comment.Author, leadsdomain.Reaction{
		ReactionID:  comment.ID,
		Kind:        leadsdomain.ReactionKindComment,
		PostID:      post.ID,
		PostURL:     post.ShareURL,
		CommentText: comment.Text,
		ReactedAt:   parseTimestamp(comment.Date),
	})
}

func (c *engagementCollector) addReaction(post provider.Post, reaction provider.PostReaction) {
	author := authorKey(reaction.Author)
	if author == "" {
		return
	}
	c.add(reaction.Author, leadsdomain.Reaction{
		ReactionID:   post.ID + ":" + author,
		Kind:         leadsdomain.ReactionKindReaction,
		PostID:       post.ID,
		PostURL:      post.ShareURL,
		ReactionType: reaction.Value,
	})
}

func (c *engagementCollector) add(author provider.Author, reaction leadsdomain.Reaction) {
	key := authorKey(author)
	if key == "" {
		return
	}
	i, ok := c.index[key]
	if !ok {
		i = len(c.items)
		c.index[key] = i
		c.items = append(c.items, reconcile.Engagement{Author: author})
	}
	c.items[i].Reactions = append(c.items[i].Reactions, reaction)
}

// authorKey prefers the stable provider id over the public slug.
func authorKey(a provider.Author) string {
	if id := strings.TrimSpace(a.ID); id != "" {
		return id
	}
	return leadsdomain.NormalizePublicIdentifier(a.PublicIdentifier)
}

func parseTimestamp(raw string) *time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &t
}

func (s *Service) archive(ctx context.Context, r run, kind, identifier string, body []byte) {
	if len(body) == 0 {
		return
	}
	_, err := s.archiver.Archive(ctx, archive.Payload{
		CompanyID:  r.wf.CompanyID,
		Kind:       kind,
		Identifier: identifier,
		Body:       body,
		FetchedAt:  s.now(),
	})
	if err != nil {
		r.log.Warn("archive provider payload failed", "kind", kind, "identifier", identifier, "error", err)
	}
}

func capItems[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
