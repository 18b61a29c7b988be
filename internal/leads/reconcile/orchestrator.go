package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"prospecting_backend/internal/leads/domain"
	"prospecting_backend/platform/config"
	"prospecting_backend/platform/logger"
	"prospecting_backend/platform/metrics"
	"prospecting_backend/platform/phone"
	"prospecting_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency  = 10
	DefaultBatchTimeout = 10 * time.Minute
)

// Orchestrator upserts batches of candidates into canonical leads.
type Orchestrator struct {
	store        LeadStore
	resolver     *Resolver
	children     *childReconciler
	phones       *phone.Normalizer
	concurrency  int
	batchTimeout time.Duration
	now          func() time.Time
	log          *logger.Logger
}

func NewOrchestrator(store LeadStore, cfg config.ReconcileConfig, phones *phone.Normalizer, log *logger.Logger) *Orchestrator {
	concurrency := cfg.GetUpsertConcurrency()
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	timeout := cfg.GetUpsertBatchTimeout()
	if timeout <= 0 {
		timeout = DefaultBatchTimeout
	}
	if phones == nil {
		phones = phone.NewNormalizer("")
	}

	return &Orchestrator{
		store:        store,
		resolver:     NewResolver(store, cfg.GetIdentityBatchSize(), log),
		children:     &childReconciler{store: store, log: log},
		phones:       phones,
		concurrency:  concurrency,
		batchTimeout: timeout,
		now:          time.Now,
		log:          log,
	}
}

// Upsert maps items through adapter and reconciles them as one batch.
// Items that fail to map or to persist are logged and left out of the
// result; Upsert itself never fails.
func Upsert[T any](ctx context.Context, o *Orchestrator, adapter Adapter[T], items []T, req UpsertRequest) []ReconciledLead {
	started := time.Now()
	defer func() {
		metrics.UpsertBatchDuration.WithLabelValues(adapter.Name()).Observe(time.Since(started).Seconds())
	}()

	log := o.log.WithContext(ctx)
	candidates := make([]LeadCandidate, 0, len(items))
	for i, item := range items {
		candidate, err := adapter.Candidate(item)
		if err != nil {
			ids := adapter.Identifiers(item)
			log.Warn("skipping unmappable profile", "adapter", adapter.Name(), "index", i,
				"public_identifier", ids.Public, "error", err)
			metrics.LeadsReconciled.WithLabelValues("skipped").Inc()
			continue
		}
		candidates = append(candidates, candidate)
	}

	return o.upsertCandidates(ctx, adapter.Name(), candidates, req)
}

// Invitable reports, per item, whether sending an invitation can still move
// the person forward: unknown leads and leads whose latest status would let
// INVITED be recorded. A failed status read counts as invitable.
func (o *Orchestrator) Invitable(ctx context.Context, req UpsertRequest, ids []domain.Identifiers) []bool {
	out := make([]bool, len(ids))
	normalized := make([]domain.Identifiers, len(ids))
	for i, id := range ids {
		normalized[i] = id.Normalize()
		out[i] = true
	}

	log := o.log.WithContext(ctx)
	for i, leadID := range o.resolver.Resolve(ctx, req.scope(), normalized) {
		latest, err := o.store.LatestStatus(ctx, leadID)
		if err != nil {
			log.DatabaseError("load_latest_status", err, "lead_id", leadID)
			continue
		}
		out[i] = domain.ShouldRecordStatus(latest, domain.StatusInvited)
	}
	return out
}

func (o *Orchestrator) upsertCandidates(ctx context.Context, adapterName string, candidates []LeadCandidate, req UpsertRequest) []ReconciledLead {
	log := o.log.WithContext(ctx).With("adapter", adapterName, "workflow_id", req.WorkflowID.String())

	for i := range candidates {
		o.prepare(&candidates[i])
	}
	candidates = mergeBatchDuplicates(log, candidates)
	if len(candidates) == 0 {
		return []ReconciledLead{}
	}

	identifiers := make([]domain.Identifiers, len(candidates))
	for i, c := range candidates {
		identifiers[i] = c.Lead.Identifiers()
	}
	resolved := o.resolver.Resolve(ctx, req.scope(), identifiers)

	deadline := o.now().Add(o.batchTimeout)
	slots := make([]*ReconciledLead, len(candidates))
	var notStarted atomic.Int64

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i := range candidates {
		g.Go(func() error {
			if ctx.Err() != nil || !o.now().Before(deadline) {
				notStarted.Add(1)
				return nil
			}

			var existing *uuid.UUID
			if id, ok := resolved[i]; ok {
				existing = &id
			}

			result, err := o.upsertOne(ctx, req, candidates[i], existing)
			if err != nil {
				ids := identifiers[i]
				log.DatabaseError("upsert_lead", err, "public_identifier", ids.Public, "private_identifier", ids.Private)
				metrics.LeadsReconciled.WithLabelValues("failed").Inc()
				return nil
			}
			slots[i] = result
			return nil
		})
	}
	_ = g.Wait()

	if n := notStarted.Load(); n > 0 {
		log.Warn("upsert batch stopped early", "not_started", n, "batch_size", len(candidates),
			"timeout", o.batchTimeout.String(), "context_error", ctx.Err())
		metrics.LeadsReconciled.WithLabelValues("skipped").Add(float64(n))
	}

	results := make([]ReconciledLead, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results
}

func (o *Orchestrator) upsertOne(ctx context.Context, req UpsertRequest, candidate LeadCandidate, existing *uuid.UUID) (*ReconciledLead, error) {
	lead := candidate.Lead
	lead.CompanyID = req.CompanyID
	lead.ProviderID = req.ProviderID

	stored, created, err := o.saveLead(ctx, req, lead, existing)
	if err != nil {
		return nil, err
	}
	log := o.log.WithContext(ctx).With("lead_id", stored.ID.String())

	if err := o.store.LinkWorkflow(ctx, req.WorkflowID, stored.ID, req.CompanyID); err != nil {
		log.DatabaseError("link_lead_workflow", err)
	}

	status := req.Status
	if candidate.Status != nil {
		status = *candidate.Status
	}
	recorded := false
	if status != "" {
		ok, err := o.store.AppendStatus(ctx, domain.LeadStatus{
			LeadID:     stored.ID,
			WorkflowID: req.WorkflowID,
			CompanyID:  req.CompanyID,
			Status:     status,
		})
		switch {
		case err != nil:
			log.DatabaseError("append_lead_status", err, "status", string(status))
		case ok:
			recorded = true
			metrics.StatusesRecorded.WithLabelValues(string(status), "recorded").Inc()
		default:
			metrics.StatusesRecorded.WithLabelValues(string(status), "suppressed").Inc()
		}
	}

	inserted := o.children.reconcile(ctx, stored.ID, candidate.Children)

	outcome := "updated"
	if created {
		outcome = "created"
	}
	metrics.LeadsReconciled.WithLabelValues(outcome).Inc()

	return &ReconciledLead{
		Lead:           stored,
		Created:        created,
		Status:         status,
		StatusRecorded: recorded,
		Inserted:       inserted,
	}, nil
}

// saveLead updates the resolved lead or inserts a new one. An insert that
// collides with a row created concurrently is retried as an update of that row.
func (o *Orchestrator) saveLead(ctx context.Context, req UpsertRequest, lead domain.Lead, existing *uuid.UUID) (domain.Lead, bool, error) {
	if existing != nil {
		lead.ID = *existing
		updated, err := o.store.UpdateLead(ctx, lead)
		if err == nil {
			return updated, false, nil
		}
		if !errors.Is(err, domain.ErrLeadNotFound) {
			return domain.Lead{}, false, err
		}
		lead.ID = uuid.Nil
	}

	created, err := o.store.InsertLead(ctx, lead)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, domain.ErrLeadExists) {
		return domain.Lead{}, false, err
	}

	resolved := o.resolver.Resolve(ctx, req.scope(), []domain.Identifiers{lead.Identifiers()})
	id, ok := resolved[0]
	if !ok {
		return domain.Lead{}, false, err
	}
	lead.ID = id
	updated, err := o.store.UpdateLead(ctx, lead)
	if err != nil {
		return domain.Lead{}, false, err
	}
	return updated, false, nil
}

// prepare brings a candidate into stored form: normalised identifiers,
// markup-free text and E.164 phones.
func (o *Orchestrator) prepare(c *LeadCandidate) {
	l := &c.Lead
	l.SetIdentifiers(l.Identifiers().Normalize())
	l.FirstName = sanitize.LinePtr(l.FirstName)
	l.LastName = sanitize.LinePtr(l.LastName)
	l.Headline = sanitize.LinePtr(l.Headline)
	l.Location = sanitize.LinePtr(l.Location)
	l.Phones = o.phones.All(l.Phones)
	l.Emails = normalizeEmails(l.Emails)

	for i := range c.Children.WorkExperiences {
		c.Children.WorkExperiences[i].Description = sanitize.Text(c.Children.WorkExperiences[i].Description)
	}
	for i := range c.Children.Volunteering {
		c.Children.Volunteering[i].Description = sanitize.Text(c.Children.Volunteering[i].Description)
	}
	for i := range c.Children.Projects {
		c.Children.Projects[i].Description = sanitize.Text(c.Children.Projects[i].Description)
	}
	for i := range c.Children.Reactions {
		c.Children.Reactions[i].CommentText = sanitize.Text(c.Children.Reactions[i].CommentText)
	}
}

func normalizeEmails(emails []string) []string {
	if len(emails) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// mergeBatchDuplicates folds candidates that share an identifier into the
// earliest of them, so one batch never inserts the same person twice and
// no item's details or reactions are lost.
func mergeBatchDuplicates(log *logger.Logger, candidates []LeadCandidate) []LeadCandidate {
	out := make([]LeadCandidate, 0, len(candidates))
	merged := make([]bool, 0, len(candidates))
	owner := make(map[string]int, len(candidates)*2)

	for _, c := range candidates {
		keys := identityKeys(c.Lead.Identifiers())
		if len(keys) == 0 {
			continue
		}

		target := -1
		for _, k := range keys {
			if i, ok := owner[k]; ok && (target == -1 || i < target) {
				target = i
			}
		}
		if target == -1 {
			out = append(out, c)
			merged = append(merged, false)
			target = len(out) - 1
		} else {
			ids := c.Lead.Identifiers()
			log.Info("merging duplicate profile in batch", "public_identifier", ids.Public, "private_identifier", ids.Private)
			mergeCandidate(&out[target], c)
			// c may bridge two earlier candidates, e.g. one known by slug
			// and one by member id.
			for _, k := range keys {
				i, ok := owner[k]
				if !ok || i == target || merged[i] {
					continue
				}
				mergeCandidate(&out[target], out[i])
				merged[i] = true
				for key, j := range owner {
					if j == i {
						owner[key] = target
					}
				}
			}
		}
		for _, k := range identityKeys(out[target].Lead.Identifiers()) {
			owner[k] = target
		}
	}

	kept := out[:0]
	for i, c := range out {
		if !merged[i] {
			kept = append(kept, c)
		}
	}
	return kept
}

func identityKeys(ids domain.Identifiers) []string {
	keys := make([]string, 0, 2)
	if ids.Public != "" {
		keys = append(keys, "public:"+ids.Public)
	}
	if ids.Private != "" {
		keys = append(keys, "private:"+ids.Private)
	}
	return keys
}

// mergeCandidate completes dst with what src knows: nil lead fields and
// empty static child kinds are taken from src, contact lists and reactions
// are unioned. Known values of dst are never replaced.
func mergeCandidate(dst *LeadCandidate, src LeadCandidate) {
	d, s := &dst.Lead, src.Lead
	fill(&d.PublicIdentifier, s.PublicIdentifier)
	fill(&d.PrivateIdentifier, s.PrivateIdentifier)
	fill(&d.FirstName, s.FirstName)
	fill(&d.LastName, s.LastName)
	fill(&d.Headline, s.Headline)
	fill(&d.Location, s.Location)
	fill(&d.NetworkDistance, s.NetworkDistance)
	fill(&d.ProfilePictureURL, s.ProfilePictureURL)
	fill(&d.IsHiring, s.IsHiring)
	fill(&d.IsOpenToWork, s.IsOpenToWork)
	fill(&d.CanSendInMail, s.CanSendInMail)
	fill(&d.IsInfluencer, s.IsInfluencer)
	fill(&d.IsCreator, s.IsCreator)
	fill(&d.ConnectionsCount, s.ConnectionsCount)
	fill(&d.FollowerCount, s.FollowerCount)
	fill(&d.SharedConnectionsCount, s.SharedConnectionsCount)
	d.Emails = union(d.Emails, s.Emails)
	d.Phones = union(d.Phones, s.Phones)
	d.Addresses = union(d.Addresses, s.Addresses)

	dc, sc := &dst.Children, src.Children
	fillSlice(&dc.WorkExperiences, sc.WorkExperiences)
	fillSlice(&dc.Volunteering, sc.Volunteering)
	fillSlice(&dc.Educations, sc.Educations)
	fillSlice(&dc.Skills, sc.Skills)
	fillSlice(&dc.Languages, sc.Languages)
	fillSlice(&dc.Certifications, sc.Certifications)
	fillSlice(&dc.Projects, sc.Projects)
	dc.Reactions = append(dc.Reactions, sc.Reactions...)

	if dst.Status == nil {
		dst.Status = src.Status
	}
}

func fill[T any](dst **T, src *T) {
	if *dst == nil && src != nil {
		*dst = src
	}
}

func fillSlice[T any](dst *[]T, src []T) {
	if len(*dst) == 0 && len(src) > 0 {
		*dst = src
	}
}

func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range append(append([]string{}, a...), b...) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
