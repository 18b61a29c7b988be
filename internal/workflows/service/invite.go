package service

import (
	"context"
	"errors"

	leadsdomain "prospecting_backend/internal/leads/domain"
	"prospecting_backend/internal/leads/reconcile"
	"prospecting_backend/internal/provider"
	"prospecting_backend/internal/workflows/domain"
)

// reconcileItems hands items to the upsert engine. Invite workflows first
// send the invitations and upsert each item with its own outcome status.
func reconcileItems[T any](ctx context.Context, s *Service, r run, adapter reconcile.Adapter[T], items []T) []reconcile.ReconciledLead {
	if len(items) == 0 {
		return nil
	}
	if r.wf.Kind != domain.KindInvite {
		return reconcile.Upsert(ctx, s.orchestrator, adapter, items, r.req)
	}

	ids := make([]leadsdomain.Identifiers, len(items))
	for i, item := range items {
		ids[i] = adapter.Identifiers(item).Normalize()
	}
	invitable := s.orchestrator.Invitable(ctx, r.req, ids)

	// Outcomes by identity key, so a person listed twice is invited once.
	sent := make(map[string]leadsdomain.Status, len(items))
	invited := make([]reconcile.WithStatus[T], 0, len(items))
	for i, item := range items {
		status, ok := sentStatus(sent, ids[i])
		switch {
		case ok:
		case !invitable[i]:
			// Past the invite step already; upsert without a status row.
			r.log.Info("invitation skipped, lead already invited", "public_identifier", ids[i].Public)
			status = ""
		default:
			status = s.invite(ctx, r, ids[i])
		}
		for _, k := range identityKeys(ids[i]) {
			sent[k] = status
		}
		invited = append(invited, reconcile.WithStatus[T]{Item: item, Status: status})
	}
	return reconcile.Upsert(ctx, s.orchestrator, reconcile.StatusAdapter[T]{Inner: adapter}, invited, r.req)
}

func sentStatus(sent map[string]leadsdomain.Status, ids leadsdomain.Identifiers) (leadsdomain.Status, bool) {
	for _, k := range identityKeys(ids) {
		if status, ok := sent[k]; ok {
			return status, true
		}
	}
	return "", false
}

func identityKeys(ids leadsdomain.Identifiers) []string {
	keys := make([]string, 0, 2)
	if ids.Public != "" {
		keys = append(keys, "public:"+ids.Public)
	}
	if ids.Private != "" {
		keys = append(keys, "private:"+ids.Private)
	}
	return keys
}

// invite sends one connection request and reports its outcome. The
// provider needs the member id; a bare public slug is resolved first.
func (s *Service) invite(ctx context.Context, r run, ids leadsdomain.Identifiers) leadsdomain.Status {
	ids = ids.Normalize()
	if ids.Empty() {
		return leadsdomain.StatusInvitedFailed
	}

	target := ids.Private
	if target == "" {
		profile, err := s.provider.GetProfile(ctx, r.account.AccountID, ids.Public)
		if err != nil {
			r.log.ProviderError("resolve_invite_target", err, "identifier", ids.Public)
			return leadsdomain.StatusInvitedFailed
		}
		s.archive(ctx, r, "profile", ids.Public, profile.Raw)
		target = profile.ProviderID
	}
	if target == "" {
		r.log.Warn("invitation skipped, profile has no member id", "identifier", ids.Public)
		return leadsdomain.StatusInvitedFailed
	}

	_, err := s.provider.SendInvitation(ctx, r.account.AccountID, target, r.wf.InviteMessage)
	switch {
	case err == nil:
		return leadsdomain.StatusInvited
	case errors.Is(err, provider.ErrAlreadyInvited):
		return leadsdomain.StatusAlreadyInvited
	default:
		r.log.ProviderError("send_invitation", err, "provider_id", target)
		return leadsdomain.StatusInvitedFailed
	}
}
