package scheduling

import (
	"context"
	"log/slog"

	"counseldesk/internal/types"
)

// Directory abstracts the record lookups the resolver walks. Every method
// returns (nil, nil) for an absent record; the resolver treats both absence
// and lookup errors as "omit that recipient".
type Directory interface {
	CaseByID(ctx context.Context, id string) (*types.Case, error)
	ClientByID(ctx context.Context, id string) (*types.Client, error)
	LawyerByID(ctx context.Context, id string) (*types.Lawyer, error)
	UserByID(ctx context.Context, id string) (*types.User, error)
}

// RecipientResolver computes the set of users to notify for a hearing by
// following ownership edges: the case owner, the client's owner, the primary
// handler's owner, and the secondary handler's owner. Resolution happens at
// computation time on every call. Ownership is never cached, so a reassigned
// lawyer or client changes the recipient set immediately.
type RecipientResolver struct {
	dir    Directory
	logger *slog.Logger
}

// NewRecipientResolver creates a resolver over the given directory.
func NewRecipientResolver(dir Directory, logger *slog.Logger) *RecipientResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipientResolver{dir: dir, logger: logger}
}

// Resolve returns the deduplicated recipient user IDs for a hearing, in
// first-seen order. This is a best-effort relation walk, not a
// referential-integrity check: a missing client, an orphaned lawyer ID, or a
// failed lookup silently omits that recipient and never fails the caller.
func (r *RecipientResolver) Resolve(ctx context.Context, c *types.Case, h *types.Hearing) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(userID string) {
		if userID == "" {
			return
		}
		if _, dup := seen[userID]; dup {
			return
		}
		seen[userID] = struct{}{}
		out = append(out, userID)
	}

	if c != nil {
		add(c.OwnerUserID)

		if c.ClientID != "" {
			if client, err := r.dir.ClientByID(ctx, c.ClientID); err != nil {
				r.logger.DebugContext(ctx, "client lookup failed during recipient resolution",
					"client_id", c.ClientID,
					"error", err,
				)
			} else if client != nil {
				add(client.OwnerUserID)
			}
		}

		if c.LawyerID != "" {
			add(r.lawyerOwner(ctx, c.LawyerID))
		}
	}

	if h != nil && h.SecondaryLawyerID != nil {
		add(r.lawyerOwner(ctx, *h.SecondaryLawyerID))
	}

	return out
}

// TimeZones returns a userID -> IANA zone map for the given recipients,
// defaulting to UTC when the user is missing or has no zone set. Like
// Resolve, lookup failures degrade to the default rather than failing.
func (r *RecipientResolver) TimeZones(ctx context.Context, userIDs []string) map[string]string {
	zones := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		zones[id] = "UTC"

		u, err := r.dir.UserByID(ctx, id)
		if err != nil {
			r.logger.DebugContext(ctx, "user lookup failed during timezone resolution",
				"user_id", id,
				"error", err,
			)
			continue
		}
		if u != nil && u.TimeZone != "" {
			zones[id] = u.TimeZone
		}
	}
	return zones
}

// lawyerOwner resolves a lawyer record to its owning user, or "" when the
// edge is broken.
func (r *RecipientResolver) lawyerOwner(ctx context.Context, lawyerID string) string {
	l, err := r.dir.LawyerByID(ctx, lawyerID)
	if err != nil {
		r.logger.DebugContext(ctx, "lawyer lookup failed during recipient resolution",
			"lawyer_id", lawyerID,
			"error", err,
		)
		return ""
	}
	if l == nil {
		return ""
	}
	return l.OwnerUserID
}
