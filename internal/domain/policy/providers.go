package policy

import (
	"context"

	"github.com/taules/taules/internal/domain/caller"
	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
)

// Open allows everything to everyone. The default for tables that declare
// no policy.
type Open struct{}

func (p Open) DataView(ctx context.Context, identity caller.Identity) query.Condition {
	return query.Everything()
}

func (p Open) Authorize(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error {
	return nil
}

func (p Open) BeforeCommit(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error {
	return nil
}

// RequireAuth denies anonymous callers. With AllowAnonymousRead set, QUERY
// and READ stay open and only writes require credentials.
type RequireAuth struct {
	AllowAnonymousRead bool
}

func (p RequireAuth) DataView(ctx context.Context, identity caller.Identity) query.Condition {
	return query.Everything()
}

func (p RequireAuth) Authorize(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error {
	if identity.Authenticated {
		return nil
	}
	if p.AllowAnonymousRead && !op.IsWrite() {
		return nil
	}
	return Denied{
		Op:        op,
		Reason:    "authentication required",
		Anonymous: true,
	}
}

func (p RequireAuth) BeforeCommit(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error {
	return nil
}

// Personal scopes every caller to their own records: the data view only
// admits records whose OwnerField equals the caller id, and writes get the
// owner stamped server side, overriding whatever the client sent.
type Personal struct {
	OwnerField string
}

func (p Personal) DataView(ctx context.Context, identity caller.Identity) query.Condition {
	if !identity.Authenticated {
		return query.Nothing()
	}
	return query.Where(p.OwnerField, query.Equals, string(identity.ID))
}

func (p Personal) Authorize(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error {
	if !identity.Authenticated {
		return Denied{
			Op:        op,
			Reason:    "authentication required",
			Anonymous: true,
		}
	}
	return nil
}

func (p Personal) BeforeCommit(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error {
	if rec != nil && (op == CREATE || op == REPLACE) {
		if rec.Attributes == nil {
			rec.Attributes = record.Attributes{}
		}
		rec.Attributes[p.OwnerField] = string(identity.ID)
	}
	return nil
}

// Approval gates visibility on a boolean flag field: everyone sees approved
// records, authenticated callers additionally see their own (when OwnerField
// is set). Writes require credentials and new records always start
// unapproved; flipping the flag is an ordinary replace by whoever the
// deployment trusts to do so.
type Approval struct {
	FlagField  string
	OwnerField string
}

func (p Approval) DataView(ctx context.Context, identity caller.Identity) query.Condition {
	approved := query.Where(p.FlagField, query.Equals, true)
	if identity.Authenticated && p.OwnerField != "" {
		return query.Or(
			approved,
			query.Where(p.OwnerField, query.Equals, string(identity.ID)),
		)
	}
	return approved
}

func (p Approval) Authorize(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error {
	if op.IsWrite() && !identity.Authenticated {
		return Denied{
			Op:        op,
			Reason:    "authentication required",
			Anonymous: true,
		}
	}
	return nil
}

func (p Approval) BeforeCommit(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error {
	if rec == nil {
		return nil
	}
	if rec.Attributes == nil {
		rec.Attributes = record.Attributes{}
	}
	if op == CREATE {
		rec.Attributes[p.FlagField] = false
	}
	if p.OwnerField != "" && (op == CREATE || op == REPLACE) {
		rec.Attributes[p.OwnerField] = string(identity.ID)
	}
	return nil
}
