package caller

import "context"

// Id of a caller, as established by the transport's authentication layer.
type Id string

// Identity describes who is making a request. Authenticated tells policy
// code whether credentials were presented and verified; authorization
// decisions are made separately, per table and operation.
type Identity struct {
	ID            Id
	Name          string
	Authenticated bool
	// Claims carries verified token claims for policies that want them.
	Claims map[string]interface{}
}

// Anonymous is the identity of a request that presented no credentials.
func Anonymous() Identity {
	return Identity{}
}

type contextKey struct{}

// WithIdentity attaches the identity to the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// FromContext returns the identity attached to the context, or the anonymous
// identity when none was attached.
func FromContext(ctx context.Context) Identity {
	if identity, ok := ctx.Value(contextKey{}).(Identity); ok {
		return identity
	}
	return Anonymous()
}
