// Package tenancy carries the requesting organization's identity through
// request contexts. Every intake and booking record is scoped to an org.
package tenancy

import "context"

type ctxKey string

const orgKey ctxKey = "intake.org_id"

// WithOrgID stores the org id in context.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgKey, orgID)
}

// OrgIDFromContext extracts the org id if present.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(orgKey)
	if val == nil {
		return "", false
	}
	orgID, ok := val.(string)
	return orgID, ok && orgID != ""
}

// DefaultOrgID scopes records created outside an authenticated tenant
// context, such as local development and tests.
const DefaultOrgID = "default"

// OrgIDOrDefault returns the org id from context, or DefaultOrgID when absent.
func OrgIDOrDefault(ctx context.Context) string {
	if orgID, ok := OrgIDFromContext(ctx); ok {
		return orgID
	}
	return DefaultOrgID
}
