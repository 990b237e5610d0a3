package accesscontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/safetypulse/safetypulse/pkg/cache"
	"github.com/safetypulse/safetypulse/pkg/observability"
)

// DefaultScanLimit bounds the fallback full-table scan.
const DefaultScanLimit = 1000

// UserRoleStore is the read-only user-table collaborator. GetUserRole
// returns (nil, nil) when no row exists for the email.
type UserRoleStore interface {
	GetUserRole(ctx context.Context, email string) (*UserRoleRecord, error)
	ListUserRoles(ctx context.Context, limit int) ([]UserRoleRecord, error)
}

// UserAccessResolver composes AccessControl objects from stored user rows.
// A missing or inactive row resolves to (nil, nil): "no access", not an
// error. Results are cached under the lower-cased email with a TTL; callers
// tolerate staleness up to that TTL after administrative changes.
type UserAccessResolver struct {
	users     UserRoleStore
	perms     *PermissionResolver
	cache     cache.Cache
	cacheTTL  time.Duration
	scanLimit int
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// ResolverOption configures a UserAccessResolver.
type ResolverOption func(*UserAccessResolver)

// WithCache injects the cache used for resolved access objects.
func WithCache(c cache.Cache, ttl time.Duration) ResolverOption {
	return func(r *UserAccessResolver) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithScanLimit bounds the fallback full-table scan.
func WithScanLimit(limit int) ResolverOption {
	return func(r *UserAccessResolver) { r.scanLimit = limit }
}

// WithLogger sets the resolver's logger.
func WithLogger(logger *observability.Logger) ResolverOption {
	return func(r *UserAccessResolver) { r.logger = logger }
}

// WithMetrics records resolution outcomes.
func WithMetrics(m *observability.Metrics) ResolverOption {
	return func(r *UserAccessResolver) { r.metrics = m }
}

// NewUserAccessResolver creates a resolver over the given stores.
func NewUserAccessResolver(users UserRoleStore, perms *PermissionResolver, opts ...ResolverOption) *UserAccessResolver {
	r := &UserAccessResolver{
		users:     users,
		perms:     perms,
		cache:     cache.NoOp{},
		cacheTTL:  15 * time.Minute,
		scanLimit: DefaultScanLimit,
		logger:    observability.NewLogger(observability.InfoLevel, os.Stdout),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the AccessControl for email, or (nil, nil) when no active
// record exists. Errors are infrastructure failures only.
func (r *UserAccessResolver) Resolve(ctx context.Context, email string) (*AccessControl, error) {
	start := time.Now()
	access, err := r.resolve(ctx, email)
	r.observe(start, access, err)
	return access, err
}

func (r *UserAccessResolver) resolve(ctx context.Context, email string) (*AccessControl, error) {
	key := cacheKey(email)

	if payload, ok := r.cache.Get(ctx, key); ok {
		var cached AccessControl
		if err := json.Unmarshal(payload, &cached); err == nil {
			if r.metrics != nil {
				r.metrics.CacheHitsTotal.WithLabelValues("access").Inc()
			}
			return &cached, nil
		}
		// A payload that fails to decode is treated as a miss.
		r.cache.Invalidate(ctx, key)
	}
	if r.metrics != nil {
		r.metrics.CacheMissesTotal.WithLabelValues("access").Inc()
	}

	record, err := r.users.GetUserRole(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user role: %w", err)
	}
	if record == nil {
		record, err = r.scanForUser(ctx, email)
		if err != nil {
			return nil, err
		}
	}

	if record == nil {
		r.logger.WithField("email", email).Debug("no user role record found")
		return nil, nil
	}
	if !record.IsActive {
		r.logger.WithField("email", email).Debug("user role record is deactivated")
		return nil, nil
	}

	access, err := r.compose(ctx, record)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(access); err == nil {
		r.cache.Set(ctx, key, payload, r.cacheTTL)
	}
	return access, nil
}

// scanForUser is the defensive fallback against case or whitespace drift
// between the identity provider's claim and the stored key: a bounded scan
// matching case-insensitively on equality or substring containment.
func (r *UserAccessResolver) scanForUser(ctx context.Context, email string) (*UserRoleRecord, error) {
	if r.metrics != nil {
		r.metrics.FallbackScansTotal.Inc()
	}

	records, err := r.users.ListUserRoles(ctx, r.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("fallback user scan failed: %w", err)
	}

	target := strings.ToLower(strings.TrimSpace(email))
	if target == "" {
		return nil, nil
	}
	for i := range records {
		stored := strings.ToLower(strings.TrimSpace(records[i].Email))
		if stored == "" {
			continue
		}
		if stored == target || strings.Contains(stored, target) || strings.Contains(target, stored) {
			r.logger.WithFields(map[string]interface{}{
				"email":  email,
				"stored": records[i].Email,
			}).Debug("user record found via fallback scan")
			return &records[i], nil
		}
	}
	return nil, nil
}

// compose derives the AccessControl from a stored record. Malformed records
// degrade to plant scope rather than failing the resolution.
func (r *UserAccessResolver) compose(ctx context.Context, record *UserRoleRecord) (*AccessControl, error) {
	scope := ScopeForLevel(record.Level)
	if record.Level < 1 || record.Level > 5 {
		r.logger.WithFields(map[string]interface{}{
			"email": record.Email,
			"level": record.Level,
		}).Warn("user record has no usable level; defaulting to plant scope")
	}
	if record.HierarchyString == "" && scope != ScopePlant {
		r.logger.WithField("email", record.Email).Warn("user record has no hierarchy path; defaulting to plant scope")
		scope = ScopePlant
	}

	perms, err := r.perms.Resolve(ctx, record.RoleTitle)
	if err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(record.CognitoGroups))
	for _, g := range record.CognitoGroups {
		if strings.TrimSpace(g) == "" {
			continue
		}
		groups = append(groups, g)
	}

	return &AccessControl{
		Email:           record.Email,
		Name:            record.Name,
		RoleTitle:       record.RoleTitle,
		HierarchyString: record.HierarchyString,
		Division:        record.Division,
		Plant:           record.Plant,
		Level:           record.Level,
		Scope:           scope,
		Permissions:     perms,
		CognitoGroups:   groups,
		ResolvedAt:      time.Now(),
	}, nil
}

// InvalidateCache drops the cached resolution for email, for administrative
// flows that need revocation faster than TTL expiry.
func (r *UserAccessResolver) InvalidateCache(ctx context.Context, email string) {
	r.cache.Invalidate(ctx, cacheKey(email))
}

func (r *UserAccessResolver) observe(start time.Time, access *AccessControl, err error) {
	if r.metrics == nil {
		return
	}
	outcome := "resolved"
	switch {
	case err != nil:
		outcome = "error"
	case access == nil:
		outcome = "not_found"
	}
	r.metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
	r.metrics.ResolutionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func cacheKey(email string) string {
	return "access:" + strings.ToLower(strings.TrimSpace(email))
}
