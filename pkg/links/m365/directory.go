package m365

import (
	"context"
	"sync"

	"github.com/lanternsec/lantern/pkg/types"
)

// DirectoryClient is the read-only directory surface the audit links consume.
// The production implementation lives in pkg/m365client; tests substitute
// fakes. Bulk listing failures are fatal to a run, everything else is
// recoverable per record.
type DirectoryClient interface {
	// ListPrincipals returns every principal in the tenant snapshot.
	ListPrincipals(ctx context.Context) ([]types.Principal, error)

	// ListAuthPolicies returns the tenant's authentication policies.
	ListAuthPolicies(ctx context.Context) ([]types.AuthPolicy, error)

	// ListRecipients returns all recipient objects of one kind.
	ListRecipients(ctx context.Context, kind types.RecipientKind) ([]types.RecipientObject, error)

	// ResolveDelegateReference maps a raw delegate reference (display name,
	// alias, or address) to a canonical primary address. A miss is reported
	// through found, not through err.
	ResolveDelegateReference(ctx context.Context, ref string) (address string, found bool, err error)

	// GetExplicitPermissions returns the recipient's permission table rows,
	// inherited entries included; callers filter them out.
	GetExplicitPermissions(ctx context.Context, recipientID string) ([]types.ExplicitPermission, error)

	// AuthMethods returns the registered authentication method descriptors
	// for one principal.
	AuthMethods(ctx context.Context, principalID string) ([]string, error)

	// TenantModernAuthEnabled reports whether modern auth is switched on at
	// the organization level.
	TenantModernAuthEnabled(ctx context.Context) (bool, error)
}

type resolvedRef struct {
	address string
	found   bool
}

// DelegateResolver resolves raw delegate references to primary addresses
// with caching, so repeated references across recipients cost one lookup.
type DelegateResolver struct {
	dir     DirectoryClient
	cache   map[string]resolvedRef
	cacheMu sync.RWMutex
}

func NewDelegateResolver(dir DirectoryClient) *DelegateResolver {
	return &DelegateResolver{
		dir:   dir,
		cache: make(map[string]resolvedRef),
	}
}

// Resolve returns the canonical address for ref. Misses are cached too:
// an unresolvable reference stays unresolvable for the whole run.
func (r *DelegateResolver) Resolve(ctx context.Context, ref string) (string, bool, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[ref]
	r.cacheMu.RUnlock()
	if ok {
		return cached.address, cached.found, nil
	}

	address, found, err := r.dir.ResolveDelegateReference(ctx, ref)
	if err != nil {
		return "", false, err
	}

	r.cacheMu.Lock()
	r.cache[ref] = resolvedRef{address: address, found: found}
	r.cacheMu.Unlock()

	return address, found, nil
}
