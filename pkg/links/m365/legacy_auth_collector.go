package m365

import (
	"fmt"
	"log/slog"

	"github.com/lanternsec/lantern/pkg/links/options"
	"github.com/lanternsec/lantern/pkg/m365client"
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// LegacyAuthSnapshot is the read-only input to policy resolution: the policy
// catalog, the principal listing, and the tenant-wide modern auth switch.
type LegacyAuthSnapshot struct {
	Catalog           *types.PolicyCatalog
	Principals        []types.Principal
	ModernAuthEnabled bool
	TenantID          string
	FetchErrors       int
}

// PolicyRowSet carries resolved rows plus the recoverable-error count to the
// aggregator.
type PolicyRowSet struct {
	Rows     []types.PolicyAuditRow
	TenantID string
	Errors   int
}

// LegacyAuthCollectorLink fetches everything the legacy auth audit needs in
// one bounded pass. The two bulk listings are fatal on failure; the
// organization config read and per-principal auth method reads are
// recoverable and only counted.
type LegacyAuthCollectorLink struct {
	*chain.Base

	// dir is swapped for a fake in tests; production runs construct the
	// Exchange/Graph client from the organization parameter.
	dir DirectoryClient
}

func NewLegacyAuthCollectorLink(configs ...cfg.Config) chain.Link {
	l := &LegacyAuthCollectorLink{}
	l.Base = chain.NewBase(l, configs...)
	return l
}

func (l *LegacyAuthCollectorLink) Params() []cfg.Param {
	return []cfg.Param{
		options.M365Organization(),
	}
}

func (l *LegacyAuthCollectorLink) Process(input any) error {
	ctx := l.Context()

	if l.dir == nil {
		organization, err := cfg.As[string](l.Arg("organization"))
		if err != nil {
			return fmt.Errorf("organization is required: %w", err)
		}
		client, err := m365client.New(organization)
		if err != nil {
			return fmt.Errorf("failed to create directory client: %w", err)
		}
		l.dir = client
	}

	slog.Info("starting legacy authentication audit collection")

	policies, err := l.dir.ListAuthPolicies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list authentication policies: %w", err)
	}
	catalog := types.NewPolicyCatalog(policies)
	slog.Info("built authentication policy catalog", "policies", catalog.Len())

	fetchErrors := 0

	modernAuth, err := l.dir.TenantModernAuthEnabled(ctx)
	if err != nil {
		slog.Warn("could not read organization modern auth setting, reporting as disabled", "error", err)
		modernAuth = false
		fetchErrors++
	}

	principals, err := l.dir.ListPrincipals(ctx)
	if err != nil {
		return fmt.Errorf("failed to list principals: %w", err)
	}
	slog.Info("collected principals", "count", len(principals))

	// Enrich each principal with its registered auth methods. A failed read
	// skips that principal's descriptors, never the principal itself.
	for i := range principals {
		if ctx.Err() != nil {
			slog.Warn("collection interrupted, flushing partial snapshot", "collected", i)
			break
		}
		methods, err := l.dir.AuthMethods(ctx, principals[i].Identity)
		if err != nil {
			slog.Warn("failed to read auth methods", "principal", principals[i].Identity, "error", err)
			fetchErrors++
			continue
		}
		principals[i].AuthMethods = methods
	}

	tenantID := ""
	if tp, ok := l.dir.(m365client.TenantProvider); ok {
		if _, id, err := tp.TenantDetails(ctx); err == nil {
			tenantID = id
		}
	}

	return l.Send(LegacyAuthSnapshot{
		Catalog:           catalog,
		Principals:        principals,
		ModernAuthEnabled: modernAuth,
		TenantID:          tenantID,
		FetchErrors:       fetchErrors,
	})
}
