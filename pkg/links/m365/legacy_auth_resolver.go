package m365

import (
	"fmt"
	"log/slog"

	"github.com/lanternsec/lantern/pkg/links/options"
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// ResolvePolicy maps a principal to its effective authentication policy and
// the derived legacy-auth verdict. Principals with no assigned policy fall
// back to defaultName. A name that has no catalog entry resolves to
// legacy-disallowed: an unknown policy must never be reported as permissive.
func ResolvePolicy(p types.Principal, catalog *types.PolicyCatalog, defaultName types.PolicyName) (types.PolicyName, bool) {
	name := p.AssignedPolicy
	if name == "" {
		name = defaultName
	}

	policy, ok := catalog.Lookup(name)
	if !ok {
		return name, false
	}
	return name, policy.LegacyAllowed()
}

// BuildPolicyRows resolves every principal in the snapshot into its report
// row, carrying the registered auth method descriptors along.
func BuildPolicyRows(snapshot LegacyAuthSnapshot, defaultName types.PolicyName) []types.PolicyAuditRow {
	rows := make([]types.PolicyAuditRow, 0, len(snapshot.Principals))
	for _, principal := range snapshot.Principals {
		effective, legacyAllowed := ResolvePolicy(principal, snapshot.Catalog, defaultName)
		rows = append(rows, types.PolicyAuditRow{
			Identity:          principal.Identity,
			EffectivePolicy:   effective,
			LegacyAllowed:     legacyAllowed,
			ModernAuthEnabled: snapshot.ModernAuthEnabled,
			AuthMethods:       principal.AuthMethods,
		})
	}
	return rows
}

// LegacyAuthResolverLink turns a tenant snapshot into per-principal policy
// audit rows.
type LegacyAuthResolverLink struct {
	*chain.Base
}

func NewLegacyAuthResolverLink(configs ...cfg.Config) chain.Link {
	l := &LegacyAuthResolverLink{}
	l.Base = chain.NewBase(l, configs...)
	return l
}

func (l *LegacyAuthResolverLink) Params() []cfg.Param {
	return []cfg.Param{
		options.M365DefaultPolicyName(),
	}
}

func (l *LegacyAuthResolverLink) Process(input any) error {
	snapshot, ok := input.(LegacyAuthSnapshot)
	if !ok {
		return fmt.Errorf("expected LegacyAuthSnapshot, got %T", input)
	}

	defaultName := types.DefaultPolicyName
	if arg, err := cfg.As[string](l.Arg("default-policy")); err == nil && arg != "" {
		defaultName = types.PolicyName(arg)
	}

	rows := BuildPolicyRows(snapshot, defaultName)

	slog.Info("resolved effective authentication policies", "principals", len(rows), "default_policy", defaultName)

	return l.Send(PolicyRowSet{
		Rows:     rows,
		TenantID: snapshot.TenantID,
		Errors:   snapshot.FetchErrors,
	})
}
