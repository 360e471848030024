package types

import (
	"time"
)

// RecipientKind classifies the directory objects the audit modules scan.
type RecipientKind string

const (
	UserMailbox          RecipientKind = "UserMailbox"
	SharedMailbox        RecipientKind = "SharedMailbox"
	DistributionGroup    RecipientKind = "DistributionGroup"
	UnifiedGroup         RecipientKind = "UnifiedGroup"
	UnspecifiedRecipient RecipientKind = "Unspecified"
)

// IsGroup reports whether the kind is a group object. FullAccess is a
// mailbox-only right and is never evaluated for group kinds.
func (k RecipientKind) IsGroup() bool {
	return k == DistributionGroup || k == UnifiedGroup
}

// AccessRight is the delegated right a grant conveys.
type AccessRight string

const (
	AccessSendAs       AccessRight = "SendAs"
	AccessSendOnBehalf AccessRight = "SendOnBehalf"
	AccessFullAccess   AccessRight = "FullAccess"
)

// PolicyName keys the authentication policy catalog. Lookups are
// case-sensitive exact matches.
type PolicyName string

// DefaultPolicyName is the tenant default applied to principals with no
// assigned authentication policy.
const DefaultPolicyName PolicyName = "Default"

// Principal is a directory identity subject to the legacy auth audit.
type Principal struct {
	Identity       string        `json:"identity"`
	DisplayName    string        `json:"displayName"`
	Kind           RecipientKind `json:"recipientKind"`
	AssignedPolicy PolicyName    `json:"assignedPolicy,omitempty"`
	AuthMethods    []string      `json:"authMethods,omitempty"`
}

// AuthPolicy mirrors an Exchange Online authentication policy: one switch
// per legacy protocol surface.
type AuthPolicy struct {
	Name              PolicyName `json:"name"`
	AllowPop          bool       `json:"allowBasicAuthPop"`
	AllowImap         bool       `json:"allowBasicAuthImap"`
	AllowSmtp         bool       `json:"allowBasicAuthSmtp"`
	AllowActiveSync   bool       `json:"allowBasicAuthActiveSync"`
	AllowAutodiscover bool       `json:"allowBasicAuthAutodiscover"`
	AllowWebServices  bool       `json:"allowBasicAuthWebServices"`
	AllowPowershell   bool       `json:"allowBasicAuthPowershell"`
	AllowMapi         bool       `json:"allowBasicAuthMapi"`
}

// LegacyAllowed is true iff any of the eight protocol switches is open.
func (p AuthPolicy) LegacyAllowed() bool {
	return p.AllowPop || p.AllowImap || p.AllowSmtp || p.AllowActiveSync ||
		p.AllowAutodiscover || p.AllowWebServices || p.AllowPowershell || p.AllowMapi
}

// PolicyCatalog maps policy names to policies. Built once per run and never
// mutated afterwards, so concurrent reads need no locking.
type PolicyCatalog struct {
	policies map[PolicyName]AuthPolicy
}

func NewPolicyCatalog(policies []AuthPolicy) *PolicyCatalog {
	c := &PolicyCatalog{policies: make(map[PolicyName]AuthPolicy, len(policies))}
	for _, p := range policies {
		c.policies[p.Name] = p
	}
	return c
}

// Lookup returns the policy for name. A miss is not an error: callers treat
// an unresolvable policy as legacy-disallowed.
func (c *PolicyCatalog) Lookup(name PolicyName) (AuthPolicy, bool) {
	p, ok := c.policies[name]
	return p, ok
}

func (c *PolicyCatalog) Len() int {
	return len(c.policies)
}

// Names returns the catalog keys, unordered.
func (c *PolicyCatalog) Names() []PolicyName {
	names := make([]PolicyName, 0, len(c.policies))
	for n := range c.policies {
		names = append(names, n)
	}
	return names
}

// RecipientObject is a mail-enabled object scanned by the delegate access
// audit. DelegateRefs holds the raw send-on-behalf references as stored in
// the directory; they may be display names or aliases, not addresses.
type RecipientObject struct {
	Identity       string        `json:"identity"`
	PrimaryAddress string        `json:"primaryAddress"`
	Kind           RecipientKind `json:"kind"`
	DelegateRefs   []string      `json:"delegateRefs,omitempty"`
}

// ExplicitPermission is one row of a recipient's permission table as
// returned by the directory. Inherited rows never produce findings.
type ExplicitPermission struct {
	Holder    string   `json:"holder"`
	Rights    []string `json:"rights"`
	Inherited bool     `json:"inherited"`
}

// PermissionGrant is a single delegated-access finding.
type PermissionGrant struct {
	ObjectKind  RecipientKind `json:"objectKind"`
	GroupKind   string        `json:"groupKind,omitempty"`
	ObjectName  string        `json:"objectName"`
	Grantee     string        `json:"grantee"`
	AccessRight AccessRight   `json:"accessRight"`
}

// PolicyAuditRow is one principal's line in the legacy auth report.
// AuthMethods lists the principal's registered authentication method
// descriptors, so a legacy-allowed principal with nothing but a password
// stands out.
type PolicyAuditRow struct {
	Identity          string     `json:"identity"`
	EffectivePolicy   PolicyName `json:"effectivePolicy"`
	LegacyAllowed     bool       `json:"legacyAuthAllowed"`
	ModernAuthEnabled bool       `json:"tenantModernAuthEnabled"`
	AuthMethods       []string   `json:"authMethods,omitempty"`
}

// RunStatus distinguishes a clean audit from an incomplete one.
type RunStatus string

const (
	StatusSuccess  RunStatus = "success"
	StatusWarnings RunStatus = "success with warnings"
	StatusFatal    RunStatus = "fatal failure"
)

// AuditSummary is attached to every report so operators can tell a complete
// audit apart from one that skipped records.
type AuditSummary struct {
	RunID            string              `json:"runId"`
	TenantID         string              `json:"tenantId,omitempty"`
	Status           RunStatus           `json:"status"`
	Processed        int                 `json:"totalProcessed"`
	Errors           int                 `json:"totalErrors"`
	LegacyAllowed    int                 `json:"legacyAllowed,omitempty"`
	LegacyDisallowed int                 `json:"legacyDisallowed,omitempty"`
	LegacyAllowedPct float64             `json:"legacyAllowedPercent,omitempty"`
	GrantsByRight    map[AccessRight]int `json:"grantsByRight,omitempty"`
	StartedAt        time.Time           `json:"startedAt"`
	Duration         string              `json:"duration"`
}

// PolicyReport is the legacy auth audit artifact.
type PolicyReport struct {
	Rows    []PolicyAuditRow `json:"rows"`
	Summary AuditSummary     `json:"summary"`
}

// PermissionReport is the delegate access audit artifact.
type PermissionReport struct {
	Target  string            `json:"target"`
	Grants  []PermissionGrant `json:"grants"`
	Summary AuditSummary      `json:"summary"`
}
