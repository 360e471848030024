package outputters

import (
	"github.com/lanternsec/lantern/internal/message"
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// ConsoleSummaryOutputter renders either audit report as a table on the
// operator console, with the run summary underneath. Quiet and silent modes
// are honored through the message package.
type ConsoleSummaryOutputter struct {
	*chain.BaseOutputter
}

func NewConsoleSummaryOutputter(configs ...cfg.Config) chain.Outputter {
	o := &ConsoleSummaryOutputter{}
	o.BaseOutputter = chain.NewBaseOutputter(o, configs...)
	return o
}

func (o *ConsoleSummaryOutputter) Initialize() error {
	return nil
}

func (o *ConsoleSummaryOutputter) Output(v any) error {
	if named, ok := v.(NamedOutputData); ok {
		v = named.Data
	}

	switch report := v.(type) {
	case types.PolicyReport:
		o.printPolicySummary(report)
	case types.PermissionReport:
		o.printPermissionSummary(report)
	}
	return nil
}

func (o *ConsoleSummaryOutputter) Complete() error {
	return nil
}

func (o *ConsoleSummaryOutputter) Params() []cfg.Param {
	return nil
}

func (o *ConsoleSummaryOutputter) printPolicySummary(report types.PolicyReport) {
	message.Section("Legacy Authentication Audit")

	message.Print("| %-40s | %-25s | %-6s |", "Identity", "Effective Policy", "Legacy")
	message.Print("|%s|%s|%s|", dashes(42), dashes(27), dashes(8))
	for _, row := range report.Rows {
		message.Print("| %-40s | %-25s | %-6s |",
			truncate(row.Identity, 40), truncate(string(row.EffectivePolicy), 25), yesNo(row.LegacyAllowed))
	}

	s := report.Summary
	message.Info("processed %d principals: %d legacy-allowed (%.1f%%), %d legacy-disallowed",
		s.Processed, s.LegacyAllowed, s.LegacyAllowedPct, s.LegacyDisallowed)
	o.printStatus(s)
}

func (o *ConsoleSummaryOutputter) printPermissionSummary(report types.PermissionReport) {
	message.Section("Delegate Access Audit: %s", report.Target)

	message.Print("| %-18s | %-12s | %-40s | %-12s |", "Object Kind", "Group Kind", "Object", "Right")
	message.Print("|%s|%s|%s|%s|", dashes(20), dashes(14), dashes(42), dashes(14))
	for _, grant := range report.Grants {
		message.Print("| %-18s | %-12s | %-40s | %-12s |",
			grant.ObjectKind, grant.GroupKind, truncate(grant.ObjectName, 40), grant.AccessRight)
	}

	s := report.Summary
	message.Info("scanned %d recipients, found %d grants (SendAs=%d SendOnBehalf=%d FullAccess=%d)",
		s.Processed, len(report.Grants),
		s.GrantsByRight[types.AccessSendAs],
		s.GrantsByRight[types.AccessSendOnBehalf],
		s.GrantsByRight[types.AccessFullAccess])
	o.printStatus(s)
}

func (o *ConsoleSummaryOutputter) printStatus(s types.AuditSummary) {
	switch {
	case s.Errors > 0:
		message.Warning("run finished with %d recoverable errors: audit may be incomplete (%s)", s.Errors, s.Status)
	default:
		message.Success("run finished cleanly in %s", s.Duration)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func dashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
