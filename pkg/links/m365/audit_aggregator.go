package m365

import (
	"time"

	"github.com/google/uuid"
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// AuditAggregatorLink is the join point of a run: it buffers whatever the
// upstream links emit, then sorts and summarizes once everything upstream
// has completed. It never aggregates before the barrier, so output order is
// independent of upstream scheduling.
type AuditAggregatorLink struct {
	*chain.Base

	started time.Time
	runID   string

	policyRows *PolicyRowSet
	grants     []types.PermissionGrant
	stats      *CorrelationStats
	tenant     TenantInfo
}

func NewAuditAggregatorLink(configs ...cfg.Config) chain.Link {
	l := &AuditAggregatorLink{
		started: time.Now(),
		runID:   uuid.NewString(),
	}
	l.Base = chain.NewBase(l, configs...)
	return l
}

func (l *AuditAggregatorLink) Process(input any) error {
	switch v := input.(type) {
	case PolicyRowSet:
		l.policyRows = &v
	case types.PermissionGrant:
		l.grants = append(l.grants, v)
	case CorrelationStats:
		l.stats = &v
	case TenantInfo:
		l.tenant = v
	}
	return nil
}

func (l *AuditAggregatorLink) Complete() error {
	if l.policyRows != nil {
		report := AggregatePolicyRows(l.policyRows.Rows, l.policyRows.Errors, l.runID, l.started)
		report.Summary.TenantID = l.policyRows.TenantID
		l.Logger.Info("aggregated policy audit", "rows", len(report.Rows), "status", report.Summary.Status)
		return l.Send(report)
	}

	target := ""
	processed, errCount := 0, 0
	if l.stats != nil {
		target = l.stats.Target
		processed = l.stats.Processed
		errCount = l.stats.Errors
	}

	report := AggregateGrants(target, l.grants, processed, errCount, l.runID, l.started)
	report.Summary.TenantID = l.tenant.TenantID
	l.Logger.Info("aggregated delegate access audit", "grants", len(report.Grants), "status", report.Summary.Status)
	return l.Send(report)
}
