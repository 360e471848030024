package m365

import (
	"sort"
	"time"

	"github.com/lanternsec/lantern/pkg/types"
)

// AggregatePolicyRows sorts policy audit rows into their final report order
// and computes the run summary. Rows with legacy auth allowed sort first so
// the risky principals lead the report; ties break on identity. The function
// is deterministic: the same input always produces the same report.
func AggregatePolicyRows(rows []types.PolicyAuditRow, errCount int, runID string, started time.Time) types.PolicyReport {
	sorted := make([]types.PolicyAuditRow, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LegacyAllowed != sorted[j].LegacyAllowed {
			return sorted[i].LegacyAllowed
		}
		return sorted[i].Identity < sorted[j].Identity
	})

	allowed := 0
	for _, row := range sorted {
		if row.LegacyAllowed {
			allowed++
		}
	}

	summary := types.AuditSummary{
		RunID:            runID,
		Status:           runStatus(errCount),
		Processed:        len(sorted),
		Errors:           errCount,
		LegacyAllowed:    allowed,
		LegacyDisallowed: len(sorted) - allowed,
		StartedAt:        started.UTC(),
		Duration:         time.Since(started).Round(time.Millisecond).String(),
	}
	if len(sorted) > 0 {
		summary.LegacyAllowedPct = 100 * float64(allowed) / float64(len(sorted))
	}

	return types.PolicyReport{Rows: sorted, Summary: summary}
}

// AggregateGrants deduplicates and orders delegate access findings and
// computes the run summary. Global order is (object kind, object name,
// grantee, access right); duplicates arise when the same grant is reachable
// through more than one scan path and collapse to one row.
func AggregateGrants(target string, grants []types.PermissionGrant, processed, errCount int, runID string, started time.Time) types.PermissionReport {
	deduped := dedupeGrants(grants)

	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.ObjectKind != b.ObjectKind {
			return a.ObjectKind < b.ObjectKind
		}
		if a.ObjectName != b.ObjectName {
			return a.ObjectName < b.ObjectName
		}
		if a.Grantee != b.Grantee {
			return a.Grantee < b.Grantee
		}
		return a.AccessRight < b.AccessRight
	})

	byRight := make(map[types.AccessRight]int)
	for _, grant := range deduped {
		byRight[grant.AccessRight]++
	}

	return types.PermissionReport{
		Target: target,
		Grants: deduped,
		Summary: types.AuditSummary{
			RunID:         runID,
			Status:        runStatus(errCount),
			Processed:     processed,
			Errors:        errCount,
			GrantsByRight: byRight,
			StartedAt:     started.UTC(),
			Duration:      time.Since(started).Round(time.Millisecond).String(),
		},
	}
}

func dedupeGrants(grants []types.PermissionGrant) []types.PermissionGrant {
	seen := make(map[types.PermissionGrant]struct{}, len(grants))
	deduped := make([]types.PermissionGrant, 0, len(grants))
	for _, grant := range grants {
		if _, dup := seen[grant]; dup {
			continue
		}
		seen[grant] = struct{}{}
		deduped = append(deduped, grant)
	}
	return deduped
}

func runStatus(errCount int) types.RunStatus {
	if errCount > 0 {
		return types.StatusWarnings
	}
	return types.StatusSuccess
}
