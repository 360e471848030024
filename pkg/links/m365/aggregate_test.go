package m365

import (
	"testing"
	"time"

	"github.com/lanternsec/lantern/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatePolicyRows(t *testing.T) {
	rows := []types.PolicyAuditRow{
		{Identity: "carol@contoso.com", EffectivePolicy: "Default", LegacyAllowed: false},
		{Identity: "bob@contoso.com", EffectivePolicy: "Allow POP", LegacyAllowed: true},
		{Identity: "alice@contoso.com", EffectivePolicy: "Default", LegacyAllowed: false},
		{Identity: "dave@contoso.com", EffectivePolicy: "Allow POP", LegacyAllowed: true},
	}

	report := AggregatePolicyRows(rows, 0, "run-1", time.Now())

	// Legacy-allowed rows lead the report, ties break on identity.
	require.Len(t, report.Rows, 4)
	assert.Equal(t, "bob@contoso.com", report.Rows[0].Identity)
	assert.Equal(t, "dave@contoso.com", report.Rows[1].Identity)
	assert.Equal(t, "alice@contoso.com", report.Rows[2].Identity)
	assert.Equal(t, "carol@contoso.com", report.Rows[3].Identity)

	s := report.Summary
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, types.StatusSuccess, s.Status)
	assert.Equal(t, 4, s.Processed)
	assert.Equal(t, 2, s.LegacyAllowed)
	assert.Equal(t, 2, s.LegacyDisallowed)
	assert.InDelta(t, 50.0, s.LegacyAllowedPct, 0.001)
}

func TestAggregatePolicyRowsDoesNotMutateInput(t *testing.T) {
	rows := []types.PolicyAuditRow{
		{Identity: "zed@contoso.com", LegacyAllowed: false},
		{Identity: "amy@contoso.com", LegacyAllowed: true},
	}

	AggregatePolicyRows(rows, 0, "run-1", time.Now())

	assert.Equal(t, "zed@contoso.com", rows[0].Identity)
	assert.Equal(t, "amy@contoso.com", rows[1].Identity)
}

func TestAggregatePolicyRowsEmpty(t *testing.T) {
	report := AggregatePolicyRows(nil, 0, "run-1", time.Now())

	assert.Empty(t, report.Rows)
	assert.Equal(t, types.StatusSuccess, report.Summary.Status)
	assert.Zero(t, report.Summary.Processed)
	assert.Zero(t, report.Summary.LegacyAllowedPct)
}

func TestAggregatePolicyRowsWithErrors(t *testing.T) {
	report := AggregatePolicyRows(nil, 3, "run-1", time.Now())

	assert.Equal(t, types.StatusWarnings, report.Summary.Status)
	assert.Equal(t, 3, report.Summary.Errors)
}

func TestAggregateGrants(t *testing.T) {
	dup := types.PermissionGrant{
		ObjectKind:  types.SharedMailbox,
		ObjectName:  "finance",
		Grantee:     "alice@contoso.com",
		AccessRight: types.AccessSendAs,
	}
	grants := []types.PermissionGrant{
		{ObjectKind: types.UserMailbox, ObjectName: "bob", Grantee: "alice@contoso.com", AccessRight: types.AccessFullAccess},
		dup,
		{ObjectKind: types.DistributionGroup, GroupKind: "Distribution", ObjectName: "all-staff", Grantee: "alice@contoso.com", AccessRight: types.AccessSendOnBehalf},
		dup,
	}

	report := AggregateGrants("alice@contoso.com", grants, 10, 0, "run-2", time.Now())

	// The duplicated grant collapses to one row; order is deterministic.
	require.Len(t, report.Grants, 3)
	assert.Equal(t, "all-staff", report.Grants[0].ObjectName)
	assert.Equal(t, "finance", report.Grants[1].ObjectName)
	assert.Equal(t, "bob", report.Grants[2].ObjectName)

	s := report.Summary
	assert.Equal(t, 10, s.Processed)
	assert.Equal(t, types.StatusSuccess, s.Status)
	assert.Equal(t, 1, s.GrantsByRight[types.AccessSendAs])
	assert.Equal(t, 1, s.GrantsByRight[types.AccessSendOnBehalf])
	assert.Equal(t, 1, s.GrantsByRight[types.AccessFullAccess])
}

func TestAggregateGrantsDeterministic(t *testing.T) {
	grants := []types.PermissionGrant{
		{ObjectKind: types.UserMailbox, ObjectName: "b", Grantee: "x", AccessRight: types.AccessSendAs},
		{ObjectKind: types.UserMailbox, ObjectName: "a", Grantee: "x", AccessRight: types.AccessFullAccess},
		{ObjectKind: types.UserMailbox, ObjectName: "a", Grantee: "x", AccessRight: types.AccessSendAs},
	}
	reversed := []types.PermissionGrant{grants[2], grants[1], grants[0]}

	started := time.Now()
	first := AggregateGrants("x", grants, 3, 0, "run-3", started)
	second := AggregateGrants("x", reversed, 3, 0, "run-3", started)

	assert.Equal(t, first.Grants, second.Grants)
}

func TestAggregateGrantsEmpty(t *testing.T) {
	report := AggregateGrants("alice@contoso.com", nil, 0, 0, "run-4", time.Now())

	assert.Equal(t, "alice@contoso.com", report.Target)
	assert.Empty(t, report.Grants)
	assert.Equal(t, types.StatusSuccess, report.Summary.Status)
}
