package outputters

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/lanternsec/lantern/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return records
}

func TestAuditCSVEmptyPolicyReportWritesHeaders(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "legacy-auth.csv")

	o := &AuditCSVOutputter{BaseFileOutputter: &BaseFileOutputter{}}
	require.NoError(t, o.Output(types.PolicyReport{}))
	o.outputFile = outFile
	require.NoError(t, o.Complete())

	records := readCSV(t, outFile)
	require.Len(t, records, 1)
	assert.Equal(t, policyCSVHeader, records[0])
}

func TestAuditCSVEmptyPermissionReportWritesHeaders(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "delegate-access.csv")

	o := &AuditCSVOutputter{BaseFileOutputter: &BaseFileOutputter{}}
	require.NoError(t, o.Output(types.PermissionReport{Target: "alice@contoso.com"}))
	o.outputFile = outFile
	require.NoError(t, o.Complete())

	records := readCSV(t, outFile)
	require.Len(t, records, 1)
	assert.Equal(t, permissionCSVHeader, records[0])
}

func TestAuditCSVPolicyRows(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "legacy-auth.csv")

	report := types.PolicyReport{
		Rows: []types.PolicyAuditRow{
			{
				Identity:          "alice@contoso.com",
				EffectivePolicy:   "Allow POP",
				LegacyAllowed:     true,
				ModernAuthEnabled: true,
				AuthMethods:       []string{"passwordAuthenticationMethod", "fido2AuthenticationMethod"},
			},
			{Identity: "bob@contoso.com", EffectivePolicy: "Default", LegacyAllowed: false, ModernAuthEnabled: true},
		},
	}

	o := &AuditCSVOutputter{BaseFileOutputter: &BaseFileOutputter{}}
	require.NoError(t, o.Output(report))
	o.outputFile = outFile
	require.NoError(t, o.Complete())

	records := readCSV(t, outFile)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"alice@contoso.com", "Allow POP", "true", "true", "passwordAuthenticationMethod;fido2AuthenticationMethod"}, records[1])
	assert.Equal(t, []string{"bob@contoso.com", "Default", "false", "true", ""}, records[2])
}

func TestAuditCSVDerivesNameFromJSONArtifact(t *testing.T) {
	dir := t.TempDir()

	o := &AuditCSVOutputter{BaseFileOutputter: &BaseFileOutputter{}}
	named := NewNamedOutputData(types.PermissionReport{
		Grants: []types.PermissionGrant{
			{ObjectKind: types.SharedMailbox, ObjectName: "finance", Grantee: "alice@contoso.com", AccessRight: types.AccessSendAs},
		},
	}, filepath.Join(dir, "delegate-access-tenant.json"))
	require.NoError(t, o.Output(named))
	require.NoError(t, o.Complete())

	records := readCSV(t, filepath.Join(dir, "delegate-access-tenant.csv"))
	require.Len(t, records, 2)
	assert.Equal(t, permissionCSVHeader, records[0])
	assert.Equal(t, []string{"SharedMailbox", "", "finance", "alice@contoso.com", "SendAs"}, records[1])
}

func TestAuditCSVNoReportNoFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "unused.csv")

	o := &AuditCSVOutputter{BaseFileOutputter: &BaseFileOutputter{}}
	o.outputFile = outFile
	require.NoError(t, o.Complete())

	_, err := os.Stat(outFile)
	assert.True(t, os.IsNotExist(err))
}
