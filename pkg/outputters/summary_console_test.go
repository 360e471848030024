package outputters

import (
	"bytes"
	"os"
	"testing"

	"github.com/lanternsec/lantern/internal/message"
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	message.SetOutput(&buf)
	message.SetNoColor(true)
	t.Cleanup(func() {
		message.SetOutput(os.Stdout)
		message.SetNoColor(false)
		message.SetSilent(false)
	})
	return &buf
}

func TestConsoleSummaryPrintsPolicyTable(t *testing.T) {
	buf := captureConsole(t)

	o := &ConsoleSummaryOutputter{}
	require.NoError(t, o.Output(types.PolicyReport{
		Rows: []types.PolicyAuditRow{
			{Identity: "alice@contoso.com", EffectivePolicy: "Allow POP", LegacyAllowed: true},
		},
		Summary: types.AuditSummary{Processed: 1, LegacyAllowed: 1, Status: types.StatusSuccess},
	}))

	out := buf.String()
	assert.Contains(t, out, "Identity")
	assert.Contains(t, out, "alice@contoso.com")
	assert.Contains(t, out, "yes")
}

func TestConsoleSummarySilentSuppressesTables(t *testing.T) {
	buf := captureConsole(t)
	message.SetSilent(true)

	o := &ConsoleSummaryOutputter{}
	require.NoError(t, o.Output(types.PolicyReport{
		Rows: []types.PolicyAuditRow{
			{Identity: "alice@contoso.com", EffectivePolicy: "Allow POP", LegacyAllowed: true},
		},
	}))
	require.NoError(t, o.Output(types.PermissionReport{
		Target: "alice@contoso.com",
		Grants: []types.PermissionGrant{
			{ObjectKind: types.SharedMailbox, ObjectName: "finance", Grantee: "alice@contoso.com", AccessRight: types.AccessSendAs},
		},
	}))

	assert.Empty(t, buf.String())
}
