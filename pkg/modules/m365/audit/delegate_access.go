package audit

import (
	"github.com/lanternsec/lantern/internal/registry"
	"github.com/lanternsec/lantern/pkg/links/m365"
	"github.com/lanternsec/lantern/pkg/outputters"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

var M365DelegateAccess = chain.NewModule(
	cfg.NewMetadata(
		"Delegate Access Audit",
		"Scan every mailbox and mail-enabled group in the tenant and report where a target address holds SendAs, SendOnBehalf, or FullAccess rights.",
	).WithProperties(map[string]any{
		"id":          "delegate-access",
		"platform":    "m365",
		"opsec_level": "stealth",
		"authors":     []string{"Lantern"},
		"references": []string{
			"https://learn.microsoft.com/en-us/powershell/module/exchange/get-recipientpermission",
			"https://learn.microsoft.com/en-us/powershell/module/exchange/get-mailboxpermission",
			"https://learn.microsoft.com/en-us/exchange/recipients/mailbox-permissions",
		},
	}),
).WithLinks(
	m365.NewDelegateAccessCollectorLink,
	m365.NewDelegateAccessCorrelatorLink,
	m365.NewAuditAggregatorLink,
	m365.NewAuditReportFormatterLink,
).WithOutputters(
	outputters.NewConsoleSummaryOutputter,
	outputters.NewRuntimeJSONOutputter,
	outputters.NewAuditCSVOutputter,
).WithParams(
	cfg.NewParam[string]("module-name", "name of the module for dynamic file naming"),
).WithConfigs(
	cfg.WithArg("module-name", "delegate-access"),
).WithAutoRun()

func init() {
	registry.Register("m365", "audit", "delegate-access", *M365DelegateAccess)
}
