package audit

import (
	"github.com/lanternsec/lantern/internal/registry"
	"github.com/lanternsec/lantern/pkg/links/m365"
	"github.com/lanternsec/lantern/pkg/outputters"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

var M365LegacyAuth = chain.NewModule(
	cfg.NewMetadata(
		"Legacy Authentication Audit",
		"Resolve the effective authentication policy for every principal in the tenant and report which principals may still authenticate over legacy (basic auth) protocols.",
	).WithProperties(map[string]any{
		"id":          "legacy-auth",
		"platform":    "m365",
		"opsec_level": "stealth",
		"authors":     []string{"Lantern"},
		"references": []string{
			"https://learn.microsoft.com/en-us/exchange/clients-and-mobile-in-exchange-online/disable-basic-authentication-in-exchange-online",
			"https://learn.microsoft.com/en-us/powershell/module/exchange/get-authenticationpolicy",
		},
	}),
).WithLinks(
	m365.NewLegacyAuthCollectorLink,
	m365.NewLegacyAuthResolverLink,
	m365.NewAuditAggregatorLink,
	m365.NewAuditReportFormatterLink,
).WithOutputters(
	outputters.NewConsoleSummaryOutputter,
	outputters.NewRuntimeJSONOutputter,
	outputters.NewAuditCSVOutputter,
).WithParams(
	cfg.NewParam[string]("module-name", "name of the module for dynamic file naming"),
).WithConfigs(
	cfg.WithArg("module-name", "legacy-auth"),
).WithAutoRun()

func init() {
	registry.Register("m365", "audit", "legacy-auth", *M365LegacyAuth)
}
