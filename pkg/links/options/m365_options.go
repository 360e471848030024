package options

import (
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// M365Organization identifies the tenant the audit runs against. The
// Exchange admin endpoint routes cmdlets by this value.
func M365Organization() cfg.Param {
	return cfg.NewParam[string](
		"organization",
		"The Microsoft 365 organization to audit, e.g. contoso.onmicrosoft.com.",
	).WithShortcode("g").AsRequired()
}

// M365TargetAddress is the principal whose delegated access is being audited.
func M365TargetAddress() cfg.Param {
	return cfg.NewParam[string](
		"target",
		"Primary SMTP address of the principal to audit delegate access for.",
	).WithShortcode("t").AsRequired()
}

// M365DefaultPolicyName overrides the tenant default authentication policy
// name applied to principals with no assigned policy.
func M365DefaultPolicyName() cfg.Param {
	return cfg.NewParam[string](
		"default-policy",
		"Name of the tenant default authentication policy.",
	).WithDefault("Default")
}
