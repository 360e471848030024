package m365

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/lanternsec/lantern/pkg/links/options"
	"github.com/lanternsec/lantern/pkg/outputters"
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// AuditReportFormatterLink names the report artifact and hands the report to
// the outputters. Either report type flows through; an empty report still
// produces the artifact.
type AuditReportFormatterLink struct {
	*chain.Base
}

func NewAuditReportFormatterLink(configs ...cfg.Config) chain.Link {
	l := &AuditReportFormatterLink{}
	l.Base = chain.NewBase(l, configs...)
	return l
}

func (l *AuditReportFormatterLink) Params() []cfg.Param {
	return []cfg.Param{
		options.OutputDir(),
	}
}

func (l *AuditReportFormatterLink) Process(input any) error {
	switch report := input.(type) {
	case types.PolicyReport:
		return l.Send(outputters.NewNamedOutputData(report, l.artifactPath("legacy-auth", report.Summary)))
	case types.PermissionReport:
		return l.Send(outputters.NewNamedOutputData(report, l.artifactPath("delegate-access", report.Summary)))
	default:
		return fmt.Errorf("expected an audit report, got %T", input)
	}
}

func (l *AuditReportFormatterLink) artifactPath(module string, summary types.AuditSummary) string {
	outputDir, _ := cfg.As[string](l.Arg("output"))

	suffix := summary.TenantID
	if suffix == "" {
		suffix = time.Now().Format("20060102-150405")
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s-%s.json", module, suffix))
}
