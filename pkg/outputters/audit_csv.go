package outputters

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lanternsec/lantern/internal/message"
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// Fixed column sets, stable across runs. Headers are written even when a
// report has zero rows.
var (
	policyCSVHeader     = []string{"identity", "effective_policy", "legacy_auth_allowed", "modern_auth_enabled", "auth_methods"}
	permissionCSVHeader = []string{"object_kind", "group_kind", "object_name", "grantee", "access_right"}
)

// AuditCSVOutputter writes the flat tabular form of either audit report.
type AuditCSVOutputter struct {
	*BaseFileOutputter
	policy     *types.PolicyReport
	permission *types.PermissionReport
	outputFile string
}

// NewAuditCSVOutputter creates a new CSV outputter for audit reports
func NewAuditCSVOutputter(configs ...cfg.Config) chain.Outputter {
	o := &AuditCSVOutputter{}
	o.BaseFileOutputter = NewBaseFileOutputter(o, configs...)
	return o
}

// Initialize is called when the outputter is initialized
func (o *AuditCSVOutputter) Initialize() error {
	outputFile, err := cfg.As[string](o.Arg("csvoutfile"))
	if err == nil && outputFile != "" {
		o.outputFile = outputFile
	}
	return nil
}

// Output collects the report for CSV output
func (o *AuditCSVOutputter) Output(v any) error {
	if named, ok := v.(NamedOutputData); ok {
		// Derive the CSV name from the runtime JSON artifact name unless
		// one was set explicitly.
		if o.outputFile == "" && named.OutputFilename != "" {
			o.outputFile = strings.TrimSuffix(named.OutputFilename, ".json") + ".csv"
		}
		v = named.Data
	}

	switch report := v.(type) {
	case types.PolicyReport:
		o.policy = &report
	case types.PermissionReport:
		o.permission = &report
	}
	return nil
}

// Complete writes the collected report to CSV. Failure to write the artifact
// is fatal to the run.
func (o *AuditCSVOutputter) Complete() error {
	if o.policy == nil && o.permission == nil {
		slog.Debug("no audit report received, skipping CSV output")
		return nil
	}

	if o.outputFile == "" {
		o.outputFile = "audit.csv"
	}

	if err := o.EnsureOutputPath(o.outputFile); err != nil {
		return err
	}

	file, err := os.Create(o.GetOutputPath())
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	rows := 0
	if o.policy != nil {
		rows, err = o.writePolicy(writer)
	} else {
		rows, err = o.writePermission(writer)
	}
	if err != nil {
		return err
	}

	message.Success("CSV output written to %s (%d rows)", o.outputFile, rows)
	return nil
}

func (o *AuditCSVOutputter) writePolicy(writer *csv.Writer) (int, error) {
	if err := writer.Write(policyCSVHeader); err != nil {
		return 0, fmt.Errorf("error writing CSV header: %w", err)
	}

	for _, row := range o.policy.Rows {
		record := []string{
			row.Identity,
			string(row.EffectivePolicy),
			strconv.FormatBool(row.LegacyAllowed),
			strconv.FormatBool(row.ModernAuthEnabled),
			strings.Join(row.AuthMethods, ";"),
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("error writing CSV row: %w", err)
		}
	}
	return len(o.policy.Rows), nil
}

func (o *AuditCSVOutputter) writePermission(writer *csv.Writer) (int, error) {
	if err := writer.Write(permissionCSVHeader); err != nil {
		return 0, fmt.Errorf("error writing CSV header: %w", err)
	}

	for _, grant := range o.permission.Grants {
		record := []string{
			string(grant.ObjectKind),
			grant.GroupKind,
			grant.ObjectName,
			grant.Grantee,
			string(grant.AccessRight),
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("error writing CSV row: %w", err)
		}
	}
	return len(o.permission.Grants), nil
}

// Params returns the parameters for this outputter
func (o *AuditCSVOutputter) Params() []cfg.Param {
	return []cfg.Param{
		cfg.NewParam[string]("csvoutfile", "file to write the CSV output to").WithDefault(""),
	}
}
