package options

import (
	"github.com/lanternsec/lantern/pkg/types"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

var OutputOpt = types.Option{
	Name:        "output",
	Short:       "o",
	Description: "output directory",
	Required:    false,
	Type:        types.String,
	Value:       "lantern-output",
}

// OutputDir is the directory report artifacts are written to.
func OutputDir() cfg.Param {
	return cfg.NewParam[string]("output", "output directory for report artifacts").
		WithShortcode("o").
		WithDefault("lantern-output")
}

// WorkerCount bounds per-record fan-out inside the audit links.
func WorkerCount() cfg.Param {
	return cfg.NewParam[int]("workers", "number of concurrent workers for per-record processing").
		WithShortcode("w").
		WithDefault(5)
}
