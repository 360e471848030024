package outputters

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lanternsec/lantern/pkg/utils"
	"github.com/praetorian-inc/janus-framework/pkg/chain"
	"github.com/praetorian-inc/janus-framework/pkg/chain/cfg"
)

// NamedOutputData wraps a value together with the file it should be written
// to, so links can choose artifact names at runtime.
type NamedOutputData struct {
	OutputFilename string
	Data           any
}

func NewNamedOutputData(data any, filename string) NamedOutputData {
	return NamedOutputData{OutputFilename: filename, Data: data}
}

const defaultOutfile = "out.json"

// RuntimeJSONOutputter allows specifying the output file at runtime
// rather than at initialization time
type RuntimeJSONOutputter struct {
	*chain.BaseOutputter
	indent  int
	output  []any
	outfile string
}

// NewRuntimeJSONOutputter creates a new RuntimeJSONOutputter
func NewRuntimeJSONOutputter(configs ...cfg.Config) chain.Outputter {
	j := &RuntimeJSONOutputter{}
	j.BaseOutputter = chain.NewBaseOutputter(j, configs...)
	return j
}

// Initialize sets up the outputter but doesn't open a file yet
func (j *RuntimeJSONOutputter) Initialize() error {
	outfile, err := cfg.As[string](j.Arg("jsonoutfile"))
	if err != nil {
		outfile = defaultOutfile // Fallback default
	}
	j.outfile = outfile

	indent, err := cfg.As[int](j.Arg("indent"))
	if err != nil {
		indent = 2
	}
	j.indent = indent

	slog.Debug("initialized runtime JSON outputter", "default_file", j.outfile, "indent", j.indent)
	return nil
}

// Output stores a value in memory for later writing
func (j *RuntimeJSONOutputter) Output(val any) error {
	if outputData, ok := val.(NamedOutputData); ok {
		if outputData.OutputFilename != "" && j.outfile == defaultOutfile {
			j.SetOutputFile(outputData.OutputFilename)
		}
		j.output = append(j.output, outputData.Data)
	} else {
		j.output = append(j.output, val)
	}
	return nil
}

// SetOutputFile allows changing the output file at runtime
func (j *RuntimeJSONOutputter) SetOutputFile(filename string) {
	j.outfile = filename
	slog.Debug("changed JSON output file", "filename", filename)
}

// Complete writes all stored outputs to the specified file. A run with zero
// findings still writes the artifact so its absence is never ambiguous.
func (j *RuntimeJSONOutputter) Complete() error {
	slog.Debug("writing JSON output", "filename", j.outfile, "entries", len(j.output))

	if err := utils.EnsureFileDirectory(j.outfile); err != nil {
		return err
	}

	writer, err := os.Create(j.outfile)
	if err != nil {
		return fmt.Errorf("error creating JSON file %s: %w", j.outfile, err)
	}
	defer writer.Close()

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", strings.Repeat(" ", j.indent))

	if len(j.output) == 1 {
		return encoder.Encode(j.output[0])
	}
	return encoder.Encode(j.output)
}

// Params defines the parameters accepted by this outputter
func (j *RuntimeJSONOutputter) Params() []cfg.Param {
	return []cfg.Param{
		cfg.NewParam[string]("jsonoutfile", "the default file to write the JSON to (can be changed at runtime)").WithDefault(defaultOutfile),
		cfg.NewParam[int]("indent", "the number of spaces to use for the JSON indentation").WithDefault(2),
	}
}
