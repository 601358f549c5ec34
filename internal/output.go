package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// OutputFormat represents the output format type
type OutputFormat int

const (
	// OutputFormatText is human-readable text output (default)
	OutputFormatText OutputFormat = iota
	// OutputFormatJSON is JSON output for programmatic consumption
	OutputFormatJSON
)

// OutputConfig holds the global output configuration
type OutputConfig struct {
	Format OutputFormat
	Writer io.Writer
}

var globalOutputConfig = &OutputConfig{Format: OutputFormatText}

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text":
		return OutputFormatText, nil
	case "json":
		return OutputFormatJSON, nil
	}
	return OutputFormatText, fmt.Errorf("unknown output format %q (must be text or json)", name)
}

// SetOutputFormat sets the global output format
func SetOutputFormat(format OutputFormat) {
	globalOutputConfig.Format = format
}

// GetOutputFormat returns the current global output format
func GetOutputFormat() OutputFormat {
	return globalOutputConfig.Format
}

// SetOutputWriter redirects command output. A nil writer restores stdout.
func SetOutputWriter(w io.Writer) {
	globalOutputConfig.Writer = w
}

// OutputWriter is where command results and text reports go.
func OutputWriter() io.Writer {
	if globalOutputConfig.Writer == nil {
		return os.Stdout
	}
	return globalOutputConfig.Writer
}

// IsJSONOutput returns true if JSON output is enabled
func IsJSONOutput() bool {
	return globalOutputConfig.Format == OutputFormatJSON
}

// OutputJSON writes a value as indented JSON to the output writer
func OutputJSON(v interface{}) error {
	encoder := json.NewEncoder(OutputWriter())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// OutputResult wraps data in a successful CommandResult in JSON mode.
// In text mode it does nothing; the caller prints its own report.
func OutputResult(command string, data interface{}) error {
	return outputResult(command, true, data)
}

// OutputFailure is OutputResult for a command that ran but whose probe
// step failed; the data is still emitted.
func OutputFailure(command string, data interface{}) error {
	return outputResult(command, false, data)
}

func outputResult(command string, success bool, data interface{}) error {
	if GetOutputFormat() != OutputFormatJSON {
		return nil
	}
	return OutputJSON(CommandResult{
		Success: success,
		Command: command,
		Data:    data,
	})
}

// OutputError reports a command error as JSON or through the logger.
func OutputError(command string, err error) {
	if GetOutputFormat() == OutputFormatJSON {
		OutputJSON(CommandResult{
			Success: false,
			Command: command,
			Error:   err.Error(),
		})
	} else {
		LogError("%v", err)
	}
}
