package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/neuromap/internal/pipeline"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Blocking violations, invalid graph, fail-fast partition
	ExitCommandError = 2 // Command error (invalid paths, bad profile, unknown pass, etc.)
)

// Error codes reported in CLI output.
const (
	ErrCodeInvalidInput  = "E002" // Graph, manifest or profile could not be decoded
	ErrCodeNotFound      = "E005" // Path or record not found
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeConfiguration = "E010" // Unknown pass or unmet pass ordering
	ErrCodeStructural    = "E011" // Graph failed structural validation
	ErrCodePartition     = "E012" // Population larger than a core (fail-fast)
	ErrCodeInternal      = "E013" // Pass broke an internal invariant
	ErrCodePassFailed    = "E014" // Pass returned an unexpected error
	ErrCodeBlocking      = "E020" // Mapping has Blocking violations
	ErrCodeHistory       = "E030" // Run history database error
)

// runErrorCodes maps pipeline error codes to CLI codes and exit codes.
// Findings about the graph exit with ExitFailure; the rest are command
// errors.
var runErrorCodes = map[pipeline.ErrorCode]struct {
	code string
	exit int
}{
	pipeline.ErrCodeConfiguration:     {ErrCodeConfiguration, ExitCommandError},
	pipeline.ErrCodeStructural:        {ErrCodeStructural, ExitFailure},
	pipeline.ErrCodePartition:         {ErrCodePartition, ExitFailure},
	pipeline.ErrCodeInternalInvariant: {ErrCodeInternal, ExitCommandError},
	pipeline.ErrCodePassFailed:        {ErrCodePassFailed, ExitCommandError},
}

// RunErrorCode returns the CLI error code and exit code for an error
// returned by the pipeline. Errors without a pipeline code count as pass
// failures.
func RunErrorCode(err error) (code string, exit int) {
	var perr *pipeline.Error
	if errors.As(err, &perr) {
		if c, ok := runErrorCodes[perr.Code]; ok {
			return c.code, c.exit
		}
	}
	return ErrCodePassFailed, ExitCommandError
}

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as a JSON envelope or as text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose progress; stderr so JSON on Writer stays parseable
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	Data   any       `json:"data,omitempty"`   // success payload, or the partial result of a failed mapping
	Error  *CLIError `json:"error,omitempty"`  // error details
	RunID  string    `json:"run_id,omitempty"` // history record of the run, if stored
}

// CLIError is the error part of a response.
type CLIError struct {
	Code    string `json:"code"`              // ErrCode* value
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // structural errors, configuration problems
}

func (f *OutputFormatter) isJSON() bool {
	return f.Format == "json"
}

// Respond writes a full envelope as indented JSON.
func (f *OutputFormatter) Respond(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.Respond(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format. Text output shows
// details only in verbose mode.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.Respond(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail outputs an error and returns the ExitError the command should
// return.
func (f *OutputFormatter) Fail(exit int, code, message string, details any) error {
	_ = f.Error(code, message, details)
	return WrapExitError(exit, fmt.Sprintf("%s: %s", code, message), nil)
}

// VerboseLog writes a progress line to ErrWriter (Writer if unset) in
// verbose mode.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
