package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/factdb/internal/compiler"
	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/planner"
	"github.com/roach88/factdb/internal/schema"
	"github.com/roach88/factdb/internal/spec"
	"github.com/roach88/factdb/internal/store"
)

// Error code constants - unified across all CLI commands. Compilation
// errors keep their compiler codes (E201-E208).
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeNotFound = "E002" // Path not found
	ErrCodeModel    = "E003" // Model file invalid
	ErrCodeInput    = "E004" // Malformed facts or references
	ErrCodeStore    = "E005" // Store open, read, or write failed
	ErrCodeUsage    = "E006" // Missing argument or flag
)

// LoadError represents a failure to load CLI input: the model, an
// expression file, or a fact file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModel reads the fact type model at path (.cue, .yaml, or .yml).
func LoadModel(path string) (*schema.Model, error) {
	if path == "" {
		return nil, &LoadError{Code: ErrCodeUsage, Message: "a model is required (--model or FACTDB_MODEL)"}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model not found: %s", path)}
	}

	m, err := schema.Load(path)
	if err != nil {
		var me *schema.ModelError
		if errors.As(err, &me) {
			return nil, &LoadError{Code: ErrCodeModel, Message: fmt.Sprintf("%s: %s", me.Field, me.Message), Pos: me.Pos}
		}
		return nil, &LoadError{Code: ErrCodeModel, Message: err.Error()}
	}
	return m, nil
}

// readSource returns the contents of path, or of in when path is "-".
func readSource(path string, in io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading stdin: %v", err)}
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	return data, nil
}

// expressionSource picks the expression from the single positional
// argument, or from the --file flag.
func expressionSource(args []string, file string, in io.Reader) (string, error) {
	switch {
	case len(args) == 1 && file == "":
		return args[0], nil
	case len(args) == 0 && file != "":
		data, err := readSource(file, in)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", &LoadError{Code: ErrCodeUsage, Message: "give the expression as one argument or with --file"}
	}
}

// compileExpression loads the model and compiles expr against it.
func compileExpression(modelPath, expr string) (*spec.Specification, error) {
	m, err := LoadModel(modelPath)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(m, expr)
}

// parseReferences parses "type:hash" arguments.
func parseReferences(args []string) ([]fact.Reference, error) {
	refs := make([]fact.Reference, 0, len(args))
	for _, arg := range args {
		ref, err := fact.ParseReference(strings.TrimSpace(arg))
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// openStore opens the SQLite store at path.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, &LoadError{Code: ErrCodeUsage, Message: "a database is required (--db or FACTDB_DATABASE)"}
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStore, Message: err.Error()}
	}
	return s, nil
}

// fail reports err through the formatter and returns an ExitError that
// carries the matching exit code.
func fail(f *OutputFormatter, err error) error {
	var (
		ce *compiler.CompileError
		le *LoadError
	)
	switch {
	case errors.As(err, &ce):
		details := map[string]any{}
		if ce.Pos.IsValid() {
			details["line"] = ce.Pos.Line
			details["column"] = ce.Pos.Column
		}
		if ce.Variable != "" {
			details["variable"] = ce.Variable
		}
		if ce.Suggestion != "" {
			details["suggestion"] = ce.Suggestion
		}
		f.Error(ce.Code, ce.Error(), details)
		return WrapExitError(ExitFailure, "compile", err)
	case errors.As(err, &le):
		var details any
		if le.Pos.IsValid() {
			details = map[string]any{"file": le.Pos.Filename(), "line": le.Pos.Line(), "column": le.Pos.Column()}
		}
		f.Error(le.Code, le.Message, details)
		return WrapExitError(ExitCommandError, le.Code, err)
	case errors.Is(err, planner.ErrGivenMismatch):
		f.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "givens", err)
	case fact.IsDataError(err):
		f.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitFailure, "input", err)
	default:
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "error", err)
	}
}
