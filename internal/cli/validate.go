package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wizard/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool            `json:"valid"`
	Schemas []SchemaSummary `json:"schemas,omitempty"`
	Errors  []LoadIssue     `json:"errors,omitempty"`
}

// SchemaSummary describes one compiled schema.
type SchemaSummary struct {
	Name   string         `json:"name"`
	Fields []FieldSummary `json:"fields"`
}

// FieldSummary describes one field of a compiled schema.
type FieldSummary struct {
	Name         string         `json:"name"`
	Kind         string         `json:"kind"`
	Label        string         `json:"label"`
	Optional     bool           `json:"optional,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Allowed      []string       `json:"allowed,omitempty"`
	Subfields    []FieldSummary `json:"subfields,omitempty"`
}

// LoadIssue is a schema error in JSON output.
type LoadIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema.cue|schemas-dir>",
		Short: "Compile form schemas and list their fields",
		Long: `Compile CUE form schemas and report authoring errors.

A file is compiled on its own; a directory is loaded as one CUE
package. On success every schema is listed with its fields, kinds
and dependencies.

Exit codes:
  0 - All schemas valid
  1 - A schema failed to compile
  2 - Command error (path not found, no CUE files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	res, err := LoadSchemas(path)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		return outputValidationError(formatter, loadErr)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, path)

	summaries := make([]SchemaSummary, 0, res.Catalog.Len())
	for _, name := range res.Catalog.Names() {
		s, _ := res.Catalog.Get(name)
		formatter.VerboseLog("Compiled schema: %s", name)
		summaries = append(summaries, summarize(s))
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Schemas: summaries})
	}

	w := formatter.Writer
	for _, s := range summaries {
		fmt.Fprintf(w, "%s (%d fields)\n", s.Name, len(s.Fields))
		for _, f := range s.Fields {
			writeFieldLine(w, "  ", f)
			for _, sf := range f.Subfields {
				writeFieldLine(w, "    ", sf)
			}
		}
	}
	fmt.Fprintf(w, "✓ %d schema(s) valid\n", len(summaries))
	return nil
}

func writeFieldLine(w io.Writer, indent string, f FieldSummary) {
	line := fmt.Sprintf("%s%-12s %-12s %q", indent, f.Name, f.Kind, f.Label)
	if f.Optional {
		line += " optional"
	}
	if len(f.Dependencies) > 0 {
		line += " resets " + strings.Join(f.Dependencies, ",")
	}
	if len(f.Allowed) > 0 {
		line += " one of " + strings.Join(f.Allowed, ",")
	}
	fmt.Fprintln(w, line)
}

func summarize(s *schema.Schema) SchemaSummary {
	out := SchemaSummary{Name: s.Name()}
	for _, f := range s.Fields() {
		out.Fields = append(out.Fields, summarizeField(f))
	}
	return out
}

func summarizeField(f *schema.Field) FieldSummary {
	fs := FieldSummary{
		Name:         f.Name,
		Kind:         f.Kind.String(),
		Label:        f.Label,
		Optional:     f.Optional,
		Dependencies: f.Dependencies,
	}
	if f.Kind == schema.KindArray {
		fs.Kind += "<" + f.Of.String() + ">"
	}
	for _, opt := range f.Allowed {
		fs.Allowed = append(fs.Allowed, opt.Value)
	}
	for _, sf := range f.Subfields {
		fs.Subfields = append(fs.Subfields, summarizeField(sf))
	}
	return fs
}

// outputValidationError reports a failed load. Missing paths are command
// errors (exit 2); schemas that fail to compile are validation failures
// (exit 1).
func outputValidationError(formatter *OutputFormatter, loadErr *LoadError) error {
	code := ExitFailure
	switch loadErr.Code {
	case ErrCodeNotFound, ErrCodeNoFiles, ErrCodeScanError:
		code = ExitCommandError
	}

	issue := LoadIssue{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		issue.File = loadErr.Pos.Filename()
		issue.Line = loadErr.Pos.Line()
	}

	if formatter.Format == "json" {
		_ = formatter.Error(issue.Code, issue.Message, ValidationResult{Valid: false, Errors: []LoadIssue{issue}})
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s line %d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Code, issue.Message)
	}
	return NewExitError(code, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
}
