package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wizard/internal/engine"
	"github.com/roach88/wizard/internal/value"
)

// opTimeout bounds the wait for a queued write.
const opTimeout = 30 * time.Second

// EditOptions holds flags for the edit command.
type EditOptions struct {
	*RootOptions
	StoreOptions
	Schema     string
	SchemaName string
	ID         string
	IDs        string   // uuid | ulid
	Define     []string // visible fields to store as the form definition
	Create     bool
	Save       bool
	Remove     bool
}

// EditResult is the JSON payload of the edit command.
type EditResult struct {
	ID      string            `json:"id,omitempty"`
	State   string            `json:"state"`
	Op      string            `json:"op,omitempty"`
	Context value.Record      `json:"context"`
	Invalid map[string]string `json:"invalid,omitempty"`
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit [field=value]...",
		Short: "Edit a document through the engine",
		Long: `Edit a document the way a form would.

Each field=value argument is processed in order: the value is cleaned
to the field's kind, written into the data context and validated, and
dependent fields are reset. Values starting with [ or { are parsed as
JSON. Indexed addresses such as tags.0.label edit one array element;
an object given for an array of objects appends a row.

Without --id a new document is started from the schema defaults.
--create inserts it with a generated id, --save writes an existing
document, --remove deletes it. Without any of them nothing is written
and the resulting data context is printed.

Exit codes:
  0 - Edits applied (and written, if requested)
  1 - The document failed validation
  2 - Command error (bad flags, unknown document, database error)

Examples:
  wizard edit --db ./wizard.db --schema contacts.cue name=Ada age=36 --create
  wizard edit --db ./wizard.db --schema contacts.cue --id c1 country=FR --save
  wizard edit --db ./wizard.db --schema contacts.cue --id c1 'tags={"label":"vip"}' --save`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, args, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE schema file or directory (required)")
	_ = cmd.MarkFlagRequired("schema")
	cmd.Flags().StringVar(&opts.SchemaName, "name", "", "schema name when the file declares several")
	cmd.Flags().StringVar(&opts.ID, "id", "", "id of the document to edit")
	cmd.Flags().StringVar(&opts.IDs, "ids", "uuid", "id format for --create (uuid|ulid)")
	cmd.Flags().StringSliceVar(&opts.Define, "define", nil, "store the visible fields of the form definition")
	cmd.Flags().BoolVar(&opts.Create, "create", false, "insert the document")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "update the document")
	cmd.Flags().BoolVar(&opts.Remove, "remove", false, "remove the document")
	cmd.MarkFlagsMutuallyExclusive("create", "save", "remove")

	return cmd
}

func runEdit(opts *EditOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	pairs, err := parseAssignments(args)
	if err != nil {
		_ = formatter.Error(ErrCodeBadArg, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid argument", err)
	}

	ids, err := idGenerator(opts.IDs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --ids", err)
	}

	s, err := LoadSchema(opts.Schema, opts.SchemaName)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		}
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	collName := opts.Collection
	if collName == "" {
		collName = s.Name()
	}
	coll := st.Collection(collName)
	coll.AttachSchema(s)

	if opts.Define != nil {
		if err := st.SetVisibleFields(ctx, collName, opts.Define); err != nil {
			return WrapExitError(ExitCommandError, "failed to store form definition", err)
		}
		formatter.VerboseLog("Stored form definition for %s: %v", collName, opts.Define)
	}

	eng := engine.New(
		engine.WithIDGenerator(ids),
		engine.WithDefinitions(st),
		engine.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter())),
	)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()
	defer func() {
		eng.Stop()
		<-done
	}()

	if err := eng.Init(ctx, engine.Config{Collection: coll, ID: opts.ID}); err != nil {
		if engine.IsNotFound(err) {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		}
		return WrapExitError(ExitCommandError, "failed to initialize", err)
	}

	for _, p := range pairs {
		if !eng.IsFieldActive(p.Field) {
			formatter.VerboseLog("Field %s is not part of the form definition", p.Field)
		}
		if err := eng.ProcessFieldValuePair(p.Field, p.Value); err != nil {
			_ = formatter.Error(ErrCodeFieldPath, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("cannot set %s", p.Field), err)
		}
	}

	result := EditResult{}
	var op *engine.Op
	switch {
	case opts.Create:
		result.Op = "create"
		op, err = eng.Create(ctx)
	case opts.Save:
		result.Op = "save"
		op, err = eng.Save(ctx)
	case opts.Remove:
		result.Op = "remove"
		op, err = eng.Remove(ctx)
	}
	if err == nil && op != nil {
		waitCtx, cancelWait := context.WithTimeout(ctx, opTimeout)
		err = op.Wait(waitCtx)
		cancelWait()
	}

	result.Context = eng.Context()
	result.State = eng.State().String()
	if id, ok := result.Context.ID(); ok {
		result.ID = id
	}
	for _, f := range eng.InvalidFields() {
		if result.Invalid == nil {
			result.Invalid = make(map[string]string)
		}
		result.Invalid[f] = eng.ErrorMessage(f)
	}

	if err != nil {
		return outputEditError(formatter, result, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputEditText(formatter, result)
}

func outputEditError(formatter *OutputFormatter, result EditResult, err error) error {
	switch {
	case engine.IsValidationError(err):
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeInvalidDoc, err.Error(), result)
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Document is invalid")
			for _, f := range sortedInvalid(result.Invalid) {
				fmt.Fprintf(formatter.Writer, "  %s: %s\n", f, result.Invalid[f])
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s refused: document is invalid", result.Op))
	case engine.IsNotCreated(err):
		_ = formatter.Error(ErrCodeNotCreated, err.Error(), nil)
		return WrapExitError(ExitCommandError, result.Op+" refused", err)
	case engine.IsAlreadyCreated(err):
		_ = formatter.Error(ErrCodeCreated, err.Error(), nil)
		return WrapExitError(ExitCommandError, result.Op+" refused", err)
	default:
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, result.Op+" failed", err)
	}
}

func outputEditText(formatter *OutputFormatter, result EditResult) error {
	w := formatter.Writer
	data, err := value.MarshalCanonical(result.Context)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode document", err)
	}
	fmt.Fprintln(w, string(data))

	for _, f := range sortedInvalid(result.Invalid) {
		fmt.Fprintf(w, "! %s: %s\n", f, result.Invalid[f])
	}

	switch result.Op {
	case "create":
		fmt.Fprintf(w, "✓ created %s\n", result.ID)
	case "save":
		fmt.Fprintf(w, "✓ saved %s\n", result.ID)
	case "remove":
		fmt.Fprintf(w, "✓ removed %s\n", result.ID)
	}
	return nil
}

// parseAssignments turns field=value arguments into pairs. Values that
// start with [ or { are decoded as JSON; everything else is kept as text
// for the schema to coerce.
func parseAssignments(args []string) ([]engine.FieldValuePair, error) {
	pairs := make([]engine.FieldValuePair, 0, len(args))
	for _, arg := range args {
		field, raw, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}

		var v value.Value = value.String(raw)
		if strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, "{") {
			parsed, err := value.ParseJSON([]byte(raw))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			v = parsed
		}
		pairs = append(pairs, engine.FieldValuePair{Field: field, Value: v})
	}
	return pairs, nil
}

func idGenerator(format string) (engine.IDGenerator, error) {
	switch format {
	case "uuid", "":
		return engine.UUIDv7Generator{}, nil
	case "ulid":
		return engine.ULIDGenerator{}, nil
	}
	return nil, fmt.Errorf("unknown id format %q: must be uuid or ulid", format)
}

func sortedInvalid(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
