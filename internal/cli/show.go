package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wizard/internal/store"
	"github.com/roach88/wizard/internal/value"
)

// StoreOptions holds the database flags shared by show and edit.
type StoreOptions struct {
	Database   string
	Driver     string
	Collection string
}

func (o *StoreOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&o.Driver, "driver", store.DriverCGO,
		fmt.Sprintf("database/sql driver (%s|%s)", store.DriverCGO, store.DriverPure))
	cmd.Flags().StringVar(&o.Collection, "collection", "", "collection name")
}

func (o *StoreOptions) open() (*store.Store, error) {
	st, err := store.OpenDriver(o.Driver, o.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	StoreOptions
	ID string
}

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	Collection    string         `json:"collection"`
	VisibleFields []string       `json:"visible_fields,omitempty"`
	Documents     []value.Record `json:"documents"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print stored documents",
		Long: `Print the documents of a collection, or one document by id.

Documents are printed as canonical JSON, one per line, in insertion
order. The collection's form definition is shown when one is stored.

Examples:
  wizard show --db ./wizard.db --collection contacts
  wizard show --db ./wizard.db --collection contacts --id c1
  wizard show --db ./wizard.db --collection contacts --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	opts.bind(cmd)
	_ = cmd.MarkFlagRequired("collection")
	cmd.Flags().StringVar(&opts.ID, "id", "", "document id")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	coll := st.Collection(opts.Collection)
	result := ShowResult{Collection: coll.Name(), Documents: []value.Record{}}

	fields, ok, err := st.VisibleFields(ctx, coll.Name())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read form definition", err)
	}
	if ok {
		result.VisibleFields = fields
	}

	if opts.ID != "" {
		doc, found, err := coll.FindOne(ctx, opts.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read document", err)
		}
		if !found {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no document %s in %s", opts.ID, coll.Name()), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("document %s not found", opts.ID))
		}
		result.Documents = append(result.Documents, doc)
	} else {
		docs, err := coll.List(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list documents", err)
		}
		result.Documents = append(result.Documents, docs...)
	}

	formatter.VerboseLog("%d document(s) in %s", len(result.Documents), coll.Name())

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.VisibleFields != nil {
		fmt.Fprintf(w, "# visible fields: %s\n", strings.Join(result.VisibleFields, ", "))
	}
	for _, doc := range result.Documents {
		data, err := value.MarshalCanonical(doc)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode document", err)
		}
		fmt.Fprintln(w, string(data))
	}
	return nil
}
