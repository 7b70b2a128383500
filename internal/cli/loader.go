package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/wizard/internal/schema"
)

// LoadResult contains the schemas compiled from a file or directory.
type LoadResult struct {
	Catalog   *schema.Catalog
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during schema loading.
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

// LoadSchemas compiles the schemas declared in path. A file is compiled on
// its own; a directory is loaded as one CUE package.
func LoadSchemas(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema path: %v", err)}
	}

	if !info.IsDir() {
		cat, err := schema.LoadFile(path)
		if err != nil {
			return nil, convertCompileError(err)
		}
		return &LoadResult{Catalog: cat, FileCount: 1}, nil
	}

	files, err := FindCUEFiles(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}

	cat, err := schema.LoadDir(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Catalog: cat, FileCount: len(files)}, nil
}

// LoadSchema loads path and returns the schema called name. An empty name
// selects the only schema of a single-schema file.
func LoadSchema(path, name string) (*schema.Schema, error) {
	res, err := LoadSchemas(path)
	if err != nil {
		return nil, err
	}
	cat := res.Catalog
	if name == "" {
		if cat.Len() != 1 {
			return nil, &LoadError{
				Code:    ErrCodeAmbiguous,
				Message: fmt.Sprintf("%s declares %d schemas, use --name", path, cat.Len()),
			}
		}
		name = cat.Names()[0]
	}
	s, ok := cat.Get(name)
	if !ok {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema %q not found in %s", name, path)}
	}
	return s, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a schema error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *schema.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path, schema or document not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeAmbiguous   = "E007" // Several schemas and no name given
	ErrCodeStore       = "E008" // Database error

	// Schema authoring errors
	ErrCodeFields  = "E101" // Missing fields block
	ErrCodeAllowed = "E102" // Malformed allowedValues
	ErrCodeSchema  = "E103" // Any other field declaration error

	// Document errors
	ErrCodeInvalidDoc = "E201" // Document failed validation
	ErrCodeNotCreated = "E202" // Save of a document that has no id
	ErrCodeFieldPath  = "E203" // Indexed address into a missing element
	ErrCodeBadArg     = "E204" // Malformed field=value argument
	ErrCodeCreated    = "E205" // Create of a document that already has an id
)

// MapFieldToErrorCode maps a schema compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeBuildFailed
	case "fields":
		return ErrCodeFields
	case "allowedValues":
		return ErrCodeAllowed
	default:
		return ErrCodeSchema
	}
}
