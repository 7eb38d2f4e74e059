package xlsximport

import (
	"errors"
	"fmt"
	"strings"
)

// Import error codes
const (
	ErrCodeImportInvalidFile   = "ERR_IMPORT_INVALID_FILE"
	ErrCodeImportEmptyFile     = "ERR_IMPORT_EMPTY_FILE"
	ErrCodeImportFileTooLarge  = "ERR_IMPORT_FILE_TOO_LARGE"
	ErrCodeImportNoSheet       = "ERR_IMPORT_NO_SHEET"
	ErrCodeImportMissingHeader = "ERR_IMPORT_MISSING_HEADER"
	ErrCodeImportSchema        = "ERR_IMPORT_SCHEMA"
)

// Common import errors
var (
	// ErrEmptyWorkbook is returned when the workbook has no data rows
	ErrEmptyWorkbook = errors.New("workbook contains no data rows")

	// ErrMissingHeader is returned when the sheet has no header row
	ErrMissingHeader = errors.New("sheet missing header row")

	// ErrNoSheet is returned when the workbook has no sheets
	ErrNoSheet = errors.New("workbook has no sheets")

	// ErrFileTooLarge is returned when the file exceeds maximum size
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

// SchemaError reports structurally required columns absent from the
// sheet. It fails the whole run before any row is processed.
type SchemaError struct {
	Missing []string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// NewSchemaError creates a SchemaError for the missing columns
func NewSchemaError(missing []string) *SchemaError {
	return &SchemaError{Missing: missing}
}

// IsSchemaError reports whether err is a schema validation failure
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
