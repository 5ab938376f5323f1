// Package xerrors provides structured error handling for xfinder.
//
// The taxonomy is fixed by the design: PathNotFound, IoError, IndexCorrupt,
// IndexBusy, QueryParse, StorageError, SchemaMismatch, HashUnavailable,
// ExtractUnsupported, VectorDimMismatch, BackgroundQueueClosed.
package xerrors

// Category groups codes for coarse-grained handling.
type Category string

const (
	CategoryFilesystem Category = "FILESYSTEM"
	CategoryIndex       Category = "INDEX"
	CategoryStore       Category = "STORE"
	CategoryQuery       Category = "QUERY"
	CategorySemantic    Category = "SEMANTIC"
	CategoryInternal    Category = "INTERNAL"
)

// Severity classifies how the caller should react.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Code is one of the fixed taxonomy members from the design.
type Code string

const (
	CodePathNotFound          Code = "PathNotFound"
	CodeIoError               Code = "IoError"
	CodeIndexCorrupt          Code = "IndexCorrupt"
	CodeIndexBusy             Code = "IndexBusy"
	CodeQueryParse            Code = "QueryParse"
	CodeStorageError          Code = "StorageError"
	CodeSchemaMismatch        Code = "SchemaMismatch"
	CodeHashUnavailable       Code = "HashUnavailable"
	CodeExtractUnsupported    Code = "ExtractUnsupported"
	CodeVectorDimMismatch     Code = "VectorDimMismatch"
	CodeBackgroundQueueClosed Code = "BackgroundQueueClosed"
)

// categoryFromCode maps each taxonomy member to a handling category.
func categoryFromCode(code Code) Category {
	switch code {
	case CodePathNotFound, CodeIoError, CodeHashUnavailable, CodeExtractUnsupported:
		return CategoryFilesystem
	case CodeIndexCorrupt, CodeIndexBusy, CodeVectorDimMismatch:
		return CategoryIndex
	case CodeStorageError, CodeSchemaMismatch:
		return CategoryStore
	case CodeQueryParse:
		return CategoryQuery
	case CodeBackgroundQueueClosed:
		return CategorySemantic
	default:
		return CategoryInternal
	}
}

// severityFromCode assigns the propagation band from spec.md §7.
func severityFromCode(code Code) Severity {
	switch code {
	case CodeIndexCorrupt, CodeSchemaMismatch:
		return SeverityFatal
	case CodeIndexBusy, CodeHashUnavailable, CodeExtractUnsupported:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether a caller may usefully retry the operation.
func isRetryableCode(code Code) bool {
	switch code {
	case CodeIndexBusy:
		return true
	default:
		return false
	}
}
