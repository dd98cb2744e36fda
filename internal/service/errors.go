package service

import "fmt"

// Kind — класс ошибки, по нему HTTP-слой выбирает статус
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Машиночитаемые коды ошибок
const (
	CodeMissingField      = "MISSING_FIELD"
	CodeInvalidField      = "INVALID_FIELD"
	CodeMissingEmail      = "MISSING_EMAIL"
	CodeInvalidEmail      = "INVALID_EMAIL"
	CodeSnippetNotFound   = "SNIPPET_NOT_FOUND"
	CodeNotAvailable      = "NOT_AVAILABLE"
	CodeQuotaExceeded     = "QUOTA_EXCEEDED"
	CodeDuplicateReview   = "DUPLICATE_REVIEW"
	CodeInvalidLineReview = "INVALID_LINE_REVIEW"
	CodeNoValidItems      = "NO_VALID_ITEMS"
	CodeInternal          = "INTERNAL"
)

// Error — ошибка сервисного слоя. Message безопасно отдавать клиенту,
// Err (если есть) только логируется.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func notFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func storeFailure(op string, err error) *Error {
	return &Error{Kind: KindStore, Code: CodeInternal, Message: "db error", Err: fmt.Errorf("%s: %w", op, err)}
}

var (
	errSnippetNotFound = notFound(CodeSnippetNotFound, "code snippet not found")
	errQuotaExceeded   = conflict(CodeQuotaExceeded, "this code snippet has already received the maximum number of reviews")
	errDuplicateReview = conflict(CodeDuplicateReview, "you have already reviewed this code snippet")
)
