package response

// ErrCode identifies an API failure in a way clients can switch on
// without parsing the message text.
type ErrCode string

const (
	// ─── Auth and sessions ─────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Access control ────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"

	// ─── Input ─────────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Records ───────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"
	ErrActionForbidden  ErrCode = "ACTION_FORBIDDEN"

	// ─── Pages and editing ─────────────────────────────────────────────
	ErrPageLocked       ErrCode = "PAGE_LOCKED"
	ErrPageNotDraft     ErrCode = "PAGE_NOT_DRAFT"
	ErrPageNotPublished ErrCode = "PAGE_NOT_PUBLISHED"
	ErrNotPageAuthor    ErrCode = "NOT_PAGE_AUTHOR"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"

	// ─── Uploads ───────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Throttling and server ─────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"
	ErrInternal          ErrCode = "INTERNAL_ERROR"
)

var errMessages = map[ErrCode]string{
	ErrInvalidCredentials: "Email or password is incorrect.",
	ErrSessionActive:      "You are already signed in on another device.",
	ErrSessionInvalidated: "Your session has ended. Please sign in again.",
	ErrTokenRequired:      "An authentication token is required.",
	ErrTokenInvalid:       "The authentication token is invalid.",
	ErrTokenExpired:       "The authentication token has expired.",

	ErrForbidden:        "You do not have access to this resource.",
	ErrPermissionDenied: "Permission denied.",

	ErrValidation:     "Validation failed. Please check your input.",
	ErrInvalidID:      "Invalid ID format.",
	ErrInvalidPayload: "Invalid request payload.",

	ErrNotFound:         "Resource not found.",
	ErrConflict:         "Resource already exists.",
	ErrDependencyExists: "This record is still referenced by other records and cannot be deleted.",
	ErrActionForbidden:  "This action is not allowed.",

	ErrPageLocked:       "This page is being edited in another session.",
	ErrPageNotDraft:     "This page is not in DRAFT status.",
	ErrPageNotPublished: "This page has not been published.",
	ErrNotPageAuthor:    "You are not the author of this page.",
	ErrNoQuestions:      "This page has no questions.",

	ErrFileRequired:    "A file upload is required.",
	ErrUnsupportedFile: "Unsupported file type.",
	ErrFileTooLarge:    "File size exceeds the limit.",

	ErrRateLimitExceeded: "Too many requests. Please try again later.",
	ErrInternal:          "An internal server error occurred.",
}

// GetMessage returns the user-facing text for a code.
func GetMessage(code ErrCode) string {
	if msg, ok := errMessages[code]; ok {
		return msg
	}
	return "An unexpected error occurred."
}
