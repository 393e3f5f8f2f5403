package constants

// Response Codes are the machine readable codes carried in error responses.
const (
	ResponseFailure = false

	CodeBadRequest         = "bad_request"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "not_found"
	CodeMethodNotAllowed   = "method_not_allowed"
	CodeInternalError      = "internal_error"
	CodeValidationError    = "validation_error"
	CodeInvalidCredentials = "invalid_credentials"
	CodeTokenInvalid       = "invalid_token"
	CodeDuplicateResource  = "duplicate_resource"
	CodeInvalidResetToken  = "invalid_reset_token"
	CodeDeliveryFailed     = "delivery_failed"
	CodeStoreUnavailable   = "store_unavailable"
	CodeTooManyRequests    = "too_many_requests"
)

// HTTP headers used by handlers and middleware.
const (
	HeaderContentType           = "Content-Type"
	HeaderCacheControl          = "Cache-Control"
	HeaderPragma                = "Pragma"
	HeaderExpires               = "Expires"
	HeaderAuthorization         = "Authorization"
	HeaderRetryAfter            = "Retry-After"
	HeaderXForwardedFor         = "X-Forwarded-For"
	HeaderXRealIP               = "X-Real-IP"
	HeaderXContentTypeOptions   = "X-Content-Type-Options"
	HeaderXFrameOptions         = "X-Frame-Options"
	HeaderReferrerPolicy        = "Referrer-Policy"
	HeaderContentSecurityPolicy = "Content-Security-Policy"
)

const ContentTypeJSON = "application/json"

// Security header values.
const (
	FrameOptionsDeny           = "DENY"
	ContentTypeOptionsNoSniff  = "nosniff"
	ReferrerPolicyStrictOrigin = "strict-origin-when-cross-origin"
	CSPDefaultSrc              = "default-src 'none'"
	CacheControlNoStore        = "no-store"
	PragmaNoCache              = "no-cache"
	ExpiresZero                = "0"
)
