package core

import (
	"encoding/json"
	"net/http"
)

// Standard response codes
const (
	// oks
	CodeOkSignup       = "ok_signup"
	CodeOkLogin        = "ok_login"
	CodeOkCurrentUser  = "ok_current_user"
	CodeOkOAuth2Signin = "ok_oauth2_signin"

	//errors
	CodeErrorTokenGeneration       = "err_token_generation"
	CodeErrorInvalidInput          = "err_invalid_input"
	CodeErrorInvalidCredentials    = "err_invalid_credentials"
	CodeErrorAccountAlreadyExists  = "err_account_already_exists"
	CodeErrorUnauthorized          = "err_unauthorized"
	CodeErrorNotFound              = "err_not_found"
	CodeErrorOAuth2Provider        = "err_oauth2_provider"
	CodeErrorOAuth2InvalidState    = "err_oauth2_invalid_state"
	CodeErrorOAuth2NotConfigured   = "err_oauth2_not_configured"
	CodeErrorIdentityConflict      = "err_identity_conflict"
	CodeErrorAuthDatabaseError     = "err_auth_database_error"
	CodeErrorServiceUnavailable    = "err_service_unavailable"
	CodeErrorInvalidContentType    = "err_invalid_content_type"
	CodeErrorRequestEntityTooLarge = "err_request_entity_too_large"
)

// precomputeBasicResponse marshals the envelope once, at package
// initialization. Handlers write the stored bytes.
func precomputeBasicResponse(status int, code, message string) jsonResponse {
	basic := JsonBasic{
		Status:  status,
		Code:    code,
		Message: message,
	}
	body, _ := json.Marshal(basic)
	return jsonResponse{status: status, body: body}
}

// Precomputed error and ok responses with status codes
var (
	//errors
	errorTokenGeneration       = precomputeBasicResponse(http.StatusInternalServerError, CodeErrorTokenGeneration, "Failed to generate authentication token")
	errorInvalidInput          = precomputeBasicResponse(http.StatusBadRequest, CodeErrorInvalidInput, "The request contains invalid data")
	errorInvalidCredentials    = precomputeBasicResponse(http.StatusUnauthorized, CodeErrorInvalidCredentials, "Invalid credentials provided")
	errorAccountAlreadyExists  = precomputeBasicResponse(http.StatusBadRequest, CodeErrorAccountAlreadyExists, "Email address is already registered")
	errorUnauthorized          = precomputeBasicResponse(http.StatusUnauthorized, CodeErrorUnauthorized, "Invalid or missing authentication token")
	errorNotFound              = precomputeBasicResponse(http.StatusNotFound, CodeErrorNotFound, "Requested resource not found")
	errorOAuth2Provider        = precomputeBasicResponse(http.StatusBadRequest, CodeErrorOAuth2Provider, "OAuth2 provider authentication failed")
	errorOAuth2InvalidState    = precomputeBasicResponse(http.StatusBadRequest, CodeErrorOAuth2InvalidState, "Invalid or expired OAuth2 state")
	errorOAuth2NotConfigured   = precomputeBasicResponse(http.StatusServiceUnavailable, CodeErrorOAuth2NotConfigured, "OAuth2 provider is not configured")
	errorIdentityConflict      = precomputeBasicResponse(http.StatusConflict, CodeErrorIdentityConflict, "The provider account conflicts with an existing account")
	errorAuthDatabaseError     = precomputeBasicResponse(http.StatusInternalServerError, CodeErrorAuthDatabaseError, "Database error during authentication")
	errorServiceUnavailable    = precomputeBasicResponse(http.StatusServiceUnavailable, CodeErrorServiceUnavailable, "Service is temporarily unavailable")
	errorInvalidContentType    = precomputeBasicResponse(http.StatusUnsupportedMediaType, CodeErrorInvalidContentType, "Unsupported media type")
	errorRequestEntityTooLarge = precomputeBasicResponse(http.StatusRequestEntityTooLarge, CodeErrorRequestEntityTooLarge, "Request body too large")
)
