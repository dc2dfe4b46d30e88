// Package api defines the wire contract shared by every bizdir endpoint:
// the uniform response envelope, pagination metadata, endpoint paths, and
// query-parameter serialization.
package api

// Meta carries pagination metadata returned by list endpoints.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Envelope is the uniform response shape used by every remote call.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Authentication endpoints. These are exempt from the transport refresh
// protocol: a 401 from any of them must propagate instead of triggering a
// refresh-and-replay.
const (
	EndpointLogin              = "/auth/login"
	EndpointRegister           = "/auth/register"
	EndpointLogout             = "/auth/logout"
	EndpointProfile            = "/auth/profile"
	EndpointRefreshToken       = "/auth/refresh-token"
	EndpointVerify             = "/auth/verify" // + /:token
	EndpointResendVerification = "/auth/resend-verification"
	EndpointForgotPassword     = "/auth/forgot-password"
	EndpointResetPassword      = "/auth/reset-password" // + /:token
)

// Resource endpoints.
const (
	EndpointCompanies        = "/companies"
	EndpointUsers            = "/users"
	EndpointContacts         = "/contacts"
	EndpointPremiumCompanies = "/premium-companies"
	EndpointVerifiedCompanies = "/verified-companies"
	EndpointTopRated         = "/top-rated"
	EndpointBlockedCompanies = "/blocked-companies"
	EndpointSearch           = "/search"
	EndpointFilter           = "/filter"
)

// RefreshExempt reports whether path belongs to the fixed exemption list of
// the refresh protocol. Profile is intentionally absent: a 401 on a profile
// fetch is exactly the case the refresh-and-replay exists for.
func RefreshExempt(path string) bool {
	switch path {
	case EndpointLogin, EndpointRegister, EndpointLogout,
		EndpointRefreshToken, EndpointResendVerification, EndpointForgotPassword:
		return true
	}
	// Token-bearing paths have a dynamic trailing segment.
	return hasPrefixSegment(path, EndpointVerify) || hasPrefixSegment(path, EndpointResetPassword)
}

func hasPrefixSegment(path, prefix string) bool {
	return len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}
