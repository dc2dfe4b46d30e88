package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Encode(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{
			name:   "nil params",
			params: nil,
			want:   "",
		},
		{
			name:   "all zero values omitted",
			params: Params{"q": "", "page": 0, "premium": false, "rating": 0.0, "typeId": nil},
			want:   "",
		},
		{
			name:   "stable key order",
			params: Params{"page": 2, "limit": 10, "q": "plumber"},
			want:   "?limit=10&page=2&q=plumber",
		},
		{
			name:   "booleans and floats",
			params: Params{"verified": true, "minRating": 4.5},
			want:   "?minRating=4.5&verified=true",
		},
		{
			name:   "values are escaped",
			params: Params{"q": "a b&c"},
			want:   "?q=a+b%26c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Encode())
		})
	}
}

func TestFilterViewKey_Stable(t *testing.T) {
	a := Params{"typeId": "plumbing", "verified": true, "minRating": 4.0}
	b := Params{"minRating": 4.0, "verified": true, "typeId": "plumbing"}

	assert.Equal(t, FilterViewKey(a), FilterViewKey(b), "key must not depend on map order")
	assert.Contains(t, FilterViewKey(a), "filtered:")

	c := Params{"typeId": "roofing"}
	assert.NotEqual(t, FilterViewKey(a), FilterViewKey(c))
}

func TestRefreshExempt(t *testing.T) {
	tests := []struct {
		path   string
		exempt bool
	}{
		{EndpointLogin, true},
		{EndpointRegister, true},
		{EndpointLogout, true},
		{EndpointRefreshToken, true},
		{EndpointResendVerification, true},
		{EndpointForgotPassword, true},
		{EndpointVerify + "/tok123", true},
		{EndpointResetPassword + "/tok123", true},
		{EndpointProfile, false},
		{EndpointCompanies, false},
		{EndpointUsers + "/u1", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.exempt, RefreshExempt(tt.path))
		})
	}
}
