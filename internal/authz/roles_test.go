package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, RoleAdmin, Parse("admin"))
	assert.Equal(t, RoleAuthor, Parse("author"))
	assert.Equal(t, RoleUser, Parse("user"))
	assert.Equal(t, RoleUser, Parse(""))
	assert.Equal(t, RoleUser, Parse("superuser"))
}

func TestCanAdministrate(t *testing.T) {
	assert.True(t, RoleAdmin.CanAdministrate())
	assert.False(t, RoleAuthor.CanAdministrate())
	assert.False(t, RoleUser.CanAdministrate())
}
