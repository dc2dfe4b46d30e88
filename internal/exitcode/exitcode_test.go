package exitcode

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/bizdir/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"auth", errors.New(errors.KindAuth, "unauthenticated"), AuthError},
		{"forbidden", errors.NewForbiddenLocal("block company"), AuthError},
		{"blocked", errors.New(errors.KindBlocked, "blocked"), BlockedError},
		{"network", errors.NewNetwork(fmt.Errorf("refused")), NetworkError},
		{"validation", errors.New(errors.KindValidation, "bad input"), UsageError},
		{"server", errors.New(errors.KindServer, "boom"), GeneralError},
		{"plain", fmt.Errorf("anything"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineExitCode(tt.err))
		})
	}
}
