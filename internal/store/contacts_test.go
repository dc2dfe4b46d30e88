package store

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/bizdir/internal/authz"
	"github.com/felixgeelhaar/bizdir/internal/errors"
)

const inquiry = `{"id":"q1","companyId":"c1","name":"Ada","email":"ada@example.com","subject":"Quote","message":"Need a quote","status":"new"}`

func TestContacts_SendAppendsAfterConfirmation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/contacts", r.URL.Path)
		fmt.Fprint(w, `{"success":true,"message":"ok","data":`+inquiry+`}`)
	}))
	defer srv.Close()

	s := NewContacts(newTransport(t, srv), stubRoles{authz.RoleUser}, nil)

	sent, err := s.Send(context.Background(), ContactInput{CompanyID: "c1", Subject: "Quote", Message: "Need a quote"})
	require.NoError(t, err)
	assert.Equal(t, "q1", sent.ID)
	require.Len(t, s.Items(), 1)
}

func TestContacts_MineView(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/contacts/mine", r.URL.Path)
		fmt.Fprint(w, `{"success":true,"message":"ok","data":[`+inquiry+`]}`)
	}))
	defer srv.Close()

	s := NewContacts(newTransport(t, srv), stubRoles{authz.RoleUser}, nil)
	require.NoError(t, s.GetMine(context.Background(), nil))

	assert.True(t, s.ViewState(ViewMine).Loaded)
	assert.False(t, s.ViewState(ViewAll).Loaded)
	assert.Len(t, s.Items(), 1)
}

func TestContacts_UpdateStatusGated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/contacts/q1/status", r.URL.Path)
		fmt.Fprint(w, `{"success":true,"message":"ok","data":{"id":"q1","companyId":"c1","status":"handled"}}`)
	}))
	defer srv.Close()

	nonAdmin := NewContacts(newTransport(t, srv), stubRoles{authz.RoleUser}, nil)
	_, err := nonAdmin.UpdateStatus(context.Background(), "q1", "handled")
	assert.True(t, errors.IsForbidden(err))

	admin := NewContacts(newTransport(t, srv), stubRoles{authz.RoleAdmin}, nil)
	updated, err := admin.UpdateStatus(context.Background(), "q1", "handled")
	require.NoError(t, err)
	assert.Equal(t, "handled", updated.Status)
}

func TestContacts_FailureLeavesStateUntouched(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"success":true,"message":"ok","data":[`+inquiry+`]}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success":false,"message":"boom"}`)
	}))
	defer srv.Close()

	s := NewContacts(newTransport(t, srv), stubRoles{authz.RoleUser}, nil)
	require.NoError(t, s.GetMine(context.Background(), nil))

	require.Error(t, s.Remove(context.Background(), "q1"))
	assert.Len(t, s.Items(), 1, "failed delete must not mutate the cache")
	assert.Equal(t, "boom", s.Err())
}
