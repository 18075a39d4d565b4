package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kinfortune-backend/internal/users"
	"github.com/angelmondragon/kinfortune-backend/pkg/pagination"
)

type recordingLister struct {
	got pagination.Params
}

func (l *recordingLister) List(_ context.Context, page pagination.Params) (*users.UserList, error) {
	l.got = page
	return &users.UserList{Users: []users.UserDTO{}, NextCursor: "next"}, nil
}

func TestAdminUsersPassesPageParams(t *testing.T) {
	lister := &recordingLister{}
	handler := AdminUsers(lister, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users?limit=10&cursor=abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, lister.got)
	require.Contains(t, rec.Body.String(), `"nextCursor":"next"`)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pagination.DefaultLimit, lister.got.Limit)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users?limit=0", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUsersUnconfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	AdminUsers(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
