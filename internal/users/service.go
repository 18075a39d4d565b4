package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/pagination"
)

type lister interface {
	List(ctx context.Context, page pagination.Params) ([]models.User, string, error)
}

// UserList is the admin listing payload.
type UserList struct {
	Users      []UserDTO `json:"users"`
	Count      int       `json:"count"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// Service serves the admin user directory.
type Service struct {
	repo lister
}

func NewService(repo lister) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &Service{repo: repo}, nil
}

// List returns one page of accounts, newest first.
func (s *Service) List(ctx context.Context, page pagination.Params) (*UserList, error) {
	list, next, err := s.repo.List(ctx, page)
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "カーソルが正しくありません")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ユーザー一覧の取得に失敗しました")
	}
	dtos := FromModels(list)
	return &UserList{Users: dtos, Count: len(dtos), NextCursor: next}, nil
}
