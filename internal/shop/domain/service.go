package domain

import (
	"context"
	"errors"
)

type InstallRequest struct {
	Domain      string
	AccessToken string
	Scopes      string
}

type RotateTokenRequest struct {
	ID          string
	AccessToken string
}

type GetShopRequest struct {
	ID string
}

type Service interface {
	// Install registers a shop if it is unknown and refreshes its
	// credentials if it is already installed. Safe under concurrent
	// installs for the same domain.
	Install(context.Context, InstallRequest) (Shop, error)
	RotateToken(context.Context, RotateTokenRequest) (Shop, error)
	GetByID(context.Context, GetShopRequest) (Shop, error)
	GetByDomain(context.Context, string) (Shop, error)
	List(context.Context) ([]Shop, error)
}

var (
	ErrInvalidDomain = errors.New("invalid_domain")
	ErrInvalidToken  = errors.New("invalid_access_token")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
