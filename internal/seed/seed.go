// Package seed provisions development fixtures at startup.
package seed

import (
	"context"
	"errors"
	"strings"

	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
)

// EnsureDevShop installs a local development shop when one is configured,
// so a fresh environment can sync without going through the install API.
// An already installed shop is left alone; creation goes through the shop
// service so there is exactly one install path.
func EnsureDevShop(ctx context.Context, svc shopdomain.Service, domain, token string) error {
	domain = strings.TrimSpace(domain)
	token = strings.TrimSpace(token)
	if domain == "" || token == "" {
		return nil
	}

	_, err := svc.GetByDomain(ctx, domain)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shopdomain.ErrNotFound) {
		return err
	}

	_, err = svc.Install(ctx, shopdomain.InstallRequest{
		Domain:      domain,
		AccessToken: token,
	})
	return err
}
