package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/stocksense/internal/shop/domain"
	"github.com/smallbiznis/stocksense/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("shop.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Install(ctx context.Context, req domain.InstallRequest) (domain.Shop, error) {
	shopDomain := normalizeDomain(req.Domain)
	if shopDomain == "" {
		return domain.Shop{}, domain.ErrInvalidDomain
	}
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		return domain.Shop{}, domain.ErrInvalidToken
	}

	existing, err := s.repo.FindByDomain(ctx, s.db, shopDomain)
	if err != nil {
		return domain.Shop{}, err
	}
	if existing != nil {
		return s.refreshInstall(ctx, existing, token, req.Scopes)
	}

	now := time.Now().UTC()
	shop := domain.Shop{
		ID:          s.genID.Generate(),
		Domain:      shopDomain,
		Slug:        slug.Make(strings.TrimSuffix(shopDomain, ".myshopify.com")),
		AccessToken: token,
		Scopes:      strings.TrimSpace(req.Scopes),
		Active:      true,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &shop); err != nil {
		// A concurrent install of the same domain can win the unique
		// index race; fall back to updating the row it created.
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := s.repo.FindByDomain(ctx, s.db, shopDomain)
			if findErr != nil {
				return domain.Shop{}, findErr
			}
			if winner != nil {
				return s.refreshInstall(ctx, winner, token, req.Scopes)
			}
		}
		return domain.Shop{}, err
	}

	s.log.Info("shop installed", zap.String("domain", shopDomain))
	return shop, nil
}

func (s *Service) refreshInstall(ctx context.Context, shop *domain.Shop, token, scopes string) (domain.Shop, error) {
	shop.AccessToken = token
	if trimmed := strings.TrimSpace(scopes); trimmed != "" {
		shop.Scopes = trimmed
	}
	shop.Active = true
	shop.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, shop); err != nil {
		return domain.Shop{}, err
	}
	return *shop, nil
}

func (s *Service) RotateToken(ctx context.Context, req domain.RotateTokenRequest) (domain.Shop, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Shop{}, err
	}
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		return domain.Shop{}, domain.ErrInvalidToken
	}

	shop, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Shop{}, err
	}
	if shop == nil {
		return domain.Shop{}, domain.ErrNotFound
	}

	shop.AccessToken = token
	shop.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, shop); err != nil {
		return domain.Shop{}, err
	}
	return *shop, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetShopRequest) (domain.Shop, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Shop{}, err
	}
	shop, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Shop{}, err
	}
	if shop == nil {
		return domain.Shop{}, domain.ErrNotFound
	}
	return *shop, nil
}

func (s *Service) GetByDomain(ctx context.Context, shopDomain string) (domain.Shop, error) {
	shopDomain = normalizeDomain(shopDomain)
	if shopDomain == "" {
		return domain.Shop{}, domain.ErrInvalidDomain
	}
	shop, err := s.repo.FindByDomain(ctx, s.db, shopDomain)
	if err != nil {
		return domain.Shop{}, err
	}
	if shop == nil {
		return domain.Shop{}, domain.ErrNotFound
	}
	return *shop, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Shop, error) {
	items, err := s.repo.List(ctx, s.db, false)
	if err != nil {
		return nil, err
	}
	shops := make([]domain.Shop, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		shops = append(shops, *item)
	}
	return shops, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeDomain(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
