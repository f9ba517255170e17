package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stocksense/internal/inventory/domain"
	"github.com/smallbiznis/stocksense/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("inventory.service"),
		repo: p.Repo,
	}
}

func (s *Service) ListLocations(ctx context.Context, shopID string) ([]domain.Location, error) {
	id, err := parseID(shopID)
	if err != nil {
		return nil, domain.ErrInvalidShop
	}
	items, err := s.repo.ListLocations(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	locations := make([]domain.Location, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		locations = append(locations, *item)
	}
	return locations, nil
}

func (s *Service) UpdateLocation(ctx context.Context, req domain.UpdateLocationRequest) (domain.Location, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Location{}, domain.ErrInvalidID
	}

	location, err := s.repo.FindLocationByID(ctx, s.db, id)
	if err != nil {
		return domain.Location{}, err
	}
	if location == nil {
		return domain.Location{}, domain.ErrNotFound
	}

	if req.Name != nil {
		location.Name = strings.TrimSpace(*req.Name)
	}
	if req.Active != nil {
		location.Active = *req.Active
	}
	location.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveLocation(ctx, s.db, location); err != nil {
		return domain.Location{}, err
	}
	return *location, nil
}

func (s *Service) ListVariants(ctx context.Context, req domain.ListVariantsRequest) (domain.ListVariantsResponse, error) {
	shopID, err := parseID(req.ShopID)
	if err != nil {
		return domain.ListVariantsResponse{}, domain.ErrInvalidShop
	}

	page := req.Pagination
	if page.PageSize <= 0 {
		page.PageSize = 50
	}

	items, err := s.repo.ListVariants(ctx, s.db, shopID, page)
	if err != nil {
		return domain.ListVariantsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(v *domain.Variant) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        v.ID.String(),
			CreatedAt: v.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > page.PageSize {
		items = items[:page.PageSize]
	}

	variants := make([]domain.Variant, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		variants = append(variants, *item)
	}

	resp := domain.ListVariantsResponse{Variants: variants}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) SetVariantMinimum(ctx context.Context, req domain.SetVariantMinimumRequest) (domain.Variant, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Variant{}, domain.ErrInvalidID
	}
	if req.MinimumQuantity < 0 {
		return domain.Variant{}, domain.ErrInvalidMinimum
	}

	var updated domain.Variant
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		variant, err := s.repo.FindVariantByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if variant == nil {
			return domain.ErrNotFound
		}

		previous := variant.MinimumQuantity
		variant.MinimumQuantity = req.MinimumQuantity
		variant.UpdatedAt = time.Now().UTC()
		if err := s.repo.SaveVariant(ctx, tx, variant); err != nil {
			return err
		}

		// Levels still carrying the old variant default follow the new
		// one; levels with their own override keep it.
		levels, err := s.repo.ListLevelsByVariant(ctx, tx, variant.ID)
		if err != nil {
			return err
		}
		for _, level := range levels {
			if level.MinimumQuantity != previous {
				continue
			}
			level.MinimumQuantity = req.MinimumQuantity
			level.UpdatedAt = time.Now().UTC()
			if err := s.repo.SaveLevel(ctx, tx, level); err != nil {
				return err
			}
		}

		updated = *variant
		return nil
	})
	if err != nil {
		return domain.Variant{}, err
	}
	return updated, nil
}

func (s *Service) ListLevels(ctx context.Context, req domain.ListLevelsRequest) (domain.ListLevelsResponse, error) {
	shopID, err := parseID(req.ShopID)
	if err != nil {
		return domain.ListLevelsResponse{}, domain.ErrInvalidShop
	}

	filter := domain.ListLevelFilter{LowStock: req.LowStock}
	if strings.TrimSpace(req.LocationID) != "" {
		locationID, err := parseID(req.LocationID)
		if err != nil {
			return domain.ListLevelsResponse{}, domain.ErrInvalidID
		}
		filter.LocationID = locationID
	}
	if strings.TrimSpace(req.VariantID) != "" {
		variantID, err := parseID(req.VariantID)
		if err != nil {
			return domain.ListLevelsResponse{}, domain.ErrInvalidID
		}
		filter.VariantID = variantID
	}

	page := req.Pagination
	if page.PageSize <= 0 {
		page.PageSize = 50
	}

	items, err := s.repo.ListLevels(ctx, s.db, shopID, filter, page)
	if err != nil {
		return domain.ListLevelsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(lvl *domain.InventoryLevel) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        lvl.ID.String(),
			CreatedAt: lvl.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > page.PageSize {
		items = items[:page.PageSize]
	}

	levels := make([]domain.InventoryLevel, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		levels = append(levels, *item)
	}

	resp := domain.ListLevelsResponse{Levels: levels}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) SetLevelMinimum(ctx context.Context, req domain.SetLevelMinimumRequest) (domain.InventoryLevel, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.InventoryLevel{}, domain.ErrInvalidID
	}
	if req.MinimumQuantity < 0 {
		return domain.InventoryLevel{}, domain.ErrInvalidMinimum
	}

	level, err := s.repo.FindLevelByID(ctx, s.db, id)
	if err != nil {
		return domain.InventoryLevel{}, err
	}
	if level == nil {
		return domain.InventoryLevel{}, domain.ErrNotFound
	}

	level.MinimumQuantity = req.MinimumQuantity
	level.UpdatedAt = time.Now().UTC()
	if err := s.repo.SaveLevel(ctx, s.db, level); err != nil {
		return domain.InventoryLevel{}, err
	}
	return *level, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
