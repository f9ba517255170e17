package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	invdomain "github.com/smallbiznis/stocksense/internal/inventory/domain"
	"github.com/smallbiznis/stocksense/pkg/db/pagination"
)

type updateLocationRequest struct {
	Name   *string `json:"name,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

type setMinimumRequest struct {
	MinimumQuantity *int `json:"minimum_quantity"`
}

func (s *Server) ListLocations(c *gin.Context) {
	resp, err := s.invSvc.ListLocations(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateLocation(c *gin.Context) {
	var req updateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		AbortWithError(c, newValidationError("name", "required", "name must be non-empty"))
		return
	}

	resp, err := s.invSvc.UpdateLocation(c.Request.Context(), invdomain.UpdateLocationRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Name:   req.Name,
		Active: req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListVariants(c *gin.Context) {
	page, err := bindPagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invSvc.ListVariants(c.Request.Context(), invdomain.ListVariantsRequest{
		ShopID:     strings.TrimSpace(c.Param("id")),
		Pagination: page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetVariantMinimum(c *gin.Context) {
	var req setMinimumRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MinimumQuantity == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invSvc.SetVariantMinimum(c.Request.Context(), invdomain.SetVariantMinimumRequest{
		ID:              strings.TrimSpace(c.Param("id")),
		MinimumQuantity: *req.MinimumQuantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInventoryLevels(c *gin.Context) {
	page, err := bindPagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	lowStock := false
	if raw := strings.TrimSpace(c.Query("low_stock")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, newValidationError("low_stock", "invalid_low_stock", "invalid low stock flag"))
			return
		}
		lowStock = parsed
	}

	resp, err := s.invSvc.ListLevels(c.Request.Context(), invdomain.ListLevelsRequest{
		ShopID:     strings.TrimSpace(c.Param("id")),
		LocationID: strings.TrimSpace(c.Query("location_id")),
		VariantID:  strings.TrimSpace(c.Query("variant_id")),
		LowStock:   lowStock,
		Pagination: page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetLevelMinimum(c *gin.Context) {
	var req setMinimumRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MinimumQuantity == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invSvc.SetLevelMinimum(c.Request.Context(), invdomain.SetLevelMinimumRequest{
		ID:              strings.TrimSpace(c.Param("id")),
		MinimumQuantity: *req.MinimumQuantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func bindPagination(c *gin.Context) (pagination.Pagination, error) {
	page := pagination.Pagination{
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 || size > 250 {
			return page, newValidationError("page_size", "invalid_page_size", "invalid page size")
		}
		page.PageSize = size
	}
	return page, nil
}
