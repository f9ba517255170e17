package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
	syncdomain "github.com/smallbiznis/stocksense/internal/sync/domain"
)

type syncVariantsRequest struct {
	VariantIDs []string `json:"variant_ids"`
}

// SyncShopVariants triggers a reconcile of the named variants, or of every
// tracked variant when the body names none.
func (s *Server) SyncShopVariants(c *gin.Context) {
	shop, err := s.shopSvc.GetByID(c.Request.Context(), shopdomain.GetShopRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req syncVariantsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	if len(req.VariantIDs) == 0 {
		tracked, err := s.invRepo.ListTrackedVariantIDs(c.Request.Context(), s.db, shop.ID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.VariantIDs = tracked
	}

	run, err := s.syncSvc.SyncVariants(c.Request.Context(), syncdomain.SyncRequest{
		Shop:       shop,
		VariantIDs: req.VariantIDs,
		Trigger:    syncdomain.TriggerManual,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}

func (s *Server) ListSyncRuns(c *gin.Context) {
	shopID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || shopID == 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid shop id"))
		return
	}

	limit := 20
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		limit = parsed
	}

	runs, err := s.syncRepo.ListRuns(c.Request.Context(), s.db, shopID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}
