package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
)

type installShopRequest struct {
	Domain      string `json:"domain"`
	AccessToken string `json:"access_token"`
	Scopes      string `json:"scopes"`
}

type rotateTokenRequest struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) InstallShop(c *gin.Context) {
	var req installShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.shopSvc.Install(c.Request.Context(), shopdomain.InstallRequest{
		Domain:      strings.TrimSpace(req.Domain),
		AccessToken: req.AccessToken,
		Scopes:      req.Scopes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListShops(c *gin.Context) {
	resp, err := s.shopSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetShop(c *gin.Context) {
	resp, err := s.shopSvc.GetByID(c.Request.Context(), shopdomain.GetShopRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RotateShopToken(c *gin.Context) {
	var req rotateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.shopSvc.RotateToken(c.Request.Context(), shopdomain.RotateTokenRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		AccessToken: req.AccessToken,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
