package server

import (
	"net/http"
	"strings"
	"time"

	orgdomain "github.com/billora/billora/internal/organization/domain"
	"github.com/billora/billora/pkg/money"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type createOrganizationRequest struct {
	Name     string `json:"name" binding:"required"`
	Slug     string `json:"slug" binding:"required"`
	Currency string `json:"currency" binding:"required"`
}

func (s *Server) CreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	currency := money.NormalizeCurrency(req.Currency)
	if currency == "" {
		AbortWithError(c, orgdomain.ErrInvalidOrganization)
		return
	}

	now := time.Now().UTC()
	org := &orgdomain.Organization{
		ID:        s.genID.Generate(),
		Name:      strings.TrimSpace(req.Name),
		Slug:      strings.ToLower(strings.TrimSpace(req.Slug)),
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orgstore.Create(c.Request.Context(), org); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": org})
}

func (s *Server) GetOrganizationByID(c *gin.Context) {
	orgID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, orgdomain.ErrInvalidOrganization)
		return
	}

	org, err := s.orgstore.FindOne(c.Request.Context(), &orgdomain.Organization{ID: orgID})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if org == nil {
		AbortWithError(c, orgdomain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": org})
}
