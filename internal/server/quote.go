package server

import (
	"net/http"

	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	quotedomain "github.com/billora/billora/internal/quote/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateQuote(c *gin.Context) {
	var req quotedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quote, err := s.quoteSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) ListQuotes(c *gin.Context) {
	var query struct {
		Status     string `form:"status"`
		CustomerID string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quotes, err := s.quoteSvc.List(c.Request.Context(), quotedomain.ListRequest{
		Status:     optionalStatus(query.Status),
		CustomerID: optionalString(query.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quotes})
}

func (s *Server) GetQuoteByID(c *gin.Context) {
	quote, err := s.quoteSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) AddQuoteLine(c *gin.Context) {
	var req invoicedomain.LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quote, err := s.quoteSvc.AddLine(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) RemoveQuoteLine(c *gin.Context) {
	quote, err := s.quoteSvc.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("lineId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) AttachQuoteDiscount(c *gin.Context) {
	var req struct {
		CouponID string `json:"coupon_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quote, err := s.quoteSvc.AttachDiscount(c.Request.Context(), c.Param("id"), req.CouponID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) AttachQuoteTaxRate(c *gin.Context) {
	var req struct {
		TaxRateID string `json:"tax_rate_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quote, err := s.quoteSvc.AttachTaxRate(c.Request.Context(), c.Param("id"), req.TaxRateID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) OpenQuote(c *gin.Context) {
	quote, err := s.quoteSvc.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) AcceptQuote(c *gin.Context) {
	quote, err := s.quoteSvc.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) CancelQuote(c *gin.Context) {
	quote, err := s.quoteSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}
