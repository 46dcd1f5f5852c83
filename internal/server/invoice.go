package server

import (
	"io"
	"net/http"

	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		Status      string `form:"status"`
		CustomerID  string `form:"customer_id"`
		HeadID      string `form:"head_id"`
		CreatedFrom string `form:"created_from"`
		CreatedTo   string `form:"created_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.ListRequest{
		Status:     optionalStatus(query.Status),
		CustomerID: optionalString(query.CustomerID),
		HeadID:     optionalString(query.HeadID),
	}
	var err error
	if req.CreatedFrom, err = parseOptionalTime(query.CreatedFrom); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.CreatedTo, err = parseOptionalTime(query.CreatedTo); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	invoice, err := s.invoiceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) GetInvoicePDF(c *gin.Context) {
	ctx := c.Request.Context()
	invoice, err := s.invoiceSvc.Get(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	org, err := s.orgstore.FindOne(ctx, &orgdomain.Organization{ID: invoice.OrgID})
	if err != nil || org == nil {
		AbortWithError(c, invoicedomain.ErrInvalidOrganization)
		return
	}

	doc, err := s.renderer.RenderInvoice(ctx, org, invoice)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, doc)
}

func (s *Server) ListInvoicePayments(c *gin.Context) {
	invoiceID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invoicedomain.ErrInvalidInvoiceID)
		return
	}

	payments, err := s.paymentSvc.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payments})
}

func (s *Server) AddInvoiceLine(c *gin.Context) {
	var req invoicedomain.LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.AddLine(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) UpdateInvoiceLine(c *gin.Context) {
	var req invoicedomain.LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.UpdateLine(c.Request.Context(), c.Param("id"), c.Param("lineId"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) RemoveInvoiceLine(c *gin.Context) {
	invoice, err := s.invoiceSvc.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("lineId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) AttachInvoiceDiscount(c *gin.Context) {
	var req invoicedomain.AttachDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.AttachDiscount(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) DetachInvoiceDiscount(c *gin.Context) {
	invoice, err := s.invoiceSvc.DetachDiscount(c.Request.Context(), c.Param("id"), c.Param("discountId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) AttachInvoiceTaxRate(c *gin.Context) {
	var req invoicedomain.AttachTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.AttachTaxRate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) DetachInvoiceTaxRate(c *gin.Context) {
	invoice, err := s.invoiceSvc.DetachTaxRate(c.Request.Context(), c.Param("id"), c.Param("taxLineId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) FinalizeInvoice(c *gin.Context) {
	invoice, err := s.invoiceSvc.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) VoidInvoice(c *gin.Context) {
	invoice, err := s.invoiceSvc.Void(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) ReviseInvoice(c *gin.Context) {
	invoice, err := s.invoiceSvc.Revise(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}
