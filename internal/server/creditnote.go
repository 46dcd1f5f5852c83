package server

import (
	"io"
	"net/http"

	creditnotedomain "github.com/billora/billora/internal/creditnote/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateCreditNote(c *gin.Context) {
	var req creditnotedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	note, err := s.creditNoteSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": note})
}

func (s *Server) ListCreditNotes(c *gin.Context) {
	var query struct {
		InvoiceID string `form:"invoice_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	notes, err := s.creditNoteSvc.List(c.Request.Context(), creditnotedomain.ListRequest{
		InvoiceID: optionalString(query.InvoiceID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notes})
}

func (s *Server) GetCreditNoteByID(c *gin.Context) {
	note, err := s.creditNoteSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": note})
}

func (s *Server) GetCreditNotePDF(c *gin.Context) {
	ctx := c.Request.Context()
	note, err := s.creditNoteSvc.Get(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	org, err := s.orgstore.FindOne(ctx, &orgdomain.Organization{ID: note.OrgID})
	if err != nil || org == nil {
		AbortWithError(c, invoicedomain.ErrInvalidOrganization)
		return
	}

	doc, err := s.renderer.RenderCreditNote(ctx, org, note)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, doc)
}

func (s *Server) IssueCreditNote(c *gin.Context) {
	note, err := s.creditNoteSvc.Issue(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": note})
}

func (s *Server) VoidCreditNote(c *gin.Context) {
	note, err := s.creditNoteSvc.Void(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": note})
}
