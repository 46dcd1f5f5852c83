package server

import (
	"net/http"

	coupondomain "github.com/billora/billora/internal/coupon/domain"
	customerdomain "github.com/billora/billora/internal/customer/domain"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	productdomain "github.com/billora/billora/internal/product/domain"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/gin-gonic/gin"
)

// -------- Customers --------

func (s *Server) CreateCustomer(c *gin.Context) {
	var req customerdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customer, err := s.customerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customer})
}

func (s *Server) ListCustomers(c *gin.Context) {
	customers, err := s.customerSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customers})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	customer, err := s.customerSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customer})
}

// -------- Products --------

func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) ListProducts(c *gin.Context) {
	products, err := s.productSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) GetProductByID(c *gin.Context) {
	product, err := s.productSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

// -------- Prices --------

func (s *Server) CreatePrice(c *gin.Context) {
	var req pricingdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	price, err := s.pricingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": price})
}

func (s *Server) ListPrices(c *gin.Context) {
	var query struct {
		ProductID string `form:"product_id" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prices, err := s.pricingSvc.ListByProduct(c.Request.Context(), query.ProductID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prices})
}

func (s *Server) GetPriceByID(c *gin.Context) {
	price, tiers, err := s.pricingSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"price": price, "tiers": tiers}})
}

func (s *Server) UpdatePrice(c *gin.Context) {
	var req pricingdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	price, err := s.pricingSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": price})
}

func (s *Server) ArchivePrice(c *gin.Context) {
	if err := s.pricingSvc.Archive(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// -------- Coupons --------

func (s *Server) CreateCoupon(c *gin.Context) {
	var req coupondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	coupon, err := s.couponSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": coupon})
}

func (s *Server) ListCoupons(c *gin.Context) {
	coupons, err := s.couponSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": coupons})
}

func (s *Server) GetCouponByID(c *gin.Context) {
	coupon, err := s.couponSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": coupon})
}

func (s *Server) RenameCoupon(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	coupon, err := s.couponSvc.Rename(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": coupon})
}

// -------- Tax rates --------

func (s *Server) CreateTaxRate(c *gin.Context) {
	var req taxdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rate, err := s.taxSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rate})
}

func (s *Server) ListTaxRates(c *gin.Context) {
	rates, err := s.taxSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rates})
}

func (s *Server) GetTaxRateByID(c *gin.Context) {
	rate, err := s.taxSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rate})
}

func (s *Server) EnableTaxRate(c *gin.Context) {
	if err := s.taxSvc.SetEnabled(c.Request.Context(), c.Param("id"), true); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) DisableTaxRate(c *gin.Context) {
	if err := s.taxSvc.SetEnabled(c.Request.Context(), c.Param("id"), false); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
