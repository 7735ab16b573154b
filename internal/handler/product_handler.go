package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"catalog/internal/service"
	"catalog/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProductHandler struct {
	productService service.ProductService
	log            *logrus.Entry
}

func NewProductHandler(productService service.ProductService, log *logrus.Entry) *ProductHandler {
	return &ProductHandler{productService: productService, log: log.WithField("component", "product_handler")}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	{
		products.GET("", h.ListProducts)
		products.POST("", h.CreateProduct)
		products.GET("/search", h.SearchProducts)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.PATCH("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}
}

// ListProducts returns the active catalog
// @Summary      List active products
// @Description  Returns every product in the active status, newest first
// @Tags         products
// @Produce      json
// @Success      200  {array}   service.ProductResponse
// @Failure      500  {object}  response.ErrorResponse
// @Router       /api/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.productService.ListActive(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct returns a single product
// @Summary      Get product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  service.ProductResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct creates a product, queueing it for approval when the price requires it
// @Summary      Create product
// @Description  Prices above 5000 put the product in the pending status with an approval request; prices above 10000 are refused
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Product, optionally nested under \"product\""
// @Success      201      {object}  service.ProductResponse
// @Failure      400      {object}  response.ErrorResponse
// @Failure      422      {object}  response.ValidationResponse
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := bindProduct(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err, http.StatusInternalServerError, "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct applies a partial update
// @Summary      Update product
// @Description  Raising the price by more than 50% puts the product back in the pending status. Name and price cannot change while an approval request is outstanding.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Fields to change, optionally nested under \"product\""
// @Success      200      {object}  service.ProductResponse
// @Failure      400      {object}  response.ErrorResponse
// @Failure      404      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ValidationResponse
// @Failure      422      {object}  response.ValidationResponse
// @Router       /api/products/{id} [put]
// @Router       /api/products/{id} [patch]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := bindProduct(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.log, err, http.StatusInternalServerError, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product and any approval request it has
// @Summary      Delete product
// @Tags         products
// @Param        id   path  string  true  "Product ID"
// @Success      204
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchProducts filters products of any status
// @Summary      Search products
// @Tags         products
// @Produce      json
// @Param        productName    query     string  false  "Name substring, case-insensitive"
// @Param        minPrice       query     number  false  "Minimum price, inclusive"
// @Param        maxPrice       query     number  false  "Maximum price, inclusive"
// @Param        minPostedDate  query     string  false  "Earliest creation date (YYYY-MM-DD), inclusive"
// @Param        maxPostedDate  query     string  false  "Latest creation date (YYYY-MM-DD), inclusive"
// @Success      200            {array}   service.ProductResponse
// @Failure      400            {object}  response.ErrorResponse
// @Router       /api/products/search [get]
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	var req service.SearchProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid search parameters: "+err.Error()))
		return
	}

	products, err := h.productService.SearchProducts(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err, http.StatusInternalServerError, "Failed to search products")
		return
	}
	c.JSON(http.StatusOK, products)
}

var jsonNull = []byte("null")

// bindProduct accepts both {"product": {...}} and a flat product object.
func bindProduct(c *gin.Context, dst any) error {
	var envelope struct {
		Product json.RawMessage `json:"product"`
	}
	if err := c.ShouldBindBodyWithJSON(&envelope); err != nil {
		return err
	}
	if len(envelope.Product) > 0 && !bytes.Equal(envelope.Product, jsonNull) {
		return json.Unmarshal(envelope.Product, dst)
	}
	return c.ShouldBindBodyWithJSON(dst)
}
