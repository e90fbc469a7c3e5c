package handler

import (
	"net/http"

	"materialflow/internal/middleware"
	"materialflow/internal/model"
	"materialflow/internal/service"
	"materialflow/pkg/pagination"
	"materialflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type MaterialHandler struct {
	inventoryService service.InventoryService
}

func NewMaterialHandler(inventoryService service.InventoryService) *MaterialHandler {
	return &MaterialHandler{inventoryService: inventoryService}
}

func (h *MaterialHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleEmployee)
	writeRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	materials := router.Group("/api/materials")
	{
		materials.GET("", anyRole, h.ListMaterials)
		materials.GET("/low-stock", anyRole, h.ListLowStock)
		materials.GET("/barcode/:barcode", anyRole, h.GetByBarcode)
		materials.GET("/:id", anyRole, h.GetMaterial)
		materials.GET("/:id/transactions", anyRole, h.ListMaterialTransactions)
		materials.POST("", writeRole, h.CreateMaterial)
		materials.PUT("/:id", writeRole, h.UpdateMaterial)
		materials.DELETE("/:id", writeRole, h.DeleteMaterial)
	}
}

// ListMaterials handles retrieving the paginated material catalog
// @Summary      List materials
// @Description  Retrieves a paginated list of materials with current stock
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by material name"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/materials [get]
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")

	materials, total, err := h.inventoryService.ListMaterials(c.Request.Context(), params.Page, params.Limit, search)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"materials": materials,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// ListLowStock returns every material at or below its minimum stock
// @Summary      List low-stock materials
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.MaterialResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/materials/low-stock [get]
func (h *MaterialHandler) ListLowStock(c *gin.Context) {
	materials, err := h.inventoryService.ListLowStock(c.Request.Context())
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, materials))
}

// GetByBarcode looks a material up by its scanned barcode
// @Summary      Find material by barcode
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        barcode  path      string  true  "Barcode"
// @Success      200      {object}  response.Response{data=service.MaterialResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/materials/barcode/{barcode} [get]
func (h *MaterialHandler) GetByBarcode(c *gin.Context) {
	material, err := h.inventoryService.FindByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// GetMaterial retrieves a single material by ID
// @Summary      Get material
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Material ID"
// @Success      200  {object}  response.Response{data=service.MaterialResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/materials/{id} [get]
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	material, err := h.inventoryService.GetMaterial(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// ListMaterialTransactions returns the movement history of one material
// @Summary      List material transactions
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Material ID"
// @Success      200  {object}  response.Response{data=[]service.TransactionResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/materials/{id}/transactions [get]
func (h *MaterialHandler) ListMaterialTransactions(c *gin.Context) {
	transactions, err := h.inventoryService.ListMaterialTransactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, transactions))
}

// CreateMaterial creates a new catalog entry
// @Summary      Create material
// @Tags         materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateMaterialRequest  true  "Create Material Payload"
// @Success      201      {object}  response.Response{data=service.MaterialResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/materials [post]
func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	material, err := h.inventoryService.CreateMaterial(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, material))
}

// UpdateMaterial updates an existing material's metadata
// @Summary      Update material
// @Tags         materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Material ID"
// @Param        payload  body      service.UpdateMaterialRequest  true  "Update Material Payload"
// @Success      200      {object}  response.Response{data=service.MaterialResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/materials/{id} [put]
func (h *MaterialHandler) UpdateMaterial(c *gin.Context) {
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	material, err := h.inventoryService.UpdateMaterial(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// DeleteMaterial removes a material entry softly
// @Summary      Delete material
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Material ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/materials/{id} [delete]
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	if err := h.inventoryService.DeleteMaterial(c.Request.Context(), c.Param("id")); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
