// internal/handlers/category.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/verdict-cms/internal/i18n"
	"github.com/javajoker/verdict-cms/internal/services"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
}

func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// GET /categories
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, categories)
}

// GET /categories/:id
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, category)
}

// POST /categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.CategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(utils.GetLangFromContext(c), i18n.KeyCategoryCreated),
		"category": category,
	})
}

// PUT /categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(utils.GetLangFromContext(c), i18n.KeyCategoryUpdated),
		"category": category,
	})
}

// GET /brands
func (h *CategoryHandler) GetBrands(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	brands, total, err := h.categoryService.ListBrands(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(brands, total, params))
}

// GET /brands/:id
func (h *CategoryHandler) GetBrand(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	brand, err := h.categoryService.GetBrand(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, brand)
}

// POST /brands
func (h *CategoryHandler) CreateBrand(c *gin.Context) {
	var req services.BrandInput
	if !bindJSON(c, &req) {
		return
	}

	brand, err := h.categoryService.CreateBrand(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyBrandCreated),
		"brand":   brand,
	})
}
