// internal/handlers/product.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/verdict-cms/internal/i18n"
	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/services"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
	versionService *services.VersionService
	storageService *services.StorageService
}

func NewProductHandler(productService *services.ProductService, versionService *services.VersionService, storageService *services.StorageService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		versionService: versionService,
		storageService: storageService,
	}
}

const evidenceLinkTTL = 15 * time.Minute

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := repository.ProductFilter{
		PaginationParams: params,
		CategoryID:       parseUUIDQuery(c, "category_id"),
		BrandID:          parseUUIDQuery(c, "brand_id"),
	}

	if status := c.Query("status"); status != "" {
		productStatus := models.ProductStatus(status)
		if !productStatus.Valid() {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "status"), nil)
			return
		}
		filter.Status = &productStatus
	}

	if verdict := c.Query("verdict"); verdict != "" {
		v := models.Verdict(verdict)
		if !v.Valid() {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "verdict"), nil)
			return
		}
		filter.Verdict = &v
	}

	if hasConflictsStr := c.Query("has_conflicts"); hasConflictsStr != "" {
		if hasConflicts, err := strconv.ParseBool(hasConflictsStr); err == nil {
			filter.HasConflicts = &hasConflicts
		}
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.ProductInput
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": product,
	})
}

// PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ProductInput
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductDeleted),
	})
}

// POST /products/validate and POST /products/:id/validate
//
// Runs every save rule without saving. On an existing product the body is
// optional; without one the stored document is checked.
func (h *ProductHandler) ValidateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, _ := actorFromContext(c)

	var id *uuid.UUID
	if c.Param("id") != "" {
		parsed, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		id = &parsed
	}

	var in *services.ProductInput
	if c.Request.ContentLength != 0 {
		var req services.ProductInput
		if !bindJSON(c, &req) {
			return
		}
		in = &req
	} else if id == nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), nil)
		return
	}

	report, err := h.productService.ValidateProduct(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyProductValidated)
	if !report.CanSave {
		message = i18n.T(lang, i18n.KeyProductRejected)
	}
	utils.SuccessResponse(c, gin.H{
		"message": message,
		"report":  report,
	})
}

// GET /products/:id/versions
func (h *ProductHandler) GetVersions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	versions, err := h.versionService.ListVersions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, versions)
}

// GET /products/:id/versions/verify
func (h *ProductHandler) VerifyVersions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.versionService.VerifyChain(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}

// POST /products/:id/evidence
//
// Multipart upload with a "file" part and a "kind" field naming the evidence
// slot (purchase_receipt, purchase_photo or method_validation_package).
func (h *ProductHandler) UploadEvidence(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	kind := services.EvidenceKind(c.PostForm("kind"))
	if !kind.Valid() {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "kind"), nil)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}

	// Fail before storing anything for an unknown product.
	if _, err := h.productService.GetProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}
	defer file.Close()

	upload, err := h.storageService.UploadEvidence(c.Request.Context(), id, kind, header.Filename, header.Size, file)
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.productService.AttachEvidence(c.Request.Context(), actor, id, kind, upload.Key)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFileUploadSuccess),
		"upload":  upload,
		"product": product,
	})
}

// GET /products/:id/evidence/:kind
func (h *ProductHandler) GetEvidenceLink(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	key, err := services.EvidenceRef(product, services.EvidenceKind(c.Param("kind")))
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.storageService.EvidenceURL(key, evidenceLinkTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"url":        url,
		"expires_in": int(evidenceLinkTTL.Seconds()),
	})
}
