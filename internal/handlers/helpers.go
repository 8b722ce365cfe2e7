// internal/handlers/helpers.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/verdict-cms/internal/i18n"
	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/rules"
	"github.com/javajoker/verdict-cms/internal/services"
	"github.com/javajoker/verdict-cms/internal/utils"
)

// actorFromContext builds the acting user from the claims AuthRequired set.
func actorFromContext(c *gin.Context) (*rules.Actor, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		return nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, false
	}

	role, _ := utils.GetUserRoleFromContext(c)
	return &rules.Actor{
		ID:    userID,
		Email: utils.GetUserEmailFromContext(c),
		Role:  models.UserRole(role),
	}, true
}

func requireActor(c *gin.Context) (*rules.Actor, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return actor, ok
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func parseUUIDQuery(c *gin.Context, name string) *uuid.UUID {
	if raw := c.Query(name); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return &id
		}
	}
	return nil
}

// bindJSON decodes the body into req and answers 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

// respondError maps service errors onto API responses.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	if rej, ok := rules.AsRejection(err); ok {
		utils.RejectionResponse(c, rej.Message, gin.H{
			"stage":     rej.Stage,
			"errors":    rej.Errors,
			"conflicts": rej.Conflicts,
		})
		return
	}

	if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	switch {
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, "product")
	case errors.Is(err, services.ErrCategoryNotFound):
		utils.NotFoundResponse(c, "category")
	case errors.Is(err, services.ErrBrandNotFound):
		utils.NotFoundResponse(c, "brand")
	case errors.Is(err, services.ErrUserNotFound):
		utils.NotFoundResponse(c, "user")
	case errors.Is(err, services.ErrNotificationNotFound):
		utils.NotFoundResponse(c, "notification")
	case errors.Is(err, services.ErrEvidenceMissing):
		utils.NotFoundResponse(c, "evidence")
	case errors.Is(err, services.ErrSlugTaken):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyUserEmailTaken))
	case errors.Is(err, services.ErrCannotDisableSelf):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrUnknownEvidenceKind):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrFileTooLarge):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileTooLarge), err.Error())
	case errors.Is(err, services.ErrFileTypeNotAllowed):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileInvalidType), err.Error())
	default:
		_ = c.Error(err)
		utils.InternalErrorResponse(c, "")
	}
}
