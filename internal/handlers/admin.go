// internal/handlers/admin.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/verdict-cms/internal/i18n"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/services"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
	auditService *services.AuditService
}

func NewAdminHandler(adminService *services.AdminService, auditService *services.AuditService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		auditService: auditService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := repository.AuditFilter{
		PaginationParams: params,
		Action:           c.Query("action"),
		TargetCollection: c.Query("target_collection"),
		TargetID:         parseUUIDQuery(c, "target_id"),
		UserID:           parseUUIDQuery(c, "user_id"),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "since"), err.Error())
			return
		}
		filter.Since = &t
	}

	logs, total, err := h.auditService.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}
