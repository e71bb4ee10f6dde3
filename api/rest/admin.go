package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sree030289/spendy-server/model"
	"github.com/sree030289/spendy-server/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminKey middleware.
type AdminHandler struct {
	db        *gorm.DB
	sched     *scheduler.Scheduler
	analytics *AnalyticsHandler
	logger    *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, sched *scheduler.Scheduler, analytics *AnalyticsHandler, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{db: db, sched: sched, analytics: analytics, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var users, groups, expenses, payments int64
	h.db.Model(&model.User{}).Count(&users)
	h.db.Model(&model.Group{}).Count(&groups)
	h.db.Model(&model.Expense{}).Count(&expenses)
	h.db.Model(&model.Payment{}).Count(&payments)

	resp := gin.H{
		"users":    users,
		"groups":   groups,
		"expenses": expenses,
		"payments": payments,
	}
	if h.sched != nil {
		resp["scheduler_tasks"] = h.sched.ListTickers()
	}
	c.JSON(http.StatusOK, resp)
}

// AuditLog returns recent ledger audit entries.
// GET /api/admin/audit?user_id=<id>&action=<a>&limit=<n>
func (h *AdminHandler) AuditLog(c *gin.Context) {
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	q := h.db.Model(&model.LedgerAudit{})
	if uid, err := strconv.ParseInt(c.Query("user_id"), 10, 64); err == nil {
		q = q.Where("user_id = ?", uid)
	}
	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}

	var entries []model.LedgerAudit
	if err := q.Order("id desc").Limit(limit).Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// VerifyBank marks a linked bank account verified.
// POST /api/admin/banks/:id/verify
func (h *AdminHandler) VerifyBank(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	res := h.db.Model(&model.BankAccount{}).
		Where("id = ? AND status = ?", id, model.BankStatusPending).
		Update("status", model.BankStatusVerified)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pending account"})
		return
	}

	h.logger.Info("bank account verified", zap.Int64("account_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "verified"})
}

// RefreshSpending rebuilds every group's spending leaderboard.
// POST /api/admin/spending/refresh
func (h *AdminHandler) RefreshSpending(c *gin.Context) {
	h.analytics.RefreshAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "refreshed"})
}

// DisableUser sets a user's status to disabled, blocking new logins.
// POST /api/admin/users/:id/disable
func (h *AdminHandler) DisableUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	res := h.db.Model(&model.User{}).Where("id = ?", id).Update("status", 0)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "disabled"})
}
