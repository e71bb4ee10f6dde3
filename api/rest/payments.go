package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sree030289/spendy-server/audit"
	"github.com/sree030289/spendy-server/ledger"
	mw "github.com/sree030289/spendy-server/middleware"
	"github.com/sree030289/spendy-server/model"
	"gorm.io/gorm"
)

// PaymentHandler handles payment and settle-up REST endpoints.
type PaymentHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
	audit  *audit.Service
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(db *gorm.DB, lg *ledger.Service, au *audit.Service) *PaymentHandler {
	return &PaymentHandler{db: db, ledger: lg, audit: au}
}

func (h *PaymentHandler) auditLog(c *gin.Context, action string, start time.Time, req, resp interface{}, opErr error) {
	if h.audit == nil {
		return
	}
	userID := mw.GetUserID(c)
	entry := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		UserID:     &userID,
		Action:     action,
		Request:    req,
		Response:   resp,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	h.audit.Log(entry)
}

type markPaidRequest struct {
	ToUserID    int64   `json:"to_user_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"omitempty,len=3"`
	Method      string  `json:"method" binding:"omitempty,oneof=manual bank"`
	GroupID     *int64  `json:"group_id"`
	ExpenseID   *int64  `json:"expense_id"`
	Description string  `json:"description" binding:"max=200"`
}

// MarkPaid handles POST /api/payments. The caller is always the payer.
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	start := time.Now()
	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.ledger.MarkPaymentAsPaid(c.Request.Context(), ledger.PaymentInput{
		FromUserID:  mw.GetUserID(c),
		ToUserID:    req.ToUserID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      req.Method,
		GroupID:     req.GroupID,
		ExpenseID:   req.ExpenseID,
		Description: req.Description,
	})
	h.auditLog(c, "payment.mark_paid", start, req, res, err)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"payment_id":   res.PaymentID,
		"side_effects": res.SideEffects,
	})
}

type settleAllRequest struct {
	FriendID int64  `json:"friend_id" binding:"required"`
	GroupID  *int64 `json:"group_id"`
}

// SettleAll handles POST /api/payments/settle-all. Clears the whole
// outstanding balance with one friend in a single recorded payment.
func (h *PaymentHandler) SettleAll(c *gin.Context) {
	start := time.Now()
	var req settleAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.ledger.SettleAllBalancesBetweenFriends(c.Request.Context(), mw.GetUserID(c), req.FriendID, req.GroupID)
	h.auditLog(c, "payment.settle_all", start, req, res, err)
	switch {
	case errors.Is(err, ledger.ErrNoOutstandingBalance):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ledger.ErrNotFriends):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"payment_id":   res.PaymentID,
		"side_effects": res.SideEffects,
	})
}

// List handles GET /api/payments. Returns payments the caller sent or
// received, newest first.
func (h *PaymentHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)

	var payments []model.Payment
	err := h.db.Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("id desc").Limit(100).
		Find(&payments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
