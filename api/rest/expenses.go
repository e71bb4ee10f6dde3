package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sree030289/spendy-server/audit"
	"github.com/sree030289/spendy-server/ledger"
	mw "github.com/sree030289/spendy-server/middleware"
	"github.com/sree030289/spendy-server/model"
	"gorm.io/gorm"
)

// ExpenseHandler handles expense REST endpoints. Every balance-moving
// request is audited with its trace ID.
type ExpenseHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
	audit  *audit.Service
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(db *gorm.DB, lg *ledger.Service, au *audit.Service) *ExpenseHandler {
	return &ExpenseHandler{db: db, ledger: lg, audit: au}
}

func (h *ExpenseHandler) auditLog(c *gin.Context, action string, start time.Time, req, resp interface{}, opErr error) {
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

// writeLedgerError maps ledger errors onto HTTP statuses.
func writeLedgerError(c *gin.Context, err error) {
	switch {
	case ledger.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case ledger.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotGroupMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type expenseRequest struct {
	GroupID     int64               `json:"group_id" binding:"required"`
	Description string              `json:"description" binding:"required,min=1,max=200"`
	Amount      float64             `json:"amount" binding:"required,gt=0"`
	Currency    string              `json:"currency" binding:"omitempty,len=3"`
	PaidBy      int64               `json:"paid_by" binding:"required"`
	SplitType   string              `json:"split_type" binding:"required,oneof=equal custom percentage"`
	Splits      []ledger.SplitInput `json:"splits" binding:"required,min=1"`
}

// Add handles POST /api/expenses.
func (h *ExpenseHandler) Add(c *gin.Context) {
	start := time.Now()
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.ledger.AddExpense(c.Request.Context(), ledger.AddExpenseInput{
		GroupID:     req.GroupID,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		PaidBy:      req.PaidBy,
		SplitType:   req.SplitType,
		Splits:      req.Splits,
		ActorID:     mw.GetUserID(c),
	})
	h.auditLog(c, "expense.add", start, req, res, err)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"expense_id":   res.ExpenseID,
		"side_effects": res.SideEffects,
	})
}

// Update handles PUT /api/expenses/:id.
func (h *ExpenseHandler) Update(c *gin.Context) {
	start := time.Now()
	expenseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.ledger.UpdateExpense(c.Request.Context(), ledger.UpdateExpenseInput{
		ExpenseID:   expenseID,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		PaidBy:      req.PaidBy,
		SplitType:   req.SplitType,
		Splits:      req.Splits,
		ActorID:     mw.GetUserID(c),
	})
	h.auditLog(c, "expense.update", start, req, res, err)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"amount_difference": res.AmountDifference,
		"side_effects":      res.SideEffects,
	})
}

// Delete handles DELETE /api/expenses/:id.
func (h *ExpenseHandler) Delete(c *gin.Context) {
	start := time.Now()
	expenseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	res, err := h.ledger.DeleteExpense(c.Request.Context(), expenseID, mw.GetUserID(c))
	h.auditLog(c, "expense.delete", start, gin.H{"expense_id": expenseID}, res, err)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"side_effects": res.SideEffects})
}

// Get handles GET /api/expenses/:id.
func (h *ExpenseHandler) Get(c *gin.Context) {
	expenseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var expense model.Expense
	err = h.db.Preload("Splits").First(&expense, expenseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// ListForGroup handles GET /api/groups/:id/expenses?limit=<n>&offset=<n>.
func (h *ExpenseHandler) ListForGroup(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	offset, _ := strconv.Atoi(c.Query("offset"))

	var expenses []model.Expense
	err = h.db.Preload("Splits").
		Where("group_id = ?", groupID).
		Order("id desc").Limit(limit).Offset(offset).
		Find(&expenses).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

type settlementRequest struct {
	Splits    []ledger.SplitPaidUpdate `json:"splits"`
	IsSettled bool                     `json:"is_settled"`
}

// Settle handles PATCH /api/expenses/:id/settlement. Flags only; recorded
// payments are what move balances.
func (h *ExpenseHandler) Settle(c *gin.Context) {
	start := time.Now()
	expenseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req settlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.ledger.UpdateExpenseSettlement(c.Request.Context(), expenseID, req.Splits, req.IsSettled)
	h.auditLog(c, "expense.settle", start, req, nil, err)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
