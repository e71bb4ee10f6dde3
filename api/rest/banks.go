package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/sree030289/spendy-server/middleware"
	"github.com/sree030289/spendy-server/model"
	"gorm.io/gorm"
)

// BankHandler handles linked bank account REST endpoints. Accounts are
// created pending and verified out of band (see AdminHandler.VerifyBank).
type BankHandler struct {
	db *gorm.DB
}

// NewBankHandler creates a new BankHandler.
func NewBankHandler(db *gorm.DB) *BankHandler {
	return &BankHandler{db: db}
}

type linkBankRequest struct {
	BankName    string `json:"bank_name" binding:"required,min=1,max=64"`
	AccountMask string `json:"account_mask" binding:"required,len=4,numeric"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
}

// Link handles POST /api/banks.
func (h *BankHandler) Link(c *gin.Context) {
	userID := mw.GetUserID(c)
	var req linkBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account := model.BankAccount{
		UserID:      userID,
		BankName:    req.BankName,
		AccountMask: req.AccountMask,
		Currency:    req.Currency,
		Status:      model.BankStatusPending,
	}
	if err := h.db.Create(&account).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// List handles GET /api/banks.
func (h *BankHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	var accounts []model.BankAccount
	if err := h.db.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// Unlink handles DELETE /api/banks/:id.
func (h *BankHandler) Unlink(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	res := h.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.BankAccount{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unlinked"})
}
