package rest

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sree030289/spendy-server/ledger"
	mw "github.com/sree030289/spendy-server/middleware"
	"github.com/sree030289/spendy-server/model"
	"github.com/sree030289/spendy-server/notify"
	"gorm.io/gorm"
)

// FriendHandler handles friend and friend-balance REST endpoints.
type FriendHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
	notify *notify.Service
}

// NewFriendHandler creates a new FriendHandler.
func NewFriendHandler(db *gorm.DB, lg *ledger.Service, n *notify.Service) *FriendHandler {
	return &FriendHandler{db: db, ledger: lg, notify: n}
}

// List handles GET /api/friends. Returns the caller's friendship edges
// with the friend's profile and the running balance, plus summary totals.
func (h *FriendHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)

	var edges []model.Friendship
	if err := h.db.Where("user_id = ? AND status IN ?", userID,
		[]model.FriendStatus{model.FriendPending, model.FriendAccepted, model.FriendInvited}).
		Find(&edges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ids := make([]int64, len(edges))
	for i, e := range edges {
		ids[i] = e.FriendID
	}
	users := make(map[int64]model.User, len(ids))
	if len(ids) > 0 {
		var rows []model.User
		h.db.Where("id IN ?", ids).Find(&rows)
		for _, u := range rows {
			users[u.ID] = u
		}
	}

	type friendInfo struct {
		model.Friendship
		FriendName  string `json:"friend_name"`
		FriendEmail string `json:"friend_email"`
	}
	totalOwed, totalOwing := 0.0, 0.0
	result := make([]friendInfo, len(edges))
	for i, e := range edges {
		u := users[e.FriendID]
		result[i] = friendInfo{Friendship: e, FriendName: u.FullName, FriendEmail: u.Email}
		if e.Status == model.FriendAccepted {
			if e.Balance > 0 {
				totalOwed += e.Balance
			} else {
				totalOwing += -e.Balance
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"friends":     result,
		"total_owed":  totalOwed,
		"total_owing": totalOwing,
	})
}

type friendRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

// Request handles POST /api/friends/request. An unknown email creates a
// placeholder user and an invited edge; the edge turns into a pending
// request when the invitee registers.
func (h *FriendHandler) Request(c *gin.Context) {
	userID := mw.GetUserID(c)
	var req friendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(req.Email)

	var target model.User
	err := h.db.Where("email = ?", email).First(&target).Error
	invited := false
	if errors.Is(err, gorm.ErrRecordNotFound) {
		target = model.User{Email: email}
		if createErr := h.db.Create(&target).Error; createErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		invited = true
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if target.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot add yourself"})
		return
	}

	var existing model.Friendship
	if err := h.db.Where("user_id = ? AND friend_id = ?", userID, target.ID).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "request already exists"})
		return
	}

	status := model.FriendPending
	if invited || target.PasswordHash == "" {
		status = model.FriendInvited
	}
	edge := model.Friendship{UserID: userID, FriendID: target.ID, Status: status}
	if err := h.db.Create(&edge).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if status == model.FriendPending && h.notify != nil {
		var me model.User
		h.db.First(&me, userID)
		_ = h.notify.FriendRequest(c.Request.Context(), target.ID, userID, me.FullName)
	}
	c.JSON(http.StatusCreated, gin.H{"friendship": edge, "invited": invited})
}

// Accept handles POST /api/friends/accept/:id where :id is the requester's
// user ID. Accepting creates the mirror edge so both directions exist with
// zero balances.
func (h *FriendHandler) Accept(c *gin.Context) {
	userID := mw.GetUserID(c)
	requesterID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Friendship{}).
			Where("user_id = ? AND friend_id = ? AND status = ?", requesterID, userID, model.FriendPending).
			Update("status", model.FriendAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		mirror := model.Friendship{UserID: userID, FriendID: requesterID, Status: model.FriendAccepted}
		return tx.Create(&mirror).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pending request"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if h.notify != nil {
		var me model.User
		h.db.First(&me, userID)
		_ = h.notify.FriendAccepted(c.Request.Context(), requesterID, userID, me.FullName)
	}
	c.JSON(http.StatusOK, gin.H{"message": "accepted"})
}

// Remove handles DELETE /api/friends/:id. A friendship with money still
// outstanding cannot be removed; settle up first.
func (h *FriendHandler) Remove(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var edge model.Friendship
	err = h.db.Where("user_id = ? AND friend_id = ?", userID, friendID).First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not friends"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if math.Abs(edge.Balance) > ledger.Epsilon {
		c.JSON(http.StatusConflict, gin.H{"error": "outstanding balance, settle up first"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND friend_id = ?", userID, friendID).
			Delete(&model.Friendship{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND friend_id = ?", friendID, userID).
			Delete(&model.Friendship{}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

// Block handles POST /api/friends/block/:id. Blocking freezes both mirror
// edges together; any balance stays on record but no new expenses can touch
// it. A one-sided block would leave one accepted mirror for balance updates
// to land on.
func (h *FriendHandler) Block(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Friendship{}).
			Where("user_id = ? AND friend_id = ?", userID, friendID).
			Update("status", model.FriendBlocked)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		// A pending or invited edge has no mirror yet; that is fine.
		return tx.Model(&model.Friendship{}).
			Where("user_id = ? AND friend_id = ?", friendID, userID).
			Update("status", model.FriendBlocked).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not friends"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "blocked"})
}

// Balance handles GET /api/friends/:id/balance.
func (h *FriendHandler) Balance(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	balance, err := h.ledger.FriendBalance(c.Request.Context(), userID, friendID)
	if errors.Is(err, ledger.ErrNotFriends) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not friends"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
