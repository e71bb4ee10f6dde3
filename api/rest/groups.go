package rest

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sree030289/spendy-server/chat"
	"github.com/sree030289/spendy-server/ledger"
	mw "github.com/sree030289/spendy-server/middleware"
	"github.com/sree030289/spendy-server/model"
	"github.com/sree030289/spendy-server/notify"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GroupHandler handles group management, group chat and settlement
// suggestion REST endpoints.
type GroupHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
	chat   *chat.Service
	notify *notify.Service
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(db *gorm.DB, lg *ledger.Service, ch *chat.Service, n *notify.Service) *GroupHandler {
	return &GroupHandler{db: db, ledger: lg, chat: ch, notify: n}
}

// requireMembership loads the caller's active membership or writes a 403.
func (h *GroupHandler) requireMembership(c *gin.Context, groupID int64) (*model.GroupMember, bool) {
	userID := mw.GetUserID(c)
	var gm model.GroupMember
	err := h.db.Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		First(&gm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a group member"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	return &gm, true
}

type createGroupRequest struct {
	Name      string         `json:"name" binding:"required,min=1,max=64"`
	Currency  string         `json:"currency" binding:"omitempty,len=3"`
	MemberIDs []int64        `json:"member_ids"`
	Settings  map[string]any `json:"settings"`
}

// Create handles POST /api/groups. The creator becomes admin; listed
// members join immediately with zero balances.
func (h *GroupHandler) Create(c *gin.Context) {
	userID := mw.GetUserID(c)
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := model.Group{Name: req.Name, Currency: req.Currency, CreatedBy: userID}
	if req.Settings != nil {
		if b, err := json.Marshal(req.Settings); err == nil {
			group.Settings = datatypes.JSON(b)
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		members := []model.GroupMember{{GroupID: group.ID, UserID: userID, Role: model.GroupRoleAdmin, IsActive: true}}
		for _, id := range req.MemberIDs {
			if id == userID {
				continue
			}
			members = append(members, model.GroupMember{GroupID: group.ID, UserID: id, Role: model.GroupRoleMember, IsActive: true})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if h.notify != nil {
		for _, id := range req.MemberIDs {
			if id != userID {
				_ = h.notify.GroupInvite(c.Request.Context(), id, group.ID, group.Name)
			}
		}
	}
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// List handles GET /api/groups. Returns every group the caller is an
// active member of, with the caller's balance in each.
func (h *GroupHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)

	var memberships []model.GroupMember
	if err := h.db.Where("user_id = ? AND is_active = ?", userID, true).
		Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ids := make([]int64, len(memberships))
	balances := make(map[int64]float64, len(memberships))
	for i, m := range memberships {
		ids[i] = m.GroupID
		balances[m.GroupID] = m.Balance
	}
	var groups []model.Group
	if len(ids) > 0 {
		h.db.Where("id IN ?", ids).Find(&groups)
	}

	type groupInfo struct {
		model.Group
		MyBalance float64 `json:"my_balance"`
	}
	result := make([]groupInfo, len(groups))
	for i, g := range groups {
		result[i] = groupInfo{Group: g, MyBalance: balances[g.ID]}
	}
	c.JSON(http.StatusOK, gin.H{"groups": result})
}

// Detail handles GET /api/groups/:id. Returns the group with its member
// list and each member's balance.
func (h *GroupHandler) Detail(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if _, ok := h.requireMembership(c, groupID); !ok {
		return
	}

	var group model.Group
	if err := h.db.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	var members []model.GroupMember
	h.db.Where("group_id = ? AND is_active = ?", groupID, true).Order("user_id").Find(&members)

	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users := make(map[int64]model.User, len(ids))
	if len(ids) > 0 {
		var rows []model.User
		h.db.Where("id IN ?", ids).Find(&rows)
		for _, u := range rows {
			users[u.ID] = u
		}
	}

	type memberInfo struct {
		model.GroupMember
		FullName string `json:"full_name"`
	}
	result := make([]memberInfo, len(members))
	for i, m := range members {
		result[i] = memberInfo{GroupMember: m, FullName: users[m.UserID].FullName}
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "members": result})
}

type addMemberRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// AddMember handles POST /api/groups/:id/members. Admins only. Re-adding
// a member who left reactivates their row, balance intact.
func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	gm, ok := h.requireMembership(c, groupID)
	if !ok {
		return
	}
	if gm.Role != model.GroupRoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing model.GroupMember
	err = h.db.Where("group_id = ? AND user_id = ?", groupID, req.UserID).First(&existing).Error
	switch {
	case err == nil && existing.IsActive:
		c.JSON(http.StatusConflict, gin.H{"error": "already a member"})
		return
	case err == nil:
		if err := h.db.Model(&existing).Update("is_active", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		member := model.GroupMember{GroupID: groupID, UserID: req.UserID, Role: model.GroupRoleMember, IsActive: true}
		if err := h.db.Create(&member).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if h.notify != nil {
		var group model.Group
		h.db.First(&group, groupID)
		_ = h.notify.GroupInvite(c.Request.Context(), req.UserID, groupID, group.Name)
	}
	c.JSON(http.StatusOK, gin.H{"message": "member added"})
}

// RemoveMember handles DELETE /api/groups/:id/members/:uid. Admins only;
// a member still owing or owed money cannot be kicked.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	targetID, err := strconv.ParseInt(c.Param("uid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	gm, ok := h.requireMembership(c, groupID)
	if !ok {
		return
	}
	if gm.Role != model.GroupRoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}

	var target model.GroupMember
	err = h.db.Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, targetID, true).
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not a group member"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if math.Abs(target.Balance) > ledger.Epsilon {
		c.JSON(http.StatusConflict, gin.H{"error": "outstanding balance, settle up first"})
		return
	}

	if err := h.db.Model(&target).Update("is_active", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

type updateGroupRequest struct {
	Name     string         `json:"name" binding:"omitempty,min=1,max=64"`
	Currency string         `json:"currency" binding:"omitempty,len=3"`
	Settings map[string]any `json:"settings"`
}

// Update handles PATCH /api/groups/:id. Admins only; absent fields keep
// their current values.
func (h *GroupHandler) Update(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	gm, ok := h.requireMembership(c, groupID)
	if !ok {
		return
	}
	if gm.Role != model.GroupRoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}

	var req updateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Currency != "" {
		updates["currency"] = req.Currency
	}
	if req.Settings != nil {
		b, err := json.Marshal(req.Settings)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings"})
			return
		}
		updates["settings"] = datatypes.JSON(b)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.db.Model(&model.Group{}).Where("id = ?", groupID).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var group model.Group
	h.db.First(&group, groupID)
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// Leave handles POST /api/groups/:id/leave. A member with an outstanding
// group balance must settle before leaving.
func (h *GroupHandler) Leave(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	gm, ok := h.requireMembership(c, groupID)
	if !ok {
		return
	}
	if math.Abs(gm.Balance) > ledger.Epsilon {
		c.JSON(http.StatusConflict, gin.H{"error": "outstanding balance, settle up first"})
		return
	}

	if err := h.db.Model(gm).Update("is_active", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left group"})
}

// Suggestions handles GET /api/groups/:id/suggestions.
func (h *GroupHandler) Suggestions(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if _, ok := h.requireMembership(c, groupID); !ok {
		return
	}

	suggestions, err := h.ledger.GroupSettlementSuggestions(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

type postMessageRequest struct {
	Body string `json:"body" binding:"required,min=1,max=500"`
}

// PostMessage handles POST /api/groups/:id/messages.
func (h *GroupHandler) PostMessage(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.chat.PostUserMessage(c.Request.Context(), groupID, mw.GetUserID(c), req.Body)
	if errors.Is(err, chat.ErrNotGroupMember) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a group member"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// Messages handles GET /api/groups/:id/messages?before=<id>&limit=<n>.
func (h *GroupHandler) Messages(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if _, ok := h.requireMembership(c, groupID); !ok {
		return
	}

	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	msgs, err := h.chat.History(c.Request.Context(), groupID, before, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
