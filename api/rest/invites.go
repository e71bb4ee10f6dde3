package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sree030289/spendy-server/config"
	mw "github.com/sree030289/spendy-server/middleware"
	"github.com/sree030289/spendy-server/model"
	"github.com/sree030289/spendy-server/qrcode"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InviteHandler handles group invite codes and their QR images.
type InviteHandler struct {
	db     *gorm.DB
	srv    config.ServerConfig
	inv    config.InvitesConfig
	logger *zap.Logger
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(db *gorm.DB, srv config.ServerConfig, inv config.InvitesConfig, logger *zap.Logger) *InviteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InviteHandler{db: db, srv: srv, inv: inv, logger: logger}
}

func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Create handles POST /api/groups/:id/invites. Any active member can
// invite; the code is single use and expires after the configured TTL.
func (h *InviteHandler) Create(c *gin.Context) {
	userID := mw.GetUserID(c)
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var gm model.GroupMember
	err = h.db.Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		First(&gm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a group member"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ttl := h.inv.CodeTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	invite := model.GroupInvite{
		GroupID:   groupID,
		Code:      newInviteCode(),
		CreatedBy: userID,
		ExpiresAt: time.Now().Add(ttl),
	}

	joinURL := fmt.Sprintf("%s/join/%s", strings.TrimRight(h.srv.PublicURL, "/"), invite.Code)
	if h.inv.QRDir != "" {
		path, err := qrcode.Generate(h.inv.QRDir, invite.Code, joinURL)
		if err != nil {
			// The code still works without the image.
			h.logger.Warn("invite QR generation failed", zap.Error(err))
		} else {
			invite.QRPath = path
		}
	}

	if err := h.db.Create(&invite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invite": invite, "join_url": joinURL})
}

// Resolve handles GET /api/invites/:code. Returns the group an invite
// points at without joining it.
func (h *InviteHandler) Resolve(c *gin.Context) {
	invite, ok := h.loadValid(c)
	if !ok {
		return
	}
	var group model.Group
	if err := h.db.First(&group, invite.GroupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "expires_at": invite.ExpiresAt})
}

// Join handles POST /api/invites/:code/join. Joining marks the code used
// and adds the caller as a regular member.
func (h *InviteHandler) Join(c *gin.Context) {
	userID := mw.GetUserID(c)
	invite, ok := h.loadValid(c)
	if !ok {
		return
	}

	now := time.Now()
	err := h.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.GroupInvite{}).
			Where("id = ? AND used_by IS NULL", invite.ID).
			Updates(map[string]interface{}{"used_by": userID, "used_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var existing model.GroupMember
		err := tx.Where("group_id = ? AND user_id = ?", invite.GroupID, userID).First(&existing).Error
		if err == nil {
			if existing.IsActive {
				return nil
			}
			return tx.Model(&existing).Update("is_active", true).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		member := model.GroupMember{GroupID: invite.GroupID, UserID: userID, Role: model.GroupRoleMember, IsActive: true}
		return tx.Create(&member).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusConflict, gin.H{"error": "invite already used"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": invite.GroupID})
}

func (h *InviteHandler) loadValid(c *gin.Context) (*model.GroupInvite, bool) {
	code := c.Param("code")
	var invite model.GroupInvite
	err := h.db.Where("code = ?", code).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invite not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	if time.Now().After(invite.ExpiresAt) {
		c.JSON(http.StatusGone, gin.H{"error": "invite expired"})
		return nil, false
	}
	if invite.UsedBy != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "invite already used"})
		return nil, false
	}
	return &invite, true
}
