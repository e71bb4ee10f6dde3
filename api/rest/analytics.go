package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sree030289/spendy-server/cache"
	mw "github.com/sree030289/spendy-server/middleware"
	"github.com/sree030289/spendy-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AnalyticsHandler handles spending summary REST endpoints. Group
// leaderboards are served from a cached sorted set with a DB fallback.
type AnalyticsHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(db *gorm.DB, c cache.Cache, logger *zap.Logger) *AnalyticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsHandler{db: db, cache: c, logger: logger}
}

func spendingZKey(groupID int64) string {
	return "spending:group:" + strconv.FormatInt(groupID, 10)
}

const spendersTop = 100

// SpenderEntry is one row in a group's spending leaderboard.
type SpenderEntry struct {
	Rank     int     `json:"rank"`
	UserID   int64   `json:"user_id"`
	FullName string  `json:"full_name"`
	Paid     float64 `json:"paid"`
}

// TopSpenders returns group members ranked by total amount paid.
// GET /api/groups/:id/spenders?limit=20
func (h *AnalyticsHandler) TopSpenders(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= spendersTop {
		limit = l
	}

	// Try the cached sorted set first.
	ctx := c.Request.Context()
	key := spendingZKey(groupID)
	members, err := h.cache.ZRevRange(ctx, key, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]SpenderEntry, 0, len(members))
		for i, m := range members {
			userID, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			score, _ := h.cache.ZScore(ctx, key, m)
			entries = append(entries, SpenderEntry{Rank: i + 1, UserID: userID, Paid: score})
		}
		h.enrichNames(entries)
		c.JSON(http.StatusOK, gin.H{"spenders": entries})
		return
	}

	// Fall back to the DB and refresh cache entries on the way out.
	entries, err := h.querySpenders(ctx, groupID, limit, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.enrichNames(entries)
	c.JSON(http.StatusOK, gin.H{"spenders": entries})
}

// Summary returns the caller's totals for one calendar month.
// GET /api/analytics/summary?month=2026-08
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	userID := mw.GetUserID(c)

	month := time.Now().Format("2006-01")
	if m := c.Query("month"); m != "" {
		month = m
	}
	start, err := time.Parse("2006-01", month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month, want YYYY-MM"})
		return
	}
	end := start.AddDate(0, 1, 0)

	var paid float64
	h.db.Model(&model.Expense{}).
		Where("paid_by = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Select("COALESCE(SUM(amount), 0)").Scan(&paid)

	var share float64
	h.db.Model(&model.ExpenseSplit{}).
		Joins("JOIN expenses ON expenses.id = expense_splits.expense_id").
		Where("expense_splits.user_id = ? AND expenses.created_at >= ? AND expenses.created_at < ?", userID, start, end).
		Select("COALESCE(SUM(expense_splits.amount), 0)").Scan(&share)

	c.JSON(http.StatusOK, gin.H{
		"month":       month,
		"total_paid":  paid,
		"total_share": share,
	})
}

// MonthTotals is one month of a user's spending series.
type MonthTotals struct {
	Month      string  `json:"month"`
	TotalPaid  float64 `json:"total_paid"`
	TotalShare float64 `json:"total_share"`
}

// Series returns the caller's monthly totals for the trailing N months,
// oldest first.
// GET /api/analytics/series?months=6
func (h *AnalyticsHandler) Series(c *gin.Context) {
	userID := mw.GetUserID(c)

	months := 6
	if m, err := strconv.Atoi(c.Query("months")); err == nil && m > 0 && m <= 24 {
		months = m
	}

	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(months - 1), 0)

	series := make([]MonthTotals, months)
	for i := 0; i < months; i++ {
		start := first.AddDate(0, i, 0)
		end := start.AddDate(0, 1, 0)

		var paid, share float64
		h.db.Model(&model.Expense{}).
			Where("paid_by = ? AND created_at >= ? AND created_at < ?", userID, start, end).
			Select("COALESCE(SUM(amount), 0)").Scan(&paid)
		h.db.Model(&model.ExpenseSplit{}).
			Joins("JOIN expenses ON expenses.id = expense_splits.expense_id").
			Where("expense_splits.user_id = ? AND expenses.created_at >= ? AND expenses.created_at < ?", userID, start, end).
			Select("COALESCE(SUM(expense_splits.amount), 0)").Scan(&share)

		series[i] = MonthTotals{Month: start.Format("2006-01"), TotalPaid: paid, TotalShare: share}
	}
	c.JSON(http.StatusOK, gin.H{"series": series})
}

// RefreshGroup rebuilds one group's spending sorted set from the DB.
// Called periodically by the scheduler for every active group.
func (h *AnalyticsHandler) RefreshGroup(ctx context.Context, groupID int64) error {
	_, err := h.querySpenders(ctx, groupID, spendersTop, true)
	return err
}

// RefreshAll rebuilds the spending sorted sets of every group.
func (h *AnalyticsHandler) RefreshAll(ctx context.Context) {
	var ids []int64
	if err := h.db.Model(&model.Group{}).Pluck("id", &ids).Error; err != nil {
		h.logger.Error("spending refresh: list groups failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		if err := h.RefreshGroup(ctx, id); err != nil {
			h.logger.Error("spending refresh failed",
				zap.Int64("group_id", id), zap.Error(err))
		}
	}
}

func (h *AnalyticsHandler) querySpenders(ctx context.Context, groupID int64, limit int, refreshCache bool) ([]SpenderEntry, error) {
	type row struct {
		PaidBy int64
		Total  float64
	}
	var rows []row
	err := h.db.WithContext(ctx).Model(&model.Expense{}).
		Select("paid_by, SUM(amount) AS total").
		Where("group_id = ?", groupID).
		Group("paid_by").
		Order("total DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]SpenderEntry, len(rows))
	for i, r := range rows {
		entries[i] = SpenderEntry{Rank: i + 1, UserID: r.PaidBy, Paid: r.Total}
		if refreshCache {
			_ = h.cache.ZAdd(ctx, spendingZKey(groupID), r.Total, strconv.FormatInt(r.PaidBy, 10))
		}
	}
	return entries, nil
}

func (h *AnalyticsHandler) enrichNames(entries []SpenderEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	var users []model.User
	h.db.Select("id, full_name").Where("id IN ?", ids).Find(&users)
	nameMap := make(map[int64]string, len(users))
	for _, u := range users {
		nameMap[u.ID] = u.FullName
	}
	for i := range entries {
		entries[i].FullName = nameMap[entries[i].UserID]
	}
}
