package rest_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sree030289/spendy-server/api/rest"
	"github.com/sree030289/spendy-server/audit"
	"github.com/sree030289/spendy-server/cache"
	"github.com/sree030289/spendy-server/chat"
	"github.com/sree030289/spendy-server/config"
	"github.com/sree030289/spendy-server/ledger"
	mw "github.com/sree030289/spendy-server/middleware"
	"github.com/sree030289/spendy-server/notify"
	"github.com/sree030289/spendy-server/scheduler"
	"github.com/sree030289/spendy-server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testAdminKey = "test-admin-key"

// testEnv wires the full route table against a throwaway DB and local
// cache, mirroring the wiring in main.
type testEnv struct {
	r     *gin.Engine
	db    *gorm.DB
	c     cache.Cache
	audit *audit.Service
}

// flushAudit stops the audit worker so queued entries hit the DB. Fine
// in tests: Log after Stop just drops entries instead of panicking.
func (e *testEnv) flushAudit() {
	e.audit.Stop(nil)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour}
	logger := zap.NewNop()

	chatSvc := chat.New(db, logger)
	notifySvc := notify.New(db, pubsub, c, logger)
	ledgerSvc := ledger.New(db, chatSvc, notifySvc, config.LedgerConfig{DefaultCurrency: "USD"}, logger)
	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(nil) })
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	authH := rest.NewAuthHandler(db, c, sec)
	friendH := rest.NewFriendHandler(db, ledgerSvc, notifySvc)
	groupH := rest.NewGroupHandler(db, ledgerSvc, chatSvc, notifySvc)
	expenseH := rest.NewExpenseHandler(db, ledgerSvc, auditSvc)
	paymentH := rest.NewPaymentHandler(db, ledgerSvc, auditSvc)
	notifyH := rest.NewNotificationHandler(notifySvc)
	inviteH := rest.NewInviteHandler(db, config.ServerConfig{PublicURL: "http://test.local"}, config.InvitesConfig{}, logger)
	bankH := rest.NewBankHandler(db)
	analyticsH := rest.NewAnalyticsHandler(db, c, logger)
	adminH := rest.NewAdminHandler(db, sched, analyticsH, logger)

	r := gin.New()
	r.Use(mw.TraceID())
	api := r.Group("/api")
	api.POST("/auth/register", authH.Register)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/logout", mw.Auth(sec, c), authH.Logout)
	api.POST("/auth/refresh", mw.Auth(sec, c), authH.Refresh)

	authed := api.Group("", mw.Auth(sec, c))
	authed.GET("/me", authH.Me)
	authed.GET("/friends", friendH.List)
	authed.POST("/friends/request", friendH.Request)
	authed.POST("/friends/accept/:id", friendH.Accept)
	authed.DELETE("/friends/:id", friendH.Remove)
	authed.POST("/friends/block/:id", friendH.Block)
	authed.GET("/friends/:id/balance", friendH.Balance)
	authed.POST("/groups", groupH.Create)
	authed.GET("/groups", groupH.List)
	authed.GET("/groups/:id", groupH.Detail)
	authed.PATCH("/groups/:id", groupH.Update)
	authed.POST("/groups/:id/members", groupH.AddMember)
	authed.DELETE("/groups/:id/members/:uid", groupH.RemoveMember)
	authed.POST("/groups/:id/leave", groupH.Leave)
	authed.GET("/groups/:id/suggestions", groupH.Suggestions)
	authed.POST("/groups/:id/messages", groupH.PostMessage)
	authed.GET("/groups/:id/messages", groupH.Messages)
	authed.GET("/groups/:id/expenses", expenseH.ListForGroup)
	authed.GET("/groups/:id/spenders", analyticsH.TopSpenders)
	authed.POST("/groups/:id/invites", inviteH.Create)
	authed.POST("/expenses", expenseH.Add)
	authed.GET("/expenses/:id", expenseH.Get)
	authed.PUT("/expenses/:id", expenseH.Update)
	authed.DELETE("/expenses/:id", expenseH.Delete)
	authed.PATCH("/expenses/:id/settlement", expenseH.Settle)
	authed.POST("/payments", paymentH.MarkPaid)
	authed.POST("/payments/settle-all", paymentH.SettleAll)
	authed.GET("/payments", paymentH.List)
	authed.GET("/notifications", notifyH.List)
	authed.POST("/notifications/:id/read", notifyH.MarkRead)
	authed.POST("/notifications/read-all", notifyH.MarkAllRead)
	authed.GET("/invites/:code", inviteH.Resolve)
	authed.POST("/invites/:code/join", inviteH.Join)
	authed.GET("/banks", bankH.List)
	authed.POST("/banks", bankH.Link)
	authed.DELETE("/banks/:id", bankH.Unlink)
	authed.GET("/analytics/summary", analyticsH.Summary)
	authed.GET("/analytics/series", analyticsH.Series)

	adminG := api.Group("/admin", mw.AdminKey(testAdminKey))
	adminG.GET("/metrics", adminH.Metrics)
	adminG.GET("/audit", adminH.AuditLog)
	adminG.POST("/banks/:id/verify", adminH.VerifyBank)
	adminG.POST("/spending/refresh", adminH.RefreshSpending)
	adminG.POST("/users/:id/disable", adminH.DisableUser)

	return &testEnv{r: r, db: db, c: c, audit: auditSvc}
}

func postJSON(r *gin.Engine, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodPost, path, body, headers...)
}

func doJSON(r *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// registerUser signs up a fresh user and returns their ID and token.
func (e *testEnv) registerUser(t *testing.T, name string) (int64, string) {
	t.Helper()
	w := postJSON(e.r, "/api/auth/register", map[string]string{
		"email":     fmt.Sprintf("%s@test.local", name),
		"password":  "password123",
		"full_name": name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode(t, w)
	return int64(resp["user_id"].(float64)), resp["token"].(string)
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}

// ---- Auth ----

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	userID, token := env.registerUser(t, "alice")
	assert.Positive(t, userID)
	assert.NotEmpty(t, token)

	w := postJSON(env.r, "/api/auth/login", map[string]string{
		"email": "alice@test.local", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, float64(userID), resp["user_id"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice")

	w := postJSON(env.r, "/api/auth/register", map[string]string{
		"email": "alice@test.local", "password": "password123", "full_name": "Alice Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice")

	w := postJSON(env.r, "/api/auth/login", map[string]string{
		"email": "alice@test.local", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(env.r, "/api/auth/login", map[string]string{
		"email": "nobody@test.local", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "alice")

	w := doJSON(env.r, http.MethodGet, "/api/me", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(env.r, "/api/auth/logout", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.r, http.MethodGet, "/api/me", nil, bearer(token)...)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "alice")

	w := postJSON(env.r, "/api/auth/refresh", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	newToken := decode(t, w)["token"].(string)
	require.NotEqual(t, token, newToken)

	// old token is dead, new one works
	w = doJSON(env.r, http.MethodGet, "/api/me", nil, bearer(token)...)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(env.r, http.MethodGet, "/api/me", nil, bearer(newToken)...)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "alice")

	w := doJSON(env.r, http.MethodGet, "/api/me", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "alice@test.local", user["email"])
	assert.Equal(t, "alice", user["full_name"])
	_, hashLeaked := user["password_hash"]
	assert.False(t, hashLeaked)
}
