package rest_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopSpenders(t *testing.T) {
	env := newTestEnv(t)
	ids, tokens, groupID := dinnerParty(t, env)
	addDinner(t, env, ids, tokens[0], groupID)

	// bob pays for a smaller round
	w := postJSON(env.r, "/api/expenses", map[string]interface{}{
		"group_id": groupID, "description": "Drinks", "amount": 24.0,
		"paid_by": ids[1], "split_type": "equal",
		"splits": []map[string]interface{}{
			{"user_id": ids[0]}, {"user_id": ids[1]}, {"user_id": ids[2]},
		},
	}, bearer(tokens[1])...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(env.r, http.MethodGet, fmt.Sprintf("/api/groups/%d/spenders", groupID), nil, bearer(tokens[2])...)
	require.Equal(t, http.StatusOK, w.Code)
	spenders := decode(t, w)["spenders"].([]interface{})
	require.Len(t, spenders, 2)

	first := spenders[0].(map[string]interface{})
	assert.Equal(t, 1.0, first["rank"])
	assert.Equal(t, float64(ids[0]), first["user_id"])
	assert.Equal(t, "alice", first["full_name"])
	assert.Equal(t, 90.0, first["paid"])

	second := spenders[1].(map[string]interface{})
	assert.Equal(t, float64(ids[1]), second["user_id"])
	assert.Equal(t, 24.0, second["paid"])

	// second read is served from the warmed sorted set
	w = doJSON(env.r, http.MethodGet, fmt.Sprintf("/api/groups/%d/spenders", groupID), nil, bearer(tokens[2])...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["spenders"], 2)
}

func TestMonthlySummary(t *testing.T) {
	env := newTestEnv(t)
	ids, tokens, groupID := dinnerParty(t, env)
	addDinner(t, env, ids, tokens[0], groupID)

	month := time.Now().Format("2006-01")
	w := doJSON(env.r, http.MethodGet, "/api/analytics/summary?month="+month, nil, bearer(tokens[0])...)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, month, resp["month"])
	assert.Equal(t, 90.0, resp["total_paid"])
	assert.Equal(t, 30.0, resp["total_share"])

	// bob paid nothing, his share is just a third of the dinner
	w = doJSON(env.r, http.MethodGet, "/api/analytics/summary", nil, bearer(tokens[1])...)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.Equal(t, 0.0, resp["total_paid"])
	assert.Equal(t, 30.0, resp["total_share"])

	w = doJSON(env.r, http.MethodGet, "/api/analytics/summary?month=not-a-month", nil, bearer(tokens[1])...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonthlySeries(t *testing.T) {
	env := newTestEnv(t)
	ids, tokens, groupID := dinnerParty(t, env)
	addDinner(t, env, ids, tokens[0], groupID)

	w := doJSON(env.r, http.MethodGet, "/api/analytics/series?months=3", nil, bearer(tokens[0])...)
	require.Equal(t, http.StatusOK, w.Code)
	series := decode(t, w)["series"].([]interface{})
	require.Len(t, series, 3)

	// oldest first, current month last
	last := series[2].(map[string]interface{})
	assert.Equal(t, time.Now().Format("2006-01"), last["month"])
	assert.Equal(t, 90.0, last["total_paid"])
	assert.Equal(t, 30.0, last["total_share"])

	first := series[0].(map[string]interface{})
	assert.Equal(t, 0.0, first["total_paid"])

	// default window
	w = doJSON(env.r, http.MethodGet, "/api/analytics/series", nil, bearer(tokens[1])...)
	require.Equal(t, http.StatusOK, w.Code)
	series = decode(t, w)["series"].([]interface{})
	assert.Len(t, series, 6)
	assert.Equal(t, 30.0, series[5].(map[string]interface{})["total_share"])
}

func TestBankLinkListUnlink(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.registerUser(t, "alice")
	_, bobToken := env.registerUser(t, "bob")

	w := postJSON(env.r, "/api/banks", map[string]interface{}{
		"bank_name": "Test Bank", "account_mask": "1234", "currency": "USD",
	}, bearer(aliceToken)...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	accountID := int64(decode(t, w)["account"].(map[string]interface{})["id"].(float64))

	// mask must be the last four digits
	w = postJSON(env.r, "/api/banks", map[string]interface{}{
		"bank_name": "Test Bank", "account_mask": "12ab",
	}, bearer(aliceToken)...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(env.r, http.MethodGet, "/api/banks", nil, bearer(aliceToken)...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["accounts"], 1)

	// another user cannot unlink it
	w = doJSON(env.r, http.MethodDelete, fmt.Sprintf("/api/banks/%d", accountID), nil, bearer(bobToken)...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(env.r, http.MethodDelete, fmt.Sprintf("/api/banks/%d", accountID), nil, bearer(aliceToken)...)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.r, http.MethodGet, "/api/banks", nil, bearer(aliceToken)...)
	assert.Len(t, decode(t, w)["accounts"], 0)
}
