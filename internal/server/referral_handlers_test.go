package server

import (
	"net/http"
	"strings"
	"testing"

	"dropview/internal/models"
	"dropview/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralFlow(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	referrer, _ := f.signup(t)

	resp, body := f.doJSON(t, http.MethodGet, "/api/referral/info", nil, referrer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	info := decode[service.ReferralInfo](t, body)
	require.Len(t, info.ReferralCode, 8)
	assert.Equal(t, "http://localhost:5173/signup?ref="+info.ReferralCode, info.ReferralLink)
	assert.Zero(t, info.ReferralsCount)

	// Validation is public so the signup form can check a code before an account exists.
	resp, body = f.doJSON(t, http.MethodGet, "/api/referral/validate/"+strings.ToLower(info.ReferralCode), nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	valid := decode[service.ReferralValidation](t, body)
	assert.True(t, valid.Valid)
	assert.Equal(t, info.UserName, valid.ReferrerName)

	resp, body = f.doJSON(t, http.MethodGet, "/api/referral/validate/ZZZZZZZZ", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Invalid referral code", decode[models.ErrorResponse](t, body).Error)

	for range 2 {
		f.signup(t, func(p map[string]any) { p["referral_code"] = info.ReferralCode })
	}

	resp, body = f.doJSON(t, http.MethodPost, "/api/auth/user/signup", func() map[string]any {
		p := signupPayload()
		p["referral_code"] = "NOPE1234"
		return p
	}(), "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid referral code", decode[models.ErrorResponse](t, body).Error)

	resp, body = f.doJSON(t, http.MethodGet, "/api/referral/info", nil, referrer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[service.ReferralInfo](t, body).ReferralsCount)

	resp, body = f.doJSON(t, http.MethodGet, "/api/referral/leaderboard", nil, referrer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	board := decode[LeaderboardResponse](t, body)
	require.NotEmpty(t, board.Leaderboard)
	assert.Equal(t, models.LeaderboardEntry{
		Name:           info.UserName,
		ReferralsCount: 2,
		ReferralCode:   info.ReferralCode,
	}, board.Leaderboard[0])

	resp, body = f.doJSON(t, http.MethodGet, "/api/referral/leaderboard?limit=1", nil, referrer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[LeaderboardResponse](t, body).Leaderboard, 1)
}
