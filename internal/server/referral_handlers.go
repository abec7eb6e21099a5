package server

import (
	"dropview/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LeaderboardResponse wraps the top referrers.
type LeaderboardResponse struct {
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
}

// GetReferralInfo handles GET /api/referral/info
func (s *Server) GetReferralInfo(c *fiber.Ctx) error {
	info, err := s.referralService.Info(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(info)
}

// ValidateReferral handles GET /api/referral/validate/:code
func (s *Server) ValidateReferral(c *fiber.Ctx) error {
	res, err := s.referralService.Validate(c.UserContext(), c.Params("code"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetLeaderboard handles GET /api/referral/leaderboard?limit=n
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	entries, err := s.referralService.Leaderboard(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(LeaderboardResponse{Leaderboard: entries})
}
