package server

import (
	"revline/internal/models"

	"github.com/gofiber/fiber/v2"
)

// DiscoverUsers handles GET /api/discover/users
// @Summary Suggested users
// @Description Ranked by projects + events + followers. Excludes the caller and anyone they follow.
// @Tags discover
// @Produce json
// @Param limit query int false "Max results (default 20)"
// @Success 200 {array} models.DiscoveredUser
// @Router /discover/users [get]
func (s *Server) DiscoverUsers(c *fiber.Ctx) error {
	users, err := s.discovery.DiscoverUsers(c.UserContext(), s.optionalUserID(c), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// DiscoverEvents handles GET /api/discover/events
// @Summary Popular upcoming events
// @Tags discover
// @Produce json
// @Param limit query int false "Max results (default 20)"
// @Success 200 {array} models.RankedEvent
// @Router /discover/events [get]
func (s *Server) DiscoverEvents(c *fiber.Ctx) error {
	events, err := s.discovery.DiscoverEvents(c.UserContext(), s.optionalUserID(c), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(events)
}

// DiscoverProjects handles GET /api/discover/projects
// @Summary Trending projects
// @Description Ordered by likes then comments, ties newest first
// @Tags discover
// @Produce json
// @Param limit query int false "Max results (default 20)"
// @Success 200 {array} models.Project
// @Router /discover/projects [get]
func (s *Server) DiscoverProjects(c *fiber.Ctx) error {
	projects, err := s.discovery.TrendingProjects(c.UserContext(), s.optionalUserID(c), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(projects)
}

// Search handles GET /api/search?q=
// @Summary Universal search
// @Description Queries shorter than two characters return empty sets.
// @Tags search
// @Produce json
// @Param q query string true "Query"
// @Success 200 {object} models.SearchResults
// @Router /search [get]
func (s *Server) Search(c *fiber.Ctx) error {
	results, err := s.discovery.Search(c.UserContext(), s.optionalUserID(c), c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(results)
}

// SearchUsers handles GET /api/search/users?q=
// @Summary Search users
// @Tags search
// @Produce json
// @Param q query string true "Query"
// @Success 200 {array} models.UserSearchHit
// @Router /search/users [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.discovery.SearchUsers(c.UserContext(), c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// SearchEvents handles GET /api/search/events?q=
// @Summary Search upcoming events
// @Tags search
// @Produce json
// @Param q query string true "Query"
// @Success 200 {array} models.Event
// @Router /search/events [get]
func (s *Server) SearchEvents(c *fiber.Ctx) error {
	events, err := s.discovery.SearchEvents(c.UserContext(), s.optionalUserID(c), c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(events)
}
