package server

import (
	"revline/internal/middleware"
	"revline/internal/models"
	"revline/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:id
// @Summary User profile
// @Description Profile with followed_users and followers edge lists
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.users.GetProfile(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update profile
// @Description Absent fields are left unchanged. Existing comments keep the username they were written under.
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{username=string,bio=string,profile_image=string} true "Profile fields"
// @Success 200 {object} models.User
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Username     *string `json:"username"`
		Bio          *string `json:"bio"`
		ProfileImage *string `json:"profile_image"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.users.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:       currentUserID(c),
		Username:     req.Username,
		Bio:          req.Bio,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(user)
}

// FollowUser handles POST /api/users/:id/follow
// @Summary Follow a user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string,following=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actorID := currentUserID(c)

	changed, err := s.relationships.Follow(c.UserContext(), actorID, targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if changed {
		var username string
		if claims, ok := c.Locals("claims").(*middleware.TokenClaims); ok {
			username = claims.Username
		}
		s.notifyFollowed(c.UserContext(), actorID, username, targetID)
	}

	return c.JSON(fiber.Map{"message": "Successfully followed user", "following": true})
}

// UnfollowUser handles DELETE /api/users/:id/follow
// @Summary Unfollow a user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string,following=bool}
// @Router /users/{id}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.relationships.Unfollow(c.UserContext(), currentUserID(c), targetID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Successfully unfollowed user", "following": false})
}

// GetFollowers handles GET /api/users/:id/followers
// @Summary Followers of a user
// @Tags users
// @Produce json
// @Param id path int true "ID"
// @Param limit query int false "Max results"
// @Param offset query int false "Offset"
// @Success 200 {array} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, maxPaginationLimit)

	users, err := s.relationships.Followers(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:id/following
// @Summary Users a user follows
// @Tags users
// @Produce json
// @Param id path int true "ID"
// @Param limit query int false "Max results"
// @Param offset query int false "Offset"
// @Success 200 {array} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, maxPaginationLimit)

	users, err := s.relationships.Following(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// GetUserProjects handles GET /api/users/:id/projects
// @Summary A user's projects
// @Description Newest first, at most 100
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.Project
// @Router /users/{id}/projects [get]
func (s *Server) GetUserProjects(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	projects, err := s.projects.ListByUser(c.UserContext(), s.optionalUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(projects)
}

// GetUserEvents handles GET /api/users/:id/events
// @Summary A user's events
// @Description Soonest first
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.Event
// @Router /users/{id}/events [get]
func (s *Server) GetUserEvents(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	events, err := s.events.ListByUser(c.UserContext(), s.optionalUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(events)
}
