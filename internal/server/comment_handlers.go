package server

import (
	"revline/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/comments
// @Summary Comment on a project
// @Description The comment stores the author's username as it is now.
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{project_id=int,content=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		ProjectID uint   `json:"project_id"`
		Content   string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.ProjectID == 0 {
		return models.RespondWithAppError(c, models.NewValidationError("project_id is required"))
	}

	comment, err := s.engagement.AddComment(c.UserContext(), currentUserID(c), req.ProjectID, req.Content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.notifyCommentCreated(c.UserContext(), comment)

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetProjectComments handles GET /api/projects/:id/comments
// @Summary List comments
// @Description Oldest first
// @Tags comments
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id}/comments [get]
func (s *Server) GetProjectComments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comments, err := s.engagement.ListComments(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comments)
}

// likeResponse keeps the boolean form clients already use next to the explicit state.
type likeResponse struct {
	Liked      bool             `json:"liked"`
	State      models.LikeState `json:"state"`
	LikesCount int              `json:"likes_count"`
	Message    string           `json:"message"`
}

// ToggleLike handles POST /api/likes
// @Summary Toggle a like
// @Description Likes the project if the caller has not, unlikes it otherwise.
// @Tags likes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{project_id=int} true "Project"
// @Success 200 {object} likeResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /likes [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req struct {
		ProjectID uint `json:"project_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.ProjectID == 0 {
		return models.RespondWithAppError(c, models.NewValidationError("project_id is required"))
	}
	actorID := currentUserID(c)

	result, err := s.engagement.ToggleLike(c.UserContext(), actorID, req.ProjectID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.notifyProjectLiked(c.UserContext(), actorID, req.ProjectID, result)

	message := "Project unliked"
	if result.Liked() {
		message = "Project liked"
	}
	return c.JSON(likeResponse{
		Liked:      result.Liked(),
		State:      result.State,
		LikesCount: result.LikesCount,
		Message:    message,
	})
}
