package server

import (
	"revline/internal/models"
	"revline/internal/service"

	"github.com/gofiber/fiber/v2"
)

type projectRequest struct {
	Title         *string   `json:"title"`
	CarMake       *string   `json:"car_make"`
	CarModel      *string   `json:"car_model"`
	CarYear       *int      `json:"car_year"`
	Description   *string   `json:"description"`
	Modifications *[]string `json:"modifications"`
	Images        *[]string `json:"images"`
	PartsList     *[]string `json:"parts_list"`
	BuildCost     *float64  `json:"build_cost"`
}

// GetFeed handles GET /api/projects
// @Summary Project feed
// @Description Projects by the caller and the users they follow, newest first. Anonymous callers get the global feed.
// @Tags projects
// @Produce json
// @Param limit query int false "Max results (default 50, max 100)"
// @Success 200 {array} models.Project
// @Router /projects [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	viewerID := s.optionalUserID(c)

	projects, err := s.relationships.Feed(c.UserContext(), viewerID, c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(projects)
}

// CreateProject handles POST /api/projects
// @Summary Create a project
// @Tags projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body projectRequest true "Project"
// @Success 201 {object} models.Project
// @Failure 400 {object} models.ErrorResponse
// @Router /projects [post]
func (s *Server) CreateProject(c *fiber.Ctx) error {
	var req projectRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	project, err := s.projects.Create(c.UserContext(), service.CreateProjectInput{
		UserID:        currentUserID(c),
		Title:         deref(req.Title),
		CarMake:       deref(req.CarMake),
		CarModel:      deref(req.CarModel),
		CarYear:       deref(req.CarYear),
		Description:   deref(req.Description),
		Modifications: deref(req.Modifications),
		Images:        deref(req.Images),
		PartsList:     deref(req.PartsList),
		BuildCost:     req.BuildCost,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetProject handles GET /api/projects/:id
// @Summary Get a project
// @Tags projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id} [get]
func (s *Server) GetProject(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	project, err := s.projects.Get(c.UserContext(), s.optionalUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(project)
}

// UpdateProject handles PUT /api/projects/:id
// @Summary Update a project
// @Description Owner only. Counters cannot be written here.
// @Tags projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param request body projectRequest true "Fields to change"
// @Success 200 {object} models.Project
// @Failure 403 {object} models.ErrorResponse
// @Router /projects/{id} [put]
func (s *Server) UpdateProject(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req projectRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	project, err := s.projects.Update(c.UserContext(), service.UpdateProjectInput{
		UserID:        currentUserID(c),
		ProjectID:     id,
		Title:         req.Title,
		CarMake:       req.CarMake,
		CarModel:      req.CarModel,
		CarYear:       req.CarYear,
		Description:   req.Description,
		Modifications: req.Modifications,
		Images:        req.Images,
		PartsList:     req.PartsList,
		BuildCost:     req.BuildCost,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(project)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
