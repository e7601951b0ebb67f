package service

import (
	"context"
	"strings"

	"revline/internal/models"
	"revline/internal/repository"
	"revline/internal/validation"

	"gorm.io/datatypes"
)

const maxUserProjects = 100

type ProjectService struct {
	projectRepo repository.ProjectRepository
	clock       Clock
}

type CreateProjectInput struct {
	UserID        uint
	Title         string
	CarMake       string
	CarModel      string
	CarYear       int
	Description   string
	Modifications []string
	Images        []string
	PartsList     []string
	BuildCost     *float64
}

// UpdateProjectInput carries optional fields; nil means unchanged.
type UpdateProjectInput struct {
	UserID        uint
	ProjectID     uint
	Title         *string
	CarMake       *string
	CarModel      *string
	CarYear       *int
	Description   *string
	Modifications *[]string
	Images        *[]string
	PartsList     *[]string
	BuildCost     *float64
}

func NewProjectService(projectRepo repository.ProjectRepository, clock Clock) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, clock: clock}
}

func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*models.Project, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	if err := validation.ValidateTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if strings.TrimSpace(in.CarMake) == "" || strings.TrimSpace(in.CarModel) == "" {
		return nil, models.NewValidationError("car_make and car_model are required")
	}
	if err := validation.ValidateCarYear(in.CarYear, s.clock.now()); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURLs(in.Images); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.BuildCost != nil && *in.BuildCost < 0 {
		return nil, models.NewValidationError("build_cost must not be negative")
	}

	project := &models.Project{
		UserID:        in.UserID,
		Title:         strings.TrimSpace(in.Title),
		CarMake:       strings.TrimSpace(in.CarMake),
		CarModel:      strings.TrimSpace(in.CarModel),
		CarYear:       in.CarYear,
		Description:   in.Description,
		Modifications: jsonList(in.Modifications),
		Images:        jsonList(in.Images),
		PartsList:     jsonList(in.PartsList),
		BuildCost:     in.BuildCost,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}
	return s.projectRepo.GetByID(ctx, project.ID, in.UserID)
}

func (s *ProjectService) Get(ctx context.Context, viewerID, projectID uint) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, projectID, viewerID)
}

// Update applies the provided fields. Only the owner may edit a project.
func (s *ProjectService) Update(ctx context.Context, in UpdateProjectInput) (*models.Project, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	project, err := s.projectRepo.GetByID(ctx, in.ProjectID, in.UserID)
	if err != nil {
		return nil, err
	}
	if !project.IsOwnedBy(in.UserID) {
		return nil, models.NewUnauthorizedError("Not authorized to update this project")
	}

	fields := map[string]any{}
	if in.Title != nil {
		if err := validation.ValidateTitle(*in.Title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.CarMake != nil {
		if strings.TrimSpace(*in.CarMake) == "" {
			return nil, models.NewValidationError("car_make cannot be empty")
		}
		fields["car_make"] = strings.TrimSpace(*in.CarMake)
	}
	if in.CarModel != nil {
		if strings.TrimSpace(*in.CarModel) == "" {
			return nil, models.NewValidationError("car_model cannot be empty")
		}
		fields["car_model"] = strings.TrimSpace(*in.CarModel)
	}
	if in.CarYear != nil {
		if err := validation.ValidateCarYear(*in.CarYear, s.clock.now()); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["car_year"] = *in.CarYear
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Modifications != nil {
		fields["modifications"] = jsonList(*in.Modifications)
	}
	if in.Images != nil {
		if err := validation.ValidateImageURLs(*in.Images); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["images"] = jsonList(*in.Images)
	}
	if in.PartsList != nil {
		fields["parts_list"] = jsonList(*in.PartsList)
	}
	if in.BuildCost != nil {
		if *in.BuildCost < 0 {
			return nil, models.NewValidationError("build_cost must not be negative")
		}
		fields["build_cost"] = *in.BuildCost
	}

	if err := s.projectRepo.Update(ctx, in.ProjectID, fields); err != nil {
		return nil, err
	}
	return s.projectRepo.GetByID(ctx, in.ProjectID, in.UserID)
}

// ListByUser returns the user's projects, newest first.
func (s *ProjectService) ListByUser(ctx context.Context, viewerID, userID uint) ([]*models.Project, error) {
	return s.projectRepo.ListByUser(ctx, userID, maxUserProjects, viewerID)
}

// jsonList normalizes a nil slice to an empty one so it stores and serializes as [].
func jsonList(items []string) datatypes.JSONSlice[string] {
	if items == nil {
		return datatypes.JSONSlice[string]{}
	}
	return datatypes.JSONSlice[string](items)
}
