package service

import (
	"context"
	"strings"

	"revline/internal/models"
	"revline/internal/repository"
	"revline/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const maxBioLen = 500

type UserService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	hashCost   int
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateProfileInput carries optional fields; nil means unchanged.
type UpdateProfileInput struct {
	UserID       uint
	Username     *string
	Bio          *string
	ProfileImage *string
}

func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *UserService {
	return &UserService{userRepo: userRepo, followRepo: followRepo, hashCost: bcrypt.DefaultCost}
}

// Register validates the input, rejects a taken username and then a taken
// email, and stores the user with a bcrypt hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Username already registered", nil)
	}
	existing, err = s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email already registered", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:      in.Username,
		Email:         in.Email,
		Password:      string(hashed),
		FollowedUsers: []uint{},
		Followers:     []uint{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials by username. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	return user, s.attachEdges(ctx, user)
}

// GetProfile returns the user with both edge-list accessors filled.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachEdges(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies the provided fields. Renaming does not touch the
// username snapshots stored on existing comments.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	fields := map[string]any{}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != in.UserID {
			return nil, models.NewConflictError("Username already registered", nil)
		}
		fields["username"] = username
	}
	if in.Bio != nil {
		if len([]rune(*in.Bio)) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		fields["bio"] = *in.Bio
	}
	if in.ProfileImage != nil {
		if *in.ProfileImage != "" {
			if err := validation.ValidateImageURL(*in.ProfileImage); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
		}
		fields["profile_image"] = *in.ProfileImage
	}

	if err := s.userRepo.UpdateProfile(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, in.UserID)
}

func (s *UserService) attachEdges(ctx context.Context, user *models.User) error {
	followed, err := s.followRepo.FollowedIDs(ctx, user.ID)
	if err != nil {
		return err
	}
	followers, err := s.followRepo.FollowerIDs(ctx, user.ID)
	if err != nil {
		return err
	}
	user.FollowedUsers = followed
	user.Followers = followers
	return nil
}
