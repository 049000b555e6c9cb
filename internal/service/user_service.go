package service

import (
	"context"
	"strings"

	"bbs/internal/media"
	"bbs/internal/middleware"
	"bbs/internal/models"
	"bbs/internal/repository"
	"bbs/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
	images   ImageStore
	cost     int
}

type SignupInput struct {
	Username        string
	Password        string
	PasswordConfirm string
	Nickname        string
	Email           string
	Avatar          *media.Upload
}

type UpdateProfileInput struct {
	UserID    uint
	Email     string
	Nickname  string
	FirstName string
	LastName  string
	Avatar    *media.Upload
}

func NewUserService(userRepo repository.UserRepository, images ImageStore) *UserService {
	return &UserService{userRepo: userRepo, images: images, cost: bcrypt.DefaultCost}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// IsBoardManager reports whether the user may manage boards.
func (s *UserService) IsBoardManager(ctx context.Context, id uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsBoardManager, nil
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	fields := validation.FieldErrors{}
	fields.Check("username", validation.ValidateUsername(in.Username))
	fields.Check("password", validation.ValidatePassword(in.Password))
	if in.Password != in.PasswordConfirm {
		fields.Add("password_confirm", "The two password fields didn't match.")
	}
	fields.Check("nickname", validation.ValidateNickname(in.Nickname))
	if in.Email != "" {
		fields.Check("email", validation.ValidateEmail(in.Email))
	}
	if err := s.checkAvailability(ctx, fields, in.Username, nicknameOrUsername(in.Nickname, in.Username), 0); err != nil {
		return nil, err
	}
	if !fields.Empty() {
		return nil, models.NewFieldValidationError(fields)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashed),
	}
	if in.Nickname != "" {
		user.Nickname = &in.Nickname
	}
	if in.Avatar != nil {
		stored, err := s.saveAvatar(ctx, in.Avatar)
		if err != nil {
			return nil, err
		}
		user.Avatar = stored.Path
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.discardAvatar(ctx, user.Avatar)
		if models.HasCode(err, models.CodeValidation) {
			return nil, models.NewFieldValidationError(map[string]string{"username": "A user with that username already exists."})
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Please enter a correct username and password.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Please enter a correct username and password.")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	fields := validation.FieldErrors{}
	fields.Check("nickname", validation.ValidateNickname(in.Nickname))
	if in.Email != "" {
		fields.Check("email", validation.ValidateEmail(in.Email))
	}
	fields.MaxLen("first_name", in.FirstName, validation.MaxNameLen)
	fields.MaxLen("last_name", in.LastName, validation.MaxNameLen)
	if err := s.checkAvailability(ctx, fields, "", nicknameOrUsername(in.Nickname, user.Username), user.ID); err != nil {
		return nil, err
	}
	if !fields.Empty() {
		return nil, models.NewFieldValidationError(fields)
	}

	user.Email = in.Email
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	nick := nicknameOrUsername(in.Nickname, user.Username)
	user.Nickname = &nick

	previousAvatar := user.Avatar
	if in.Avatar != nil {
		stored, err := s.saveAvatar(ctx, in.Avatar)
		if err != nil {
			return nil, err
		}
		user.Avatar = stored.Path
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if user.Avatar != previousAvatar {
			s.discardAvatar(ctx, user.Avatar)
		}
		return nil, err
	}
	if user.Avatar != previousAvatar {
		s.discardAvatar(ctx, previousAvatar)
	}
	return user, nil
}

// nicknameOrUsername is the nickname stored for a user: the chosen one, or the username.
func nicknameOrUsername(nickname, username string) string {
	if nickname == "" {
		return username
	}
	return nickname
}

// checkAvailability records a field error for a username or nickname held by
// someone other than selfID. Empty values are skipped.
func (s *UserService) checkAvailability(ctx context.Context, fields validation.FieldErrors, username, nickname string, selfID uint) error {
	if username != "" {
		existing, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			fields.Add("username", "A user with that username already exists.")
		}
	}
	if nickname != "" {
		existing, err := s.userRepo.GetByNickname(ctx, nickname)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			fields.Add("nickname", "This nickname is already taken")
		}
	}
	return nil
}

func (s *UserService) saveAvatar(ctx context.Context, upload *media.Upload) (*media.Stored, error) {
	if s.images == nil {
		return nil, models.NewValidationError("Image uploads are not available")
	}
	stored, err := s.images.Save(ctx, media.Avatar, *upload)
	if err != nil {
		return nil, asFieldError("avatar", err)
	}
	return stored, nil
}

func (s *UserService) discardAvatar(ctx context.Context, rel string) {
	if rel == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(rel); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove avatar", "path", rel, "error", err)
	}
}
