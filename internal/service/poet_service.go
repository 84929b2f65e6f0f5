package service

import (
	"context"
	"errors"
	"strings"

	"harfzaar/internal/cache"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"
	"harfzaar/internal/repository"
	"harfzaar/internal/storage"
	"harfzaar/internal/validation"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PoetSubmission is the become-a-poet form. Image is a data URL.
type PoetSubmission struct {
	UserID        bson.ObjectID
	PoetName      string
	PoetryDomain  string
	PoetryTitle   string
	PoetryContent string
	Genre         string
	Biography     string
	Couplet       string
	Image         string
}

func (in PoetSubmission) missingField() string {
	return validation.Required(
		validation.Field{Name: "poetName", Value: in.PoetName},
		validation.Field{Name: "poetryDomain", Value: in.PoetryDomain},
		validation.Field{Name: "poetryTitle", Value: in.PoetryTitle},
		validation.Field{Name: "poetryContent", Value: in.PoetryContent},
		validation.Field{Name: "genre", Value: in.Genre},
		validation.Field{Name: "biography", Value: in.Biography},
		validation.Field{Name: "couplet", Value: in.Couplet},
		validation.Field{Name: "image", Value: in.Image},
	)
}

// PoetProfile is a poet with their ghazals resolved.
type PoetProfile struct {
	models.Poet
	Poetry []models.Ghazal `json:"poetry"`
}

// PoetService handles poet submissions and promotion.
type PoetService struct {
	poets    repository.PoetRepository
	pending  repository.PendingPoetRepository
	ghazals  repository.GhazalRepository
	users    repository.UserRepository
	uploader *Uploader
}

// NewPoetService returns a PoetService.
func NewPoetService(
	poets repository.PoetRepository,
	pending repository.PendingPoetRepository,
	ghazals repository.GhazalRepository,
	users repository.UserRepository,
	uploader *Uploader,
) *PoetService {
	return &PoetService{poets: poets, pending: pending, ghazals: ghazals, users: users, uploader: uploader}
}

// storePortrait decodes, normalises and stores a data-URL image.
func (s *PoetService) storePortrait(ctx context.Context, dataURL string) (UploadResult, error) {
	raw, _, err := storage.DecodeDataURL(dataURL)
	if err != nil {
		return UploadResult{}, models.NewValidationError("Invalid image format")
	}
	webp, err := storage.NormalizeImage(raw, storage.PortraitMaxSize)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			return UploadResult{}, models.NewValidationError("Invalid image format")
		}
		return UploadResult{}, models.NewInternalError(err)
	}
	return s.uploader.Store(ctx, UploadInput{
		Filename:    "portrait.webp",
		ContentType: "image/webp",
		Data:        webp,
		Policy:      PortraitPolicy,
	})
}

// BecomePoet queues a submission for review.
func (s *PoetService) BecomePoet(ctx context.Context, in PoetSubmission) (pending *models.PendingPoet, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PoetService", "BecomePoet")
	defer func() { observability.EndSpan(span, err) }()

	if in.missingField() != "" {
		return nil, models.NewValidationError("All fields are required.")
	}

	img, err := s.storePortrait(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	pending = &models.PendingPoet{
		PoetName:      strings.TrimSpace(in.PoetName),
		PoetryDomain:  in.PoetryDomain,
		PoetryTitle:   in.PoetryTitle,
		PoetryContent: in.PoetryContent,
		Genre:         in.Genre,
		Biography:     in.Biography,
		Couplet:       in.Couplet,
		Image:         img.URL,
		UserID:        in.UserID,
	}
	if err := s.pending.Create(ctx, pending); err != nil {
		s.uploader.Remove(ctx, img.Key)
		return nil, err
	}
	return pending, nil
}

// Submit promotes the user to poet: it stores the portrait, the first ghazal
// and the poet profile, then updates the user's role. Work done before a
// failure is undone.
func (s *PoetService) Submit(ctx context.Context, in PoetSubmission) (poet *models.Poet, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PoetService", "Submit")
	defer func() { observability.EndSpan(span, err) }()

	if in.missingField() != "" {
		return nil, models.NewValidationError("All fields are required")
	}
	name := strings.TrimSpace(in.PoetName)

	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RolePoet {
		return nil, models.NewValidationError("User is already a poet")
	}

	img, err := s.storePortrait(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	var ghazal *models.Ghazal
	defer func() {
		if err == nil {
			return
		}
		if ghazal != nil {
			if delErr := s.ghazals.Delete(context.WithoutCancel(ctx), ghazal.ID); delErr != nil {
				observability.LogAsyncOperationError(ctx, "poet_submit_rollback", delErr, map[string]any{"ghazal_id": ghazal.ID.Hex()})
			}
		}
		s.uploader.Remove(context.WithoutCancel(ctx), img.Key)
	}()

	exists, err := s.poets.ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError("A poet with this name already exists")
	}

	ghazal = &models.Ghazal{
		PoetName:      name,
		PoetryDomain:  in.PoetryDomain,
		PoetryTitle:   in.PoetryTitle,
		PoetryContent: in.PoetryContent,
		Genre:         in.Genre,
	}
	if err = s.ghazals.Create(ctx, ghazal); err != nil {
		ghazal = nil
		return nil, err
	}

	poet = &models.Poet{
		Name:      name,
		Image:     img.URL,
		Biography: in.Biography,
		Couplet:   in.Couplet,
		Ghazals:   []bson.ObjectID{ghazal.ID},
	}
	if err = s.poets.Create(ctx, poet); err != nil {
		return nil, err
	}

	if err = s.users.SetRole(ctx, in.UserID, models.RolePoet); err != nil {
		if delErr := s.poets.Delete(context.WithoutCancel(ctx), poet.ID); delErr != nil {
			observability.LogAsyncOperationError(ctx, "poet_submit_rollback", delErr, map[string]any{"poet_id": poet.ID.Hex()})
		}
		return nil, err
	}

	cache.InvalidateGhazalFacets(ctx)
	return poet, nil
}

// Profile returns a poet with their ghazals.
func (s *PoetService) Profile(ctx context.Context, name string) (*PoetProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Poet name is required")
	}
	poet, err := s.poets.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	poetry, err := s.ghazals.GetByIDs(ctx, poet.Ghazals)
	if err != nil {
		return nil, err
	}
	return &PoetProfile{Poet: *poet, Poetry: orderByIDs(poetry, poet.Ghazals)}, nil
}
