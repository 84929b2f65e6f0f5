package service

import (
	"context"
	"strings"

	"harfzaar/internal/models"
	"harfzaar/internal/repository"
	"harfzaar/internal/validation"
)

// NewsInput is a news post. Image is optional.
type NewsInput struct {
	Author      models.NewsAuthor
	Description string
	Content     string
	Image       *UploadInput
}

// NewsService manages community news and the feedback form.
type NewsService struct {
	news     repository.NewsRepository
	feedback repository.FeedbackRepository
	uploader *Uploader
}

// NewNewsService returns a NewsService.
func NewNewsService(news repository.NewsRepository, feedback repository.FeedbackRepository, uploader *Uploader) *NewsService {
	return &NewsService{news: news, feedback: feedback, uploader: uploader}
}

// Create posts a news item, storing its image first when present.
func (s *NewsService) Create(ctx context.Context, in NewsInput) (*models.News, error) {
	if validation.Required(
		validation.Field{Name: "description", Value: in.Description},
		validation.Field{Name: "content", Value: in.Content},
	) != "" {
		return nil, models.NewValidationError("All fields are required")
	}

	n := &models.News{
		Description: strings.TrimSpace(in.Description),
		Content:     in.Content,
		CreatedBy:   in.Author,
	}

	var key string
	if in.Image != nil && len(in.Image.Data) > 0 {
		img := *in.Image
		img.Policy = NewsImagePolicy
		res, err := s.uploader.Store(ctx, img)
		if err != nil {
			return nil, err
		}
		n.Image, key = res.URL, res.Key
	}

	if err := s.news.Create(ctx, n); err != nil {
		s.uploader.Remove(ctx, key)
		return nil, err
	}
	return n, nil
}

// List returns news newest first.
func (s *NewsService) List(ctx context.Context) ([]models.News, error) {
	list, err := s.news.ListRecent(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.News{}
	}
	return list, nil
}

// SubmitFeedback stores a contact-form message.
func (s *NewsService) SubmitFeedback(ctx context.Context, name, email, message string) (*models.Feedback, error) {
	if validation.Required(
		validation.Field{Name: "name", Value: name},
		validation.Field{Name: "email", Value: email},
		validation.Field{Name: "message", Value: message},
	) != "" {
		return nil, models.NewValidationError("All fields are required")
	}
	email = strings.TrimSpace(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	f := &models.Feedback{Name: strings.TrimSpace(name), Email: email, Message: strings.TrimSpace(message)}
	if err := s.feedback.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}
