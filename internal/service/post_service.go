package service

import (
	"context"
	"log/slog"
	"mime/multipart"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// CoverStore persists and removes post cover files.
type CoverStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(cover string) error
}

// EventPublisher broadcasts post changes to live feed subscribers.
type EventPublisher interface {
	PublishPostEvent(ctx context.Context, event models.PostEvent) error
}

type PostService struct {
	postRepo repository.PostRepository
	covers   CoverStore
	events   EventPublisher
	pageSize int
}

type CreatePostInput struct {
	AuthorID uint
	Title    string
	Summary  string
	Content  string
	Cover    *multipart.FileHeader
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   string
	Summary string
	Content string
	// Cover is optional; when nil the existing cover is kept.
	Cover *multipart.FileHeader
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

// NewPostService creates a PostService. events may be nil.
func NewPostService(postRepo repository.PostRepository, covers CoverStore, events EventPublisher, pageSize int) *PostService {
	return &PostService{
		postRepo: postRepo,
		covers:   covers,
		events:   events,
		pageSize: pageSize,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost", observability.UserID(in.AuthorID))
	defer func() { observability.EndSpan(span, err) }()

	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("Valid session required")
	}
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidatePostFields(title, in.Summary, in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Cover == nil {
		return nil, models.NewValidationError("Cover file is required")
	}

	cover, err := s.covers.Save(in.Cover)
	if err != nil {
		return nil, err
	}

	post = &models.Post{
		Title:    title,
		Summary:  in.Summary,
		Content:  in.Content,
		Cover:    cover,
		AuthorID: in.AuthorID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		s.removeCover(ctx, cover)
		return nil, err
	}

	observability.PostMutations.WithLabelValues("create").Inc()
	s.publish(ctx, models.PostEventCreated, post)

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return post, nil
	}
	return created, nil
}

// ListPosts returns the most recent posts, newest first.
func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := cache.Aside(ctx, cache.PostsListKey(ctx), &posts, cache.ListTTL, func() error {
		var fetchErr error
		posts, fetchErr = s.postRepo.ListRecent(ctx, s.pageSize)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.UpdatePost",
		observability.PostID(in.PostID), observability.UserID(in.UserID))
	defer func() { observability.EndSpan(span, err) }()

	post, err = s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !post.IsAuthoredBy(in.UserID) {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	title := strings.TrimSpace(in.Title)
	if err := validation.ValidatePostFields(title, in.Summary, in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	previousCover := post.Cover
	newCover := ""
	if in.Cover != nil {
		newCover, err = s.covers.Save(in.Cover)
		if err != nil {
			return nil, err
		}
		post.Cover = newCover
	}

	post.Title = title
	post.Summary = in.Summary
	post.Content = in.Content

	if err := s.postRepo.Update(ctx, post); err != nil {
		if newCover != "" {
			s.removeCover(ctx, newCover)
		}
		return nil, err
	}

	if newCover != "" && previousCover != newCover {
		s.removeCover(ctx, previousCover)
	}

	observability.PostMutations.WithLabelValues("update").Inc()
	s.publish(ctx, models.PostEventUpdated, post)
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.DeletePost",
		observability.PostID(in.PostID), observability.UserID(in.UserID))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if !post.IsAuthoredBy(in.UserID) {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.covers.Remove(post.Cover); err != nil {
		return models.NewInternalError(err)
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}

	observability.PostMutations.WithLabelValues("delete").Inc()
	s.publish(ctx, models.PostEventDeleted, post)
	return nil
}

func (s *PostService) removeCover(ctx context.Context, cover string) {
	if err := s.covers.Remove(cover); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove cover file",
			slog.String("cover", cover), slog.String("error", err.Error()))
	}
}

func (s *PostService) publish(ctx context.Context, eventType string, post *models.Post) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPostEvent(ctx, models.NewPostEvent(eventType, post)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish post event",
			slog.String("type", eventType), slog.Uint64("post_id", uint64(post.ID)), slog.String("error", err.Error()))
	}
}
