package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dropview/internal/cache"
	"dropview/internal/models"
	"dropview/internal/observability"
	"dropview/internal/repository"
	"dropview/internal/storage"

	"github.com/redis/go-redis/v9"
)

// PostDeletedMessage is returned after a post and its thread are removed.
const PostDeletedMessage = "Post deleted successfully"

type PostService struct {
	postRepo  repository.PostRepository
	assets    storage.AssetStore
	images    *storage.ImageProcessor
	namespace string
	rdb       *redis.Client
}

// ImageInput is a raw uploaded image.
type ImageInput struct {
	Filename string
	Data     []byte
}

type CreatePostInput struct {
	UserID  uint
	Type    string
	Title   string
	Content string
	Image   *ImageInput
}

type ListPostsInput struct {
	Page          int
	Limit         int
	CurrentUserID uint
}

// UpdatePostInput carries the fields to change. Nil leaves a field untouched.
type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   *string
	Content *string
	Image   *ImageInput
}

func NewPostService(
	postRepo repository.PostRepository,
	assets storage.AssetStore,
	images *storage.ImageProcessor,
	namespace string,
	rdb *redis.Client,
) *PostService {
	if images == nil {
		images = storage.NewImageProcessor(0, 0, 0)
	}
	return &PostService{
		postRepo:  postRepo,
		assets:    assets,
		images:    images,
		namespace: namespace,
		rdb:       rdb,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "post", "create")
	post, err := s.createPost(ctx, in)
	observability.EndSpan(span, err)
	return post, err
}

func (s *PostService) createPost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	postType := strings.ToLower(strings.TrimSpace(in.Type))
	content := strings.TrimSpace(in.Content)

	var details []string
	if !models.IsValidPostType(postType) {
		details = append(details, "type must be one of: question, experience")
	}
	if content == "" {
		details = append(details, "content is required")
	}
	if len(details) > 0 {
		return nil, models.NewValidationError("type and content are required", details...)
	}

	post := &models.Post{
		UserID:  in.UserID,
		Type:    postType,
		Title:   strings.TrimSpace(in.Title),
		Content: content,
	}

	if in.Image != nil {
		asset, err := s.storeImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = imageFromAsset(asset)
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if !post.Image.IsZero() {
			s.deleteAsset(ctx, post.Image)
		}
		return nil, err
	}

	observability.CommunityEvents.WithLabelValues("post_created").Inc()
	cache.Invalidate(ctx, s.rdb, cache.UserKey(in.UserID))
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

func (s *PostService) GetPost(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, currentUserID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Post not found")
		}
		return nil, err
	}
	return post, nil
}

// ListPosts returns one page of the feed, newest first.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (*models.PostPage, error) {
	page, limit := normalizePage(in.Page, in.Limit, DefaultPostLimit, MaxPostLimit)

	posts, err := s.postRepo.List(ctx, limit, offsetFor(page, limit), in.CurrentUserID)
	if err != nil {
		return nil, err
	}
	total, err := s.postRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return &models.PostPage{Posts: posts, Total: total, Page: page, Limit: limit}, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, in.PostID, in.UserID, "Not authorized to edit this post")
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, models.NewValidationError("content must not be empty")
		}
		post.Content = content
	}

	var replaced models.PostImage
	if in.Image != nil {
		asset, err := s.storeImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		replaced = post.Image
		post.Image = imageFromAsset(asset)
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if in.Image != nil {
			s.deleteAsset(ctx, post.Image)
		}
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Post not found")
		}
		return nil, err
	}
	if !replaced.IsZero() {
		s.deleteAsset(ctx, replaced)
	}

	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// DeletePost removes the post with its comments and likes. The image is deleted after the
// rows are gone; a failed asset delete is logged and does not fail the call.
func (s *PostService) DeletePost(ctx context.Context, postID, userID uint) error {
	ctx, span := observability.StartSpan(ctx, "post", "delete")
	err := s.deletePost(ctx, postID, userID)
	observability.EndSpan(span, err)
	return err
}

func (s *PostService) deletePost(ctx context.Context, postID, userID uint) error {
	post, err := s.ownedPost(ctx, postID, userID, "Not authorized to delete this post")
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Post not found")
		}
		return err
	}
	observability.CommunityEvents.WithLabelValues("post_deleted").Inc()

	if !post.Image.IsZero() {
		s.deleteAsset(ctx, post.Image)
	}
	return nil
}

// DeletePostImage detaches the image from the post. The row is cleared even when the asset
// store refuses the delete.
func (s *PostService) DeletePostImage(ctx context.Context, postID, userID uint) (*models.Post, error) {
	post, err := s.ownedPost(ctx, postID, userID, "Not authorized to edit this post")
	if err != nil {
		return nil, err
	}
	if post.Image.IsZero() {
		return nil, models.NewBadRequestError("Post has no image")
	}

	s.deleteAsset(ctx, post.Image)
	if err := s.postRepo.ClearImage(ctx, post.ID); err != nil {
		return nil, err
	}
	post.Image = models.PostImage{}
	return post, nil
}

func (s *PostService) TogglePostLike(ctx context.Context, postID, userID uint) (models.LikeResult, error) {
	if _, err := s.GetPost(ctx, postID, userID); err != nil {
		return models.LikeResult{}, err
	}
	res, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return models.LikeResult{}, err
	}
	observability.CommunityEvents.WithLabelValues(likeEvent("post", res.Liked)).Inc()
	return res, nil
}

func (s *PostService) ownedPost(ctx context.Context, postID, userID uint, forbidden string) (*models.Post, error) {
	post, err := s.GetPost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError(forbidden)
	}
	return post, nil
}

func (s *PostService) storeImage(ctx context.Context, img *ImageInput) (*storage.Asset, error) {
	upload, err := s.images.Process(img.Filename, img.Data)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) ||
			errors.Is(err, storage.ErrImageTooLarge) ||
			errors.Is(err, storage.ErrEmptyImage) {
			return nil, models.NewValidationError("Invalid image", err.Error())
		}
		return nil, fmt.Errorf("process image: %w", err)
	}
	if s.assets == nil {
		return nil, fmt.Errorf("store image: %w", storage.ErrUnavailable)
	}
	asset, err := s.assets.Put(ctx, upload)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	return asset, nil
}

// deleteAsset removes a stored image, logging failures.
func (s *PostService) deleteAsset(ctx context.Context, img models.PostImage) {
	if s.assets == nil {
		return
	}
	publicID := strings.TrimSpace(img.PublicID)
	if publicID == "" {
		publicID = storage.PublicIDFromFilename(s.namespace, img.Filename)
	}
	if publicID == "" {
		return
	}
	if err := s.assets.Delete(ctx, publicID); err != nil {
		serviceLogger("post").WarnContext(ctx, "asset delete failed",
			slog.String("public_id", publicID), slog.String("error", err.Error()))
	}
}

func imageFromAsset(a *storage.Asset) models.PostImage {
	return models.PostImage{Filename: a.Filename, Path: a.URL, PublicID: a.PublicID}
}

func likeEvent(target string, liked bool) string {
	if liked {
		return target + "_liked"
	}
	return target + "_unliked"
}
