package service

import (
	"context"
	"strings"

	"dropview/internal/featureflags"
	"dropview/internal/models"
	"dropview/internal/observability"
	"dropview/internal/repository"
)

// CommentDeletedMessage is returned after a comment is removed.
const CommentDeletedMessage = "Comment deleted successfully"

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	flags       *featureflags.Manager
}

type CreateCommentInput struct {
	UserID          uint
	PostID          uint
	Content         string
	ParentCommentID *uint
}

type ListCommentsInput struct {
	PostID        uint
	Page          int
	Limit         int
	CurrentUserID uint
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	flags *featureflags.Manager,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		flags:       flags,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("content is required")
	}
	if err := s.ensurePost(ctx, in.PostID, in.UserID); err != nil {
		return nil, err
	}

	if in.ParentCommentID != nil && *in.ParentCommentID != 0 {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentCommentID, 0)
		if err != nil {
			if isNotFound(err) {
				return nil, models.NewBadRequestError("parentComment invalid")
			}
			return nil, err
		}
		if s.flags.Enabled(featureflags.StrictCommentThreads, in.UserID) &&
			(parent.PostID != in.PostID || parent.ParentCommentID != nil) {
			return nil, models.NewBadRequestError("parentComment invalid")
		}
	} else {
		in.ParentCommentID = nil
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		UserID:          in.UserID,
		Content:         content,
		ParentCommentID: in.ParentCommentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommunityEvents.WithLabelValues("comment_created").Inc()
	return s.commentRepo.GetByID(ctx, comment.ID, in.UserID)
}

// ListComments returns one page of a post's thread, oldest first.
// ListComments does not check that the post exists; an unknown post yields an empty page.
func (s *CommentService) ListComments(ctx context.Context, in ListCommentsInput) (*models.CommentPage, error) {
	page, limit := normalizePage(in.Page, in.Limit, DefaultCommentLimit, MaxCommentLimit)

	comments, err := s.commentRepo.ListByPost(ctx, in.PostID, limit, offsetFor(page, limit), in.CurrentUserID)
	if err != nil {
		return nil, err
	}
	total, err := s.commentRepo.CountByPost(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return &models.CommentPage{Comments: comments, Total: total, Page: page, Limit: limit}, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.ownedComment(ctx, in.CommentID, in.UserID, "Not authorized to edit this comment")
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("content is required")
	}

	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID, in.UserID)
}

func (s *CommentService) DeleteComment(ctx context.Context, commentID, userID uint) error {
	comment, err := s.ownedComment(ctx, commentID, userID, "Not authorized to delete this comment")
	if err != nil {
		return err
	}
	if err := s.commentRepo.Delete(ctx, comment); err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Comment not found")
		}
		return err
	}
	observability.CommunityEvents.WithLabelValues("comment_deleted").Inc()
	return nil
}

func (s *CommentService) ToggleCommentLike(ctx context.Context, commentID, userID uint) (models.LikeResult, error) {
	if _, err := s.getComment(ctx, commentID, userID); err != nil {
		return models.LikeResult{}, err
	}
	res, err := s.commentRepo.ToggleLike(ctx, commentID, userID)
	if err != nil {
		return models.LikeResult{}, err
	}
	observability.CommunityEvents.WithLabelValues(likeEvent("comment", res.Liked)).Inc()
	return res, nil
}

func (s *CommentService) ensurePost(ctx context.Context, postID, userID uint) error {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Post not found")
		}
		return err
	}
	return nil
}

func (s *CommentService) getComment(ctx context.Context, commentID, userID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Comment not found")
		}
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) ownedComment(ctx context.Context, commentID, userID uint, forbidden string) (*models.Comment, error) {
	comment, err := s.getComment(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, models.NewForbiddenError(forbidden)
	}
	return comment, nil
}
