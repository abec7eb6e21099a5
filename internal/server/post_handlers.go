package server

import (
	"dropview/internal/models"
	"dropview/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostRequest is the JSON or multipart body for creating and editing posts.
// Absent title/content leave an edited post unchanged.
type PostRequest struct {
	Type    string  `json:"type" form:"type"`
	Title   *string `json:"title" form:"title"`
	Content *string `json:"content" form:"content"`
}

// MessageResponse acknowledges a mutation that returns no entity.
type MessageResponse struct {
	Message string `json:"message"`
}

func (s *Server) parsePostRequest(c *fiber.Ctx) (PostRequest, *service.ImageInput, error) {
	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		return req, nil, models.NewValidationError("Invalid request body")
	}
	img, err := formImage(c)
	if err != nil {
		return req, nil, err
	}
	return req, img, nil
}

// GetPosts handles GET /api/community/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePage(c)
	res, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Page:          page.Page,
		Limit:         page.Limit,
		CurrentUserID: currentUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// CreatePost handles POST /api/community/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	req, img, err := s.parsePostRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	in := service.CreatePostInput{
		UserID: currentUserID(c),
		Type:   req.Type,
		Image:  img,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Content != nil {
		in.Content = *req.Content
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/community/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), postID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/community/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	req, img, err := s.parsePostRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  currentUserID(c),
		PostID:  postID,
		Title:   req.Title,
		Content: req.Content,
		Image:   img,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/community/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), postID, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(MessageResponse{Message: service.PostDeletedMessage})
}

// DeletePostImage handles DELETE /api/community/posts/:id/image
func (s *Server) DeletePostImage(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.DeletePostImage(c.UserContext(), postID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// TogglePostLike handles POST /api/community/posts/:id/like
func (s *Server) TogglePostLike(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	res, err := s.postService.TogglePostLike(c.UserContext(), postID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
