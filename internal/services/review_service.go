package services

import (
	"context"

	"threadline/internal/domain"
	"threadline/internal/repos"
)

type ReviewService struct {
	Reviews *repos.ReviewRepo
	Catalog Catalog
}

func NewReviewService(reviews *repos.ReviewRepo, c Catalog) *ReviewService {
	return &ReviewService{Reviews: reviews, Catalog: c}
}

func (s *ReviewService) Create(ctx context.Context, u *domain.User, productID string, rating int, body string) (domain.Review, error) {
	if u == nil {
		return domain.Review{}, ErrForbidden
	}
	if rating < 1 || rating > 5 || body == "" {
		return domain.Review{}, ErrInvalidInput
	}
	p, err := s.Catalog.Get(ctx, productID)
	if err != nil {
		return domain.Review{}, err
	}
	if !p.Published {
		return domain.Review{}, domain.ErrNotFound
	}
	rv := domain.Review{ProductID: productID, UserID: u.ID, UserName: u.Name, Rating: rating, Body: body}
	if err := s.Reviews.Create(ctx, &rv); err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

// Delete removes a review; only its author or an admin may do so.
func (s *ReviewService) Delete(ctx context.Context, u *domain.User, reviewID string) (domain.Review, error) {
	rv, err := s.Reviews.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if u == nil || (rv.UserID != u.ID && !u.IsAdmin()) {
		return domain.Review{}, ErrForbidden
	}
	return rv, s.Reviews.Delete(ctx, reviewID)
}

// Update lets the author change the rating and text of their own review.
func (s *ReviewService) Update(ctx context.Context, u *domain.User, reviewID string, rating int, body string) (domain.Review, error) {
	rv, err := s.Reviews.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if u == nil || rv.UserID != u.ID {
		return rv, ErrForbidden
	}
	if rating < 1 || rating > 5 || body == "" {
		return rv, ErrInvalidInput
	}
	if err := s.Reviews.Update(ctx, reviewID, rating, body); err != nil {
		return rv, err
	}
	rv.Rating, rv.Body = rating, body
	return rv, nil
}

// Editable returns a review for its author's edit form.
func (s *ReviewService) Editable(ctx context.Context, u *domain.User, reviewID string) (domain.Review, error) {
	rv, err := s.Reviews.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if u == nil || rv.UserID != u.ID {
		return rv, ErrForbidden
	}
	return rv, nil
}
