package app

import (
	"context"
	"fmt"

	"roomledger/internal/domain"
)

// SuggestionService fronts the image-suggestion model. Single shot, stateless:
// a failure leaves whatever image the listing already has untouched.
type SuggestionService struct {
	suggester domain.Suggester
}

func NewSuggestionService(s domain.Suggester) *SuggestionService {
	return &SuggestionService{suggester: s}
}

func (s *SuggestionService) SuggestImage(ctx context.Context, req domain.SuggestionRequest) (domain.Suggestion, error) {
	if s.suggester == nil {
		return domain.Suggestion{}, fmt.Errorf("image suggestions are not configured")
	}
	if req.HotelName == "" || req.RoomType == "" {
		return domain.Suggestion{}, fmt.Errorf("%w: hotel_name and room_type are required", domain.ErrBadInput)
	}
	sug, err := s.suggester.SuggestImage(ctx, req)
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("suggest image: %w", err)
	}
	// The hash goes on-chain later; reject anything that won't survive the
	// hex round trip now.
	if _, err := DecodeImageHash(sug.ImageHash); err != nil {
		return domain.Suggestion{}, fmt.Errorf("suggest image: %w", err)
	}
	return sug, nil
}
