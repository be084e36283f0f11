package service

import (
	"context"
	"sort"

	"ai-recorder-be/internal/dto"
	"ai-recorder-be/internal/repository/memory"
	"ai-recorder-be/pkg/search"

	"github.com/google/uuid"
)

type ISearchService interface {
	Search(ctx context.Context, userId uuid.UUID, query string) (*dto.SearchSessionsResponse, error)
	BestMatch(ctx context.Context, userId uuid.UUID, query string) (*dto.BestMatchResponse, error)
}

type searchService struct {
	sessions *memory.SessionCollection
	ranker   *search.Ranker
}

func NewSearchService(sessions *memory.SessionCollection) ISearchService {
	return &searchService{
		sessions: sessions,
		ranker:   search.NewRanker(),
	}
}

func (c *searchService) Search(ctx context.Context, userId uuid.UUID, query string) (*dto.SearchSessionsResponse, error) {
	sessions := c.sessions.ListByUser(userId)
	scores := c.ranker.Rank(sessions, query)

	res := dto.SearchSessionsResponse{
		Query:   query,
		Results: make([]dto.SessionScoreDTO, 0, len(scores)),
	}
	for _, session := range sessions {
		score, ok := scores[session.Id]
		if !ok {
			continue
		}
		res.Results = append(res.Results, dto.SessionScoreDTO{
			SessionId: session.Id,
			Title:     session.Title,
			Score:     score,
		})
	}

	// Best first; equal scores keep the collection's newest-first order.
	sort.SliceStable(res.Results, func(i, j int) bool {
		return res.Results[i].Score > res.Results[j].Score
	})

	return &res, nil
}

func (c *searchService) BestMatch(ctx context.Context, userId uuid.UUID, query string) (*dto.BestMatchResponse, error) {
	sessions := c.sessions.ListByUser(userId)

	id, ok := c.ranker.BestMatch(sessions, query)
	if !ok {
		return &dto.BestMatchResponse{Found: false}, nil
	}

	res := dto.BestMatchResponse{
		Found:     true,
		SessionId: &id,
	}
	for _, session := range sessions {
		if session.Id == id {
			res.Title = session.Title
			break
		}
	}

	return &res, nil
}
