package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwaygroup/voc-backend/internal/domain"
	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
	"github.com/jwaygroup/voc-backend/internal/repos"
)

// ErrMissingGroupKey rejects a related-ideas request before any query runs.
var ErrMissingGroupKey = errors.New("has_parent value is required")

const (
	latestLimit     = 5
	defaultPage     = 1
	defaultPageSize = 10
)

// IdeaSummary is the list-route row shape, carrying the legacy aliases the
// list consumers read (pageContent, date_created, score).
type IdeaSummary struct {
	ID          int64     `json:"id"`
	FullText    string    `json:"full_text"`
	PageContent string    `json:"pageContent"`
	CreatedAt   time.Time `json:"created_at"`
	DateCreated time.Time `json:"date_created"`
	UUID        string    `json:"uuid"`
	Categories  *string   `json:"categories"`
	Merged      bool      `json:"merged"`
	HasParent   *int64    `json:"has_parent"`
	Score       float64   `json:"score"`
}

type SearchResult struct {
	Ideas      []IdeaSummary `json:"ideas"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

type IdeaService interface {
	// Latest returns at most 5 group representatives, newest-first.
	Latest(ctx context.Context) ([]*domain.Idea, error)
	// Related returns a group's full history; a nil key fails with
	// ErrMissingGroupKey before touching the store.
	Related(ctx context.Context, hasParent *int64) ([]*domain.Idea, error)
	// Search filters, reduces per group, then paginates. Page and pageSize
	// fall back to their defaults when out of range.
	Search(ctx context.Context, page, pageSize int, search string) (*SearchResult, error)
}

type ideaService struct {
	log      *logger.Logger
	ideaRepo repos.IdeaRepo
}

func NewIdeaService(log *logger.Logger, ideaRepo repos.IdeaRepo) IdeaService {
	return &ideaService{
		log:      log.With("service", "IdeaService"),
		ideaRepo: ideaRepo,
	}
}

func (is *ideaService) Latest(ctx context.Context) ([]*domain.Idea, error) {
	return is.ideaRepo.LatestPerGroup(ctx, nil, latestLimit)
}

func (is *ideaService) Related(ctx context.Context, hasParent *int64) ([]*domain.Idea, error) {
	if hasParent == nil {
		return nil, ErrMissingGroupKey
	}
	return is.ideaRepo.Related(ctx, nil, *hasParent)
}

func (is *ideaService) Search(ctx context.Context, page, pageSize int, search string) (*SearchResult, error) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	var (
		rows  []*domain.Idea
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = is.ideaRepo.CountGroups(gctx, nil, search)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = is.ideaRepo.SearchPage(gctx, nil, repos.SearchQuery{
			Search:   search,
			Page:     page,
			PageSize: pageSize,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]IdeaSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, IdeaSummary{
			ID:          r.ID,
			FullText:    r.FullText,
			PageContent: r.FullText,
			CreatedAt:   r.CreatedAt,
			DateCreated: r.CreatedAt,
			UUID:        r.UUID,
			Categories:  r.Categories,
			Merged:      r.Merged,
			HasParent:   r.HasParent,
			Score:       0,
		})
	}

	return &SearchResult{
		Ideas:      summaries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}
