package services

import (
	"context"

	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
	"github.com/jwaygroup/voc-backend/internal/workflow"
)

// CandidateCache persists the last fetched candidate list across sessions.
// Implementations are best-effort: Load returns nil when nothing usable is
// stored and Store swallows its own failures.
type CandidateCache interface {
	Load(ctx context.Context) []workflow.Candidate
	Store(ctx context.Context, cands []workflow.Candidate)
}

type SubmissionService interface {
	// FindSimilar runs the similarity workflow, reduces candidates to one
	// per group, and persists the outcome (an empty list on failure).
	FindSimilar(ctx context.Context, req workflow.SimilarityRequest) ([]workflow.Candidate, error)
	// Merge folds the current submission into the chosen candidate's group.
	Merge(ctx context.Context, req workflow.MergeRequest) error
	// SaveNew stores the submission as a brand new idea.
	SaveNew(ctx context.Context, req workflow.SaveRequest) error
	// RestoreCandidates returns the persisted candidate list, or nil.
	RestoreCandidates(ctx context.Context) []workflow.Candidate
}

type submissionService struct {
	log   *logger.Logger
	wf    workflow.Client
	cache CandidateCache
}

func NewSubmissionService(log *logger.Logger, wf workflow.Client, cache CandidateCache) SubmissionService {
	return &submissionService{
		log:   log.With("service", "SubmissionService"),
		wf:    wf,
		cache: cache,
	}
}

func (ss *submissionService) FindSimilar(ctx context.Context, req workflow.SimilarityRequest) ([]workflow.Candidate, error) {
	cands, err := ss.wf.FindSimilar(ctx, req)
	if err != nil {
		ss.persist(ctx, nil)
		return nil, err
	}
	deduped := workflow.DedupeByGroup(cands)
	ss.persist(ctx, deduped)
	return deduped, nil
}

func (ss *submissionService) Merge(ctx context.Context, req workflow.MergeRequest) error {
	return ss.wf.Merge(ctx, req)
}

func (ss *submissionService) SaveNew(ctx context.Context, req workflow.SaveRequest) error {
	return ss.wf.Save(ctx, req)
}

func (ss *submissionService) RestoreCandidates(ctx context.Context) []workflow.Candidate {
	if ss.cache == nil {
		return nil
	}
	return ss.cache.Load(ctx)
}

func (ss *submissionService) persist(ctx context.Context, cands []workflow.Candidate) {
	if ss.cache == nil {
		return
	}
	ss.cache.Store(ctx, cands)
}
