package view

import (
	"context"
	"errors"

	"github.com/jwaygroup/voc-backend/internal/domain"
	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
	"github.com/jwaygroup/voc-backend/internal/services"
	"github.com/jwaygroup/voc-backend/internal/workflow"
)

// State is the submission flow's position: a submit moves idle to
// submitting, and the workflow response lands on results, no-result, or
// error.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateResults
	StateNoResult
	StateError
)

// User-facing messages. Upstream failure text never leaks to the user; they
// always see the generic field hint instead.
const (
	msgUpstreamRejected = "Can't process your request — make sure your fields are not blank or empty."
	msgSubmitFailed     = "Failed to process request"
	msgMergeFailed      = "Failed to merge idea. Please try again."
	msgSaveFailed       = "Failed to save idea. Please try again."
	msgMergeSucceeded   = "Idea merged successfully!"
	msgSaveSucceeded    = "Idea saved successfully!"
)

// Session drives one user's submission flow. It owns the form state, the
// candidate list, and the latest-ideas sidebar, delegating all network work
// to the service layer so it stays unit-testable on its own.
type Session struct {
	log         *logger.Logger
	submissions services.SubmissionService
	ideas       services.IdeaService

	state          State
	text           string
	categories     []string
	fileName       string
	document       *workflow.Document
	results        []workflow.Candidate
	errorMessage   string
	successMessage string

	latestIdeas    []*domain.Idea
	selectedResult int
	relatedIdeas   []*domain.Idea
}

func NewSession(log *logger.Logger, submissions services.SubmissionService, ideas services.IdeaService) *Session {
	return &Session{
		log:            log.With("view", "Session"),
		submissions:    submissions,
		ideas:          ideas,
		state:          StateIdle,
		selectedResult: -1,
	}
}

// Start restores the persisted candidate list and loads the latest-ideas
// sidebar. A corrupt or missing cache silently yields an empty list.
func (s *Session) Start(ctx context.Context) {
	if restored := s.submissions.RestoreCandidates(ctx); len(restored) > 0 {
		s.results = restored
	}
	s.RefreshLatest(ctx)
}

func (s *Session) SetText(text string) { s.text = text }

func (s *Session) SetCategories(categories []string) { s.categories = categories }

func (s *Session) AttachDocument(name string, doc *workflow.Document) {
	s.fileName = name
	s.document = doc
}

// Submit sends the form to the similarity workflow and transitions on the
// outcome. An upstream rejection clears the input text; a transport failure
// preserves it.
func (s *Session) Submit(ctx context.Context) {
	if s.state == StateSubmitting {
		return
	}
	s.state = StateSubmitting
	s.results = nil
	s.errorMessage = ""
	s.successMessage = ""
	s.clearSelection()

	cands, err := s.submissions.FindSimilar(ctx, workflow.SimilarityRequest{
		FullText:           s.text,
		SelectedCategories: s.categories,
		Document:           s.document,
	})
	if err != nil {
		s.state = StateError
		var upstream *workflow.UpstreamError
		if errors.As(err, &upstream) {
			s.errorMessage = msgUpstreamRejected
			s.text = ""
		} else {
			s.errorMessage = msgSubmitFailed
		}
		s.log.Warn("Submit failed", "error", err)
		return
	}

	s.results = cands
	if len(cands) == 0 {
		s.state = StateNoResult
		return
	}
	s.state = StateResults
}

// SelectResult opens a candidate's detail and lazily loads its group
// history. Candidates without a group key have no history to load.
func (s *Session) SelectResult(ctx context.Context, idx int) {
	if idx < 0 || idx >= len(s.results) {
		return
	}
	s.selectedResult = idx
	s.relatedIdeas = nil

	hasParent := s.results[idx].HasParent
	if hasParent == nil {
		return
	}
	related, err := s.ideas.Related(ctx, hasParent)
	if err != nil {
		s.log.Warn("Failed to load idea history", "error", err, "has_parent", *hasParent)
		return
	}
	s.relatedIdeas = related
}

func (s *Session) ClearSelection() { s.clearSelection() }

func (s *Session) clearSelection() {
	s.selectedResult = -1
	s.relatedIdeas = nil
}

// Merge folds the submission into the selected candidate's group. Success
// resets the form and refreshes the sidebar; failure leaves everything in
// place for a retry.
func (s *Session) Merge(ctx context.Context) {
	if s.selectedResult < 0 || s.selectedResult >= len(s.results) {
		return
	}
	err := s.submissions.Merge(ctx, workflow.MergeRequest{
		Candidate: s.results[s.selectedResult],
		InputText: s.text,
	})
	if err != nil {
		s.log.Warn("Merge failed", "error", err)
		s.errorMessage = msgMergeFailed
		return
	}
	s.resetForm()
	s.RefreshLatest(ctx)
	s.successMessage = msgMergeSucceeded
}

// SaveNew stores the submission as a brand new idea via the save webhook.
func (s *Session) SaveNew(ctx context.Context) {
	err := s.submissions.SaveNew(ctx, workflow.SaveRequest{
		FullText:   s.text,
		Categories: s.categories,
	})
	if err != nil {
		s.log.Warn("Save failed", "error", err)
		s.errorMessage = msgSaveFailed
		return
	}
	s.RefreshLatest(ctx)
	s.successMessage = msgSaveSucceeded
	s.resetForm()
}

// RefreshLatest reloads the latest-ideas sidebar. Failures only log; the
// sidebar keeps its previous content.
func (s *Session) RefreshLatest(ctx context.Context) {
	latest, err := s.ideas.Latest(ctx)
	if err != nil {
		s.log.Warn("Failed to fetch latest ideas", "error", err)
		return
	}
	s.latestIdeas = latest
}

func (s *Session) resetForm() {
	s.text = ""
	s.categories = nil
	s.fileName = ""
	s.document = nil
	s.results = nil
	s.state = StateIdle
	s.errorMessage = ""
	s.clearSelection()
}

func (s *Session) State() State { return s.state }

func (s *Session) Text() string { return s.text }

func (s *Session) FileName() string { return s.fileName }

func (s *Session) Results() []workflow.Candidate { return s.results }

func (s *Session) ErrorMessage() string { return s.errorMessage }

func (s *Session) SuccessMessage() string { return s.successMessage }

func (s *Session) LatestIdeas() []*domain.Idea { return s.latestIdeas }

func (s *Session) SelectedResult() int { return s.selectedResult }

func (s *Session) RelatedIdeas() []*domain.Idea { return s.relatedIdeas }

func (s *Session) SelectedCategories() []string { return s.categories }
