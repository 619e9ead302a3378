package view

import (
	"context"
	"strings"

	"github.com/jwaygroup/voc-backend/internal/domain"
	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
	"github.com/jwaygroup/voc-backend/internal/services"
)

const browserPageSize = 10

// Browser drives the paginated idea list: committed search term, current
// page, and the lazily loaded group history of a selected row.
//
// Responses are sequence-stamped. Every request takes a token from
// beginRequest and hands it back through deliver; a response whose token
// is older than the latest issued one is dropped, so a slow earlier page
// can never overwrite a newer one.
type Browser struct {
	log   *logger.Logger
	ideas services.IdeaService

	pageSize    int
	page        int
	totalPages  int
	total       int64
	searchInput string
	searchTerm  string
	rows        []services.IdeaSummary

	selected int
	related  []*domain.Idea

	seq uint64
}

func NewBrowser(log *logger.Logger, ideas services.IdeaService) *Browser {
	return &Browser{
		log:        log.With("view", "Browser"),
		ideas:      ideas,
		pageSize:   browserPageSize,
		page:       1,
		totalPages: 1,
		selected:   -1,
	}
}

// Refresh loads the current page for the committed search term.
func (b *Browser) Refresh(ctx context.Context) error {
	token := b.beginRequest()
	res, err := b.ideas.Search(ctx, b.page, b.pageSize, b.searchTerm)
	return b.deliver(token, res, err)
}

func (b *Browser) beginRequest() uint64 {
	b.seq++
	b.clearSelection()
	return b.seq
}

func (b *Browser) deliver(token uint64, res *services.SearchResult, err error) error {
	if token != b.seq {
		b.log.Debug("Discarding stale page response", "token", token, "latest", b.seq)
		return nil
	}
	if err != nil {
		b.log.Error("Failed to fetch idea page", "error", err, "page", b.page)
		b.rows = nil
		b.total = 0
		b.totalPages = 1
		return err
	}
	b.rows = res.Ideas
	b.total = res.Total
	b.totalPages = res.TotalPages
	if b.totalPages < 1 {
		b.totalPages = 1
	}
	return nil
}

// SetPage navigates to page p, clamped to the known range. Staying on the
// same page is a no-op.
func (b *Browser) SetPage(ctx context.Context, p int) error {
	if p < 1 {
		p = 1
	}
	if p > b.totalPages {
		p = b.totalPages
	}
	if p == b.page {
		return nil
	}
	b.page = p
	return b.Refresh(ctx)
}

func (b *Browser) Next(ctx context.Context) error { return b.SetPage(ctx, b.page+1) }

func (b *Browser) Prev(ctx context.Context) error { return b.SetPage(ctx, b.page-1) }

func (b *Browser) SetSearchInput(s string) { b.searchInput = s }

// CommitSearch applies the pending input as the active term and restarts
// from page one.
func (b *Browser) CommitSearch(ctx context.Context) error {
	b.searchTerm = strings.TrimSpace(b.searchInput)
	b.page = 1
	return b.Refresh(ctx)
}

// PageWindow returns up to five page numbers centered on the current page,
// shifted inward near either edge.
func (b *Browser) PageWindow() []int {
	lo := b.page - 3
	if lo < 0 {
		lo = 0
	}
	hi := b.page + 2
	if hi > b.totalPages {
		hi = b.totalPages
	}
	window := make([]int, 0, hi-lo)
	for p := lo + 1; p <= hi; p++ {
		window = append(window, p)
	}
	return window
}

// Select opens a row's detail and loads its group history. Rows without a
// group key get no history; the representative itself is filtered out of
// what History returns.
func (b *Browser) Select(ctx context.Context, idx int) {
	if idx < 0 || idx >= len(b.rows) {
		return
	}
	b.selected = idx
	b.related = nil

	hasParent := b.rows[idx].HasParent
	if hasParent == nil {
		return
	}
	related, err := b.ideas.Related(ctx, hasParent)
	if err != nil {
		b.log.Warn("Failed to load idea history", "error", err, "has_parent", *hasParent)
		return
	}
	b.related = related
}

func (b *Browser) ClearSelection() { b.clearSelection() }

func (b *Browser) clearSelection() {
	b.selected = -1
	b.related = nil
}

// History is the selected row's group members, minus the row itself.
func (b *Browser) History() []*domain.Idea {
	if b.selected < 0 || b.selected >= len(b.rows) {
		return nil
	}
	uuid := b.rows[b.selected].UUID
	out := make([]*domain.Idea, 0, len(b.related))
	for _, idea := range b.related {
		if idea.UUID == uuid {
			continue
		}
		out = append(out, idea)
	}
	return out
}

func (b *Browser) Page() int { return b.page }

func (b *Browser) TotalPages() int { return b.totalPages }

func (b *Browser) Total() int64 { return b.total }

func (b *Browser) SearchTerm() string { return b.searchTerm }

func (b *Browser) Rows() []services.IdeaSummary { return b.rows }

func (b *Browser) Selected() int { return b.selected }
