package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jwaygroup/voc-backend/internal/domain"
	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
)

// ErrStoreUnavailable is returned when the repo has no live database handle,
// which happens when the startup connection failed and no tx was supplied.
var ErrStoreUnavailable = errors.New("ideas store is not available")

// SearchQuery are the paginated-search inputs. Page and PageSize are assumed
// already normalized by the caller (page >= 1, pageSize >= 1).
type SearchQuery struct {
	Search   string
	Page     int
	PageSize int
}

type IdeaRepo interface {
	// LatestPerGroup returns at most limit ideas, one representative per
	// distinct has_parent value (NULL forms a single group), each the
	// newest row of its group, ordered newest-first overall. Ties on
	// created_at within a group resolve arbitrarily.
	LatestPerGroup(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.Idea, error)
	// Related returns every row sharing the given has_parent value,
	// newest-first, unpaginated.
	Related(ctx context.Context, tx *gorm.DB, hasParent int64) ([]*domain.Idea, error)
	// SearchPage applies the filter, reduces each group to its newest row,
	// and only then slices out the requested page.
	SearchPage(ctx context.Context, tx *gorm.DB, q SearchQuery) ([]*domain.Idea, error)
	// CountGroups counts distinct groups surviving the same filter and
	// reduction SearchPage uses. The two must always agree.
	CountGroups(ctx context.Context, tx *gorm.DB, search string) (int64, error)
}

type ideaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdeaRepo(db *gorm.DB, baseLog *logger.Logger) IdeaRepo {
	return &ideaRepo{db: db, log: baseLog.With("repo", "IdeaRepo")}
}

func (ir *ideaRepo) conn(tx *gorm.DB) (*gorm.DB, error) {
	if tx != nil {
		return tx, nil
	}
	if ir.db == nil {
		return nil, ErrStoreUnavailable
	}
	return ir.db, nil
}

// ROW_NUMBER over the has_parent partition expresses "newest row per group"
// in SQL that runs unchanged on Postgres and on the sqlite test driver.
const latestPerGroupSQL = `
SELECT id, uuid, full_text, embedding, categories, merged, has_parent, created_at, metadata
FROM (
	SELECT ideas.*, ROW_NUMBER() OVER (PARTITION BY has_parent ORDER BY created_at DESC) AS rn
	FROM ideas
) AS latest_ideas
WHERE rn = 1
ORDER BY created_at DESC
LIMIT ?`

func (ir *ideaRepo) LatestPerGroup(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.Idea, error) {
	conn, err := ir.conn(tx)
	if err != nil {
		return nil, err
	}
	ideas := []*domain.Idea{}
	if err := conn.WithContext(ctx).Raw(latestPerGroupSQL, limit).Scan(&ideas).Error; err != nil {
		return nil, err
	}
	return ideas, nil
}

func (ir *ideaRepo) Related(ctx context.Context, tx *gorm.DB, hasParent int64) ([]*domain.Idea, error) {
	conn, err := ir.conn(tx)
	if err != nil {
		return nil, err
	}
	ideas := []*domain.Idea{}
	if err := conn.WithContext(ctx).
		Raw(`SELECT id, uuid, full_text, embedding, categories, merged, has_parent, created_at, metadata
FROM ideas
WHERE has_parent = ?
ORDER BY created_at DESC`, hasParent).
		Scan(&ideas).Error; err != nil {
		return nil, err
	}
	return ideas, nil
}

// groupedLatestSQL is the shared filter-then-reduce body. SearchPage and
// CountGroups both build on it, so page data and total can never disagree on
// which groups exist.
func groupedLatestSQL(search string) (string, []interface{}) {
	where := ""
	args := []interface{}{}
	if search != "" {
		where = "WHERE LOWER(full_text) LIKE LOWER(?)"
		args = append(args, "%"+search+"%")
	}
	sql := fmt.Sprintf(`
WITH filtered AS (
	SELECT id, uuid, full_text, categories, merged, has_parent, created_at
	FROM ideas
	%s
),
ranked AS (
	SELECT filtered.*, ROW_NUMBER() OVER (PARTITION BY has_parent ORDER BY created_at DESC) AS rn
	FROM filtered
)
SELECT id, uuid, full_text, categories, merged, has_parent, created_at
FROM ranked
WHERE rn = 1`, where)
	return sql, args
}

func (ir *ideaRepo) SearchPage(ctx context.Context, tx *gorm.DB, q SearchQuery) ([]*domain.Idea, error) {
	conn, err := ir.conn(tx)
	if err != nil {
		return nil, err
	}
	sql, args := groupedLatestSQL(q.Search)
	sql += "\nORDER BY created_at DESC\nLIMIT ? OFFSET ?"
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)

	ideas := []*domain.Idea{}
	if err := conn.WithContext(ctx).Raw(sql, args...).Scan(&ideas).Error; err != nil {
		return nil, err
	}
	return ideas, nil
}

func (ir *ideaRepo) CountGroups(ctx context.Context, tx *gorm.DB, search string) (int64, error) {
	conn, err := ir.conn(tx)
	if err != nil {
		return 0, err
	}
	sql, args := groupedLatestSQL(search)
	var total int64
	if err := conn.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM ("+sql+"\n) AS grouped_latest", args...).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
