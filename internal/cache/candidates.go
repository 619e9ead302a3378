package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
	"github.com/jwaygroup/voc-backend/internal/utils"
	"github.com/jwaygroup/voc-backend/internal/workflow"
)

// CandidateStore persists the last fetched candidate list under a fixed key
// so a restarted session can restore it. Everything here is best-effort: a
// missing key, an unreachable server, or a corrupt payload all degrade to an
// empty list, never an error the caller has to handle.
type CandidateStore struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

func NewCandidateStore(log *logger.Logger) (*CandidateStore, error) {
	addr := utils.GetEnv("REDIS_ADDR", "", log)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := utils.GetEnv("VOC_CACHE_KEY", "voc_results", log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &CandidateStore{
		log: log.With("service", "CandidateStore"),
		rdb: rdb,
		key: key,
	}, nil
}

func (s *CandidateStore) Load(ctx context.Context) []workflow.Candidate {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			s.log.Warn("Failed to load persisted candidates", "error", err)
		}
		return nil
	}
	return decodeCandidates(raw, s.log)
}

func (s *CandidateStore) Store(ctx context.Context, cands []workflow.Candidate) {
	if cands == nil {
		cands = []workflow.Candidate{}
	}
	raw, err := json.Marshal(cands)
	if err != nil {
		s.log.Warn("Failed to encode candidates for persistence", "error", err)
		return
	}
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		s.log.Warn("Failed to persist candidates", "error", err)
	}
}

func (s *CandidateStore) Close() error {
	return s.rdb.Close()
}

func decodeCandidates(raw []byte, log *logger.Logger) []workflow.Candidate {
	var cands []workflow.Candidate
	if err := json.Unmarshal(raw, &cands); err != nil {
		if log != nil {
			log.Warn("Persisted candidate payload is corrupt, ignoring", "error", err)
		}
		return nil
	}
	return cands
}
