package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
	"github.com/jwaygroup/voc-backend/internal/utils"
)

// PostgresService owns the process-wide connection pool. The pool is built
// once at startup and shared by every request; it is never torn down between
// requests.
type PostgresService struct {
	db  *gorm.DB
	dsn string
	log *logger.Logger
}

// NewPostgresService reads DATABASE_URL and connects. On failure it still
// returns a service carrying the DSN so the connectivity probe can report
// what went wrong; DB() is nil in that case.
func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")
	dsn := utils.GetEnv("DATABASE_URL", "", log)

	s := &PostgresService{dsn: dsn, log: serviceLog}
	if dsn == "" {
		return s, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	serviceLog.Info("Connecting to Postgres...", "url", SanitizeDSN(dsn))
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return s, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return s, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(utils.GetEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10, log))
	sqlDB.SetMaxIdleConns(utils.GetEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5, log))
	sqlDB.SetConnMaxLifetime(time.Duration(utils.GetEnvAsInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", 1800, log)) * time.Second)

	s.db = gdb
	return s, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

// ProbeResult mirrors the /test-db diagnostic payload. The connection string
// is sanitized before it reaches a log line or a response body.
type ProbeResult struct {
	Success      bool       `json:"success"`
	Message      string     `json:"message,omitempty"`
	Error        string     `json:"error,omitempty"`
	SanitizedURL string     `json:"sanitizedUrl"`
	CurrentTime  *time.Time `json:"currentTime,omitempty"`
	PGVersion    string     `json:"pgVersion,omitempty"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	Hint         string     `json:"hint,omitempty"`
}

// Probe checks connectivity end to end: env var present, connection usable,
// and a trivial query answered. When the startup pool is unavailable it dials
// a short-lived connection of its own so the probe stays useful while the
// rest of the API is down.
func (s *PostgresService) Probe(ctx context.Context) ProbeResult {
	res := ProbeResult{SanitizedURL: SanitizeDSN(s.dsn)}

	if s.dsn == "" {
		res.Error = "DATABASE_URL environment variable not set"
		return res
	}

	gdb := s.db
	if gdb == nil {
		opened, err := gorm.Open(postgres.Open(s.dsn), &gorm.Config{})
		if err != nil {
			return s.failure(res, err)
		}
		defer func() {
			if sqlDB, derr := opened.DB(); derr == nil {
				_ = sqlDB.Close()
			}
		}()
		gdb = opened
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var row struct {
		CurrentTime time.Time `gorm:"column:current_time"`
		PGVersion   string    `gorm:"column:pg_version"`
	}
	if err := gdb.WithContext(probeCtx).
		Raw(`SELECT NOW() AS current_time, version() AS pg_version`).
		Scan(&row).Error; err != nil {
		return s.failure(res, err)
	}

	res.Success = true
	res.Message = "Database connection successful"
	res.CurrentTime = &row.CurrentTime
	res.PGVersion = row.PGVersion
	return res
}

func (s *PostgresService) failure(res ProbeResult, err error) ProbeResult {
	res.Error = err.Error()
	res.Hint = HintFor(err)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		res.ErrorCode = pgErr.Code
	}
	s.log.Warn("Database probe failed", "error", err, "hint", res.Hint, "url", res.SanitizedURL)
	return res
}

var dsnPassword = regexp.MustCompile(`:[^:@]+@`)

// SanitizeDSN masks the password segment of a connection string.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return "NOT SET"
	}
	return dsnPassword.ReplaceAllString(dsn, ":****@")
}

// HintFor maps a connection or query error to an operator hint. Typed
// SQLSTATE codes take precedence; the substring checks are the fallback for
// errors that never reached the server.
func HintFor(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28000", "28P01":
			return "Wrong username or password"
		case "3D000":
			return "Database name is incorrect"
		case "57P03":
			return "Database is starting up or shutting down - retry shortly"
		}
	}

	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") || strings.Contains(msg, "ETIMEDOUT"):
		return "Connection timeout - check firewall/security group settings"
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "ECONNREFUSED"):
		return "Connection refused - database not accessible from this network"
	case strings.Contains(msg, "authentication failed"):
		return "Wrong username or password"
	case strings.Contains(msg, "database") && strings.Contains(msg, "does not exist"):
		return "Database name is incorrect"
	case strings.Contains(msg, "no such host") || strings.Contains(msg, "ENOTFOUND"):
		return "Host not found - check database URL"
	}
	return "Check database configuration and network settings"
}
