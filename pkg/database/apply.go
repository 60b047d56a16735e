package database

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/leiMizzou/fdaschema/pkg/logging"
)

// ApplyDDL executes a generated DDL script statement by statement inside a
// single transaction, so a half-applied schema never survives an error.
// Comment-only content is skipped; dollar-quoted function bodies are kept
// whole.
func ApplyDDL(ctx context.Context, db *DB, script string, logger *zap.Logger) error {
	statements := SplitStatements(script)
	if len(statements) == 0 {
		return nil
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			logger.Error("DDL statement failed",
				zap.Int("statement", i+1),
				zap.String("sql", logging.SanitizeStatement(stmt)),
				zap.String("error", logging.SanitizeError(err)))
			return fmt.Errorf("apply DDL statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit DDL transaction: %w", err)
	}

	logger.Info("DDL applied", zap.Int("statements", len(statements)))
	return nil
}

// SplitStatements breaks a DDL script into executable statements on
// semicolons, respecting $$-quoted bodies and dropping comment-only
// fragments.
func SplitStatements(script string) []string {
	var statements []string
	var current strings.Builder
	inDollarQuote := false

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inDollarQuote && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")

		if strings.Count(trimmed, "$$")%2 == 1 {
			inDollarQuote = !inDollarQuote
		}
		if !inDollarQuote && strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			current.Reset()
			stmt = strings.TrimSuffix(stmt, ";")
			if strings.TrimSpace(stmt) != "" {
				statements = append(statements, stmt)
			}
		}
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
