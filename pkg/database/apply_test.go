package database

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	script := `-- Inferred table structure
-- Generated: 2026-01-02

CREATE TABLE recall (
    id SERIAL,
    recall_number VARCHAR(40),
    PRIMARY KEY (id)
);

-- Indexes
CREATE INDEX idx_recall_recall_number ON recall(recall_number);
`
	statements := SplitStatements(script)
	if len(statements) != 2 {
		t.Fatalf("statements = %d, want 2:\n%s", len(statements), strings.Join(statements, "\n---\n"))
	}
	if !strings.HasPrefix(statements[0], "CREATE TABLE recall (") {
		t.Errorf("first statement = %q, want the CREATE TABLE", statements[0])
	}
	if strings.HasSuffix(statements[0], ";") {
		t.Error("trailing semicolon should be trimmed")
	}
	if !strings.HasPrefix(statements[1], "CREATE INDEX") {
		t.Errorf("second statement = %q, want the CREATE INDEX", statements[1])
	}
}

func TestSplitStatementsDollarQuoted(t *testing.T) {
	script := `CREATE OR REPLACE FUNCTION update_modified_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = CURRENT_TIMESTAMP;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

CREATE TRIGGER update_timestamp
BEFORE UPDATE ON recall
FOR EACH ROW EXECUTE FUNCTION update_modified_column();
`
	statements := SplitStatements(script)
	if len(statements) != 2 {
		t.Fatalf("statements = %d, want 2:\n%s", len(statements), strings.Join(statements, "\n---\n"))
	}
	if !strings.Contains(statements[0], "RETURN NEW;") {
		t.Errorf("function body split apart: %q", statements[0])
	}
	if !strings.Contains(statements[0], "$$ LANGUAGE plpgsql") {
		t.Errorf("function terminator lost: %q", statements[0])
	}
}

func TestSplitStatementsCommentsOnly(t *testing.T) {
	script := `-- nothing here
-- just commentary

`
	if statements := SplitStatements(script); len(statements) != 0 {
		t.Errorf("statements = %v, want none from comment-only script", statements)
	}
}

func TestSplitStatementsUnterminated(t *testing.T) {
	statements := SplitStatements("CREATE TABLE x (\n    id SERIAL\n)")
	if len(statements) != 1 {
		t.Fatalf("statements = %d, want leftover kept as 1", len(statements))
	}
	if !strings.HasPrefix(statements[0], "CREATE TABLE x (") {
		t.Errorf("leftover statement = %q", statements[0])
	}
}

func TestSplitStatementsEmpty(t *testing.T) {
	if statements := SplitStatements(""); len(statements) != 0 {
		t.Errorf("statements = %v, want none", statements)
	}
}
