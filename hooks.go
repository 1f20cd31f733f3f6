package dbfixture

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ExecFile reads a SQL script and executes each of its statements.
func (s *Session) ExecFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := s.ExecScript(ctx, string(data)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ExecScript executes every statement of a semicolon-separated script in
// order, stopping at the first failure.
func (s *Session) ExecScript(ctx context.Context, script string) error {
	stmts := splitStatements(script)
	s.conn.logger.Debug("running script", "statements", len(stmts))
	for i, stmt := range stmts {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// RunHooks executes each hook file, resolved against the config directory.
func (s *Session) RunHooks(ctx context.Context, cfg Config, phase string, files []string) error {
	for _, f := range files {
		s.conn.logger.Info("running hook", "phase", phase, "file", f)
		if err := s.ExecFile(ctx, cfg.ResolvePath(f)); err != nil {
			return fmt.Errorf("hook %s: %w", phase, err)
		}
	}
	return nil
}

// splitStatements splits SQL text on semicolons. Comments are dropped,
// empty statements skipped, and quoted text kept intact.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	var quote byte

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			current.WriteByte(c)
			if c == quote {
				// Doubled quote is an escaped quote character.
				if i+1 < len(sql) && sql[i+1] == quote {
					current.WriteByte(c)
					i++
				} else {
					quote = 0
				}
			}
		case c == '\'' || c == '"':
			quote = c
			current.WriteByte(c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 3
			}
			current.WriteByte(' ')
		case c == ';':
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return stmts
}
