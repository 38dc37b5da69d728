package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ivanzhdanov/trailmix/internal/domain"
)

const opTimeout = 5 * time.Second

// Имена таблиц и колонок приходят только из собственного кода фасада,
// но перед подстановкой в SQL всё равно проверяются по шаблону.
var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// rowStore — реализация domain.RowStore поверх PostgreSQL.
// Строки плоские, ключи snake_case; join и транзакций между вызовами нет.
type rowStore struct {
	db *sql.DB
}

// NewRowStore создаёт PostgreSQL-реализацию RowStore.
func NewRowStore(store *Store) domain.RowStore {
	return &rowStore{db: store.DB()}
}

func (s *rowStore) Select(ctx context.Context, table string, filter domain.Filter, orderBy string, desc bool) ([]domain.Row, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := "SELECT * FROM " + table
	where, args, err := buildWhere(domain.Row(filter), 1)
	if err != nil {
		return nil, err
	}
	query += where

	if orderBy != "" {
		if err := checkIdent(orderBy); err != nil {
			return nil, err
		}
		query += " ORDER BY " + orderBy
		if desc {
			query += " DESC"
		}
	}

	rows, err := s.db.QueryContext(opCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}

	result := make([]domain.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", table, err)
		}

		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %s: %w", table, err)
	}

	return result, nil
}

func (s *rowStore) Insert(ctx context.Context, table string, row domain.Row) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	if len(row) == 0 {
		return fmt.Errorf("insert into %s: empty row", table)
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	keys := sortedKeys(row)
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		if err := checkIdent(key); err != nil {
			return err
		}
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[key]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(keys, ", "), strings.Join(placeholders, ", "),
	)
	if _, err := s.db.ExecContext(opCtx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *rowStore) Update(ctx context.Context, table string, filter domain.Filter, patch domain.Row) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	if len(patch) == 0 {
		return 0, fmt.Errorf("update %s: empty patch", table)
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	keys := sortedKeys(patch)
	assignments := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(filter))
	for i, key := range keys {
		if err := checkIdent(key); err != nil {
			return 0, err
		}
		assignments[i] = fmt.Sprintf("%s = $%d", key, i+1)
		args = append(args, patch[key])
	}

	where, whereArgs, err := buildWhere(domain.Row(filter), len(keys)+1)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(assignments, ", "), where)
	res, err := s.db.ExecContext(opCtx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected of %s: %w", table, err)
	}
	return affected, nil
}

func (s *rowStore) Delete(ctx context.Context, table string, filter domain.Filter) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	if len(filter) == 0 {
		return 0, fmt.Errorf("delete from %s: empty filter", table)
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where, args, err := buildWhere(domain.Row(filter), 1)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(opCtx, "DELETE FROM "+table+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected of %s: %w", table, err)
	}
	return affected, nil
}

func buildWhere(filter domain.Row, firstArg int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(filter)
	conditions := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		if err := checkIdent(key); err != nil {
			return "", nil, err
		}
		conditions[i] = fmt.Sprintf("%s = $%d", key, firstArg+i)
		args[i] = filter[key]
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

func sortedKeys(row domain.Row) []string {
	keys := make([]string, 0, len(row))
	for key := range row {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid sql identifier: %q", name)
	}
	return nil
}

// normalizeValue приводит типы драйвера к тем, что ожидает фасад:
// []byte (TEXT/JSONB) — к string, остальное без изменений.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

var _ domain.RowStore = (*rowStore)(nil)
