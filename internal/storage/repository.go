package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"spendwise/internal/core"
)

// Dialect selects the SQL flavour of the record store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string { return string(d) }

const expenseColumns = "id, owner_id, category_id, amount_cents, date_ms, note, created_at_ms, updated_at_ms"

// Repository is the SQL record store for expenses and categories.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectSQLite, now: time.Now}, nil
}

func NewPostgresRepository(databaseURL string) (*Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectPostgres, databaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectPostgres, now: time.Now}, nil
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders into $n for postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func expenseWhere(f core.ExpenseFilter) (string, []any) {
	clauses := []string{"owner_id = ?"}
	args := []any{f.OwnerID}
	if f.Range != nil {
		clauses = append(clauses, "date_ms >= ?", "date_ms <= ?")
		args = append(args, toMillis(f.Range.Start), toMillis(f.Range.End))
	}
	if f.CategoryID != 0 {
		clauses = append(clauses, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	return strings.Join(clauses, " AND "), args
}

// FindExpenses returns one window of matching expenses, newest first with
// ascending id as tiebreak.
func (r *Repository) FindExpenses(ctx context.Context, f core.ExpenseFilter, w core.Window) ([]core.Expense, error) {
	where, args := expenseWhere(f)
	query := "SELECT " + expenseColumns + " FROM expenses WHERE " + where +
		" ORDER BY date_ms DESC, id ASC LIMIT ? OFFSET ?"
	args = append(args, w.Limit, w.Offset)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *Repository) CountExpenses(ctx context.Context, f core.ExpenseFilter) (int64, error) {
	where, args := expenseWhere(f)
	var n int64
	err := r.db.QueryRowContext(ctx, r.rebind("SELECT COUNT(*) FROM expenses WHERE "+where), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// SumExpenses returns the total amount and the number of matching expenses.
func (r *Repository) SumExpenses(ctx context.Context, f core.ExpenseFilter) (core.Totals, error) {
	where, args := expenseWhere(f)
	query := "SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM expenses WHERE " + where
	var sum, count int64
	if err := r.db.QueryRowContext(ctx, r.rebind(query), args...).Scan(&sum, &count); err != nil {
		return core.Totals{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Totals{Sum: core.Money{Cents: sum}, Count: count}, nil
}

// SumByCategory groups matching expenses by category id. Names are left empty.
func (r *Repository) SumByCategory(ctx context.Context, f core.ExpenseFilter) ([]core.CategoryTotal, error) {
	where, args := expenseWhere(f)
	query := "SELECT category_id, SUM(amount_cents) FROM expenses WHERE " + where + " GROUP BY category_id"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query category sums: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var id, total int64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, core.CategoryTotal{CategoryID: id, Total: core.Money{Cents: total}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category sums: %w", err)
	}
	return out, nil
}

func (r *Repository) GetExpense(ctx context.Context, ownerID string, id int64) (core.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE id = ? AND owner_id = ?"
	e, err := scanExpense(r.db.QueryRowContext(ctx, r.rebind(query), id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NewNotFoundError("expense", id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// CreateExpense inserts e and returns it with id and timestamps set.
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := r.now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	query := `INSERT INTO expenses (owner_id, category_id, amount_cents, date_ms, note, created_at_ms, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`
	err := r.db.QueryRowContext(ctx, r.rebind(query),
		e.OwnerID, e.CategoryID, e.Amount.Cents, toMillis(e.Date), e.Note, toMillis(now), toMillis(now),
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"owner_id", e.OwnerID,
		"category_id", e.CategoryID,
		"amount_cents", e.Amount.Cents,
		"dialect", r.dialect)

	return e, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.UpdatedAt = r.now().UTC()
	query := `UPDATE expenses SET category_id = ?, amount_cents = ?, date_ms = ?, note = ?, updated_at_ms = ?
		WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, r.rebind(query),
		e.CategoryID, e.Amount.Cents, toMillis(e.Date), e.Note, toMillis(e.UpdatedAt), e.ID, e.OwnerID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := expectOneRow(res, "expense", e.ID); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *Repository) DeleteExpense(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM expenses WHERE id = ? AND owner_id = ?"), id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectOneRow(res, "expense", id)
}

// CategoriesByID fetches the owner's categories among ids in one query.
// Unknown ids are simply absent from the result.
func (r *Repository) CategoriesByID(ctx context.Context, ownerID string, ids []int64) ([]core.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}
	query := "SELECT id, owner_id, name, created_at_ms FROM categories WHERE owner_id = ? AND id IN (" + placeholders + ")"
	return r.queryCategories(ctx, query, args...)
}

// ListCategories returns all categories of the owner, oldest first.
func (r *Repository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	query := "SELECT id, owner_id, name, created_at_ms FROM categories WHERE owner_id = ? ORDER BY created_at_ms, id"
	return r.queryCategories(ctx, query, ownerID)
}

func (r *Repository) queryCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *Repository) GetCategory(ctx context.Context, ownerID string, id int64) (core.Category, error) {
	query := "SELECT id, owner_id, name, created_at_ms FROM categories WHERE id = ? AND owner_id = ?"
	c, err := scanCategory(r.db.QueryRowContext(ctx, r.rebind(query), id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// CategoryByName looks a category up by its case-folded key.
func (r *Repository) CategoryByName(ctx context.Context, ownerID, name string) (core.Category, bool, error) {
	query := "SELECT id, owner_id, name, created_at_ms FROM categories WHERE owner_id = ? AND name_key = ?"
	c, err := scanCategory(r.db.QueryRowContext(ctx, r.rebind(query), ownerID, core.CategoryKey(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, false, nil
	}
	if err != nil {
		return core.Category{}, false, fmt.Errorf("get category by name: %w", err)
	}
	return c, true, nil
}

func (r *Repository) CreateCategory(ctx context.Context, ownerID, name string) (core.Category, error) {
	c := core.Category{OwnerID: ownerID, Name: name, CreatedAt: r.now().UTC()}
	query := "INSERT INTO categories (owner_id, name, name_key, created_at_ms) VALUES (?, ?, ?, ?) RETURNING id"
	err := r.db.QueryRowContext(ctx, r.rebind(query), ownerID, name, core.CategoryKey(name), toMillis(c.CreatedAt)).Scan(&c.ID)
	if isUniqueViolation(err) {
		return core.Category{}, core.NewConflictError("Category %q already exists", name)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *Repository) RenameCategory(ctx context.Context, ownerID string, id int64, name string) (core.Category, error) {
	query := "UPDATE categories SET name = ?, name_key = ? WHERE id = ? AND owner_id = ?"
	res, err := r.db.ExecContext(ctx, r.rebind(query), name, core.CategoryKey(name), id, ownerID)
	if isUniqueViolation(err) {
		return core.Category{}, core.NewConflictError("Category %q already exists", name)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("rename category: %w", err)
	}
	if err := expectOneRow(res, "category", id); err != nil {
		return core.Category{}, err
	}
	return r.GetCategory(ctx, ownerID, id)
}

func (r *Repository) DeleteCategory(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM categories WHERE id = ? AND owner_id = ?"), id, ownerID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectOneRow(res, "category", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e                          core.Expense
		dateMs, createdMs, updated int64
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &e.CategoryID, &e.Amount.Cents, &dateMs, &e.Note, &createdMs, &updated); err != nil {
		return core.Expense{}, err
	}
	e.Date = fromMillis(dateMs)
	e.CreatedAt = fromMillis(createdMs)
	e.UpdatedAt = fromMillis(updated)
	return e, nil
}

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c         core.Category
		createdMs int64
	)
	if err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &createdMs); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = fromMillis(createdMs)
	return c, nil
}

func expectOneRow(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NewNotFoundError(resource, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
