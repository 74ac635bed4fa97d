package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/ports"
)

const (
	articlesTable   = "articles"
	uniqueViolation = "23505"
)

//go:embed schema.sql
var schema string

var articleColumns = []string{
	"id", "title", "url", "hashed_url", "content", "published_at",
	"summary", "suggestion", "confidence_score", "source", "created_at", "updated_at",
}

// PostgresRepository persists articles into Postgres.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.ArticleStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// OpenPostgres opens and pings a lib/pq connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the articles table when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Exists matches either the url fingerprint or the exact url.
func (r *PostgresRepository) Exists(ctx context.Context, fingerprint, url string) (bool, error) {
	query, args, err := r.sb.Select("1").
		From(articlesTable).
		Where(sq.Or{sq.Eq{"hashed_url": fingerprint}, sq.Eq{"url": url}}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	switch err := r.db.QueryRowContext(ctx, query, args...).Scan(&one); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query exists: %w", err)
	default:
		return true, nil
	}
}

// Insert stores an unenriched article and returns its id.
func (r *PostgresRepository) Insert(ctx context.Context, article domain.Article) (int64, error) {
	fingerprint := article.Fingerprint
	if fingerprint == "" {
		fingerprint = domain.Fingerprint(article.URL)
	}

	query, args, err := r.sb.Insert(articlesTable).
		Columns("title", "url", "hashed_url", "content", "published_at", "summary", "suggestion", "confidence_score", "source").
		Values(article.Title, article.URL, fingerprint, article.Body, article.PublishedAt.UTC(),
			article.Summary, article.Suggestion, article.ConfidenceScore, string(article.Source)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert %s: %w", article.URL, domain.ErrDuplicateArticle)
		}
		return 0, fmt.Errorf("insert article: %w", err)
	}
	return id, nil
}

// Get loads an article by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (domain.Article, error) {
	query, args, err := r.sb.Select(articleColumns...).
		From(articlesTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build get: %w", err)
	}

	var (
		a          domain.Article
		summary    sql.NullString
		suggestion sql.NullString
		confidence sql.NullFloat64
		source     string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.Title, &a.URL, &a.Fingerprint, &a.Body, &a.PublishedAt,
		&summary, &suggestion, &confidence, &source, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, domain.ErrArticleNotFound)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article: %w", err)
	}

	if summary.Valid {
		a.Summary = &summary.String
	}
	if suggestion.Valid {
		a.Suggestion = &suggestion.String
	}
	if confidence.Valid {
		a.ConfidenceScore = &confidence.Float64
	}
	a.Source = domain.Source(source)
	return a, nil
}

// Update overwrites the mutable fields of an article.
func (r *PostgresRepository) Update(ctx context.Context, article domain.Article) error {
	query, args, err := r.sb.Update(articlesTable).
		Set("title", article.Title).
		Set("content", article.Body).
		Set("summary", article.Summary).
		Set("suggestion", article.Suggestion).
		Set("confidence_score", article.ConfidenceScore).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": article.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article %d: %w", article.ID, domain.ErrArticleNotFound)
	}
	return nil
}

// DeleteOlderThan removes articles created before cutoff.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := r.sb.Delete(articlesTable).
		Where(sq.Lt{"created_at": cutoff.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
