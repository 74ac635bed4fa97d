package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresRepository(db), mock
}

func TestPostgresExists(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	query := regexp.QuoteMeta("SELECT 1 FROM articles WHERE (hashed_url = $1 OR url = $2) LIMIT 1")

	mock.ExpectQuery(query).WithArgs("fp", "https://example.com/a").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(query).WithArgs("fp2", "https://example.com/b").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	ok, err := repo.Exists(context.Background(), "fp", "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), "fp2", "https://example.com/b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertMapsUniqueViolation(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	insert := regexp.QuoteMeta("INSERT INTO articles (title,url,hashed_url,content,published_at,summary,suggestion,confidence_score,source) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id")

	article := domain.NewArticle(domain.ScrapeResult{
		Title:       "Chips",
		URL:         "https://techcrunch.com/2025/10/06/chips/",
		Body:        "body",
		PublishedAt: time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC),
		Source:      domain.SourceTechCrunch,
	})

	mock.ExpectQuery(insert).
		WithArgs("Chips", article.URL, article.Fingerprint, "body", article.PublishedAt, nil, nil, nil, "TechCrunch").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectQuery(insert).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectQuery(insert).
		WillReturnError(errors.New("connection refused"))

	id, err := repo.Insert(context.Background(), article)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	_, err = repo.Insert(context.Background(), article)
	assert.ErrorIs(t, err, domain.ErrDuplicateArticle)

	_, err = repo.Insert(context.Background(), article)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicateArticle)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	query := regexp.QuoteMeta("SELECT id, title, url, hashed_url, content, published_at, summary, suggestion, confidence_score, source, created_at, updated_at FROM articles WHERE id = $1")
	now := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(query).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(articleColumns).
			AddRow(7, "Title", "https://x.test/a", "fp", "body", now, "sum", nil, 0.8, "Reuters", now, now))
	mock.ExpectQuery(query).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(articleColumns))

	a, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Title", a.Title)
	require.NotNil(t, a.Summary)
	assert.Equal(t, "sum", *a.Summary)
	assert.Nil(t, a.Suggestion)
	require.NotNil(t, a.ConfidenceScore)
	assert.InDelta(t, 0.8, *a.ConfidenceScore, 1e-9)
	assert.Equal(t, domain.SourceReuters, a.Source)

	_, err = repo.Get(context.Background(), 8)
	assert.ErrorIs(t, err, domain.ErrArticleNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	update := regexp.QuoteMeta("UPDATE articles SET title = $1, content = $2, summary = $3, suggestion = $4, confidence_score = $5, updated_at = NOW() WHERE id = $6")

	summary, suggestion, score := "s", "Key Impact: x\nInvestment Suggestion: y", 0.9
	article := domain.Article{ID: 3, Title: "t", Body: "b", Summary: &summary, Suggestion: &suggestion, ConfidenceScore: &score}

	mock.ExpectExec(update).WithArgs("t", "b", "s", suggestion, 0.9, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Update(context.Background(), article))
	assert.ErrorIs(t, repo.Update(context.Background(), article), domain.ErrArticleNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteOlderThan(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	cutoff := time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM articles WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS articles").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
