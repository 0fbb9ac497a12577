package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

const selectAccount = `SELECT id, number, name, type, group_id, balance FROM accounts`

func scanAccount(r rowScanner) (model.Account, error) {
	var a model.Account
	var typ string
	if err := r.Scan(&a.ID, &a.Number, &a.Name, &typ, &a.GroupID, &a.Balance); err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	return a, nil
}

// CreateArticle inserts a balance article.
func (s *DB) CreateArticle(ctx context.Context, name string) (model.BalanceArticle, error) {
	art := model.BalanceArticle{Name: name}
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`INSERT INTO balance_articles (name) VALUES (?) RETURNING id`), name,
	).Scan(&art.ID)
	if err != nil {
		return model.BalanceArticle{}, fmt.Errorf("creating article %q: %w", name, s.dialect.classify(err))
	}
	return art, nil
}

// ArticleByName looks up a balance article.
func (s *DB) ArticleByName(ctx context.Context, name string) (model.BalanceArticle, error) {
	art := model.BalanceArticle{}
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT id, name FROM balance_articles WHERE name = ?`), name,
	).Scan(&art.ID, &art.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BalanceArticle{}, fmt.Errorf("article %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return model.BalanceArticle{}, fmt.Errorf("reading article %q: %w", name, s.dialect.classify(err))
	}
	return art, nil
}

// ListArticles returns all balance articles ordered by name.
func (s *DB) ListArticles(ctx context.Context) ([]model.BalanceArticle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM balance_articles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", s.dialect.classify(err))
	}
	defer rows.Close()

	var result []model.BalanceArticle
	for rows.Next() {
		var art model.BalanceArticle
		if err := rows.Scan(&art.ID, &art.Name); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		result = append(result, art)
	}
	return result, rows.Err()
}

// DeleteArticle removes an article that no group references.
func (s *DB) DeleteArticle(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "balance_articles", id)
}

// CreateGroup inserts a balance group under an article.
func (s *DB) CreateGroup(ctx context.Context, articleID int64, name string) (model.BalanceGroup, error) {
	g := model.BalanceGroup{ArticleID: articleID, Name: name}
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`INSERT INTO balance_groups (article_id, name) VALUES (?, ?) RETURNING id`),
		articleID, name,
	).Scan(&g.ID)
	if err != nil {
		return model.BalanceGroup{}, fmt.Errorf("creating group %q: %w", name, s.dialect.classify(err))
	}
	return g, nil
}

// GroupByName looks up a group within an article.
func (s *DB) GroupByName(ctx context.Context, articleID int64, name string) (model.BalanceGroup, error) {
	g := model.BalanceGroup{}
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT id, article_id, name FROM balance_groups WHERE article_id = ? AND name = ?`),
		articleID, name,
	).Scan(&g.ID, &g.ArticleID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BalanceGroup{}, fmt.Errorf("group %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return model.BalanceGroup{}, fmt.Errorf("reading group %q: %w", name, s.dialect.classify(err))
	}
	return g, nil
}

// Group returns a balance group by ID.
func (s *DB) Group(ctx context.Context, id int64) (model.BalanceGroup, error) {
	g := model.BalanceGroup{}
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT id, article_id, name FROM balance_groups WHERE id = ?`), id,
	).Scan(&g.ID, &g.ArticleID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BalanceGroup{}, fmt.Errorf("group %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.BalanceGroup{}, fmt.Errorf("reading group %d: %w", id, s.dialect.classify(err))
	}
	return g, nil
}

// ListGroups returns all balance groups ordered by article and name.
func (s *DB) ListGroups(ctx context.Context) ([]model.BalanceGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, article_id, name FROM balance_groups ORDER BY article_id, name`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", s.dialect.classify(err))
	}
	defer rows.Close()

	var result []model.BalanceGroup
	for rows.Next() {
		var g model.BalanceGroup
		if err := rows.Scan(&g.ID, &g.ArticleID, &g.Name); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// DeleteGroup removes a group that no account references.
func (s *DB) DeleteGroup(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "balance_groups", id)
}

// CreateAccount inserts an account with a zero balance. a.Number must be set;
// any balance on a is ignored.
func (s *DB) CreateAccount(ctx context.Context, a model.Account) (model.Account, error) {
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`INSERT INTO accounts (number, name, type, group_id, balance) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		a.Number, a.Name, string(a.Type), a.GroupID, "0.00",
	).Scan(&a.ID)
	if err != nil {
		return model.Account{}, fmt.Errorf("creating account %s: %w", a.Number, s.dialect.classify(err))
	}
	a.Balance = decimal.Zero
	return a, nil
}

// Account returns an account by ID.
func (s *DB) Account(ctx context.Context, id int64) (model.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, s.dialect.rebind(selectAccount+" WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("reading account %d: %w", id, s.dialect.classify(err))
	}
	return a, nil
}

// AccountByNumber returns an account by its number.
func (s *DB) AccountByNumber(ctx context.Context, number string) (model.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, s.dialect.rebind(selectAccount+" WHERE number = ?"), number))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %s: %w", number, model.ErrNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("reading account %s: %w", number, s.dialect.classify(err))
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by number.
func (s *DB) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, selectAccount+" ORDER BY number")
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", s.dialect.classify(err))
	}
	defer rows.Close()

	var result []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", s.dialect.classify(err))
	}
	return result, nil
}

// DeleteAccount removes an account that no transaction references.
func (s *DB) DeleteAccount(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "accounts", id)
}

// deleteByID relies on ON DELETE RESTRICT foreign keys to refuse deleting
// referenced rows.
func (s *DB) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", table, id, s.dialect.classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", table, id, s.dialect.classify(err))
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, model.ErrNotFound)
	}
	return nil
}
