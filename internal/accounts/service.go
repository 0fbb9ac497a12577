// Package accounts manages the chart of accounts: balance articles, balance
// groups and the accounts under them.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
)

// maxNumberAttempts bounds how many generated numbers CreateAccount tries
// before giving up on collisions.
const maxNumberAttempts = 5

// Catalog is the storage the account service works against.
type Catalog interface {
	CreateArticle(ctx context.Context, name string) (model.BalanceArticle, error)
	ArticleByName(ctx context.Context, name string) (model.BalanceArticle, error)
	ListArticles(ctx context.Context) ([]model.BalanceArticle, error)
	DeleteArticle(ctx context.Context, id int64) error

	CreateGroup(ctx context.Context, articleID int64, name string) (model.BalanceGroup, error)
	GroupByName(ctx context.Context, articleID int64, name string) (model.BalanceGroup, error)
	ListGroups(ctx context.Context) ([]model.BalanceGroup, error)
	DeleteGroup(ctx context.Context, id int64) error

	CreateAccount(ctx context.Context, a model.Account) (model.Account, error)
	Account(ctx context.Context, id int64) (model.Account, error)
	AccountByNumber(ctx context.Context, number string) (model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
}

// Service provides the account catalog operations.
type Service struct {
	catalog Catalog
	numbers id.Generator
	log     *zap.Logger
}

// NewService creates a Service. numbers supplies account numbers; log may be nil.
func NewService(catalog Catalog, numbers id.Generator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{catalog: catalog, numbers: numbers, log: log}
}

// NewAccount holds the caller-supplied fields of an account.
type NewAccount struct {
	Name    string
	Type    model.AccountType
	GroupID int64
}

// CreateArticle adds a balance article.
func (s *Service) CreateArticle(ctx context.Context, name string) (model.BalanceArticle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.BalanceArticle{}, fmt.Errorf("article name is required: %w", model.ErrValidation)
	}
	return s.catalog.CreateArticle(ctx, name)
}

// CreateGroup adds a balance group under an article.
func (s *Service) CreateGroup(ctx context.Context, articleID int64, name string) (model.BalanceGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.BalanceGroup{}, fmt.Errorf("group name is required: %w", model.ErrValidation)
	}
	return s.catalog.CreateGroup(ctx, articleID, name)
}

// CreateAccount adds an account with a zero balance and a freshly generated
// number. A number that collides with an existing account is replaced.
func (s *Service) CreateAccount(ctx context.Context, na NewAccount) (model.Account, error) {
	name := strings.TrimSpace(na.Name)
	if name == "" {
		return model.Account{}, fmt.Errorf("account name is required: %w", model.ErrValidation)
	}
	if _, err := model.ParseAccountType(string(na.Type)); err != nil {
		return model.Account{}, fmt.Errorf("%w: %w", model.ErrValidation, err)
	}

	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Next()
		if err != nil {
			return model.Account{}, fmt.Errorf("generating account number: %w", err)
		}

		acct, err := s.catalog.CreateAccount(ctx, model.Account{
			Number:  number,
			Name:    name,
			Type:    na.Type,
			GroupID: na.GroupID,
		})
		if err == nil {
			s.log.Info("account created",
				zap.Int64("account_id", acct.ID),
				zap.String("number", acct.Number),
				zap.String("type", string(acct.Type)),
			)
			return acct, nil
		}
		if !errors.Is(err, model.ErrDuplicate) || attempt >= maxNumberAttempts {
			return model.Account{}, err
		}
		s.log.Debug("account number collision", zap.String("number", number), zap.Int("attempt", attempt))
	}
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, id int64) (model.Account, error) {
	return s.catalog.Account(ctx, id)
}

// ByNumber returns an account by its number.
func (s *Service) ByNumber(ctx context.Context, number string) (model.Account, error) {
	if !id.ValidAccountNumber(number, id.AccountNumberDigits) {
		return model.Account{}, fmt.Errorf("account number %q must be %d digits: %w", number, id.AccountNumberDigits, model.ErrValidation)
	}
	return s.catalog.AccountByNumber(ctx, number)
}

// List returns all accounts ordered by number.
func (s *Service) List(ctx context.Context) ([]model.Account, error) {
	return s.catalog.ListAccounts(ctx)
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(ctx context.Context, accountType model.AccountType) ([]model.Account, error) {
	all, err := s.catalog.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	var result []model.Account
	for _, a := range all {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result, nil
}

// Delete removes an account. It fails with model.ErrProtected while any
// transaction references the account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.catalog.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.log.Info("account deleted", zap.Int64("account_id", id))
	return nil
}

// DeleteGroup removes a group. It fails with model.ErrProtected while any
// account belongs to it.
func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	return s.catalog.DeleteGroup(ctx, id)
}

// DeleteArticle removes an article. It fails with model.ErrProtected while
// any group belongs to it.
func (s *Service) DeleteArticle(ctx context.Context, id int64) error {
	return s.catalog.DeleteArticle(ctx, id)
}

// Seed creates the accounts of a chart, creating any article or group it
// names that does not exist yet.
func (s *Service) Seed(ctx context.Context, chart []ChartEntry) ([]model.Account, error) {
	articles := make(map[string]model.BalanceArticle)
	groups := make(map[string]model.BalanceGroup)

	created := make([]model.Account, 0, len(chart))
	for i, e := range chart {
		art, ok := articles[e.Article]
		if !ok {
			var err error
			if art, err = s.ensureArticle(ctx, e.Article); err != nil {
				return created, fmt.Errorf("entry %d: %w", i+1, err)
			}
			articles[e.Article] = art
		}

		key := e.Article + "\x00" + e.Group
		g, ok := groups[key]
		if !ok {
			var err error
			if g, err = s.ensureGroup(ctx, art.ID, e.Group); err != nil {
				return created, fmt.Errorf("entry %d: %w", i+1, err)
			}
			groups[key] = g
		}

		acct, err := s.CreateAccount(ctx, NewAccount{Name: e.Name, Type: e.Type, GroupID: g.ID})
		if err != nil {
			return created, fmt.Errorf("entry %d (%s): %w", i+1, e.Name, err)
		}
		created = append(created, acct)
	}
	return created, nil
}

func (s *Service) ensureArticle(ctx context.Context, name string) (model.BalanceArticle, error) {
	art, err := s.catalog.ArticleByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, model.ErrNotFound) {
		return s.CreateArticle(ctx, name)
	}
	return art, err
}

func (s *Service) ensureGroup(ctx context.Context, articleID int64, name string) (model.BalanceGroup, error) {
	g, err := s.catalog.GroupByName(ctx, articleID, strings.TrimSpace(name))
	if errors.Is(err, model.ErrNotFound) {
		return s.CreateGroup(ctx, articleID, name)
	}
	return g, err
}

// Export returns every account joined with its group and article names,
// ordered by account number.
func (s *Service) Export(ctx context.Context) ([]ChartRow, error) {
	arts, err := s.catalog.ListArticles(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.catalog.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	accts, err := s.catalog.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	artNames := make(map[int64]string, len(arts))
	for _, a := range arts {
		artNames[a.ID] = a.Name
	}
	byID := make(map[int64]model.BalanceGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	rows := make([]ChartRow, 0, len(accts))
	for _, a := range accts {
		g := byID[a.GroupID]
		rows = append(rows, ChartRow{Account: a, Article: artNames[g.ArticleID], Group: g.Name})
	}
	return rows, nil
}
