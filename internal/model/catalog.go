package model

// BalanceArticle is the top-level classification of the balance sheet.
type BalanceArticle struct {
	ID   int64
	Name string
}

// BalanceGroup is a sub-classification owned by one BalanceArticle.
// Name is unique within its article.
type BalanceGroup struct {
	ID        int64
	ArticleID int64
	Name      string
}
