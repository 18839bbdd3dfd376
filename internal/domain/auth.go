package domain

import "time"

// SubjectType differentiates token holders.
type SubjectType string

const (
	SubjectTypeOperator SubjectType = "OPERATOR"
)

// Token represents issued console token metadata.
type Token struct {
	SubjectID int64
	Subject   SubjectType
	ExpiresAt time.Time
	IssuedAt  time.Time
}
