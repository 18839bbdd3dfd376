package service

import (
	"math"

	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// PageSize is the fixed listing size for every paginated view.
const PageSize = 9

// maxPage bounds the offset arithmetic. Any page past it is read as maxPage,
// which lies beyond every stored row, so it comes back empty.
const maxPage = math.MaxInt32 / PageSize

// Page is one window of a listing. HasNext is true whenever the page came
// back full, so a full last page is followed by an empty one.
type Page[T any] struct {
	Items   []T
	Number  int
	HasNext bool
}

// IsEmpty reports a page with no items.
func (p Page[T]) IsEmpty() bool {
	return len(p.Items) == 0
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool {
	return p.Number > 1
}

func pageWindow(page int) (limit, offset int, err error) {
	if page < 1 {
		return 0, 0, apperrors.NewValidationError("page must be at least 1", map[string]any{"page": page})
	}
	if page > maxPage {
		page = maxPage
	}
	return PageSize, (page - 1) * PageSize, nil
}

func newPage[T any](items []T, number int) Page[T] {
	return Page[T]{
		Items:   items,
		Number:  number,
		HasNext: len(items) == PageSize,
	}
}
