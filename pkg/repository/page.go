package repository

import (
	"context"
	"fmt"

	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/query"
)

// QueryPage counts the rows b selects and scans the requested page. An
// explicit page.Sort replaces the builder's default order. page must
// already be normalized.
func QueryPage[T any](
	ctx context.Context,
	q Querier,
	b *query.Builder,
	page pagination.PageRequest,
	scan ScanFunc[T],
) (*pagination.PageResult[T], error) {
	if len(page.Sort) > 0 {
		b.OrderByFields(page.Sort)
	}

	countSQL, countArgs := b.BuildCount()
	var total int
	if err := q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	pageSQL, pageArgs := b.BuildPage(page.Page, page.PageSize)
	items, err := QueryMany(ctx, q, pageSQL, pageArgs, scan)
	if err != nil {
		return nil, err
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}
