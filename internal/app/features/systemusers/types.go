// internal/app/features/systemusers/types.go
package systemusers

import (
	"time"

	"github.com/dalemusser/souqhub/internal/app/system/paging"
	"github.com/dalemusser/souqhub/internal/app/system/viewdata"
)

// Row used in the users list.
type userRow struct {
	ID        string
	Username  string
	FullName  string
	IsAdmin   bool
	IsSelf    bool
	CreatedAt time.Time
}

// View model for the users list page.
type listData struct {
	viewdata.BaseVM

	SearchQuery string
	Rows        []userRow
	Range       paging.Range
}
