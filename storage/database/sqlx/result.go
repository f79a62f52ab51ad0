package sqlxrepos

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core"
)

// checkAffected validates the result of a write keyed on at most max primary keys.
// No affected row yields notFound, when set. More than max rows means the primary key no
// longer identifies a single row, which is reported as a shutdown error.
func checkAffected(res sql.Result, max int, notFound error) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting affected rows")
	}
	if n == 0 && notFound != nil {
		return 0, notFound
	}
	if n > int64(max) {
		return int(n), core.NewShutdownError(fmt.Sprintf("integrity issue: %d rows affected, expected at most %d", n, max))
	}
	return int(n), nil
}
