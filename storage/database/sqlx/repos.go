// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/trezcool/masomo-dashboard/core"
)

// orderBy renders an ORDER BY clause, always ending with the primary key.
// Fields not in `allowed` are skipped: they never reach the query.
func orderBy(ords []core.DBOrdering, allowed ...string) string {
	clauses := make([]string, 0, len(ords)+1)
	for _, ord := range ords {
		for _, field := range allowed {
			if ord.Field == field {
				clauses = append(clauses, ord.String())
				break
			}
		}
	}
	clauses = append(clauses, "id ASC")
	return " ORDER BY " + strings.Join(clauses, ", ")
}
