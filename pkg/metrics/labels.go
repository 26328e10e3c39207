package metrics

import "strconv"

// tableLabel renders a catalog db_id/table_id as a Prometheus label value.
func tableLabel(id int) string {
	return strconv.Itoa(id)
}
