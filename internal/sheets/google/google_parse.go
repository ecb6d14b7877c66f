package google

import (
	"fmt"
	"strings"
)

// toTable stringifies the loosely typed cell matrix returned by the Sheets API.
func toTable(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		out = append(out, toStrings(row))
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
