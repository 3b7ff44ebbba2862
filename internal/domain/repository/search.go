package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns user search text into an ILIKE pattern that matches it
// literally anywhere in the column. Queries pair it with ESCAPE '\'.
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}
