package tickets

import "strings"

// priorityRank sorts high before medium before low; unknown values last.
const priorityRank = `CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 99 END`

var orderColumns = map[string]string{
	"priority":   priorityRank,
	"created_at": "created_at",
}

// orderClause turns a comma list such as "-priority,created_at" into an
// ORDER BY expression. Unknown or repeated fields are ignored. An empty
// result falls back to newest first. The id is always the final tie-break.
func orderClause(ordering string) string {
	var parts []string
	seen := map[string]bool{}
	for _, raw := range strings.Split(ordering, ",") {
		field := strings.TrimSpace(raw)
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		col, ok := orderColumns[field]
		if !ok || seen[field] {
			continue
		}
		seen[field] = true
		if desc {
			parts = append(parts, col+" DESC")
		} else {
			parts = append(parts, col+" ASC")
		}
	}
	if len(parts) == 0 {
		parts = []string{"created_at DESC"}
	}
	return strings.Join(append(parts, "id DESC"), ", ")
}

// searchTerms splits a search string on whitespace and commas.
func searchTerms(search string) []string {
	return strings.FieldsFunc(search, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// likePattern escapes LIKE wildcards and wraps the lower-cased term in %.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}
