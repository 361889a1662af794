package jobs

import "strings"

// ParseRoute extracts the job ID and action from a URL path like
// /api/trailer/{id}/{action}. The returned ID is normalized with the trailer
// prefix. An action of "" means the path addressed the job itself.
func ParseRoute(path, apiPrefix string) (jobID, action string, ok bool) {
	rest := strings.TrimPrefix(path, apiPrefix)
	if rest == path || rest == "" {
		return "", "", false
	}
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if parts[0] == "" {
		return "", "", false
	}
	jobID = NormalizeID(parts[0])
	if len(parts) == 2 {
		action = parts[1]
	}
	return jobID, action, true
}
