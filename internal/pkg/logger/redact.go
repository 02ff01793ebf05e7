package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "jane.doe@example.com" → "ja***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactEndpoint masks the path of a push endpoint URL. The path is a
// per-user capability token; the origin is enough for debugging.
// "https://fcm.googleapis.com/fcm/send/abc123" → "https://fcm.googleapis.com/***"
func RedactEndpoint(endpoint string) string {
	rest := endpoint
	prefix := ""
	if i := strings.Index(endpoint, "://"); i >= 0 {
		prefix = endpoint[:i+3]
		rest = endpoint[i+3:]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		return prefix + rest[:i] + "/***"
	}
	return prefix + rest
}
