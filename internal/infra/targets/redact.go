package targets

import (
	"net/url"
	"strings"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

const mask = "****"

var secretKeys = map[string]bool{
	"password":    true,
	"pass":        true,
	"pwd":         true,
	"sslpassword": true,
}

// RedactDSN masks credentials in URL and keyword/value DSNs. Anything else is
// masked entirely since its secrets cannot be located.
func RedactDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return redactURL(u)
	}

	parts := splitKeywords(dsn)
	redacted := false
	for i, part := range parts {
		key, _, ok := strings.Cut(part, "=")
		if ok && secretKeys[strings.ToLower(key)] {
			parts[i] = key + "=" + mask
			redacted = true
		}
	}
	if !redacted {
		return mask
	}
	return strings.Join(parts, " ")
}

func redactURL(u *url.URL) string {
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), mask)
	}
	q := u.Query()
	for k := range q {
		if secretKeys[strings.ToLower(k)] {
			q.Set(k, mask)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// splitKeywords splits a libpq keyword/value string on whitespace outside
// single-quoted values.
func splitKeywords(dsn string) []string {
	var (
		parts  []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(dsn); i++ {
		c := dsn[i]
		switch {
		case c == '\\' && quoted && i+1 < len(dsn):
			cur.WriteByte(c)
			i++
			cur.WriteByte(dsn[i])
		case c == '\'':
			quoted = !quoted
			cur.WriteByte(c)
		case !quoted && (c == ' ' || c == '\t' || c == '\n'):
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// Destination describes where a target writes without exposing credentials.
// SQLite paths carry no secrets and are shown without their query string.
func Destination(t *domain.TargetConfig) string {
	if t == nil {
		return ""
	}
	if t.Kind == domain.SinkSQLite {
		path, _, _ := strings.Cut(strings.TrimPrefix(t.DSN, "file:"), "?")
		return path + "#" + t.Table
	}
	return RedactDSN(t.DSN) + "#" + t.Table
}
