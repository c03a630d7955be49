// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// I18nMiddleware picks the response language from Accept-Language. French
// and English are served; anything else falls back to defaultLang.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", ParseLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

// ParseLanguage handles headers like "fr-FR,fr;q=0.9,en;q=0.8" by looking at
// the first preference only.
func ParseLanguage(header, defaultLang string) string {
	if header == "" {
		return defaultLang
	}

	first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	switch strings.ToLower(first) {
	case "fr", "fr-fr", "fr-be", "fr-ca", "fr-ch", "fr_fr":
		return "fr"
	case "en", "en-us", "en-gb", "en_us":
		return "en"
	default:
		return defaultLang
	}
}
