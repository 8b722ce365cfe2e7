// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/verdict-cms/internal/i18n"
)

func I18nMiddleware() gin.HandlerFunc {
	supported := map[string]bool{}
	for _, lang := range i18n.GetSupportedLanguages() {
		supported[lang] = true
	}

	return func(c *gin.Context) {
		c.Set("lang", preferredLanguage(c.GetHeader("Accept-Language"), supported))
		c.Next()
	}
}

// preferredLanguage picks the first supported base language from an
// Accept-Language header such as "es-MX,es;q=0.9,en;q=0.8".
func preferredLanguage(header string, supported map[string]bool) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		base := strings.ToLower(strings.SplitN(strings.ReplaceAll(tag, "_", "-"), "-", 2)[0])
		if supported[base] {
			return base
		}
	}
	return "en" // Default language
}
