package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// ImmutableCache marks responses as publicly cacheable and immutable.
// Upload filenames are random per upload and their bytes never change
// after the write, so clients never need to revalidate them.
func ImmutableCache(maxAgeSeconds int) gin.HandlerFunc {
	value := fmt.Sprintf("public, max-age=%d, immutable", maxAgeSeconds)
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
