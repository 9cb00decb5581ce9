package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders sets the headers every response carries.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		csp := "default-src 'self';"
		csp += " script-src 'self' 'unsafe-inline' unpkg.com cdn.jsdelivr.net cdn.tailwindcss.com;"
		csp += " style-src 'self' 'unsafe-inline' cdn.tailwindcss.com;"
		csp += " img-src 'self' data: https:;"
		c.Header("Content-Security-Policy", csp)

		c.Next()
	}
}
