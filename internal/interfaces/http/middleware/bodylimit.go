package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medbill/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request body size. Spreadsheet uploads are the only
// large bodies this API accepts, so the cap tracks the configured
// upload limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse("REQUEST_TOO_LARGE", "Request body exceeds maximum allowed size", c.GetString("request_id")))
			return
		}

		// Chunked requests carry no Content-Length; the limited
		// reader catches those while streaming.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
