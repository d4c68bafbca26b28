package utils

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error sends a standard error response of the shape {"error": "..."}.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, gin.H{"error": errorMessage})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// InternalServerError sends a 500 response with a generic message and logs
// the detail server-side. Collaborator failures never leak to the client.
func InternalServerError(c *gin.Context, detail string) {
	log.Printf("internal error: %s", detail)
	Error(c, http.StatusInternalServerError, "Internal server error")
}
