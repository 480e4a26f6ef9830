package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSchemes returns the active funding schemes.
func GetSchemes(c *gin.Context) {
	rows, err := current().Schemes.Active(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"schemes": rows, "total": len(rows)})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Proposal Management API is running",
	})
}
