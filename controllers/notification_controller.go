package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetNotifications lists the caller's notifications. Query: unread=true.
func GetNotifications(c *gin.Context) {
	unreadOnly := strings.EqualFold(c.Query("unread"), "true") || c.Query("unread") == "1"
	rows, err := current().Notifications.List(c.Request.Context(), actor(c).ID, unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	unread := 0
	for _, n := range rows {
		if !n.IsRead {
			unread++
		}
	}
	respondOK(c, http.StatusOK, gin.H{
		"notifications": rows,
		"total":         len(rows),
		"unread":        unread,
	})
}

func MarkNotificationRead(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := current().Notifications.MarkRead(c.Request.Context(), actor(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Notification marked as read"})
}
