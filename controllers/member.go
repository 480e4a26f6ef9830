package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proposal-management-api/services"
)

func GetMembers(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	rows, err := current().Members.List(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"members": rows, "total": len(rows)})
}

func AddMember(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in services.MemberInput
	if !bindJSON(c, &in) {
		return
	}
	m, err := current().Members.Add(c.Request.Context(), actor(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"member": m, "message": "Invitation sent"})
}

func ApproveMember(c *gin.Context) {
	answerInvitation(c, true)
}

func RejectMember(c *gin.Context) {
	answerInvitation(c, false)
}

func answerInvitation(c *gin.Context, approve bool) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	memberID, ok := uintParam(c, "memberId")
	if !ok {
		return
	}

	svc := current().Members
	answer, msg := svc.Reject, "Invitation rejected"
	if approve {
		answer, msg = svc.Approve, "Invitation approved"
	}
	m, err := answer(c.Request.Context(), actor(c), id, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"member": m, "message": msg})
}

func RemoveMember(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	memberID, ok := uintParam(c, "memberId")
	if !ok {
		return
	}
	if err := current().Members.Remove(c.Request.Context(), actor(c), id, memberID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Member removed"})
}
