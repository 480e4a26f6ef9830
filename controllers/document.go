package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"proposal-management-api/apperrors"
	"proposal-management-api/services"
)

// UploadDocument stores one attachment. Multipart fields: file, document_type.
func UploadDocument(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	d := current()
	if d.MaxUploadBytes > 0 {
		// Room for the multipart envelope on top of the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, d.MaxUploadBytes+1<<20)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file uploaded")
		return
	}
	if d.MaxUploadBytes > 0 && fileHeader.Size > d.MaxUploadBytes {
		respondError(c, apperrors.ValidationFields("documents.upload", map[string]string{"file": "max_size"}))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "Unable to read uploaded file")
		return
	}
	defer file.Close()

	doc, err := d.Documents.Upload(c.Request.Context(), actor(c), id, services.UploadInput{
		DocumentType: c.PostForm("document_type"),
		Filename:     fileHeader.Filename,
	}, file)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"document": doc, "message": "File uploaded successfully"})
}

func GetDocuments(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	rows, err := current().Documents.List(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"documents": rows, "total": len(rows)})
}

// DownloadDocument handles document download
func DownloadDocument(c *gin.Context) {
	id, ok := uintParam(c, "documentId")
	if !ok {
		return
	}
	doc, rc, err := current().Documents.Download(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, doc.FileSize, doc.MimeType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.OriginalFilename),
	})
}

func DeleteDocument(c *gin.Context) {
	id, ok := uintParam(c, "documentId")
	if !ok {
		return
	}
	if err := current().Documents.Delete(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Document deleted successfully"})
}
