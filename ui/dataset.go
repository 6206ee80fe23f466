package ui

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"pbidesc/adapters/excel"
	"pbidesc/internal/errors"
	"pbidesc/models"

	"github.com/gin-gonic/gin"
)

var validExtensions = []string{".xlsx", ".csv"}

// handleFileUpload parses an uploaded metadata file and registers it as a job
func (s *Server) handleFileUpload(c *gin.Context) {
	log.Printf("[handleFileUpload] Starting file upload process")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		log.Printf("[handleFileUpload] FAILED - No file uploaded: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded", "code": errors.CodeInvalidInput})
		return
	}
	defer file.Close()

	maxFileSize := int64(s.opts.MaxUploadMB) << 20
	if header.Size > maxFileSize {
		log.Printf("[handleFileUpload] FAILED - File too large: %d bytes", header.Size)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File size (%.1f MB) exceeds the %dMB limit", float64(header.Size)/(1024*1024), s.opts.MaxUploadMB),
			"code":  errors.CodeInvalidInput,
		})
		return
	}

	filename := filepath.Base(header.Filename)
	if !hasValidExtension(filename) {
		log.Printf("[handleFileUpload] FAILED - Invalid file extension: %s", filename)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only Excel (.xlsx) and CSV (.csv) files are allowed", "code": errors.CodeInvalidInput})
		return
	}

	ds, err := excel.Parse(file, filename)
	if err != nil {
		respondError(c, err)
		return
	}

	job := s.store.Create(ds)
	log.Printf("[handleFileUpload] Job %s created from %s (%d rows)", job.ID, filename, ds.Len())

	c.JSON(http.StatusOK, gin.H{
		"message":  "File uploaded successfully!",
		"job_id":   job.ID,
		"filename": filename,
		"count":    ds.Len(),
		"measures": ds.MeasureCount(),
		"rows":     previewRows(ds),
	})
}

// respondError maps pipeline errors onto JSON responses. Validation and parse
// failures name the problem; anything else gets the generic message.
func respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)

	if status == http.StatusInternalServerError {
		log.Printf("[respondError] Unexpected failure: %v", err)
		c.JSON(status, gin.H{
			"error": fmt.Sprintf("An error occurred while processing the file: %v", err),
			"code":  errors.CodeInternalError,
		})
		return
	}

	body := gin.H{"error": err.Error(), "code": code}
	if missing := errors.MissingColumnNames(err); len(missing) > 0 {
		body["missing_columns"] = missing
		body["required_columns"] = models.RequiredColumns
		body["error"] = fmt.Sprintf("The uploaded file must contain the following columns: %s (missing: %s)",
			strings.Join(models.RequiredColumns, ", "), strings.Join(missing, ", "))
	}
	c.JSON(status, body)
}

func previewRows(ds *models.Dataset) []models.Row {
	if ds.Rows == nil {
		return []models.Row{}
	}
	return ds.Rows
}

func hasValidExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, valid := range validExtensions {
		if ext == valid {
			return true
		}
	}
	return false
}
