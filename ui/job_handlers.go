package ui

import (
	"fmt"
	"log"
	"net/http"

	"pbidesc/adapters/excel"
	"pbidesc/internal/errors"
	"pbidesc/internal/jobs"

	"github.com/gin-gonic/gin"
)

// handleGenerate starts describing an uploaded job in the background
func (s *Server) handleGenerate(c *gin.Context) {
	id := c.Param("id")

	if _, err := s.runner.Start(id); err != nil {
		log.Printf("[handleGenerate] Job %s not started: %v", id, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     id,
		"state":      jobs.StateRunning,
		"events_url": "/api/events?session_id=" + id,
	})
}

// handleJobStatus reports a job's state and, once done, its described rows
func (s *Server) handleJobStatus(c *gin.Context) {
	job, err := s.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{
		"job_id":   job.ID,
		"filename": job.Filename,
		"state":    job.State,
		"progress": job.Progress,
		"count":    job.Dataset.Len(),
	}
	if job.Error != "" {
		body["error"] = job.Error
	}
	if job.State == jobs.StateDone {
		body["rows"] = job.Dataset.Rows
		body["download_url"] = fmt.Sprintf("/api/jobs/%s/download", job.ID)
	}
	c.JSON(http.StatusOK, body)
}

// handleDownload serves the described workbook as an attachment
func (s *Server) handleDownload(c *gin.Context) {
	job, err := s.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if job.State != jobs.StateDone {
		respondError(c, errors.Conflict(fmt.Sprintf("job %s is %s; descriptions are not ready", job.ID, job.State)))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, excel.OutputFilename))
	c.Data(http.StatusOK, excel.MimeXLSX, job.Output)
}
