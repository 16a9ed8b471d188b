package jobs

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/murmurlabs/verbatim/pkg/errorsx"
	"github.com/murmurlabs/verbatim/pkg/provider"
)

// RegisterRoutes mounts the webhook receiver and the status query.
func RegisterRoutes(r gin.IRouter, p *Pipeline) {
	r.POST("/callback/:provider/:job_id", handleCallback(p))
	r.GET("/jobs/:job_id", handleStatus(p))
}

// handleCallback answers 200 for every processed delivery; the provider's
// own success/error distinction lands in job state, not the HTTP status.
func handleCallback(p *Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, ok := provider.ForName(c.Param("provider"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
			return
		}

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		err = p.HandleCallback(c.Request.Context(), name, c.Param("job_id"), c.Query("secret"), payload)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		case errorsx.HasReason(err, errorsx.ReasonJobSecret):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		case errorsx.HasReason(err, errorsx.ReasonJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		case errorsx.HasReason(err, errorsx.ReasonJobConfig):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "callback processing failed"})
		}
	}
}

type statusResponse struct {
	ID        string          `json:"id"`
	Provider  string          `json:"provider"`
	Status    Status          `json:"status"`
	RawResult json.RawMessage `json:"raw_result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func handleStatus(p *Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := p.Status(c.Param("job_id"))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, statusResponse{
				ID:        job.ID,
				Provider:  job.Provider,
				Status:    job.Status,
				RawResult: job.RawResult,
				Error:     job.ErrorMsg,
			})
		case errorsx.HasReason(err, errorsx.ReasonJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		}
	}
}
