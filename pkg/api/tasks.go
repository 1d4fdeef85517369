package api

import (
	"errors"
	"net/http"

	"github.com/cuemby/burrow/pkg/cloud"
	"github.com/cuemby/burrow/pkg/manager"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request. Error is the full
// message; the remaining fields carry the parts of a typed error so clients
// can rebuild it.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`

	Field  string `json:"field,omitempty"`
	Name   string `json:"name,omitempty"`
	Op     string `json:"op,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewErrorResponse builds the response body for err
func NewErrorResponse(err error, requestID string) ErrorResponse {
	resp := ErrorResponse{Error: err.Error(), RequestID: requestID}

	var (
		precondition *manager.PreconditionError
		conflict     *manager.ConflictError
		invalid      *manager.InvalidParameterError
		apiErr       *cloud.APIError
	)
	switch {
	case errors.As(err, &invalid):
		resp.Field, resp.Reason = invalid.Field, invalid.Message
	case errors.As(err, &conflict):
		resp.Name, resp.Reason = conflict.Name, conflict.Reason
	case errors.As(err, &precondition):
		resp.Reason = precondition.Message
	case errors.As(err, &apiErr):
		resp.Op = apiErr.Op
		if apiErr.Err != nil {
			resp.Reason = apiErr.Err.Error()
		}
	}
	return resp
}

// StopResponse is the body of a successful stop
type StopResponse struct {
	TaskARN    string `json:"task_arn"`
	LastStatus string `json:"last_status"`
}

func (s *Server) listTasks(c *gin.Context) {
	views, err := s.manager.List(c.Request.Context())
	s.trackHealth(err)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) createTask(c *gin.Context) {
	var req manager.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, &manager.InvalidParameterError{Field: "body", Message: err.Error()})
		return
	}

	result, err := s.manager.Create(c.Request.Context(), req)
	s.trackHealth(err)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) stopTask(c *gin.Context) {
	task, err := s.manager.Stop(c.Request.Context(), c.Param("arn"))
	s.trackHealth(err)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, StopResponse{TaskARN: task.TaskARN, LastStatus: task.LastStatus})
}

func (s *Server) deleteTask(c *gin.Context) {
	err := s.manager.Delete(c.Request.Context(), c.Param("name"), c.Query("task_arn"))
	s.trackHealth(err)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StatusCode maps an operation error to its HTTP status
func StatusCode(err error) int {
	var (
		precondition *manager.PreconditionError
		conflict     *manager.ConflictError
		invalid      *manager.InvalidParameterError
		apiErr       *cloud.APIError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &precondition):
		return http.StatusPreconditionFailed
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		// Includes *registry.CorruptionError
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	code := StatusCode(err)
	id := c.GetString(requestIDKey)
	logger := s.logger.With().Str("request_id", id).Logger()
	if code >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", code).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", code).Msg("Request rejected")
	}
	c.AbortWithStatusJSON(code, NewErrorResponse(err, id))
}

// trackHealth feeds operation outcomes into the health endpoints. Errors
// that do not implicate a component leave its state alone.
func (s *Server) trackHealth(err error) {
	var (
		apiErr  *cloud.APIError
		corrupt *registry.CorruptionError
	)
	switch {
	case err == nil:
		metrics.Report(metrics.ComponentAWS, nil)
		metrics.Report(metrics.ComponentRegistry, nil)
	case errors.As(err, &apiErr):
		metrics.Report(metrics.ComponentAWS, apiErr)
	case errors.As(err, &corrupt):
		metrics.Report(metrics.ComponentRegistry, corrupt)
	}
}
