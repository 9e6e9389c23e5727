package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	app "github.com/stocktake/backend/internal/application/reconciliation"
	"github.com/stocktake/backend/internal/interfaces/http/dto"
)

// SessionHandler handles count session API endpoints
type SessionHandler struct {
	BaseHandler
	service   *app.SessionService
	retention time.Duration
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(service *app.SessionService, retention time.Duration) *SessionHandler {
	return &SessionHandler{service: service, retention: retention}
}

// RegisterRoutes registers session routes on the API group
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.Upload)
	rg.POST("/process", h.Process)
	rg.GET("/download/:kind/:sessionID", h.Download)
	rg.GET("/sessions", h.List)
	rg.GET("/sessions/:sessionID", h.Get)
	rg.DELETE("/sessions/:sessionID", h.Delete)
	rg.POST("/cleanup", h.Cleanup)
}

// Upload receives an export file, creates a session and generates its count
// sheet. The file comes as multipart form field "file"; strategy and
// quantity_mode may be overridden per upload.
func (h *SessionHandler) Upload(c *gin.Context) {
	var opts app.UploadOptions
	if err := c.ShouldBind(&opts); err != nil {
		h.BadRequest(c, fmt.Sprintf("Invalid upload options: %v", err))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing file upload")
		return
	}
	defer file.Close()

	sess, err := h.service.Upload(c.Request.Context(), header.Filename, file, opts)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, app.ToSessionResponse(sess))
}

// Process runs reconciliation for a session. The completed count sheet comes
// as multipart form field "file" and the session as form field "session_id".
func (h *SessionHandler) Process(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		h.BadRequest(c, "Missing session_id")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing completed count sheet upload")
		return
	}
	defer file.Close()

	sess, err := h.service.Process(c.Request.Context(), sessionID, header.Filename, file)
	if err != nil {
		// A failed run still has a session with the failure recorded; the
		// error code tells the client what went wrong.
		h.DomainError(c, err)
		return
	}
	h.Success(c, app.ToSessionResponse(sess))
}

// Download streams a stored session artifact: original, template or final.
func (h *SessionHandler) Download(c *gin.Context) {
	kind := app.FileKind(c.Param("kind"))
	sessionID := c.Param("sessionID")

	rc, name, err := h.service.Download(c.Request.Context(), sessionID, kind)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	defer rc.Close()

	contentType := "text/plain; charset=utf-8"
	if kind == app.FileKindTemplate {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		_ = c.Error(err)
	}
}

// List returns sessions, newest first
func (h *SessionHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, fmt.Sprintf("Invalid pagination: %v", err))
		return
	}
	if req.Limit == 0 {
		req.Limit = dto.DefaultListRequest().Limit
	}

	sessions, total, err := h.service.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	responses := make([]app.SessionResponse, 0, len(sessions))
	for i := range sessions {
		responses = append(responses, app.ToSessionResponse(&sessions[i]))
	}
	h.SuccessWithMeta(c, responses, total, req.Limit, req.Offset)
}

// Get returns one session by ID or short ID
func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.service.Get(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, app.ToSessionResponse(sess))
}

// Delete removes a session and its stored files
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("sessionID")); err != nil {
		h.DomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Cleanup removes expired sessions past the retention window
func (h *SessionHandler) Cleanup(c *gin.Context) {
	removed, err := h.service.Cleanup(c.Request.Context(), h.retention)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, app.CleanupResponse{Removed: removed})
}
