package handler

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"smartcampus/internal/portal"
)

func (h *Handler) ListAnnouncements(c *gin.Context) {
	list, err := h.Portal.Announcements(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": list})
}

func (h *Handler) CreateAnnouncement(c *gin.Context) {
	var a portal.Announcement
	if err := c.ShouldBindJSON(&a); err != nil {
		h.badRequest(c, err)
		return
	}
	a, err := h.Portal.Announce(c.Request.Context(), a)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListResources(c *gin.Context) {
	list, err := h.Portal.Resources(c.Request.Context(), c.Query("kind"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": list})
}

// UploadResource stores a notes or syllabus file from a multipart form with
// fields kind, subject, topic and file.
func (h *Handler) UploadResource(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload()+1<<20)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()
	if header.Size > h.maxUpload() {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}

	res, err := h.Portal.Upload(c.Request.Context(), portal.Upload{
		Kind:        c.PostForm("kind"),
		Subject:     c.PostForm("subject"),
		Topic:       c.PostForm("topic"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ResourceFile redirects to the remote copy or streams the stored file.
func (h *Handler) ResourceFile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, portal.ErrNotFound)
		return
	}
	res, rc, err := h.Portal.Open(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if rc == nil {
		c.Redirect(http.StatusFound, res.FileURL)
		return
	}
	defer rc.Close()
	contentType := mime.TypeByExtension(path.Ext(res.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": mime.FormatMediaType("inline", map[string]string{"filename": res.FileName}),
	})
}

// Activity suggests a study activity.
func (h *Handler) Activity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"suggestion": h.Portal.Suggestion()})
}
