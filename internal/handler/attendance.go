package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smartcampus/internal/auth"
	"smartcampus/internal/recognition"
	"smartcampus/internal/worker"
)

// readFrame accepts a multipart "frame" file or a JSON {"frame": base64}.
// Bodies over the upload limit fail with *http.MaxBytesError.
func (h *Handler) readFrame(c *gin.Context) ([]byte, error) {
	// base64 inflates a frame by a third, plus room for the JSON or multipart envelope
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload()*4/3+64<<10)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		file, header, err := c.Request.FormFile("frame")
		if err != nil {
			if tooLarge(err) {
				return nil, err
			}
			return nil, recognition.ErrInvalidFrame
		}
		defer file.Close()
		if header.Size > h.maxUpload() {
			return nil, &http.MaxBytesError{Limit: h.maxUpload()}
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, recognition.ErrInvalidFrame
		}
		return data, nil
	}
	var body struct {
		Frame string `json:"frame"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		if tooLarge(err) {
			return nil, err
		}
		return nil, recognition.ErrInvalidFrame
	}
	frame, err := recognition.DecodeFrame(body.Frame)
	if err != nil {
		return nil, err
	}
	if int64(len(frame)) > h.maxUpload() {
		return nil, &http.MaxBytesError{Limit: h.maxUpload()}
	}
	return frame, nil
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// publish pushes a decision to live feed clients. Only marks are sent.
func (h *Handler) publish(ctx context.Context, dec recognition.Decision) {
	if h.Hub == nil {
		return
	}
	if err := h.Hub.Publish(ctx, dec); err != nil {
		h.log.Warn("live feed publish failed", zap.String("student_id", dec.IdentityKey), zap.Error(err))
	}
}

// Mark recognizes one frame and records attendance for the best match.
// Every outcome, including already_marked, is a 200.
func (h *Handler) Mark(c *gin.Context) {
	frame, err := h.readFrame(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	dec, err := h.Decider.WithSource(recognition.SourceFrame).RecognizeFrame(c.Request.Context(), h.Recognizer, frame)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.publish(c.Request.Context(), dec)
	c.JSON(http.StatusOK, dec)
}

// MarkResults decides on recognition results computed elsewhere.
func (h *Handler) MarkResults(c *gin.Context) {
	var results []recognition.Result
	if err := c.ShouldBindJSON(&results); err != nil {
		h.badRequest(c, err)
		return
	}
	d := h.Decider.WithSource(recognition.SourceResults)
	dec, err := d.Decide(c.Request.Context(), results, d.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.publish(c.Request.Context(), dec)
	c.JSON(http.StatusOK, dec)
}

// Capture polls the camera until a student is marked or the capture window
// closes.
func (h *Handler) Capture(c *gin.Context) {
	if h.Camera == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "camera not configured"})
		return
	}
	dec, err := h.Decider.WithSource(recognition.SourceCapture).Capture(
		c.Request.Context(), h.Camera, h.Recognizer, h.Config.CaptureTimeout, h.Config.CaptureInterval)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.publish(c.Request.Context(), dec)
	c.JSON(http.StatusOK, dec)
}

// SubmitJob queues a frame for background recognition.
func (h *Handler) SubmitJob(c *gin.Context) {
	if h.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue not configured"})
		return
	}
	frame, err := h.readFrame(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	job, err := worker.Enqueue(c.Request.Context(), h.Queue, h.Attendance.Repo(), frame)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
}

func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.Attendance.Repo().GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Live streams marked decisions over a WebSocket.
func (h *Handler) Live(c *gin.Context) {
	if h.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed disabled"})
		return
	}
	h.Hub.HandleWS(c)
}

// History lists marks for the student the caller may view.
func (h *Handler) History(c *gin.Context) {
	p, _ := auth.PrincipalFrom(c)
	studentID, ok := p.SelectStudent(c.Query("student_id"))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"student_id": nil, "events": []any{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	events, err := h.Attendance.History(c.Request.Context(), studentID, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": studentID, "events": events})
}

// Monthly returns mark counts per month, optionally for one student.
func (h *Handler) Monthly(c *gin.Context) {
	months, err := h.Attendance.Monthly(c.Request.Context(), c.Query("student_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, months)
}
