package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smartcampus/internal/attendance"
	"smartcampus/internal/auth"
	"smartcampus/internal/recognition"
)

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.Attendance.Repo().ListStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// CreateStudent adds a student and its login. The initial password is the
// last four characters of the student id.
func (h *Handler) CreateStudent(c *gin.Context) {
	var st attendance.Student
	if err := c.ShouldBindJSON(&st); err != nil {
		h.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	st, err := h.Attendance.RegisterStudent(ctx, st)
	if err != nil {
		h.fail(c, err)
		return
	}
	_, created, err := h.Auth.EnsureUser(ctx, auth.NewUser{
		Username:   st.StudentID,
		Password:   auth.DefaultStudentPassword(st.StudentID),
		Role:       auth.RoleStudent,
		Name:       st.Name,
		StudentIDs: []string{st.StudentID},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student": st, "login_created": created})
}

func (h *Handler) GetStudent(c *gin.Context) {
	p, _ := auth.PrincipalFrom(c)
	id := c.Param("id")
	if !p.CanView(id) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	st, err := h.Attendance.Student(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// EnrollFace sends a reference photo (multipart "photo") to the vision service.
func (h *Handler) EnrollFace(c *gin.Context) {
	if h.Enroller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "face service not configured"})
		return
	}
	ctx := c.Request.Context()
	st, err := h.Attendance.Student(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer file.Close()
	photo, err := io.ReadAll(io.LimitReader(file, h.maxUpload()))
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(photo) == 0 {
		h.fail(c, recognition.ErrInvalidFrame)
		return
	}
	res, err := h.Enroller.Enroll(ctx, st.StudentID, photo, header.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !res.Success {
		h.log.Warn("face enrollment rejected", zap.String("student_id", st.StudentID), zap.String("message", res.Message))
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) maxUpload() int64 {
	if h.Config.MaxUploadBytes > 0 {
		return h.Config.MaxUploadBytes
	}
	return 10 << 20
}

var errNoStudent = errors.New("no linked student")
