package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartcampus/internal/auth"
)

func (h *Handler) StudentDashboard(c *gin.Context) {
	p, _ := auth.PrincipalFrom(c)
	studentID, ok := p.SelectStudent(c.Query("student_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errNoStudent.Error()})
		return
	}
	d, err := h.Attendance.StudentDashboard(c.Request.Context(), studentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) ParentDashboard(c *gin.Context) {
	p, _ := auth.PrincipalFrom(c)
	rows, err := h.Attendance.ParentDashboard(c.Request.Context(), p.StudentIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"children": rows})
}

func (h *Handler) TeacherDashboard(c *gin.Context) {
	d, err := h.Attendance.TeacherDashboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
