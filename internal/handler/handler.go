package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"smartcampus/internal/attendance"
	"smartcampus/internal/auth"
	"smartcampus/internal/config"
	"smartcampus/internal/faceclient"
	"smartcampus/internal/httpmiddleware"
	"smartcampus/internal/livefeed"
	"smartcampus/internal/portal"
	"smartcampus/internal/queue"
	"smartcampus/internal/recognition"
	"smartcampus/internal/tickets"
)

// Enroller registers reference photos with the vision service.
type Enroller interface {
	Enroll(ctx context.Context, studentID string, photo []byte, filename string) (*faceclient.EnrollResult, error)
}

// Check is a named readiness check.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Deps are the services the HTTP layer talks to. Camera, Enroller, Queue,
// Hub and Limiter may be nil; the matching routes then answer 503 or the
// middleware is skipped.
type Deps struct {
	Config     config.App
	Log        *zap.Logger
	Auth       *auth.Service
	Attendance *attendance.Service
	Tickets    *tickets.Service
	Portal     *portal.Service
	Decider    *recognition.Decider
	Recognizer recognition.Recognizer
	Camera     recognition.FrameSource
	Enroller   Enroller
	Queue      queue.Queue
	Hub        *livefeed.Hub
	Limiter    httpmiddleware.Limiter
	Checks     []Check
}

// Handler serves the campus API.
type Handler struct {
	Deps
	log *zap.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Deps: d, log: log}
}

// Router builds the gin engine with every route and middleware.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(h.log, "/healthz", "/readyz", "/metrics"))
	r.Use(cors.New(corsConfig(h.Config.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	if h.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(h.Limiter, h.log))
	}
	r.MaxMultipartMemory = 8 << 20

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	v1 := r.Group("/v1")
	v1.POST("/auth/token", h.Token)
	v1.POST("/auth/refresh", h.Refresh)
	v1.POST("/auth/logout", h.Logout)

	api := v1.Group("", auth.Authenticate(h.Auth.Tokens()))
	staff := auth.RequireRoles(auth.RoleTeacher, auth.RoleAdmin)
	admin := auth.RequireRoles(auth.RoleAdmin)
	family := auth.RequireRoles(auth.RoleStudent, auth.RoleParent)
	anyone := auth.RequireRoles(auth.RoleAdmin, auth.RoleTeacher, auth.RoleStudent, auth.RoleParent)

	api.GET("/tickets", anyone, h.ListTickets)
	api.POST("/tickets", anyone, h.CreateTicket)
	api.GET("/tickets/:id", anyone, h.GetTicket)
	api.PUT("/tickets/:id", anyone, h.UpdateTicket)
	api.PATCH("/tickets/:id", anyone, h.PatchTicket)
	api.DELETE("/tickets/:id", anyone, h.DeleteTicket)

	api.GET("/students", staff, h.ListStudents)
	api.POST("/students", admin, h.CreateStudent)
	api.GET("/students/:id", anyone, h.GetStudent)
	api.POST("/students/:id/face", admin, h.EnrollFace)
	api.POST("/users", admin, h.CreateUser)

	att := api.Group("/attendance")
	att.POST("/mark", staff, h.Mark)
	att.POST("/results", staff, h.MarkResults)
	att.POST("/capture", staff, h.Capture)
	att.POST("/jobs", staff, h.SubmitJob)
	att.GET("/jobs/:id", staff, h.GetJob)
	att.GET("/live", staff, h.Live)
	att.GET("/history", anyone, h.History)
	att.GET("/monthly", staff, h.Monthly)

	api.GET("/dashboard/student", family, h.StudentDashboard)
	api.GET("/dashboard/parent", auth.RequireRoles(auth.RoleParent), h.ParentDashboard)
	api.GET("/dashboard/teacher", staff, h.TeacherDashboard)

	api.GET("/announcements", anyone, h.ListAnnouncements)
	api.POST("/announcements", staff, h.CreateAnnouncement)
	api.GET("/resources", anyone, h.ListResources)
	api.POST("/resources", staff, h.UploadResource)
	api.GET("/resources/:id/file", anyone, h.ResourceFile)
	api.GET("/activity", family, h.Activity)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz runs every readiness check with a short deadline.
func (h *Handler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}
	for _, chk := range h.Checks {
		if err := chk.Fn(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[chk.Name] = err.Error()
			continue
		}
		results[chk.Name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
