package handler

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/cloudinary"
	"classtrack/internal/exam"
	"classtrack/internal/idcard"
	"classtrack/internal/insights"
	"classtrack/internal/queue"
	"classtrack/internal/roster"
	"classtrack/internal/session"
)

var redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classtrack_scan_redemptions_total",
	Help: "QR redemption attempts by outcome.",
}, []string{"outcome"})

// Config carries the handler's runtime knobs.
type Config struct {
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	PublicBaseURL string
}

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	cfg      Config
	roster   *roster.Service
	sessions *session.Service
	ledger   *attendance.Service
	exams    *exam.Service
	insights *insights.Service
	cloud    *cloudinary.Client // nil when not configured
	jobs     queue.Queue
}

// New creates a handler.
func New(cfg Config, r *roster.Service, s *session.Service, a *attendance.Service, e *exam.Service, ai *insights.Service, cloud *cloudinary.Client, jobs queue.Queue) *Handler {
	return &Handler{cfg: cfg, roster: r, sessions: s, ledger: a, exams: e, insights: ai, cloud: cloud, jobs: jobs}
}

// Register mounts all routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/v1/teachers/register", h.RegisterTeacher)
	r.POST("/v1/teachers/login", h.Login)

	// Redemption is intentionally unauthenticated: the student only has
	// the token from the displayed QR code.
	r.POST("/v1/scan", h.Redeem)

	g := r.Group("/v1", auth.TeacherAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	g.POST("/students", h.AddStudent)
	g.GET("/students", h.ListStudents)
	g.GET("/students/:id", h.GetStudent)
	g.PATCH("/students/:id", h.UpdateStudent)
	g.DELETE("/students/:id", h.DeleteStudent)
	g.POST("/students/:id/photo", h.UploadStudentPhoto)
	g.GET("/students/:id/idcard", h.StudentIDCard)
	g.POST("/idcards/bulk", h.BulkIDCards)

	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions", h.ListSessions)
	g.POST("/sessions/:id/deactivate", h.DeactivateSession)
	g.GET("/sessions/:id/qr", h.SessionQR)

	g.POST("/attendance/mark", h.Mark)
	g.GET("/attendance", h.ListAttendance)
	g.GET("/attendance/export", h.ExportCSV)
	g.GET("/attendance/stats", h.Stats)

	g.POST("/exams", h.CreateExam)
	g.GET("/exams", h.ListExams)
	g.POST("/exams/:id/marks", h.RecordMark)
	g.GET("/exams/:id/marks", h.ExamMarks)

	g.POST("/insights", h.Insights)
}

// ---------- Teachers ----------

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) RegisterTeacher(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.roster.RegisterTeacher(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, roster.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondWithTokens(c, http.StatusCreated, t)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.roster.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, roster.ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	h.respondWithTokens(c, http.StatusOK, t)
}

func (h *Handler) respondWithTokens(c *gin.Context, status int, t roster.Teacher) {
	tokens, err := auth.Issue(t.ID, "teacher", h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(status, gin.H{
		"teacher":       t,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Students ----------

type studentRequest struct {
	RollNo string `json:"roll_no" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email"`
	Grade  string `json:"grade"`
}

func (h *Handler) AddStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.roster.AddStudent(c.Request.Context(), roster.Student{
		TeacherID: auth.TeacherID(c),
		RollNo:    req.RollNo,
		Name:      req.Name,
		Email:     req.Email,
		Grade:     req.Grade,
	})
	if err != nil {
		if errors.Is(err, roster.ErrRollTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.Students(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.roster.Student(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	var patch roster.Student
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.roster.UpdateStudent(c.Request.Context(), auth.TeacherID(c), c.Param("id"), patch)
	if err != nil {
		h.rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.roster.RemoveStudent(c.Request.Context(), auth.TeacherID(c), c.Param("id")); err != nil {
		h.rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) rosterError(c *gin.Context, err error) {
	if errors.Is(err, roster.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// UploadStudentPhoto accepts a multipart file or a JSON base64 data URL and
// stores the image in Cloudinary.
func (h *Handler) UploadStudentPhoto(c *gin.Context) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	teacherID := auth.TeacherID(c)
	studentID := c.Param("id")
	if _, err := h.roster.Student(c.Request.Context(), teacherID, studentID); err != nil {
		h.rosterError(c, err)
		return
	}

	var result *cloudinary.UploadResult
	var err error
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, header, ferr := c.Request.FormFile("photo")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo field required"})
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err = h.cloud.UploadBytes(data, header.Filename, "photos")
	} else {
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
			return
		}
		result, err = h.cloud.UploadBase64(body.Data, "photos")
	}
	if err != nil {
		log.Printf("cloudinary upload failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}

	if err := h.roster.SetPhoto(c.Request.Context(), teacherID, studentID, result.SecureURL); err != nil {
		h.rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "width": result.Width, "height": result.Height})
}

// StudentIDCard renders one student's ID card PNG on the fly.
func (h *Handler) StudentIDCard(c *gin.Context) {
	st, err := h.roster.Student(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.rosterError(c, err)
		return
	}
	png, err := idcard.Render(idcard.Info{
		Issuer:    c.Query("issuer"),
		Name:      st.Name,
		RollNo:    st.RollNo,
		Grade:     st.Grade,
		StudentID: st.ID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "card render failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// BulkIDCards queues a card-render job per student; the worker renders and
// uploads them.
func (h *Handler) BulkIDCards(c *gin.Context) {
	teacherID := auth.TeacherID(c)
	students, err := h.roster.Students(c.Request.Context(), teacherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	queued := 0
	for _, st := range students {
		if err := h.jobs.Publish(c.Request.Context(), queue.CardJob{TeacherID: teacherID, StudentID: st.ID}); err != nil {
			log.Printf("queue publish failed: %v", err)
			continue
		}
		queued++
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}

// ---------- Sessions ----------

type createSessionRequest struct {
	Label           string `json:"label" binding:"required"`
	Date            string `json:"date" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.sessions.Create(c.Request.Context(), auth.TeacherID(c), req.Label, req.Date, req.DurationMinutes)
	if err != nil {
		if errors.Is(err, session.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session":  sess,
		"scan_url": session.ScanURL(h.cfg.PublicBaseURL, sess.Token),
	})
}

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handler) DeactivateSession(c *gin.Context) {
	err := h.sessions.Deactivate(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SessionQR returns the session's scannable code as PNG.
func (h *Handler) SessionQR(c *gin.Context) {
	sess, err := h.sessions.Get(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	png, err := session.QRPNG(session.ScanURL(h.cfg.PublicBaseURL, sess.Token), 300)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr render failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ---------- Redemption ----------

type redeemRequest struct {
	Token     string `json:"token" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
}

// Redeem is the anonymous scan endpoint. Failures are reported by kind
// only; the handler never reveals more about a token's lifecycle than the
// validator decided to.
func (h *Handler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		redemptions.WithLabelValues("invalid_input").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error_kind": "invalid_input", "error": err.Error()})
		return
	}
	entry, err := h.sessions.Redeem(c.Request.Context(), req.Token, req.StudentID)
	if err != nil {
		kind := session.Kind(err)
		if kind == "" {
			redemptions.WithLabelValues("failure").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to mark attendance"})
			return
		}
		redemptions.WithLabelValues(kind).Inc()
		c.JSON(redeemStatus(kind), gin.H{"ok": false, "error_kind": kind, "error": err.Error()})
		return
	}
	redemptions.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true, "entry_id": entry.ID})
}

func redeemStatus(kind string) int {
	switch kind {
	case "unknown_subject":
		return http.StatusNotFound
	case "already_marked":
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// ---------- Attendance ----------

type markRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Note      string `json:"note"`
}

func (h *Handler) Mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.ledger.Mark(c.Request.Context(), auth.TeacherID(c), req.StudentID, req.Date, req.Status, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrUnknownSubject):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, attendance.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark attendance"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entry": entry})
}

func (h *Handler) ListAttendance(c *gin.Context) {
	entries, err := h.ledger.List(c.Request.Context(), auth.TeacherID(c), c.Query("from"), c.Query("to"))
	if err != nil {
		if errors.Is(err, attendance.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) ExportCSV(c *gin.Context) {
	data, err := h.ledger.ExportCSV(c.Request.Context(), auth.TeacherID(c), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filename := fmt.Sprintf("attendance_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.ledger.Stats(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// ---------- Exams ----------

type createExamRequest struct {
	Title    string  `json:"title" binding:"required"`
	Subject  string  `json:"subject"`
	Date     string  `json:"date" binding:"required"`
	MaxScore float64 `json:"max_score" binding:"required"`
}

func (h *Handler) CreateExam(c *gin.Context) {
	var req createExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.exams.Create(c.Request.Context(), auth.TeacherID(c), req.Title, req.Subject, req.Date, req.MaxScore)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListExams(c *gin.Context) {
	exams, err := h.exams.List(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exams": exams})
}

type markScoreRequest struct {
	StudentID string  `json:"student_id" binding:"required"`
	Score     float64 `json:"score"`
}

func (h *Handler) RecordMark(c *gin.Context) {
	var req markScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.exams.RecordMark(c.Request.Context(), auth.TeacherID(c), c.Param("id"), req.StudentID, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, exam.ErrNotFound), errors.Is(err, exam.ErrUnknownSubject):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, exam.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record mark"})
		}
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) ExamMarks(c *gin.Context) {
	marks, err := h.exams.Marks(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, exam.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "exam not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marks": marks})
}

// ---------- Insights ----------

func (h *Handler) Insights(c *gin.Context) {
	report, err := h.insights.Analyze(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		if errors.Is(err, insights.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no attendance data", "details": "record attendance before generating insights"})
			return
		}
		log.Printf("insights generation failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate insights"})
		return
	}
	c.JSON(http.StatusOK, report)
}
