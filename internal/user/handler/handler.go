package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogotex/backend/userstore/internal/database"
	"github.com/gogotex/gogotex/backend/userstore/internal/storage"
	"github.com/gogotex/gogotex/backend/userstore/internal/user"
	"github.com/gogotex/gogotex/backend/userstore/internal/user/service"
	"github.com/gogotex/gogotex/backend/userstore/pkg/logger"
	"github.com/gogotex/gogotex/backend/userstore/pkg/middleware"
)

// Exporter uploads a snapshot of users.
type Exporter interface {
	Export(ctx context.Context, users []*user.User) (*storage.Snapshot, error)
}

// Options configures the optional parts of the user API.
type Options struct {
	// Guard runs before every write route when set.
	Guard gin.HandlerFunc
	// Exporter backs POST /api/users/export. The route answers 501 without it.
	Exporter Exporter
}

type handler struct {
	svc  *service.Service
	opts Options
}

func RegisterUserRoutes(r gin.IRouter, svc *service.Service, opts Options) {
	h := &handler{svc: svc, opts: opts}

	r.GET("/api/users", h.list)
	r.GET("/api/users/search", h.search)
	r.GET("/api/users/:id", h.get)

	r.POST("/api/users", h.guarded(h.create)...)
	r.POST("/api/users/export", h.guarded(h.export)...)
	r.PATCH("/api/users/:id", h.guarded(h.patch)...)
	r.DELETE("/api/users/:id", h.guarded(h.deleteOne)...)
	r.DELETE("/api/users", h.guarded(h.deleteMany)...)
}

func (h *handler) guarded(fn gin.HandlerFunc) []gin.HandlerFunc {
	if h.opts.Guard == nil {
		return []gin.HandlerFunc{fn}
	}
	return []gin.HandlerFunc{h.opts.Guard, fn}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	if ve, ok := user.AsValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": ve.Errors})
		return
	}
	switch {
	case errors.Is(err, user.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case database.IsConnectionError(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	case errors.Is(err, user.ErrUnknownField), errors.Is(err, service.ErrNoField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.With(map[string]interface{}{
			"request_id": c.GetString(middleware.RequestIDKey),
			"method":     c.Request.Method,
			"route":      c.FullPath(),
		}).Errorf("user api: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (h *handler) create(c *gin.Context) {
	var req user.User
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func intParam(c *gin.Context, name string) (int64, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false, errors.New(name + " must be a non-negative integer")
	}
	return n, true, nil
}

// listQuery builds the query shared by list and export from the URL parameters.
func (h *handler) listQuery(c *gin.Context) (*service.Query, error) {
	q := h.svc.Query()
	if name := c.Query("firstName"); name != "" {
		q.Where(user.FieldFirstName).Equals(name)
	}
	if n, ok, err := intParam(c, "minAge"); err != nil {
		return nil, err
	} else if ok {
		q.Where(user.FieldAge).Gte(n)
	}
	if n, ok, err := intParam(c, "maxAge"); err != nil {
		return nil, err
	} else if ok {
		q.Where(user.FieldAge).Lte(n)
	}
	if n, ok, err := intParam(c, "limit"); err != nil {
		return nil, err
	} else if ok {
		q.Limit(n)
	}
	if fields := c.Query("fields"); fields != "" {
		q.Select(strings.Split(fields, ",")...)
	}
	if path := c.Query("populate"); path != "" {
		q.Populate(path)
	}
	return q, nil
}

func (h *handler) list(c *gin.Context) {
	q, err := h.listQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	out, err := q.Exec(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) search(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		badRequest(c, "name is required")
		return
	}
	u, err := h.svc.FindByFirstName(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	u, err := h.svc.FindByID(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if path := c.Query("populate"); path != "" {
		if err := h.svc.Populate(ctx, u, path); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, u)
}

// patchRequest carries the fields a PATCH may change. Absent fields are kept.
type patchRequest struct {
	FirstName  *string       `json:"firstName"`
	Age        *int          `json:"age"`
	Email      *string       `json:"email"`
	BestFriend *string       `json:"bestFriend"`
	Hobbies    *[]string     `json:"hobbies"`
	Address    *user.Address `json:"address"`
}

func (p patchRequest) apply(u *user.User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.BestFriend != nil {
		if *p.BestFriend == "" {
			u.BestFriend = nil
		} else {
			u.BestFriend = user.RefTo(*p.BestFriend)
		}
	}
	if p.Hobbies != nil {
		u.Hobbies = *p.Hobbies
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
}

func (h *handler) patch(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	u, err := h.svc.FindByID(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	req.apply(u)
	if err := h.svc.Save(ctx, u); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) deleteOne(c *gin.Context) {
	n, err := h.svc.DeleteOne(c.Request.Context(), user.Where(user.Eq(user.FieldID, c.Param("id"))))
	if err != nil {
		writeError(c, err)
		return
	}
	if n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) deleteMany(c *gin.Context) {
	name := c.Query("firstName")
	if name == "" {
		badRequest(c, "firstName is required")
		return
	}
	n, err := h.svc.DeleteMany(c.Request.Context(), user.Where(user.Eq(user.FieldFirstName, name)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *handler) export(c *gin.Context) {
	if h.opts.Exporter == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "export not configured"})
		return
	}
	q, err := h.listQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	users, err := q.Exec(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	snap, err := h.opts.Exporter.Export(ctx, users)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}
