package http

import (
	"fmt"
	"net/http"
	"strings"

	"log/slog"

	"github.com/gin-gonic/gin"
	appdecision "github.com/peakcrm/authorizer/internal/app/decision"
	"github.com/peakcrm/authorizer/internal/config"
	domain "github.com/peakcrm/authorizer/internal/domain/decision"
	"github.com/peakcrm/authorizer/pkg/logger"
	"github.com/peakcrm/authorizer/pkg/tracer"
)

type Handler struct {
	appService        appdecision.Service
	allowedCategories map[string]struct{}
	allowedList       []string
}

func NewHandler(appService appdecision.Service, cfg *config.Config) *Handler {
	allowed := make(map[string]struct{}, len(cfg.Visibility.AllowedCategories))
	list := make([]string, 0, len(cfg.Visibility.AllowedCategories))
	for _, c := range cfg.Visibility.AllowedCategories {
		c = domain.NormalizeCategory(c)
		if _, ok := allowed[c]; ok {
			continue
		}
		allowed[c] = struct{}{}
		list = append(list, c)
	}

	return &Handler{
		appService:        appService,
		allowedCategories: allowed,
		allowedList:       list,
	}
}

// ResolveIdentity handles GET /v1/authorize/identity?email=.
func (h *Handler) ResolveIdentity(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.ResolveIdentity")
	defer span.End()

	outcome, err := h.appService.ResolveIdentity(ctx, authHeader(c), c.Query("email"))
	if err != nil {
		h.deny(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"items": outcome.SubjectUsers}})
}

type rbacCheckBody struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Method   string `json:"method" binding:"required"`
}

// CheckAccess handles POST /v1/authorize/rbac.
func (h *Handler) CheckAccess(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.CheckAccess")
	defer span.End()

	var body rbacCheckBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint and method are required"})
		return
	}

	req := domain.AuthorizationRequest{
		Endpoint: body.Endpoint,
		Method:   body.Method,
		Headers:  flattenHeaders(c.Request.Header),
	}

	if _, err := h.appService.CheckAccess(ctx, req); err != nil {
		h.deny(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"access": true}})
}

// ResolveScope handles GET /v1/authorize/visibility/:category. The category is
// normalized and checked against the allow-list before the validator runs.
func (h *Handler) ResolveScope(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.ResolveScope")
	defer span.End()

	category := domain.NormalizeCategory(c.Param("category"))
	if _, ok := h.allowedCategories[category]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("invalid value: %s. possible values: [%s]",
				category, strings.Join(h.allowedList, ", ")),
		})
		return
	}

	scope, meta, err := h.appService.ResolveScope(ctx, authHeader(c), category)
	if err != nil {
		h.deny(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": scope, "meta": meta})
}

// deny maps a decision error to the wire: unauthenticated answers 401,
// everything else answers 403. Transport failures fail closed as 403.
func (h *Handler) deny(c *gin.Context, err error) {
	kind := domain.KindOf(err)

	status := http.StatusForbidden
	if kind == domain.KindUnauthenticated {
		status = http.StatusUnauthorized
	}

	reason := domain.DetailOf(err)
	if reason == "" {
		reason = string(kind)
	}

	logger.WarnContext(c.Request.Context(), "authorization denied",
		slog.String("kind", string(kind)),
		slog.String("reason", reason),
	)

	c.JSON(status, gin.H{"error": reason})
}

func authHeader(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		header = c.GetHeader("authorization")
	}
	return header
}

func flattenHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for k := range headers {
		out[k] = headers.Get(k)
	}
	return out
}
