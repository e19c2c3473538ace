package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "docketflow/internal/api/context"
	"docketflow/internal/api/handlers"
	"docketflow/internal/api/middleware"
	"docketflow/internal/platform/authz"
)

type Dependencies struct {
	HealthHandler  *handlers.HealthHandler
	MetricsHandler *handlers.MetricsHandler
	UploadHandler  *handlers.UploadHandler
	DocketHandler  *handlers.DocketHandler
	AlertHandler   *handlers.AlertHandler
	CompanyHandler *handlers.CompanyHandler
	TeamHandler    *handlers.TeamHandler
	WebhookHandler *handlers.WebhookHandler
	AuditHandler   *handlers.AuditHandler
	SessionHandler *handlers.SessionHandler
	// LocalUpload is nil unless the local storage backend is selected.
	LocalUpload *handlers.LocalUploadHandler

	AuthMiddleware       *middleware.AuthMiddleware
	MembershipMiddleware *middleware.MembershipMiddleware
	RateLimiter          *middleware.RateLimiter
}

type route struct {
	method  string
	path    string
	handler http.HandlerFunc
	mws     []func(http.HandlerFunc) http.HandlerFunc
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	authMid := deps.AuthMiddleware.Handle
	serviceMid := deps.AuthMiddleware.AllowServiceKey
	member := deps.MembershipMiddleware.Require("company_id", authz.AnyRole...)
	admin := deps.MembershipMiddleware.Require("company_id", authz.AdminRoles...)
	read := deps.RateLimiter.Limit(middleware.LimitAPIRead)
	write := deps.RateLimiter.Limit(middleware.LimitAPIWrite)
	upload := deps.RateLimiter.Limit(middleware.LimitUpload)

	routes := []route{
		{http.MethodGet, "/health", deps.HealthHandler.Check, nil},
		{http.MethodGet, "/metrics", deps.MetricsHandler.Export, nil},

		// Docket pipeline
		{http.MethodPost, "/api/v1/upload-url", deps.UploadHandler.Create, mws(authMid, upload)},
		{http.MethodPost, "/api/v1/process-docket", deps.DocketHandler.Process, mws(serviceMid, write)},
		{http.MethodPost, "/api/v1/process-dockets", deps.DocketHandler.ProcessBatch, mws(serviceMid, write)},

		// Compliance alerts
		{http.MethodGet, "/api/v1/compliance-alerts", deps.AlertHandler.List, mws(authMid, read)},
		{http.MethodPost, "/api/v1/compliance-alerts/:alert_id/acknowledge", deps.AlertHandler.Acknowledge, mws(authMid, write)},
		{http.MethodPost, "/api/v1/compliance-alerts/:alert_id/resolve", deps.AlertHandler.Resolve, mws(authMid, write)},

		// Companies
		{http.MethodPut, "/api/v1/update-company", deps.CompanyHandler.Update, mws(authMid, write)},
		{http.MethodPost, "/api/v1/companies", deps.CompanyHandler.Create, mws(authMid, write)},
		{http.MethodGet, "/api/v1/companies/:company_id", deps.CompanyHandler.Get, mws(authMid, read)},
		{http.MethodGet, "/api/v1/me/companies", deps.SessionHandler.Me, mws(authMid, read)},

		{http.MethodGet, "/api/v1/companies/:company_id/dockets", deps.DocketHandler.List, mws(authMid, member, read)},
		{http.MethodPatch, "/api/v1/companies/:company_id/dockets/:docket_id", deps.DocketHandler.Correct, mws(authMid, admin, write)},

		// Team
		{http.MethodGet, "/api/v1/companies/:company_id/members", deps.TeamHandler.List, mws(authMid, read)},
		{http.MethodPost, "/api/v1/companies/:company_id/members", deps.TeamHandler.Invite, mws(authMid, write)},
		{http.MethodPost, "/api/v1/companies/:company_id/members/accept", deps.TeamHandler.Accept, mws(authMid, write)},
		{http.MethodPut, "/api/v1/companies/:company_id/members/:user_id", deps.TeamHandler.ChangeRole, mws(authMid, write)},
		{http.MethodDelete, "/api/v1/companies/:company_id/members/:user_id", deps.TeamHandler.Revoke, mws(authMid, write)},

		// Webhooks and audit
		{http.MethodGet, "/api/v1/companies/:company_id/webhooks", deps.WebhookHandler.List, mws(authMid, admin, read)},
		{http.MethodPost, "/api/v1/companies/:company_id/webhooks", deps.WebhookHandler.Create, mws(authMid, admin, write)},
		{http.MethodDelete, "/api/v1/companies/:company_id/webhooks/:webhook_id", deps.WebhookHandler.Delete, mws(authMid, admin, write)},
		{http.MethodGet, "/api/v1/companies/:company_id/audit-logs", deps.AuditHandler.List, mws(authMid, admin, read)},
	}

	if deps.LocalUpload != nil {
		routes = append(routes, route{http.MethodPut, "/storage/upload/*object", deps.LocalUpload.Upload, mws(upload)})
	}

	for _, rt := range routes {
		router.Handle(rt.method, rt.path, chain(rt.handler, append(mws(middleware.Observe(rt.path)), rt.mws...)...))
	}

	router.NotFound = middleware.Observe("not_found")(notFound)
	return router
}

func mws(m ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	return m
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"Route not found","code":"NOT_FOUND"}`))
}

// chain applies middlewares outermost first.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap exposes httprouter params through the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
