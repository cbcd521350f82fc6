package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "sstaudit/internal/api/context"
	"sstaudit/internal/api/handlers"
	"sstaudit/internal/api/middleware"
)

type Dependencies struct {
	AuthHandler   *handlers.AuthHandler
	OrgHandler    *handlers.OrgHandler
	MemberHandler *handlers.MemberHandler
	InviteHandler *handlers.InviteHandler
	RoleHandler   *handlers.RoleHandler
	HealthHandler *handlers.HealthHandler
	Session       *middleware.SessionMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Authentication
	router.POST("/api/v1/auth/register", wrap(deps.AuthHandler.Register))
	router.POST("/api/v1/auth/login", wrap(deps.AuthHandler.Login))

	sessionMid := deps.Session.Handle

	router.POST("/api/v1/auth/logout",
		chain(deps.AuthHandler.Logout, sessionMid))
	router.POST("/api/v1/auth/logout-all",
		chain(deps.AuthHandler.LogoutAll, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/auth/me",
		chain(deps.AuthHandler.Me, sessionMid, middleware.RequireAuth))
	router.POST("/api/v1/auth/renew",
		chain(deps.AuthHandler.Renew, sessionMid, middleware.RequireAuth))
	router.POST("/api/v1/auth/change-password",
		chain(deps.AuthHandler.ChangePassword, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/auth/sessions",
		chain(deps.AuthHandler.ListSessions, sessionMid, middleware.RequireAuth))
	router.DELETE("/api/v1/auth/sessions/:session_id",
		chain(deps.AuthHandler.RevokeSession, sessionMid, middleware.RequireAuth))
	router.POST("/api/v1/auth/activate-organization",
		chain(deps.OrgHandler.Activate, sessionMid, middleware.RequireAuth))

	// Organizations. Static paths cannot share a segment with :org_id,
	// so slug availability gets its own prefix.
	router.GET("/api/v1/check-slug",
		chain(deps.OrgHandler.CheckSlug, sessionMid, middleware.RequireAuth))
	router.POST("/api/v1/organizations",
		chain(deps.OrgHandler.Create, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/organizations",
		chain(deps.OrgHandler.List, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/organizations/:org_id",
		chain(deps.OrgHandler.Get, sessionMid, middleware.RequireAuth))
	router.PATCH("/api/v1/organizations/:org_id",
		chain(deps.OrgHandler.Update, sessionMid, middleware.RequireAuth))
	router.DELETE("/api/v1/organizations/:org_id",
		chain(deps.OrgHandler.Delete, sessionMid, middleware.RequireAuth))
	router.POST("/api/v1/organizations/:org_id/leave",
		chain(deps.MemberHandler.Leave, sessionMid, middleware.RequireAuth))
	router.POST("/api/v1/permissions/check",
		chain(deps.OrgHandler.CheckPermission, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/members/active",
		chain(deps.MemberHandler.GetActive, sessionMid, middleware.RequireAuth))

	// Membership
	router.GET("/api/v1/organizations/:org_id/members",
		chain(deps.MemberHandler.List, sessionMid, middleware.RequireAuth))
	router.POST("/api/v1/organizations/:org_id/members",
		chain(deps.MemberHandler.Add, sessionMid, middleware.RequireAuth))
	router.DELETE("/api/v1/organizations/:org_id/members/:member_id",
		chain(deps.MemberHandler.Remove, sessionMid, middleware.RequireAuth))
	router.PATCH("/api/v1/organizations/:org_id/members/:member_id",
		chain(deps.MemberHandler.UpdateRole, sessionMid, middleware.RequireAuth))

	// Invitations
	router.POST("/api/v1/organizations/:org_id/invitations",
		chain(deps.InviteHandler.Create, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/organizations/:org_id/invitations",
		chain(deps.InviteHandler.List, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/invitations",
		chain(deps.InviteHandler.Mine, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/invitations/:invite_id",
		chain(deps.InviteHandler.Get, sessionMid, middleware.RequireAuth))
	router.POST("/api/v1/invitations/:invite_id/accept",
		chain(deps.InviteHandler.Accept, sessionMid, middleware.RequireAuth))
	router.POST("/api/v1/invitations/:invite_id/reject",
		chain(deps.InviteHandler.Reject, sessionMid, middleware.RequireAuth))
	router.DELETE("/api/v1/invitations/:invite_id",
		chain(deps.InviteHandler.Cancel, sessionMid, middleware.RequireAuth))

	// Dynamic roles
	router.POST("/api/v1/organizations/:org_id/roles",
		chain(deps.RoleHandler.Create, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/organizations/:org_id/roles",
		chain(deps.RoleHandler.List, sessionMid, middleware.RequireAuth))
	router.GET("/api/v1/organizations/:org_id/roles/:role_id",
		chain(deps.RoleHandler.Get, sessionMid, middleware.RequireAuth))
	router.PATCH("/api/v1/organizations/:org_id/roles/:role_id",
		chain(deps.RoleHandler.Update, sessionMid, middleware.RequireAuth))
	router.DELETE("/api/v1/organizations/:org_id/roles/:role_id",
		chain(deps.RoleHandler.Delete, sessionMid, middleware.RequireAuth))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
