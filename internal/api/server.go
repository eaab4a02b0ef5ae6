// Package api exposes the trust decision engine and rule store over a
// local HTTP API, served on a Unix domain socket (named pipe on
// Windows) and optionally on loopback TCP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentwarden/warden/internal/audit"
	"github.com/agentwarden/warden/internal/logger"
	"github.com/agentwarden/warden/internal/session"
	"github.com/agentwarden/warden/internal/store"
	"github.com/agentwarden/warden/internal/trust"
)

var log = logger.New("api")

// Wire-level reasons for session overrides. The engine's own Reason set
// is fixed; these exist only in API responses and audit records, where
// a session-trusted tool skips evaluation entirely.
const (
	ReasonSessionTrust   = "session_trust"
	ReasonSessionUntrust = "session_untrust"
)

// Server handles HTTP API requests for decisions, rules, sessions, and
// the audit log.
type Server struct {
	engine   *trust.Engine
	store    *store.Store
	sessions *session.Manager
	audit    *audit.Storage // nil when auditing is disabled
	router   *gin.Engine
	started  time.Time
	version  string
}

// NewServer creates an API server. auditStorage may be nil.
func NewServer(engine *trust.Engine, st *store.Store, sessions *session.Manager, auditStorage *audit.Storage, version string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply middleware in order
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())
	router.Use(BodySizeLimitMiddleware(MaxBodySize))

	s := &Server{
		engine:   engine,
		store:    st,
		sessions: sessions,
		audit:    auditStorage,
		router:   router,
		started:  time.Now(),
		version:  version,
	}

	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/evaluate", s.handleEvaluate)

		v1.GET("/rules", s.handleListRules)
		v1.POST("/rules", s.handleAddRule)
		v1.DELETE("/rules", s.handleRemoveRule)
		v1.DELETE("/rules/all", s.handleRemoveAll)

		sess := v1.Group("/session")
		{
			sess.POST("", s.handleSessionBegin)
			sess.GET("/:session_id", s.handleSessionStatus)
			sess.POST("/trust", s.handleSessionTrust)
			sess.POST("/untrust", s.handleSessionUntrust)
			sess.POST("/trust-all", s.handleSessionTrustAll)
			sess.POST("/reset", s.handleSessionReset)
		}

		v1.GET("/audit", s.handleAudit)
		v1.GET("/audit/sessions", s.handleAuditSessions)
		v1.GET("/stats", s.handleStats)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	Success(c, gin.H{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// EvaluateRequest asks for a decision on one pending tool invocation.
type EvaluateRequest struct {
	SessionID string `json:"session_id" binding:"omitempty,max=128"`
	Profile   string `json:"profile" binding:"omitempty,max=128"`
	Tool      string `json:"tool" binding:"required,max=128"`
	Command   string `json:"command" binding:"required,max=65536"`
}

// EvaluateResponse is the decision plus where it came from: "session"
// for a session override, "engine" otherwise.
type EvaluateResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
	Rule    string `json:"rule,omitempty"`
	Marker  string `json:"marker,omitempty"`
	Tier    string `json:"tier,omitempty"`
	Source  string `json:"source"`
}

// handleEvaluate handles POST /v1/evaluate. Session overrides are
// consulted before the engine: a session-trusted tool approves without
// evaluation, a session-untrusted one forces confirmation.
func (s *Server) handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	tool := trust.Tool(req.Tool)
	profile := s.profileOr(req.Profile)

	var resp EvaluateResponse
	switch s.sessions.Override(req.SessionID, tool) {
	case session.OverrideTrust:
		resp = EvaluateResponse{
			Outcome: trust.AutoApprove.String(),
			Reason:  ReasonSessionTrust,
			Source:  "session",
		}
	case session.OverrideAsk:
		resp = EvaluateResponse{
			Outcome: trust.RequireConfirmation.String(),
			Reason:  ReasonSessionUntrust,
			Source:  "session",
		}
	default:
		d := s.engine.Evaluate(c.Request.Context(), profile, tool, req.Command)
		resp = EvaluateResponse{
			Outcome: d.Outcome.String(),
			Reason:  string(d.Reason),
			Rule:    d.Rule,
			Marker:  d.Marker,
			Tier:    string(d.Tier),
			Source:  "engine",
		}
		if s.audit != nil {
			if err := s.audit.RecordDecision(c.Request.Context(), req.SessionID, profile, tool, req.Command, d); err != nil {
				log.Warn("audit record not written: %v", err)
			}
		}
		Success(c, resp)
		return
	}

	s.record(c, req, tool, profile, resp)
	Success(c, resp)
}

// record writes an audit entry for a session-override decision; engine
// decisions go through audit.RecordDecision instead.
func (s *Server) record(c *gin.Context, req EvaluateRequest, tool trust.Tool, profile string, resp EvaluateResponse) {
	if s.audit == nil {
		return
	}
	rec := audit.Record{
		Timestamp: time.Now(),
		SessionID: req.SessionID,
		Profile:   profile,
		Tool:      tool.String(),
		Command:   req.Command,
		Outcome:   resp.Outcome,
		Reason:    resp.Reason,
	}
	if err := s.audit.Insert(c.Request.Context(), rec); err != nil {
		log.Warn("audit record not written: %v", err)
	}
}

// RuleRequest addresses one rule (or all rules of a tool) in a scope.
type RuleRequest struct {
	Profile     string `json:"profile" binding:"omitempty,max=128"`
	Global      bool   `json:"global"`
	Tool        string `json:"tool" binding:"required,max=128"`
	Pattern     string `json:"pattern" binding:"omitempty,max=4096"`
	Description string `json:"description" binding:"omitempty,max=1024"`
}

func (s *Server) scopeOf(profile string, global bool) store.Scope {
	if global {
		return store.GlobalScope()
	}
	return store.ProfileScope(s.profileOr(profile))
}

func (s *Server) profileOr(profile string) string {
	if profile == "" {
		return store.DefaultProfile
	}
	return profile
}

// ruleGroup is one tool's rules in a list response.
type ruleGroup struct {
	Tool  string       `json:"tool"`
	Rules []ruleRecord `json:"rules"`
}

type ruleRecord struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description,omitempty"`
}

// handleListRules handles GET /v1/rules?profile=&global=.
func (s *Server) handleListRules(c *gin.Context) {
	scope := s.scopeOf(c.Query("profile"), c.Query("global") == "true")
	cfg := s.store.Load(scope)

	groups := make([]ruleGroup, 0, len(cfg.Tools()))
	for _, tool := range cfg.Tools() {
		g := ruleGroup{Tool: tool.String()}
		for _, r := range cfg.Rules(tool) {
			g.Rules = append(g.Rules, ruleRecord{Pattern: r.Pattern, Description: r.Describe()})
		}
		groups = append(groups, g)
	}
	Success(c, gin.H{"scope": scope.String(), "trusted_commands": groups})
}

// handleAddRule handles POST /v1/rules. Validation failures are 400;
// a persistence failure is reported as 200 with durable=false because
// the rule is live in memory for the session (documented trade-off).
func (s *Server) handleAddRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	scope := s.scopeOf(req.Profile, req.Global)

	err := s.store.AddRule(scope, trust.Tool(req.Tool), trust.NewRule(req.Pattern, req.Description))
	if verr, ok := trust.AsValidationError(err); ok {
		Error(c, http.StatusBadRequest, verr.Error())
		return
	}
	if err != nil {
		log.Warn("rule added but not persisted: %v", err)
		Success(c, gin.H{"added": true, "durable": false, "warning": err.Error()})
		return
	}
	Success(c, gin.H{"added": true, "durable": true})
}

// handleRemoveRule handles DELETE /v1/rules (exact pattern match).
func (s *Server) handleRemoveRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Pattern == "" {
		Error(c, http.StatusBadRequest, "pattern is required")
		return
	}
	scope := s.scopeOf(req.Profile, req.Global)

	removed, err := s.store.RemoveRule(scope, trust.Tool(req.Tool), req.Pattern)
	if verr, ok := trust.AsValidationError(err); ok {
		Error(c, http.StatusBadRequest, verr.Error())
		return
	}
	if err != nil {
		Success(c, gin.H{"removed": removed, "durable": false, "warning": err.Error()})
		return
	}
	Success(c, gin.H{"removed": removed, "durable": true})
}

// handleRemoveAll handles DELETE /v1/rules/all.
func (s *Server) handleRemoveAll(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	scope := s.scopeOf(req.Profile, req.Global)

	err := s.store.RemoveAll(scope, trust.Tool(req.Tool))
	if verr, ok := trust.AsValidationError(err); ok {
		Error(c, http.StatusBadRequest, verr.Error())
		return
	}
	if err != nil {
		Success(c, gin.H{"removed": true, "durable": false, "warning": err.Error()})
		return
	}
	Success(c, gin.H{"removed": true, "durable": true})
}

// SessionRequest targets one session, optionally one tool within it.
type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required,max=128"`
	Tool      string `json:"tool" binding:"omitempty,max=128"`
}

// handleSessionBegin handles POST /v1/session.
func (s *Server) handleSessionBegin(c *gin.Context) {
	Success(c, gin.H{"session_id": s.sessions.Begin()})
}

// handleSessionStatus handles GET /v1/session/:session_id.
func (s *Server) handleSessionStatus(c *gin.Context) {
	status, ok := s.sessions.Status(c.Param("session_id"))
	if !ok {
		Error(c, http.StatusNotFound, "unknown session")
		return
	}
	Success(c, status)
}

// handleSessionTrust handles POST /v1/session/trust. A session-trusted
// tool skips engine evaluation for the rest of the session.
func (s *Server) handleSessionTrust(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Tool == "" {
		Error(c, http.StatusBadRequest, "tool is required")
		return
	}
	s.sessions.Trust(req.SessionID, trust.Tool(req.Tool))
	Success(c, gin.H{"session_id": req.SessionID, "tool": req.Tool, "override": "trust"})
}

// handleSessionUntrust handles POST /v1/session/untrust.
func (s *Server) handleSessionUntrust(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Tool == "" {
		Error(c, http.StatusBadRequest, "tool is required")
		return
	}
	s.sessions.Untrust(req.SessionID, trust.Tool(req.Tool))
	Success(c, gin.H{"session_id": req.SessionID, "tool": req.Tool, "override": "ask"})
}

// handleSessionTrustAll handles POST /v1/session/trust-all.
func (s *Server) handleSessionTrustAll(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	s.sessions.TrustAll(req.SessionID)
	Success(c, gin.H{"session_id": req.SessionID, "override": "trust-all"})
}

// handleSessionReset handles POST /v1/session/reset. With a tool, only
// that tool's override is cleared.
func (s *Server) handleSessionReset(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Tool != "" {
		s.sessions.ResetTool(req.SessionID, trust.Tool(req.Tool))
	} else {
		s.sessions.Reset(req.SessionID)
	}
	Success(c, gin.H{"session_id": req.SessionID, "override": "none"})
}

// AuditQuery represents query parameters for the audit endpoint.
type AuditQuery struct {
	// SECURITY: max limits prevent resource exhaustion
	Minutes int    `form:"minutes" binding:"omitempty,min=1,max=10080"` // max 7 days
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=1000"`
	Filter  string `form:"filter" binding:"omitempty,max=1024"`
	Profile string `form:"profile" binding:"omitempty,max=128"`
	Tool    string `form:"tool" binding:"omitempty,max=128"`
	Reason  string `form:"reason" binding:"omitempty,max=64"`
}

// handleAudit handles GET /v1/audit.
func (s *Server) handleAudit(c *gin.Context) {
	if s.audit == nil {
		Error(c, http.StatusServiceUnavailable, "auditing is disabled")
		return
	}
	var q AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.audit.Recent(c.Request.Context(), audit.Query{
		Minutes: q.Minutes,
		Limit:   q.Limit,
		Command: q.Filter,
		Profile: q.Profile,
		Tool:    q.Tool,
		Reason:  q.Reason,
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to query audit log")
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	Success(c, gin.H{"records": records, "total": len(records)})
}

// SessionsQuery represents query parameters for the audit sessions
// endpoint.
type SessionsQuery struct {
	Minutes int `form:"minutes" binding:"omitempty,min=1,max=10080"`
	Limit   int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// handleAuditSessions handles GET /v1/audit/sessions: per-session
// decision aggregates, most recently active first.
func (s *Server) handleAuditSessions(c *gin.Context) {
	if s.audit == nil {
		Error(c, http.StatusServiceUnavailable, "auditing is disabled")
		return
	}
	var q SessionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := s.audit.GetSessions(c.Request.Context(), q.Minutes, q.Limit)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to query audit log")
		return
	}
	if sessions == nil {
		sessions = []audit.SessionSummary{}
	}
	Success(c, gin.H{"sessions": sessions, "total": len(sessions)})
}

// handleStats handles GET /v1/stats: in-memory engine counters for this
// serve session, plus audit totals when auditing is enabled.
func (s *Server) handleStats(c *gin.Context) {
	resp := gin.H{
		"engine": s.engine.Stats(),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if s.audit != nil {
		if stats, err := s.audit.GetStats(c.Request.Context(), 60*24); err == nil {
			resp["audit_24h"] = stats
		}
	}
	Success(c, resp)
}
