// Package app wires the HTTP surface to the per-user state managers and the
// supporting services: auth, search, export and the snapshot archive.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"organizer/api/internal/archive"
	"organizer/api/internal/auth"
	"organizer/api/internal/authpw"
	"organizer/api/internal/config"
	"organizer/api/internal/email"
	"organizer/api/internal/export"
	"organizer/api/internal/organizer"
	"organizer/api/internal/persist"
	"organizer/api/internal/remote"
	"organizer/api/internal/search"
	"organizer/api/internal/state"
	"organizer/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

type userDirectory interface {
	GetUserByID(ctx context.Context, id string) (persist.User, error)
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user persist.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (persist.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// Deps carries the service collaborators. Gateway is nil when cloud sync is
// not configured; managers then run against the local store only.
type Deps struct {
	DB        pinger
	Users     userDirectory
	Documents state.LocalStore
	Sessions  sessionStore
	Gateway   remote.Gateway
	AuthPw    *authpw.Service
	Email     *email.Service
	Search    *search.Service
	Export    *export.Service
	Archive   *archive.Service
}

type Service struct {
	cfg       config.Config
	db        pinger
	users     userDirectory
	documents state.LocalStore
	sessions  sessionStore
	gateway   remote.Gateway
	authpw    *authpw.Service
	email     *email.Service
	search    *search.Service
	export    *export.Service
	archive   *archive.Service

	mu       sync.Mutex
	managers map[string]*state.Manager
}

func New(cfg config.Config, deps Deps) *Service {
	return &Service{
		cfg:       cfg,
		db:        deps.DB,
		users:     deps.Users,
		documents: deps.Documents,
		sessions:  deps.Sessions,
		gateway:   deps.Gateway,
		authpw:    deps.AuthPw,
		email:     deps.Email,
		search:    deps.Search,
		export:    deps.Export,
		archive:   deps.Archive,
		managers:  make(map[string]*state.Manager),
	}
}

// Ping checks the health of service dependencies.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// SendVerificationEmail delivers the signup verification link. Callers fire
// it from a goroutine; a delivery failure must not fail the signup.
func (s *Service) SendVerificationEmail(to, userName, token string) error {
	if !s.SMTPConfigured() {
		return nil
	}
	url := s.cfg.AppBaseURL + "/verify-email?token=" + token
	return s.email.SendVerificationEmail(to, userName, url)
}

func (s *Service) SendPasswordResetEmail(to, userName, token string) error {
	if !s.SMTPConfigured() {
		return nil
	}
	url := s.cfg.AppBaseURL + "/reset-password?token=" + token
	return s.email.SendPasswordResetEmail(to, userName, url)
}

// CreateSession issues a fresh token pair for an authenticated user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token: the presented token is revoked and a new
// pair is issued, so each refresh token is single-use.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user persist.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.DisplayName,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.users.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// Logout revokes the refresh token and retires the user's manager, flushing
// any pending edits so nothing is lost between sessions.
func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	if session.UserID != "" {
		s.releaseManager(ctx, session.UserID)
	}
	return nil
}

// manager returns the user's state manager, creating and reconciling it on
// first access. A reconcile failure is logged, not returned: the document is
// local-first and must stay editable while the cloud is unreachable.
func (s *Service) manager(ctx context.Context, userID string) (*state.Manager, error) {
	s.mu.Lock()
	if m, ok := s.managers[userID]; ok {
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()

	m, err := state.New(ctx, state.Config{
		UserID:   userID,
		Local:    s.documents,
		Gateway:  s.gateway,
		Debounce: s.cfg.SaveDebounce,
		OnRemoteSaved: func(d organizer.AppData) {
			s.onRemoteSaved(userID, d)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load document for %s: %w", userID, err)
	}

	s.mu.Lock()
	if existing, ok := s.managers[userID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.managers[userID] = m
	s.mu.Unlock()

	if err := m.Reconcile(ctx); err != nil {
		log.Printf("app: initial sync for %s failed: %v", userID, err)
	}
	return m, nil
}

// onRemoteSaved archives the synced snapshot and refreshes the search index.
// Both are best effort off the save path.
func (s *Service) onRemoteSaved(userID string, d organizer.AppData) {
	if s.archive != nil {
		payload, err := organizer.Encode(d)
		if err != nil {
			log.Printf("app: encode snapshot for %s: %v", userID, err)
		} else if _, err := s.archive.Commit(userID, payload, "Synced document"); err != nil {
			log.Printf("app: archive snapshot for %s: %v", userID, err)
		}
	}
	if s.search != nil {
		s.search.ReindexUser(userID, search.BuildRecords(userID, d))
	}
}

func (s *Service) releaseManager(ctx context.Context, userID string) {
	s.mu.Lock()
	m, ok := s.managers[userID]
	if ok {
		delete(s.managers, userID)
	}
	s.mu.Unlock()
	if ok {
		m.Flush(ctx)
	}
}

// FlushAll writes out every manager's pending edits. Called on shutdown.
func (s *Service) FlushAll(ctx context.Context) {
	s.mu.Lock()
	managers := make([]*state.Manager, 0, len(s.managers))
	for _, m := range s.managers {
		managers = append(managers, m)
	}
	s.mu.Unlock()
	for _, m := range managers {
		m.Flush(ctx)
	}
}

// Document returns the user's full document plus the transient per-session
// state the client needs to restore its UI.
func (s *Service) Document(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"document":         m.Document(),
		"dirty":            m.Dirty(),
		"selection":        m.Selection(),
		"pendingDuplicate": m.PendingDuplicate(),
	}, nil
}

// ImportDocument replaces the whole document with an uploaded one. The
// replacement is a single undoable action.
func (s *Service) ImportDocument(ctx context.Context, session Session, raw json.RawMessage) (map[string]any, error) {
	doc, err := organizer.Decode(raw)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "document is not valid", nil)
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res := m.ReplaceDocument("Imported document", doc)
	m.Flush(ctx)
	return map[string]any{
		"message":  res.Message,
		"document": m.Document(),
	}, nil
}

func (s *Service) ExportDocument(ctx context.Context, session Session, req export.Request) (*export.Result, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.export.Export(ctx, m.Document(), session.UserName, req)
}

// ForceSync runs an immediate pull-then-push cycle regardless of the
// once-per-session guard.
func (s *Service) ForceSync(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if err := m.ForceSync(ctx); err != nil {
		return nil, domainError(http.StatusBadGateway, "SYNC_FAILED", "Cloud sync failed", nil)
	}
	doc := m.Document()
	return map[string]any{
		"ok":           true,
		"lastModified": doc.LastModified,
		"document":     doc,
	}, nil
}

func (s *Service) HistoryList(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := m.History()
	return map[string]any{
		"history": items,
		"canUndo": len(items) > 0,
	}, nil
}

func (s *Service) Undo(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res := m.UndoLastAction()
	if res == nil {
		return nil, domainError(http.StatusConflict, "NOTHING_TO_UNDO", "History is empty", nil)
	}
	return map[string]any{
		"message":  res.Message,
		"document": m.Document(),
	}, nil
}

func (s *Service) Revert(ctx context.Context, session Session, historyID int64) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res := m.RevertToState(historyID)
	if res == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "History entry not found", nil)
	}
	return map[string]any{
		"message":  res.Message,
		"document": m.Document(),
		"history":  m.History(),
	}, nil
}

func (s *Service) Search(ctx context.Context, session Session, text, kind string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		UserID:     session.UserID,
		Text:       strings.TrimSpace(text),
		FilterKind: search.Kind(kind),
		Limit:      limit,
		Offset:     offset,
	}), nil
}

func (s *Service) ArchiveHistory(session Session, limit int) (map[string]any, error) {
	if s.archive == nil {
		return map[string]any{"commits": []archive.CommitInfo{}}, nil
	}
	commits, err := s.archive.History(session.UserID, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"commits": commits}, nil
}

func (s *Service) ArchiveSnapshot(session Session, hash string) (map[string]any, error) {
	if s.archive == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Archive is not enabled", nil)
	}
	payload, err := s.archive.Snapshot(session.UserID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Snapshot not found", nil)
	}
	return map[string]any{
		"hash":     hash,
		"document": json.RawMessage(payload),
	}, nil
}
