// Package apitest runs an in-memory version of the document API for tests.
// It follows the server's observable rules: bearer auth, PIN challenges on
// protected documents, owner/admin access to private ones.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

// AdminSecret is the secret register requires for the admin role.
const AdminSecret = "letmein"

type account struct {
	user     model.User
	password string
}

type storedDoc struct {
	doc     model.Document
	content []byte
	pin     string
}

// Server is the fake API. It embeds httptest.Server so URL and Close work as usual.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account // by user id
	tokens   map[string]string   // token -> user id
	docs     map[string]*storedDoc
	order    []string
	hits     map[string]int

	gate  chan struct{}
	delay time.Duration
}

// NewServer starts a fake API. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		docs:     make(map[string]*storedDoc),
		hits:     make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/me", s.authed(s.handleMe))
	mux.HandleFunc("/api/documents", s.authed(s.handleList))
	mux.HandleFunc("/api/documents/", s.authed(s.handleDocumentRoute))
	mux.HandleFunc("/api/users", s.authed(s.handleUsers))
	mux.HandleFunc("/api/users/", s.authed(s.handleUserRoute))
	s.Server = httptest.NewServer(s.count(mux))
	return s
}

// AddUser registers an account and returns a valid token for it.
func (s *Server) AddUser(u model.User, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	u.IsActive = true
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.accounts[u.ID] = &account{user: u, password: password}
	return s.issueLocked(u.ID)
}

// AddDocument stores a document. pin is only meaningful for protected ones.
func (s *Server) AddDocument(doc model.Document, content []byte, pin string) model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Version == 0 {
		doc.Version = 1
		doc.IsLatestVersion = true
	}
	if doc.Size == 0 {
		doc.Size = int64(len(content))
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if acc, ok := s.accounts[doc.UploadedBy.ID]; ok && doc.UploadedBy.Username == "" {
		doc.UploadedBy.Username = acc.user.Username
	}
	s.docs[doc.ID] = &storedDoc{doc: doc, content: content, pin: pin}
	s.order = append(s.order, doc.ID)
	return doc
}

// SetDownloadGate makes download handlers block until ch yields or closes.
func (s *Server) SetDownloadGate(ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = ch
}

// SetDownloadDelay stalls download responses before headers are written.
func (s *Server) SetDownloadDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// ExpireToken invalidates a token so later calls get a plain 401.
func (s *Server) ExpireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Hits reports how many requests reached a path (without query).
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// DownloadCount returns the server-side counter for a document.
func (s *Server) DownloadCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[id]; ok {
		return d.doc.DownloadCount
	}
	return 0
}

// User returns the stored account.
func (s *Server) User(id string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return model.User{}, false
	}
	return acc.user, true
}

func (s *Server) issueLocked(userID string) string {
	token := "tok-" + uuid.NewString()
	s.tokens[token] = userID
	return token
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, caller model.User)

func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		id, ok := s.tokens[token]
		var caller model.User
		if ok {
			acc := s.accounts[id]
			caller = acc.user
			ok = acc.user.IsActive
		}
		s.mu.Unlock()
		if !ok {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is not valid"})
			return
		}
		next(w, r, caller)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, in.Email) && acc.password == in.Password {
			if !acc.user.IsActive {
				respondJSON(w, http.StatusForbidden, map[string]string{"message": "Account is deactivated"})
				return
			}
			respondJSON(w, http.StatusOK, model.AuthResult{Token: s.issueLocked(acc.user.ID), User: acc.user})
			return
		}
	}
	respondJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in struct {
		Username    string     `json:"username"`
		Email       string     `json:"email"`
		Password    string     `json:"password"`
		Role        model.Role `json:"role"`
		AdminSecret string     `json:"adminSecret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Username == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": "username and email are required"})
		return
	}
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if in.Role == model.RoleAdmin && in.AdminSecret != AdminSecret {
		respondJSON(w, http.StatusForbidden, map[string]string{"message": "Invalid admin secret"})
		return
	}
	s.mu.Lock()
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, in.Email) {
			s.mu.Unlock()
			respondJSON(w, http.StatusBadRequest, map[string]string{"message": "User already exists"})
			return
		}
	}
	s.mu.Unlock()
	token := s.AddUser(model.User{Username: in.Username, Email: in.Email, Role: in.Role}, in.Password)
	s.mu.Lock()
	user := s.accounts[s.tokens[token]].user
	s.mu.Unlock()
	respondJSON(w, http.StatusCreated, model.AuthResult{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, caller model.User) {
	respondJSON(w, http.StatusOK, map[string]model.User{"user": caller})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, caller model.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	category := q.Get("category")
	search := strings.ToLower(q.Get("search"))
	allVersions := q.Get("showAllVersions") == "true"
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}

	s.mu.Lock()
	var matched []model.Document
	for _, id := range s.order {
		d := s.docs[id].doc
		if !allVersions && !d.IsLatestVersion {
			continue
		}
		if category != "" && string(d.Category) != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.OriginalName+" "+d.Description+" "+strings.Join(d.Tags, " ")), search) {
			continue
		}
		matched = append(matched, d)
	}
	s.mu.Unlock()

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	respondJSON(w, http.StatusOK, model.DocumentPage{
		Documents:   append([]model.Document{}, matched[start:end]...),
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
	})
}

func (s *Server) handleDocumentRoute(w http.ResponseWriter, r *http.Request, caller model.User) {
	path := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	switch {
	case parts[0] == "upload" && len(parts) == 1:
		s.handleUpload(w, r, caller)
	case parts[0] == "download" && len(parts) == 2:
		s.handleDownload(w, r, caller, parts[1])
	case parts[0] == "preview" && len(parts) == 2:
		s.handlePreview(w, r, caller, parts[1])
	case parts[0] == "verify-pin" && len(parts) == 2:
		s.handleVerifyPin(w, r, caller, parts[1])
	case len(parts) == 1:
		s.handleDocument(w, r, caller, parts[0])
	case len(parts) == 2 && parts[1] == "versions":
		s.handleVersions(w, r, caller, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) lookup(id string) (*storedDoc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	return d, ok
}

func canManage(ownerID string, caller model.User) bool {
	return caller.Role == model.RoleAdmin || ownerID == caller.ID
}

// authorize applies the access rules for content endpoints. It writes the
// failure response and returns false when access is refused.
func authorize(w http.ResponseWriter, d *storedDoc, caller model.User, pin string) bool {
	switch d.doc.AccessLevel {
	case model.AccessPublic:
		return true
	case model.AccessPrivate:
		if canManage(d.doc.UploadedBy.ID, caller) {
			return true
		}
		respondJSON(w, http.StatusForbidden, map[string]string{"message": "Access denied. This document is private."})
		return false
	case model.AccessProtected:
		if pin == "" {
			respondJSON(w, http.StatusUnauthorized, map[string]any{"message": "PIN required", "requiresPin": true})
			return false
		}
		if pin != d.pin {
			respondJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid PIN", "invalidPin": true})
			return false
		}
		return true
	default:
		respondJSON(w, http.StatusForbidden, map[string]string{"message": "Access denied"})
		return false
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, caller model.User, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.mu.Lock()
	gateCh, delay := s.gate, s.delay
	s.mu.Unlock()
	if gateCh != nil {
		select {
		case <-gateCh:
		case <-r.Context().Done():
			return
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	d, ok := s.lookup(id)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"message": "Document not found"})
		return
	}
	if !authorize(w, d, caller, r.URL.Query().Get("pin")) {
		return
	}
	s.mu.Lock()
	d.doc.DownloadCount++
	s.mu.Unlock()
	writeContent(w, d, "attachment")
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, caller model.User, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	d, ok := s.lookup(id)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"message": "Document not found"})
		return
	}
	if !authorize(w, d, caller, "") {
		return
	}
	writeContent(w, d, "inline")
}

func writeContent(w http.ResponseWriter, d *storedDoc, disposition string) {
	w.Header().Set("Content-Type", d.doc.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, d.doc.OriginalName))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.content)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, caller model.User, id string) {
	d, ok := s.lookup(id)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"message": "Document not found"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		doc := d.doc
		s.mu.Unlock()
		respondJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if !canManage(d.doc.UploadedBy.ID, caller) {
			respondJSON(w, http.StatusForbidden, map[string]string{"message": "Not authorized to delete this document"})
			return
		}
		s.mu.Lock()
		delete(s.docs, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		respondJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request, caller model.User, id string) {
	d, ok := s.lookup(id)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"message": "Document not found"})
		return
	}
	if !canManage(d.doc.UploadedBy.ID, caller) {
		respondJSON(w, http.StatusForbidden, map[string]string{"message": "Access denied"})
		return
	}
	s.mu.Lock()
	var versions []model.Document
	for _, sd := range s.docs {
		if sd.doc.OriginalName == d.doc.OriginalName && sd.doc.UploadedBy.ID == d.doc.UploadedBy.ID {
			versions = append(versions, sd.doc)
		}
	}
	s.mu.Unlock()
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version > versions[j].Version })
	respondJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (s *Server) handleVerifyPin(w http.ResponseWriter, r *http.Request, caller model.User, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	d, ok := s.lookup(id)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"message": "Document not found"})
		return
	}
	var in struct {
		Pin string `json:"pin"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	if d.doc.AccessLevel != model.AccessProtected || in.Pin != d.pin {
		respondJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid PIN", "invalidPin": true})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "PIN verified", "valid": true})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, caller model.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": "expecting multipart form"})
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": "No file uploaded"})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	level := model.AccessLevel(r.FormValue("accessLevel"))
	if level == "" {
		level = model.AccessPublic
	}
	pin := r.FormValue("accessPin")
	if level == model.AccessProtected && len(pin) < 4 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": "PIN must be at least 4 characters"})
		return
	}
	var tags []string
	for _, t := range strings.Split(r.FormValue("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	mimeType := header.Header.Get("Content-Type")

	s.mu.Lock()
	version := 1
	for _, sd := range s.docs {
		if sd.doc.OriginalName == header.Filename && sd.doc.UploadedBy.ID == caller.ID && sd.doc.IsLatestVersion {
			version = sd.doc.Version + 1
			sd.doc.IsLatestVersion = false
		}
	}
	s.mu.Unlock()

	doc := s.AddDocument(model.Document{
		OriginalName:    header.Filename,
		MimeType:        mimeType,
		Size:            int64(len(content)),
		Category:        categoryFor(mimeType),
		AccessLevel:     level,
		UploadedBy:      model.Owner{ID: caller.ID, Username: caller.Username},
		Description:     r.FormValue("description"),
		Tags:            tags,
		Version:         version,
		IsLatestVersion: true,
	}, content, pin)
	respondJSON(w, http.StatusCreated, map[string]any{"message": "File uploaded successfully", "document": doc})
}

func categoryFor(mimeType string) model.Category {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return model.CategoryImage
	case mimeType == "application/pdf":
		return model.CategoryPDF
	case strings.HasPrefix(mimeType, "text/"), strings.Contains(mimeType, "word"), strings.Contains(mimeType, "document"):
		return model.CategoryDocument
	default:
		return model.CategoryOther
	}
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request, caller model.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if caller.Role != model.RoleAdmin {
		respondJSON(w, http.StatusForbidden, map[string]string{"message": "Admin access required"})
		return
	}
	s.mu.Lock()
	users := make([]map[string]any, 0, len(s.accounts))
	for _, acc := range s.accounts {
		u := acc.user
		users = append(users, map[string]any{
			"_id": u.ID, "username": u.Username, "email": u.Email,
			"role": u.Role, "isActive": u.IsActive, "createdAt": u.CreatedAt,
		})
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i]["username"].(string) < users[j]["username"].(string) })
	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleUserRoute(w http.ResponseWriter, r *http.Request, caller model.User) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if len(parts) != 2 || r.Method != http.MethodPatch {
		http.NotFound(w, r)
		return
	}
	if caller.Role != model.RoleAdmin {
		respondJSON(w, http.StatusForbidden, map[string]string{"message": "Admin access required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[parts[0]]
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	switch parts[1] {
	case "toggle-status":
		acc.user.IsActive = !acc.user.IsActive
		respondJSON(w, http.StatusOK, map[string]any{"message": "User status updated", "user": acc.user})
	case "role":
		var in struct {
			Role model.Role `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || !in.Role.Valid() {
			respondJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid role"})
			return
		}
		acc.user.Role = in.Role
		respondJSON(w, http.StatusOK, map[string]any{"message": "User role updated", "user": acc.user})
	default:
		http.NotFound(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
