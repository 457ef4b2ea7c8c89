package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"docchat/internal/auth"
	"docchat/internal/core"
	"docchat/internal/store"
)

// ChatStreamer runs the chat pipeline and returns the answer token stream.
type ChatStreamer interface {
	StreamAnswer(ctx context.Context, userID, question string, history []core.ChatMessage) (<-chan string, <-chan error, error)
}

// DocumentManager handles document upload ingestion and retrieval.
type DocumentManager interface {
	Ingest(ctx context.Context, userID, filename string, data []byte) error
	Fetch(ctx context.Context, userID string) (*store.StoredDocument, error)
}

// UserStore provides user lookup and creation for login/signup.
type UserStore interface {
	GetUserByUsername(username string) (*store.User, error)
	CreateUser(username, firstName, lastName, passwordHash string) (*store.User, error)
}

type APIHandler struct {
	chat      ChatStreamer
	documents DocumentManager
	users     UserStore
	jwtSecret string
}

func NewAPIHandler(chat ChatStreamer, documents DocumentManager, users UserStore, jwtSecret string) *APIHandler {
	return &APIHandler{
		chat:      chat,
		documents: documents,
		users:     users,
		jwtSecret: jwtSecret,
	}
}

type SignupRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.Username, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.users.CreateUser(req.Username, req.FirstName, req.LastName, hashedPassword)
	if err != nil {
		log.Printf("Error creating user %s: %v", req.Username, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByUsername(req.Username)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.Username, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(req.Username, h.jwtSecret)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.Username, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(LoginResponse{Username: req.Username, Token: token})
}

type ChatRequest struct {
	Question string             `json:"question"`
	History  []core.ChatMessage `json:"history"`
}

// ChatHandler streams the generated answer as a chunked plain-text body,
// flushing each token as it is produced. Closing the connection cancels the
// request context, which stops the upstream model stream.
func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-Id")
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "Question is required", http.StatusBadRequest)
		return
	}

	tokens, errs, err := h.chat.StreamAnswer(r.Context(), userID, req.Question, req.History)
	if err != nil {
		log.Printf("Chat pipeline failed for user %s: %v", userID, err)
		http.Error(w, "Failed to generate answer", http.StatusInternalServerError)
		return
	}

	// Hold the success status until the first token arrives: a generation
	// failure before any output must fail the request rather than pass as
	// an empty answer.
	firstToken, ok := <-tokens
	if !ok {
		if err := <-errs; err != nil {
			log.Printf("Chat generation failed for user %s: %v", userID, err)
			http.Error(w, "Failed to generate answer", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	flusher, canFlush := w.(http.Flusher)

	for token, open := firstToken, true; open; token, open = <-tokens {
		if _, err := io.WriteString(w, token); err != nil {
			// Client went away; the request context is cancelled with it.
			log.Printf("Chat stream write failed for user %s: %v", userID, err)
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}

	// A mid-stream failure terminates the body early; the incomplete
	// response is the client's error signal.
	if err := <-errs; err != nil {
		log.Printf("Chat stream for user %s ended with error: %v", userID, err)
	}
}

// UploadDocumentHandler ingests an uploaded PDF. Every failure maps to a 400
// with a plain-text reason.
func (h *APIHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-Id")
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.documents.Ingest(r.Context(), userID, header.Filename, data); err != nil {
		log.Printf("Document ingestion failed for user %s: %v", userID, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *APIHandler) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-Id")
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	doc, err := h.documents.Fetch(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, core.ErrNoDocument) {
			log.Printf("Document fetch failed for user %s: %v", userID, err)
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Write(doc.Data)
}
