package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"portfolioai/pkg/domain"
	"portfolioai/services/portfolio/internal/app"
)

type messageView struct {
	Sender domain.Sender `json:"sender"`
	Text   string        `json:"text"`
	Time   string        `json:"time"`
}

func toMessageView(m domain.Message) messageView {
	return messageView{Sender: m.Sender, Text: m.Text, Time: domain.FormatTime(m.CreatedAt)}
}

type initialMessageView struct {
	Sender domain.Sender `json:"sender"`
	Text   string        `json:"text"`
}

type createdChatView struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	PageURL        string             `json:"page_url"`
	InitialMessage initialMessageView `json:"initialMessage"`
	Messages       []messageView      `json:"messages"`
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type deployRequest struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		s.handleListChats(w, r, user)
	case http.MethodPost:
		s.handleCreateChat(w, r, user)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleChatByID serves /api/chats/{id}/messages.
func (s *Server) handleChatByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/chats/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "messages" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	chatID := parts[0]
	switch r.Method {
	case http.MethodGet:
		msgs, err := s.app.ListMessages(r.Context(), user, chatID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		views := make([]messageView, 0, len(msgs))
		for _, m := range msgs {
			views = append(views, toMessageView(m))
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": views})
	case http.MethodPost:
		var req sendMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		reply, err := s.app.SendMessage(r.Context(), user, chatID, req.Message)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message": toMessageView(reply)})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "resume file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "resume file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := app.CreateChatInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("additionalDescription"),
	}
	file, header, err := r.FormFile("resume")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read resume")
			return
		}
		in.Filename = header.Filename
		in.Document = data
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeError(w, http.StatusBadRequest, "invalid resume upload")
		return
	}

	created, err := s.app.CreateChat(r.Context(), user, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	initial := created.InitialMessage
	writeJSON(w, http.StatusCreated, map[string]any{"chat": createdChatView{
		ID:             created.Chat.ID,
		Title:          created.Chat.Title,
		PageURL:        created.Chat.PageLocator,
		InitialMessage: initialMessageView{Sender: initial.Sender, Text: initial.Text},
		Messages:       []messageView{toMessageView(initial)},
	}})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request, user domain.User) {
	summaries, err := s.app.ListChats(r.Context(), user)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": summaries})
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req deployRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	locator, err := s.app.Publish(r.Context(), user, req.ChatID, req.Content)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"page_url": locator})
}
