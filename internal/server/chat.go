package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/rcliao/companion/internal/analyze"
	"github.com/rcliao/companion/internal/llm"
	"github.com/rcliao/companion/internal/model"
	"github.com/rcliao/companion/internal/prompt"
	"github.com/rcliao/companion/internal/store"
)

const specialMaxTokens = 100

type jiaProfile struct {
	Name        string       `json:"name"`
	Personality model.Traits `json:"personality"`
	VoiceStyle  string       `json:"voiceStyle"`
}

type chatRequest struct {
	Messages         []model.ChatMessage `json:"messages"`
	SystemPrompt     string              `json:"systemPrompt"`
	JiaProfile       *jiaProfile         `json:"jiaProfile"`
	UserName         string              `json:"userName"`
	Memories         []prompt.Memory     `json:"memories"`
	RelationshipDays int                 `json:"relationshipDays"`
	HasMedia         bool                `json:"hasMedia"`
	MediaDescription string              `json:"mediaDescription"`

	// UserID and MessageID enable server-side persona, memory and mood
	// handling when a store is configured.
	UserID    string `json:"userId"`
	MessageID string `json:"messageId"`
}

type chatResponse struct {
	Message           string                   `json:"message"`
	TokensUsed        int                      `json:"tokensUsed"`
	Sentiment         *analyze.SentimentResult `json:"sentiment"`
	Mood              *analyze.MoodResult      `json:"mood"`
	ExtractedMemories []analyze.Candidate      `json:"extractedMemories"`
	Timestamp         int64                    `json:"timestamp"`
}

func validateMessages(msgs []model.ChatMessage) error {
	if msgs == nil {
		return errors.New("messages is required")
	}
	for i, m := range msgs {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			return fmt.Errorf("messages[%d].role must be user or assistant", i)
		}
	}
	return nil
}

func (req *chatRequest) validate() error {
	if err := validateMessages(req.Messages); err != nil {
		return err
	}
	if req.JiaProfile != nil && req.JiaProfile.Name == "" {
		return errors.New("jiaProfile.name is required")
	}
	return nil
}

func (s *Server) readChat(w http.ResponseWriter, r *http.Request) (*chatRequest, bool) {
	var req chatRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

// systemPrompt picks the instruction for a turn: an explicit prompt, then a
// client-sent profile, then the stored persona with recalled memories, then
// fallback.
func (s *Server) systemPrompt(ctx context.Context, req *chatRequest, fallback string) string {
	if req.SystemPrompt != "" {
		return req.SystemPrompt
	}
	if p := req.JiaProfile; p != nil {
		days := req.RelationshipDays
		if days == 0 {
			days = 1
		}
		return prompt.System(prompt.Params{
			PersonaName:      p.Name,
			UserName:         req.UserName,
			Traits:           p.Personality,
			Memories:         req.Memories,
			VoiceStyle:       p.VoiceStyle,
			RelationshipDays: days,
		})
	}
	if req.UserID != "" && s.store != nil {
		sys, err := s.storedPrompt(ctx, req)
		if err == nil {
			return sys
		}
		s.log.Warn("stored persona unavailable", zap.String("user_id", req.UserID), zap.Error(err))
	}
	return fallback
}

func (s *Server) storedPrompt(ctx context.Context, req *chatRequest) (string, error) {
	persona, err := s.store.EnsurePersona(ctx, req.UserID)
	if err != nil {
		return "", fmt.Errorf("persona: %w", err)
	}
	recalled, err := s.store.Context(ctx, req.UserID, s.maxMemories)
	if err != nil {
		return "", fmt.Errorf("memories: %w", err)
	}
	p := prompt.FromPersona(persona, req.UserName, recalled.Selected, s.now())
	p.Memories = append(p.Memories, req.Memories...)
	return prompt.System(p), nil
}

func (s *Server) conversation(ctx context.Context, req *chatRequest, fallback string) []model.ChatMessage {
	msgs := req.Messages
	if req.HasMedia {
		msgs = prompt.WithMedia(msgs, req.MediaDescription)
	}
	return prompt.Conversation(s.systemPrompt(ctx, req, fallback), msgs, s.historyLimit)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readChat(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	resp, err := s.llm.Complete(ctx, llm.Request{Messages: s.conversation(ctx, req, prompt.Default)})
	if err != nil {
		s.log.Error("chat failed", zap.String("request_id", RequestID(ctx)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate response")
		return
	}

	out := chatResponse{
		Message:           resp.Content,
		TokensUsed:        resp.TokensUsed,
		ExtractedMemories: []analyze.Candidate{},
		Timestamp:         s.now().UnixMilli(),
	}
	if last, ok := prompt.LastUserMessage(req.Messages); ok {
		sentiment := analyze.Sentiment(last)
		mood := analyze.Mood(last)
		out.Sentiment = &sentiment
		out.Mood = &mood
		if found := analyze.Memories(last, resp.Content, s.now()); len(found) > 0 {
			out.ExtractedMemories = found
		}
		s.persistSignals(ctx, req, mood, out.ExtractedMemories)
	}
	writeJSON(w, http.StatusOK, out)
}

// persistSignals stores the detected mood and memory candidates for a known
// user. Failures are logged and never fail the turn.
func (s *Server) persistSignals(ctx context.Context, req *chatRequest, mood analyze.MoodResult, candidates []analyze.Candidate) {
	if req.UserID == "" || s.store == nil {
		return
	}
	msgID := req.MessageID
	if msgID == "" {
		msgID = newRequestID()
	}
	log := s.log.With(zap.String("user_id", req.UserID), zap.String("message_id", msgID))

	if _, err := s.store.RecordMood(ctx, store.RecordMoodParams{
		UserID:       req.UserID,
		Mood:         mood.Mood,
		Intensity:    mood.Intensity,
		DetectedFrom: msgID,
	}); err != nil {
		log.Warn("record mood failed", zap.Error(err))
	}
	if len(candidates) == 0 {
		return
	}
	saved, err := s.store.ExtractFromMessage(ctx, store.ExtractParams{
		UserID:     req.UserID,
		MessageID:  msgID,
		Candidates: candidates,
	})
	if err != nil {
		log.Warn("store memories failed", zap.Error(err))
		return
	}
	log.Debug("memories stored", zap.Int("count", len(saved)))
}

type streamEvent struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Error   string `json:"error,omitempty"`
}

// sseWriter defers the event-stream headers until the first event so that a
// provider failure before any output can still be answered with a JSON error.
type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func (e *sseWriter) send(ev streamEvent) error {
	if !e.started {
		h := e.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		e.w.WriteHeader(http.StatusOK)
		e.started = true
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return e.rc.Flush()
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readChat(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sse := &sseWriter{w: w, rc: http.NewResponseController(w)}

	err := s.llm.Stream(ctx, llm.Request{Messages: s.conversation(ctx, req, prompt.DefaultStream)},
		func(delta string) error {
			return sse.send(streamEvent{Content: delta})
		})
	if err != nil {
		s.log.Error("stream failed", zap.String("request_id", RequestID(ctx)), zap.Error(err))
		if !sse.started {
			writeError(w, http.StatusInternalServerError, "Failed to start stream")
			return
		}
		sse.send(streamEvent{Error: "Stream error"})
		return
	}
	sse.send(streamEvent{Done: true})
}

func (s *Server) handleExtractMemories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateMessages(req.Messages); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	memories := analyze.ConversationMemories(req.Messages, s.now())
	if memories == nil {
		memories = []analyze.Candidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": memories})
}

func (s *Server) handleSpecialMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Occasion         string  `json:"occasion"`
		UserName         *string `json:"userName"`
		JiaName          string  `json:"jiaName"`
		RelationshipDays int     `json:"relationshipDays"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserName == nil {
		writeError(w, http.StatusBadRequest, "userName is required")
		return
	}
	system, user, ok := prompt.Special(prompt.SpecialRequest{
		Occasion:         req.Occasion,
		PersonaName:      req.JiaName,
		UserName:         *req.UserName,
		RelationshipDays: req.RelationshipDays,
	})
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown occasion %q", req.Occasion))
		return
	}

	resp, err := s.llm.Complete(r.Context(), llm.Request{
		MaxTokens: specialMaxTokens,
		Messages: []model.ChatMessage{
			{Role: model.RoleSystem, Content: system},
			{Role: model.RoleUser, Content: user},
		},
	})
	if err != nil {
		s.log.Error("special message failed", zap.String("occasion", req.Occasion), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": resp.Content, "occasion": req.Occasion})
}

// handleAnalyzeImage never fails the client: provider errors yield a
// generic description.
func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := decodeJSON(r, &req, false); err != nil || req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "imageUrl is required")
		return
	}
	desc, err := s.llm.DescribeImage(r.Context(), req.ImageURL)
	if err != nil {
		s.log.Warn("image analysis failed", zap.Error(err))
		desc = llm.ImageErrorMessage
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": desc})
}
