package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tud-hci/ticketlab/internal/model"
)

func userMsg(content string) model.ChatMessage {
	return model.ChatMessage{Role: model.ChatRoleUser, Content: content}
}

func TestOpenAIReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing auth header")
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("expected model gpt-4o-mini, got %s", req.Model)
		}
		if req.Temperature == nil || *req.Temperature != 0.2 {
			t.Errorf("expected temperature 0.2, got %v", req.Temperature)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected system + user message, got %d", len(req.Messages))
		}
		system := req.Messages[0].Content
		if !strings.Contains(system, "Return Policy") {
			t.Error("system prompt missing knowledge base content")
		}
		if !strings.Contains(system, "TCK-1001") {
			t.Error("system prompt missing ticket context")
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  Returns are accepted within 30 days. "}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAI("test-key",
		WithBaseURL(srv.URL),
		WithKnowledge([]Document{{Title: "Return Policy", Content: "Returns within 30 days."}}),
	)

	ticket := &model.Ticket{ID: "TCK-1001", Subject: "Charged twice", Description: "Duplicate charge on order."}
	got, err := p.Reply(context.Background(), Request{
		Messages: []model.ChatMessage{userMsg("What is the return policy?")},
		Ticket:   ticket,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Returns are accepted within 30 days." {
		t.Errorf("expected trimmed completion, got %q", got)
	}
}

func TestOpenAIReplyKeepsOnlyRecentHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		// system + the 10 most recent turns
		if len(req.Messages) != 11 {
			t.Errorf("expected 11 messages, got %d", len(req.Messages))
		}
		if req.Messages[1].Content != "turn 5" {
			t.Errorf("expected history to start at turn 5, got %q", req.Messages[1].Content)
		}

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", WithBaseURL(srv.URL))

	var history []model.ChatMessage
	for i := 0; i < 15; i++ {
		history = append(history, userMsg(fmt.Sprintf("turn %d", i)))
	}
	if _, err := p.Reply(context.Background(), Request{Messages: history}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpenAIReplySurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", WithBaseURL(srv.URL))
	_, err := p.Reply(context.Background(), Request{Messages: []model.ChatMessage{userMsg("hi")}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 429") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestScriptedRules(t *testing.T) {
	s := NewScripted()
	ctx := context.Background()

	cases := []struct {
		name    string
		message string
		want    string
	}{
		{"return policy", "How do refunds work?", "Our return policy"},
		{"shipping", "When will my delivery arrive?", "Standard Shipping"},
		{"login", "The customer's account locked up", "locked after 5 failed attempts"},
		{"duplicate charge", "They were charged twice", "authorization hold"},
		{"fallback", "What is the meaning of life?", "What specific information do you need?"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Reply(ctx, Request{Messages: []model.ChatMessage{userMsg(tc.message)}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tc.want) {
				t.Errorf("expected answer containing %q, got %q", tc.want, got)
			}
		})
	}
}

func TestScriptedDraftUsesTicketTemplate(t *testing.T) {
	s := NewScripted()
	ticket := &model.Ticket{
		ID:           "TCK-1001",
		GoldStandard: model.GoldStandard{ResponseTemplate: "Dear customer, refund issued."},
	}

	got, err := s.Reply(context.Background(), Request{
		Messages: []model.ChatMessage{userMsg("Can you draft a reply for me?")},
		Ticket:   ticket,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Dear customer, refund issued." {
		t.Errorf("expected template, got %q", got)
	}

	got, err = s.Reply(context.Background(), Request{
		Messages: []model.ChatMessage{userMsg("Can you draft a reply for me?")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "which ticket") {
		t.Errorf("expected prompt for ticket, got %q", got)
	}
}
