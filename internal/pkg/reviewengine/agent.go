package reviewengine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	defaultAgentTimeout = 120 * time.Second
	agentUserID         = "github_auto_reviewer"
)

// AgentClient talks to an agent-runner service that manages conversational
// sessions and streams response fragments. One session is created per review
// call and never reused.
type AgentClient struct {
	baseURL string
	appName string
	client  *http.Client
}

// NewAgentClient creates an agent-runner engine client.
func NewAgentClient(baseURL, appName string, timeout time.Duration) *AgentClient {
	if timeout <= 0 {
		timeout = defaultAgentTimeout
	}
	if appName == "" {
		appName = "agents"
	}
	return &AgentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		appName: appName,
		client:  &http.Client{Timeout: timeout},
	}
}

type agentPart struct {
	Text string `json:"text,omitempty"`
}

type agentContent struct {
	Role  string      `json:"role"`
	Parts []agentPart `json:"parts"`
}

type agentRunRequest struct {
	AppName    string       `json:"app_name"`
	UserID     string       `json:"user_id"`
	SessionID  string       `json:"session_id"`
	NewMessage agentContent `json:"new_message"`
	Streaming  bool         `json:"streaming"`
}

type agentEvent struct {
	Content *agentContent `json:"content"`
}

// createSession registers the session with the runner before any message is
// submitted. Failure here is fatal for the review call.
func (c *AgentClient) createSession(ctx context.Context, sessionID string) error {
	url := fmt.Sprintf("%s/apps/%s/users/%s/sessions/%s", c.baseURL, c.appName, agentUserID, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("create session: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Review creates a fresh session, submits the diff and consumes the streamed
// event fragments, keeping only the last non-empty text part as the verdict.
// Intermediate fragments are reasoning chatter; the final one is the
// synthesized answer.
func (c *AgentClient) Review(ctx context.Context, diff string, prNumber int) (*Verdict, error) {
	sessionID := newSessionID(prNumber)

	if err := c.createSession(ctx, sessionID); err != nil {
		return nil, err
	}

	runReq := agentRunRequest{
		AppName:   c.appName,
		UserID:    agentUserID,
		SessionID: sessionID,
		NewMessage: agentContent{
			Role:  "user",
			Parts: []agentPart{{Text: reviewPrompt(diff)}},
		},
		Streaming: true,
	}

	payload, err := json.Marshal(runReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run_sse", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("run review: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("run review: status %d: %s", resp.StatusCode, string(body))
	}

	final := ""
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var event agentEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			log.Debugf("[ReviewEngine] skipping unparseable event fragment: %v", err)
			continue
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part.Text != "" {
				final = part.Text
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read review stream: %w", err)
	}

	if final == "" {
		log.Warnf("[ReviewEngine] no response from agent for session %s", sessionID)
		return nil, nil
	}

	return &Verdict{Text: final}, nil
}
