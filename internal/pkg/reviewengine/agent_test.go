package reviewengine

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentReviewKeepsLastFragment(t *testing.T) {
	var mu sync.Mutex
	var order []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		order = append(order, r.URL.Path)
		mu.Unlock()

		if strings.Contains(r.URL.Path, "/sessions/") {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Contains(t, r.URL.Path, "/apps/agents/users/github_auto_reviewer/sessions/pr_7_")
			w.WriteHeader(http.StatusOK)
			return
		}

		require.Equal(t, "/run_sse", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"thinking about it\"}]}}\n\n")
		fmt.Fprint(w, "data: {\"content\":{\"role\":\"model\",\"parts\":[{}]}}\n\n")
		fmt.Fprint(w, "data: {\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Final review: looks good.\"}]}}\n\n")
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, "agents", 10*time.Second)

	verdict, err := client.Review(t.Context(), "diff --git a/x b/x\n", 7)
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.Equal(t, "Final review: looks good.", verdict.Text)

	// session must exist before the message is submitted
	require.Len(t, order, 2)
	assert.Contains(t, order[0], "/sessions/")
	assert.Equal(t, "/run_sse", order[1])
}

func TestAgentReviewNoOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/sessions/") {
			w.WriteHeader(http.StatusOK)
			return
		}
		fmt.Fprint(w, "data: {\"content\":{\"role\":\"model\",\"parts\":[{}]}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, "agents", 10*time.Second)

	verdict, err := client.Review(t.Context(), "diff", 7)
	require.NoError(t, err)
	assert.Nil(t, verdict, "no usable output means no verdict, not an error")
}

func TestAgentReviewSessionFailureIsFatal(t *testing.T) {
	ranReview := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/sessions/") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		ranReview = true
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, "agents", 10*time.Second)

	_, err := client.Review(t.Context(), "diff", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create session")
	assert.False(t, ranReview, "review must not be submitted without a session")
}

func TestAgentReviewSkipsMalformedFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/sessions/") {
			w.WriteHeader(http.StatusOK)
			return
		}
		fmt.Fprint(w, "data: this is not json\n\n")
		fmt.Fprint(w, ": heartbeat comment\n\n")
		fmt.Fprint(w, "data: {\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"verdict\"}]}}\n\n")
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, "agents", 10*time.Second)

	verdict, err := client.Review(t.Context(), "diff", 7)
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.Equal(t, "verdict", verdict.Text)
}

func TestNewSessionIDUniquePerCall(t *testing.T) {
	a := newSessionID(12)
	b := newSessionID(12)

	assert.Regexp(t, `^pr_12_[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}
