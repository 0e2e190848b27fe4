package reviewengine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIReview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "diff --git")
		assert.Regexp(t, `^pr_9_[0-9a-f]{8}$`, req.User)

		fmt.Fprint(w, `{
			"choices": [{"message": {"role": "assistant", "content": "Consider adding error handling."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 21, "total_tokens": 121}
		}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", "", 10*time.Second)
	client.SetBaseURL(srv.URL)

	verdict, err := client.Review(t.Context(), "diff --git a/x b/x\n", 9)
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.Equal(t, "Consider adding error handling.", verdict.Text)
	assert.Equal(t, 121, verdict.TokensUsed)
}

func TestOpenAIReviewEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [], "usage": {"total_tokens": 0}}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", "", 10*time.Second)
	client.SetBaseURL(srv.URL)

	verdict, err := client.Review(t.Context(), "diff", 9)
	require.NoError(t, err)
	assert.Nil(t, verdict)
}

func TestOpenAIReviewAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited"}}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", "", 10*time.Second)
	client.SetBaseURL(srv.URL)

	_, err := client.Review(t.Context(), "diff", 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
