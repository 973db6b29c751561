package yandex_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxassist/voxassist"
	"github.com/voxassist/voxassist/provider/yandex"
)

func TestGPT_Complete(t *testing.T) {
	var gotBody map[string]any
	var gotAuth, gotFolder string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFolder = r.Header.Get("x-folder-id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		io.WriteString(w, `{
			"result": {
				"alternatives": [
					{"message": {"role": "assistant", "text": "Привет!"}, "status": "ALTERNATIVE_STATUS_FINAL"}
				],
				"usage": {"inputTextTokens": "28", "completionTokens": "13", "totalTokens": "41"}
			}
		}`)
	}))
	defer srv.Close()

	gpt := yandex.NewGPT(yandex.StaticTokenSource("t-123"), "folder-1",
		yandex.WithCompletionURL(srv.URL),
		yandex.WithSystemPrompt("be brief"))

	got, err := gpt.Complete(context.Background(), []voxassist.Message{
		{Role: voxassist.RoleUser, Text: "hello"},
		{Role: voxassist.RoleBot, Text: "hi"},
		{Role: voxassist.RoleUser, Text: "again"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Привет!", got.Text)
	assert.Equal(t, int64(41), got.TokensUsed)

	assert.Equal(t, "Bearer t-123", gotAuth)
	assert.Equal(t, "folder-1", gotFolder)
	assert.Equal(t, "gpt://folder-1/yandexgpt-lite", gotBody["modelUri"])

	opts := gotBody["completionOptions"].(map[string]any)
	assert.Equal(t, "120", opts["maxTokens"], "token limit goes over the wire as a string")

	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 4, "system prompt plus three context messages")
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	second := messages[2].(map[string]any)
	assert.Equal(t, "assistant", second["role"], "bot role maps to assistant")
}

func TestGPT_Complete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gpt := yandex.NewGPT(yandex.StaticTokenSource("t"), "f",
		yandex.WithCompletionURL(srv.URL))

	_, err := gpt.Complete(context.Background(), []voxassist.Message{{Role: voxassist.RoleUser, Text: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestGPT_Complete_NoAlternatives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"result": {"alternatives": []}}`)
	}))
	defer srv.Close()

	gpt := yandex.NewGPT(yandex.StaticTokenSource("t"), "f",
		yandex.WithCompletionURL(srv.URL))

	_, err := gpt.Complete(context.Background(), []voxassist.Message{{Role: voxassist.RoleUser, Text: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no alternatives")
}

func TestSpeechKit_Transcribe(t *testing.T) {
	var gotQuery map[string][]string
	var gotAudio []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAudio, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"result": "включи свет"}`)
	}))
	defer srv.Close()

	sk := yandex.NewSpeechKit(yandex.StaticTokenSource("t"), "folder-1",
		yandex.WithSTTURL(srv.URL))

	text, err := sk.Transcribe(context.Background(), []byte("ogg-opus-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "включи свет", text)
	assert.Equal(t, []byte("ogg-opus-bytes"), gotAudio, "raw audio is the request body")
	assert.Equal(t, []string{"general"}, gotQuery["topic"])
	assert.Equal(t, []string{"ru-RU"}, gotQuery["lang"])
	assert.Equal(t, []string{"folder-1"}, gotQuery["folderId"])
}

func TestSpeechKit_Transcribe_RecognitionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"error_code": "BAD_REQUEST", "error_message": "audio too long"}`)
	}))
	defer srv.Close()

	sk := yandex.NewSpeechKit(yandex.StaticTokenSource("t"), "f",
		yandex.WithSTTURL(srv.URL))

	_, err := sk.Transcribe(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD_REQUEST")
	assert.Contains(t, err.Error(), "audio too long")
}

func TestSpeechKit_Synthesize(t *testing.T) {
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Write([]byte("fake-ogg"))
	}))
	defer srv.Close()

	sk := yandex.NewSpeechKit(yandex.StaticTokenSource("t"), "folder-1",
		yandex.WithTTSURL(srv.URL),
		yandex.WithVoice("alena"))

	audio, err := sk.Synthesize(context.Background(), "добрый день")
	require.NoError(t, err)

	assert.Equal(t, []byte("fake-ogg"), audio)
	assert.Equal(t, []string{"добрый день"}, gotForm["text"])
	assert.Equal(t, []string{"alena"}, gotForm["voice"])
	assert.Equal(t, []string{"oggopus"}, gotForm["format"])
	assert.Equal(t, []string{"folder-1"}, gotForm["folderId"])
}

func TestMetadataTokenSource(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Google", r.Header.Get("Metadata-Flavor"))
		io.WriteString(w, `{"access_token": "iam-abc", "expires_in": 3600}`)
	}))
	defer srv.Close()

	ts := yandex.NewMetadataTokenSource(yandex.WithMetadataURL(srv.URL))

	ctx := context.Background()
	tok, err := ts.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "iam-abc", tok)

	// Second call within the expiry window hits the cache.
	tok, err = ts.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "iam-abc", tok)
	assert.Equal(t, 1, calls)
}

func TestMetadataTokenSource_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"access_token": "", "expires_in": 3600}`)
	}))
	defer srv.Close()

	ts := yandex.NewMetadataTokenSource(yandex.WithMetadataURL(srv.URL))

	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty token")
}
