package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskCommandStreamsAnswer(t *testing.T) {
	var gotFileID interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotFileID = body["file_id"]
		_, _ = w.Write([]byte("forty-two"))
	}))
	defer srv.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--server", srv.URL, "ask", "--file", "4", "meaning", "of", "life"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "forty-two\n", out.String())
	assert.EqualValues(t, 4, gotFileID)
}

func TestRemoveCommandRejectsBadID(t *testing.T) {
	rootCmd.SetArgs([]string{"remove", "abc"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	assert.Error(t, rootCmd.Execute())
}
