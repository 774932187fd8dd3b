package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGitLabSource(t *testing.T, handler http.HandlerFunc) *GitLab {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	src, err := NewGitLab("tok", server.URL+"/api/v4", "7", &fakeExtractor{}, quietLogger())
	require.NoError(t, err)
	return src
}

func TestNewGitLabRequiresToken(t *testing.T) {
	_, err := NewGitLab("", "", "7", &fakeExtractor{}, nil)
	assert.Error(t, err)
}

func TestGitLabFetchPendingTickets(t *testing.T) {
	src := newGitLabSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/7/issues", r.URL.Path)
		assert.Equal(t, LabelPending, r.URL.Query().Get("labels"))
		assert.Equal(t, "opened", r.URL.Query().Get("state"))
		fmt.Fprint(w, `[
			{"iid":3,"title":"Acme","description":"Alice","labels":["onboard:pending","env:IND POC"]},
			{"iid":4,"title":"Blank","description":"","labels":["env:IND POC"]}
		]`)
	})

	tickets, err := src.FetchPendingTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "3", tickets[0].Key)
	assert.Equal(t, []string{"IND POC"}, tickets[0].Environments)
}

func TestGitLabMarkDone(t *testing.T) {
	var body map[string]any
	src := newGitLabSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v4/projects/7/issues/3", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprint(w, `{"iid":3}`)
	})

	require.NoError(t, src.MarkDone(context.Background(), "3"))
	assert.Equal(t, "close", body["state_event"])
	assert.Equal(t, LabelDone, body["add_labels"])
	assert.Equal(t, LabelInProgress, body["remove_labels"])
}

func TestGitLabAddComment(t *testing.T) {
	src := newGitLabSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/7/issues/3/notes", r.URL.Path)
		var note struct {
			Body string `json:"body"`
		}
		_ = json.NewDecoder(r.Body).Decode(&note)
		assert.Equal(t, "hello", note.Body)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":1}`)
	})

	require.NoError(t, src.AddComment(context.Background(), "3", "hello"))
}
