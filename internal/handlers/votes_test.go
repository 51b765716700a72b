package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/prompt-board/backend/internal/apperr"
	"github.com/emilythestrangee/prompt-board/backend/internal/middleware"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
	"github.com/emilythestrangee/prompt-board/backend/internal/votes"
)

func init() {
	gin.SetMode(gin.TestMode)
	useJSONFieldNames()
}

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Apply(ctx context.Context, userID, promptID string, value int) (*votes.Result, error) {
	args := m.Called(ctx, userID, promptID, value)
	res, _ := args.Get(0).(*votes.Result)
	return res, args.Error(1)
}

func (m *mockEngine) UserVote(ctx context.Context, userID, promptID string) (*models.Vote, error) {
	args := m.Called(ctx, userID, promptID)
	vote, _ := args.Get(0).(*models.Vote)
	return vote, args.Error(1)
}

func (m *mockEngine) UserVotes(ctx context.Context, userID string, promptIDs []string) (map[string]int, error) {
	args := m.Called(ctx, userID, promptIDs)
	out, _ := args.Get(0).(map[string]int)
	return out, args.Error(1)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// voteRouter mounts the vote routes behind a stand-in for Authenticate that
// signs every request in as userID, or rejects it when userID is empty.
func voteRouter(engine VoteEngine, userID string) *gin.Engine {
	h := NewVoteHandler(engine)
	authn := func(c *gin.Context) {
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized, no token"})
			return
		}
		middleware.SetUser(c, &models.User{ID: userID})
		c.Next()
	}

	r := gin.New()
	r.POST("/votes", authn, h.Vote)
	r.GET("/votes/:promptId", authn, h.GetVote)
	return r
}

func postVote(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/votes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVoteHandler_Vote(t *testing.T) {
	const userID = "11111111-1111-1111-1111-111111111111"
	const promptID = "22222222-2222-2222-2222-222222222222"

	tests := []struct {
		name       string
		body       string
		setup      func(m *mockEngine)
		wantStatus int
		wantMsg    string
	}{
		{
			name: "created",
			body: `{"promptId":"` + promptID + `","value":1}`,
			setup: func(m *mockEngine) {
				m.On("Apply", mock.Anything, userID, promptID, 1).Return(&votes.Result{
					Prompt: models.Prompt{ID: promptID, UpVotes: 1},
					Vote:   &models.Vote{UserID: userID, PromptID: promptID, Value: 1},
					Action: votes.ActionCreated,
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantMsg:    "Vote created successfully",
		},
		{
			name: "removed",
			body: `{"promptId":"` + promptID + `","value":-1}`,
			setup: func(m *mockEngine) {
				m.On("Apply", mock.Anything, userID, promptID, -1).Return(&votes.Result{
					Prompt: models.Prompt{ID: promptID},
					Action: votes.ActionRemoved,
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantMsg:    "Vote removed successfully",
		},
		{
			name:       "zero value",
			body:       `{"promptId":"` + promptID + `","value":0}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "value out of range",
			body:       `{"promptId":"` + promptID + `","value":2}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid vote value. Must be 1 (upvote) or -1 (downvote)",
		},
		{
			name:       "value not a number",
			body:       `{"promptId":"` + promptID + `","value":"up"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing prompt id",
			body:       `{"value":1}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "promptId is required",
		},
		{
			name:       "malformed json",
			body:       `{"promptId":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown prompt",
			body: `{"promptId":"` + promptID + `","value":1}`,
			setup: func(m *mockEngine) {
				m.On("Apply", mock.Anything, userID, promptID, 1).
					Return(nil, apperr.New(apperr.NotFound, "Prompt not found"))
			},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Prompt not found",
		},
		{
			name: "storage failure hides details",
			body: `{"promptId":"` + promptID + `","value":1}`,
			setup: func(m *mockEngine) {
				m.On("Apply", mock.Anything, userID, promptID, 1).
					Return(nil, apperr.Wrap(apperr.Internal, "Database error", assert.AnError))
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &mockEngine{}
			if tt.setup != nil {
				tt.setup(engine)
			}

			w := postVote(voteRouter(engine, userID), tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.wantStatus == http.StatusOK, env.Success)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, env.Message)
			}

			engine.AssertExpectations(t)
			if tt.setup == nil {
				engine.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestVoteHandler_VoteResponseShape(t *testing.T) {
	engine := &mockEngine{}
	engine.On("Apply", mock.Anything, "u1", "p1", 1).Return(&votes.Result{
		Prompt: models.Prompt{ID: "p1", UpVotes: 5, DownVotes: 2},
		Vote:   &models.Vote{ID: "v1", UserID: "u1", PromptID: "p1", Value: 1},
		Action: votes.ActionChanged,
	}, nil)

	w := postVote(voteRouter(engine, "u1"), `{"promptId":"p1","value":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Prompt struct {
			ID        string `json:"id"`
			UpVotes   int    `json:"upVotes"`
			DownVotes int    `json:"downVotes"`
		} `json:"prompt"`
		Vote   *struct{ Value int } `json:"vote"`
		Action string               `json:"action"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))

	assert.Equal(t, "p1", data.Prompt.ID)
	assert.Equal(t, 5, data.Prompt.UpVotes)
	assert.Equal(t, 2, data.Prompt.DownVotes)
	require.NotNil(t, data.Vote)
	assert.Equal(t, 1, data.Vote.Value)
	assert.Equal(t, "changed", data.Action)
}

func TestVoteHandler_RequiresAuthentication(t *testing.T) {
	engine := &mockEngine{}
	r := voteRouter(engine, "")

	w := postVote(r, `{"promptId":"p1","value":1}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/votes/p1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	engine.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	engine.AssertNotCalled(t, "UserVote", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoteHandler_GetVote(t *testing.T) {
	engine := &mockEngine{}
	engine.On("UserVote", mock.Anything, "u1", "p1").
		Return(&models.Vote{ID: "v1", UserID: "u1", PromptID: "p1", Value: -1}, nil)
	engine.On("UserVote", mock.Anything, "u1", "p2").Return(nil, nil)

	r := voteRouter(engine, "u1")

	get := func(promptID string) map[string]*models.Vote {
		req := httptest.NewRequest(http.MethodGet, "/votes/"+promptID, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var data map[string]*models.Vote
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
		return data
	}

	data := get("p1")
	require.NotNil(t, data["vote"])
	assert.Equal(t, -1, data["vote"].Value)

	data = get("p2")
	assert.Contains(t, data, "vote")
	assert.Nil(t, data["vote"])

	engine.AssertExpectations(t)
}
