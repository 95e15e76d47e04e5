package atlas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateProject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/groups", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "hackday-team-1", body["name"])
		require.Equal(t, "org-id", body["orgId"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Project{ID: "p-1", Name: "hackday-team-1", OrgID: "org-id"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "org-id", "public", "private")

	project, err := client.CreateProject(context.Background(), "hackday-team-1")

	require.NoError(t, err)
	assert.Equal(t, "p-1", project.ID)
	assert.Equal(t, "hackday-team-1", project.Name)
}

func TestClient_GetCluster(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/groups/p-1/clusters/cluster-team-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Cluster{
			Name:      "cluster-team-1",
			StateName: StateIdle,
			ConnectionStrings: ConnectionStrings{
				Standard:    "mongodb://host:27017",
				StandardSrv: "mongodb+srv://host",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "org-id", "public", "private")

	cluster, err := client.GetCluster(context.Background(), "p-1", "cluster-team-1")

	require.NoError(t, err)
	assert.Equal(t, StateIdle, cluster.StateName)
	assert.Equal(t, "mongodb+srv://host", cluster.ConnectionStrings.StandardSrv)
}

func TestClient_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errorCode": "CLUSTER_NOT_FOUND", "detail": "No cluster named x exists."}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "org-id", "public", "private")

	_, err := client.GetCluster(context.Background(), "p-1", "x")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.ErrorContains(t, err, "CLUSTER_NOT_FOUND")
}

func TestClient_AnswersDigestChallenge(t *testing.T) {
	var authorized string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := r.Header.Get("Authorization")
		if authorization == "" {
			w.Header().Set("WWW-Authenticate", `Digest realm="MMS Public API", nonce="abc123", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		authorized = authorization
		_ = json.NewEncoder(w).Encode(Cluster{Name: "cluster-team-1", StateName: StateCreating})
	}))
	defer server.Close()

	client := NewClient(server.URL, "org-id", "public", "private")

	cluster, err := client.GetCluster(context.Background(), "p-1", "cluster-team-1")

	require.NoError(t, err)
	assert.Equal(t, StateCreating, cluster.StateName)
	assert.True(t, strings.HasPrefix(authorized, "Digest "), "expected a digest authorization header")
	assert.Contains(t, authorized, `username="public"`)
	assert.Contains(t, authorized, `nonce="abc123"`)
	assert.Contains(t, authorized, "qop=auth")
}

func TestParseChallenge(t *testing.T) {
	params := parseChallenge(`Digest realm="MMS Public API", domain="", nonce="n", algorithm=MD5, qop="auth", stale=false`)

	assert.Equal(t, "MMS Public API", params["realm"])
	assert.Equal(t, "n", params["nonce"])
	assert.Equal(t, "auth", params["qop"])
	assert.Equal(t, "MD5", params["algorithm"])
}
