package cluster

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hackday-sre/cluster-manager/internal/errdef"
	"github.com/hackday-sre/cluster-manager/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Provision(t *testing.T) {
	leader := &model.User{ID: 42, LeaderTeams: []model.Team{{ID: 7}}}
	member := &model.User{ID: 43, Teams: []model.Team{{ID: 7}}}

	t.Run("Success", func(t *testing.T) {
		fakes := newFakes(t)
		fakes.events.events[1] = model.Event{ID: 1, ProvisioningEnabled: true}
		fakes.teams.teams[7] = model.Team{ID: 7, EventID: 1}
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = newJSONPost(t, "/clusters", map[string]any{"eventId": 1, "teamId": 7})
		c.Set("user", leader)

		h.Provision(c)

		require.Len(t, c.Errors.Errors(), 0)
		assert.Equal(t, http.StatusCreated, recorder.Code)

		var response ProvisionClusterResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.True(t, response.Success)
		assert.Equal(t, uint(7), response.Cluster.TeamID)
		assert.NotEmpty(t, response.Credentials.Password)
	})

	t.Run("FailsForTeamMemberWhoIsNotLeader", func(t *testing.T) {
		fakes := newFakes(t)
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = newJSONPost(t, "/clusters", map[string]any{"eventId": 1, "teamId": 7})
		c.Set("user", member)

		h.Provision(c)

		require.Len(t, c.Errors, 1)
		assert.True(t, errdef.IsForbidden(c.Errors.Last().Err), "should be a forbidden error")
		assert.Empty(t, fakes.atlas.calls, "no remote call should be made")
	})

	t.Run("FailsWithoutTeamId", func(t *testing.T) {
		fakes := newFakes(t)
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = newJSONPost(t, "/clusters", map[string]any{"eventId": 1})
		c.Set("user", leader)

		h.Provision(c)

		require.Len(t, c.Errors, 1)
		assert.True(t, errdef.IsBadRequest(c.Errors.Last().Err), "should be a bad request error")
	})
}

func TestHandler_Find(t *testing.T) {
	t.Run("SuccessForTeamMember", func(t *testing.T) {
		fakes := newFakes(t)
		cluster := fakes.repository.add(model.Cluster{TeamID: 7, Status: model.ClusterStatusActive})
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodGet, "/clusters/1", nil)
		c.Params = gin.Params{{Key: "id", Value: "1"}}
		c.Set("user", &model.User{ID: 43, Teams: []model.Team{{ID: 7}}})

		h.Find(c)

		require.Len(t, c.Errors.Errors(), 0)
		assert.Equal(t, http.StatusOK, recorder.Code)

		var response ClusterResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.True(t, response.Success)
		assert.Equal(t, cluster.ID, response.Cluster.ID)
	})

	t.Run("FailsForOutsider", func(t *testing.T) {
		fakes := newFakes(t)
		fakes.repository.add(model.Cluster{TeamID: 7, Status: model.ClusterStatusActive})
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodGet, "/clusters/1", nil)
		c.Params = gin.Params{{Key: "id", Value: "1"}}
		c.Set("user", &model.User{ID: 50, Teams: []model.Team{{ID: 99}}})

		h.Find(c)

		require.Len(t, c.Errors, 1)
		assert.True(t, errdef.IsForbidden(c.Errors.Last().Err), "should be a forbidden error")
	})

	t.Run("SuccessForAdministrator", func(t *testing.T) {
		fakes := newFakes(t)
		fakes.repository.add(model.Cluster{TeamID: 7, Status: model.ClusterStatusActive})
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodGet, "/clusters/1", nil)
		c.Params = gin.Params{{Key: "id", Value: "1"}}
		c.Set("user", &model.User{ID: 1, Teams: []model.Team{{ID: 3, Name: model.AdministratorTeamName}}})

		h.Find(c)

		require.Len(t, c.Errors.Errors(), 0)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("FailsIfClusterDoesNotExist", func(t *testing.T) {
		fakes := newFakes(t)
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodGet, "/clusters/314", nil)
		c.Params = gin.Params{{Key: "id", Value: "314"}}
		c.Set("user", &model.User{ID: 43, Teams: []model.Team{{ID: 7}}})

		h.Find(c)

		require.Len(t, c.Errors, 1)
		assert.True(t, errdef.IsNotFound(c.Errors.Last().Err), "should be a not found error")
	})
}

func TestHandler_Delete(t *testing.T) {
	t.Run("FailsForTeamMemberWhoIsNotLeader", func(t *testing.T) {
		fakes := newFakes(t)
		fakes.repository.add(model.Cluster{TeamID: 7, AtlasProjectID: "p-1", Status: model.ClusterStatusActive})
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodDelete, "/clusters/1", nil)
		c.Params = gin.Params{{Key: "id", Value: "1"}}
		c.Set("user", &model.User{ID: 43, Teams: []model.Team{{ID: 7}}})

		h.Delete(c)

		require.Len(t, c.Errors, 1)
		assert.True(t, errdef.IsForbidden(c.Errors.Last().Err), "should be a forbidden error")
		assert.Empty(t, fakes.atlas.calls, "no remote call should be made")
	})

	t.Run("SuccessForTeamLeader", func(t *testing.T) {
		fakes := newFakes(t)
		fakes.repository.add(model.Cluster{TeamID: 7, AtlasProjectID: "p-1", Status: model.ClusterStatusActive})
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodDelete, "/clusters/1", nil)
		c.Params = gin.Params{{Key: "id", Value: "1"}}
		c.Set("user", &model.User{ID: 42, LeaderTeams: []model.Team{{ID: 7}}})

		h.Delete(c)

		require.Len(t, c.Errors.Errors(), 0)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, []string{"DeleteProject"}, fakes.atlas.calls)
	})
}

func TestHandler_List(t *testing.T) {
	t.Run("FailsForForeignTeamFilter", func(t *testing.T) {
		fakes := newFakes(t)
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodGet, "/clusters?teamId=99", nil)
		c.Set("user", &model.User{ID: 43, Teams: []model.Team{{ID: 7}}})

		h.List(c)

		require.Len(t, c.Errors, 1)
		assert.True(t, errdef.IsForbidden(c.Errors.Last().Err), "should be a forbidden error")
	})

	t.Run("ListsOwnTeamsClusters", func(t *testing.T) {
		fakes := newFakes(t)
		fakes.repository.add(model.Cluster{TeamID: 7, Status: model.ClusterStatusActive})
		fakes.repository.add(model.Cluster{TeamID: 99, Status: model.ClusterStatusActive})
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodGet, "/clusters", nil)
		c.Set("user", &model.User{ID: 43, Teams: []model.Team{{ID: 7}}})

		h.List(c)

		require.Len(t, c.Errors.Errors(), 0)

		var response ClustersResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		require.Len(t, response.Clusters, 1)
		assert.Equal(t, uint(7), response.Clusters[0].TeamID)
	})

	t.Run("AdministratorSeesEverything", func(t *testing.T) {
		fakes := newFakes(t)
		fakes.repository.add(model.Cluster{TeamID: 7, Status: model.ClusterStatusActive})
		fakes.repository.add(model.Cluster{TeamID: 99, Status: model.ClusterStatusActive})
		h := NewHandler(fakes.service)

		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodGet, "/clusters", nil)
		c.Set("user", &model.User{ID: 1, Teams: []model.Team{{ID: 3, Name: model.AdministratorTeamName}}})

		h.List(c)

		require.Len(t, c.Errors.Errors(), 0)

		var response ClustersResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Len(t, response.Clusters, 2)
	})
}

func newJSONPost(t *testing.T, path string, body any) *http.Request {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	request.Header.Set("Content-Type", "application/json")
	return request
}
