package cluster

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hackday-sre/cluster-manager/internal/errdef"
	"github.com/hackday-sre/cluster-manager/internal/handler"
	"github.com/hackday-sre/cluster-manager/pkg/atlas"
	"github.com/hackday-sre/cluster-manager/pkg/model"
)

func NewHandler(clusterService *Service) Handler {
	return Handler{clusterService}
}

type Handler struct {
	clusterService *Service
}

type ProvisionClusterRequest struct {
	EventID  uint   `json:"eventId" binding:"required"`
	TeamID   uint   `json:"teamId" binding:"required"`
	Provider string `json:"provider"`
	Region   string `json:"region"`
}

type ProvisionClusterResponse struct {
	Success     bool              `json:"success"`
	Cluster     model.Cluster     `json:"cluster"`
	Credentials model.Credentials `json:"credentials"`
}

// Provision cluster
func (h Handler) Provision(c *gin.Context) {
	// swagger:route POST /clusters provisionCluster
	//
	// Provision cluster
	//
	// Provision a free tier cluster for a team. The response carries the
	// bootstrap database credentials exactly once; they can't be read again.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   201: ProvisionClusterResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   409: Error
	//   415: Error
	var request ProvisionClusterRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if !handler.CanManageCluster(user, request.TeamID) {
		_ = c.Error(errdef.NewForbidden("only the team leader can provision a cluster"))
		return
	}

	cluster, credentials, err := h.clusterService.Provision(c.Request.Context(), user, request.EventID, request.TeamID, request.Provider, request.Region)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, ProvisionClusterResponse{
		Success:     true,
		Cluster:     cluster,
		Credentials: credentials,
	})
}

type ClustersResponse struct {
	Success  bool            `json:"success"`
	Clusters []model.Cluster `json:"clusters"`
}

type ListClustersRequest struct {
	EventID uint `form:"eventId"`
	TeamID  uint `form:"teamId"`
}

// List clusters
func (h Handler) List(c *gin.Context) {
	// swagger:route GET /clusters listClusters
	//
	// List clusters
	//
	// List clusters filtered by team or event. Deleted clusters are excluded.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: ClustersResponse
	//   401: Error
	//   403: Error
	var request ListClustersRequest
	if err := c.ShouldBindQuery(&request); err != nil {
		_ = c.Error(errdef.NewBadRequest("error binding query: %v", err))
		return
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	teamIDs, err := visibleTeamIDs(user, request.TeamID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	clusters, err := h.clusterService.FindAll(c.Request.Context(), request.EventID, teamIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ClustersResponse{Success: true, Clusters: clusters})
}

// visibleTeamIDs narrows the team filter to what the user may see.
// Administrators see everything; everyone else only their own teams.
func visibleTeamIDs(user *model.User, requested uint) ([]uint, error) {
	if user.IsAdministrator() {
		if requested != 0 {
			return []uint{requested}, nil
		}
		return nil, nil
	}

	if requested != 0 {
		if !handler.CanReadCluster(user, requested) {
			return nil, errdef.NewForbidden("not a member of team %d", requested)
		}
		return []uint{requested}, nil
	}

	ids := make([]uint, 0, len(user.Teams)+len(user.LeaderTeams))
	for _, team := range user.Teams {
		ids = append(ids, team.ID)
	}
	for _, team := range user.LeaderTeams {
		if !user.IsMemberOf(team.ID) {
			ids = append(ids, team.ID)
		}
	}
	return ids, nil
}

type ClusterResponse struct {
	Success bool          `json:"success"`
	Cluster model.Cluster `json:"cluster"`
}

// Find cluster by id
func (h Handler) Find(c *gin.Context) {
	// swagger:route GET /clusters/{id} findClusterById
	//
	// Find cluster
	//
	// Find a cluster by its id
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: ClusterResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	cluster, ok := h.readableCluster(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ClusterResponse{Success: true, Cluster: cluster})
}

// Poll cluster status
func (h Handler) Poll(c *gin.Context) {
	// swagger:route PUT /clusters/{id}/status pollClusterStatus
	//
	// Poll cluster status
	//
	// Reconcile the local record with remote state and return it. Intended to
	// be called repeatedly while the cluster is creating; stop once a terminal
	// status is observed.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: ClusterResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	cluster, ok := h.readableCluster(c)
	if !ok {
		return
	}

	polled, err := h.clusterService.Poll(c.Request.Context(), cluster.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ClusterResponse{Success: true, Cluster: polled})
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// Delete cluster
func (h Handler) Delete(c *gin.Context) {
	// swagger:route DELETE /clusters/{id} deleteCluster
	//
	// Delete cluster
	//
	// Delete a cluster...
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: SuccessResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	cluster, ok := h.manageableCluster(c)
	if !ok {
		return
	}

	err := h.clusterService.Delete(c.Request.Context(), cluster)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

type CreateDatabaseUserRequest struct {
	Username string   `json:"username" binding:"required,min=1,max=64"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type CreateDatabaseUserResponse struct {
	Success     bool              `json:"success"`
	Credentials model.Credentials `json:"credentials"`
}

// Create database user
func (h Handler) CreateDatabaseUser(c *gin.Context) {
	// swagger:route POST /clusters/{id}/users createDatabaseUser
	//
	// Create database user
	//
	// Create a database user scoped to this cluster. The password is returned
	// exactly once.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   201: CreateDatabaseUserResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	//   409: Error
	//   415: Error
	var request CreateDatabaseUserRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	cluster, ok := h.manageableCluster(c)
	if !ok {
		return
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	credentials, err := h.clusterService.CreateDatabaseUser(c.Request.Context(), user, cluster, request.Username, request.Password, request.Roles)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, CreateDatabaseUserResponse{Success: true, Credentials: credentials})
}

type DatabaseUsersResponse struct {
	Success bool           `json:"success"`
	Users   []DatabaseUser `json:"users"`
}

// List database users
func (h Handler) ListDatabaseUsers(c *gin.Context) {
	// swagger:route GET /clusters/{id}/users listDatabaseUsers
	//
	// List database users
	//
	// List the cluster's database users as the control plane reports them.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: DatabaseUsersResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	cluster, ok := h.readableCluster(c)
	if !ok {
		return
	}

	users, err := h.clusterService.ListDatabaseUsers(c.Request.Context(), cluster)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, DatabaseUsersResponse{Success: true, Users: users})
}

// Delete database user
func (h Handler) DeleteDatabaseUser(c *gin.Context) {
	// swagger:route DELETE /clusters/{id}/users/{username} deleteDatabaseUser
	//
	// Delete database user
	//
	// Delete a database user from the cluster.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: SuccessResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	cluster, ok := h.manageableCluster(c)
	if !ok {
		return
	}

	username := c.Param("username")
	err := h.clusterService.DeleteDatabaseUser(c.Request.Context(), cluster, username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

type AddAccessEntriesRequest struct {
	Entries []AccessEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

type AccessEntryRequest struct {
	CIDRBlock string `json:"cidrBlock" binding:"omitempty,cidrBlock"`
	IPAddress string `json:"ipAddress" binding:"omitempty,ipAddress"`
	Comment   string `json:"comment"`
}

type AccessEntriesResponse struct {
	Success bool                         `json:"success"`
	Entries []model.ClusterIPAccessEntry `json:"entries"`
}

// Add IP access list entries
func (h Handler) AddAccessEntries(c *gin.Context) {
	// swagger:route POST /clusters/{id}/access-list addAccessEntries
	//
	// Add IP access list entries
	//
	// Add entries to the cluster's IP access list. The whole batch is rejected
	// if it would exceed the entry limit.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   201: AccessEntriesResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	//   415: Error
	var request AddAccessEntriesRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	cluster, ok := h.manageableCluster(c)
	if !ok {
		return
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	entries := make([]AccessEntry, len(request.Entries))
	for i, entry := range request.Entries {
		entries[i] = AccessEntry{
			CIDRBlock: entry.CIDRBlock,
			IPAddress: entry.IPAddress,
			Comment:   entry.Comment,
		}
	}

	added, err := h.clusterService.AddIPAccessEntries(c.Request.Context(), user, cluster, entries)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, AccessEntriesResponse{Success: true, Entries: added})
}

type RemoteAccessEntriesResponse struct {
	Success bool                    `json:"success"`
	Entries []atlas.AccessListEntry `json:"entries"`
}

// List IP access list entries
func (h Handler) ListAccessEntries(c *gin.Context) {
	// swagger:route GET /clusters/{id}/access-list listAccessEntries
	//
	// List IP access list entries
	//
	// List the cluster's IP access list as the control plane reports it.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: RemoteAccessEntriesResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	cluster, ok := h.readableCluster(c)
	if !ok {
		return
	}

	entries, err := h.clusterService.ListIPAccessEntries(c.Request.Context(), cluster)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, RemoteAccessEntriesResponse{Success: true, Entries: entries})
}

// Remove IP access list entry
func (h Handler) RemoveAccessEntry(c *gin.Context) {
	// swagger:route DELETE /clusters/{id}/access-list/{entry} removeAccessEntry
	//
	// Remove IP access list entry
	//
	// Remove an entry, identified by its CIDR block or IP address, from the
	// cluster's IP access list.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: SuccessResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	cluster, ok := h.manageableCluster(c)
	if !ok {
		return
	}

	entry := c.Param("entry")
	err := h.clusterService.RemoveIPAccessEntry(c.Request.Context(), cluster, entry)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

type ReconcileResponse struct {
	Success    bool   `json:"success"`
	Reconciled []uint `json:"reconciled"`
}

// Reconcile stale clusters
func (h Handler) Reconcile(c *gin.Context) {
	// swagger:route POST /clusters/reconcile reconcileClusters
	//
	// Reconcile stale clusters
	//
	// Convert clusters stuck in creating with no remote counterpart to error.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: ReconcileResponse
	//   401: Error
	//   403: Error
	reconciled, err := h.clusterService.ReconcileStaleCreating(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ReconcileResponse{Success: true, Reconciled: reconciled})
}

// readableCluster loads the cluster from the id path parameter and enforces
// read access for the caller.
func (h Handler) readableCluster(c *gin.Context) (model.Cluster, bool) {
	return h.authorizedCluster(c, handler.CanReadCluster)
}

// manageableCluster loads the cluster from the id path parameter and enforces
// manage access (team leader or administrator) for the caller.
func (h Handler) manageableCluster(c *gin.Context) (model.Cluster, bool) {
	return h.authorizedCluster(c, handler.CanManageCluster)
}

func (h Handler) authorizedCluster(c *gin.Context, allowed func(*model.User, uint) bool) (model.Cluster, bool) {
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return model.Cluster{}, false
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return model.Cluster{}, false
	}

	cluster, err := h.clusterService.FindByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return model.Cluster{}, false
	}

	if !allowed(user, cluster.TeamID) {
		_ = c.Error(errdef.NewForbidden("access denied to this team's cluster"))
		return model.Cluster{}, false
	}

	return cluster, true
}
