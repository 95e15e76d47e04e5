package model

import "time"

// MaxIPAccessEntries is the hard cap on access list entries per cluster.
const MaxIPAccessEntries = 20

// ClusterStatus is the closed set of lifecycle states of a cluster record.
type ClusterStatus string

const (
	ClusterStatusCreating ClusterStatus = "creating"
	ClusterStatusIdle     ClusterStatus = "idle"
	ClusterStatusActive   ClusterStatus = "active"
	ClusterStatusDeleting ClusterStatus = "deleting"
	ClusterStatusDeleted  ClusterStatus = "deleted"
	ClusterStatusError    ClusterStatus = "error"
)

// IsTerminal returns true if no further status transition is expected without
// an explicit user action.
func (s ClusterStatus) IsTerminal() bool {
	switch s {
	case ClusterStatusDeleted, ClusterStatusError, ClusterStatusActive, ClusterStatusIdle:
		return true
	}
	return false
}

// IsLive returns true if the record counts against the one live cluster per
// team guarantee.
func (s ClusterStatus) IsLive() bool {
	return s != ClusterStatusDeleted && s != ClusterStatusError
}

// Cluster is the local mirror of a remotely provisioned database cluster. A
// record is never physically removed; deleted clusters are retained for audit
// and excluded from live listings.
type Cluster struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	EventID uint   `gorm:"index" json:"eventId"`
	Event   *Event `json:"event,omitempty"`
	TeamID  uint   `gorm:"index" json:"teamId"`
	Team    *Team  `json:"team,omitempty"`

	AtlasProjectID   string `json:"atlasProjectId"`
	AtlasProjectName string `json:"atlasProjectName"`
	AtlasClusterName string `json:"atlasClusterName"`

	Status ClusterStatus `gorm:"index" json:"status"`

	// Populated once the remote side reports the cluster reachable.
	ConnectionString         string `json:"connectionString,omitempty"`
	StandardConnectionString string `json:"standardConnectionString,omitempty"`

	ProviderName string `json:"providerName"`
	RegionName   string `json:"regionName"`

	DatabaseUsers []ClusterDatabaseUser  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"databaseUsers"`
	IPAccessList  []ClusterIPAccessEntry `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"ipAccessList"`

	// Set only when Status is error.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ClusterDatabaseUser records that a database user exists on the remote
// cluster. Credentials are never stored here.
type ClusterDatabaseUser struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	ClusterID uint      `gorm:"index:idx_cluster_username,unique" json:"-"`
	Username  string    `gorm:"index:idx_cluster_username,unique" json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy uint      `json:"createdBy"`
	// The user provisioning creates comes with the cluster and doesn't count
	// against the per-cluster user quota.
	Bootstrap bool `json:"bootstrap,omitempty"`
}

// ClusterIPAccessEntry records a network address or range permitted to connect
// to the cluster.
type ClusterIPAccessEntry struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	ClusterID uint      `gorm:"index" json:"-"`
	CIDRBlock string    `json:"cidrBlock"`
	Comment   string    `json:"comment,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
	AddedBy   uint      `json:"addedBy"`
}

// Credentials is the one-time bundle returned by provisioning and database
// user creation. It is never persisted and unrecoverable afterwards.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
