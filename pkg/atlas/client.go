// Package atlas is a thin client for the subset of the MongoDB Atlas Admin API
// the cluster manager drives: projects, clusters, database users and the IP
// access list. The wire protocol between Atlas and the actual database
// deployments is none of our business.
package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// InstanceSizeM0 is the free shared tier every hackathon cluster runs on.
	InstanceSizeM0 = "M0"

	DefaultProviderName = "AWS"
	DefaultRegionName   = "US_EAST_1"
)

// Cluster state names reported by Atlas.
const (
	StateIdle     = "IDLE"
	StateCreating = "CREATING"
	StateUpdating = "UPDATING"
	StateDeleting = "DELETING"
	StateDeleted  = "DELETED"
)

type Project struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	OrgID string `json:"orgId"`
}

type ClusterSpec struct {
	Name                string `json:"name"`
	ProviderName        string `json:"providerName"`
	BackingProviderName string `json:"backingProviderName,omitempty"`
	RegionName          string `json:"regionName"`
	InstanceSizeName    string `json:"instanceSizeName"`
}

type ConnectionStrings struct {
	Standard    string `json:"standard,omitempty"`
	StandardSrv string `json:"standardSrv,omitempty"`
}

type Cluster struct {
	Name              string            `json:"name"`
	StateName         string            `json:"stateName"`
	ConnectionStrings ConnectionStrings `json:"connectionStrings"`
	Paused            bool              `json:"paused"`
}

type Role struct {
	RoleName     string `json:"roleName"`
	DatabaseName string `json:"databaseName"`
}

type Scope struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type DatabaseUser struct {
	Username     string  `json:"username"`
	Password     string  `json:"password,omitempty"`
	DatabaseName string  `json:"databaseName"`
	Roles        []Role  `json:"roles"`
	Scopes       []Scope `json:"scopes,omitempty"`
}

type AccessListEntry struct {
	CIDRBlock string `json:"cidrBlock,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// Error is a non-2xx response from the Atlas API.
type Error struct {
	StatusCode int    `json:"error"`
	ErrorCode  string `json:"errorCode"`
	Detail     string `json:"detail"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("atlas: %d (%s): %s", e.StatusCode, e.ErrorCode, e.Detail)
}

// IsNotFound returns true if err is an Atlas response reporting that the
// resource does not exist.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

func NewClient(baseURL, orgID, publicKey, privateKey string) *Client {
	return &Client{
		baseURL: baseURL,
		orgID:   orgID,
		client: &http.Client{
			Timeout:   90 * time.Second,
			Transport: newDigestTransport(publicKey, privateKey, http.DefaultTransport),
		},
	}
}

// Client talks to the Atlas Admin API. It is constructed once in main and
// injected into every service that needs it.
type Client struct {
	baseURL string
	orgID   string
	client  *http.Client
}

func (c *Client) CreateProject(ctx context.Context, name string) (Project, error) {
	var project Project
	body := map[string]string{"name": name, "orgId": c.orgID}
	err := c.do(ctx, http.MethodPost, "/groups", body, &project)
	return project, err
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+url.PathEscape(projectID), nil, nil)
}

func (c *Client) CreateCluster(ctx context.Context, projectID string, spec ClusterSpec) (Cluster, error) {
	var cluster Cluster
	path := fmt.Sprintf("/groups/%s/clusters", url.PathEscape(projectID))
	err := c.do(ctx, http.MethodPost, path, spec, &cluster)
	return cluster, err
}

func (c *Client) GetCluster(ctx context.Context, projectID, name string) (Cluster, error) {
	var cluster Cluster
	path := fmt.Sprintf("/groups/%s/clusters/%s", url.PathEscape(projectID), url.PathEscape(name))
	err := c.do(ctx, http.MethodGet, path, nil, &cluster)
	return cluster, err
}

func (c *Client) DeleteCluster(ctx context.Context, projectID, name string) error {
	path := fmt.Sprintf("/groups/%s/clusters/%s", url.PathEscape(projectID), url.PathEscape(name))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) CreateDatabaseUser(ctx context.Context, projectID string, user DatabaseUser) error {
	path := fmt.Sprintf("/groups/%s/databaseUsers", url.PathEscape(projectID))
	return c.do(ctx, http.MethodPost, path, user, nil)
}

func (c *Client) ListDatabaseUsers(ctx context.Context, projectID string) ([]DatabaseUser, error) {
	var response struct {
		Results []DatabaseUser `json:"results"`
	}
	path := fmt.Sprintf("/groups/%s/databaseUsers", url.PathEscape(projectID))
	err := c.do(ctx, http.MethodGet, path, nil, &response)
	return response.Results, err
}

func (c *Client) DeleteDatabaseUser(ctx context.Context, projectID, username string) error {
	path := fmt.Sprintf("/groups/%s/databaseUsers/admin/%s", url.PathEscape(projectID), url.PathEscape(username))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) AddAccessListEntries(ctx context.Context, projectID string, entries []AccessListEntry) error {
	path := fmt.Sprintf("/groups/%s/accessList", url.PathEscape(projectID))
	return c.do(ctx, http.MethodPost, path, entries, nil)
}

func (c *Client) ListAccessListEntries(ctx context.Context, projectID string) ([]AccessListEntry, error) {
	var response struct {
		Results []AccessListEntry `json:"results"`
	}
	path := fmt.Sprintf("/groups/%s/accessList", url.PathEscape(projectID))
	err := c.do(ctx, http.MethodGet, path, nil, &response)
	return response.Results, err
}

func (c *Client) DeleteAccessListEntry(ctx context.Context, projectID, entry string) error {
	path := fmt.Sprintf("/groups/%s/accessList/%s", url.PathEscape(projectID), url.PathEscape(entry))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("atlas: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return parseError(response)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}

func parseError(response *http.Response) error {
	apiError := &Error{StatusCode: response.StatusCode}
	payload, err := io.ReadAll(io.LimitReader(response.Body, 1<<16))
	if err == nil {
		_ = json.Unmarshal(payload, apiError)
	}
	if apiError.Detail == "" {
		apiError.Detail = string(payload)
	}
	apiError.StatusCode = response.StatusCode
	return apiError
}
