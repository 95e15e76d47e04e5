package cluster

import (
	"context"
	"strings"
	"time"

	"github.com/hackday-sre/cluster-manager/internal/errdef"
	"github.com/hackday-sre/cluster-manager/pkg/atlas"
	"github.com/hackday-sre/cluster-manager/pkg/model"
)

// AccessEntry is one requested IP access list addition. At least one of
// CIDRBlock and IPAddress must be set; CIDRBlock wins when both are given.
type AccessEntry struct {
	CIDRBlock string
	IPAddress string
	Comment   string
}

// AddIPAccessEntries adds the whole batch or nothing: the quota check covers
// the batch and runs before any remote call.
func (s *Service) AddIPAccessEntries(ctx context.Context, user *model.User, cluster model.Cluster, entries []AccessEntry) ([]model.ClusterIPAccessEntry, error) {
	if !cluster.Status.IsLive() {
		return nil, errdef.NewBadRequest("cluster %d is not live", cluster.ID)
	}
	if len(entries) == 0 {
		return nil, errdef.NewBadRequest("no access list entries given")
	}

	for _, entry := range entries {
		if entry.CIDRBlock == "" && entry.IPAddress == "" {
			return nil, errdef.NewBadRequest("an access list entry needs a cidrBlock or an ipAddress")
		}
	}

	if len(cluster.IPAccessList)+len(entries) > model.MaxIPAccessEntries {
		return nil, errdef.NewLimitExceeded("maximum %d IP access list entries per cluster", model.MaxIPAccessEntries)
	}

	remoteEntries := make([]atlas.AccessListEntry, len(entries))
	for i, entry := range entries {
		remoteEntries[i] = atlas.AccessListEntry{
			CIDRBlock: entry.CIDRBlock,
			IPAddress: entry.IPAddress,
			Comment:   entry.Comment,
		}
	}

	err := s.atlas.AddAccessListEntries(ctx, cluster.AtlasProjectID, remoteEntries)
	if err != nil {
		return nil, errdef.NewRemoteAPI(err, "failed to add access list entries")
	}

	now := time.Now()
	localEntries := make([]model.ClusterIPAccessEntry, len(entries))
	for i, entry := range entries {
		localEntries[i] = model.ClusterIPAccessEntry{
			ClusterID: cluster.ID,
			CIDRBlock: normalizeCIDR(entry),
			Comment:   entry.Comment,
			AddedAt:   now,
			AddedBy:   user.ID,
		}
	}

	err = s.repository.addIPAccessEntries(ctx, localEntries)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "IP access list entries added", "clusterId", cluster.ID, "count", len(entries))

	return localEntries, nil
}

// ListIPAccessEntries reads from the control plane; the local list is a cache
// that can diverge when entries are changed through other channels.
func (s *Service) ListIPAccessEntries(ctx context.Context, cluster model.Cluster) ([]atlas.AccessListEntry, error) {
	entries, err := s.atlas.ListAccessListEntries(ctx, cluster.AtlasProjectID)
	if err != nil {
		return nil, errdef.NewRemoteAPI(err, "failed to list access list entries")
	}
	return entries, nil
}

// RemoveIPAccessEntry removes the entry identified by its cidrBlock or
// ipAddress.
func (s *Service) RemoveIPAccessEntry(ctx context.Context, cluster model.Cluster, entry string) error {
	if entry == "" {
		return errdef.NewBadRequest("no access list entry given")
	}

	err := s.atlas.DeleteAccessListEntry(ctx, cluster.AtlasProjectID, entry)
	if err != nil && !atlas.IsNotFound(err) {
		return errdef.NewRemoteAPI(err, "failed to remove access list entry %q", entry)
	}

	// match both spellings of a single address
	candidates := []string{entry}
	if !strings.Contains(entry, "/") {
		candidates = append(candidates, entry+"/32")
	}

	return s.repository.removeIPAccessEntry(ctx, cluster.ID, candidates)
}

func normalizeCIDR(entry AccessEntry) string {
	if entry.CIDRBlock != "" {
		return entry.CIDRBlock
	}
	return entry.IPAddress + "/32"
}
