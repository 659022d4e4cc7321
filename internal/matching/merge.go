package matching

import (
	"slices"

	"github.com/mmynk/meshimatch/internal/models"
)

// MergeRemoteUpdate reconciles a fresh remote snapshot with the local copy.
//
// Self-ledger-wins: if local holds a ledger entry for selfID it is kept verbatim,
// whatever remote says about selfID, because the remote copy may be a stale echo of
// writes still waiting in the debounce window. Every other field, including other
// members' ledgers, membership and profiles, takes the remote value.
func MergeRemoteUpdate(local, remote *models.Group, selfID string) *models.Group {
	merged := remote.Clone()
	if merged.Likes == nil {
		merged.Likes = make(map[string][]string)
	}
	if local != nil {
		if own, ok := local.Likes[selfID]; ok {
			merged.Likes[selfID] = slices.Clone(own)
		}
	}
	return merged
}
