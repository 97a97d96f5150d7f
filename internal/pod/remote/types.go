package remote

// Wire types for the replicated slot-storage node's HTTP API.

// slotMetadataJSON is one entry of the slot listing.
type slotMetadataJSON struct {
	Slot    uint32 `json:"slot"`
	Version uint64 `json:"version"`
	Signer  string `json:"signer,omitempty"` // hex
}

// putRequestJSON uploads one signed chunk.
type putRequestJSON struct {
	Version uint64 `json:"version"`
	Data    string `json:"data"` // base64
}

// putResponseJSON reports whether the node accepted the chunk. On a version
// conflict the node replies with the metadata it currently holds.
type putResponseJSON struct {
	Accepted bool              `json:"accepted"`
	Reason   string            `json:"reason,omitempty"`
	Latest   *slotMetadataJSON `json:"latest,omitempty"`
}

// ownerResponseJSON identifies the pod's controlling identity.
type ownerResponseJSON struct {
	Owner string `json:"owner"`
}

// readonlyRequestJSON carries encoded arguments for a read-only contract call.
type readonlyRequestJSON struct {
	Args []string `json:"args"`
}

// readonlyResponseJSON carries the call result or the node's failure text.
type readonlyResponseJSON struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}
