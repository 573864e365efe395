package models

import "time"

const (
	MountLocal    = "local"
	MountExternal = "external"
)

type Node struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	ParentID   *string    `json:"parent_id"`
	Name       string     `json:"name"`
	NodeType   string     `json:"node_type"`
	Mount      string     `json:"mount"`
	SizeBytes  *int64     `json:"size_bytes"`
	MimeType   *string    `json:"mime_type"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

func (n *Node) IsFolder() bool {
	return n.NodeType == NodeTypeFolder
}

// IsRoot reports whether the node is the root of its owner's tree.
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}
