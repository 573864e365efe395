package models

import (
	"fmt"
	"time"
)

type ShareType int

const (
	ShareTypeUser  ShareType = 0
	ShareTypeGroup ShareType = 1
	// ShareTypeGroupOverride rows customize or hide a group share for a
	// single recipient. They always point at their group share via
	// ParentID and are never returned to callers as standalone shares.
	ShareTypeGroupOverride ShareType = 2
	ShareTypeLink          ShareType = 3
	ShareTypeEmail         ShareType = 4
	ShareTypeRemote        ShareType = 6
	ShareTypeRemoteGroup   ShareType = 9
	ShareTypeRoom          ShareType = 10
)

func (t ShareType) String() string {
	switch t {
	case ShareTypeUser:
		return "user"
	case ShareTypeGroup:
		return "group"
	case ShareTypeGroupOverride:
		return "group-override"
	case ShareTypeLink:
		return "link"
	case ShareTypeEmail:
		return "email"
	case ShareTypeRemote:
		return "remote"
	case ShareTypeRemoteGroup:
		return "remote-group"
	case ShareTypeRoom:
		return "room"
	}
	return fmt.Sprintf("share-type-%d", int(t))
}

const (
	NodeTypeFile   = "file"
	NodeTypeFolder = "folder"
)

// Share is a persisted access grant on a node.
//
// Password carries a plaintext candidate on the way into Manager.Create and
// Manager.Update and the stored hash everywhere else.
type Share struct {
	ID                 int64       `json:"id"`
	ProviderID         string      `json:"provider_id"`
	ShareType          ShareType   `json:"share_type"`
	SharedWith         string      `json:"shared_with,omitempty"`
	SharedBy           string      `json:"shared_by"`
	ShareOwner         string      `json:"share_owner"`
	NodeID             string      `json:"node_id"`
	NodeType           string      `json:"node_type"`
	Permissions        Permissions `json:"permissions"`
	Password           *string     `json:"-"`
	SendPasswordByTalk bool        `json:"send_password_by_talk,omitempty"`
	Token              string      `json:"token,omitempty"`
	ExpirationDate     *time.Time  `json:"expiration_date,omitempty"`
	Label              string      `json:"label,omitempty"`
	Target             string      `json:"target"`
	ParentID           *int64      `json:"parent_id,omitempty"`
	Attributes         []Attribute `json:"attributes,omitempty"`
	ShareTime          time.Time   `json:"share_time"`
}

// FullID is the external identifier of a persisted share.
func (s *Share) FullID() string {
	return fmt.Sprintf("%s:%d", s.ProviderID, s.ID)
}

func (s *Share) IsExpired(now time.Time) bool {
	return s.ExpirationDate != nil && s.ExpirationDate.Before(now)
}

// Attribute is a scoped key/value permission extension, for example
// {"permissions", "download", false}.
type Attribute struct {
	Scope string      `json:"scope"`
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Attribute returns the value stored under (scope, key), or nil.
func (s *Share) Attribute(scope, key string) interface{} {
	for _, a := range s.Attributes {
		if a.Scope == scope && a.Key == key {
			return a.Value
		}
	}
	return nil
}

// SetAttribute upserts the value stored under (scope, key).
func (s *Share) SetAttribute(scope, key string, value interface{}) {
	for i, a := range s.Attributes {
		if a.Scope == scope && a.Key == key {
			s.Attributes[i].Value = value
			return
		}
	}
	s.Attributes = append(s.Attributes, Attribute{Scope: scope, Key: key, Value: value})
}
