package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-cluster/pkg/cluster"
	"github.com/dd0wney/cluso-cluster/pkg/registry"
)

// Announcement is one gossip message: the sender's node record and its
// current service advertisements
type Announcement struct {
	Node      cluster.NodeInfo        `json:"node"`
	Services  []registry.Registration `json:"services,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// EncodeAnnouncement serializes an announcement as snappy-compressed JSON
func EncodeAnnouncement(a Announcement) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode announcement: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

// DecodeAnnouncement parses a wire message produced by EncodeAnnouncement
func DecodeAnnouncement(data []byte) (Announcement, error) {
	var a Announcement

	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return a, fmt.Errorf("decompress announcement: %w", err)
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return a, fmt.Errorf("decode announcement: %w", err)
	}
	return a, nil
}
