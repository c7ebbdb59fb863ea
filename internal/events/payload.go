package events

import (
	"encoding/json"
	"fmt"

	"github.com/intellitrader/portal/internal/model"
)

// Kind names a category of state change.
type Kind string

const (
	AgentUpdate     Kind = "agent_update"
	SecurityAlert   Kind = "security_alert"
	CameraUpdate    Kind = "camera_update"
	TransportUpdate Kind = "transport_update"
)

// Kinds returns every event kind.
func Kinds() []Kind {
	return []Kind{AgentUpdate, SecurityAlert, CameraUpdate, TransportUpdate}
}

// Payload is the body of an event. Every payload belongs to one tenant.
type Payload interface {
	Tenant() string
}

// AgentUpdated reports an agent status change.
type AgentUpdated struct {
	TenantID string            `json:"tenantId"`
	AgentID  string            `json:"agentId"`
	Status   model.AgentStatus `json:"status"`
}

func (p AgentUpdated) Tenant() string { return p.TenantID }

// AlertChanged reports a new security alert or a triage change.
type AlertChanged struct {
	TenantID string            `json:"tenantId"`
	AlertID  string            `json:"alertId"`
	Severity model.Severity    `json:"severity"`
	Status   model.AlertStatus `json:"status"`
}

func (p AlertChanged) Tenant() string { return p.TenantID }

// CameraUpdated reports a camera state change. Only the toggled field is set.
type CameraUpdated struct {
	TenantID  string `json:"tenantId"`
	CameraID  string `json:"cameraId"`
	Online    *bool  `json:"online,omitempty"`
	Recording *bool  `json:"recording,omitempty"`
}

func (p CameraUpdated) Tenant() string { return p.TenantID }

// TransportUpdated reports a transport status change.
type TransportUpdated struct {
	TenantID    string                `json:"tenantId"`
	TransportID string                `json:"transportId"`
	Status      model.TransportStatus `json:"status"`
}

func (p TransportUpdated) Tenant() string { return p.TenantID }

// DecodePayload parses a JSON payload of the given kind.
func DecodePayload(kind Kind, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case AgentUpdate:
		var v AgentUpdated
		err = json.Unmarshal(raw, &v)
		p = v
	case SecurityAlert:
		var v AlertChanged
		err = json.Unmarshal(raw, &v)
		p = v
	case CameraUpdate:
		var v CameraUpdated
		err = json.Unmarshal(raw, &v)
		p = v
	case TransportUpdate:
		var v TransportUpdated
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return p, nil
}
