package entity

import "time"

// ErrorKind classifies why a probe or an RPC attempt failed.
type ErrorKind string

// Constants for probe failure classification.
const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindUnreachable       ErrorKind = "unreachable"
	ErrorKindTimeout           ErrorKind = "timeout"
	ErrorKindChainMismatch     ErrorKind = "chain_mismatch"
	ErrorKindMalformedResponse ErrorKind = "malformed_response"
)

// ProbeResult is the outcome of a single connectivity + identity check.
// It is produced per probe call and never persisted.
type ProbeResult struct {
	OK              bool
	Latency         time.Duration
	Kind            ErrorKind
	ReportedChainID int64
	Err             error
}

// Endpoint is an RPC URL plus the metadata derived from its last check.
type Endpoint struct {
	URL       RPCURL `json:"url" yaml:"url"`
	LatencyMs *int64 `json:"latencyMs,omitempty" yaml:"latency_ms,omitempty"`
	Healthy   *bool  `json:"healthy,omitempty" yaml:"healthy,omitempty"`
}

// MaxBackups caps the number of fallback endpoints a pool may carry.
const MaxBackups = 2

// EndpointPool is the ranked endpoint set for one chain: a primary plus
// up to MaxBackups ordered fallbacks. The primary never appears in Backups.
type EndpointPool struct {
	ChainID int64      `json:"chainId" yaml:"chain_id"`
	Primary Endpoint   `json:"primary" yaml:"primary"`
	Backups []Endpoint `json:"backups,omitempty" yaml:"backups,omitempty"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the mutable backing slice.
func (p EndpointPool) Clone() EndpointPool {
	cp := p
	if p.Backups != nil {
		cp.Backups = make([]Endpoint, len(p.Backups))
		copy(cp.Backups, p.Backups)
	}
	return cp
}

// Members returns primary then backups in try order.
func (p EndpointPool) Members() []Endpoint {
	members := make([]Endpoint, 0, 1+len(p.Backups))
	members = append(members, p.Primary)
	members = append(members, p.Backups...)
	return members
}

// Contains reports whether url equals the primary or any backup.
func (p EndpointPool) Contains(url RPCURL) bool {
	if p.Primary.URL == url {
		return true
	}
	for _, b := range p.Backups {
		if b.URL == url {
			return true
		}
	}
	return false
}

// EndpointHealth pairs a pool member with its probe outcome, in pool order.
type EndpointHealth struct {
	Endpoint Endpoint
	Result   ProbeResult
}

// Candidate is a verified registry suggestion, ranked by latency.
type Candidate struct {
	URL       RPCURL `json:"url"`
	LatencyMs int64  `json:"latencyMs"`
}
