package common

import (
	"encoding/json"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Hi-Lo Messages
// --------------------------------------------------------------------------

// NextRangeRequest is the body of POST /databases/{database}/hilo/next.
type NextRangeRequest struct {
	Tag         string    `json:"tag" msgpack:"tag"`
	Capacity    int64     `json:"capacity" msgpack:"capacity"`
	LastMax     int64     `json:"lastMax" msgpack:"lastMax"`
	LastToken   string    `json:"lastToken,omitempty" msgpack:"lastToken,omitempty"`
	LastRangeAt time.Time `json:"lastRangeAt" msgpack:"lastRangeAt"`
	Separator   string    `json:"separator" msgpack:"separator"`
}

// NextRangeResponse is the answer to a NextRangeRequest.
type NextRangeResponse struct {
	Prefix      string    `json:"prefix" msgpack:"prefix"`
	Low         int64     `json:"low" msgpack:"low"`
	High        int64     `json:"high" msgpack:"high"`
	Max         int64     `json:"max" msgpack:"max"`
	Token       string    `json:"token" msgpack:"token"`
	ServerTag   string    `json:"serverTag" msgpack:"serverTag"`
	LastRangeAt time.Time `json:"lastRangeAt" msgpack:"lastRangeAt"`
}

// ReturnRangeRequest is the body of POST /databases/{database}/hilo/return.
type ReturnRangeRequest struct {
	Tag         string    `json:"tag" msgpack:"tag"`
	Low         int64     `json:"low" msgpack:"low"`
	High        int64     `json:"high" msgpack:"high"`
	LastRangeAt time.Time `json:"lastRangeAt" msgpack:"lastRangeAt"`
}

// HiloDocument is a counter document as exposed by /databases/{database}/docs.
// On PUT, Token is the expected token (empty for an unconditional write).
type HiloDocument struct {
	ID          string    `json:"id" msgpack:"id"`
	Max         int64     `json:"max" msgpack:"max"`
	LastRangeAt time.Time `json:"lastRangeAt" msgpack:"lastRangeAt"`
	Token       string    `json:"token,omitempty" msgpack:"token,omitempty"`
}

// --------------------------------------------------------------------------
// Cluster Messages
// --------------------------------------------------------------------------

// TopologyNode is a server node as announced by GET /cluster/topology.
type TopologyNode struct {
	URL        string `json:"url" msgpack:"url"`
	ClusterTag string `json:"clusterTag" msgpack:"clusterTag"`
}

// Topology lists the nodes of the cluster. A higher Etag replaces a lower one.
type Topology struct {
	Etag  int64          `json:"etag" msgpack:"etag"`
	Nodes []TopologyNode `json:"nodes" msgpack:"nodes"`
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// ErrorResponse is the body of every non-2xx answer.
// Max and Token are set for conflicts.
type ErrorResponse struct {
	Type    ErrorType `json:"type" msgpack:"type"`
	Message string    `json:"message" msgpack:"message"`
	Max     int64     `json:"max,omitempty" msgpack:"max,omitempty"`
	Token   string    `json:"token,omitempty" msgpack:"token,omitempty"`
}

// ErrorType classifies an ErrorResponse.
type ErrorType uint8

const (
	ErrTUnknown ErrorType = iota
	ErrTBadRequest
	ErrTConflict
	ErrTNotFound
	ErrTDatabaseDoesNotExist
	ErrTInternal
)

// String returns the string representation of an ErrorType.
func (t ErrorType) String() string {
	switch t {
	case ErrTBadRequest:
		return "BadRequest"
	case ErrTConflict:
		return "Conflict"
	case ErrTNotFound:
		return "NotFound"
	case ErrTDatabaseDoesNotExist:
		return "DatabaseDoesNotExist"
	case ErrTInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for ErrorType.
// This allows ErrorType to be serialized as a string in JSON.
func (t ErrorType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for ErrorType.
func (t *ErrorType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "BadRequest":
		*t = ErrTBadRequest
	case "Conflict":
		*t = ErrTConflict
	case "NotFound":
		*t = ErrTNotFound
	case "DatabaseDoesNotExist":
		*t = ErrTDatabaseDoesNotExist
	case "Internal":
		*t = ErrTInternal
	case "Unknown":
		*t = ErrTUnknown
	default:
		return fmt.Errorf("unknown error type: %s", s)
	}
	return nil
}
