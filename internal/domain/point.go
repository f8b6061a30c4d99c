package domain

import "time"

// DataPoint is the canonical value-change record opcflux publishes downstream.
type DataPoint struct {
	NodeID       string    `json:"node_id"`
	Value        any       `json:"value"`
	Timestamp    time.Time `json:"ts"`
	Seq          uint64    `json:"seq"`
	TransformVer uint16    `json:"transform_ver"`
}
