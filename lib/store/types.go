package store

import (
	"strings"
	"time"
)

// HiloDocumentPrefix is the ID prefix of all counter documents.
const HiloDocumentPrefix = "Raven/Hilo/"

// HiloDocumentID returns the counter document ID for a collection tag.
func HiloDocumentID(tag string) string {
	return HiloDocumentPrefix + tag
}

// TagFromDocumentID extracts the collection tag from a counter document ID.
func TagFromDocumentID(id string) (string, bool) {
	tag, ok := strings.CutPrefix(id, HiloDocumentPrefix)
	return tag, ok && tag != ""
}

// Document is a Hi-Lo counter document.
type Document struct {
	ID          string    `json:"id"`
	Max         int64     `json:"max"`
	LastRangeAt time.Time `json:"lastRangeAt"`
	Token       string    `json:"token"`
}

// NextRangeArgs are the arguments of ICounterStore.NextRange.
type NextRangeArgs struct {
	Tag       string
	Capacity  int64
	LastMax   int64     // floor, the new range starts above it
	LastToken string    // empty for an unconditional request
	At        time.Time // stored as LastRangeAt
}

// RangeResult is a granted range plus the counter document after the grant.
type RangeResult struct {
	Low      int64
	High     int64
	Document Document
}

// ReturnRangeArgs are the arguments of ICounterStore.ReturnRange.
type ReturnRangeArgs struct {
	Tag         string
	Low         int64
	High        int64
	LastRangeAt time.Time // restored as LastRangeAt if the return applies, zero keeps it
}

// PutArgs are the arguments of ICounterStore.PutDocument.
type PutArgs struct {
	ID            string
	Max           int64
	ExpectedToken string
}
