package app

import (
	"encoding/json"
	"time"

	"mavoice/internal/input"
	"mavoice/internal/live"
)

// message - всё, что попадает в inbox горутины Run.
type message interface{ isMessage() }

type (
	msgToggleDictation struct{}
	msgToggleLive      struct{}
	msgCancel          struct{}
)

type msgClick struct{ at time.Time }

type msgAlt struct{ at time.Time }

// msgTranscribed - итог распознавания; текст к этому моменту уже вставлен.
type msgTranscribed struct {
	seq       uint64
	target    input.Target
	text      string
	err       error
	injectErr error
}

type msgConnected struct {
	gen  uint64
	sess Session
	err  error
}

type msgLiveEvent struct {
	gen uint64
	ev  live.Event
}

type msgToolResult struct {
	gen    uint64
	id     string
	name   string
	result json.RawMessage
}

func (msgToggleDictation) isMessage() {}
func (msgToggleLive) isMessage()      {}
func (msgCancel) isMessage()          {}
func (msgClick) isMessage()           {}
func (msgAlt) isMessage()             {}
func (msgTranscribed) isMessage()     {}
func (msgConnected) isMessage()       {}
func (msgLiveEvent) isMessage()       {}
func (msgToolResult) isMessage()      {}
