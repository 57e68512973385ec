package hub

import (
	"fmt"
	"sync"
	"time"
)

// Device models the per-device dedup state shared by every open tab of
// one admin console. Tabs on the same device coordinate through it the
// way browser tabs coordinate over a same-origin broadcast channel: the
// first tab to process an event marks it seen for all siblings, so one
// event rings the alarm once per device, not once per tab. State is
// in-memory only; a reload starts clean and the order list is re-fetched
// anyway.
type Device struct {
	mu         sync.Mutex
	tabs       []*Tab
	alarmEvery time.Duration
	lastAlarm  time.Time
	now        func() time.Time
}

const defaultAlarmInterval = 2 * time.Second

func NewDevice() *Device {
	return &Device{
		alarmEvery: defaultAlarmInterval,
		now:        time.Now,
	}
}

// Tab is one subscriber view on a device. OnAlert fires the audible
// alarm, OnRefresh reloads the order/call list; either may be nil.
type Tab struct {
	device      *Device
	lastEventID string
	OnAlert     func(Event)
	OnRefresh   func(Event)
}

func (d *Device) OpenTab() *Tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	tab := &Tab{device: d}
	d.tabs = append(d.tabs, tab)
	return tab
}

func (d *Device) CloseTab(tab *Tab) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, candidate := range d.tabs {
		if candidate == tab {
			d.tabs = append(d.tabs[:i], d.tabs[i+1:]...)
			return
		}
	}
}

// Process handles one delivered event on this tab. Redelivery of the
// event last processed on this device is discarded; a new event marks
// every sibling tab as having seen it, refreshes this tab's view, and
// rings the alarm unless one rang within the throttle interval.
func (t *Tab) Process(event Event) {
	d := t.device
	d.mu.Lock()

	eventID := event.EventID
	if eventID == "" {
		eventID = fmt.Sprintf("%s:%d", event.Kind, event.EmittedAt.UnixNano())
	}

	if t.lastEventID == eventID {
		d.mu.Unlock()
		return
	}

	// EVENT_PROCESSED broadcast: siblings move their last-seen marker
	// without alerting.
	for _, sibling := range d.tabs {
		sibling.lastEventID = eventID
	}

	alert := false
	now := d.now()
	if now.Sub(d.lastAlarm) >= d.alarmEvery {
		d.lastAlarm = now
		alert = true
	}
	d.mu.Unlock()

	if alert && t.OnAlert != nil {
		t.OnAlert(event)
	}
	if t.OnRefresh != nil {
		t.OnRefresh(event)
	}
}
