package core

import "sync"

// EventContext carries the payload of a fired event. Only the fields relevant
// to the event code are populated.
type EventContext struct {
	Data struct {
		U32 [4]uint32
		F32 [4]float32
		Str string
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Window/framebuffer resized.
	/* Context usage:
	 * u32 width = data.U32[0];
	 * u32 height = data.U32[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x02

	// A watched shader fragment file changed on disk.
	/* Context usage:
	 * str path = data.Str;
	 */
	EVENT_CODE_SHADER_FILE_CHANGED SystemEventCode = 0x03

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type OnEventFunc func(code SystemEventCode, sender interface{}, context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback OnEventFunc
}

var eventsMu sync.Mutex
var registered map[SystemEventCode][]registeredEvent

// EventRegister subscribes a listener callback to an event code. The same
// listener/callback pair can only be registered once per code.
func EventRegister(code SystemEventCode, listener interface{}, onEvent OnEventFunc) bool {
	eventsMu.Lock()
	defer eventsMu.Unlock()

	if registered == nil {
		registered = make(map[SystemEventCode][]registeredEvent)
	}
	for _, e := range registered[code] {
		if e.listener == listener {
			LogWarn("event listener already registered for code %d", code)
			return false
		}
	}
	registered[code] = append(registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

// EventUnregister removes a listener from an event code.
func EventUnregister(code SystemEventCode, listener interface{}) bool {
	eventsMu.Lock()
	defer eventsMu.Unlock()

	events := registered[code]
	for i, e := range events {
		if e.listener == listener {
			registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire notifies all listeners of code. Returns true if any listener
// consumed the event (stopping propagation).
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	eventsMu.Lock()
	events := make([]registeredEvent, len(registered[code]))
	copy(events, registered[code])
	eventsMu.Unlock()

	for _, e := range events {
		if e.callback(code, sender, context) {
			return true
		}
	}
	return false
}
