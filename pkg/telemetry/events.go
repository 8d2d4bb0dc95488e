package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the PlantPulse system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// SessionID is the associated analysis session ID, if applicable.
	SessionID string `json:"session_id,omitempty"`

	// MachineID is the associated machine ID, if applicable.
	MachineID string `json:"machine_id,omitempty"`

	// Endpoint is the associated compute endpoint, if applicable.
	Endpoint string `json:"endpoint,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeCalculationStarted   = "calculation.started"
	EventTypeCalculationCompleted = "calculation.completed"
	EventTypeCalculationFailed    = "calculation.failed"
	EventTypeLeverageSkipped      = "leverage.skipped"
	EventTypeValidationIssue      = "validation.issue"
	EventTypeInputChanged         = "input.changed"
	EventTypeSessionReset         = "session.reset"
	EventTypePolicyFinding        = "policy.finding"
	EventTypeAnalysisStored       = "history.stored"
	EventTypeError                = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	// Start the periodic flush goroutine
	if cfg.FlushInterval > 0 {
		ep.wg.Add(1)
		go ep.periodicFlush()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishCalculationStarted publishes a calculation started event.
func (ep *EventPublisher) PublishCalculationStarted(sessionID, machineID string) error {
	return ep.Publish(Event{
		Type:      EventTypeCalculationStarted,
		Source:    "session",
		SessionID: sessionID,
		MachineID: machineID,
		Message:   fmt.Sprintf("Calculation started for machine %s", machineID),
		Level:     EventLevelInfo,
	})
}

// PublishCalculationCompleted publishes a calculation completed event.
func (ep *EventPublisher) PublishCalculationCompleted(sessionID, machineID string, oee float64, duration time.Duration) error {
	return ep.Publish(Event{
		Type:      EventTypeCalculationCompleted,
		Source:    "session",
		SessionID: sessionID,
		MachineID: machineID,
		Message:   fmt.Sprintf("Calculation completed for machine %s", machineID),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"oee":      oee,
			"duration": duration.Seconds(),
		},
	})
}

// PublishCalculationFailed publishes a calculation failed event.
func (ep *EventPublisher) PublishCalculationFailed(sessionID, machineID, code, reason string) error {
	return ep.Publish(Event{
		Type:      EventTypeCalculationFailed,
		Source:    "session",
		SessionID: sessionID,
		MachineID: machineID,
		Message:   fmt.Sprintf("Calculation failed for machine %s: %s", machineID, reason),
		Level:     EventLevelError,
		Data: map[string]interface{}{
			"code":   code,
			"reason": reason,
		},
	})
}

// PublishLeverageSkipped publishes an event for a calculation that
// succeeded without its requested leverage analysis.
func (ep *EventPublisher) PublishLeverageSkipped(sessionID, machineID, reason string) error {
	return ep.Publish(Event{
		Type:      EventTypeLeverageSkipped,
		Source:    "session",
		SessionID: sessionID,
		MachineID: machineID,
		Message:   fmt.Sprintf("Leverage analysis skipped for machine %s: %s", machineID, reason),
		Level:     EventLevelWarning,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishValidationIssue publishes a validation issue event.
func (ep *EventPublisher) PublishValidationIssue(sessionID, machineID, severity, code, fieldPath string) error {
	return ep.Publish(Event{
		Type:      EventTypeValidationIssue,
		Source:    "validation",
		SessionID: sessionID,
		MachineID: machineID,
		Message:   fmt.Sprintf("Validation issue %s on %s", code, fieldPath),
		Level:     validationEventLevel(severity),
		Data: map[string]interface{}{
			"severity":   severity,
			"code":       code,
			"field_path": fieldPath,
		},
	})
}

// PublishInputChanged publishes an input changed event.
func (ep *EventPublisher) PublishInputChanged(sessionID, machineID string) error {
	return ep.Publish(Event{
		Type:      EventTypeInputChanged,
		Source:    "session",
		SessionID: sessionID,
		MachineID: machineID,
		Message:   fmt.Sprintf("Input changed for machine %s", machineID),
		Level:     EventLevelInfo,
	})
}

// PublishSessionReset publishes a session reset event.
func (ep *EventPublisher) PublishSessionReset(sessionID string) error {
	return ep.Publish(Event{
		Type:      EventTypeSessionReset,
		Source:    "session",
		SessionID: sessionID,
		Message:   fmt.Sprintf("Session %s reset", sessionID),
		Level:     EventLevelInfo,
	})
}

// PublishPolicyFinding publishes a plausibility policy finding event.
func (ep *EventPublisher) PublishPolicyFinding(machineID, policyName, reason string) error {
	return ep.Publish(Event{
		Type:      EventTypePolicyFinding,
		Source:    "policy_engine",
		MachineID: machineID,
		Message:   fmt.Sprintf("Policy finding on machine %s: %s - %s", machineID, policyName, reason),
		Level:     EventLevelWarning,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// PublishAnalysisStored publishes a history stored event.
func (ep *EventPublisher) PublishAnalysisStored(machineID, recordID string) error {
	return ep.Publish(Event{
		Type:      EventTypeAnalysisStored,
		Source:    "store",
		MachineID: machineID,
		Message:   fmt.Sprintf("Analysis %s stored for machine %s", recordID, machineID),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"record_id": recordID,
		},
	})
}

func validationEventLevel(severity string) string {
	switch severity {
	case "fatal":
		return EventLevelError
	case "warning":
		return EventLevelWarning
	default:
		return EventLevelInfo
	}
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// periodicFlush flushes events periodically.
func (ep *EventPublisher) periodicFlush() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Trigger flush by draining buffer
			// This is handled by the processEvents goroutine
		case <-ep.ctx.Done():
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterBySessionID creates a filter that only allows events for a specific session.
func FilterBySessionID(sessionID string) EventFilter {
	return func(event Event) bool {
		return event.SessionID == sessionID
	}
}

// FilterByMachineID creates a filter that only allows events for a specific machine.
func FilterByMachineID(machineID string) EventFilter {
	return func(event Event) bool {
		return event.MachineID == machineID
	}
}
