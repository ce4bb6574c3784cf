package mqttbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/robotctl/internal/ecovacs"
	"github.com/nerrad567/robotctl/internal/infrastructure/mqtt"
	"github.com/nerrad567/robotctl/internal/robot"
)

// MQTTClient is the subset of *mqtt.Client the bridge needs.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishJSON(topic string, v any) error
}

// ToolInvoker dispatches a tool call by name. *robot.Service satisfies it.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (ecovacs.Envelope, error)
}

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// requestQoS is the subscription QoS for tool requests.
const requestQoS = 1

// Bridge serves tool requests arriving over MQTT.
//
// Each request runs on its own goroutine so a slow upstream call does not
// hold up the MQTT client's delivery loop. Stop cancels in-flight calls and
// waits for them to publish.
type Bridge struct {
	mqtt    MQTTClient
	tools   ToolInvoker
	logger  Logger
	topics  mqtt.Topics
	started bool
	stopped bool
	mu      sync.Mutex

	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New creates a bridge. Call Start to subscribe.
func New(client MQTTClient, tools ToolInvoker, logger Logger) (*Bridge, error) {
	if client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if tools == nil {
		return nil, fmt.Errorf("tool invoker is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		mqtt:      client,
		tools:     tools,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: cancel,
	}, nil
}

// Start subscribes to robotctl/request/+.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}

	topic := b.topics.AllRequests()
	if err := b.mqtt.Subscribe(topic, requestQoS, b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	b.started = true

	b.logInfo("subscribed to tool requests", "topic", topic)
	return nil
}

// Stop unsubscribes, cancels in-flight tool calls and waits for their
// responses to be published. It is safe to call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		started := b.started
		b.stopped = true
		b.mu.Unlock()

		if started {
			if err := b.mqtt.Unsubscribe(b.topics.AllRequests()); err != nil {
				b.logWarn("unsubscribe from requests failed", "error", err)
			}
		}

		b.ctxCancel()
		b.wg.Wait()
		b.logInfo("mqtt bridge stopped")
	})
}

// handleMessage is the MQTT handler for request topics.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	requestID, ok := b.topics.RequestID(topic)
	if !ok {
		b.logWarn("ignoring message on unexpected topic", "topic", topic)
		return nil
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		b.publish(b.serve(requestID, payload))
	}()
	return nil
}

// serve parses and runs one request and builds its response.
func (b *Bridge) serve(requestID string, payload []byte) ResponseMessage {
	resp := ResponseMessage{RequestID: requestID}

	req, err := parseRequest(payload)
	resp.Tool = req.Tool
	if err != nil {
		return withError(resp, ErrCodeInvalidRequest, fmt.Sprintf("invalid request: %v", err))
	}

	b.logDebug("received tool request", "request_id", requestID, "tool", req.Tool)

	env, err := b.tools.Invoke(b.ctx, req.Tool, req.Arguments)
	switch {
	case errors.Is(err, robot.ErrUnknownTool):
		return withError(resp, ErrCodeUnknownTool, err.Error())
	case errors.Is(err, robot.ErrInvalidArgument):
		return withError(resp, ErrCodeInvalidArgument, err.Error())
	case err != nil:
		return withError(resp, ErrCodeInternal, err.Error())
	}

	resp.Success = true
	resp.Envelope = &env
	resp.Timestamp = time.Now().UTC()
	return resp
}

func withError(resp ResponseMessage, code, message string) ResponseMessage {
	resp.Success = false
	resp.Error = &ResponseError{Code: code, Message: message}
	resp.Timestamp = time.Now().UTC()
	return resp
}

func (b *Bridge) publish(resp ResponseMessage) {
	topic := b.topics.Response(resp.RequestID)
	if err := b.mqtt.PublishJSON(topic, resp); err != nil {
		b.logError("failed to publish response", "request_id", resp.RequestID, "error", err)
		return
	}

	if resp.Success {
		b.logInfo("tool request served", "request_id", resp.RequestID, "tool", resp.Tool, "code", resp.Envelope.Code)
	} else {
		b.logWarn("tool request rejected", "request_id", resp.RequestID, "tool", resp.Tool, "error_code", resp.Error.Code)
	}
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}
