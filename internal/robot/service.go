package robot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/robotctl/internal/ecovacs"
)

// Caller performs one upstream call and always returns an envelope.
// *ecovacs.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, endpoint string, params ecovacs.Params, method ecovacs.Method) ecovacs.Envelope
}

// CallRecord describes one completed tool call. It carries outcomes only,
// never the credential and never robot state.
type CallRecord struct {
	ID        string
	Tool      string
	Nickname  string
	Action    string
	Endpoint  string
	Method    ecovacs.Method
	Code      int
	Msg       string
	Items     int
	Duration  time.Duration
	StartedAt time.Time
}

// Failed reports whether the call ended in an adapter-level failure.
func (r CallRecord) Failed() bool {
	return r.Code == ecovacs.FailureCode
}

// Observer is notified after every tool call. Implementations must not
// block for long; the tool result is returned only after ObserveCall returns.
type Observer interface {
	ObserveCall(ctx context.Context, rec CallRecord)
}

// Service implements the robot tools on top of a Caller.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Service struct {
	caller Caller

	observer   Observer
	observerMu sync.RWMutex
}

// NewService creates a Service that forwards every tool call to caller.
func NewService(caller Caller) *Service {
	return &Service{caller: caller}
}

// SetObserver registers an observer for completed calls. Pass nil to remove it.
func (s *Service) SetObserver(observer Observer) {
	s.observerMu.Lock()
	s.observer = observer
	s.observerMu.Unlock()
}

// SetCleaning starts, resumes, pauses or stops cleaning on the named robot.
func (s *Service) SetCleaning(ctx context.Context, nickname string, act CleanAction) ecovacs.Envelope {
	return s.control(ctx, ToolSetCleaning, nickname, CmdClean, string(act))
}

// SetCharging sends the named robot back to its dock, or cancels the return.
func (s *Service) SetCharging(ctx context.Context, nickname string, act ChargeAction) ecovacs.Envelope {
	return s.control(ctx, ToolSetCharging, nickname, CmdCharge, string(act))
}

// GetWorkState queries the named robot's current work state.
func (s *Service) GetWorkState(ctx context.Context, nickname string) ecovacs.Envelope {
	return s.control(ctx, ToolGetWorkState, nickname, CmdGetWorkState, "")
}

// GetDeviceList lists every robot bound to the API key.
func (s *Service) GetDeviceList(ctx context.Context) ecovacs.Envelope {
	return s.call(ctx, CallRecord{
		Tool:     ToolGetDeviceList,
		Endpoint: ecovacs.EndpointDeviceList,
		Method:   ecovacs.MethodGet,
	}, ecovacs.Params{})
}

// control issues a command against the control endpoint.
func (s *Service) control(ctx context.Context, tool, nickname, cmd, act string) ecovacs.Envelope {
	return s.call(ctx, CallRecord{
		Tool:     tool,
		Nickname: nickname,
		Action:   act,
		Endpoint: ecovacs.EndpointRobotControl,
		Method:   ecovacs.MethodPost,
	}, ecovacs.Params{
		"nickName": nickname,
		"cmd":      cmd,
		"act":      act,
	})
}

// call performs the upstream call and notifies the observer.
func (s *Service) call(ctx context.Context, rec CallRecord, params ecovacs.Params) ecovacs.Envelope {
	rec.ID = uuid.NewString()
	rec.StartedAt = time.Now().UTC()

	env := s.caller.Call(ctx, rec.Endpoint, params, rec.Method)

	rec.Duration = time.Since(rec.StartedAt)
	rec.Code = env.Code
	rec.Msg = env.Msg
	rec.Items = len(env.Data)

	s.observerMu.RLock()
	observer := s.observer
	s.observerMu.RUnlock()
	if observer != nil {
		observer.ObserveCall(ctx, rec)
	}

	return env
}
