package robot

import (
	"context"
	"fmt"

	"github.com/nerrad567/robotctl/internal/ecovacs"
)

// Tool names as advertised to agents.
const (
	ToolSetCleaning   = "set_cleaning"
	ToolSetCharging   = "set_charging"
	ToolGetWorkState  = "get_work_state"
	ToolGetDeviceList = "get_device_list"
)

// Argument names accepted by Invoke.
const (
	ArgNickname = "nickname"
	ArgAct      = "act"
)

// Param describes one string argument of a tool.
type Param struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Default     string   `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Tool describes a tool for catalogue listings and schema generation.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	ReadOnly    bool    `json:"read_only"`
}

// Tools returns the tool catalogue in a stable order.
func Tools() []Tool {
	return []Tool{
		{
			Name:        ToolSetCleaning,
			Description: "Start, resume, pause or stop cleaning on a robot.",
			Params: []Param{
				{
					Name:        ArgNickname,
					Description: "Robot nickname, supports fuzzy matching",
					Default:     "",
				},
				{
					Name:        ArgAct,
					Description: "Cleaning action: s start cleaning, r resume cleaning, p pause cleaning, h stop cleaning",
					Default:     string(CleanStart),
					Enum:        cleanActionNames(),
				},
			},
		},
		{
			Name:        ToolSetCharging,
			Description: "Send a robot back to its charging station, or stop it returning.",
			Params: []Param{
				{
					Name:        ArgNickname,
					Description: "Robot nickname, used to find the device",
					Required:    true,
				},
				{
					Name:        ArgAct,
					Description: "Charging action: go-start begin returning to the charging station, stopGo stop returning",
					Default:     string(ChargeGoStart),
					Enum:        chargeActionNames(),
				},
			},
		},
		{
			Name:        ToolGetWorkState,
			Description: "Query a robot's current working state.",
			Params: []Param{
				{
					Name:        ArgNickname,
					Description: "Robot nickname, used to find the device",
					Required:    true,
				},
			},
			ReadOnly: true,
		},
		{
			Name:        ToolGetDeviceList,
			Description: "List the robots bound to this account with their nicknames.",
			Params:      []Param{},
			ReadOnly:    true,
		},
	}
}

// Lookup returns the catalogue entry for name.
func Lookup(name string) (Tool, bool) {
	for _, t := range Tools() {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Invoke runs the named tool with loosely typed arguments.
//
// Arguments are validated against the catalogue before any upstream call:
// declared arguments must be strings, required ones must be present, and
// action codes must be one of the enumerated values. Undeclared arguments
// are ignored.
//
// Parameters:
//   - ctx: Context for cancellation
//   - name: Tool name, e.g. ToolSetCleaning
//   - args: Arguments keyed by parameter name (may be nil)
//
// Returns:
//   - ecovacs.Envelope: Result of the single upstream call
//   - error: ErrUnknownTool or ErrInvalidArgument; the upstream is not called
func (s *Service) Invoke(ctx context.Context, name string, args map[string]any) (ecovacs.Envelope, error) {
	tool, ok := Lookup(name)
	if !ok {
		return ecovacs.Envelope{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	values, err := bindArgs(tool, args)
	if err != nil {
		return ecovacs.Envelope{}, err
	}

	switch tool.Name {
	case ToolSetCleaning:
		return s.SetCleaning(ctx, values[ArgNickname], CleanAction(values[ArgAct])), nil
	case ToolSetCharging:
		return s.SetCharging(ctx, values[ArgNickname], ChargeAction(values[ArgAct])), nil
	case ToolGetWorkState:
		return s.GetWorkState(ctx, values[ArgNickname]), nil
	default:
		return s.GetDeviceList(ctx), nil
	}
}

// bindArgs resolves every declared parameter to a string value.
func bindArgs(tool Tool, args map[string]any) (map[string]string, error) {
	values := make(map[string]string, len(tool.Params))

	for _, p := range tool.Params {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Required {
				return nil, fmt.Errorf("%w: %s is required", ErrInvalidArgument, p.Name)
			}
			values[p.Name] = p.Default
			continue
		}

		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidArgument, p.Name, raw)
		}

		if len(p.Enum) > 0 && !contains(p.Enum, str) {
			return nil, fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidArgument, p.Name, p.Enum, str)
		}

		values[p.Name] = str
	}

	return values, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cleanActionNames() []string {
	names := make([]string, len(CleanActions))
	for i, a := range CleanActions {
		names[i] = string(a)
	}
	return names
}

func chargeActionNames() []string {
	names := make([]string, len(ChargeActions))
	for i, a := range ChargeActions {
		names[i] = string(a)
	}
	return names
}
