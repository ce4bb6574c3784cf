package robot

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/robotctl/internal/ecovacs"
)

func TestTools_Catalogue(t *testing.T) {
	tools := Tools()

	wantNames := []string{ToolSetCleaning, ToolSetCharging, ToolGetWorkState, ToolGetDeviceList}
	if len(tools) != len(wantNames) {
		t.Fatalf("len(Tools()) = %d, want %d", len(tools), len(wantNames))
	}
	for i, name := range wantNames {
		if tools[i].Name != name {
			t.Errorf("Tools()[%d].Name = %q, want %q", i, tools[i].Name, name)
		}
		if tools[i].Description == "" {
			t.Errorf("%s has no description", name)
		}
	}

	readOnly := map[string]bool{ToolGetWorkState: true, ToolGetDeviceList: true}
	for _, tool := range tools {
		if tool.ReadOnly != readOnly[tool.Name] {
			t.Errorf("%s ReadOnly = %v, want %v", tool.Name, tool.ReadOnly, readOnly[tool.Name])
		}
	}
}

func TestTools_ActionDefaultsAreValid(t *testing.T) {
	for _, tool := range Tools() {
		for _, p := range tool.Params {
			if len(p.Enum) == 0 {
				continue
			}
			if !contains(p.Enum, p.Default) {
				t.Errorf("%s.%s default %q not in %v", tool.Name, p.Name, p.Default, p.Enum)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup(ToolSetCharging); !ok {
		t.Errorf("Lookup(%q) not found", ToolSetCharging)
	}
	if _, ok := Lookup("self_destruct"); ok {
		t.Error("Lookup(self_destruct) found")
	}
}

func TestInvoke_Defaults(t *testing.T) {
	tests := []struct {
		name       string
		tool       string
		args       map[string]any
		wantParams ecovacs.Params
	}{
		{
			name:       "set cleaning with no arguments",
			tool:       ToolSetCleaning,
			args:       nil,
			wantParams: ecovacs.Params{"nickName": "", "cmd": "Clean", "act": "s"},
		},
		{
			name:       "set cleaning explicit action",
			tool:       ToolSetCleaning,
			args:       map[string]any{"nickname": "Rosie", "act": "h"},
			wantParams: ecovacs.Params{"nickName": "Rosie", "cmd": "Clean", "act": "h"},
		},
		{
			name:       "set charging default action",
			tool:       ToolSetCharging,
			args:       map[string]any{"nickname": "Rosie"},
			wantParams: ecovacs.Params{"nickName": "Rosie", "cmd": "Charge", "act": "go-start"},
		},
		{
			name:       "null action uses default",
			tool:       ToolSetCharging,
			args:       map[string]any{"nickname": "Rosie", "act": nil},
			wantParams: ecovacs.Params{"nickName": "Rosie", "cmd": "Charge", "act": "go-start"},
		},
		{
			name:       "undeclared arguments ignored",
			tool:       ToolGetWorkState,
			args:       map[string]any{"nickname": "Rosie", "verbose": true},
			wantParams: ecovacs.Params{"nickName": "Rosie", "cmd": "GetWorkState", "act": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCaller{reply: okEnvelope()}
			s := NewService(fc)

			if _, err := s.Invoke(context.Background(), tt.tool, tt.args); err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}

			got := fc.only(t)
			if len(got.params) != len(tt.wantParams) {
				t.Fatalf("params = %v, want %v", got.params, tt.wantParams)
			}
			for k, v := range tt.wantParams {
				if got.params[k] != v {
					t.Errorf("params[%q] = %v, want %v", k, got.params[k], v)
				}
			}
		})
	}
}

func TestInvoke_Errors(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantErr error
	}{
		{"unknown tool", "self_destruct", nil, ErrUnknownTool},
		{"charging without nickname", ToolSetCharging, map[string]any{}, ErrInvalidArgument},
		{"work state without nickname", ToolGetWorkState, nil, ErrInvalidArgument},
		{"unknown cleaning action", ToolSetCleaning, map[string]any{"act": "x"}, ErrInvalidArgument},
		{"unknown charging action", ToolSetCharging, map[string]any{"nickname": "Rosie", "act": "go"}, ErrInvalidArgument},
		{"non-string nickname", ToolGetWorkState, map[string]any{"nickname": 42}, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCaller{reply: okEnvelope()}
			s := NewService(fc)

			_, err := s.Invoke(context.Background(), tt.tool, tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Invoke() error = %v, want %v", err, tt.wantErr)
			}
			if len(fc.calls) != 0 {
				t.Errorf("upstream called %d times on invalid input", len(fc.calls))
			}
		})
	}
}

func TestActions_Valid(t *testing.T) {
	for _, a := range CleanActions {
		if !a.Valid() {
			t.Errorf("CleanAction(%q).Valid() = false", a)
		}
	}
	for _, a := range ChargeActions {
		if !a.Valid() {
			t.Errorf("ChargeAction(%q).Valid() = false", a)
		}
	}
	if CleanAction("go-start").Valid() {
		t.Error("charging code accepted as cleaning action")
	}
	if ChargeAction("s").Valid() {
		t.Error("cleaning code accepted as charging action")
	}
}
