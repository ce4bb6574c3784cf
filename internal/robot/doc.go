// Package robot defines the cleaning-robot tools exposed to agents.
//
// Four tools map one-to-one onto upstream calls:
//
//	set_cleaning     POST robot/ctl        cmd=Clean        act=s|r|p|h
//	set_charging     POST robot/ctl        cmd=Charge       act=go-start|stopGo
//	get_work_state   POST robot/ctl        cmd=GetWorkState act=""
//	get_device_list  GET  robot/deviceList
//
// Service implements the tools on top of any Caller (normally an
// *ecovacs.Client). Invoke dispatches by tool name with loosely typed
// arguments and is shared by the MCP server, the HTTP API and the MQTT bridge.
//
// Devices are addressed by nickname only. The upstream resolves (and fuzzy
// matches) the name; this package never validates that a device exists.
package robot
