// Package mcpserver exposes the robot tools over the Model Context Protocol.
//
// The server advertises itself as "RobotControl" and registers one MCP tool
// per entry in robot.Tools(). Each call is dispatched through
// robot.Service.Invoke and the resulting envelope is returned as JSON text
// content. Argument problems become tool error results so the agent can
// correct itself; they are never protocol failures.
//
// The usual transport is stdio: Serve reads JSON-RPC messages from stdin and
// writes responses to stdout, so nothing else in the process may write to
// stdout while it runs.
package mcpserver
