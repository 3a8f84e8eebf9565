/*
Package ws streams workspace events to browser clients over WebSocket.

A client connects to GET /workspaces/:id/stream and receives a system
greeting carrying the workspace view, followed by every layout, run, source
and assistant event the workspace publishes. The stream ends with a closed
event and a normal close frame when the workspace is torn down.

Clients may send {"type":"ping"} for an application level pong, or
{"type":"snapshot"} to receive the current view again.
*/
package ws
