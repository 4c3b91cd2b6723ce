// Package nats publishes session events to a NATS server so other processes
// can follow races without polling the REST API.
//
// Every service.GameEvent is sent as JSON on
//
//	heat.sessions.<session id>.<event type>
//
// so a subscriber to "heat.sessions.ab12.>" sees one race and
// "heat.sessions.*.race_finished" sees every result.
package nats
