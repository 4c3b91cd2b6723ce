// Package service provides the business logic layer between the transports
// (REST, WebSocket, MCP) and the race engine.
//
// GameService covers the lifecycle of a race: a session is created on a map
// in the lobby, players join, the race starts with a freshly seeded shuffle,
// then every action is dispatched to the session's engine under its lock.
// State reads are always viewer specific, hiding other players' hands.
//
// SessionManager and ConfigManager are implemented by the session and config
// packages. EventPublisher receives a GameEvent after every change; the
// websocket hub and the NATS publisher both implement it and are combined
// with Publishers.
//
// Usage:
//
//	svc := service.NewGameService(sessionMgr, configMgr,
//		service.WithEventPublisher(service.Publishers{hub, natsPublisher}))
//
//	info, err := svc.CreateSession(ctx, "usa", 0)
//	_, err = svc.JoinSession(ctx, info.ID, "ann", "Ann")
//	_, err = svc.JoinSession(ctx, info.ID, "bob", "Bob")
//	_, err = svc.StartSession(ctx, info.ID)
//
//	result, err := svc.Dispatch(ctx, info.ID, "ann", service.ActionRequest{
//		Type:        engine.ActionPlan,
//		Gear:        2,
//		CardIndices: []int{0, 3},
//	})
package service
