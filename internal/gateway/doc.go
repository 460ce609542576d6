// Package gateway receives now-playing updates from the radio's websocket
// gateway.
//
// # Protocol
//
// Frames are JSON objects with an opcode:
//
//	{"op":0,"d":{"message":"...","heartbeat":45000}}   welcome, server → client
//	{"op":0,"d":{"auth":"Bearer <token>"}}              auth, client → server
//	{"op":1,"t":"TRACK_UPDATE","d":{...}}               playback update
//	{"op":9}                                            heartbeat, client → server
//	{"op":10}                                           heartbeat ack
//
// After the welcome the client sends a heartbeat every announced interval.
// Playback payloads decode into model.PlaybackInfo.
//
// # Reconnects
//
// Client.Run reconnects after every failure, waiting one second and doubling
// the wait per failed attempt up to two minutes. The count resets once a
// connection reaches the welcome frame.
package gateway
