// ABOUTME: Waveform wire protocol package
// ABOUTME: Defines protocol messages and the reconnecting websocket channel
// Package protocol implements the waveform streaming protocol.
//
// Every message is a JSON envelope {v, type, payload} with v fixed at 1.
// Envelopes carrying any other version are logged and dropped. The Channel
// keeps a FIFO of outbound messages while disconnected and flushes it before
// any newer message once a connection is established. Inbound messages and
// connection status changes share one channel so they arrive in order.
//
// Example:
//
//	ch := protocol.NewChannel(protocol.Config{ServerAddr: "localhost:8000"})
//	ch.Start()
//	ch.Send(protocol.TypeLoad, protocol.Load{Path: "/music/take1.flac"})
//	msg := <-ch.Inbound
package protocol
