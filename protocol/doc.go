// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the WebSocket protocol logic (RFC 6455 subset) for wsreactor.
//
// The package owns no I/O. Callers feed it the bytes accumulated from a
// socket and get back parsed handshakes, decoded frames, or a close code.
//
// Includes:
//   - Opening handshake parsing and Sec-WebSocket-Accept computation
//   - Client frame validation (FIN, opcode, mask) with close-code verdicts
//   - 7-bit, 16-bit and 64-bit payload length decoding, in-place unmasking
//   - Unmasked server frame encoding for text, pong and close frames
//
// Fragmented messages, binary frames and extensions are refused.
package protocol
