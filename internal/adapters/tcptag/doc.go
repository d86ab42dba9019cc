// Package tcptag implements the TCP tagging server: external producers connect
// and stream fixed 24-byte frames, each carrying one stimulation tag, which are
// stamped on receipt and pushed onto a queue drained by the acquisition loop.
//
// Frame layout (little endian):
//
//	offset 0  uint64 flags (FlagFPTime, FlagAutostampClientSide, FlagAutostampServerSide)
//	offset 8  uint64 identifier
//	offset 16 uint64 timestamp, 32.32 fixed point; 0 asks the server to stamp
//
// Producers that treat the first field as padding and send zero get the
// server-side stamping behavior of an empty flags word.
package tcptag
