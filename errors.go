/*
	AUTHOR

	Grant Street Group <developers@grantstreet.com>

	COPYRIGHT AND LICENSE

	This software is Copyright (c) 2019 by Grant Street Group.
	This is free software, licensed under:
	    MIT License
*/

package exasol

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the ETL chunked-transfer and job-level protocol
// violations described by the websocket API's ETL extension. They are
// always wrapped in a *ProtocolError; callers should use errors.Is against
// these values rather than matching on *ProtocolError.Err directly.
var (
	ErrChunkSizeOverflow      = errors.New("chunk size overflowed 64 bits")
	ErrWriteZero              = errors.New("failed to write the buffered data")
	ErrResultSetFromEtl       = errors.New("ETL job returned a result set instead of a row count")
	ErrTransactionAlreadyOpen = errors.New("a transaction is already open")
	ErrWebSocketClosed        = errors.New("websocket connection closed by peer")
)

// InvalidChunkSizeByteError is raised when a byte outside the hex alphabet
// appears before the terminating CR of a chunk-size line.
type InvalidChunkSizeByteError struct {
	Byte byte
}

func (e *InvalidChunkSizeByteError) Error() string {
	return fmt.Sprintf("expected hex digit or CR, found %#x", e.Byte)
}

// InvalidByteError is raised whenever the chunked-encoding parser expects a
// specific byte (almost always CR or LF) and finds something else.
type InvalidByteError struct {
	Expected byte
	Found    byte
}

func (e *InvalidByteError) Error() string {
	return fmt.Sprintf("expected byte %#x, found %#x", e.Expected, e.Found)
}

// IoError wraps a lower-level socket failure. It is propagated verbatim
// from the Byte Socket and WebSocket Channel layers.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("exasol: io error during %s: %s", e.Op, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// ProtocolError covers unexpected websocket state, JSON schema mismatches,
// missing mandatory response fields, bind-parameter mismatches, and the
// chunked-transfer invariants.
type ProtocolError struct {
	Msg string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exasol: protocol error: %s: %s", e.Msg, e.Err)
	}
	return fmt.Sprintf("exasol: protocol error: %s", e.Msg)
}
func (e *ProtocolError) Unwrap() error { return e.Err }

// TlsError covers certificate/key handling and TLS handshake failures,
// both on the control channel and on ETL worker sockets.
type TlsError struct {
	Op  string
	Err error
}

func (e *TlsError) Error() string { return fmt.Sprintf("exasol: tls error during %s: %s", e.Op, e.Err) }
func (e *TlsError) Unwrap() error { return e.Err }

// ConfigError covers URL parsing, unknown parameters, missing host, and
// conflicting auth methods. go-exasol-client does not parse URLs itself
// (see ConnConf doc comment) but still surfaces configuration mistakes
// made directly against ConnConf through this type.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "exasol: configuration error: " + e.Msg }

// InternalAddrError is raised when the ETL tunnel handshake reply cannot
// be parsed into an IPv4 dotted-quad.
type InternalAddrError struct {
	Raw string
	Err error
}

func (e *InternalAddrError) Error() string {
	return fmt.Sprintf("exasol: invalid ETL internal address %q: %s", e.Raw, e.Err)
}
func (e *InternalAddrError) Unwrap() error { return e.Err }

// DatabaseError is the structured exception Exasol reports in its JSON
// envelope. SQLCode is classified into one of the sentinel errors below by
// classifyDatabaseError where a specific Go error type is warranted.
type DatabaseError struct {
	SQLCode string
	Text    string
}

func (e *DatabaseError) Error() string {
	if e.SQLCode == "" {
		return "exasol: " + e.Text
	}
	return fmt.Sprintf("exasol: [%s] %s", e.SQLCode, e.Text)
}

// Sentinels classifying well-known DatabaseError SQL codes, per the
// mapping table in the websocket API's ETL extension documentation:
// 27001 is a NOT NULL violation; 42X91 is an integrity-constraint
// violation whose exact kind (unique vs. foreign key) is only
// distinguishable by inspecting the message text.
var (
	ErrNotNullViolation    = errors.New("NOT NULL constraint violation")
	ErrUniqueViolation     = errors.New("UNIQUE constraint violation")
	ErrForeignKeyViolation = errors.New("FOREIGN KEY constraint violation")
)

// classifyDatabaseError maps a raw Exasol exception onto the sentinel
// errors callers are expected to match against with errors.Is, wrapping
// the original *DatabaseError for the sqlCode/text detail.
func classifyDatabaseError(dbErr *DatabaseError) error {
	switch {
	case dbErr.SQLCode == "27001":
		return &wrappedDatabaseError{sentinel: ErrNotNullViolation, err: dbErr}
	case dbErr.SQLCode == "42X91" && strings.Contains(strings.ToLower(dbErr.Text), "primary key"):
		return &wrappedDatabaseError{sentinel: ErrUniqueViolation, err: dbErr}
	case dbErr.SQLCode == "42X91" && strings.Contains(strings.ToLower(dbErr.Text), "foreign key"):
		return &wrappedDatabaseError{sentinel: ErrForeignKeyViolation, err: dbErr}
	default:
		return dbErr
	}
}

type wrappedDatabaseError struct {
	sentinel error
	err      *DatabaseError
}

func (e *wrappedDatabaseError) Error() string { return e.err.Error() }
func (e *wrappedDatabaseError) Unwrap() []error {
	return []error{e.sentinel, e.err}
}
