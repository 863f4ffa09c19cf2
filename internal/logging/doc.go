// Package logging builds the gateway's slog.Logger from configuration.
//
// Console output is either a colorized text format for terminals or
// slog's JSON format. Setting logging.file adds a JSON file sink; both
// sinks receive every record through a fanout handler.
package logging
