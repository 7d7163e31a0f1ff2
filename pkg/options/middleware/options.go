// Package middleware provides HTTP middleware configuration options.
package middleware

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/kart-io/medrag/pkg/options"
)

// RecoveryOptions defines recovery middleware options.
type RecoveryOptions struct {
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`
}

// RequestIDOptions defines request ID middleware options.
type RequestIDOptions struct {
	Header string `json:"header" mapstructure:"header"`
}

// LoggerOptions defines access log middleware options.
type LoggerOptions struct {
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// Options groups the middleware chain configuration.
type Options struct {
	Recovery  *RecoveryOptions  `json:"recovery" mapstructure:"recovery"`
	RequestID *RequestIDOptions `json:"request-id" mapstructure:"request-id"`
	Logger    *LoggerOptions    `json:"logger" mapstructure:"logger"`
}

// NewRecoveryOptions creates default recovery options.
func NewRecoveryOptions() *RecoveryOptions {
	return &RecoveryOptions{}
}

// NewRequestIDOptions creates default request ID options.
func NewRequestIDOptions() *RequestIDOptions {
	return &RequestIDOptions{Header: "X-Request-ID"}
}

// NewLoggerOptions creates default logger options.
func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{SkipPaths: []string{"/", "/metrics"}}
}

// NewOptions creates the default middleware chain options.
func NewOptions() *Options {
	return &Options{
		Recovery:  NewRecoveryOptions(),
		RequestID: NewRequestIDOptions(),
		Logger:    NewLoggerOptions(),
	}
}

// AddFlags adds flags for middleware options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.BoolVar(&o.Recovery.EnableStackTrace, p+"middleware.recovery.enable-stack-trace", o.Recovery.EnableStackTrace,
		"Return the panic stack trace to clients (ignored in production).")
	fs.StringVar(&o.RequestID.Header, p+"middleware.request-id.header", o.RequestID.Header, "Request ID header name.")
	fs.StringSliceVar(&o.Logger.SkipPaths, p+"middleware.logger.skip-paths", o.Logger.SkipPaths, "Paths excluded from the access log.")
}

// Validate validates the middleware options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.RequestID == nil || o.RequestID.Header == "" {
		errs = append(errs, errors.New("request ID header name is required"))
	}
	return errs
}

// Complete fills nil sub-options with defaults.
func (o *Options) Complete() error {
	if o.Recovery == nil {
		o.Recovery = NewRecoveryOptions()
	}
	if o.RequestID == nil {
		o.RequestID = NewRequestIDOptions()
	}
	if o.Logger == nil {
		o.Logger = NewLoggerOptions()
	}
	return nil
}
