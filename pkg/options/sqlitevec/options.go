// Package sqlitevec provides options for the embedded sqlite-vec store.
package sqlitevec

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medrag/pkg/options"
)

var _ options.Completable = (*Options)(nil)

// Options contains sqlite-vec database configuration.
type Options struct {
	// File is the database file name, relative to the store directory
	// unless absolute.
	File string `json:"file" mapstructure:"file"`

	// JournalMode is the SQLite rollback journal mode, one of JournalModes.
	// WAL is not supported: vec0 KNN queries fault under WAL in the WASM build.
	JournalMode string `json:"journal-mode" mapstructure:"journal-mode"`

	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration `json:"busy-timeout" mapstructure:"busy-timeout"`

	// MaxOpenConns limits the database/sql pool.
	MaxOpenConns int `json:"max-open-conns" mapstructure:"max-open-conns"`
}

// JournalModes lists the journal modes the store can run with.
var JournalModes = []string{"DELETE", "TRUNCATE", "PERSIST"}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		File:         "medrag.db",
		JournalMode:  "DELETE",
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// AddFlags adds flags for sqlite-vec options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.File, p+"file", o.File, "SQLite database file, relative to the store directory.")
	fs.StringVar(&o.JournalMode, p+"journal-mode", o.JournalMode, "SQLite journal mode (DELETE, TRUNCATE or PERSIST).")
	fs.DurationVar(&o.BusyTimeout, p+"busy-timeout", o.BusyTimeout, "SQLite busy timeout.")
	fs.IntVar(&o.MaxOpenConns, p+"max-open-conns", o.MaxOpenConns, "Maximum open database connections.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	var errs []error
	if strings.TrimSpace(o.File) == "" {
		errs = append(errs, fmt.Errorf("sqlite file cannot be empty"))
	}
	if !SupportedJournalMode(o.JournalMode) {
		errs = append(errs, fmt.Errorf("sqlite journal mode %q is not supported, use one of %s",
			o.JournalMode, strings.Join(JournalModes, ", ")))
	}
	if o.BusyTimeout < 0 {
		errs = append(errs, fmt.Errorf("sqlite busy timeout must not be negative"))
	}
	if o.MaxOpenConns <= 0 {
		errs = append(errs, fmt.Errorf("sqlite max-open-conns must be positive"))
	}
	return errs
}

// Complete completes the options.
func (o *Options) Complete() error {
	o.JournalMode = strings.ToUpper(o.JournalMode)
	return nil
}

// SupportedJournalMode reports whether mode is in JournalModes, ignoring case.
func SupportedJournalMode(mode string) bool {
	for _, m := range JournalModes {
		if strings.EqualFold(strings.TrimSpace(mode), m) {
			return true
		}
	}
	return false
}
