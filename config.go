package hive

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is hive's own ABI version, bumped whenever the public surface in
// this package changes in a way an embedder might need to gate on.
const Version = "0.1.0"

// Config carries the build-time configuration recognized by the core.
// Every field is a constant for the lifetime of a Runtime; there is no
// support for changing capacities after Init. Follows the usual
// package-level-defaults-plus-explicit-struct pattern: DefaultConfig
// returns sane values, callers override the fields they care about
// before passing the struct to New.
type Config struct {
	MaxActors            int
	DefaultStackSize      uintptr
	StackArenaSize        uintptr
	MailboxEntryPoolSize  int
	MessagePayloadPoolSize int
	MaxMessageSize        int
	LinkPoolSize          int
	MonitorPoolSize       int
	TimerPoolSize         int
	IoReadyPollTimeoutMs  int
	MaxReadyEventsPerTick int
	MallocStackFallback   bool
	Logger                Logger
}

// DefaultConfig returns the configuration with every field set to the
// default named in spec §6.
func DefaultConfig() Config {
	return Config{
		MaxActors:              64,
		DefaultStackSize:       65536,
		StackArenaSize:         1 << 20, // 1 MiB
		MailboxEntryPoolSize:   256,
		MessagePayloadPoolSize: 256,
		MaxMessageSize:         256,
		LinkPoolSize:           128,
		MonitorPoolSize:        128,
		TimerPoolSize:          64,
		IoReadyPollTimeoutMs:   10,
		MaxReadyEventsPerTick:  64,
		MallocStackFallback:    false,
		Logger:                 NopLogger{},
	}
}

func (c *Config) logger() Logger {
	if c.Logger == nil {
		return NopLogger{}
	}
	return c.Logger
}

// validate checks the configuration for obviously unusable values before
// Init carves any pools.
func (c Config) validate() Status {
	switch {
	case c.MaxActors <= 0:
		return invalidf("MaxActors must be > 0")
	case c.DefaultStackSize == 0:
		return invalidf("DefaultStackSize must be > 0")
	case c.MaxMessageSize <= 4:
		return invalidf("MaxMessageSize must exceed the 4-byte header")
	case c.MailboxEntryPoolSize <= 0:
		return invalidf("MailboxEntryPoolSize must be > 0")
	case c.MessagePayloadPoolSize <= 0:
		return invalidf("MessagePayloadPoolSize must be > 0")
	case c.LinkPoolSize <= 0:
		return invalidf("LinkPoolSize must be > 0")
	case c.MonitorPoolSize <= 0:
		return invalidf("MonitorPoolSize must be > 0")
	case c.TimerPoolSize <= 0:
		return invalidf("TimerPoolSize must be > 0")
	}
	return OkStatus()
}

// MaxPayload is the largest payload a message may carry given
// MaxMessageSize, after reserving the 4-byte header.
func (c Config) MaxPayload() int {
	return c.MaxMessageSize - 4
}

// RequireVersion asserts that hive's own Version satisfies the given
// semver constraint (e.g. ">= 0.1.0, < 1.0.0"), letting an embedding
// program gate startup on ABI compatibility before wiring hive into a
// larger build the way a package manager gates dependency versions.
func (c Config) RequireVersion(constraint string) error {
	ver, err := semver.NewVersion(Version)
	if err != nil {
		return fmt.Errorf("hive: invalid internal version %q: %w", Version, err)
	}
	c2, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("hive: invalid version constraint %q: %w", constraint, err)
	}
	if !c2.Check(ver) {
		return fmt.Errorf("hive: version %s does not satisfy constraint %q", Version, constraint)
	}
	return nil
}
