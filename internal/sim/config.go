package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/bodysim/internal/dynamo"
	"github.com/san-kum/bodysim/internal/item"
	"gopkg.in/yaml.v3"
)

type RecordingMode int

const (
	RecordFull RecordingMode = iota
	RecordTail
	RecordNone
)

var recordingModeNames = []string{"full", "tail", "off"}

func (m RecordingMode) String() string {
	if m >= 0 && int(m) < len(recordingModeNames) {
		return recordingModeNames[m]
	}
	return fmt.Sprintf("RecordingMode(%d)", int(m))
}

func ParseRecordingMode(s string) (RecordingMode, error) {
	for i, name := range recordingModeNames {
		if name == s {
			return RecordingMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown recording mode %q", s)
}

func (m RecordingMode) MarshalYAML() (any, error) { return m.String(), nil }

func (m *RecordingMode) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseRecordingMode(node.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

type TimeRangeMode int

const (
	TimeRangeUnlimited TimeRangeMode = iota
	// TimeRangeActiveControl stops once no controller is running.
	TimeRangeActiveControl
	// TimeRangeSpecified stops after Config.TimeLength seconds.
	TimeRangeSpecified
	// TimeRangeTimeline stops at the end of the world timeline.
	TimeRangeTimeline
)

var timeRangeModeNames = []string{"unlimited", "active_control", "specified", "timeline"}

func (m TimeRangeMode) String() string {
	if m >= 0 && int(m) < len(timeRangeModeNames) {
		return timeRangeModeNames[m]
	}
	return fmt.Sprintf("TimeRangeMode(%d)", int(m))
}

func ParseTimeRangeMode(s string) (TimeRangeMode, error) {
	for i, name := range timeRangeModeNames {
		if name == s {
			return TimeRangeMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown time range mode %q", s)
}

func (m TimeRangeMode) MarshalYAML() (any, error) { return m.String(), nil }

func (m *TimeRangeMode) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseTimeRangeMode(node.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

const (
	DefaultTimeStep    = 0.001
	DefaultTailFrames  = 1000
	DefaultTimeLength  = 60.0
	DefaultFlushPeriod = 33 * time.Millisecond
)

type Config struct {
	TimeStep              float64       `yaml:"time_step"`
	Recording             RecordingMode `yaml:"recording"`
	TailFrames            int           `yaml:"tail_frames"`
	TimeRange             TimeRangeMode `yaml:"time_range"`
	TimeLength            float64       `yaml:"time_length"`
	SelfCollision         bool          `yaml:"self_collision"`
	DeviceStateOutput     bool          `yaml:"device_state_output"`
	AllLinkPositionOutput bool          `yaml:"all_link_position_output"`
	RealtimeSync          bool          `yaml:"realtime_sync"`
	FlushPeriod           time.Duration `yaml:"flush_period"`
	ControllerOptions     string        `yaml:"controller_options"`
}

func DefaultConfig() Config {
	return Config{
		TimeStep:    DefaultTimeStep,
		Recording:   RecordFull,
		TailFrames:  DefaultTailFrames,
		TimeRange:   TimeRangeUnlimited,
		TimeLength:  DefaultTimeLength,
		FlushPeriod: DefaultFlushPeriod,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.TimeStep <= 0 {
		errs = append(errs, fmt.Errorf("%w, got %g", dynamo.ErrInvalidTimeStep, c.TimeStep))
	}
	if c.Recording == RecordTail && c.TailFrames <= 0 {
		errs = append(errs, fmt.Errorf("tail recording needs a positive frame count, got %d", c.TailFrames))
	}
	if c.TimeRange == TimeRangeSpecified && c.TimeLength <= 0 {
		errs = append(errs, fmt.Errorf("specified time range needs a positive length, got %g", c.TimeLength))
	}
	if c.FlushPeriod < 0 {
		errs = append(errs, fmt.Errorf("flush period must not be negative, got %s", c.FlushPeriod))
	}
	return errors.Join(errs...)
}

// bufferCapacity is the number of frames a body buffers between flushes; 0
// means unbounded.
func (c Config) bufferCapacity() int {
	switch c.Recording {
	case RecordTail:
		return c.TailFrames
	case RecordNone:
		return 1
	default:
		return 0
	}
}

// Store writes the configuration to a. Runtime state is never stored.
func (c Config) Store(a item.Archive) {
	a.Write("timeStep", c.TimeStep)
	a.Write("recording", c.Recording.String())
	a.Write("tailFrames", c.TailFrames)
	a.Write("timeRangeMode", c.TimeRange.String())
	a.Write("timeLength", c.TimeLength)
	a.Write("selfCollision", c.SelfCollision)
	a.Write("deviceStateOutput", c.DeviceStateOutput)
	a.Write("allLinkPositionOutput", c.AllLinkPositionOutput)
	a.Write("realtimeSync", c.RealtimeSync)
	a.Write("flushPeriod", c.FlushPeriod.String())
	a.Write("controllerOptions", c.ControllerOptions)
}

// Restore reads the configuration from a, keeping current values for
// missing keys.
func (c *Config) Restore(a item.Archive) error {
	next := *c
	next.TimeStep = a.Float("timeStep", c.TimeStep)
	next.TailFrames = a.Int("tailFrames", c.TailFrames)
	next.TimeLength = a.Float("timeLength", c.TimeLength)
	next.SelfCollision = a.Bool("selfCollision", c.SelfCollision)
	next.DeviceStateOutput = a.Bool("deviceStateOutput", c.DeviceStateOutput)
	next.AllLinkPositionOutput = a.Bool("allLinkPositionOutput", c.AllLinkPositionOutput)
	next.RealtimeSync = a.Bool("realtimeSync", c.RealtimeSync)
	next.ControllerOptions = a.String("controllerOptions", c.ControllerOptions)

	if s := a.String("recording", ""); s != "" {
		m, err := ParseRecordingMode(s)
		if err != nil {
			return err
		}
		next.Recording = m
	}
	if s := a.String("timeRangeMode", ""); s != "" {
		m, err := ParseTimeRangeMode(s)
		if err != nil {
			return err
		}
		next.TimeRange = m
	}
	if s := a.String("flushPeriod", ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("flushPeriod: %w", err)
		}
		next.FlushPeriod = d
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
