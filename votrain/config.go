package votrain

import "fmt"

// Config configures a Trainer.
type Config struct {
	// MaxEpochs is the number of epochs after which
	// TrainEpoch stops doing work.
	MaxEpochs int

	// Debug limits every epoch to DebugIters samples.
	// The last debug sample of a training epoch always
	// closes a window, so every debug epoch takes at least
	// one optimizer step.
	Debug      bool
	DebugIters int

	// WindowSize is the maximum number of samples in a
	// truncated back-propagation window.
	WindowSize int

	// GradClip, if non-zero, bounds the L2 norm of every
	// gradient before the optimizer step.
	GradClip float64

	// RotScale multiplies the rotation loss.
	// If it is 0, a scale of 1 is used.
	RotScale float64

	// WeightReg, if non-zero, is the coefficient of a
	// penalty on the sum of the parameter norms.
	WeightReg float64

	// TrajectoryDir is the directory under which validation
	// writes predicted trajectories.
	TrajectoryDir string
}

// Validate checks the configuration for invalid settings.
// The returned error, if any, is a *ConfigError.
func (c *Config) Validate() error {
	switch {
	case c.MaxEpochs < 0:
		return &ConfigError{Field: "MaxEpochs", Msg: "must not be negative"}
	case c.Debug && c.DebugIters <= 0:
		return &ConfigError{Field: "DebugIters", Msg: "must be positive in debug mode"}
	case c.WindowSize <= 0:
		return &ConfigError{Field: "WindowSize", Msg: "must be positive"}
	case c.GradClip < 0:
		return &ConfigError{Field: "GradClip", Msg: "must not be negative"}
	case c.RotScale < 0:
		return &ConfigError{Field: "RotScale", Msg: "must not be negative"}
	case c.WeightReg < 0:
		return &ConfigError{Field: "WeightReg", Msg: "must not be negative"}
	case c.TrajectoryDir == "":
		return &ConfigError{Field: "TrajectoryDir", Msg: "must be set"}
	}
	return nil
}

// A ConfigError indicates an invalid Config.
type ConfigError struct {
	Field string
	Msg   string
}

// Error returns the error message.
func (c *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", c.Field, c.Msg)
}
