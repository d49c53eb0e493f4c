package acquisition

import (
	"serialplotter/config"
	"serialplotter/serial"
)

// FromConfig derives the session settings and the real-port opener from the
// application configuration
func FromConfig(cfg *config.Config) (Config, Opener) {
	sessionCfg := Config{
		WindowLength:    cfg.Window.LengthSec,
		MinWindowLength: cfg.Window.MinLengthSec,
		MaxWindowLength: cfg.Window.MaxLengthSec,
		Floor:           cfg.Window.Floor,
		Reader: ReaderConfig{
			BufferSize: cfg.Serial.BufferSize,
			IdleSleep:  cfg.Serial.GetIdleSleep(),
		},
	}

	opener := SerialOpener(serial.PortConfig{
		DataBits:    cfg.Serial.DataBits,
		StopBits:    cfg.Serial.StopBits,
		Parity:      cfg.Serial.Parity,
		ReadTimeout: cfg.Serial.GetReadTimeout(),
	})

	return sessionCfg, opener
}

// TargetFromConfig returns the configured connection target, which may be
// empty
func TargetFromConfig(cfg *config.Config) Target {
	return Target{
		Device:   cfg.Serial.Device,
		BaudRate: cfg.Serial.BaudRate,
	}
}
