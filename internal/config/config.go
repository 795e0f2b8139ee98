package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Control ControlConfig `yaml:"control"`
	GPIO    GPIOConfig    `yaml:"gpio"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Log     LogConfig     `yaml:"log"`
}

type ControlConfig struct {
	// TargetHumidity is the setpoint in %RH.
	TargetHumidity float64 `yaml:"target_humidity"`
	// FAERate is the fixed fresh-air-exchange duty in percent.
	FAERate float64 `yaml:"fae_rate"`
	CP      float64 `yaml:"c_p"`
	CI      float64 `yaml:"c_i"`
	// CycleTimeSec is the control cycle period in whole seconds.
	// The sensor needs settling time between reads, so anything below 2 is rejected.
	CycleTimeSec int `yaml:"cycle_time_sec"`
	// SaturationResetThreshold is the run of pinned-maximum readings (in cycles,
	// not wall time) after which the integral term is discarded.
	SaturationResetThreshold int `yaml:"saturation_reset_threshold"`
	// SaturationBias is added to the proportional error while the sensor is
	// pinned at its ceiling by condensation.
	SaturationBias float64 `yaml:"saturation_bias"`
}

type GPIOConfig struct {
	// Pins are BCM GPIO numbering.
	HumidifierPin int `yaml:"humidifier_pin"`
	FAEPin        int `yaml:"fae_pin"`
}

type SensorConfig struct {
	I2CBus  string          `yaml:"i2c_bus"`
	I2CAddr uint16          `yaml:"i2c_addr"`
	Sim     SensorSimConfig `yaml:"sim"`
}

type SensorSimConfig struct {
	Enable      bool    `yaml:"enable"`
	Humidity    float64 `yaml:"humidity"`
	Temperature float64 `yaml:"temperature"`
}

type LogConfig struct {
	DensePath  string `yaml:"dense_path"`
	SparsePath string `yaml:"sparse_path"`
	// SparseEvery emits the humidity/temperature record once every Nth cycle
	// to bound storage growth.
	SparseEvery int  `yaml:"sparse_every"`
	Verbose     bool `yaml:"verbose"`
}

func (c ControlConfig) CycleTime() time.Duration {
	return time.Duration(c.CycleTimeSec) * time.Second
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Control.TargetHumidity == 0 {
		cfg.Control.TargetHumidity = 95.0
	}
	if cfg.Control.TargetHumidity < 0 || cfg.Control.TargetHumidity > 100 {
		return Config{}, fmt.Errorf("control.target_humidity must be in [0,100]")
	}
	if cfg.Control.FAERate == 0 {
		cfg.Control.FAERate = 50.0
	}
	if cfg.Control.FAERate < 0 || cfg.Control.FAERate > 100 {
		return Config{}, fmt.Errorf("control.fae_rate must be in [0,100]")
	}
	if cfg.Control.CP == 0 {
		cfg.Control.CP = 2.0
	}
	if cfg.Control.CI == 0 {
		// c_i participates in the anti-windup bound as a divisor, so a zero here
		// is a config error, not a "disable integral" switch. The zero value only
		// means "absent" before defaulting.
		cfg.Control.CI = 0.03
	}
	if cfg.Control.CI < 0 {
		return Config{}, fmt.Errorf("control.c_i must be positive")
	}
	if cfg.Control.CycleTimeSec == 0 {
		cfg.Control.CycleTimeSec = 60
	}
	if cfg.Control.CycleTimeSec < 2 {
		return Config{}, fmt.Errorf("control.cycle_time_sec must be >= 2")
	}
	if cfg.Control.SaturationResetThreshold == 0 {
		cfg.Control.SaturationResetThreshold = 90
	}
	if cfg.Control.SaturationResetThreshold < 0 {
		return Config{}, fmt.Errorf("control.saturation_reset_threshold must be >= 0")
	}
	if cfg.Control.SaturationBias == 0 {
		cfg.Control.SaturationBias = 1.0
	}

	if cfg.GPIO.HumidifierPin == 0 {
		cfg.GPIO.HumidifierPin = 7
	}
	if cfg.GPIO.FAEPin == 0 {
		cfg.GPIO.FAEPin = 6
	}
	if cfg.GPIO.HumidifierPin == cfg.GPIO.FAEPin {
		return Config{}, fmt.Errorf("gpio.humidifier_pin and gpio.fae_pin must differ")
	}

	if cfg.Sensor.I2CBus == "" {
		cfg.Sensor.I2CBus = "/dev/i2c-1"
	}
	if cfg.Sensor.I2CAddr == 0 {
		cfg.Sensor.I2CAddr = 0x44
	}
	if cfg.Sensor.Sim.Enable {
		if cfg.Sensor.Sim.Humidity == 0 {
			cfg.Sensor.Sim.Humidity = 50.0
		}
		if cfg.Sensor.Sim.Temperature == 0 {
			cfg.Sensor.Sim.Temperature = 20.0
		}
	}

	if cfg.Log.DensePath == "" {
		cfg.Log.DensePath = "hygrostat.csv"
	}
	if cfg.Log.SparsePath == "" {
		cfg.Log.SparsePath = "climate.csv"
	}
	if cfg.Log.SparseEvery == 0 {
		cfg.Log.SparseEvery = 60
	}
	if cfg.Log.SparseEvery < 1 {
		return Config{}, fmt.Errorf("log.sparse_every must be >= 1")
	}

	return cfg, nil
}
