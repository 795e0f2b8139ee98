package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hygrostat-ng/internal/config"
	"hygrostat-ng/internal/control"
	"hygrostat-ng/internal/csvlog"
	"hygrostat-ng/internal/gpio"
	"hygrostat-ng/internal/i2c"
	"hygrostat-ng/internal/sensors"
	"hygrostat-ng/internal/sensors/sht3x"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./hygrostat.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctrl, err := control.New(control.Params{
		TargetHumidity:           cfg.Control.TargetHumidity,
		FAERate:                  cfg.Control.FAERate,
		CP:                       cfg.Control.CP,
		CI:                       cfg.Control.CI,
		CycleTime:                cfg.Control.CycleTime(),
		SaturationResetThreshold: cfg.Control.SaturationResetThreshold,
		SaturationBias:           cfg.Control.SaturationBias,
	})
	if err != nil {
		log.Fatalf("controller init failed: %v", err)
	}

	sensor, closeSensor, err := openSensor(cfg.Sensor)
	if err != nil {
		log.Fatalf("sensor init failed: %v", err)
	}
	defer closeSensor()

	outputs, err := gpio.Open(cfg.GPIO.HumidifierPin, cfg.GPIO.FAEPin)
	if err != nil {
		log.Fatalf("gpio init failed: %v", err)
	}
	defer outputs.Close()

	dense, err := csvlog.Open(cfg.Log.DensePath, csvlog.DenseHeader)
	if err != nil {
		log.Fatalf("dense log init failed: %v", err)
	}
	sparse, err := csvlog.Open(cfg.Log.SparsePath, csvlog.SparseHeader)
	if err != nil {
		log.Fatalf("sparse log init failed: %v", err)
	}
	rec := csvlog.NewRecorder(dense, sparse)
	defer rec.Close()

	loop := control.NewLoop(ctrl, control.NewScheduler(outputs, ctrl.Params()),
		sensor, rec, cfg.Log.SparseEvery, cfg.Log.Verbose)

	log.Printf("hygrostat-ng starting")
	log.Printf("target=%.1f%%RH fae=%.1f%% cycle=%s c_p=%g c_i=%g",
		cfg.Control.TargetHumidity, cfg.Control.FAERate, cfg.Control.CycleTime(),
		cfg.Control.CP, cfg.Control.CI)

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("control loop failed: %v", err)
	}
	log.Printf("hygrostat-ng stopping")
}

func openSensor(cfg config.SensorConfig) (sensors.Sensor, func(), error) {
	if cfg.Sim.Enable {
		log.Printf("sensor: simulated reading humidity=%.1f%% temp=%.1fC", cfg.Sim.Humidity, cfg.Sim.Temperature)
		sim := &sensors.Sim{Reading: sensors.Reading{
			Humidity:    cfg.Sim.Humidity,
			Temperature: cfg.Sim.Temperature,
		}}
		return sim, func() {}, nil
	}

	bus, err := i2c.Open(cfg.I2CBus)
	if err != nil {
		return nil, nil, err
	}
	dev, err := sht3x.New(bus.Dev(cfg.I2CAddr))
	if err != nil {
		_ = bus.Close()
		return nil, nil, err
	}
	return dev, func() {
		_ = dev.Close()
		_ = bus.Close()
	}, nil
}
