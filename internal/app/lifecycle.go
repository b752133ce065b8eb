package app

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/ayusman/angika/internal/adapter"
	"github.com/ayusman/angika/internal/sensor"
	"github.com/ayusman/angika/internal/store"
)

// Start initializes the sensor session and starts the gesture tick loop
// and the HTTP server. Safe to call once.
func (a *App) Start() error {
	switch status := a.session.Initialize(); status {
	case sensor.InitOK:
		log.Println("sensor session initialized")
	case sensor.InitUnavailable:
		log.Println("sensor not available yet, waiting for it to appear")
	case sensor.InitFatal:
		return fmt.Errorf("sensor initialization failed")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)
		a.adapter.Run(ctx, a.tickRate())
	}()

	if a.config.Addr != "" {
		go func() {
			log.Printf("listening on %s", a.config.Addr)
			if err := a.server.ListenAndServe(a.config.Addr); err != nil {
				log.Printf("http server: %v", err)
			}
		}()
	}
	return nil
}

// Stop shuts down the tick loop, the sensor session and the store.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	done := a.done
	a.cancel = nil
	a.done = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if status := a.session.Shutdown(); status == sensor.ShutdownFatal {
		log.Println("sensor shutdown reported a failure")
	}
	if err := a.store.Close(); err != nil {
		log.Printf("closing store: %v", err)
	}
}

// tickRate reads the evaluation frequency from settings, falling back to
// the adapter default.
func (a *App) tickRate() int {
	raw, err := a.store.Settings().Get(store.SettingTickRateHz)
	if err != nil {
		return adapter.DefaultTickRate
	}
	hz, err := strconv.Atoi(raw)
	if err != nil || hz < 1 {
		return adapter.DefaultTickRate
	}
	return hz
}
