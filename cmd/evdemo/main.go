// Command evdemo wires a Dispatcher, a YAML-backed Config with fsnotify hot
// reload, and a breadth-first nested trigger scenario end to end, logging
// through evdispatch.Logger.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/GoCodeAlone/evdispatch"
	"github.com/GoCodeAlone/evdispatch/internal/configwatcher"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML dispatcher config (optional)")
	flag.Parse()

	logger := evdispatch.NewSlogLogger(nil)
	cfg := evdispatch.DefaultConfig()

	var watcher *configwatcher.Watcher
	if *configPath != "" {
		w, err := configwatcher.New(*configPath, func(c evdispatch.Config, err error) {
			if err != nil {
				slog.Warn("config reload failed, keeping previous config", "error", err)
				return
			}
			cfg = c
			slog.Info("config reloaded", "poolBlockSize", c.PoolBlockSize, "maxQueueDepth", c.MaxQueueDepth)
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "evdemo: watching config:", err)
			os.Exit(1)
		}
		watcher = w
		defer watcher.Close()
	}

	disp, err := evdispatch.NewDispatcher("evdemo", evdispatch.WithLogger(logger), evdispatch.WithConfig(cfg))
	if err != nil {
		fmt.Fprintln(os.Stderr, "evdemo: creating dispatcher:", err)
		os.Exit(1)
	}
	defer disp.Destroy()

	evt1, err := disp.CreateEvent("mockEvent1")
	if err != nil {
		fmt.Fprintln(os.Stderr, "evdemo:", err)
		os.Exit(1)
	}
	evt2, err := disp.CreateEvent("mockEvent2")
	if err != nil {
		fmt.Fprintln(os.Stderr, "evdemo:", err)
		os.Exit(1)
	}

	var log []string

	nestA := func(ed *evdispatch.EventData, arg any) {
		_ = evt2.Trigger(nil, func(ed2 *evdispatch.EventData, handled bool, arg2 any) {
			log = append(log, fmt.Sprintf("rB:%s == %v", ed2.Name, handled))
		}, nil)
		log = append(log, "nestA:"+ed.Name)
	}
	nestB1 := func(ed *evdispatch.EventData, arg any) {
		log = append(log, "nestB:"+ed.Name)
	}
	nestB2 := func(ed *evdispatch.EventData, arg any) {
		log = append(log, "nestB:"+ed.Name)
	}
	nestC := func(ed *evdispatch.EventData, arg any) {
		ed.Handled = true
		log = append(log, "nestC:"+ed.Name)
	}

	evt1.Bind(nestA, nil)
	evt1.Bind(nestB1, nil)
	evt2.Bind(nestB2, nil)
	evt2.Bind(nestC, nil)

	err = evt1.Trigger(nil, func(ed *evdispatch.EventData, handled bool, arg any) {
		log = append(log, fmt.Sprintf("rA:%s == %v", ed.Name, handled))
	}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "evdemo: trigger failed:", err)
		os.Exit(1)
	}

	for _, line := range log {
		fmt.Println(line)
	}
}
